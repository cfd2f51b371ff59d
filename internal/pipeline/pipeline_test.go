package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/photogeo/core/telegram/album"
	"github.com/m3rciful/photogeo/internal/intake"
)

type fakeReplier struct {
	mu      sync.Mutex
	replies []intake.SendReply
}

func (f *fakeReplier) Reply(_ context.Context, r intake.SendReply) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, r)
	return nil
}

func (f *fakeReplier) kinds(chatID int64) []intake.Reply {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []intake.Reply
	for _, r := range f.replies {
		if r.ChatID == chatID {
			out = append(out, r.Reply)
		}
	}
	return out
}

type fakeDownloader struct {
	mu    sync.Mutex
	err   error
	calls []string
}

func (f *fakeDownloader) Download(_ context.Context, userID int64, assetRef string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, assetRef)
	if f.err != nil {
		return "", f.err
	}
	return fmt.Sprintf("storage/photos/%d/%s.jpg", userID, assetRef), nil
}

type fakeRecords struct {
	mu      sync.Mutex
	err     error
	records []intake.Record
}

func (f *fakeRecords) Append(_ context.Context, rec intake.Record) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.records = append(f.records, rec)
	return fmt.Sprintf("rec-%d", len(f.records)), nil
}

type harness struct {
	p        *Pipeline
	replies  *fakeReplier
	download *fakeDownloader
	records  *fakeRecords
}

func newHarness(t *testing.T, latency time.Duration) *harness {
	t.Helper()
	h := &harness{
		replies:  &fakeReplier{},
		download: &fakeDownloader{},
		records:  &fakeRecords{},
	}
	p, err := New(Options{
		Albums:     album.New[intake.Event](album.Options{Latency: latency}),
		Replier:    h.replies,
		Downloader: h.download,
		Records:    h.records,
	})
	require.NoError(t, err)
	h.p = p
	return h
}

var sentAt = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func msg(userID int64, kind intake.Kind) intake.Event {
	ev := intake.Event{UserID: userID, ChatID: userID, DisplayName: "Grace Hopper", Kind: kind, Timestamp: sentAt}
	switch kind {
	case intake.KindCommand:
		ev.Command = "/start"
	case intake.KindPhoto:
		ev.AssetRef = fmt.Sprintf("photo-%d", userID)
	case intake.KindLocation:
		ev.Location = &intake.Coords{Latitude: 48.85, Longitude: 2.35}
	}
	return ev
}

func (h *harness) handle(t *testing.T, ev intake.Event) Outcome {
	t.Helper()
	out, err := h.p.Handle(context.Background(), ev)
	require.NoError(t, err)
	return out
}

func (h *harness) burst(t *testing.T, userID int64, groupID string, n int) []Outcome {
	t.Helper()
	outs := make(chan Outcome, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		ev := msg(userID, intake.KindPhoto)
		ev.GroupID = groupID
		ev.AssetRef = fmt.Sprintf("%s-%d", groupID, i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := h.p.Handle(context.Background(), ev)
			assert.NoError(t, err)
			outs <- out
		}()
	}
	wg.Wait()
	close(outs)
	var res []Outcome
	for o := range outs {
		res = append(res, o)
	}
	return res
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestScenarioBeginPhotoLocation(t *testing.T) {
	h := newHarness(t, 10*time.Millisecond)
	const user = int64(7)

	out := h.handle(t, msg(user, intake.KindCommand))
	assert.Equal(t, intake.StateAwaitingPhoto, out.To)
	assert.Equal(t, []intake.Reply{intake.ReplyGreeting}, h.replies.kinds(user))

	out = h.handle(t, msg(user, intake.KindPhoto))
	assert.Equal(t, intake.StateAwaitingLocation, out.To)
	assert.Equal(t, []string{"photo-7"}, h.download.calls)
	sess := h.p.Sessions().Get(user)
	require.NotNil(t, sess.PendingPhoto)
	assert.Equal(t, "storage/photos/7/photo-7.jpg", sess.PendingPhoto.LocalRef)

	out = h.handle(t, msg(user, intake.KindLocation))
	assert.Equal(t, intake.StateAwaitingPhoto, out.To)
	assert.Equal(t, "rec-1", out.RecordID)
	require.Len(t, h.records.records, 1)
	assert.Equal(t, intake.Record{
		UserID:        user,
		DisplayName:   "Grace Hopper",
		LocalPhotoRef: "storage/photos/7/photo-7.jpg",
		Latitude:      48.85,
		Longitude:     2.35,
		Timestamp:     sentAt,
	}, h.records.records[0])
	assert.Nil(t, h.p.Sessions().Get(user).PendingPhoto)
	assert.Equal(t, []intake.Reply{
		intake.ReplyGreeting,
		intake.ReplyRequestLocation,
		intake.ReplyThanks,
		intake.ReplyAnotherPhoto,
	}, h.replies.kinds(user))
}

func TestScenarioPhotoBurstRejectedOnce(t *testing.T) {
	h := newHarness(t, 100*time.Millisecond)
	const user = int64(8)
	h.handle(t, msg(user, intake.KindCommand))

	outs := h.burst(t, user, "album-8", 3)

	suppressed, delivered := 0, 0
	for _, o := range outs {
		if o.Suppressed {
			suppressed++
			continue
		}
		delivered++
		assert.Equal(t, 3, o.BundleSize)
		assert.ErrorIs(t, o.Rejection, intake.ErrUnexpectedGroupedInput)
	}
	assert.Equal(t, 2, suppressed)
	assert.Equal(t, 1, delivered)
	assert.Equal(t, []intake.Reply{intake.ReplyGreeting, intake.ReplySinglePhotoOnly}, h.replies.kinds(user))
	assert.Equal(t, intake.StateAwaitingPhoto, h.p.Sessions().Get(user).State)
	assert.Empty(t, h.download.calls)
	assert.False(t, h.p.Albums().Open("album-8"))
	assert.Equal(t, 0, h.p.Albums().Pending())
}

func TestScenarioIdleLocation(t *testing.T) {
	h := newHarness(t, 10*time.Millisecond)
	out := h.handle(t, msg(9, intake.KindLocation))
	assert.Equal(t, intake.StateIdle, out.To)
	assert.ErrorIs(t, out.Rejection, intake.ErrNoActiveSession)
	assert.Equal(t, []intake.Reply{intake.ReplyStartFirst}, h.replies.kinds(9))
	assert.Empty(t, h.records.records)
}

func TestScenarioConcurrentBurstsResolveIndependently(t *testing.T) {
	latency := 150 * time.Millisecond
	h := newHarness(t, latency)
	h.handle(t, msg(1, intake.KindCommand))
	h.handle(t, msg(2, intake.KindCommand))

	start := time.Now()
	var wg sync.WaitGroup
	for _, u := range []int64{1, 2} {
		wg.Add(1)
		go func(u int64) {
			defer wg.Done()
			h.burst(t, u, fmt.Sprintf("album-%d", u), 3)
		}(u)
	}
	wg.Wait()

	assert.Less(t, time.Since(start), 2*latency, "bursts must not wait for each other")
	for _, u := range []int64{1, 2} {
		assert.Equal(t, []intake.Reply{intake.ReplyGreeting, intake.ReplySinglePhotoOnly}, h.replies.kinds(u))
	}
	assert.Equal(t, 0, h.p.Albums().Pending())
}

func TestDownloadFailureKeepsAwaitingPhoto(t *testing.T) {
	h := newHarness(t, 10*time.Millisecond)
	h.download.err = errors.New("telegram: file is too big")
	const user = int64(10)
	h.handle(t, msg(user, intake.KindCommand))

	out := h.handle(t, msg(user, intake.KindPhoto))
	assert.Equal(t, intake.StateAwaitingPhoto, out.To)
	assert.ErrorIs(t, out.Rejection, intake.ErrDownloadFailure)
	assert.Equal(t, intake.StateAwaitingPhoto, h.p.Sessions().Get(user).State)
	assert.Equal(t, []intake.Reply{intake.ReplyGreeting, intake.ReplyDownloadFailed}, h.replies.kinds(user))

	h.download.err = nil
	out = h.handle(t, msg(user, intake.KindPhoto))
	assert.Equal(t, intake.StateAwaitingLocation, out.To)
}

func TestWriteFailureKeepsAwaitingLocation(t *testing.T) {
	h := newHarness(t, 10*time.Millisecond)
	h.records.err = errors.New("db down")
	const user = int64(11)
	h.handle(t, msg(user, intake.KindCommand))
	h.handle(t, msg(user, intake.KindPhoto))

	out := h.handle(t, msg(user, intake.KindLocation))
	assert.ErrorIs(t, out.Rejection, intake.ErrWriteFailure)
	sess := h.p.Sessions().Get(user)
	assert.Equal(t, intake.StateAwaitingLocation, sess.State)
	require.NotNil(t, sess.PendingPhoto)
	assert.NotEmpty(t, sess.PendingPhoto.LocalRef)
	assert.Equal(t, []intake.Reply{
		intake.ReplyGreeting,
		intake.ReplyRequestLocation,
		intake.ReplyWriteFailed,
	}, h.replies.kinds(user))

	h.records.err = nil
	out = h.handle(t, msg(user, intake.KindLocation))
	assert.NoError(t, out.Rejection)
	assert.Equal(t, intake.StateAwaitingPhoto, out.To)
	assert.Len(t, h.records.records, 1)
}

func TestMalformedInputDoesNotAffectOtherUsers(t *testing.T) {
	h := newHarness(t, 10*time.Millisecond)
	h.handle(t, msg(20, intake.KindCommand))
	h.handle(t, msg(20, intake.KindPhoto))

	h.handle(t, msg(21, intake.KindOther))
	h.handle(t, msg(21, intake.KindLocation))

	assert.Equal(t, intake.StateAwaitingLocation, h.p.Sessions().Get(20).State)
	assert.Equal(t, intake.StateIdle, h.p.Sessions().Get(21).State)
}
