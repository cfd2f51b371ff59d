package intake

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/photogeo/core/telegram/state"
)

const userID = int64(1001)

var sentAt = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func event(kind Kind) Event {
	ev := Event{UserID: userID, ChatID: userID, DisplayName: "Ada Lovelace", Kind: kind, Timestamp: sentAt}
	switch kind {
	case KindPhoto:
		ev.AssetRef = "file-1"
	case KindLocation:
		ev.Location = &Coords{Latitude: 55.75, Longitude: 37.61}
	case KindCommand:
		ev.Command = "/start"
	}
	return ev
}

func grouped(kind Kind, n int) Input {
	rep := event(kind)
	rep.GroupID = "album-1"
	bundle := make([]Event, n)
	for i := range bundle {
		bundle[i] = rep
	}
	return Input{Event: rep, Bundle: bundle}
}

func session(st state.State) Session {
	s := NewSession(userID)
	s.State = st
	if st == StateAwaitingLocation {
		s.PendingPhoto = &PhotoRef{AssetRef: "file-1", LocalRef: "storage/photos/a.jpg"}
	}
	return s
}

func replies(ds []Directive) []Reply {
	var out []Reply
	for _, d := range ds {
		if r, ok := d.(SendReply); ok {
			out = append(out, r.Reply)
		}
	}
	return out
}

func TestStepCoversEveryStateAndKind(t *testing.T) {
	other := event(KindOther)
	unknownCmd := event(KindCommand)
	unknownCmd.Command = "/settings"

	tests := []struct {
		name      string
		state     state.State
		input     Input
		next      state.State
		replies   []Reply
		rejection error
	}{
		{"idle begin", StateIdle, Solitary(event(KindCommand)), StateAwaitingPhoto, []Reply{ReplyGreeting}, nil},
		{"idle photo", StateIdle, Solitary(event(KindPhoto)), StateIdle, []Reply{ReplyStartFirst}, ErrNoActiveSession},
		{"idle location", StateIdle, Solitary(event(KindLocation)), StateIdle, []Reply{ReplyStartFirst}, ErrNoActiveSession},
		{"idle other", StateIdle, Solitary(other), StateIdle, []Reply{ReplyStartFirst}, ErrNoActiveSession},
		{"idle unknown command", StateIdle, Solitary(unknownCmd), StateIdle, []Reply{ReplyStartFirst}, ErrNoActiveSession},
		{"idle photo group", StateIdle, grouped(KindPhoto, 3), StateIdle, []Reply{ReplyStartFirst}, ErrNoActiveSession},

		{"photo begin", StateAwaitingPhoto, Solitary(event(KindCommand)), StateAwaitingPhoto, []Reply{ReplyGreeting}, nil},
		{"photo single", StateAwaitingPhoto, Solitary(event(KindPhoto)), StateAwaitingLocation, []Reply{ReplyRequestLocation}, nil},
		{"photo group", StateAwaitingPhoto, grouped(KindPhoto, 3), StateAwaitingPhoto, []Reply{ReplySinglePhotoOnly}, ErrUnexpectedGroupedInput},
		{"photo group of one", StateAwaitingPhoto, grouped(KindPhoto, 1), StateAwaitingPhoto, []Reply{ReplySinglePhotoOnly}, ErrUnexpectedGroupedInput},
		{"photo location", StateAwaitingPhoto, Solitary(event(KindLocation)), StateAwaitingPhoto, []Reply{ReplyNotPhoto}, ErrInvalidInputKind},
		{"photo other", StateAwaitingPhoto, Solitary(other), StateAwaitingPhoto, []Reply{ReplyNotPhoto}, ErrInvalidInputKind},
		{"photo unknown command", StateAwaitingPhoto, Solitary(unknownCmd), StateAwaitingPhoto, []Reply{ReplyNotPhoto}, ErrInvalidInputKind},
		{"photo document group", StateAwaitingPhoto, grouped(KindOther, 2), StateAwaitingPhoto, []Reply{ReplyNotPhoto}, ErrInvalidInputKind},

		{"location begin", StateAwaitingLocation, Solitary(event(KindCommand)), StateAwaitingPhoto, []Reply{ReplyGreeting}, nil},
		{"location location", StateAwaitingLocation, Solitary(event(KindLocation)), StateAwaitingPhoto, []Reply{ReplyThanks, ReplyAnotherPhoto}, nil},
		{"location photo", StateAwaitingLocation, Solitary(event(KindPhoto)), StateAwaitingLocation, []Reply{ReplyNotLocation}, ErrInvalidInputKind},
		{"location photo group", StateAwaitingLocation, grouped(KindPhoto, 4), StateAwaitingLocation, []Reply{ReplyNotLocation}, ErrInvalidInputKind},
		{"location other", StateAwaitingLocation, Solitary(other), StateAwaitingLocation, []Reply{ReplyNotLocation}, ErrInvalidInputKind},
	}

	m := NewMachine()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := m.Step(session(tt.state), tt.input)
			assert.Equal(t, tt.next, res.Session.State)
			assert.Equal(t, tt.replies, replies(res.Directives))
			if tt.rejection == nil {
				assert.NoError(t, res.Rejection)
			} else {
				assert.ErrorIs(t, res.Rejection, tt.rejection)
			}
			if res.Session.State == StateIdle {
				assert.Nil(t, res.Session.PendingPhoto)
			}
		})
	}
}

func TestStepRejectionIsIdempotent(t *testing.T) {
	m := NewMachine()
	s := session(StateAwaitingLocation)
	in := Solitary(event(KindPhoto))

	first := m.Step(s, in)
	second := m.Step(first.Session, in)

	assert.Equal(t, s, first.Session)
	assert.Equal(t, s, second.Session)
	assert.Equal(t, first.Directives, second.Directives)
	assert.Equal(t, []Reply{ReplyNotLocation}, replies(second.Directives))
}

func TestScenarioFullCycle(t *testing.T) {
	m := NewMachine()
	s := NewSession(userID)

	res := m.Step(s, Solitary(event(KindCommand)))
	require.Equal(t, StateAwaitingPhoto, res.Session.State)
	require.Equal(t, []Directive{SendReply{ChatID: userID, Reply: ReplyGreeting, Name: "Ada Lovelace"}}, res.Directives)

	res = m.Step(res.Session, Solitary(event(KindPhoto)))
	require.Equal(t, StateAwaitingLocation, res.Session.State)
	require.NotNil(t, res.Session.PendingPhoto)
	assert.Equal(t, "file-1", res.Session.PendingPhoto.AssetRef)
	require.Len(t, res.Directives, 2)
	assert.Equal(t, ScheduleDownload{UserID: userID, AssetRef: "file-1"}, res.Directives[0])

	// The download collaborator fills in the local reference.
	s = res.Session
	s.PendingPhoto.LocalRef = "storage/photos/x.jpg"

	res = m.Step(s, Solitary(event(KindLocation)))
	require.Equal(t, StateAwaitingPhoto, res.Session.State)
	assert.Nil(t, res.Session.PendingPhoto)
	require.Len(t, res.Directives, 3)
	assert.Equal(t, ScheduleRecordWrite{Record: Record{
		UserID:        userID,
		DisplayName:   "Ada Lovelace",
		LocalPhotoRef: "storage/photos/x.jpg",
		Latitude:      55.75,
		Longitude:     37.61,
		Timestamp:     sentAt,
	}}, res.Directives[0])
}

func TestStepIdleLocationAsksToStart(t *testing.T) {
	res := NewMachine().Step(NewSession(userID), Solitary(event(KindLocation)))
	assert.Equal(t, StateIdle, res.Session.State)
	assert.Equal(t, []Reply{ReplyStartFirst}, replies(res.Directives))
}

func TestBeginCommandsAreNormalized(t *testing.T) {
	m := NewMachine("Go", "/begin")
	for _, c := range []string{"/go", "/GO", "/begin@photo_bot", " /begin "} {
		ev := event(KindCommand)
		ev.Command = c
		assert.True(t, m.IsBegin(ev), c)
	}
	ev := event(KindCommand)
	assert.False(t, m.IsBegin(ev), "/start is not configured")
	assert.False(t, m.IsBegin(event(KindOther)))
}

func TestReplyFallsBackToUserChat(t *testing.T) {
	ev := event(KindCommand)
	ev.ChatID = 0
	res := NewMachine().Step(NewSession(userID), Solitary(ev))
	require.Len(t, res.Directives, 1)
	assert.Equal(t, userID, res.Directives[0].(SendReply).ChatID)
}

func TestSessionAdvanceCopiesPhoto(t *testing.T) {
	photo := &PhotoRef{AssetRef: "a"}
	s := NewSession(1).Advance(StateAwaitingLocation, photo)
	photo.AssetRef = "mutated"
	assert.Equal(t, "a", s.PendingPhoto.AssetRef)

	s = s.Advance(StateAwaitingPhoto, photo)
	assert.Nil(t, s.PendingPhoto)
	assert.Equal(t, NewSession(1), s.Reset())
}

func TestErrorCodes(t *testing.T) {
	cause := errors.New("disk full")
	err := WriteFailure(cause)
	assert.ErrorIs(t, err, ErrWriteFailure)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "WRITE_FAILURE", Code(err))
	assert.Contains(t, err.Error(), "disk full")

	assert.Equal(t, "DOWNLOAD_FAILURE", Code(DownloadFailure(cause)))
	assert.Equal(t, "NO_ACTIVE_SESSION", Code(ErrNoActiveSession))
	assert.Equal(t, "", Code(cause))
}
