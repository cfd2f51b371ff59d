package sender

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

func TestDispatcherKeepsPerKeyOrder(t *testing.T) {
	d := NewDispatcher(Options{Workers: 3, QueueSize: 128})

	var mu sync.Mutex
	got := map[int64][]int{}
	for i := 0; i < 50; i++ {
		for _, key := range []int64{1, 2, 7} {
			i, key := i, key
			require.NoError(t, d.Enqueue(context.Background(), key, "send.text", "sendMessage", func() error {
				mu.Lock()
				got[key] = append(got[key], i)
				mu.Unlock()
				return nil
			}))
		}
	}
	d.Close()

	for _, key := range []int64{1, 2, 7} {
		require.Len(t, got[key], 50)
		for i, v := range got[key] {
			assert.Equal(t, i, v, "key %d out of order", key)
		}
	}
}

func TestDispatcherRejectsAfterClose(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1})
	d.Close()
	err := d.Enqueue(context.Background(), 1, "send.text", "sendMessage", func() error { return nil })
	assert.ErrorIs(t, err, ErrQueueClosed)
	d.Close()
}

func TestDispatcherReportsFullQueue(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, QueueSize: 1})
	defer d.Close()

	block := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, d.Enqueue(context.Background(), 1, "a", "", func() error {
		close(started)
		<-block
		return nil
	}))
	<-started
	require.NoError(t, d.Enqueue(context.Background(), 1, "b", "", func() error { return nil }))
	err := d.Enqueue(context.Background(), 1, "c", "", func() error { return nil })
	assert.ErrorIs(t, err, ErrQueueFull)
	close(block)
}

func TestDispatcherRetriesTransientErrors(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 2, RetryBackoff: time.Millisecond})
	calls := 0
	require.NoError(t, d.Enqueue(context.Background(), 5, "send.text", "sendMessage", func() error {
		calls++
		if calls < 3 {
			return &net.OpError{Op: "dial", Err: errors.New("connection refused")}
		}
		return nil
	}))
	d.Close()
	assert.Equal(t, 3, calls)
	assert.Zero(t, d.ErrorCount())
}

func TestDispatcherCountsPermanentFailures(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 3, RetryBackoff: time.Millisecond})
	calls := 0
	require.NoError(t, d.Enqueue(context.Background(), 5, "send.text", "sendMessage", func() error {
		calls++
		return tele.ErrBlockedByUser
	}))
	d.Close()
	assert.Equal(t, 1, calls)
	assert.Equal(t, uint64(1), d.ErrorCount())
}

func TestSanitizeErrorMessageRedactsToken(t *testing.T) {
	err := errors.New(`Post "https://api.telegram.org/bot123456:AAbb-cc_DD/sendMessage": timeout`)
	assert.NotContains(t, sanitizeErrorMessage(err), "AAbb")
	assert.Contains(t, sanitizeErrorMessage(err), "bot<redacted>")
}

func TestClassifyError(t *testing.T) {
	assert.Equal(t, "timeout", classifyError(context.DeadlineExceeded))
	assert.Equal(t, "dial", classifyError(&net.OpError{Op: "dial", Err: errors.New("refused")}))
	assert.Equal(t, "http_4xx", classifyError(tele.ErrBlockedByUser))
	assert.Equal(t, "flood", classifyError(tele.FloodError{RetryAfter: 1}))
	assert.Equal(t, "http_5xx", classifyError(&tele.Error{Code: 502}))
	assert.Equal(t, "unknown", classifyError(errors.New("boom")))
}
