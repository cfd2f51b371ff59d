package netutil

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	tele "gopkg.in/telebot.v4"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestShouldRetry(t *testing.T) {
	dial := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"dial", dial, true},
		{"wrapped dial", &url.Error{Op: "Post", URL: "https://api.telegram.org", Err: dial}, true},
		{"timeout", fmt.Errorf("send: %w", timeoutErr{}), true},
		{"deadline", context.DeadlineExceeded, true},
		{"flood", tele.FloodError{RetryAfter: 3}, true},
		{"server error", &tele.Error{Code: 502, Description: "Bad Gateway"}, true},
		{"blocked", tele.ErrBlockedByUser, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ShouldRetry(tc.err))
		})
	}
}

func TestRetryAfter(t *testing.T) {
	assert.Equal(t, 3*time.Second, RetryAfter(tele.FloodError{RetryAfter: 3}))
	assert.Zero(t, RetryAfter(errors.New("boom")))
	assert.Zero(t, RetryAfter(nil))
}
