// Package netutil classifies Telegram API failures for retry decisions.
package netutil

import (
	"errors"
	"net"
	"time"

	tele "gopkg.in/telebot.v4"
)

// ShouldRetry reports whether err is transient: network timeouts, failed
// dials, Bot API flood control (429) and Bot API server errors (5xx).
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}

	var flood tele.FloodError
	if errors.As(err, &flood) {
		return true
	}
	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code >= 500
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	return false
}

// RetryAfter returns the wait requested by Bot API flood control, or zero.
func RetryAfter(err error) time.Duration {
	var flood tele.FloodError
	if errors.As(err, &flood) && flood.RetryAfter > 0 {
		return time.Duration(flood.RetryAfter) * time.Second
	}
	return 0
}
