package telegram

import (
	"log/slog"
	"net"
	"net/http"
	"regexp"
	"time"

	"github.com/m3rciful/photogeo/core/logger"
	"github.com/m3rciful/photogeo/core/telegram/netutil"
)

// HTTPClientOptions tunes the client used for Bot API calls and file downloads.
type HTTPClientOptions struct {
	// Timeout bounds a whole request including the body, so it must cover
	// the largest photo download plus the long poll timeout.
	Timeout time.Duration
	Retries int
	Backoff time.Duration
}

func (o HTTPClientOptions) withDefaults() HTTPClientOptions {
	if o.Timeout <= 0 {
		o.Timeout = 60 * time.Second
	}
	if o.Retries < 0 {
		o.Retries = 0
	}
	if o.Backoff <= 0 {
		o.Backoff = 2 * time.Second
	}
	return o
}

// BuildHTTPClient returns a client that retries transient dial and timeout
// failures on requests whose body can be replayed.
func BuildHTTPClient(opts HTTPClientOptions) *http.Client {
	opts = opts.withDefaults()
	base := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
	return &http.Client{
		Timeout:   opts.Timeout,
		Transport: &retryTransport{base: base, retries: opts.Retries, backoff: opts.Backoff},
	}
}

type retryTransport struct {
	base    http.RoundTripper
	retries int
	backoff time.Duration
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	for attempt := 1; attempt <= t.retries && err != nil && netutil.ShouldRetry(err); attempt++ {
		if req.Body != nil && req.GetBody == nil {
			break
		}
		delay := t.backoff * time.Duration(attempt)
		logger.Debug(req.Context(), "tg", "http.retry",
			slog.Int("attempt", attempt),
			slog.Duration("backoff", delay),
			slog.String("err", tokenlessURL(err)),
		)
		timer := time.NewTimer(delay)
		select {
		case <-req.Context().Done():
			timer.Stop()
			return nil, req.Context().Err()
		case <-timer.C:
		}

		next := req.Clone(req.Context())
		if req.GetBody != nil {
			body, bodyErr := req.GetBody()
			if bodyErr != nil {
				return nil, bodyErr
			}
			next.Body = body
		}
		resp, err = t.base.RoundTrip(next)
	}
	return resp, err
}

var botTokenRe = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)

// tokenlessURL strips the bot token that Bot API URLs carry in their path.
func tokenlessURL(err error) string {
	return botTokenRe.ReplaceAllString(err.Error(), "bot<redacted>")
}
