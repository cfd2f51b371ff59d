package sender

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/photogeo/core/logger"
	"github.com/m3rciful/photogeo/core/telegram/netutil"

	tele "gopkg.in/telebot.v4"
)

var (
	// ErrQueueClosed is returned when enqueue is attempted after dispatcher stop.
	ErrQueueClosed = errors.New("telegram sender: queue closed")
	// ErrQueueFull indicates the queue is saturated and the job was not accepted.
	ErrQueueFull = errors.New("telegram sender: queue full")

	tokenRe = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)
)

// Options controls the behaviour of the outbound dispatcher.
type Options struct {
	// QueueSize bounds each worker queue.
	QueueSize    int
	Workers      int
	MaxRetries   int
	RetryBackoff time.Duration
	// MaxDuration bounds the time spent retrying a single job.
	MaxDuration time.Duration
}

type job struct {
	ctx      context.Context
	key      int64
	action   string
	endpoint string
	run      func() error
}

// Dispatcher executes outbound Telegram calls asynchronously with retries.
// Jobs sharing a key (normally a chat id) always land on the same worker and
// run in the order they were enqueued.
type Dispatcher struct {
	opts   Options
	queues []chan job
	mu     sync.RWMutex
	closed bool
	once   sync.Once
	wg     sync.WaitGroup
	errs   atomic.Uint64
}

// NewDispatcher starts a dispatcher with sane defaults if options are zeroed.
func NewDispatcher(opts Options) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 2 * time.Second
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = 12 * time.Second
	}

	d := &Dispatcher{
		opts:   opts,
		queues: make([]chan job, opts.Workers),
	}

	d.wg.Add(opts.Workers)
	for i := range d.queues {
		d.queues[i] = make(chan job, opts.QueueSize)
		go d.worker(d.queues[i])
	}

	return d
}

// Enqueue schedules run on the worker owning key.
// The run closure must be idempotent if retries are desired.
func (d *Dispatcher) Enqueue(ctx context.Context, key int64, action, endpoint string, run func() error) error {
	if run == nil {
		return errors.New("telegram sender: nil run function")
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrQueueClosed
	}

	j := job{
		ctx:      ctx,
		key:      key,
		action:   action,
		endpoint: endpoint,
		run:      run,
	}

	select {
	case d.queues[d.slot(key)] <- j:
		return nil
	default:
		return ErrQueueFull
	}
}

func (d *Dispatcher) slot(key int64) int {
	u := uint64(key)
	return int(u % uint64(len(d.queues)))
}

// ErrorCount returns the number of failed jobs.
func (d *Dispatcher) ErrorCount() uint64 {
	return d.errs.Load()
}

// Close stops accepting jobs and waits for workers to drain their queues.
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		d.mu.Lock()
		d.closed = true
		for _, q := range d.queues {
			close(q)
		}
		d.mu.Unlock()
		d.wg.Wait()
	})
}

func (d *Dispatcher) worker(q <-chan job) {
	defer d.wg.Done()
	for j := range q {
		d.handleJob(j)
	}
}

// handleJob runs j until it succeeds, fails permanently, exhausts its
// retries or outlives MaxDuration.
func (d *Dispatcher) handleJob(j job) {
	ctx := j.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	// The caller's update may be finished by now; only the deadline applies.
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.opts.MaxDuration)
	defer cancel()

	start := time.Now()
	attempts := d.opts.MaxRetries + 1
	var err error
retry:
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = j.run(); err == nil {
			logger.Debug(ctx, "tg.sender", "send.ok", append(sendLogAttrs(j),
				slog.Int("attempts", attempt),
				slog.Duration("duration", logger.RoundMS(time.Since(start))),
			)...)
			return
		}
		if attempt == attempts || !netutil.ShouldRetry(err) {
			break retry
		}

		delay := max(d.opts.RetryBackoff*time.Duration(attempt), netutil.RetryAfter(err))
		logger.Debug(ctx, "tg.sender", "send.retry", append(sendLogAttrs(j),
			slog.Int("attempts", attempt),
			slog.Duration("backoff", delay),
			slog.String("err_code", classifyError(err)),
		)...)
		timer := time.NewTimer(delay)
		select {
		case <-runCtx.Done():
			timer.Stop()
			err = errors.Join(err, runCtx.Err())
			break retry
		case <-timer.C:
		}
	}

	d.errs.Add(1)
	logger.Error(ctx, "tg.sender", "send.fail", append(sendLogAttrs(j),
		slog.String("status", "fail"),
		slog.String("err", sanitizeErrorMessage(err)),
		slog.String("err_code", classifyError(err)),
		slog.Bool("retryable", netutil.ShouldRetry(err)),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)...)
}

// sendLogAttrs describes the job; update ids come from the job context.
func sendLogAttrs(j job) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("op", j.action),
		slog.Int64("key", j.key),
	}
	if j.endpoint != "" {
		attrs = append(attrs, slog.String("endpoint", j.endpoint))
	}
	return attrs
}

// classifyError maps a send failure to a short err_code.
func classifyError(err error) string {
	var (
		flood  tele.FloodError
		apiErr *tele.Error
		dnsErr *net.DNSError
		opErr  *net.OpError
		netErr net.Error
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &flood):
		return "flood"
	case errors.As(err, &apiErr) && apiErr.Code >= 500:
		return "http_5xx"
	case errors.As(err, &apiErr) && apiErr.Code >= 400:
		return "http_4xx"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.As(err, &dnsErr):
		return "dns"
	case errors.As(err, &netErr) && netErr.Timeout():
		return "timeout"
	case errors.As(err, &opErr) && opErr.Op == "dial":
		return "dial"
	}
	return "unknown"
}

// sanitizeErrorMessage hides bot tokens embedded in Bot API URLs.
func sanitizeErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	return tokenRe.ReplaceAllString(err.Error(), "bot<redacted>")
}
