package album

import (
	"context"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/photogeo/core/logger"
)

const (
	// DefaultLatency is the debounce window used when none is configured.
	DefaultLatency = 10 * time.Millisecond

	shardCount = 32
)

// Outcome tells the caller what to do with a submitted item.
type Outcome int

const (
	// Deliver means the item must be processed downstream together with Bundle.
	Deliver Outcome = iota
	// Suppressed means the item was absorbed into an open group and must not be forwarded.
	Suppressed
)

// String implements fmt.Stringer for log output.
func (o Outcome) String() string {
	switch o {
	case Deliver:
		return "deliver"
	case Suppressed:
		return "suppressed"
	}
	return "unknown"
}

// Action is the result of Submit. It is passed by value through the pipeline.
type Action[T any] struct {
	Outcome Outcome
	GroupID string
	// Item is the representative item; zero for suppressed followers.
	Item T
	// Bundle holds every member collected before the window closed, in arrival order.
	Bundle []T

	release func()
}

// Delivered reports whether the action carries an item for downstream processing.
func (a Action[T]) Delivered() bool {
	return a.Outcome == Deliver
}

// Finalized reports whether the action closes a media group.
func (a Action[T]) Finalized() bool {
	return a.Outcome == Deliver && a.GroupID != ""
}

// Release tears the group down once downstream processing of the representative
// item has finished. Solitary and suppressed actions release nothing.
func (a Action[T]) Release() {
	if a.release != nil {
		a.release()
	}
}

type group[T any] struct {
	members []T
	opened  time.Time
}

type shard[T any] struct {
	mu     sync.Mutex
	groups map[string]*group[T]
}

// Engine holds the aggregation table. Entries are sharded by group id so that
// unrelated groups never contend on the same lock.
type Engine[T any] struct {
	latency time.Duration
	shards  [shardCount]*shard[T]
	sleep   func(ctx context.Context, d time.Duration)
}

// Options configures an Engine.
type Options struct {
	// Latency is the debounce window measured from the first member's arrival.
	Latency time.Duration
}

// New constructs an Engine. A non-positive latency falls back to DefaultLatency.
func New[T any](opts Options) *Engine[T] {
	if opts.Latency <= 0 {
		opts.Latency = DefaultLatency
	}
	e := &Engine[T]{
		latency: opts.Latency,
		sleep:   wait,
	}
	for i := range e.shards {
		e.shards[i] = &shard[T]{groups: make(map[string]*group[T])}
	}
	return e
}

// Latency returns the configured debounce window.
func (e *Engine[T]) Latency() time.Duration {
	return e.latency
}

// Submit routes an item through the aggregation table.
//
// Items without a group id are delivered immediately with a bundle of one.
// The first item of a group blocks the calling goroutine for the debounce
// window and is then delivered with every member collected so far. Items that
// find their group already open are appended and reported as Suppressed.
func (e *Engine[T]) Submit(ctx context.Context, groupID string, item T) Action[T] {
	if groupID == "" {
		return Action[T]{Outcome: Deliver, Item: item, Bundle: []T{item}}
	}

	sh := e.shardFor(groupID)
	sh.mu.Lock()
	if g, ok := sh.groups[groupID]; ok {
		g.members = append(g.members, item)
		size := len(g.members)
		sh.mu.Unlock()
		logger.Debug(ctx, "album", "album.suppressed",
			slog.String("group_id", groupID),
			slog.Int("bundle_size", size),
		)
		return Action[T]{Outcome: Suppressed, GroupID: groupID}
	}
	g := &group[T]{members: []T{item}, opened: time.Now()}
	sh.groups[groupID] = g
	sh.mu.Unlock()

	logger.Debug(ctx, "album", "album.open", slog.String("group_id", groupID))
	e.sleep(ctx, e.latency)

	sh.mu.Lock()
	bundle := append([]T(nil), g.members...)
	sh.mu.Unlock()

	logger.Debug(ctx, "album", "album.finalize",
		slog.String("group_id", groupID),
		slog.Int("bundle_size", len(bundle)),
		slog.Duration("window", logger.RoundMS(time.Since(g.opened))),
	)

	var once sync.Once
	return Action[T]{
		Outcome: Deliver,
		GroupID: groupID,
		Item:    item,
		Bundle:  bundle,
		release: func() {
			once.Do(func() { e.teardown(sh, groupID, g) })
		},
	}
}

// Open reports whether a group is currently held in the aggregation table.
func (e *Engine[T]) Open(groupID string) bool {
	sh := e.shardFor(groupID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	_, ok := sh.groups[groupID]
	return ok
}

// Pending returns the number of groups currently held in the aggregation table.
func (e *Engine[T]) Pending() int {
	n := 0
	for _, sh := range e.shards {
		sh.mu.Lock()
		n += len(sh.groups)
		sh.mu.Unlock()
	}
	return n
}

func (e *Engine[T]) teardown(sh *shard[T], groupID string, g *group[T]) {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	// Only the group this action opened may be removed.
	if cur, ok := sh.groups[groupID]; ok && cur == g {
		delete(sh.groups, groupID)
	}
}

func (e *Engine[T]) shardFor(groupID string) *shard[T] {
	h := fnv.New32a()
	_, _ = h.Write([]byte(groupID))
	return e.shards[h.Sum32()%shardCount]
}

// wait sleeps for d. Context cancellation cuts the window short so shutdown is
// not held up; the group is still finalized with whatever has arrived.
func wait(ctx context.Context, d time.Duration) {
	if ctx == nil {
		time.Sleep(d)
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
