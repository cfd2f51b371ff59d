package state

import (
	"sync"
)

const shardCount = 64

type entry[S any] struct {
	mu      sync.Mutex
	session S
}

type shard[S any] struct {
	mu      sync.Mutex
	entries map[int64]*entry[S]
}

// Store keeps exactly one session per user for the lifetime of the process.
// Sessions are created lazily by the init function on first access.
type Store[S any] struct {
	init   func(userID int64) S
	shards [shardCount]*shard[S]
}

// NewStore constructs an in-memory Store. init builds the initial session for a user.
func NewStore[S any](init func(userID int64) S) *Store[S] {
	if init == nil {
		init = func(int64) S {
			var zero S
			return zero
		}
	}
	s := &Store[S]{init: init}
	for i := range s.shards {
		s.shards[i] = &shard[S]{entries: make(map[int64]*entry[S])}
	}
	return s
}

// Get returns a copy of the user's session, creating it if absent.
// It waits for an in-flight Update of the same user to finish.
func (s *Store[S]) Get(userID int64) S {
	e := s.entry(userID)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session
}

// Put replaces the user's session.
func (s *Store[S]) Put(userID int64, session S) {
	e := s.entry(userID)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.session = session
}

// Reset puts the user's session back to its initial value.
func (s *Store[S]) Reset(userID int64) {
	s.Put(userID, s.init(userID))
}

// Update runs fn with exclusive access to the user's session and stores the
// returned session. Updates of the same user never overlap; updates of
// different users run concurrently. The session is stored even when fn
// returns an error, so fn decides what to keep on failure.
func (s *Store[S]) Update(userID int64, fn func(S) (S, error)) error {
	e := s.entry(userID)
	e.mu.Lock()
	defer e.mu.Unlock()
	next, err := fn(e.session)
	e.session = next
	return err
}

// Len returns the number of sessions created so far.
func (s *Store[S]) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		n += len(sh.entries)
		sh.mu.Unlock()
	}
	return n
}

func (s *Store[S]) entry(userID int64) *entry[S] {
	sh := s.shards[uint64(userID)%shardCount]
	sh.mu.Lock()
	defer sh.mu.Unlock()
	e, ok := sh.entries[userID]
	if !ok {
		e = &entry[S]{session: s.init(userID)}
		sh.entries[userID] = e
	}
	return e
}
