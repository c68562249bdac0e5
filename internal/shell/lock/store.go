// Package lock provides keyed mutual exclusion for orchestration work.
//
// A Store guarantees that at most one critical section runs per key at a
// time. Waiters on the same key are served in arrival order. Distinct keys
// never block each other.
package lock

import (
	"context"
	"log/slog"
	"sync"
)

// =============================================================================
// Store
// =============================================================================

// entry tracks ownership of one key.
type entry struct {
	inUse   bool
	waiters []chan struct{}
}

// remove drops ch from the wait queue. Returns false if ch is no longer
// queued, which means ownership was already handed to it.
func (e *entry) remove(ch chan struct{}) bool {
	for i, w := range e.waiters {
		if w == ch {
			e.waiters = append(e.waiters[:i], e.waiters[i+1:]...)
			return true
		}
	}
	return false
}

// Store serializes critical sections per key.
// A Store must be created with NewStore and shared by every caller that
// needs to coordinate on the same keys.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	logger  *slog.Logger
}

// NewStore creates an empty lock store.
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		entries: make(map[string]*entry),
		logger:  logger.With("component", "lock_store"),
	}
}

// WithLock runs fn while holding the lock for key.
//
// The lock is released when fn returns, including when it returns an error
// or panics (the panic is re-raised after release). If ctx is cancelled
// while waiting, fn is not run and ctx.Err() is returned.
func (s *Store) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	if err := s.acquire(ctx, key); err != nil {
		return err
	}
	defer s.release(key)

	return fn(ctx)
}

// Do runs fn under the lock for key and returns its result.
func Do[T any](ctx context.Context, s *Store, key string, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := s.WithLock(ctx, key, func(ctx context.Context) error {
		var err error
		result, err = fn(ctx)
		return err
	})
	return result, err
}

// acquire blocks until the caller owns key or ctx is done.
func (s *Store) acquire(ctx context.Context, key string) error {
	s.mu.Lock()
	e, ok := s.entries[key]
	if !ok {
		e = &entry{}
		s.entries[key] = e
	}
	if !e.inUse {
		e.inUse = true
		s.mu.Unlock()
		return nil
	}

	// Buffered so release never blocks on a waiter that gave up.
	ch := make(chan struct{}, 1)
	e.waiters = append(e.waiters, ch)
	s.mu.Unlock()

	s.logger.Debug("waiting for lock", "key", key)

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		s.mu.Lock()
		queued := e.remove(ch)
		s.mu.Unlock()
		if !queued {
			// Ownership arrived while we were giving up; pass it on.
			s.release(key)
		}
		return ctx.Err()
	}
}

// release hands the key to the next waiter, or forgets the key when nobody
// is waiting.
func (s *Store) release(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return
	}
	if len(e.waiters) > 0 {
		next := e.waiters[0]
		e.waiters = e.waiters[1:]
		next <- struct{}{}
		return
	}
	delete(s.entries, key)
}

// waiting returns the number of callers queued on key.
func (s *Store) waiting(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok {
		return len(e.waiters)
	}
	return 0
}

// held reports whether key is currently owned.
func (s *Store) held(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	return ok && e.inUse
}
