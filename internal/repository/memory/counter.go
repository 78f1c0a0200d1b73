// Package memory provides an in-process counter store used when the
// distributed store is unavailable or disabled. Counts are scoped to the
// current process only: under a multi-instance deployment each instance
// enforces its own window, a deliberately weaker guarantee than the Redis
// store.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Hexmon/e-dossier-sub007/internal/core/port"
)

// CounterStore keeps sliding-window attempts in process memory.
type CounterStore struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
}

// NewCounterStore constructs an empty in-process counter store.
func NewCounterStore() *CounterStore {
	return &CounterStore{attempts: make(map[string][]time.Time)}
}

// RecordAttempt stores the provided timestamp for the identifier.
func (s *CounterStore) RecordAttempt(_ context.Context, identifier string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.attempts[identifier] = append(s.attempts[identifier], at)
	return nil
}

// CountAttempts returns how many attempts occurred within the window ending at reference time.
func (s *CounterStore) CountAttempts(_ context.Context, identifier string, window time.Duration, reference time.Time) (int, error) {
	if window <= 0 {
		return 0, errors.New("window must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	threshold := reference.Add(-window)
	count := 0
	for _, at := range s.attempts[identifier] {
		if at.After(threshold) && !at.After(reference) {
			count++
		}
	}

	return count, nil
}

// TrimWindow removes attempts older than the provided window relative to reference time.
func (s *CounterStore) TrimWindow(_ context.Context, identifier string, window time.Duration, reference time.Time) error {
	if window <= 0 {
		return errors.New("window must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	threshold := reference.Add(-window)
	kept := s.attempts[identifier][:0]
	for _, at := range s.attempts[identifier] {
		if at.After(threshold) {
			kept = append(kept, at)
		}
	}

	if len(kept) == 0 {
		delete(s.attempts, identifier)
		return nil
	}
	s.attempts[identifier] = kept

	return nil
}

// OldestAttempt returns the oldest attempt remaining inside the active window.
func (s *CounterStore) OldestAttempt(_ context.Context, identifier string, window time.Duration, reference time.Time) (time.Time, bool, error) {
	if window <= 0 {
		return time.Time{}, false, errors.New("window must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	threshold := reference.Add(-window)
	inWindow := make([]time.Time, 0, len(s.attempts[identifier]))
	for _, at := range s.attempts[identifier] {
		if at.After(threshold) && !at.After(reference) {
			inWindow = append(inWindow, at)
		}
	}

	if len(inWindow) == 0 {
		return time.Time{}, false, nil
	}

	sort.Slice(inWindow, func(i, j int) bool { return inWindow[i].Before(inWindow[j]) })
	return inWindow[0], true, nil
}

var _ port.CounterStore = (*CounterStore)(nil)
