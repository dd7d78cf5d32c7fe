// Package store holds the latest expanded occurrences in memory.
package store

import (
	"sync"
	"time"

	"calview/internal/model"
)

// Snapshot is an immutable view of the store at one point in time.
type Snapshot struct {
	Occurrences []model.Occurrence
	Truncated   []string
	RefreshedAt time.Time
	// SourceErrors counts sources that failed in the last refresh.
	SourceErrors int
}

// Store is safe for concurrent use. Readers get the slice that was
// handed to Replace and must not modify it.
type Store struct {
	mu   sync.RWMutex
	snap Snapshot
}

func New() *Store {
	return &Store{}
}

// Replace swaps in a new snapshot.
func (s *Store) Replace(snap Snapshot) {
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Ready reports whether at least one refresh has completed.
func (s *Store) Ready() bool {
	return !s.Snapshot().RefreshedAt.IsZero()
}
