// Package repository publishes immutable state snapshots to lock-free readers.
package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Snapshot is one published, immutable value.
type Snapshot[T any] struct {
	Seq         uint64
	Version     string
	PublishedAt time.Time
	Value       *T
}

// SnapshotStore publishes values through an atomic pointer. Readers never
// lock; writers are serialized so concurrent updates cannot lose each other.
type SnapshotStore[T any] struct {
	mu       sync.Mutex
	current  atomic.Pointer[Snapshot[T]]
	seq      uint64
	versions func() string
	now      func() time.Time
}

// NewSnapshotStore creates an empty store.
func NewSnapshotStore[T any](opts ...Option) *SnapshotStore[T] {
	cfg := options{versions: uuid.NewString, now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &SnapshotStore[T]{versions: cfg.versions, now: cfg.now}
}

// Load returns the current snapshot, or nil before the first publish.
func (s *SnapshotStore[T]) Load() *Snapshot[T] {
	return s.current.Load()
}

// Update derives and publishes a new value from the current one.
// When fn fails nothing is published and the current snapshot stays.
func (s *SnapshotStore[T]) Update(ctx context.Context, fn func(cur *T) (*T, error)) (*Snapshot[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var cur *T
	if snap := s.current.Load(); snap != nil {
		cur = snap.Value
	}
	next, err := fn(cur)
	if err != nil {
		return nil, err
	}
	if next == nil {
		return nil, ErrNilValue
	}

	s.seq++
	snap := &Snapshot[T]{
		Seq:         s.seq,
		Version:     s.versions(),
		PublishedAt: s.now().UTC(),
		Value:       next,
	}
	s.current.Store(snap)
	return snap, nil
}

// Value returns the current value, or ErrEmpty before the first publish.
func (s *SnapshotStore[T]) Value() (*T, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, ErrEmpty
	}
	return snap.Value, nil
}
