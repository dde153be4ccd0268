package match

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/attendrix/server/internal/attendrix/store"
	"github.com/attendrix/server/internal/logging"
)

// Snapshot is an immutable view of the active enrollments at one point in
// time.  Matching runs against a snapshot without locking; refreshes build
// a new one and swap it in.  Matching against a slightly stale snapshot is
// fine, matching against a mutating one would not be.
type Snapshot struct {
	dim     int
	entries []store.Enrollment
	skipped int
}

// Dim is the embedding dimension the snapshot established.  Zero when the
// snapshot is empty.
func (s *Snapshot) Dim() int { return s.dim }

// Len is the number of enrollments participating in matching.
func (s *Snapshot) Len() int { return len(s.entries) }

// Skipped is how many enrollments were dropped for dimension mismatch.
func (s *Snapshot) Skipped() int { return s.skipped }

// buildSnapshot establishes the dimension from the first enrollment and
// skips any row whose length differs.  A malformed row is a data problem
// for one enrollment, never a reason to fail the whole load.
func buildSnapshot(enrollments []store.Enrollment) *Snapshot {
	snap := &Snapshot{}
	for _, e := range enrollments {
		if len(e.Embedding) == 0 {
			snap.skipped++
			continue
		}
		if snap.dim == 0 {
			snap.dim = len(e.Embedding)
		}
		if len(e.Embedding) != snap.dim {
			logging.Warnf("embedding %d for user %s has dimension %d, want %d; skipping",
				e.ID, e.UserID, len(e.Embedding), snap.dim)
			snap.skipped++
			continue
		}
		snap.entries = append(snap.entries, e)
	}
	return snap
}

// Index owns the current snapshot and knows how to rebuild it from the
// embedding store.
type Index struct {
	store store.EmbeddingStore
	snap  atomic.Pointer[Snapshot]
}

func NewIndex(s store.EmbeddingStore) *Index {
	idx := &Index{store: s}
	idx.snap.Store(&Snapshot{})
	return idx
}

// Refresh reloads active enrollments and atomically swaps the snapshot.
// Concurrent matchers keep using the old snapshot until the swap lands.
func (x *Index) Refresh(ctx context.Context) error {
	enrollments, err := x.store.LoadActive(ctx)
	if err != nil {
		return fmt.Errorf("refresh embeddings: %w", err)
	}
	snap := buildSnapshot(enrollments)
	x.snap.Store(snap)
	logging.Debugf("embedding snapshot refreshed: %d active, %d skipped, dim=%d",
		snap.Len(), snap.Skipped(), snap.Dim())
	return nil
}

// Snapshot returns the current view.  Never nil.
func (x *Index) Snapshot() *Snapshot {
	return x.snap.Load()
}
