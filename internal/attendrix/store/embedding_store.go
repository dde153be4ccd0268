package store

import (
	"context"
	"time"
)

// Enrollment is one stored face embedding.  A user may have several (from
// re-enrollment under different conditions); only active ones participate
// in matching.  Embeddings are never hard-deleted, only deactivated.
type Enrollment struct {
	ID        int64
	UserID    string
	Embedding []float64
	CreatedAt time.Time
}

// EmbeddingStore persists enrolled face embeddings.
type EmbeddingStore interface {
	// LoadActive returns every active enrollment.  No dimension checking
	// happens here; the matcher's snapshot builder skips mismatched rows.
	LoadActive(ctx context.Context) ([]Enrollment, error)

	// Insert stores a new active embedding for the user.
	Insert(ctx context.Context, userID string, embedding []float64, at time.Time) error

	// DeactivateForUser marks all of the user's embeddings inactive and
	// reports how many rows changed.  Used on re-enrollment and revocation.
	DeactivateForUser(ctx context.Context, userID string) (int64, error)
}
