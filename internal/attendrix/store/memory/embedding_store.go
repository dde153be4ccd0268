package memory

import (
	"context"
	"sync"
	"time"

	"github.com/attendrix/server/internal/attendrix/store"
)

// EmbeddingStore is an in-memory embedding registry for tests and dev.
type EmbeddingStore struct {
	mu     sync.RWMutex
	nextID int64
	rows   []row
}

type row struct {
	enrollment store.Enrollment
	active     bool
}

func NewEmbeddingStore() *EmbeddingStore {
	return &EmbeddingStore{}
}

func (s *EmbeddingStore) LoadActive(_ context.Context) ([]store.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []store.Enrollment
	for _, r := range s.rows {
		if r.active {
			out = append(out, r.enrollment)
		}
	}
	return out, nil
}

func (s *EmbeddingStore) Insert(_ context.Context, userID string, embedding []float64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	emb := make([]float64, len(embedding))
	copy(emb, embedding)
	s.rows = append(s.rows, row{
		enrollment: store.Enrollment{
			ID:        s.nextID,
			UserID:    userID,
			Embedding: emb,
			CreatedAt: at,
		},
		active: true,
	})
	return nil
}

func (s *EmbeddingStore) DeactivateForUser(_ context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for i := range s.rows {
		if s.rows[i].active && s.rows[i].enrollment.UserID == userID {
			s.rows[i].active = false
			n++
		}
	}
	return n, nil
}
