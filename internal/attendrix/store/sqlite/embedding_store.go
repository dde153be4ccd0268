package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	dbpkg "github.com/attendrix/server/internal/db"

	"github.com/attendrix/server/internal/attendrix/store"
)

// EmbeddingStore persists enrolled embeddings.  Vectors are stored as a
// JSON-encoded ordered numeric sequence, matching existing data.
type EmbeddingStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewEmbeddingStore(db *sql.DB, writer *dbpkg.Worker) *EmbeddingStore {
	return &EmbeddingStore{db: db, writer: writer}
}

func (s *EmbeddingStore) LoadActive(ctx context.Context) ([]store.Enrollment, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, user_id, embedding, created_at_ms
FROM embeddings
WHERE active = 1
ORDER BY id ASC;
`)
	if err != nil {
		return nil, fmt.Errorf("LoadActive query: %w", err)
	}
	defer rows.Close()

	var out []store.Enrollment
	for rows.Next() {
		var e store.Enrollment
		var raw string
		var createdMs int64
		if err := rows.Scan(&e.ID, &e.UserID, &raw, &createdMs); err != nil {
			return nil, fmt.Errorf("LoadActive scan: %w", err)
		}
		if err := json.Unmarshal([]byte(raw), &e.Embedding); err != nil {
			return nil, fmt.Errorf("corrupt embedding %d for user %s: %w", e.ID, e.UserID, err)
		}
		e.CreatedAt = time.UnixMilli(createdMs).UTC()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("LoadActive rows: %w", err)
	}
	return out, nil
}

func (s *EmbeddingStore) Insert(ctx context.Context, userID string, embedding []float64, at time.Time) error {
	if at.IsZero() {
		at = time.Now().UTC()
	}
	raw, err := json.Marshal(embedding)
	if err != nil {
		return fmt.Errorf("Insert marshal embedding: %w", err)
	}

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO embeddings(user_id, embedding, active, created_at_ms)
VALUES (?, ?, 1, ?);
`, userID, string(raw), at.UTC().UnixMilli()); err != nil {
			return fmt.Errorf("Insert embedding: %w", err)
		}
		return nil
	})
}

func (s *EmbeddingStore) DeactivateForUser(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE embeddings SET active = 0
WHERE user_id = ? AND active = 1;
`, userID)
		if err != nil {
			return fmt.Errorf("DeactivateForUser update: %w", err)
		}
		n, err = res.RowsAffected()
		if err != nil {
			return fmt.Errorf("DeactivateForUser rows affected: %w", err)
		}
		return nil
	})
	return n, err
}
