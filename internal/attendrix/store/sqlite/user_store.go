package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	dbpkg "github.com/attendrix/server/internal/db"
)

type UserStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewUserStore(db *sql.DB, writer *dbpkg.Worker) *UserStore {
	return &UserStore{db: db, writer: writer}
}

func (s *UserStore) IsFaceRegistered(ctx context.Context, userID string) (bool, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return false, nil
	}

	var registered int
	err := s.db.QueryRowContext(ctx, `
SELECT face_registered FROM users WHERE user_id = ?;
`, userID).Scan(&registered)

	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("IsFaceRegistered query: %w", err)
	}
	return registered == 1, nil
}

// SetFaceRegistered ensures the user row exists and flips the flag on.
func (s *UserStore) SetFaceRegistered(ctx context.Context, userID string, t time.Time) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil
	}
	if t.IsZero() {
		t = time.Now().UTC()
	}
	ms := t.UTC().UnixMilli()

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT OR IGNORE INTO users(user_id, face_registered, created_at_ms, updated_at_ms)
VALUES (?, 0, ?, ?);
`, userID, ms, ms); err != nil {
			return fmt.Errorf("SetFaceRegistered insert user: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
UPDATE users
SET face_registered  = 1,
    registered_at_ms = ?,
    updated_at_ms    = ?
WHERE user_id = ?;
`, ms, ms, userID); err != nil {
			return fmt.Errorf("SetFaceRegistered update user: %w", err)
		}

		return nil
	})
}

func (s *UserStore) ListRegistered(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT user_id FROM users WHERE face_registered = 1 ORDER BY user_id ASC;
`)
	if err != nil {
		return nil, fmt.Errorf("ListRegistered query: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("ListRegistered scan: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListRegistered rows: %w", err)
	}
	return out, nil
}
