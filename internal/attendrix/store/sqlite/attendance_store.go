package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dbpkg "github.com/attendrix/server/internal/db"

	"github.com/attendrix/server/internal/attendrix/store"
)

// AttendanceStore persists the attendance ledger.  All writes go through
// the single-writer worker, so an Append is one serialized transaction:
// guards and insert commit together or not at all.
type AttendanceStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewAttendanceStore(db *sql.DB, writer *dbpkg.Worker) *AttendanceStore {
	return &AttendanceStore{db: db, writer: writer}
}

func (s *AttendanceStore) RecordsForUserOnDate(ctx context.Context, userID, day string) ([]store.AttendanceRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, user_id, type, status, timestamp, location, latitude, longitude,
       face_image_path, confidence_score, notes
FROM attendance_records
WHERE user_id = ? AND day = ?
ORDER BY ts_ms ASC;
`, userID, day)
	if err != nil {
		return nil, fmt.Errorf("RecordsForUserOnDate query: %w", err)
	}
	defer rows.Close()

	var out []store.AttendanceRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("RecordsForUserOnDate rows: %w", err)
	}
	return out, nil
}

func (s *AttendanceStore) Append(ctx context.Context, day string, rec store.AttendanceRecord) error {
	ts := rec.Timestamp.UTC()
	tsMs := ts.UnixMilli()

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		// Ordering guard: the new record must follow everything already
		// on the day, and scan events must not repeat their type.
		rows, err := tx.QueryContext(ctx, `
SELECT ts_ms, type FROM attendance_records
WHERE user_id = ? AND day = ?;
`, rec.UserID, day)
		if err != nil {
			return fmt.Errorf("Append guard query: %w", err)
		}
		for rows.Next() {
			var existingMs int64
			var existingType sql.NullString
			if err := rows.Scan(&existingMs, &existingType); err != nil {
				rows.Close()
				return fmt.Errorf("Append guard scan: %w", err)
			}
			if existingMs >= tsMs {
				rows.Close()
				return store.ErrOutOfOrder
			}
			if rec.Type != "" && existingType.Valid && existingType.String == string(rec.Type) {
				rows.Close()
				return store.ErrDuplicateEvent
			}
		}
		if err := rows.Close(); err != nil {
			return fmt.Errorf("Append guard rows: %w", err)
		}

		var typ any
		if rec.Type != "" {
			typ = string(rec.Type)
		}

		if _, err := tx.ExecContext(ctx, `
INSERT INTO attendance_records(
  id, user_id, type, status, timestamp, ts_ms, day,
  location, latitude, longitude, face_image_path, confidence_score, notes
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`,
			rec.ID, rec.UserID, typ, string(rec.Status),
			ts.Format(time.RFC3339), tsMs, day,
			rec.Location, rec.Latitude, rec.Longitude,
			rec.FaceImagePath, rec.ConfidenceScore, rec.Notes,
		); err != nil {
			return fmt.Errorf("Append insert: %w", err)
		}

		return nil
	})
}

func scanRecord(rows *sql.Rows) (store.AttendanceRecord, error) {
	var rec store.AttendanceRecord
	var typ, status, ts sql.NullString
	var location, facePath, notes sql.NullString
	var lat, lon, conf sql.NullFloat64

	if err := rows.Scan(
		&rec.ID, &rec.UserID, &typ, &status, &ts,
		&location, &lat, &lon, &facePath, &conf, &notes,
	); err != nil {
		return rec, fmt.Errorf("scan attendance record: %w", err)
	}

	if typ.Valid {
		rec.Type = store.EventType(typ.String)
	}
	rec.Status = store.Status(status.String)

	parsed, err := time.Parse(time.RFC3339, ts.String)
	if err != nil {
		return rec, fmt.Errorf("corrupt timestamp %q on record %s: %w", ts.String, rec.ID, err)
	}
	rec.Timestamp = parsed

	if location.Valid {
		rec.Location = &location.String
	}
	if lat.Valid {
		rec.Latitude = &lat.Float64
	}
	if lon.Valid {
		rec.Longitude = &lon.Float64
	}
	if facePath.Valid {
		rec.FaceImagePath = &facePath.String
	}
	if conf.Valid {
		rec.ConfidenceScore = &conf.Float64
	}
	if notes.Valid {
		rec.Notes = &notes.String
	}
	return rec, nil
}
