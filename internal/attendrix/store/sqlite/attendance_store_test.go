package sqlite_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/attendrix/server/internal/attendrix/store"
	"github.com/attendrix/server/internal/attendrix/store/sqlite"
	"github.com/attendrix/server/internal/db"
)

func seedUser(t *testing.T, conn *sql.DB, writer *db.Worker, userID string) {
	t.Helper()

	us := sqlite.NewUserStore(conn, writer)
	if err := us.SetFaceRegistered(context.Background(), userID, time.Now().UTC()); err != nil {
		t.Fatalf("seed user %s: %v", userID, err)
	}
}

func strPtr(s string) *string   { return &s }
func f64Ptr(f float64) *float64 { return &f }

func TestAttendanceStore_AppendAndReadBack(t *testing.T) {
	conn := openTestDB(t)
	writer := newTestWriter(t, conn)
	seedUser(t, conn, writer, "alice")
	as := sqlite.NewAttendanceStore(conn, writer)
	ctx := context.Background()

	rec := store.AttendanceRecord{
		ID:              "rec-1",
		UserID:          "alice",
		Type:            store.EventCheckIn,
		Status:          store.StatusPresent,
		Timestamp:       time.Date(2026, 3, 9, 8, 55, 0, 0, time.UTC),
		Location:        strPtr("hq-lobby"),
		Latitude:        f64Ptr(52.52),
		Longitude:       f64Ptr(13.405),
		FaceImagePath:   strPtr("/captures/alice.jpg"),
		ConfidenceScore: f64Ptr(0.93),
		Notes:           strPtr("first scan"),
	}
	if err := as.Append(ctx, "2026-03-09", rec); err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, err := as.RecordsForUserOnDate(ctx, "alice", "2026-03-09")
	if err != nil {
		t.Fatalf("RecordsForUserOnDate: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %d", len(got))
	}

	r := got[0]
	if r.ID != "rec-1" || r.UserID != "alice" {
		t.Errorf("identity fields wrong: %+v", r)
	}
	if r.Type != store.EventCheckIn || r.Status != store.StatusPresent {
		t.Errorf("type/status wrong: %q/%q", r.Type, r.Status)
	}
	if !r.Timestamp.Equal(rec.Timestamp) {
		t.Errorf("timestamp: want %v, got %v", rec.Timestamp, r.Timestamp)
	}
	if r.Location == nil || *r.Location != "hq-lobby" {
		t.Errorf("location: %v", r.Location)
	}
	if r.Latitude == nil || *r.Latitude != 52.52 || r.Longitude == nil || *r.Longitude != 13.405 {
		t.Errorf("lat/lon: %v/%v", r.Latitude, r.Longitude)
	}
	if r.FaceImagePath == nil || *r.FaceImagePath != "/captures/alice.jpg" {
		t.Errorf("face_image_path: %v", r.FaceImagePath)
	}
	if r.ConfidenceScore == nil || *r.ConfidenceScore != 0.93 {
		t.Errorf("confidence_score: %v", r.ConfidenceScore)
	}
	if r.Notes == nil || *r.Notes != "first scan" {
		t.Errorf("notes: %v", r.Notes)
	}
}

func TestAttendanceStore_NullableFieldsStayNil(t *testing.T) {
	conn := openTestDB(t)
	writer := newTestWriter(t, conn)
	seedUser(t, conn, writer, "bob")
	as := sqlite.NewAttendanceStore(conn, writer)
	ctx := context.Background()

	// A system absence: no type, no confidence, no location.
	rec := store.AttendanceRecord{
		ID:        "rec-absent",
		UserID:    "bob",
		Status:    store.StatusAbsent,
		Timestamp: time.Date(2026, 3, 9, 23, 59, 59, 0, time.UTC),
	}
	if err := as.Append(ctx, "2026-03-09", rec); err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, err := as.RecordsForUserOnDate(ctx, "bob", "2026-03-09")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %d", len(got))
	}
	r := got[0]
	if r.Type != "" {
		t.Errorf("expected empty type, got %q", r.Type)
	}
	if r.ConfidenceScore != nil || r.Location != nil || r.Latitude != nil ||
		r.Longitude != nil || r.FaceImagePath != nil || r.Notes != nil {
		t.Errorf("expected nil optionals, got %+v", r)
	}
}

func TestAttendanceStore_RecordsComeBackInTimestampOrder(t *testing.T) {
	conn := openTestDB(t)
	writer := newTestWriter(t, conn)
	seedUser(t, conn, writer, "alice")
	as := sqlite.NewAttendanceStore(conn, writer)
	ctx := context.Background()

	times := []time.Time{
		time.Date(2026, 3, 9, 8, 55, 0, 0, time.UTC),
		time.Date(2026, 3, 9, 17, 10, 0, 0, time.UTC),
	}
	typs := []store.EventType{store.EventCheckIn, store.EventCheckOut}
	for i, ts := range times {
		rec := store.AttendanceRecord{
			ID:        "rec-" + string(typs[i]),
			UserID:    "alice",
			Type:      typs[i],
			Status:    store.StatusPresent,
			Timestamp: ts,
		}
		if err := as.Append(ctx, "2026-03-09", rec); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}

	got, err := as.RecordsForUserOnDate(ctx, "alice", "2026-03-09")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0].Type != store.EventCheckIn || got[1].Type != store.EventCheckOut {
		t.Errorf("wrong order: %q then %q", got[0].Type, got[1].Type)
	}
	if !got[0].Timestamp.Before(got[1].Timestamp) {
		t.Error("timestamps not ascending")
	}
}

func TestAttendanceStore_AppendRejectsOutOfOrder(t *testing.T) {
	conn := openTestDB(t)
	writer := newTestWriter(t, conn)
	seedUser(t, conn, writer, "alice")
	as := sqlite.NewAttendanceStore(conn, writer)
	ctx := context.Background()

	first := store.AttendanceRecord{
		ID:        "rec-1",
		UserID:    "alice",
		Type:      store.EventCheckIn,
		Status:    store.StatusLate,
		Timestamp: time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC),
	}
	if err := as.Append(ctx, "2026-03-09", first); err != nil {
		t.Fatalf("Append first: %v", err)
	}

	// Earlier timestamp on the same day: structural violation.
	stale := store.AttendanceRecord{
		ID:        "rec-2",
		UserID:    "alice",
		Type:      store.EventCheckOut,
		Status:    store.StatusPresent,
		Timestamp: time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC),
	}
	if err := as.Append(ctx, "2026-03-09", stale); !errors.Is(err, store.ErrOutOfOrder) {
		t.Fatalf("expected ErrOutOfOrder, got %v", err)
	}

	// The failed append must not have written anything.
	got, err := as.RecordsForUserOnDate(ctx, "alice", "2026-03-09")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 record after rejected append, got %d", len(got))
	}
}

func TestAttendanceStore_AppendRejectsDuplicateType(t *testing.T) {
	conn := openTestDB(t)
	writer := newTestWriter(t, conn)
	seedUser(t, conn, writer, "alice")
	as := sqlite.NewAttendanceStore(conn, writer)
	ctx := context.Background()

	first := store.AttendanceRecord{
		ID:        "rec-1",
		UserID:    "alice",
		Type:      store.EventCheckIn,
		Status:    store.StatusPresent,
		Timestamp: time.Date(2026, 3, 9, 8, 55, 0, 0, time.UTC),
	}
	if err := as.Append(ctx, "2026-03-09", first); err != nil {
		t.Fatalf("Append first: %v", err)
	}

	second := store.AttendanceRecord{
		ID:        "rec-2",
		UserID:    "alice",
		Type:      store.EventCheckIn,
		Status:    store.StatusPresent,
		Timestamp: time.Date(2026, 3, 9, 9, 30, 0, 0, time.UTC),
	}
	if err := as.Append(ctx, "2026-03-09", second); !errors.Is(err, store.ErrDuplicateEvent) {
		t.Fatalf("expected ErrDuplicateEvent, got %v", err)
	}
}

func TestAttendanceStore_DaysArePartitioned(t *testing.T) {
	conn := openTestDB(t)
	writer := newTestWriter(t, conn)
	seedUser(t, conn, writer, "alice")
	as := sqlite.NewAttendanceStore(conn, writer)
	ctx := context.Background()

	day1 := store.AttendanceRecord{
		ID:        "rec-day1",
		UserID:    "alice",
		Type:      store.EventCheckIn,
		Status:    store.StatusPresent,
		Timestamp: time.Date(2026, 3, 9, 8, 55, 0, 0, time.UTC),
	}
	if err := as.Append(ctx, "2026-03-09", day1); err != nil {
		t.Fatalf("Append day1: %v", err)
	}

	// Next day: a fresh check-in with an "earlier" wall-clock hour is
	// fine, the ordering domain is per day.
	day2 := store.AttendanceRecord{
		ID:        "rec-day2",
		UserID:    "alice",
		Type:      store.EventCheckIn,
		Status:    store.StatusPresent,
		Timestamp: time.Date(2026, 3, 10, 8, 30, 0, 0, time.UTC),
	}
	if err := as.Append(ctx, "2026-03-10", day2); err != nil {
		t.Fatalf("Append day2: %v", err)
	}

	got, err := as.RecordsForUserOnDate(ctx, "alice", "2026-03-10")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 1 || got[0].ID != "rec-day2" {
		t.Fatalf("expected only day2's record, got %+v", got)
	}
}
