package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/attendrix/server/internal/attendrix/store"
)

type dayKey struct {
	userID string
	day    string
}

// AttendanceStore is an in-memory append-only ledger.  It is intended for
// tests and dev environments but enforces the same ordering and
// duplicate-event guards as the sqlite store.
type AttendanceStore struct {
	mu   sync.Mutex
	days map[dayKey][]store.AttendanceRecord
}

func NewAttendanceStore() *AttendanceStore {
	return &AttendanceStore{days: make(map[dayKey][]store.AttendanceRecord)}
}

func (s *AttendanceStore) RecordsForUserOnDate(_ context.Context, userID, day string) ([]store.AttendanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs := s.days[dayKey{userID, day}]
	out := make([]store.AttendanceRecord, len(recs))
	copy(out, recs)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (s *AttendanceStore) Append(_ context.Context, day string, rec store.AttendanceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := dayKey{rec.UserID, day}
	for _, existing := range s.days[key] {
		if !rec.Timestamp.After(existing.Timestamp) {
			return store.ErrOutOfOrder
		}
		if rec.Type != "" && existing.Type == rec.Type {
			return store.ErrDuplicateEvent
		}
	}
	s.days[key] = append(s.days[key], rec)
	return nil
}

// All returns every record ever appended.  Test-only helper.
func (s *AttendanceStore) All() []store.AttendanceRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []store.AttendanceRecord
	for _, recs := range s.days {
		out = append(out, recs...)
	}
	return out
}
