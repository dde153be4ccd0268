package store

import (
	"context"
	"errors"
	"time"
)

// EventType is the kind of attendance event a scan produced.  It is empty
// for system-generated absence records, which are neither check-in nor
// check-out.
type EventType string

const (
	EventCheckIn  EventType = "check-in"
	EventCheckOut EventType = "check-out"
)

// Status is the attendance status attached to a record.
type Status string

const (
	StatusPresent Status = "present"
	StatusLate    Status = "late"
	StatusAbsent  Status = "absent"
	StatusHalfDay Status = "half-day"
)

// ErrOutOfOrder is returned by Append when a record's timestamp is not
// after every existing record for the same user and day.  The ledger is
// append-only in timestamp order; callers report this, they do not retry.
var ErrOutOfOrder = errors.New("attendance: record timestamp out of order for day")

// ErrDuplicateEvent is returned by Append when the day already holds a
// record of the same event type for the user.  The rule engine normally
// prevents this; the store still enforces it so an out-of-process writer
// cannot produce two check-ins on one day.
var ErrDuplicateEvent = errors.New("attendance: duplicate event type for day")

// AttendanceRecord is one immutable ledger entry.  Field names in the
// persisted form (columns, JSON) match existing stored data and must not
// change.  Confidence is nil for system-generated absences.
type AttendanceRecord struct {
	ID              string
	UserID          string
	Type            EventType // empty for absences
	Status          Status
	Timestamp       time.Time
	Location        *string
	Latitude        *float64
	Longitude       *float64
	FaceImagePath   *string
	ConfidenceScore *float64
	Notes           *string
}

// AttendanceStore is the append-only per-user/per-day ledger.
//
// The day key is the calendar day (YYYY-MM-DD) in the deployment's
// attendance timezone; callers compute it, the store just partitions by it.
type AttendanceStore interface {
	// RecordsForUserOnDate returns the user's records for the day in
	// ascending timestamp order.
	RecordsForUserOnDate(ctx context.Context, userID, day string) ([]AttendanceRecord, error)

	// Append atomically adds a record under the (userID, day) key.  It
	// fails with ErrOutOfOrder or ErrDuplicateEvent rather than violate
	// the day's ordering invariants, and never writes partially.
	Append(ctx context.Context, day string, rec AttendanceRecord) error
}
