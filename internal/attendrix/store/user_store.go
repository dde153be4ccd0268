package store

import (
	"context"
	"time"
)

// UserStore exposes the one user attribute the core cares about: the
// face-registration flag.  Profile data lives elsewhere.
type UserStore interface {
	// IsFaceRegistered reports whether scans for this user are allowed.
	// Unknown users are simply not registered.
	IsFaceRegistered(ctx context.Context, userID string) (bool, error)

	// SetFaceRegistered flips the flag on (creating the user row if
	// needed) and stamps the registration time.
	SetFaceRegistered(ctx context.Context, userID string, t time.Time) error

	// ListRegistered returns the ids of all face-registered users.  The
	// absence sweep uses this to find users with no records for a day.
	ListRegistered(ctx context.Context) ([]string, error)
}
