package service

import (
	"context"
	"strings"
	"time"

	"github.com/attendrix/server/internal/attendrix/store"
)

// UserRegistry answers whether a user's face registration allows scans.
// Profile attributes beyond the flag are someone else's problem.
type UserRegistry struct {
	store store.UserStore
}

func NewUserRegistry(st store.UserStore) *UserRegistry {
	return &UserRegistry{store: st}
}

func (r *UserRegistry) IsRegistered(ctx context.Context, userID string) (bool, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return false, nil
	}
	return r.store.IsFaceRegistered(ctx, userID)
}

func (r *UserRegistry) Register(ctx context.Context, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil
	}
	return r.store.SetFaceRegistered(ctx, userID, time.Now().UTC())
}

func (r *UserRegistry) ListRegistered(ctx context.Context) ([]string, error) {
	return r.store.ListRegistered(ctx)
}
