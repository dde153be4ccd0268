package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// UserStore is an in-memory face-registration registry for tests and dev.
type UserStore struct {
	mu         sync.RWMutex
	registered map[string]time.Time
}

// NewUserStore pre-registers the given user ids.
func NewUserStore(registeredUsers []string) *UserStore {
	reg := make(map[string]time.Time, len(registeredUsers))
	now := time.Now().UTC()
	for _, u := range registeredUsers {
		u = strings.TrimSpace(u)
		if u != "" {
			reg[u] = now
		}
	}
	return &UserStore{registered: reg}
}

func (s *UserStore) IsFaceRegistered(_ context.Context, userID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.registered[userID]
	return ok, nil
}

func (s *UserStore) SetFaceRegistered(_ context.Context, userID string, t time.Time) error {
	if t.IsZero() {
		t = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registered[userID] = t
	return nil
}

func (s *UserStore) ListRegistered(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.registered))
	for u := range s.registered {
		out = append(out, u)
	}
	sort.Strings(out)
	return out, nil
}
