package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/attendrix/server/internal/attendrix/match"
	"github.com/attendrix/server/internal/attendrix/store"
	"github.com/attendrix/server/internal/attendrix/types"
)

var (
	ErrInvalidUserID = errors.New("user_id is required")

	// ErrDimensionMismatch rejects an enrollment whose vector length
	// differs from the store's established dimension.  At load time the
	// same condition merely skips a row; at enrollment time we can still
	// refuse the bad data outright.
	ErrDimensionMismatch = errors.New("embedding dimension does not match enrolled embeddings")
)

// EnrollmentService registers face embeddings and keeps the matching
// snapshot current.
type EnrollmentService struct {
	embeddings store.EmbeddingStore
	registry   *UserRegistry
	index      *match.Index
	logger     *log.Logger
}

func NewEnrollmentService(es store.EmbeddingStore, reg *UserRegistry, index *match.Index, logger *log.Logger) *EnrollmentService {
	return &EnrollmentService{embeddings: es, registry: reg, index: index, logger: logger}
}

func (s *EnrollmentService) Enroll(ctx context.Context, req types.EnrollRequest) (types.EnrollResponse, error) {
	now := time.Now().UTC()

	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return types.EnrollResponse{}, ErrInvalidUserID
	}
	if len(req.Embedding) == 0 {
		return types.EnrollResponse{}, ErrEmptyEmbedding
	}

	if dim := s.index.Snapshot().Dim(); dim > 0 && len(req.Embedding) != dim {
		return types.EnrollResponse{}, ErrDimensionMismatch
	}

	var deactivated int64
	if req.Replace {
		n, err := s.embeddings.DeactivateForUser(ctx, userID)
		if err != nil {
			return types.EnrollResponse{}, err
		}
		deactivated = n
	}

	// Registration first: the embedding row references the user row.
	if err := s.registry.Register(ctx, userID); err != nil {
		return types.EnrollResponse{}, err
	}
	if err := s.embeddings.Insert(ctx, userID, req.Embedding, now); err != nil {
		return types.EnrollResponse{}, err
	}

	// Make the new embedding matchable immediately instead of waiting
	// for the periodic refresh.
	if err := s.index.Refresh(ctx); err != nil {
		s.logger.Warn("snapshot refresh after enrollment failed", "user", userID, "err", err)
	}

	s.logger.Info("embedding enrolled",
		"user", userID, "dimension", len(req.Embedding), "deactivated", deactivated)

	return types.EnrollResponse{
		OK:          true,
		UserID:      userID,
		Deactivated: deactivated,
		Dimension:   len(req.Embedding),
		ServerTime:  now.Format(time.RFC3339Nano),
	}, nil
}
