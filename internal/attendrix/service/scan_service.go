package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/attendrix/server/internal/attendrix/match"
	"github.com/attendrix/server/internal/attendrix/store"
	"github.com/attendrix/server/internal/attendrix/types"
)

var (
	ErrEmptyEmbedding = errors.New("embedding is required")

	// ErrConcurrencyExceeded means the per-user day lock could not be
	// taken within the bounded wait, or an append race persisted through
	// the retry.  Retryable by the caller.
	ErrConcurrencyExceeded = errors.New("concurrent scan limit exceeded, retry")
)

// Scan outcomes.  All of these are legitimate business results; only the
// error return of Scan signals a system problem.
const (
	OutcomeRecorded      = "recorded"
	OutcomeNoMatch       = "no_match"
	OutcomeAmbiguous     = "ambiguous"
	OutcomeDuplicateScan = "duplicate_scan"
	OutcomeNotRegistered = "not_registered"
	OutcomeOutOfOrder    = "out_of_order"
)

// ScanService runs the full scan pipeline: probe → matcher → rule engine
// → ledger append.  Matching is lock-free; only the read-decide-append
// tail is serialized per (user, day).
type ScanService struct {
	matcher     *match.Matcher
	registry    *UserRegistry
	ledger      store.AttendanceStore
	engine      *RuleEngine
	locks       *KeyedLock
	loc         *time.Location
	lockTimeout time.Duration
	logger      *log.Logger
}

type ScanServiceConfig struct {
	Location    *time.Location
	LockTimeout time.Duration
}

func NewScanService(
	matcher *match.Matcher,
	registry *UserRegistry,
	ledger store.AttendanceStore,
	engine *RuleEngine,
	cfg ScanServiceConfig,
	logger *log.Logger,
) *ScanService {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	timeout := cfg.LockTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &ScanService{
		matcher:     matcher,
		registry:    registry,
		ledger:      ledger,
		engine:      engine,
		locks:       NewKeyedLock(),
		loc:         loc,
		lockTimeout: timeout,
		logger:      logger,
	}
}

// DayKey returns the calendar day (YYYY-MM-DD) of t in the attendance
// timezone.
func (s *ScanService) DayKey(t time.Time) string {
	return t.In(s.loc).Format("2006-01-02")
}

func (s *ScanService) Scan(ctx context.Context, req types.ScanRequest) (types.ScanResponse, error) {
	now := time.Now().UTC()

	if len(req.Embedding) == 0 {
		return types.ScanResponse{}, ErrEmptyEmbedding
	}

	at := now
	if t := parseOptionalTimestamp(req.CapturedAt); t != nil {
		at = *t
	}
	localAt := at.In(s.loc)

	// Matching is read-only against an immutable snapshot; it runs
	// outside the day lock on purpose.
	outcome := s.matcher.BestMatch(req.Embedding)
	switch outcome.Decision {
	case match.NoMatch:
		return s.rejected(OutcomeNoMatch, now), nil
	case match.Ambiguous:
		s.logger.Debug("ambiguous match rejected",
			"top", outcome.Score, "runner_up", outcome.RunnerUp)
		return s.rejected(OutcomeAmbiguous, now), nil
	}

	registered, err := s.registry.IsRegistered(ctx, outcome.UserID)
	if err != nil {
		return types.ScanResponse{}, err
	}
	if !registered {
		return s.rejected(OutcomeNotRegistered, now), nil
	}

	day := s.DayKey(at)

	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()
	release, err := s.locks.Acquire(lockCtx, outcome.UserID+"|"+day)
	if err != nil {
		return types.ScanResponse{}, fmt.Errorf("%w: %v", ErrConcurrencyExceeded, err)
	}
	defer release()

	resp, err := s.decideAndAppend(ctx, req, outcome, day, localAt, now)
	if err == nil || errors.Is(err, ErrConcurrencyExceeded) {
		return resp, err
	}

	// One retry with a fresh state read covers a lost race against an
	// out-of-process writer; after that the caller backs off.
	s.logger.Warn("scan append lost a race, retrying once",
		"user", outcome.UserID, "day", day, "err", err)
	resp, err = s.decideAndAppend(ctx, req, outcome, day, localAt, now)
	if err != nil {
		return types.ScanResponse{}, fmt.Errorf("%w: %v", ErrConcurrencyExceeded, err)
	}
	return resp, nil
}

// decideAndAppend is the serialized tail of the scan pipeline: read the
// day's records, run the rule engine, append the resulting record.
func (s *ScanService) decideAndAppend(
	ctx context.Context,
	req types.ScanRequest,
	outcome match.Outcome,
	day string,
	localAt time.Time,
	now time.Time,
) (types.ScanResponse, error) {
	records, err := s.ledger.RecordsForUserOnDate(ctx, outcome.UserID, day)
	if err != nil {
		return types.ScanResponse{}, err
	}

	eval := s.engine.Evaluate(records, localAt)
	switch eval.Outcome {
	case EvalDuplicateScan:
		return s.rejectedFor(OutcomeDuplicateScan, outcome, now), nil
	case EvalOutOfOrder:
		return s.rejectedFor(OutcomeOutOfOrder, outcome, now), nil
	}

	confidence := outcome.Score
	if confidence < 0 {
		confidence = 0
	}

	rec := store.AttendanceRecord{
		ID:              uuid.NewString(),
		UserID:          outcome.UserID,
		Type:            eval.Type,
		Status:          eval.Status,
		Timestamp:       localAt.UTC(),
		Location:        req.Location,
		Latitude:        req.Latitude,
		Longitude:       req.Longitude,
		ConfidenceScore: &confidence,
	}
	if p := strings.TrimSpace(req.FaceImagePath); p != "" {
		rec.FaceImagePath = &p
	}

	if err := s.ledger.Append(ctx, day, rec); err != nil {
		// Structural guards are reported as outcomes, not retried: the
		// ledger refused because the day already moved past this scan.
		if errors.Is(err, store.ErrOutOfOrder) {
			return s.rejectedFor(OutcomeOutOfOrder, outcome, now), nil
		}
		if errors.Is(err, store.ErrDuplicateEvent) {
			return s.rejectedFor(OutcomeDuplicateScan, outcome, now), nil
		}
		return types.ScanResponse{}, err
	}

	s.logger.Info("attendance recorded",
		"user", rec.UserID, "type", rec.Type, "status", rec.Status,
		"day", day, "confidence", confidence)

	payload := types.FromRecord(rec)
	return types.ScanResponse{
		OK:         true,
		Outcome:    OutcomeRecorded,
		UserID:     rec.UserID,
		Confidence: &confidence,
		Record:     &payload,
		ServerTime: now.Format(time.RFC3339Nano),
	}, nil
}

func (s *ScanService) rejected(outcome string, now time.Time) types.ScanResponse {
	return types.ScanResponse{
		OK:         false,
		Outcome:    outcome,
		ServerTime: now.Format(time.RFC3339Nano),
	}
}

func (s *ScanService) rejectedFor(outcome string, m match.Outcome, now time.Time) types.ScanResponse {
	resp := s.rejected(outcome, now)
	resp.UserID = m.UserID
	return resp
}

// parseOptionalTimestamp attempts to parse a device-reported timestamp.
// Returns nil if the string is empty or unparseable.
func parseOptionalTimestamp(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		u := t.UTC()
		return &u
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		u := t.UTC()
		return &u
	}
	return nil
}
