package service

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/attendrix/server/internal/attendrix/store"
)

// absenceNotes marks system-generated records so corrections can tell
// them apart from scans.
const absenceNotes = "system-generated absence (no scans recorded)"

// AbsenceSweeper appends absent records for registered users with zero
// records on a completed day.  It runs as a background goroutine and is
// safe to stop via its context or the Stop method; the sweep can also be
// invoked directly for one day (the `sweep` CLI command does this).
type AbsenceSweeper struct {
	registry *UserRegistry
	ledger   store.AttendanceStore
	loc      *time.Location
	interval time.Duration
	logger   *log.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

// SweeperConfig holds the parameters for NewAbsenceSweeper.
type SweeperConfig struct {
	// Location is the attendance timezone; a day is "completed" once
	// local midnight passes.
	Location *time.Location

	// Interval is how often the loop checks whether a new day has
	// completed.  Defaults to 1 hour.
	Interval time.Duration
}

func NewAbsenceSweeper(reg *UserRegistry, ledger store.AttendanceStore, cfg SweeperConfig, logger *log.Logger) *AbsenceSweeper {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Hour
	}
	return &AbsenceSweeper{
		registry: reg,
		ledger:   ledger,
		loc:      loc,
		interval: interval,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start begins the background loop.  It sweeps the previous day
// immediately on startup, then re-checks on the configured interval.
func (s *AbsenceSweeper) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	go s.loop(ctx)

	s.logger.Info("absence sweeper started", "interval", s.interval)
}

// Stop signals the sweeper to exit and waits for it to finish.
func (s *AbsenceSweeper) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	<-s.done
}

func (s *AbsenceSweeper) loop(ctx context.Context) {
	defer close(s.done)

	var lastSwept string

	sweep := func() {
		day := s.previousDay(time.Now())
		if day == lastSwept {
			return
		}
		if _, err := s.SweepDay(ctx, day); err != nil {
			s.logger.Error("absence sweep failed", "day", day, "err", err)
			return
		}
		lastSwept = day
	}

	sweep()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep()
		}
	}
}

func (s *AbsenceSweeper) previousDay(now time.Time) string {
	return now.In(s.loc).AddDate(0, 0, -1).Format("2006-01-02")
}

// SweepDay appends an absent record for every registered user with no
// records on the given day (YYYY-MM-DD).  Per-user failures are logged
// and skipped so one bad row cannot block the rest of the sweep.  Returns
// how many absences were recorded.
func (s *AbsenceSweeper) SweepDay(ctx context.Context, day string) (int, error) {
	dayStart, err := time.ParseInLocation("2006-01-02", day, s.loc)
	if err != nil {
		return 0, fmt.Errorf("sweep day %q: %w", day, err)
	}
	// Stamp absences at the end of the swept day, keeping them inside
	// the day's ordering domain.
	dayEnd := dayStart.Add(24*time.Hour - time.Second)

	users, err := s.registry.ListRegistered(ctx)
	if err != nil {
		return 0, fmt.Errorf("sweep list users: %w", err)
	}

	swept := 0
	for _, userID := range users {
		records, err := s.ledger.RecordsForUserOnDate(ctx, userID, day)
		if err != nil {
			s.logger.Error("absence sweep read failed", "user", userID, "day", day, "err", err)
			continue
		}
		if len(records) > 0 {
			continue
		}

		notes := absenceNotes
		rec := store.AttendanceRecord{
			ID:        uuid.NewString(),
			UserID:    userID,
			Status:    store.StatusAbsent,
			Timestamp: dayEnd.UTC(),
			Notes:     &notes,
			// No Type, no ConfidenceScore: nothing was scanned.
		}
		if err := s.ledger.Append(ctx, day, rec); err != nil {
			s.logger.Error("absence sweep append failed", "user", userID, "day", day, "err", err)
			continue
		}
		swept++
	}

	if swept > 0 {
		s.logger.Info("absence sweep complete", "day", day, "absent", swept)
	}
	return swept, nil
}
