package service

import (
	"time"

	"github.com/attendrix/server/internal/attendrix/store"
	"github.com/attendrix/server/internal/config"
)

// ShiftPolicy holds the shift-time thresholds the rule engine applies.
// All values come from configuration.
type ShiftPolicy struct {
	ShiftStart    config.TimeOfDay
	GracePeriod   time.Duration
	HalfDayCutoff config.TimeOfDay
	// MinSeparation is the minimum gap between a check-in and the
	// check-out scan.  Re-matches inside it are the same physical scan.
	MinSeparation time.Duration
	// MinFullDay is the worked duration below which a check-out is
	// downgraded to half-day.
	MinFullDay time.Duration
}

// EvalOutcome classifies what a scan at a given instant means for the day.
type EvalOutcome int

const (
	EvalCheckIn EvalOutcome = iota
	EvalCheckOut
	EvalDuplicateScan
	EvalOutOfOrder
)

// Evaluation is the rule engine's verdict.  Type and Status are set only
// for EvalCheckIn and EvalCheckOut.
type Evaluation struct {
	Outcome EvalOutcome
	Type    store.EventType
	Status  store.Status
}

// RuleEngine decides check-in/check-out and status for a matched scan.
//
// The engine is stateless: the day's state (NotCheckedIn, CheckedIn,
// CheckedOut) is recomputed from the ledger's ordered records on every
// call, so there is no long-lived per-user state to get out of sync.
type RuleEngine struct {
	policy ShiftPolicy
}

func NewRuleEngine(policy ShiftPolicy) *RuleEngine {
	return &RuleEngine{policy: policy}
}

// Evaluate applies the day state machine to a scan at instant `at`, which
// must already be in the attendance timezone (the time-of-day thresholds
// are local). records are the user's records for at's calendar day, in
// ascending timestamp order.
func (e *RuleEngine) Evaluate(records []store.AttendanceRecord, at time.Time) Evaluation {
	var checkIn, checkOut *store.AttendanceRecord
	for i := range records {
		// System absences carry no event type and do not advance the
		// scan state machine.
		switch records[i].Type {
		case store.EventCheckIn:
			checkIn = &records[i]
		case store.EventCheckOut:
			checkOut = &records[i]
		}
	}

	if n := len(records); n > 0 && !at.After(records[n-1].Timestamp) {
		return Evaluation{Outcome: EvalOutOfOrder}
	}

	switch {
	case checkOut != nil:
		// Terminal for the day.
		return Evaluation{Outcome: EvalDuplicateScan}

	case checkIn != nil:
		if at.Sub(checkIn.Timestamp) < e.policy.MinSeparation {
			return Evaluation{Outcome: EvalDuplicateScan}
		}
		return Evaluation{
			Outcome: EvalCheckOut,
			Type:    store.EventCheckOut,
			Status:  e.checkOutStatus(checkIn, at),
		}

	default:
		return Evaluation{
			Outcome: EvalCheckIn,
			Type:    store.EventCheckIn,
			Status:  e.checkInStatus(at),
		}
	}
}

func (e *RuleEngine) checkInStatus(at time.Time) store.Status {
	graceEnd := e.policy.ShiftStart.At(at).Add(e.policy.GracePeriod)
	cutoff := e.policy.HalfDayCutoff.At(at)

	switch {
	case !at.After(graceEnd):
		return store.StatusPresent
	case !at.After(cutoff):
		return store.StatusLate
	default:
		return store.StatusHalfDay
	}
}

// checkOutStatus inherits the check-in status unless the worked duration
// falls short of a full day.
func (e *RuleEngine) checkOutStatus(checkIn *store.AttendanceRecord, at time.Time) store.Status {
	if at.Sub(checkIn.Timestamp) < e.policy.MinFullDay {
		return store.StatusHalfDay
	}
	return checkIn.Status
}
