package match

import "sort"

// Decision classifies a bestMatch result.  NoMatch and Ambiguous are
// ordinary business outcomes the caller branches on, not failures.
type Decision string

const (
	Matched   Decision = "matched"
	NoMatch   Decision = "no_match"
	Ambiguous Decision = "ambiguous"
)

// Candidate is one enrolled user with their best similarity to the probe.
type Candidate struct {
	UserID string
	Score  float64
}

// Outcome is the result of BestMatch.  UserID and Score are set only when
// Decision is Matched; RunnerUp carries the second-best score (0 when
// there is no second candidate).
type Outcome struct {
	Decision Decision
	UserID   string
	Score    float64
	RunnerUp float64
}

// Policy holds the acceptance thresholds.  Values are configuration; see
// config.MatcherConfig.
type Policy struct {
	// AcceptThreshold is the minimum top score for any match.
	AcceptThreshold float64
	// AmbiguityMargin is the minimum gap between the top two candidates.
	// Two enrolled users scoring within the margin of each other (both
	// above the threshold) must not be silently conflated.
	AmbiguityMargin float64
}

// Matcher ranks enrolled users against probe embeddings.  It holds no
// mutable state of its own and is safe for any number of concurrent
// probes.
type Matcher struct {
	index  *Index
	policy Policy
}

func NewMatcher(index *Index, policy Policy) *Matcher {
	return &Matcher{index: index, policy: policy}
}

// Match returns every enrolled user ranked by descending similarity to
// the probe.  A user with several active embeddings is scored by their
// best one, so re-enrollments improve a user's score instead of making
// the user compete with themself in the ranking.
func (m *Matcher) Match(probe []float64) []Candidate {
	snap := m.index.Snapshot()

	best := make(map[string]float64)
	for _, e := range snap.entries {
		score := Cosine(probe, e.Embedding)
		if prev, ok := best[e.UserID]; !ok || score > prev {
			best[e.UserID] = score
		}
	}

	out := make([]Candidate, 0, len(best))
	for userID, score := range best {
		out = append(out, Candidate{UserID: userID, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].UserID < out[j].UserID // deterministic order for ties
	})
	return out
}

// BestMatch reduces the ranking to a single accept/reject outcome.
//
//   - top score below the accept threshold: NoMatch
//   - top two scores both above the threshold and within the ambiguity
//     margin of each other: Ambiguous
//   - otherwise: Matched with the top candidate
func (m *Matcher) BestMatch(probe []float64) Outcome {
	ranked := m.Match(probe)
	if len(ranked) == 0 || ranked[0].Score < m.policy.AcceptThreshold {
		return Outcome{Decision: NoMatch}
	}

	top := ranked[0]
	var runnerUp float64
	if len(ranked) > 1 {
		runnerUp = ranked[1].Score
	}

	if len(ranked) > 1 &&
		runnerUp >= m.policy.AcceptThreshold &&
		top.Score-runnerUp < m.policy.AmbiguityMargin {
		return Outcome{Decision: Ambiguous, Score: top.Score, RunnerUp: runnerUp}
	}

	return Outcome{Decision: Matched, UserID: top.UserID, Score: top.Score, RunnerUp: runnerUp}
}
