package models

// RoundStatus is the lifecycle state of a single round.
type RoundStatus string

const (
	RoundPending   RoundStatus = "PENDING"
	RoundActive    RoundStatus = "ACTIVE"
	RoundCompleted RoundStatus = "COMPLETED"
)

// Round is one set of matches in a round-robin schedule. Invariant: round
// i+1 does not start until round i is COMPLETED (spec.md §3).
type Round struct {
	RoundID  int         `json:"round_id"`
	LeagueID string      `json:"league_id"`
	Matches  []*MatchRef `json:"matches"`
	Status   RoundStatus `json:"status"`
}

// MatchRef is the schedule-time summary of a match within a round's JSON
// persistence (rounds.json per spec.md §6), distinct from the full Match
// record the referee maintains for an in-flight match.
type MatchRef struct {
	MatchID    string      `json:"match_id"`
	Players    [2]string   `json:"players"`
	RefereeID  string      `json:"referee_id"`
	Status     MatchStatus `json:"status"`
}

// AllComplete reports whether every match in the round has reached a
// terminal status (FINISHED or FAILED).
func (r *Round) AllComplete() bool {
	for _, m := range r.Matches {
		if m.Status != MatchFinished && m.Status != MatchFailed {
			return false
		}
	}
	return true
}

// RoundSchedule is the persisted form of rounds.json (spec.md §6).
type RoundSchedule struct {
	LeagueID string   `json:"league_id"`
	Rounds   []*Round `json:"rounds"`
}
