// internal/models/match.go
// Match state machine and outcome model for the even/odd parity game.

package models

import "time"

// MatchStatus is the referee-owned state machine position of a match.
// SCHEDULED -> INVITED -> JOINED -> CHOOSING -> DECIDED -> REPORTED -> FINISHED.
// FAILED is reachable from any pre-FINISHED state; FINISHED/FAILED are terminal.
type MatchStatus string

const (
	MatchScheduled MatchStatus = "SCHEDULED"
	MatchInvited   MatchStatus = "INVITED"
	MatchJoined    MatchStatus = "JOINED"
	MatchChoosing  MatchStatus = "CHOOSING"
	MatchDecided   MatchStatus = "DECIDED"
	MatchReported  MatchStatus = "REPORTED"
	MatchFinished  MatchStatus = "FINISHED"
	MatchFailed    MatchStatus = "FAILED"
)

// Terminal reports whether a match status cannot transition further.
func (s MatchStatus) Terminal() bool {
	return s == MatchFinished || s == MatchFailed
}

// Parity is a player's declared choice in the even/odd game.
type Parity string

const (
	ParityEven Parity = "even"
	ParityOdd  Parity = "odd"
	ParityNone Parity = ""
)

// ValidParity reports whether p is a legal, non-empty choice.
func ValidParity(p string) bool {
	return p == string(ParityEven) || p == string(ParityOdd)
}

// PlayerStatus is the per-player outcome classification of a finished match.
type PlayerStatus string

const (
	StatusWin           PlayerStatus = "WIN"
	StatusLoss          PlayerStatus = "LOSS"
	StatusDraw          PlayerStatus = "DRAW"
	StatusTechnicalLoss PlayerStatus = "TECHNICAL_LOSS"
)

// Match is the full, referee-owned record of one two-player game instance.
// Invariant: once FINISHED, a Match is immutable, and the per-player
// Statuses must be consistent with a single Outcome.
type Match struct {
	MatchID        string                  `json:"match_id"`
	RoundID        int                     `json:"round_id"`
	LeagueID       string                  `json:"league_id"`
	PlayerAID      string                  `json:"player_a_id"`
	PlayerBID      string                  `json:"player_b_id"`
	RefereeID      string                  `json:"referee_id"`
	ConversationID string                  `json:"conversation_id"`
	State          MatchStatus             `json:"state"`
	Choices        map[string]string       `json:"choices,omitempty"`
	DrawnNumber    int                     `json:"drawn_number,omitempty"`
	Outcome        string                  `json:"outcome,omitempty"`
	Statuses       map[string]PlayerStatus `json:"statuses,omitempty"`
	ErrorCodes     map[string]string       `json:"error_codes,omitempty"`
	CreatedAt      time.Time               `json:"created_at"`
	UpdatedAt      time.Time               `json:"updated_at"`
}

// Opponent returns the other player's ID given one side of the match.
func (m *Match) Opponent(playerID string) string {
	if playerID == m.PlayerAID {
		return m.PlayerBID
	}
	return m.PlayerAID
}

// Players returns both player IDs of the match.
func (m *Match) Players() [2]string {
	return [2]string{m.PlayerAID, m.PlayerBID}
}

// PointsAwarded computes points for a player given the league scoring
// config and that player's recorded status.
func PointsAwarded(status PlayerStatus, scoring Scoring) int {
	switch status {
	case StatusWin:
		return scoring.Win
	case StatusDraw:
		return scoring.Draw
	case StatusLoss:
		return scoring.Loss
	case StatusTechnicalLoss:
		return scoring.TechnicalLoss
	default:
		return 0
	}
}

// MatchTranscript is the full persisted form of data/matches/<match_id>.json
// (spec.md §4.6/§6): the match record plus a Messages list for envelopes
// exchanged during it. The referee's conductor and the league manager save
// only the match record; Messages is left empty.
type MatchTranscript struct {
	Match    *Match              `json:"match"`
	Messages []TranscriptMessage `json:"messages"`
}

// TranscriptMessage records one envelope sent or received during a match,
// for audit/debugging purposes.
type TranscriptMessage struct {
	Direction   string    `json:"direction"` // "out" or "in"
	MessageType string    `json:"message_type"`
	Sender      string    `json:"sender"`
	Timestamp   time.Time `json:"timestamp"`
}
