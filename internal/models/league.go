package models

// LeagueStatus is the lifecycle state of a league.
type LeagueStatus string

const (
	LeaguePending   LeagueStatus = "PENDING"
	LeagueActive    LeagueStatus = "ACTIVE"
	LeagueCompleted LeagueStatus = "COMPLETED"
)

// Tiebreaker names the ordered tiebreak criteria used for standings queries.
type Tiebreaker string

const (
	TiebreakPoints      Tiebreaker = "points"
	TiebreakWins        Tiebreaker = "wins"
	TiebreakHeadToHead  Tiebreaker = "head_to_head"
	TiebreakRandom      Tiebreaker = "random"
)

// DefaultTiebreakers is the order mandated by spec.md §3.
var DefaultTiebreakers = []Tiebreaker{TiebreakPoints, TiebreakWins, TiebreakHeadToHead, TiebreakRandom}

// Scoring captures point values and tiebreak order for a league.
type Scoring struct {
	Win            int          `json:"win"`
	Draw           int          `json:"draw"`
	Loss           int          `json:"loss"`
	TechnicalLoss  int          `json:"technical_loss"`
	Tiebreakers    []Tiebreaker `json:"tiebreakers"`
}

// DefaultScoring matches spec.md §3: win=3, draw=1, loss=0, technical_loss=0.
func DefaultScoring() Scoring {
	return Scoring{
		Win:           3,
		Draw:          1,
		Loss:          0,
		TechnicalLoss: 0,
		Tiebreakers:   DefaultTiebreakers,
	}
}

// Participants bounds the number of players a league will accept.
type Participants struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// League is the top-level tournament configuration and lifecycle record.
type League struct {
	LeagueID          string          `json:"league_id"`
	GameType          string          `json:"game_type"`
	Status            LeagueStatus    `json:"status"`
	Scoring           Scoring         `json:"scoring"`
	Participants      Participants    `json:"participants"`
	RegisteredPlayers []string        `json:"registered_players"`
	AssignedReferees  []string        `json:"assigned_referees"`
	CurrentRound      int             `json:"current_round"`
}

// HasPlayer reports whether playerID is already registered.
func (l *League) HasPlayer(playerID string) bool {
	for _, p := range l.RegisteredPlayers {
		if p == playerID {
			return true
		}
	}
	return false
}
