package models

// HeadToHead tallies a player's record against one specific opponent.
type HeadToHead struct {
	Wins   int `json:"w"`
	Draws  int `json:"d"`
	Losses int `json:"l"`
}

// StandingsRow is one player's aggregate record within a league. Invariant
// (spec.md §3): after N completed matches, Σ games_played = 2N across all
// players, and points = 3·wins + 1·draws for the default scoring config.
type StandingsRow struct {
	PlayerID         string                 `json:"player_id"`
	Points           int                    `json:"points"`
	Wins             int                    `json:"wins"`
	Draws            int                    `json:"draws"`
	Losses           int                    `json:"losses"`
	TechnicalLosses  int                    `json:"technical_losses"`
	GamesPlayed      int                    `json:"games_played"`
	HeadToHead       map[string]*HeadToHead `json:"head_to_head,omitempty"`
}

// Standings is the persisted snapshot for data/leagues/<league_id>/standings.json.
type Standings struct {
	LeagueID          string                   `json:"league_id"`
	Rows              map[string]*StandingsRow `json:"rows"`
	ProcessedMatchIDs map[string]bool          `json:"processed_match_ids"`
}

// NewStandings creates an empty standings snapshot for a league.
func NewStandings(leagueID string) *Standings {
	return &Standings{
		LeagueID:          leagueID,
		Rows:              make(map[string]*StandingsRow),
		ProcessedMatchIDs: make(map[string]bool),
	}
}

// RowFor returns the row for playerID, creating a zeroed one if absent.
func (s *Standings) RowFor(playerID string) *StandingsRow {
	if row, ok := s.Rows[playerID]; ok {
		return row
	}
	row := &StandingsRow{PlayerID: playerID, HeadToHead: make(map[string]*HeadToHead)}
	s.Rows[playerID] = row
	return row
}

// Processed reports whether matchID has already been applied to standings.
func (s *Standings) Processed(matchID string) bool {
	return s.ProcessedMatchIDs[matchID]
}

// ApplyResult mutates standings for one finished match's two players,
// per the league's scoring config. It is the caller's responsibility to
// check Processed(matchID) first — ApplyResult itself is not idempotent,
// matching the aggregator's "check, then apply, then mark processed" flow
// (spec.md §4.5).
func (s *Standings) ApplyResult(match *Match, scoring Scoring) {
	for _, playerID := range match.Players() {
		status := match.Statuses[playerID]
		row := s.RowFor(playerID)
		row.GamesPlayed++
		row.Points += PointsAwarded(status, scoring)

		switch status {
		case StatusWin:
			row.Wins++
		case StatusDraw:
			row.Draws++
		case StatusLoss:
			row.Losses++
		case StatusTechnicalLoss:
			row.TechnicalLosses++
		}

		opponent := match.Opponent(playerID)
		h2h, ok := row.HeadToHead[opponent]
		if !ok {
			h2h = &HeadToHead{}
			row.HeadToHead[opponent] = h2h
		}
		switch status {
		case StatusWin:
			h2h.Wins++
		case StatusDraw:
			h2h.Draws++
		case StatusLoss, StatusTechnicalLoss:
			h2h.Losses++
		}
	}
	s.ProcessedMatchIDs[match.MatchID] = true
}
