package store

import "league-core/internal/models"

// LoadStandings reads data/leagues/<league_id>/standings.json, returning a
// fresh empty snapshot if the file doesn't exist yet.
func (s *Store) LoadStandings(leagueID string) (*models.Standings, error) {
	snap := models.NewStandings(leagueID)
	_, err := ReadJSON(s.standingsPath(leagueID), snap)
	if err != nil {
		return nil, err
	}
	if snap.Rows == nil {
		snap.Rows = make(map[string]*models.StandingsRow)
	}
	if snap.ProcessedMatchIDs == nil {
		snap.ProcessedMatchIDs = make(map[string]bool)
	}
	return snap, nil
}

// SaveStandings atomically writes the standings snapshot.
func (s *Store) SaveStandings(snap *models.Standings) error {
	return WriteJSON(s.standingsPath(snap.LeagueID), snap)
}
