package store

import "league-core/internal/models"

// LoadRounds reads data/leagues/<league_id>/rounds.json.
func (s *Store) LoadRounds(leagueID string) (*models.RoundSchedule, error) {
	sched := &models.RoundSchedule{LeagueID: leagueID}
	_, err := ReadJSON(s.roundsPath(leagueID), sched)
	if err != nil {
		return nil, err
	}
	return sched, nil
}

// SaveRounds atomically writes the round schedule.
func (s *Store) SaveRounds(sched *models.RoundSchedule) error {
	return WriteJSON(s.roundsPath(sched.LeagueID), sched)
}
