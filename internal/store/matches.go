package store

import (
	"os"
	"path/filepath"
	"strings"

	"league-core/internal/models"
)

// ListMatchIDs returns the match_id of every persisted match transcript,
// used by the referee's startup reconciliation pass (SPEC_FULL.md §3.3) to
// find matches left in a non-terminal state by a crash.
func (s *Store) ListMatchIDs() ([]string, error) {
	dir := filepath.Join(s.root, "matches")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), ".json"))
	}
	return ids, nil
}

// LoadMatchTranscript reads data/matches/<match_id>.json.
func (s *Store) LoadMatchTranscript(matchID string) (*models.MatchTranscript, bool, error) {
	t := &models.MatchTranscript{}
	found, err := ReadJSON(s.matchPath(matchID), t)
	if err != nil {
		return nil, false, err
	}
	return t, found, nil
}

// SaveMatchTranscript atomically writes the match transcript as given
// (spec.md §4.6); it writes whatever Messages the caller supplies and adds
// none of its own.
func (s *Store) SaveMatchTranscript(t *models.MatchTranscript) error {
	return WriteJSON(s.matchPath(t.Match.MatchID), t)
}

// PlayerHistory is the persisted form of data/players/<player_id>/history.json:
// per-player match references and aggregate stats.
type PlayerHistory struct {
	PlayerID    string           `json:"player_id"`
	MatchIDs    []string         `json:"match_ids"`
	Wins        int              `json:"wins"`
	Draws       int              `json:"draws"`
	Losses      int              `json:"losses"`
	TechLosses  int              `json:"technical_losses"`
}

// LoadPlayerHistory reads data/players/<player_id>/history.json.
func (s *Store) LoadPlayerHistory(playerID string) (*PlayerHistory, error) {
	h := &PlayerHistory{PlayerID: playerID}
	_, err := ReadJSON(s.playerHistoryPath(playerID), h)
	if err != nil {
		return nil, err
	}
	return h, nil
}

// AppendPlayerHistory records a finished match's outcome for one player.
func (s *Store) AppendPlayerHistory(playerID, matchID string, status models.PlayerStatus) error {
	h, err := s.LoadPlayerHistory(playerID)
	if err != nil {
		return err
	}
	h.MatchIDs = append(h.MatchIDs, matchID)
	switch status {
	case models.StatusWin:
		h.Wins++
	case models.StatusDraw:
		h.Draws++
	case models.StatusLoss:
		h.Losses++
	case models.StatusTechnicalLoss:
		h.TechLosses++
	}
	return WriteJSON(s.playerHistoryPath(playerID), h)
}
