package websocket

import "league-core/internal/models"

// StandingsBroadcaster adapts a Hub to aggregator.Broadcaster, pushing the
// full standings snapshot to every spectator subscribed to that league
// whenever it changes (spec.md §4.5's LEAGUE_STANDINGS_UPDATE broadcast,
// mirrored here for spectators).
type StandingsBroadcaster struct {
	Hub *Hub
}

// BroadcastStandings implements aggregator.Broadcaster.
func (b StandingsBroadcaster) BroadcastStandings(leagueID string, snap *models.Standings) {
	b.Hub.Broadcast(leagueID, "standings_update", snap)
}
