// internal/api/referee_handlers.go
// Referee method handlers: START_MATCH kicks off the match conductor's
// six-step state machine in the background (spec.md §4.3, §4.4).

package api

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"league-core/internal/envelope"
	"league-core/internal/matchconductor"
	"league-core/internal/models"
)

// RegisterRefereeHandlers wires the methods a referee agent serves onto d.
func RegisterRefereeHandlers(d *Dispatcher, conductor *matchconductor.Conductor, logger *zap.Logger) {
	d.Handle(envelope.MethodStartMatch, handleStartMatch(conductor, logger))
}

type startMatchParams struct {
	MatchID         string            `json:"match_id"`
	LeagueID        string            `json:"league_id"`
	RoundID         int               `json:"round_id"`
	GameType        string            `json:"game_type"`
	Players         [2]string         `json:"players"`
	PlayerEndpoints map[string]string `json:"player_endpoints"`
}

// handleStartMatch acknowledges immediately and runs the match conductor in
// the background; the league manager learns the outcome via the referee's
// own outbound MATCH_RESULT_REPORT call, not via this method's response.
func handleStartMatch(conductor *matchconductor.Conductor, logger *zap.Logger) HandlerFunc {
	return func(ctx context.Context, env *envelope.Envelope, params json.RawMessage) (interface{}, *envelope.Error) {
		var p startMatchParams
		if rpcErr := envelope.DecodeParams(params, &p); rpcErr != nil {
			return nil, rpcErr
		}
		if p.MatchID == "" || len(p.Players) != 2 {
			return nil, envelope.NewError(envelope.ErrValidation, "match_id and two players are required")
		}

		players := [2]matchconductor.PlayerEndpoint{
			{AgentID: p.Players[0], Endpoint: p.PlayerEndpoints[p.Players[0]]},
			{AgentID: p.Players[1], Endpoint: p.PlayerEndpoints[p.Players[1]]},
		}

		match := &models.Match{
			MatchID:        p.MatchID,
			RoundID:        p.RoundID,
			LeagueID:       p.LeagueID,
			PlayerAID:      p.Players[0],
			PlayerBID:      p.Players[1],
			ConversationID: env.ConversationID,
			State:          models.MatchScheduled,
		}

		go func() {
			runCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()
			conductor.Conduct(runCtx, match, p.GameType, players)
		}()

		return map[string]interface{}{"accepted": true, "match_id": p.MatchID}, nil
	}
}
