// internal/api/player_handlers.go
// Player method handlers: acknowledge invitations, answer parity calls via
// a pluggable Strategy, and record GAME_OVER notifications (spec.md §4.4).

package api

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"league-core/internal/envelope"
	"league-core/internal/models"
	"league-core/internal/playerstrategy"
)

// RegisterPlayerHandlers wires the methods a player agent serves onto d.
func RegisterPlayerHandlers(d *Dispatcher, strategy playerstrategy.Strategy, logger *zap.Logger) {
	d.Handle(envelope.MethodGameInvitation, handleGameInvitation(logger))
	d.Handle(envelope.MethodChooseParityCall, handleChooseParityCall(strategy, logger))
	d.Handle(envelope.MethodGameOver, handleGameOver(logger))
}

type gameInvitationParams struct {
	MatchID  string `json:"match_id"`
	LeagueID string `json:"league_id"`
	Opponent string `json:"opponent"`
}

// handleGameInvitation is the GAME_JOIN_ACK response path: acknowledging
// the call at all is the join (spec.md §4.4 step 2).
func handleGameInvitation(logger *zap.Logger) HandlerFunc {
	return func(ctx context.Context, env *envelope.Envelope, params json.RawMessage) (interface{}, *envelope.Error) {
		var p gameInvitationParams
		if rpcErr := envelope.DecodeParams(params, &p); rpcErr != nil {
			return nil, rpcErr
		}
		logger.Info("joining match", zap.String("match_id", p.MatchID), zap.String("opponent", p.Opponent))
		return map[string]interface{}{"joined": true, "match_id": p.MatchID}, nil
	}
}

type chooseParityParams struct {
	MatchID string `json:"match_id"`
}

func handleChooseParityCall(strategy playerstrategy.Strategy, logger *zap.Logger) HandlerFunc {
	return func(ctx context.Context, env *envelope.Envelope, params json.RawMessage) (interface{}, *envelope.Error) {
		var p chooseParityParams
		if rpcErr := envelope.DecodeParams(params, &p); rpcErr != nil {
			return nil, rpcErr
		}

		choice, err := strategy(ctx, p.MatchID, "")
		if err != nil || !models.ValidParity(string(choice)) {
			return nil, envelope.NewError(envelope.ErrInvalidMove, "failed to produce a valid parity choice")
		}

		return map[string]interface{}{"choice": string(choice)}, nil
	}
}

type gameOverParams struct {
	MatchID     string             `json:"match_id"`
	Outcome     string             `json:"outcome"`
	YourStatus  models.PlayerStatus `json:"your_status"`
	DrawnNumber int                `json:"drawn_number"`
}

func handleGameOver(logger *zap.Logger) HandlerFunc {
	return func(ctx context.Context, env *envelope.Envelope, params json.RawMessage) (interface{}, *envelope.Error) {
		var p gameOverParams
		if rpcErr := envelope.DecodeParams(params, &p); rpcErr != nil {
			return nil, rpcErr
		}
		logger.Info("match finished",
			zap.String("match_id", p.MatchID),
			zap.String("outcome", p.Outcome),
			zap.String("your_status", string(p.YourStatus)),
			zap.Int("drawn_number", p.DrawnNumber),
		)
		return nil, nil
	}
}
