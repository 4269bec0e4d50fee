// internal/api/lm_handlers.go
// League manager method handlers: registration, match result intake, and
// the read-only query methods (spec.md §4.2, §4.5, §6).

package api

import (
	"context"
	"encoding/json"

	"league-core/internal/aggregator"
	"league-core/internal/envelope"
	"league-core/internal/leaguemanager"
	"league-core/internal/models"
	"league-core/internal/registry"
	"league-core/internal/store"
)

// RegisterLeagueManagerHandlers wires every method the league manager
// serves onto d.
func RegisterLeagueManagerHandlers(d *Dispatcher, mgr *leaguemanager.Manager, reg *registry.Registry, st *store.Store, agg *aggregator.Aggregator) {
	d.Handle(envelope.MethodRegisterReferee, handleRegisterReferee(mgr))
	d.Handle(envelope.MethodRegisterPlayer, handleRegisterPlayer(mgr))
	d.Handle(envelope.MethodMatchResultReport, handleMatchResultReport(mgr))
	d.Handle(envelope.MethodGetStandings, handleGetStandings(st))
	d.Handle(envelope.MethodGetLeagueStatus, handleGetLeagueStatus(mgr))
	d.Handle(envelope.MethodGetMatchState, handleGetMatchState(st))
	d.Handle(envelope.MethodGetRegistrationStatus, handleGetRegistrationStatus(reg))
}

type registerRefereeParams struct {
	AgentID         string `json:"agent_id"`
	ContactEndpoint string `json:"contact_endpoint"`
}

func handleRegisterReferee(mgr *leaguemanager.Manager) HandlerFunc {
	return func(ctx context.Context, env *envelope.Envelope, params json.RawMessage) (interface{}, *envelope.Error) {
		var p registerRefereeParams
		if rpcErr := envelope.DecodeParams(params, &p); rpcErr != nil {
			return nil, rpcErr
		}
		if p.AgentID == "" || p.ContactEndpoint == "" {
			return nil, envelope.NewError(envelope.ErrValidation, "agent_id and contact_endpoint are required")
		}

		result, rpcErr := mgr.RegisterReferee(p.AgentID, p.ContactEndpoint)
		if rpcErr != nil {
			return nil, rpcErr
		}
		return map[string]interface{}{
			"agent_id":   result.AgentID,
			"auth_token": result.AuthToken,
			"league_id":  result.LeagueID,
		}, nil
	}
}

type registerPlayerParams struct {
	AgentID         string `json:"agent_id"`
	ContactEndpoint string `json:"contact_endpoint"`
}

func handleRegisterPlayer(mgr *leaguemanager.Manager) HandlerFunc {
	return func(ctx context.Context, env *envelope.Envelope, params json.RawMessage) (interface{}, *envelope.Error) {
		var p registerPlayerParams
		if rpcErr := envelope.DecodeParams(params, &p); rpcErr != nil {
			return nil, rpcErr
		}
		if p.AgentID == "" || p.ContactEndpoint == "" {
			return nil, envelope.NewError(envelope.ErrValidation, "agent_id and contact_endpoint are required")
		}

		result, rpcErr := mgr.RegisterPlayer(p.AgentID, p.ContactEndpoint)
		if rpcErr != nil {
			return nil, rpcErr
		}
		return map[string]interface{}{
			"agent_id":   result.AgentID,
			"auth_token": result.AuthToken,
			"league_id":  result.LeagueID,
		}, nil
	}
}

type matchResultReportParams struct {
	Match *models.Match `json:"match"`
}

func handleMatchResultReport(mgr *leaguemanager.Manager) HandlerFunc {
	return func(ctx context.Context, env *envelope.Envelope, params json.RawMessage) (interface{}, *envelope.Error) {
		var p matchResultReportParams
		if rpcErr := envelope.DecodeParams(params, &p); rpcErr != nil {
			return nil, rpcErr
		}
		if p.Match == nil || p.Match.MatchID == "" {
			return nil, envelope.NewError(envelope.ErrValidation, "match is required")
		}

		if rpcErr := mgr.ReportMatchResult(ctx, p.Match); rpcErr != nil {
			return nil, rpcErr
		}
		return map[string]interface{}{"acknowledged": true}, nil
	}
}

type leagueIDParams struct {
	LeagueID string `json:"league_id"`
}

func handleGetStandings(st *store.Store) HandlerFunc {
	return func(ctx context.Context, env *envelope.Envelope, params json.RawMessage) (interface{}, *envelope.Error) {
		var p leagueIDParams
		if rpcErr := envelope.DecodeParams(params, &p); rpcErr != nil {
			return nil, rpcErr
		}

		snap, err := st.LoadStandings(p.LeagueID)
		if err != nil {
			return nil, envelope.NewError(envelope.ErrUnavailable, "failed to load standings: "+err.Error())
		}
		rows := aggregator.Ranked(snap, models.DefaultTiebreakers, 0)
		return map[string]interface{}{"league_id": p.LeagueID, "standings": rows}, nil
	}
}

func handleGetLeagueStatus(mgr *leaguemanager.Manager) HandlerFunc {
	return func(ctx context.Context, env *envelope.Envelope, params json.RawMessage) (interface{}, *envelope.Error) {
		league := mgr.Snapshot()
		return league, nil
	}
}

type matchIDParams struct {
	MatchID string `json:"match_id"`
}

func handleGetMatchState(st *store.Store) HandlerFunc {
	return func(ctx context.Context, env *envelope.Envelope, params json.RawMessage) (interface{}, *envelope.Error) {
		var p matchIDParams
		if rpcErr := envelope.DecodeParams(params, &p); rpcErr != nil {
			return nil, rpcErr
		}

		transcript, found, err := st.LoadMatchTranscript(p.MatchID)
		if err != nil {
			return nil, envelope.NewError(envelope.ErrUnavailable, "failed to load match: "+err.Error())
		}
		if !found {
			return nil, envelope.NewError(envelope.ErrMatchNotFound, "match not found: "+p.MatchID)
		}
		return transcript.Match, nil
	}
}

func handleGetRegistrationStatus(reg *registry.Registry) HandlerFunc {
	return func(ctx context.Context, env *envelope.Envelope, params json.RawMessage) (interface{}, *envelope.Error) {
		return map[string]interface{}{
			"referees": reg.Referees(),
			"players":  reg.Players(),
		}, nil
	}
}
