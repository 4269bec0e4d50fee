// Package registry implements the League Manager's agent registry: a
// single-owner actor that serializes all registration/token mutations
// through one event loop, mirroring spec.md §9's design note ("wrap global
// mutable state in an owner actor... expose a Submit(op) -> future
// surface") and adapted from the teacher's websocket Hub register/
// unregister channel loop.
package registry

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"league-core/internal/envelope"
	"league-core/internal/models"
)

// op is one mutation or read submitted to the registry's event loop.
type op struct {
	fn   func(*state)
	done chan struct{}
}

// state is the registry's private, single-owner data — touched only from
// run().
type state struct {
	agents       map[string]*models.AgentIdentity // keyed by agent_id
	byEndpoint   map[string]string                // contact_endpoint -> agent_id
	leagueID     string
	maxReferees  int
	participants models.Participants
}

// Registry is the LM's agent registry and token authority.
type Registry struct {
	issuer *TokenIssuer
	logger *zap.Logger
	ops    chan op
	now    func() time.Time
}

// New creates a Registry and starts its event loop goroutine.
func New(secret, leagueID string, maxReferees int, logger *zap.Logger) *Registry {
	r := &Registry{
		issuer: NewTokenIssuer(secret),
		logger: logger,
		ops:    make(chan op, 64),
		now:    time.Now,
	}
	st := &state{
		agents:      make(map[string]*models.AgentIdentity),
		byEndpoint:  make(map[string]string),
		leagueID:    leagueID,
		maxReferees: maxReferees,
	}
	go r.run(st)
	return r
}

func (r *Registry) run(st *state) {
	for o := range r.ops {
		o.fn(st)
		close(o.done)
	}
}

// submit runs fn on the registry's single owning goroutine and blocks until
// it completes, matching the design note's "Submit(op) -> future" surface.
func (r *Registry) submit(fn func(*state)) {
	done := make(chan struct{})
	r.ops <- op{fn: fn, done: done}
	<-done
}

// RegisterResult is returned by RegisterReferee/RegisterPlayer.
type RegisterResult struct {
	AgentID   string
	AuthToken string
	LeagueID  string
}

// RegisterReferee registers or refreshes a referee. Re-registering the same
// referee_id within TTL refreshes its token; a new referee_id is accepted
// up to the configured maximum. A duplicate contact_endpoint under a
// different agent_id is rejected with E017 (spec.md §4.2).
func (r *Registry) RegisterReferee(agentID, endpoint string) (*RegisterResult, *envelope.Error) {
	var result *RegisterResult
	var rpcErr *envelope.Error

	r.submit(func(st *state) {
		if existingID, ok := st.byEndpoint[endpoint]; ok && existingID != agentID {
			rpcErr = envelope.NewError(envelope.ErrDuplicateEndpoint,
				fmt.Sprintf("endpoint %s already registered to a different referee", endpoint))
			return
		}

		_, alreadyKnown := st.agents[agentID]
		if !alreadyKnown {
			refereeCount := 0
			for _, a := range st.agents {
				if a.AgentType == models.AgentReferee {
					refereeCount++
				}
			}
			if st.maxReferees > 0 && refereeCount >= st.maxReferees {
				rpcErr = envelope.NewError(envelope.ErrResourceExhausted, "maximum referee count reached")
				return
			}
		}

		now := r.now()
		token, expiresAt, err := r.issuer.Issue(agentID, models.AgentReferee, st.leagueID, now)
		if err != nil {
			rpcErr = envelope.NewError(envelope.ErrUnavailable, "failed to issue token: "+err.Error())
			return
		}

		st.agents[agentID] = &models.AgentIdentity{
			AgentID:         agentID,
			AgentType:       models.AgentReferee,
			ContactEndpoint: endpoint,
			AuthToken:       token,
			TokenIssuedAt:   now,
			TokenExpiresAt:  expiresAt,
		}
		st.byEndpoint[endpoint] = agentID

		result = &RegisterResult{AgentID: agentID, AuthToken: token, LeagueID: st.leagueID}
	})

	return result, rpcErr
}

// RegisterPlayer registers or idempotently refreshes a player while the
// league is PENDING. Re-registration while ACTIVE is rejected with E005
// (retryable), per spec.md §4.2 and the Open Question resolution in §9.
func (r *Registry) RegisterPlayer(agentID, endpoint string, leagueActive bool) (*RegisterResult, *envelope.Error) {
	var result *RegisterResult
	var rpcErr *envelope.Error

	r.submit(func(st *state) {
		existing, alreadyKnown := st.agents[agentID]

		if alreadyKnown && leagueActive {
			rpcErr = envelope.NewError(envelope.ErrStateConflict, "cannot re-register player while league is ACTIVE")
			return
		}

		if alreadyKnown && !r.expired(existing) {
			// Idempotent refresh: same token while still valid and league PENDING.
			result = &RegisterResult{AgentID: agentID, AuthToken: existing.AuthToken, LeagueID: st.leagueID}
			return
		}

		if existingID, ok := st.byEndpoint[endpoint]; ok && existingID != agentID {
			rpcErr = envelope.NewError(envelope.ErrDuplicateEndpoint,
				fmt.Sprintf("endpoint %s already registered to a different player", endpoint))
			return
		}

		now := r.now()
		token, expiresAt, err := r.issuer.Issue(agentID, models.AgentPlayer, st.leagueID, now)
		if err != nil {
			rpcErr = envelope.NewError(envelope.ErrUnavailable, "failed to issue token: "+err.Error())
			return
		}

		st.agents[agentID] = &models.AgentIdentity{
			AgentID:         agentID,
			AgentType:       models.AgentPlayer,
			ContactEndpoint: endpoint,
			AuthToken:       token,
			TokenIssuedAt:   now,
			TokenExpiresAt:  expiresAt,
		}
		st.byEndpoint[endpoint] = agentID

		result = &RegisterResult{AgentID: agentID, AuthToken: token, LeagueID: st.leagueID}
	})

	return result, rpcErr
}

func (r *Registry) expired(a *models.AgentIdentity) bool {
	return a.Expired(r.now())
}

// ValidateToken checks that token was issued to agentID and has not
// expired, per spec.md §4.2's ValidateToken operation.
func (r *Registry) ValidateToken(agentID, token string) (ok bool, expiresAt time.Time) {
	r.submit(func(st *state) {
		a, known := st.agents[agentID]
		if !known || a.AuthToken != token {
			ok = false
			return
		}
		if r.expired(a) {
			ok = false
			return
		}
		ok = true
		expiresAt = a.TokenExpiresAt
	})
	return ok, expiresAt
}

// Lookup returns a copy of the agent identity for agentID, if registered.
func (r *Registry) Lookup(agentID string) (models.AgentIdentity, bool) {
	var out models.AgentIdentity
	var found bool
	r.submit(func(st *state) {
		if a, ok := st.agents[agentID]; ok {
			out = *a
			found = true
		}
	})
	return out, found
}

// IssueSelf mints a token for the league manager's own identity, so its
// outbound calls (e.g. START_MATCH) carry a signature-valid auth_token too,
// without adding the LM itself to the registered-agents map (referees and
// players authenticate inbound calls by signature alone, per
// TokenIssuer.Authenticate).
func (r *Registry) IssueSelf(agentID string) (string, error) {
	token, _, err := r.issuer.Issue(agentID, models.AgentLeagueManager, "", r.now())
	return token, err
}

// Authenticate validates an inbound envelope's auth_token against the
// registry's own record for the claimed sender, rejecting tokens from
// agents that have since been deregistered even if the JWT signature and
// expiry are still otherwise valid (spec.md §4.1 step 3).
func (r *Registry) Authenticate(sender, token string) *envelope.Error {
	_, agentID, ok := envelope.SenderParts(sender)
	if !ok {
		return envelope.NewError(envelope.ErrSenderMismatch, "sender must be formatted {agent_type}:{agent_id}")
	}

	var rpcErr *envelope.Error
	r.submit(func(st *state) {
		a, known := st.agents[agentID]
		if !known || a.AuthToken != token {
			rpcErr = envelope.NewError(envelope.ErrAuth, "auth_token does not match registered identity")
			return
		}
		if r.expired(a) {
			rpcErr = envelope.NewError(envelope.ErrAuth, "auth_token has expired")
		}
	})
	return rpcErr
}

// Deregister explicitly destroys an agent's identity (spec.md §3: identity
// "destroyed on explicit deregistration or token expiry").
func (r *Registry) Deregister(agentID string) {
	r.submit(func(st *state) {
		if a, ok := st.agents[agentID]; ok {
			delete(st.byEndpoint, a.ContactEndpoint)
			delete(st.agents, agentID)
		}
	})
}

// Referees returns the agent_ids of all registered referees; the order is
// not defined (map iteration).
func (r *Registry) Referees() []string {
	var ids []string
	r.submit(func(st *state) {
		for id, a := range st.agents {
			if a.AgentType == models.AgentReferee {
				ids = append(ids, id)
			}
		}
	})
	return ids
}

// Players returns the agent_ids of all registered players.
func (r *Registry) Players() []string {
	var ids []string
	r.submit(func(st *state) {
		for id, a := range st.agents {
			if a.AgentType == models.AgentPlayer {
				ids = append(ids, id)
			}
		}
	})
	return ids
}

// Shutdown drains the op channel and stops the registry's event loop.
// Callers must not submit further operations afterward.
func (r *Registry) Shutdown(ctx context.Context) {
	close(r.ops)
}
