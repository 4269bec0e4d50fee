// Package models holds the shared domain types for the league orchestration
// core: agent identity, league/round/match state, and standings rows.
package models

import "time"

// AgentType identifies which of the three cooperating roles an agent plays.
type AgentType string

const (
	AgentLeagueManager AgentType = "league_manager"
	AgentReferee       AgentType = "referee"
	AgentPlayer        AgentType = "player"
)

// AgentIdentity is a registered agent as tracked by the League Manager.
type AgentIdentity struct {
	AgentID         string    `json:"agent_id"`
	AgentType       AgentType `json:"agent_type"`
	ContactEndpoint string    `json:"contact_endpoint"`
	AuthToken       string    `json:"-"`
	Capabilities    []string  `json:"capabilities,omitempty"`
	TokenIssuedAt   time.Time `json:"token_issued_at"`
	TokenExpiresAt  time.Time `json:"token_expires_at"`
}

// Expired reports whether the identity's token has passed its TTL.
func (a *AgentIdentity) Expired(now time.Time) bool {
	return now.After(a.TokenExpiresAt)
}
