package registry

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"league-core/internal/envelope"
	"league-core/internal/models"
)

// TokenTTL matches spec.md §3: auth tokens are valid for 24 hours.
const TokenTTL = 24 * time.Hour

// claims is the signed payload carried by an auth_token, realizing the
// "opaque high-entropy string" of spec.md §3 as a stateless bearer JWT
// (SPEC_FULL.md §2).
type claims struct {
	AgentID   string          `json:"agent_id"`
	AgentType models.AgentType `json:"agent_type"`
	LeagueID  string          `json:"league_id"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and validates auth tokens for one league manager.
type TokenIssuer struct {
	secret []byte
}

// NewTokenIssuer creates an issuer using secret as the HMAC signing key.
func NewTokenIssuer(secret string) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret)}
}

// Issue mints a signed token for the given identity, valid for TokenTTL
// from now.
func (t *TokenIssuer) Issue(agentID string, agentType models.AgentType, leagueID string, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(TokenTTL)
	c := claims{
		AgentID:   agentID,
		AgentType: agentType,
		LeagueID:  leagueID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Validate parses and verifies a token, returning the agent identity it
// attests to.
func (t *TokenIssuer) Validate(tokenString string) (agentID string, agentType models.AgentType, leagueID string, err error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &claims{}, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		return "", "", "", err
	}
	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid {
		return "", "", "", fmt.Errorf("invalid token")
	}
	return c.AgentID, c.AgentType, c.LeagueID, nil
}

// Authenticate verifies that token is a validly signed, unexpired token
// whose agent_id matches sender's "{agent_type}:{agent_id}" identity
// (spec.md §4.1 step 3). It needs only the shared signing secret, so
// referees and players can authenticate inbound calls without holding the
// league manager's full registry.
func (t *TokenIssuer) Authenticate(sender, token string) *envelope.Error {
	agentID, _, _, err := t.Validate(token)
	if err != nil {
		return envelope.NewError(envelope.ErrAuth, "invalid or expired auth_token")
	}

	_, senderAgentID, ok := envelope.SenderParts(sender)
	if !ok || senderAgentID != agentID {
		return envelope.NewError(envelope.ErrSenderMismatch, "sender does not match auth_token holder")
	}
	return nil
}
