package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"league-core/internal/envelope"
	"league-core/internal/models"
)

func newTestRegistry(t *testing.T, maxReferees int) *Registry {
	t.Helper()
	r := New("test-secret", "league-1", maxReferees, zap.NewNop())
	t.Cleanup(func() { r.Shutdown(context.Background()) })
	return r
}

func TestRegisterReferee_RejectsDuplicateContactEndpointUnderDifferentAgent(t *testing.T) {
	r := newTestRegistry(t, 0)

	_, rpcErr := r.RegisterReferee("ref1", "http://shared")
	require.Nil(t, rpcErr)

	_, rpcErr = r.RegisterReferee("ref2", "http://shared")
	require.NotNil(t, rpcErr)
	require.Equal(t, envelope.ErrDuplicateEndpoint, rpcErr.LeagueCode)
}

func TestRegisterReferee_RejectsOnceMaxRefereeCountReached(t *testing.T) {
	r := newTestRegistry(t, 1)

	_, rpcErr := r.RegisterReferee("ref1", "http://ref1")
	require.Nil(t, rpcErr)

	_, rpcErr = r.RegisterReferee("ref2", "http://ref2")
	require.NotNil(t, rpcErr)
	require.Equal(t, envelope.ErrResourceExhausted, rpcErr.LeagueCode)
}

func TestRegisterReferee_ReRegisteringSameAgentRefreshesToken(t *testing.T) {
	r := newTestRegistry(t, 1)

	first, rpcErr := r.RegisterReferee("ref1", "http://ref1")
	require.Nil(t, rpcErr)

	second, rpcErr := r.RegisterReferee("ref1", "http://ref1")
	require.Nil(t, rpcErr)
	require.Equal(t, first.AgentID, second.AgentID)
}

func TestRegisterPlayer_RejectsReRegistrationWhileLeagueActive(t *testing.T) {
	r := newTestRegistry(t, 0)

	_, rpcErr := r.RegisterPlayer("p1", "http://p1", false)
	require.Nil(t, rpcErr)

	_, rpcErr = r.RegisterPlayer("p1", "http://p1", true)
	require.NotNil(t, rpcErr)
	require.Equal(t, envelope.ErrStateConflict, rpcErr.LeagueCode)
}

func TestRegisterPlayer_IdempotentRefreshWhilePending(t *testing.T) {
	r := newTestRegistry(t, 0)

	first, rpcErr := r.RegisterPlayer("p1", "http://p1", false)
	require.Nil(t, rpcErr)

	second, rpcErr := r.RegisterPlayer("p1", "http://p1", false)
	require.Nil(t, rpcErr)
	require.Equal(t, first.AuthToken, second.AuthToken)
}

func TestValidateToken_RejectsWrongTokenAndExpiredToken(t *testing.T) {
	r := newTestRegistry(t, 0)
	r.now = func() time.Time { return time.Unix(0, 0) }

	result, rpcErr := r.RegisterReferee("ref1", "http://ref1")
	require.Nil(t, rpcErr)

	ok, _ := r.ValidateToken("ref1", result.AuthToken)
	require.True(t, ok)

	ok, _ = r.ValidateToken("ref1", "not-the-token")
	require.False(t, ok)

	r.now = func() time.Time { return time.Unix(0, 0).Add(TokenTTL + time.Second) }
	ok, _ = r.ValidateToken("ref1", result.AuthToken)
	require.False(t, ok)
}

func TestAuthenticate_RejectsDeregisteredAgentEvenWithAValidSignature(t *testing.T) {
	r := newTestRegistry(t, 0)

	result, rpcErr := r.RegisterReferee("ref1", "http://ref1")
	require.Nil(t, rpcErr)

	require.Nil(t, r.Authenticate("referee:ref1", result.AuthToken))

	r.Deregister("ref1")
	require.NotNil(t, r.Authenticate("referee:ref1", result.AuthToken))
}

func TestAuthenticate_RejectsMalformedSender(t *testing.T) {
	r := newTestRegistry(t, 0)
	rpcErr := r.Authenticate("not-a-valid-sender", "whatever")
	require.NotNil(t, rpcErr)
	require.Equal(t, envelope.ErrSenderMismatch, rpcErr.LeagueCode)
}

func TestIssueSelf_MintsATokenNotAddedToTheRegistry(t *testing.T) {
	r := newTestRegistry(t, 0)

	token, err := r.IssueSelf("lm-1")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	_, found := r.Lookup("lm-1")
	require.False(t, found, "IssueSelf must not register the league manager as a player/referee")

	issuer := NewTokenIssuer("test-secret")
	require.Nil(t, issuer.Authenticate("league_manager:lm-1", token))
}

func TestTokenIssuer_AuthenticateRejectsSenderMismatch(t *testing.T) {
	issuer := NewTokenIssuer("test-secret")
	token, _, err := issuer.Issue("player-1", models.AgentPlayer, "league-1", time.Now())
	require.NoError(t, err)

	rpcErr := issuer.Authenticate("player:player-2", token)
	require.NotNil(t, rpcErr)
	require.Equal(t, envelope.ErrSenderMismatch, rpcErr.LeagueCode)
}
