package api

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"league-core/internal/envelope"
)

func validEnvelope(method, authToken string) *envelope.Envelope {
	return &envelope.Envelope{
		Protocol:       envelope.Protocol,
		MessageType:    method,
		Sender:         "referee:r1",
		Timestamp:      envelope.NewTimestamp(time.Now()),
		ConversationID: "conv-1",
		AuthToken:      authToken,
	}
}

func echoHandler(result interface{}) HandlerFunc {
	return func(ctx context.Context, env *envelope.Envelope, params json.RawMessage) (interface{}, *envelope.Error) {
		return result, nil
	}
}

func TestDispatch_RejectsUnknownMethod(t *testing.T) {
	d := NewDispatcher(zap.NewNop())
	_, rpcErr := d.Dispatch(context.Background(), "NOT_A_METHOD", validEnvelope("NOT_A_METHOD", "tok"), nil)
	require.NotNil(t, rpcErr)
	require.Equal(t, envelope.ErrUnknownMethod, rpcErr.LeagueCode)
}

func TestDispatch_RejectsWrongProtocol(t *testing.T) {
	d := NewDispatcher(zap.NewNop())
	d.Handle(envelope.MethodStartMatch, echoHandler("ok"))

	env := validEnvelope(envelope.MethodStartMatch, "tok")
	env.Protocol = "league.v1"

	_, rpcErr := d.Dispatch(context.Background(), envelope.MethodStartMatch, env, nil)
	require.NotNil(t, rpcErr)
	require.Equal(t, envelope.ErrProtocol, rpcErr.LeagueCode)
}

func TestDispatch_RejectsMissingAuthTokenForNonRegistrationMethod(t *testing.T) {
	d := NewDispatcher(zap.NewNop())
	d.Handle(envelope.MethodStartMatch, echoHandler("ok"))

	_, rpcErr := d.Dispatch(context.Background(), envelope.MethodStartMatch, validEnvelope(envelope.MethodStartMatch, ""), nil)
	require.NotNil(t, rpcErr)
	require.Equal(t, envelope.ErrAuth, rpcErr.LeagueCode)
}

func TestDispatch_AllowsMissingAuthTokenForRegistrationMethod(t *testing.T) {
	d := NewDispatcher(zap.NewNop())
	d.Handle(envelope.MethodRegisterReferee, echoHandler("ok"))

	result, rpcErr := d.Dispatch(context.Background(), envelope.MethodRegisterReferee, validEnvelope(envelope.MethodRegisterReferee, ""), nil)
	require.Nil(t, rpcErr)
	require.Equal(t, "ok", result)
}

func TestDispatch_InvokesAuthValidatorForNonRegistrationMethods(t *testing.T) {
	var sawSender, sawToken string
	d := NewDispatcher(zap.NewNop()).WithAuthValidator(func(sender, token string) *envelope.Error {
		sawSender, sawToken = sender, token
		return envelope.NewError(envelope.ErrAuth, "rejected by validator")
	})
	d.Handle(envelope.MethodStartMatch, echoHandler("ok"))

	_, rpcErr := d.Dispatch(context.Background(), envelope.MethodStartMatch, validEnvelope(envelope.MethodStartMatch, "tok"), nil)
	require.NotNil(t, rpcErr)
	require.Equal(t, envelope.ErrAuth, rpcErr.LeagueCode)
	require.Equal(t, "referee:r1", sawSender)
	require.Equal(t, "tok", sawToken)
}

func TestDispatch_SkipsAuthValidatorForRegistrationMethods(t *testing.T) {
	called := false
	d := NewDispatcher(zap.NewNop()).WithAuthValidator(func(sender, token string) *envelope.Error {
		called = true
		return nil
	})
	d.Handle(envelope.MethodRegisterReferee, echoHandler("ok"))

	_, rpcErr := d.Dispatch(context.Background(), envelope.MethodRegisterReferee, validEnvelope(envelope.MethodRegisterReferee, ""), nil)
	require.Nil(t, rpcErr)
	require.False(t, called, "registration methods must bypass AuthValidator entirely")
}

func TestDispatch_RejectsMethodWithNoRegisteredHandler(t *testing.T) {
	d := NewDispatcher(zap.NewNop())
	_, rpcErr := d.Dispatch(context.Background(), envelope.MethodStartMatch, validEnvelope(envelope.MethodStartMatch, "tok"), nil)
	require.NotNil(t, rpcErr)
	require.Equal(t, envelope.ErrUnknownMethod, rpcErr.LeagueCode)
}

func TestDispatch_PropagatesHandlerError(t *testing.T) {
	d := NewDispatcher(zap.NewNop())
	d.Handle(envelope.MethodStartMatch, func(ctx context.Context, env *envelope.Envelope, params json.RawMessage) (interface{}, *envelope.Error) {
		return nil, envelope.NewError(envelope.ErrInvalidMove, "bad move")
	})

	_, rpcErr := d.Dispatch(context.Background(), envelope.MethodStartMatch, validEnvelope(envelope.MethodStartMatch, "tok"), nil)
	require.NotNil(t, rpcErr)
	require.Equal(t, envelope.ErrInvalidMove, rpcErr.LeagueCode)
	require.Equal(t, envelope.MethodStartMatch, rpcErr.MessageType)
	require.Equal(t, "conv-1", rpcErr.ConversationID)
}
