// Package api wires the league.v2 JSON-RPC surface onto gin: envelope
// validation, method dispatch, and the small set of thin HTTP endpoints
// every agent exposes (spec.md §4.1, §5).
package api

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"league-core/internal/envelope"
)

// HandlerFunc resolves one league.v2 method call. params is the full
// merged envelope+params object as received on the wire; handlers use
// envelope.DecodeParams to pull out their method-specific fields.
type HandlerFunc func(ctx context.Context, env *envelope.Envelope, params json.RawMessage) (interface{}, *envelope.Error)

// AuthValidator checks that token was issued to sender (formatted
// "{agent_type}:{agent_id}") and is still valid, per spec.md §4.1 step 3.
type AuthValidator func(sender, token string) *envelope.Error

// Dispatcher routes a canonical (or aliased) method name to its handler,
// running the envelope validation sequence first (spec.md §4.1).
type Dispatcher struct {
	handlers map[string]HandlerFunc
	auth     AuthValidator
	logger   *zap.Logger
}

// NewDispatcher creates an empty Dispatcher with no AuthValidator. Until
// WithAuthValidator is called, only envelope-level auth_token presence is
// checked, not its validity.
func NewDispatcher(logger *zap.Logger) *Dispatcher {
	return &Dispatcher{handlers: make(map[string]HandlerFunc), logger: logger}
}

// WithAuthValidator attaches token-signature validation to d, returning d
// for chaining.
func (d *Dispatcher) WithAuthValidator(auth AuthValidator) *Dispatcher {
	d.auth = auth
	return d
}

// Handle registers fn for a canonical method name.
func (d *Dispatcher) Handle(method string, fn HandlerFunc) {
	d.handlers[method] = fn
}

// Dispatch resolves method (possibly an alias), validates env, and invokes
// the registered handler bounded by that method's processing deadline.
func (d *Dispatcher) Dispatch(ctx context.Context, method string, env *envelope.Envelope, params json.RawMessage) (interface{}, *envelope.Error) {
	canonical := envelope.CanonicalMethod(method)

	if !envelope.KnownMethod(canonical) {
		return nil, envelope.NewError(envelope.ErrUnknownMethod, "unknown method: "+method).
			WithContext(method, env.ConversationID)
	}

	if rpcErr := envelope.Validate(env, canonical); rpcErr != nil {
		return nil, rpcErr.WithContext(canonical, env.ConversationID)
	}

	if d.auth != nil && !envelope.IsRegistrationMethod(canonical) {
		if rpcErr := d.auth(env.Sender, env.AuthToken); rpcErr != nil {
			return nil, rpcErr.WithContext(canonical, env.ConversationID)
		}
	}

	fn, ok := d.handlers[canonical]
	if !ok {
		return nil, envelope.NewError(envelope.ErrUnknownMethod, "method not handled by this agent: "+canonical).
			WithContext(canonical, env.ConversationID)
	}

	deadline := time.Duration(envelope.MethodDeadline(canonical)) * time.Second
	callCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	result, rpcErr := fn(callCtx, env, params)
	if rpcErr != nil {
		d.logger.Warn("handler returned error",
			zap.String("method", canonical),
			zap.String("conversation_id", env.ConversationID),
			zap.String("error_code", string(rpcErr.LeagueCode)),
		)
		return nil, rpcErr.WithContext(canonical, env.ConversationID)
	}
	return result, nil
}
