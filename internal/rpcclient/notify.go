package rpcclient

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"league-core/internal/envelope"
)

// Notify sends a best-effort broadcast (no "id", no response expected, no
// retry on failure per recipient) while still updating the per-endpoint
// circuit breaker, per spec.md §4.1's notification semantics.
func (c *Client) Notify(ctx context.Context, endpoint, method string, env *envelope.Envelope, params interface{}, deadline time.Duration) *envelope.Error {
	b := c.Breakers.For(endpoint)
	if !b.Allow(c.Now()) {
		return envelope.NewError(envelope.ErrCircuitOpen, "circuit breaker open for "+endpoint)
	}

	callCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	body, err := buildNotificationBody(method, env, params)
	if err != nil {
		b.RecordFailure(c.Now())
		return envelope.NewError(envelope.ErrValidation, "failed to encode notification: "+err.Error())
	}

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		b.RecordFailure(c.Now())
		return envelope.NewError(envelope.ErrUnavailable, "failed to build notification request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		b.RecordFailure(c.Now())
		c.Logger.Info("broadcast delivery failed, not retrying",
			zap.String("endpoint", endpoint),
			zap.String("method", method),
			zap.Error(err),
		)
		return envelope.NewError(envelope.ErrUnavailable, "transport error: "+err.Error())
	}
	defer resp.Body.Close()

	b.RecordSuccess()
	return nil
}

func buildNotificationBody(method string, env *envelope.Envelope, params interface{}) ([]byte, error) {
	merged, err := mergeEnvelope(env, params)
	if err != nil {
		return nil, err
	}
	req := envelope.Request{
		JSONRPC: "2.0",
		Method:  method,
		Params:  merged,
	}
	return json.Marshal(req)
}
