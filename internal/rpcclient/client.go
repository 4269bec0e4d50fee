// Package rpcclient implements the resilient league.v2 RPC client: encode
// -> authenticate -> timeout -> retry -> breaker -> send (spec.md §4.1,
// §9). A single Client composes all of these as one cross-cutting concern,
// tested by injecting a deterministic http.RoundTripper.
package rpcclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"go.uber.org/zap"

	"league-core/internal/breaker"
	"league-core/internal/envelope"
)

// maxAttempts is initial + 2 retries (spec.md §4.1).
const maxAttempts = 3

// backoffSchedule gives the nominal delay before each retry attempt
// (index 0 = delay before attempt 2, index 1 = delay before attempt 3).
var backoffSchedule = []time.Duration{2 * time.Second, 4 * time.Second}

const backoffCap = 10 * time.Second

// Client is the shared resilient RPC client used by every agent to call
// every other agent.
type Client struct {
	HTTP     *http.Client
	Breakers *breaker.Registry
	Logger   *zap.Logger
	Now      func() time.Time
	Rand     *rand.Rand
}

// New builds a Client with sane production defaults.
func New(logger *zap.Logger) *Client {
	return &Client{
		HTTP:     &http.Client{},
		Breakers: breaker.NewRegistry(),
		Logger:   logger,
		Now:      time.Now,
		Rand:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// jitter applies full jitter in [0.5x, 1.5x] of the nominal delay, capped
// at backoffCap (spec.md §4.1).
func (c *Client) jitter(nominal time.Duration) time.Duration {
	if nominal > backoffCap {
		nominal = backoffCap
	}
	factor := 0.5 + c.Rand.Float64() // uniform in [0.5, 1.5)
	d := time.Duration(float64(nominal) * factor)
	if d > backoffCap {
		d = backoffCap
	}
	return d
}

// Call performs a single league.v2 RPC call against endpoint, applying the
// full retry + circuit breaker + deadline policy. noRetry methods (the
// parity call per spec.md §4.4 step 3 and §9's open question) bypass the
// retry loop entirely but still consult the breaker and deadline.
func (c *Client) Call(ctx context.Context, endpoint, method string, env *envelope.Envelope, params interface{}, deadline time.Duration, noRetry bool) (json.RawMessage, *envelope.Error) {
	attempts := maxAttempts
	if noRetry {
		attempts = 1
	}

	b := c.Breakers.For(endpoint)

	var lastErr *envelope.Error
	for attempt := 1; attempt <= attempts; attempt++ {
		if !b.Allow(c.Now()) {
			return nil, envelope.NewError(envelope.ErrCircuitOpen, "circuit breaker open for "+endpoint).
				WithContext(method, env.ConversationID)
		}

		result, rpcErr := c.doOnce(ctx, endpoint, method, env, params, deadline)
		if rpcErr == nil {
			b.RecordSuccess()
			return result, nil
		}

		b.RecordFailure(c.Now())
		lastErr = rpcErr

		if noRetry || !envelope.IsRetryable(rpcErr.LeagueCode) || attempt == attempts {
			break
		}

		delay := c.jitter(backoffSchedule[attempt-1])
		c.Logger.Warn("rpc call failed, retrying",
			zap.String("endpoint", endpoint),
			zap.String("method", method),
			zap.String("conversation_id", env.ConversationID),
			zap.String("error_code", string(rpcErr.LeagueCode)),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
		)

		select {
		case <-ctx.Done():
			return nil, envelope.NewError(envelope.ErrTimeout, "context cancelled during backoff").
				WithContext(method, env.ConversationID)
		case <-time.After(delay):
		}
	}

	return nil, lastErr
}

// doOnce performs exactly one HTTP round trip with a per-call deadline.
func (c *Client) doOnce(ctx context.Context, endpoint, method string, env *envelope.Envelope, params interface{}, deadline time.Duration) (json.RawMessage, *envelope.Error) {
	callCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	body, err := buildRequestBody(method, env, params)
	if err != nil {
		return nil, envelope.NewError(envelope.ErrValidation, "failed to encode request: "+err.Error())
	}

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, envelope.NewError(envelope.ErrUnavailable, "failed to build request: "+err.Error())
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		if callCtx.Err() == context.DeadlineExceeded {
			return nil, envelope.NewError(envelope.ErrTimeout, "deadline exceeded calling "+method).
				WithContext(method, env.ConversationID)
		}
		return nil, envelope.NewError(envelope.ErrUnavailable, "transport error: "+err.Error()).
			WithContext(method, env.ConversationID)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, envelope.MaxBodyBytes))
	if err != nil {
		return nil, envelope.NewError(envelope.ErrUnavailable, "failed to read response: "+err.Error())
	}

	var rpcResp envelope.Response
	if err := json.Unmarshal(raw, &rpcResp); err != nil {
		return nil, envelope.NewError(envelope.ErrValidation, "malformed response body")
	}

	if rpcResp.Error != nil {
		code := envelope.Code("E000")
		if data, ok := rpcResp.Error.Data.(map[string]interface{}); ok {
			if ec, ok := data["error_code"].(string); ok {
				code = envelope.Code(ec)
			}
		}
		return nil, envelope.NewError(code, rpcResp.Error.Message).WithContext(method, env.ConversationID)
	}

	resultBytes, err := json.Marshal(rpcResp.Result)
	if err != nil {
		return nil, envelope.NewError(envelope.ErrValidation, "failed to re-encode result")
	}
	return resultBytes, nil
}

func buildRequestBody(method string, env *envelope.Envelope, params interface{}) ([]byte, error) {
	merged, err := mergeEnvelope(env, params)
	if err != nil {
		return nil, err
	}
	req := envelope.Request{
		JSONRPC: "2.0",
		Method:  method,
		Params:  merged,
		ID:      []byte(fmt.Sprintf("%q", env.ConversationID)),
	}
	return json.Marshal(req)
}

// mergeEnvelope flattens the envelope header fields and the method-specific
// params into a single JSON object, matching the wire shape validated by
// envelope.Validate on the receiving side.
func mergeEnvelope(env *envelope.Envelope, params interface{}) (json.RawMessage, error) {
	envBytes, err := json.Marshal(env)
	if err != nil {
		return nil, err
	}
	paramBytes, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}

	var envMap map[string]interface{}
	if err := json.Unmarshal(envBytes, &envMap); err != nil {
		return nil, err
	}
	var paramMap map[string]interface{}
	if err := json.Unmarshal(paramBytes, &paramMap); err != nil {
		return nil, err
	}
	for k, v := range paramMap {
		envMap[k] = v
	}
	return json.Marshal(envMap)
}
