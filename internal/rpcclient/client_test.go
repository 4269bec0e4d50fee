package rpcclient

import (
	"context"
	"encoding/json"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"league-core/internal/breaker"
	"league-core/internal/envelope"
)

// scriptedTransport returns responses[i] for the i-th request it sees,
// repeating the last entry once exhausted. It never makes a real network
// call, matching the package doc's "inject a deterministic http.RoundTripper"
// testing strategy.
type scriptedTransport struct {
	responses []scriptedResponse
	calls     int32
}

type scriptedResponse struct {
	status int
	body   string
}

func (s *scriptedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	i := int(atomic.AddInt32(&s.calls, 1)) - 1
	if i >= len(s.responses) {
		i = len(s.responses) - 1
	}
	r := s.responses[i]
	return &http.Response{
		StatusCode: r.status,
		Body:       io.NopCloser(strings.NewReader(r.body)),
		Header:     make(http.Header),
	}, nil
}

func newTestClient(rt http.RoundTripper) *Client {
	return &Client{
		HTTP:     &http.Client{Transport: rt},
		Breakers: breaker.NewRegistry(),
		Logger:   zap.NewNop(),
		Now:      time.Now,
		Rand:     rand.New(rand.NewSource(1)),
	}
}

func testEnvelope() *envelope.Envelope {
	return &envelope.Envelope{
		Protocol:       envelope.Protocol,
		MessageType:    envelope.MethodStartMatch,
		Sender:         "referee:r1",
		Timestamp:      envelope.NewTimestamp(time.Now()),
		ConversationID: "conv-1",
		AuthToken:      "tok",
	}
}

func TestCall_SucceedsOnFirstAttempt(t *testing.T) {
	rt := &scriptedTransport{responses: []scriptedResponse{
		{status: 200, body: `{"jsonrpc":"2.0","result":{"ok":true},"id":"1"}`},
	}}
	c := newTestClient(rt)

	result, rpcErr := c.Call(context.Background(), "http://referee", envelope.MethodStartMatch, testEnvelope(), map[string]string{}, time.Second, false)
	require.Nil(t, rpcErr)
	require.JSONEq(t, `{"ok":true}`, string(result))
	require.EqualValues(t, 1, rt.calls)
}

func TestCall_RetriesRetryableErrorThenSucceeds(t *testing.T) {
	rt := &scriptedTransport{responses: []scriptedResponse{
		{status: 200, body: errorBody(envelope.ErrTimeout)},
		{status: 200, body: errorBody(envelope.ErrTimeout)},
		{status: 200, body: `{"jsonrpc":"2.0","result":{"ok":true},"id":"1"}`},
	}}
	c := newTestClient(rt)
	c.Now = func() time.Time { return time.Unix(0, 0) }

	start := time.Now()
	result, rpcErr := c.Call(context.Background(), "http://referee", envelope.MethodStartMatch, testEnvelope(), map[string]string{}, time.Second, false)
	require.Nil(t, rpcErr)
	require.JSONEq(t, `{"ok":true}`, string(result))
	require.EqualValues(t, 3, rt.calls)
	require.GreaterOrEqual(t, time.Since(start), time.Second) // two backoff waits, at least 1s and 2s after jitter
}

func TestCall_NonRetryableErrorFailsImmediately(t *testing.T) {
	rt := &scriptedTransport{responses: []scriptedResponse{
		{status: 200, body: errorBody(envelope.ErrValidation)},
	}}
	c := newTestClient(rt)

	_, rpcErr := c.Call(context.Background(), "http://referee", envelope.MethodStartMatch, testEnvelope(), map[string]string{}, time.Second, false)
	require.NotNil(t, rpcErr)
	require.Equal(t, envelope.ErrValidation, rpcErr.LeagueCode)
	require.EqualValues(t, 1, rt.calls)
}

func TestCall_NoRetryBypassesRetryLoopEvenOnRetryableError(t *testing.T) {
	rt := &scriptedTransport{responses: []scriptedResponse{
		{status: 200, body: errorBody(envelope.ErrTimeout)},
	}}
	c := newTestClient(rt)

	_, rpcErr := c.Call(context.Background(), "http://referee", envelope.MethodChooseParityCall, testEnvelope(), map[string]string{}, time.Second, true)
	require.NotNil(t, rpcErr)
	require.EqualValues(t, 1, rt.calls)
}

func TestCall_BreakerOpensAfterFiveFailuresAndFailsFast(t *testing.T) {
	rt := &scriptedTransport{responses: []scriptedResponse{
		{status: 200, body: errorBody(envelope.ErrUnavailable)},
	}}
	c := newTestClient(rt)
	c.Now = func() time.Time { return time.Unix(0, 0) }

	for i := 0; i < 5; i++ {
		_, rpcErr := c.Call(context.Background(), "http://flaky", envelope.MethodChooseParityCall, testEnvelope(), map[string]string{}, time.Second, true)
		require.NotNil(t, rpcErr)
	}

	_, rpcErr := c.Call(context.Background(), "http://flaky", envelope.MethodChooseParityCall, testEnvelope(), map[string]string{}, time.Second, true)
	require.NotNil(t, rpcErr)
	require.Equal(t, envelope.ErrCircuitOpen, rpcErr.LeagueCode)
}

func errorBody(code envelope.Code) string {
	payload, _ := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"error": map[string]interface{}{
			"code":    -32000,
			"message": "failed",
			"data":    map[string]interface{}{"error_code": string(code)},
		},
		"id": "1",
	})
	return string(payload)
}
