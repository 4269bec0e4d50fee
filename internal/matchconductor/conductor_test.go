package matchconductor

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"league-core/internal/envelope"
	"league-core/internal/gamerule"
	"league-core/internal/models"
	"league-core/internal/store"
)

// fakeCaller is a scriptable stand-in for rpcclient.Client, keyed by
// endpoint so each test can script per-player and per-LM behavior without
// standing up real HTTP.
type fakeCaller struct {
	callResult map[string]json.RawMessage
	callErr    map[string]*envelope.Error
	calls      []string
}

func newFakeCaller() *fakeCaller {
	return &fakeCaller{
		callResult: map[string]json.RawMessage{},
		callErr:    map[string]*envelope.Error{},
	}
}

func (f *fakeCaller) Call(ctx context.Context, endpoint, method string, env *envelope.Envelope, params interface{}, deadline time.Duration, noRetry bool) (json.RawMessage, *envelope.Error) {
	f.calls = append(f.calls, endpoint+"/"+method)
	if err, ok := f.callErr[endpoint]; ok {
		return nil, err
	}
	if res, ok := f.callResult[endpoint]; ok {
		return res, nil
	}
	return json.RawMessage(`{}`), nil
}

func (f *fakeCaller) Notify(ctx context.Context, endpoint, method string, env *envelope.Envelope, params interface{}, deadline time.Duration) *envelope.Error {
	f.calls = append(f.calls, "notify:"+endpoint+"/"+method)
	return nil
}

func newTestConductor(t *testing.T, caller Caller, draw gamerule.DrawFunc) *Conductor {
	t.Helper()
	dir := t.TempDir()
	st := store.New(dir)
	rules := gamerule.NewRegistry()
	logger := zap.NewNop()
	c := New(caller, rules, st, logger, "referee:ref1", "http://lm.local/mcp", 4, draw)
	t.Cleanup(func() { c.outbox.Shutdown() })
	return c
}

func choiceResponse(choice string) json.RawMessage {
	b, _ := json.Marshal(map[string]string{"choice": choice})
	return b
}

func TestConduct_BothJoinAndChoose_WinnerDetermined(t *testing.T) {
	caller := newFakeCaller()
	caller.callResult["http://p01.local/mcp"] = choiceResponse("even")
	caller.callResult["http://p02.local/mcp"] = choiceResponse("odd")

	c := newTestConductor(t, caller, gamerule.FixedDraw(4))

	match := &models.Match{
		MatchID: "R1M1", RoundID: 1, LeagueID: "league-1",
		PlayerAID: "p01", PlayerBID: "p02",
	}
	players := [2]PlayerEndpoint{
		{AgentID: "p01", Endpoint: "http://p01.local/mcp"},
		{AgentID: "p02", Endpoint: "http://p02.local/mcp"},
	}

	result := c.Conduct(context.Background(), match, "even_odd", players)

	require.Equal(t, models.MatchFinished, result.State)
	require.Equal(t, "p01", result.Outcome)
	require.Equal(t, models.StatusWin, result.Statuses["p01"])
	require.Equal(t, models.StatusLoss, result.Statuses["p02"])
	require.Equal(t, 4, result.DrawnNumber)
}

func TestConduct_OnePlayerFailsToJoin_TechnicalLoss(t *testing.T) {
	caller := newFakeCaller()
	caller.callErr["http://p02.local/mcp"] = envelope.NewError(envelope.ErrTimeout, "no response")

	c := newTestConductor(t, caller, gamerule.FixedDraw(2))

	match := &models.Match{
		MatchID: "R1M2", RoundID: 1, LeagueID: "league-1",
		PlayerAID: "p01", PlayerBID: "p02",
	}
	players := [2]PlayerEndpoint{
		{AgentID: "p01", Endpoint: "http://p01.local/mcp"},
		{AgentID: "p02", Endpoint: "http://p02.local/mcp"},
	}

	result := c.Conduct(context.Background(), match, "even_odd", players)

	require.Equal(t, models.MatchFinished, result.State)
	require.Equal(t, "p01", result.Outcome)
	require.Equal(t, models.StatusWin, result.Statuses["p01"])
	require.Equal(t, models.StatusTechnicalLoss, result.Statuses["p02"])
	require.Equal(t, string(envelope.ErrTimeout), result.ErrorCodes["p02"])
}

func TestConduct_ReportFails_QueuedToOutbox(t *testing.T) {
	caller := newFakeCaller()
	caller.callResult["http://p01.local/mcp"] = choiceResponse("even")
	caller.callResult["http://p02.local/mcp"] = choiceResponse("even")
	caller.callErr["http://lm.local/mcp"] = envelope.NewError(envelope.ErrCircuitOpen, "lm unreachable")

	c := newTestConductor(t, caller, gamerule.FixedDraw(6))

	match := &models.Match{
		MatchID: "R1M3", RoundID: 1, LeagueID: "league-1",
		PlayerAID: "p01", PlayerBID: "p02",
	}
	players := [2]PlayerEndpoint{
		{AgentID: "p01", Endpoint: "http://p01.local/mcp"},
		{AgentID: "p02", Endpoint: "http://p02.local/mcp"},
	}

	result := c.Conduct(context.Background(), match, "even_odd", players)

	require.Equal(t, models.MatchReported, result.State)
	require.Equal(t, 1, c.outbox.Pending())
}
