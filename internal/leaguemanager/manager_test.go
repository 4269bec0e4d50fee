package leaguemanager

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"league-core/internal/aggregator"
	"league-core/internal/envelope"
	"league-core/internal/models"
	"league-core/internal/registry"
	"league-core/internal/rpcclient"
	"league-core/internal/store"
)

func newTestManager(t *testing.T, participants models.Participants, refereeHandler http.HandlerFunc) (*Manager, *store.Store, string) {
	t.Helper()

	st := store.New(t.TempDir())
	logger := zap.NewNop()
	reg := registry.New("test-secret", "league-1", 0, logger)
	t.Cleanup(func() { reg.Shutdown(context.Background()) })

	agg := aggregator.New(st, func(string) models.Scoring { return models.DefaultScoring() }, logger, nil)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		agg.Shutdown(ctx)
	})

	rpc := rpcclient.New(logger)
	var refereeEndpoint string
	if refereeHandler != nil {
		srv := httptest.NewServer(refereeHandler)
		t.Cleanup(srv.Close)
		refereeEndpoint = srv.URL
	}

	mgr := New("league-1", "even_odd", participants, models.DefaultScoring(), reg, st, agg, rpc, logger, "league_manager:lm-1", 2)
	return mgr, st, refereeEndpoint
}

func TestRegisterPlayer_RejectsOnceLeagueIsFull(t *testing.T) {
	mgr, _, _ := newTestManager(t, models.Participants{Min: 2, Max: 2}, nil)

	_, rpcErr := mgr.RegisterPlayer("p1", "http://p1")
	require.Nil(t, rpcErr)
	_, rpcErr = mgr.RegisterPlayer("p2", "http://p2")
	require.Nil(t, rpcErr)

	_, rpcErr = mgr.RegisterPlayer("p3", "http://p3")
	require.NotNil(t, rpcErr)
	require.Equal(t, envelope.ErrResourceExhausted, rpcErr.LeagueCode)
}

func TestRegisterPlayer_SameAgentNeverCountsTwiceAgainstMax(t *testing.T) {
	mgr, _, _ := newTestManager(t, models.Participants{Min: 2, Max: 2}, nil)

	_, rpcErr := mgr.RegisterPlayer("p1", "http://p1")
	require.Nil(t, rpcErr)
	_, rpcErr = mgr.RegisterPlayer("p1", "http://p1")
	require.Nil(t, rpcErr)

	snap := mgr.Snapshot()
	require.Len(t, snap.RegisteredPlayers, 1)
}

func TestRegistration_AutoStartsOnceMinPlayersAndARefereeAreRegistered(t *testing.T) {
	started := make(chan struct{}, 8)
	handler := func(w http.ResponseWriter, r *http.Request) {
		started <- struct{}{}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jsonrpc":"2.0","result":{"accepted":true},"id":"1"}`))
	}

	mgr, st, refereeEndpoint := newTestManager(t, models.Participants{Min: 2, Max: 0}, handler)

	_, rpcErr := mgr.RegisterReferee("ref1", refereeEndpoint)
	require.Nil(t, rpcErr)
	_, rpcErr = mgr.RegisterPlayer("p1", "http://p1")
	require.Nil(t, rpcErr)
	_, rpcErr = mgr.RegisterPlayer("p2", "http://p2")
	require.Nil(t, rpcErr)

	require.Eventually(t, func() bool {
		return mgr.Snapshot().Status == models.LeagueActive
	}, time.Second, 10*time.Millisecond)

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("expected a START_MATCH call to be dispatched once the league started")
	}

	sched, err := st.LoadRounds("league-1")
	require.NoError(t, err)
	require.NotNil(t, sched)
	require.NotEmpty(t, sched.Rounds)
}

func TestStart_IsIdempotentOnceLeagueIsActive(t *testing.T) {
	var calls int32
	handler := func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jsonrpc":"2.0","result":{"accepted":true},"id":"1"}`))
	}
	mgr, _, refereeEndpoint := newTestManager(t, models.Participants{Min: 2, Max: 0}, handler)

	_, rpcErr := mgr.RegisterReferee("ref1", refereeEndpoint)
	require.Nil(t, rpcErr)
	_, rpcErr = mgr.RegisterPlayer("p1", "http://p1")
	require.Nil(t, rpcErr)
	_, rpcErr = mgr.RegisterPlayer("p2", "http://p2")
	require.Nil(t, rpcErr)

	require.Eventually(t, func() bool {
		return mgr.Snapshot().Status == models.LeagueActive
	}, time.Second, 10*time.Millisecond)

	firstCallCount := atomic.LoadInt32(&calls)
	require.NoError(t, mgr.Start(context.Background()))
	require.Equal(t, firstCallCount, atomic.LoadInt32(&calls), "Start on an already-ACTIVE league must not re-dispatch")
}

func TestReportMatchResult_AdvancesRoundOnlyOnceEveryMatchIsFinished(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jsonrpc":"2.0","result":{"accepted":true},"id":"1"}`))
	}
	mgr, st, refereeEndpoint := newTestManager(t, models.Participants{Min: 4, Max: 4}, handler)

	_, rpcErr := mgr.RegisterReferee("ref1", refereeEndpoint)
	require.Nil(t, rpcErr)
	for _, p := range []string{"p1", "p2", "p3", "p4"} {
		_, rpcErr = mgr.RegisterPlayer(p, "http://"+p)
		require.Nil(t, rpcErr)
	}

	require.Eventually(t, func() bool {
		return mgr.Snapshot().Status == models.LeagueActive
	}, time.Second, 10*time.Millisecond)

	sched, err := st.LoadRounds("league-1")
	require.NoError(t, err)
	round1 := sched.Rounds[0]
	require.Len(t, round1.Matches, 2, "4 players, round-robin pairs into 2 matches per round")

	for i, ref := range round1.Matches {
		require.NoError(t, st.SaveMatchTranscript(&models.MatchTranscript{
			Match: &models.Match{
				MatchID:   ref.MatchID,
				RoundID:   round1.RoundID,
				LeagueID:  "league-1",
				PlayerAID: ref.Players[0],
				PlayerBID: ref.Players[1],
				State:     models.MatchFinished,
				Outcome:   "decided",
				Statuses: map[string]models.PlayerStatus{
					ref.Players[0]: models.StatusWin,
					ref.Players[1]: models.StatusLoss,
				},
			},
		}))

		match := &models.Match{
			MatchID:   ref.MatchID,
			RoundID:   round1.RoundID,
			LeagueID:  "league-1",
			PlayerAID: ref.Players[0],
			PlayerBID: ref.Players[1],
			State:     models.MatchFinished,
			Statuses: map[string]models.PlayerStatus{
				ref.Players[0]: models.StatusWin,
				ref.Players[1]: models.StatusLoss,
			},
		}

		rpcErr := mgr.ReportMatchResult(context.Background(), match)
		require.Nil(t, rpcErr)

		if i == 0 {
			// Only one of two matches in the round is finished: must not advance.
			require.Never(t, func() bool {
				return mgr.Snapshot().CurrentRound > round1.RoundID
			}, 100*time.Millisecond, 10*time.Millisecond)
		}
	}

	require.Eventually(t, func() bool {
		return mgr.Snapshot().CurrentRound > round1.RoundID
	}, time.Second, 10*time.Millisecond)

	persisted, err := st.LoadRounds("league-1")
	require.NoError(t, err)
	require.Equal(t, models.RoundCompleted, persisted.Rounds[0].Status, "round completion must be persisted to rounds.json")
}

func TestSnapshot_ReturnsACopyNotALiveReference(t *testing.T) {
	mgr, _, _ := newTestManager(t, models.Participants{Min: 2, Max: 0}, nil)

	snap := mgr.Snapshot()
	snap.RegisteredPlayers = append(snap.RegisteredPlayers, "intruder")

	require.Empty(t, mgr.Snapshot().RegisteredPlayers)
}
