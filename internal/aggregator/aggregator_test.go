package aggregator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"league-core/internal/models"
	"league-core/internal/store"
)

func newTestAggregator(t *testing.T) (*Aggregator, *store.Store) {
	t.Helper()
	st := store.New(t.TempDir())
	scoring := func(string) models.Scoring { return models.DefaultScoring() }
	a := New(st, scoring, zap.NewNop(), nil)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		a.Shutdown(ctx)
	})
	return a, st
}

func finishedMatch(id, leagueID, a, b string, aStatus, bStatus models.PlayerStatus) *models.Match {
	return &models.Match{
		MatchID: id, LeagueID: leagueID,
		PlayerAID: a, PlayerBID: b,
		State:    models.MatchFinished,
		Statuses: map[string]models.PlayerStatus{a: aStatus, b: bStatus},
	}
}

func waitForProcessed(t *testing.T, st *store.Store, leagueID, matchID string) *models.Standings {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap, err := st.LoadStandings(leagueID)
		require.NoError(t, err)
		if snap.Processed(matchID) {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("match %s was never processed into standings", matchID)
	return nil
}

func TestAggregator_AppliesSingleResult(t *testing.T) {
	agg, st := newTestAggregator(t)

	m := finishedMatch("R1M1", "league-1", "p01", "p02", models.StatusWin, models.StatusLoss)
	require.Nil(t, agg.Submit(m))

	snap := waitForProcessed(t, st, "league-1", "R1M1")
	require.Equal(t, 3, snap.Rows["p01"].Points)
	require.Equal(t, 0, snap.Rows["p02"].Points)
}

func TestAggregator_DuplicateReportAppliedOnce(t *testing.T) {
	agg, st := newTestAggregator(t)

	m := finishedMatch("R1M2", "league-1", "p01", "p02", models.StatusDraw, models.StatusDraw)
	require.Nil(t, agg.Submit(m))
	waitForProcessed(t, st, "league-1", "R1M2")

	require.Nil(t, agg.Submit(m))
	time.Sleep(50 * time.Millisecond)

	snap, err := st.LoadStandings("league-1")
	require.NoError(t, err)
	require.Equal(t, 1, snap.Rows["p01"].GamesPlayed, "second report of the same match must not double-count")
}

func TestAggregator_ConcurrentReportsAllLand(t *testing.T) {
	agg, st := newTestAggregator(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := "R1M" + string(rune('A'+i))
			m := finishedMatch(id, "league-conc", "p01", "p02", models.StatusWin, models.StatusLoss)
			for {
				if err := agg.Submit(m); err == nil {
					return
				}
				time.Sleep(time.Millisecond)
			}
		}()
	}
	wg.Wait()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap, err := st.LoadStandings("league-conc")
		require.NoError(t, err)
		if snap.Rows["p01"] != nil && snap.Rows["p01"].GamesPlayed == 20 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("not all concurrent reports were applied")
}

func TestRanked_OrdersByPointsThenHeadToHead(t *testing.T) {
	snap := models.NewStandings("league-rank")
	a := snap.RowFor("p01")
	a.Points = 6
	b := snap.RowFor("p02")
	b.Points = 6
	b.HeadToHead["p01"] = &models.HeadToHead{Wins: 1}
	a.HeadToHead["p02"] = &models.HeadToHead{Losses: 1}

	ranked := Ranked(snap, models.DefaultTiebreakers, 1)
	require.Equal(t, "p02", ranked[0].PlayerID)
	require.Equal(t, "p01", ranked[1].PlayerID)
}
