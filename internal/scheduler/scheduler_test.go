package scheduler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildSchedule_EveryPairExactlyOnce(t *testing.T) {
	players := []string{"p01", "p02", "p03", "p04"}
	referees := []string{"ref1"}

	sched, err := BuildSchedule("league-1", players, referees, 0)
	require.NoError(t, err)
	require.Len(t, sched.Rounds, 3)

	seen := make(map[[2]string]int)
	for _, round := range sched.Rounds {
		playersThisRound := make(map[string]bool)
		for _, m := range round.Matches {
			for _, p := range m.Players {
				require.False(t, playersThisRound[p], "player %s appears twice in round %d", p, round.RoundID)
				playersThisRound[p] = true
			}
			key := pairKey(m.Players[0], m.Players[1])
			seen[key]++
		}
	}

	// 4 players => 6 unordered pairs, each exactly once.
	require.Len(t, seen, 6)
	for pair, count := range seen {
		require.Equal(t, 1, count, "pair %v should appear exactly once", pair)
	}
}

func TestBuildSchedule_OddPlayersDropsBye(t *testing.T) {
	players := []string{"p01", "p02", "p03"}
	referees := []string{"ref1"}

	sched, err := BuildSchedule("league-odd", players, referees, 0)
	require.NoError(t, err)
	require.Len(t, sched.Rounds, 3)
	for _, round := range sched.Rounds {
		require.Len(t, round.Matches, 1, "3 players => exactly 1 match per round")
	}
}

func TestBuildSchedule_Deterministic(t *testing.T) {
	players := []string{"p03", "p01", "p04", "p02"}
	referees := []string{"refA", "refB"}

	a, err := BuildSchedule("league-x", players, referees, 0)
	require.NoError(t, err)
	b, err := BuildSchedule("league-x", append([]string(nil), players...), referees, 0)
	require.NoError(t, err)

	require.Equal(t, a, b)
}

func TestBuildSchedule_RefereeAssignmentRoundRobin(t *testing.T) {
	players := []string{"p01", "p02", "p03", "p04", "p05", "p06"}
	referees := []string{"refA", "refB"}

	sched, err := BuildSchedule("league-refs", players, referees, 0)
	require.NoError(t, err)
	for _, round := range sched.Rounds {
		for k, m := range round.Matches {
			require.Equal(t, referees[k%len(referees)], m.RefereeID)
		}
	}
}

func pairKey(a, b string) [2]string {
	if a < b {
		return [2]string{a, b}
	}
	return [2]string{b, a}
}
