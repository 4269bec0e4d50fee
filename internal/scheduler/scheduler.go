// Package scheduler implements the circle-method round-robin builder
// (spec.md §4.3): deterministic player shuffling, round-robin pairing, and
// referee assignment with sub-batch dispatch when a referee's concurrency
// cap would otherwise be exceeded.
package scheduler

import (
	"fmt"
	"hash/fnv"
	"sort"

	"league-core/internal/models"
)

const byeSentinel = ""

// seedFor derives a deterministic seed from the league_id, per spec.md §4.3
// ("order shuffled deterministically with seed = hash(league_id)") and §8
// property 10 ("deterministic in (sorted players, league_id)").
func seedFor(leagueID string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(leagueID))
	return h.Sum64()
}

// deterministicShuffle reorders a sorted copy of players using a
// Fisher-Yates shuffle driven by a splitmix64 PRNG seeded from leagueID, so
// the same (players, leagueID) always produces the same order.
func deterministicShuffle(players []string, leagueID string) []string {
	sorted := append([]string(nil), players...)
	sort.Strings(sorted)

	state := seedFor(leagueID)
	next := func() uint64 {
		state += 0x9E3779B97F4A7C15
		z := state
		z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
		z = (z ^ (z >> 27)) * 0x94D049BB133111EB
		return z ^ (z >> 31)
	}

	for i := len(sorted) - 1; i > 0; i-- {
		j := int(next() % uint64(i+1))
		sorted[i], sorted[j] = sorted[j], sorted[i]
	}
	return sorted
}

// BuildSchedule produces the full round-robin schedule for a league using
// the circle method: fix position 0, rotate the remaining N-1 positions one
// step per round, pairing i with (N-1-i) for i in [0, N/2). A bye is
// appended for odd N and any pairing involving it is dropped (spec.md §4.3).
//
// referees assigns the k-th match of each round to referees[k % len(referees)].
// BuildSchedule does not use maxConcurrentPerReferee; Batches applies that
// cap when a round is dispatched. All matches of a round carry the same
// round identity.
func BuildSchedule(leagueID string, players []string, referees []string, maxConcurrentPerReferee int) (*models.RoundSchedule, error) {
	if len(referees) == 0 {
		return nil, fmt.Errorf("scheduler: at least one referee is required")
	}
	if len(players) < 2 {
		return nil, fmt.Errorf("scheduler: at least two players are required")
	}

	order := deterministicShuffle(players, leagueID)
	hasBye := len(order)%2 != 0
	if hasBye {
		order = append(order, byeSentinel)
	}
	n := len(order)
	numRounds := n - 1

	sched := &models.RoundSchedule{LeagueID: leagueID}

	// positions[i] holds the player currently at circle position i; position
	// 0 is fixed, positions 1..n-1 rotate one step each round.
	positions := append([]string(nil), order...)

	for roundIdx := 0; roundIdx < numRounds; roundIdx++ {
		round := &models.Round{
			RoundID:  roundIdx + 1,
			LeagueID: leagueID,
			Status:   models.RoundPending,
		}

		matchIdx := 0
		for i := 0; i < n/2; i++ {
			a := positions[i]
			b := positions[n-1-i]
			if a == byeSentinel || b == byeSentinel {
				continue
			}
			refereeID := referees[matchIdx%len(referees)]
			round.Matches = append(round.Matches, &models.MatchRef{
				MatchID:   fmt.Sprintf("R%dM%d", roundIdx+1, matchIdx+1),
				Players:   [2]string{a, b},
				RefereeID: refereeID,
				Status:    models.MatchScheduled,
			})
			matchIdx++
		}

		sched.Rounds = append(sched.Rounds, round)
		positions = rotate(positions)
	}

	return sched, nil
}

// rotate fixes position 0 and shifts positions 1..n-1 one step, wrapping
// the last element back to position 1 (the circle method's single rotation
// step per round).
func rotate(positions []string) []string {
	n := len(positions)
	if n <= 2 {
		return positions
	}
	next := make([]string, n)
	next[0] = positions[0]
	next[1] = positions[n-1]
	copy(next[2:], positions[1:n-1])
	return next
}

// Batches splits a round's matches into sub-batches such that no referee
// appears more than maxConcurrentPerReferee times within a single batch,
// preserving round identity across batches (spec.md §4.3).
func Batches(round *models.Round, maxConcurrentPerReferee int) [][]*models.MatchRef {
	if maxConcurrentPerReferee <= 0 {
		return [][]*models.MatchRef{round.Matches}
	}

	var batches [][]*models.MatchRef
	load := make(map[string]int)
	var current []*models.MatchRef

	for _, m := range round.Matches {
		if load[m.RefereeID] >= maxConcurrentPerReferee {
			batches = append(batches, current)
			current = nil
			load = make(map[string]int)
		}
		current = append(current, m)
		load[m.RefereeID]++
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches
}
