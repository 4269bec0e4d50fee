package aggregator

import (
	"hash/fnv"
	"sort"

	"league-core/internal/models"
)

// Ranked orders a standings snapshot's rows for the GET_STANDINGS query,
// applying tiebreakers in order (spec.md §3): points, then wins, then
// head-to-head record against the tied opponent, then a deterministic
// pseudo-random tiebreak seeded by (league_id, round) so repeated queries
// within the same round return a stable order.
func Ranked(snap *models.Standings, tiebreakers []models.Tiebreaker, round int) []*models.StandingsRow {
	rows := make([]*models.StandingsRow, 0, len(snap.Rows))
	for _, row := range snap.Rows {
		rows = append(rows, row)
	}

	randRank := deterministicRandomRank(snap.LeagueID, round, rows)

	sort.SliceStable(rows, func(i, j int) bool {
		for _, tb := range tiebreakers {
			cmp := compareRows(rows[i], rows[j], tb, randRank)
			if cmp != 0 {
				return cmp > 0
			}
		}
		return false
	})
	return rows
}

// compareRows returns >0 if a ranks above b under tiebreaker tb, <0 if
// below, 0 if tb does not distinguish them.
func compareRows(a, b *models.StandingsRow, tb models.Tiebreaker, randRank map[string]uint64) int {
	switch tb {
	case models.TiebreakPoints:
		return a.Points - b.Points
	case models.TiebreakWins:
		return a.Wins - b.Wins
	case models.TiebreakHeadToHead:
		return headToHeadDelta(a, b)
	case models.TiebreakRandom:
		if randRank[a.PlayerID] > randRank[b.PlayerID] {
			return 1
		}
		if randRank[a.PlayerID] < randRank[b.PlayerID] {
			return -1
		}
		return 0
	default:
		return 0
	}
}

// headToHeadDelta compares a and b using only their record against each
// other, not their overall head-to-head tallies.
func headToHeadDelta(a, b *models.StandingsRow) int {
	var aScore, bScore int
	if h, ok := a.HeadToHead[b.PlayerID]; ok {
		aScore = h.Wins*2 + h.Draws
	}
	if h, ok := b.HeadToHead[a.PlayerID]; ok {
		bScore = h.Wins*2 + h.Draws
	}
	return aScore - bScore
}

// deterministicRandomRank assigns each row a stable pseudo-random rank key
// derived from (league_id, round, player_id), so the "random" tiebreaker is
// reproducible for a given round rather than actually nondeterministic
// (spec.md §9's resolved open question: ties broken deterministically, not
// by wall-clock randomness).
func deterministicRandomRank(leagueID string, round int, rows []*models.StandingsRow) map[string]uint64 {
	out := make(map[string]uint64, len(rows))
	for _, row := range rows {
		h := fnv.New64a()
		_, _ = h.Write([]byte(leagueID))
		_, _ = h.Write([]byte{byte(round), byte(round >> 8)})
		_, _ = h.Write([]byte(row.PlayerID))
		out[row.PlayerID] = h.Sum64()
	}
	return out
}
