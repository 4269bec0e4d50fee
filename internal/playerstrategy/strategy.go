// Package playerstrategy defines the pluggable decision contract a player
// agent uses to answer CHOOSE_PARITY_CALL. Strategy implementations beyond
// the crypto-random default are left to callers (spec.md's Non-goals: "the
// implementation of player decision strategies").
package playerstrategy

import (
	"context"
	"crypto/rand"
	"math/big"

	"league-core/internal/models"
)

// Strategy picks a parity for the given match, given the opponent's
// agent_id for context. It must return within the CHOOSE_PARITY_CALL
// deadline enforced by the dispatcher.
type Strategy func(ctx context.Context, matchID, opponentID string) (models.Parity, error)

// Random picks even or odd uniformly at random using a cryptographically
// secure source, matching the conductor's own draw for the underlying
// number (spec.md §4.4).
func Random(ctx context.Context, matchID, opponentID string) (models.Parity, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(2))
	if err != nil {
		return models.ParityNone, err
	}
	if n.Int64() == 0 {
		return models.ParityEven, nil
	}
	return models.ParityOdd, nil
}
