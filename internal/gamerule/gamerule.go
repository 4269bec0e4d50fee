// Package gamerule defines the pluggable game rule contract used by the
// match conductor's DECIDED step (spec.md §4.4 step 5, §4.7), and the
// even/odd implementation required by this core.
package gamerule

import (
	"crypto/rand"
	"math/big"

	"league-core/internal/models"
)

// DrawFunc yields an integer in [low, high] inclusive. Production code uses
// CryptoDraw; tests inject a deterministic source (spec.md §4.4, §9).
type DrawFunc func(low, high int) (int, error)

// CryptoDraw draws uniformly from [low, high] using crypto/rand, satisfying
// the "cryptographically secure RNG" requirement of spec.md §4.4.
func CryptoDraw(low, high int) (int, error) {
	span := int64(high - low + 1)
	n, err := rand.Int(rand.Reader, big.NewInt(span))
	if err != nil {
		return 0, err
	}
	return low + int(n.Int64()), nil
}

// FixedDraw returns a DrawFunc that always yields n, for deterministic
// tests (spec.md §8 scenarios S1-S4 inject a fixed drawn number).
func FixedDraw(n int) DrawFunc {
	return func(low, high int) (int, error) { return n, nil }
}

// Outcome is the result of resolving one match's two choices.
type Outcome struct {
	Winner      string // player_id, or "DRAW"
	Statuses    map[string]models.PlayerStatus
	DrawnNumber int
}

// Rule is the single-method interface registries key by game_type
// (spec.md §4.7).
type Rule interface {
	// DetermineOutcome resolves the outcome for two surviving players given
	// their recorded choices. A choice of models.ParityNone indicates that
	// player already has a TECHNICAL_LOSS from an earlier step (missed join
	// or invalid/missing choice); the other side then wins outright with no
	// draw, per spec.md §4.4 step 5.
	DetermineOutcome(playerA, choiceA, playerB, choiceB string, draw DrawFunc) (*Outcome, error)
}

// Registry maps game_type to its Rule implementation.
type Registry struct {
	rules map[string]Rule
}

// NewRegistry creates a registry pre-populated with the even/odd rule under
// game_type "even_odd".
func NewRegistry() *Registry {
	r := &Registry{rules: make(map[string]Rule)}
	r.Register("even_odd", EvenOdd{})
	return r
}

// Register adds or replaces the rule for gameType.
func (r *Registry) Register(gameType string, rule Rule) {
	r.rules[gameType] = rule
}

// For returns the rule for gameType, or nil if none is registered.
func (r *Registry) For(gameType string) Rule {
	return r.rules[gameType]
}
