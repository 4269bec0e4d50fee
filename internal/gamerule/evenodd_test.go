package gamerule

import (
	"testing"

	"github.com/stretchr/testify/require"

	"league-core/internal/models"
)

func TestEvenOdd_WinLoss(t *testing.T) {
	rule := EvenOdd{}
	out, err := rule.DetermineOutcome("p01", "even", "p02", "odd", FixedDraw(4))
	require.NoError(t, err)
	require.Equal(t, "p01", out.Winner)
	require.Equal(t, models.StatusWin, out.Statuses["p01"])
	require.Equal(t, models.StatusLoss, out.Statuses["p02"])
	require.Equal(t, 4, out.DrawnNumber)
}

func TestEvenOdd_Draw(t *testing.T) {
	rule := EvenOdd{}
	out, err := rule.DetermineOutcome("p01", "even", "p02", "even", FixedDraw(7))
	require.NoError(t, err)
	require.Equal(t, "DRAW", out.Winner)
	require.Equal(t, models.StatusDraw, out.Statuses["p01"])
	require.Equal(t, models.StatusDraw, out.Statuses["p02"])
}

func TestEvenOdd_TechnicalLossOpponentWins(t *testing.T) {
	rule := EvenOdd{}
	out, err := rule.DetermineOutcome("p01", "even", "p02", string(models.ParityNone), FixedDraw(3))
	require.NoError(t, err)
	require.Equal(t, "p01", out.Winner)
	require.Equal(t, models.StatusWin, out.Statuses["p01"])
	require.Equal(t, models.StatusTechnicalLoss, out.Statuses["p02"])
}

func TestEvenOdd_OddParityWin(t *testing.T) {
	rule := EvenOdd{}
	out, err := rule.DetermineOutcome("p01", "even", "p02", "odd", FixedDraw(5))
	require.NoError(t, err)
	require.Equal(t, "p02", out.Winner)
	require.Equal(t, models.StatusWin, out.Statuses["p02"])
}
