package gamerule

import "league-core/internal/models"

// drawLow and drawHigh bound the range the number is drawn from (spec.md §4.4 step 5).
const drawLow, drawHigh = 1, 10

// EvenOdd implements the even/odd parity game: a number 1..10 is drawn, and
// whichever player's choice matches its parity wins. Identical choices draw
// ("prevents simultaneous wins/losses in the parity game" per spec.md §4.4).
type EvenOdd struct{}

func (EvenOdd) DetermineOutcome(playerA, choiceA, playerB, choiceB string, draw DrawFunc) (*Outcome, error) {
	// If one side already carries a technical loss (choice is empty/invalid
	// sentinel), the other side wins outright — no draw is possible.
	if choiceA == string(models.ParityNone) && choiceB != string(models.ParityNone) {
		n, err := draw(drawLow, drawHigh)
		if err != nil {
			return nil, err
		}
		return &Outcome{
			Winner:      playerB,
			DrawnNumber: n,
			Statuses: map[string]models.PlayerStatus{
				playerA: models.StatusTechnicalLoss,
				playerB: models.StatusWin,
			},
		}, nil
	}
	if choiceB == string(models.ParityNone) && choiceA != string(models.ParityNone) {
		n, err := draw(drawLow, drawHigh)
		if err != nil {
			return nil, err
		}
		return &Outcome{
			Winner:      playerA,
			DrawnNumber: n,
			Statuses: map[string]models.PlayerStatus{
				playerA: models.StatusWin,
				playerB: models.StatusTechnicalLoss,
			},
		}, nil
	}

	n, err := draw(drawLow, drawHigh)
	if err != nil {
		return nil, err
	}
	numberParity := string(models.ParityOdd)
	if n%2 == 0 {
		numberParity = string(models.ParityEven)
	}

	if choiceA == choiceB {
		return &Outcome{
			Winner:      "DRAW",
			DrawnNumber: n,
			Statuses: map[string]models.PlayerStatus{
				playerA: models.StatusDraw,
				playerB: models.StatusDraw,
			},
		}, nil
	}

	var winner, loser string
	if choiceA == numberParity {
		winner, loser = playerA, playerB
	} else {
		winner, loser = playerB, playerA
	}

	return &Outcome{
		Winner:      winner,
		DrawnNumber: n,
		Statuses: map[string]models.PlayerStatus{
			winner: models.StatusWin,
			loser:  models.StatusLoss,
		},
	}, nil
}
