package game

import (
	"sort"

	"github.com/itoloop/itoserver/models"
)

// OrderResult is the outcome of one round's ordering.
type OrderResult struct {
	Correct  bool `json:"correct"`
	Mistakes int  `json:"mistakes"`
}

// EvaluateOrder checks the claimed ordering against the hidden numbers.
// Players are sorted by ascending position; every adjacent pair whose secret
// numbers are out of order counts as one mistake. Players missing either
// field (spectators, mid-join edge cases) are ignored; with fewer than two
// evaluable players the round is trivially correct.
func EvaluateOrder(players []*models.Player, mode models.GameMode) OrderResult {
	ordered := make([]*models.Player, 0, len(players))
	for _, p := range players {
		if p.SecretNumber != nil && p.Position != nil {
			ordered = append(ordered, p)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return *ordered[i].Position < *ordered[j].Position
	})

	mistakes := 0
	for i := 0; i < len(ordered)-1; i++ {
		if *ordered[i].SecretNumber > *ordered[i+1].SecretNumber {
			mistakes++
		}
	}

	correct := mistakes == 0
	if mode == models.ModeEasy {
		correct = mistakes <= 1
	}
	return OrderResult{Correct: correct, Mistakes: mistakes}
}
