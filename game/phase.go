package game

import (
	"fmt"

	"github.com/itoloop/itoserver/models"
)

// NextPhase walks the forward chain one step. lastRound selects the reveal
// exit: back to briefing while rounds remain, finished otherwise. Lobby and
// finished have no forward step; lobby is only left through StartGame.
func NextPhase(current models.Phase, lastRound bool) (models.Phase, error) {
	switch current {
	case models.PhaseBriefing:
		return models.PhaseClues, nil
	case models.PhaseClues:
		return models.PhaseDiscussion, nil
	case models.PhaseDiscussion:
		return models.PhaseReveal, nil
	case models.PhaseReveal:
		if lastRound {
			return models.PhaseFinished, nil
		}
		return models.PhaseBriefing, nil
	}
	return "", fmt.Errorf("no forward transition from phase %q", current)
}
