package game

import (
	"fmt"
	"strings"
	"unicode"
)

const (
	ClueMinLength = 3
	ClueMaxLength = 200
)

// numberWords are the spelled-out numbers rejected in clues. The product is
// pt-BR, so the list matches the room language.
var numberWords = []string{
	"zero", "um", "dois", "três", "quatro", "cinco", "seis", "sete", "oito", "nove", "dez",
	"onze", "doze", "treze", "quatorze", "quinze", "dezesseis", "dezessete", "dezoito", "dezenove", "vinte",
	"trinta", "quarenta", "cinquenta", "sessenta", "setenta", "oitenta", "noventa", "cem", "cento",
}

// ValidateClue enforces the clue contract: clues describe relative magnitude
// and never state it. Empty, too short, too long, or anything containing a
// digit or a spelled-out number is rejected.
func ValidateClue(clue string) error {
	if strings.TrimSpace(clue) == "" {
		return fmt.Errorf("clue must not be empty")
	}
	if len([]rune(clue)) < ClueMinLength {
		return fmt.Errorf("clue must have at least %d characters", ClueMinLength)
	}
	if len([]rune(clue)) > ClueMaxLength {
		return fmt.Errorf("clue must have at most %d characters", ClueMaxLength)
	}

	for _, r := range clue {
		if unicode.IsDigit(r) {
			return fmt.Errorf("clue must not contain digits")
		}
	}

	lower := strings.ToLower(clue)
	for _, word := range numberWords {
		if strings.Contains(lower, word) {
			return fmt.Errorf("clue must not spell out numbers")
		}
	}
	return nil
}
