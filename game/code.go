package game

import (
	"fmt"
	"math/rand"
	"strings"
)

// codeAlphabet excludes easily-confused glyphs (0/O, 1/I).
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const CodeLength = 6

// GenerateRoomCode returns a fresh shareable room code. Uniqueness is the
// registry's concern, not the generator's.
func GenerateRoomCode() string {
	var b strings.Builder
	b.Grow(CodeLength)
	for i := 0; i < CodeLength; i++ {
		b.WriteByte(codeAlphabet[rand.Intn(len(codeAlphabet))])
	}
	return b.String()
}

// NormalizeRoomCode upper-cases a caller-supplied code; lookups are
// case-insensitive.
func NormalizeRoomCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidateRoomCode checks the fixed-length, unambiguous-alphabet format.
// The code must already be normalized.
func ValidateRoomCode(code string) error {
	if len(code) != CodeLength {
		return fmt.Errorf("room code must have %d characters", CodeLength)
	}
	for i := 0; i < len(code); i++ {
		if !strings.ContainsRune(codeAlphabet, rune(code[i])) {
			return fmt.Errorf("room code contains invalid character %q", code[i])
		}
	}
	return nil
}
