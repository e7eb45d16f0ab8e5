package game

import (
	"testing"
)

func TestNextTheme_AvoidsUsedThemes(t *testing.T) {
	// Mark everything but one default theme as used; the survivor must win.
	used := make([]string, 0, len(DefaultThemes)-1)
	for _, theme := range DefaultThemes[1:] {
		used = append(used, theme)
	}

	for i := 0; i < 20; i++ {
		theme := NextTheme(used, nil)
		if theme != DefaultThemes[0] {
			t.Fatalf("Expected the only unused theme %q, got %q", DefaultThemes[0], theme)
		}
	}
}

func TestNextTheme_IncludesCustomThemes(t *testing.T) {
	custom := []string{"Tamanho de memes da internet"}
	theme := NextTheme(DefaultThemes, custom)
	if theme != custom[0] {
		t.Errorf("Expected the custom theme once defaults are exhausted, got %q", theme)
	}
}

func TestNextTheme_ExhaustedPoolFallsBackToDefaults(t *testing.T) {
	custom := []string{"Tamanho de memes da internet"}
	used := append(append([]string{}, DefaultThemes...), custom...)

	theme := NextTheme(used, custom)

	found := false
	for _, def := range DefaultThemes {
		if theme == def {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("Exhausted pool must fall back to the default list, got %q", theme)
	}
}

func TestNextTheme_NoExclusions(t *testing.T) {
	theme := NextTheme(nil, nil)
	found := false
	for _, def := range DefaultThemes {
		if theme == def {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("Expected a default theme, got %q", theme)
	}
}
