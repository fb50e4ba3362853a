package ui

import (
	"strings"
	"testing"
)

func TestPalette(t *testing.T) {
	p := Styles()

	t.Run("renders the text", func(t *testing.T) {
		for name, render := range map[string]func(string) string{
			"Title": p.Title,
			"OK":    p.OK,
			"Error": p.Error,
			"Warn":  p.Warn,
			"Help":  p.Help,
		} {
			if out := render("hello"); !strings.Contains(out, "hello") {
				t.Errorf("%s: expected text to be kept, got %q", name, out)
			}
		}
	})

	t.Run("Check", func(t *testing.T) {
		if !strings.Contains(p.Check(true), "✓") || !strings.Contains(p.Check(false), "✗") {
			t.Error("expected check mark and cross")
		}
	})

	t.Run("Outcome", func(t *testing.T) {
		if !strings.Contains(p.Outcome("failure"), "failure") {
			t.Error("expected outcome text to be kept")
		}
	})
}
