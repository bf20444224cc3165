// Package tui holds what the terminal views share: terminal setup, the
// theme and the key maps.
package tui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// ColorProfile picks the lipgloss profile for the environment. NO_COLOR
// wins over CLICOLOR_FORCE and COLORTERM=truecolor. ok is false when the
// environment says nothing and terminal detection should decide.
func ColorProfile(getenv func(string) string) (profile termenv.Profile, ok bool) {
	switch {
	case getenv("NO_COLOR") != "":
		return termenv.Ascii, true
	case getenv("CLICOLOR_FORCE") == "1", getenv("COLORTERM") == "truecolor":
		return termenv.TrueColor, true
	}
	return termenv.Ascii, false
}

// InitializeTUI applies the environment's color settings. Call it before
// starting a bubbletea program.
func InitializeTUI() {
	if profile, ok := ColorProfile(os.Getenv); ok {
		lipgloss.SetColorProfile(profile)
	}
}

// Interactive reports whether stdout is a terminal the dashboard can take
// over.
func Interactive() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
