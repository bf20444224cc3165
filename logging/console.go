package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/traffisense/core/tui/theme"
)

// Console prints styled, user-facing command output. Structured logs go
// through NewLogger instead.
type Console struct {
	w     io.Writer
	theme *theme.Theme
}

// NewConsole returns a console writing to w with the active theme.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w, theme: theme.DefaultTheme}
}

func (c *Console) line(icon string, style lipgloss.Style, msg string) {
	fmt.Fprintf(c.w, "%s %s\n", style.Render(icon), style.Render(msg))
}

// Success prints msg behind a check mark.
func (c *Console) Success(msg string) { c.line(theme.IconSuccess, c.theme.Success, msg) }

// Warn prints msg behind a warning sign.
func (c *Console) Warn(msg string) { c.line(theme.IconWarning, c.theme.Warning, msg) }

// Error prints msg and, when set, err.
func (c *Console) Error(msg string, err error) {
	if err != nil {
		msg += ": " + err.Error()
	}
	c.line(theme.IconError, c.theme.Error, msg)
}

// Fields prints key/value pairs, one per line, with the keys aligned.
// A trailing key without a value is ignored.
func (c *Console) Fields(kv ...interface{}) {
	width := 0
	for i := 0; i+1 < len(kv); i += 2 {
		if n := len(fmt.Sprint(kv[i])); n > width {
			width = n
		}
	}
	for i := 0; i+1 < len(kv); i += 2 {
		key := fmt.Sprint(kv[i])
		pad := strings.Repeat(" ", width-len(key))
		fmt.Fprintf(c.w, "  %s%s  %s\n", c.theme.Muted.Render(key+":"), pad, c.theme.Bold.Render(fmt.Sprint(kv[i+1])))
	}
}

// Saved reports a file written by the command.
func (c *Console) Saved(label, path string) {
	style := lipgloss.NewStyle().Foreground(c.theme.Colors.Cyan).Italic(true)
	fmt.Fprintf(c.w, "%s %s %s\n", c.theme.Success.Render(theme.IconSave), label, style.Render(path))
}
