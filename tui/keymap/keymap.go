package keymap

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/traffisense/core/config"
)

// Dashboard holds the bindings of the live session view.
type Dashboard struct {
	Up        key.Binding
	Down      key.Binding
	Seek      key.Binding
	Direction key.Binding
	Reset     key.Binding
	Export    key.Binding
	Help      key.Binding
	Quit      key.Binding
}

// Default returns the stock dashboard bindings.
func Default() Dashboard {
	return Dashboard{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "previous violation"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "next violation"),
		),
		Seek: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "play violation"),
		),
		Direction: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "cycle direction"),
		),
		Reset: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reset"),
		),
		Export: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "export csv"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// Load returns the default bindings with tui.keys overrides applied.
func Load(cfg *config.Config) Dashboard {
	km := Default()
	if cfg == nil || cfg.TUI == nil {
		return km
	}
	ApplyOverrides(&km, cfg.TUI.Keys)
	return km
}

// ShortHelp implements help.KeyMap.
func (k Dashboard) ShortHelp() []key.Binding {
	return []key.Binding{k.Seek, k.Direction, k.Export, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap, one column per section.
func (k Dashboard) FullHelp() [][]key.Binding {
	var groups [][]key.Binding
	for _, s := range k.Sections() {
		if !s.IsEmpty() {
			groups = append(groups, s.FilterEnabled())
		}
	}
	return groups
}

// Sections groups the bindings for the help view.
func (k Dashboard) Sections() []Section {
	return []Section{
		NewSection(SectionViolations, k.Up, k.Down, k.Seek),
		NewSection(SectionSession, k.Direction, k.Reset, k.Export),
		NewSection(SectionSystem, k.Help, k.Quit),
	}
}
