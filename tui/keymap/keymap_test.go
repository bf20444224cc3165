package keymap

import (
	"testing"

	"github.com/traffisense/core/config"
)

func TestDefault(t *testing.T) {
	km := Default()

	tests := []struct {
		name string
		keys []string
		want string
	}{
		{"Direction", km.Direction.Keys(), "d"},
		{"Reset", km.Reset.Keys(), "r"},
		{"Export", km.Export.Keys(), "e"},
		{"Seek", km.Seek.Keys(), "enter"},
		{"Up", km.Up.Keys(), "up"},
		{"Down", km.Down.Keys(), "down"},
		{"Quit", km.Quit.Keys(), "q"},
	}
	for _, tt := range tests {
		if len(tt.keys) == 0 || tt.keys[0] != tt.want {
			t.Errorf("%s: expected first key %q, got %v", tt.name, tt.want, tt.keys)
		}
	}
}

func TestLoadNilConfig(t *testing.T) {
	km := Load(nil)
	if km.Quit.Keys()[0] != "q" {
		t.Errorf("expected defaults for nil config, got Quit=%v", km.Quit.Keys())
	}

	km = Load(&config.Config{})
	if km.Export.Keys()[0] != "e" {
		t.Errorf("expected defaults without tui section, got Export=%v", km.Export.Keys())
	}
}

func TestLoadOverrides(t *testing.T) {
	cfg := &config.Config{TUI: &config.TUIConfig{Keys: map[string][]string{
		"export":    {"x", "ctrl+e"},
		"direction": {"D"},
	}}}
	km := Load(cfg)

	if keys := km.Export.Keys(); len(keys) != 2 || keys[0] != "x" || keys[1] != "ctrl+e" {
		t.Errorf("Export not overridden: %v", keys)
	}
	if km.Export.Help().Desc != "export csv" {
		t.Errorf("help text lost: %q", km.Export.Help().Desc)
	}
	if km.Direction.Keys()[0] != "D" {
		t.Errorf("Direction not overridden: %v", km.Direction.Keys())
	}
	if km.Reset.Keys()[0] != "r" {
		t.Errorf("Reset should keep its default, got %v", km.Reset.Keys())
	}
}

func TestSections(t *testing.T) {
	sections := Default().Sections()
	want := []string{SectionViolations, SectionSession, SectionSystem}
	if len(sections) != len(want) {
		t.Fatalf("expected %d sections, got %d", len(want), len(sections))
	}
	for i, name := range want {
		if sections[i].Name != name {
			t.Errorf("section %d: expected %q, got %q", i, name, sections[i].Name)
		}
		if sections[i].IsEmpty() {
			t.Errorf("section %q is empty", name)
		}
	}
}

func TestFullHelpSkipsDisabled(t *testing.T) {
	km := Default()
	ApplyOverrides(&km, map[string][]string{"help": {}, "quit": {}})

	help := km.FullHelp()
	if len(help) != 2 {
		t.Errorf("expected the system group to disappear, got %d groups", len(help))
	}
}

func TestShortHelp(t *testing.T) {
	km := Default()
	help := km.ShortHelp()
	if len(help) == 0 {
		t.Fatal("expected bindings in short help")
	}
	last := help[len(help)-1]
	if last.Keys()[0] != km.Quit.Keys()[0] {
		t.Errorf("expected Quit last in short help")
	}
}
