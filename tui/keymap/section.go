package keymap

import "github.com/charmbracelet/bubbles/key"

// Section names used by the dashboard help.
const (
	SectionViolations = "Violations"
	SectionSession    = "Session"
	SectionSystem     = "System"
)

// Section is a named group of bindings.
type Section struct {
	Name     string
	Bindings []key.Binding
}

// NewSection creates a section.
func NewSection(name string, bindings ...key.Binding) Section {
	return Section{Name: name, Bindings: bindings}
}

// FilterEnabled returns the enabled bindings.
func (s Section) FilterEnabled() []key.Binding {
	var result []key.Binding
	for _, b := range s.Bindings {
		if b.Enabled() {
			result = append(result, b)
		}
	}
	return result
}

// IsEmpty reports whether no binding is enabled.
func (s Section) IsEmpty() bool {
	return len(s.FilterEnabled()) == 0
}
