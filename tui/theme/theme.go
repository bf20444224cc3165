package theme

import (
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/traffisense/core/config"
)

const defaultThemeName = "kanagawa"

// palette is one set of hex or ANSI colors.
type palette struct {
	green, yellow, red, orange, cyan, blue, violet string
	lightText, darkText, border                    string
	selected, subtle                               string
}

var (
	kanagawaDragon = palette{
		green: "#98BB6C", yellow: "#FF9E3B", red: "#FF5D62", orange: "#FFA066",
		cyan: "#7E9CD8", blue: "#7FB4CA", violet: "#957FB8",
		lightText: "#DCD7BA", darkText: "#1D1C19", border: "#363646",
		selected: "#223249", subtle: "#1F1F28",
	}
	kanagawaLotus = palette{
		green: "#4E7C5A", yellow: "#A68A64", red: "#C34043", orange: "#CC6B4E",
		cyan: "#5B8BBE", blue: "#4F7CAC", violet: "#674D7A",
		lightText: "#2B2F42", darkText: "#E6E9EF", border: "#B5BDC5",
		selected: "#E2E6F3", subtle: "#F7F7FB",
	}
	gruvboxDark = palette{
		green: "#B8BB26", yellow: "#FABD2F", red: "#FB4934", orange: "#FE8019",
		cyan: "#83A598", blue: "#458588", violet: "#B16286",
		lightText: "#EBDBB2", darkText: "#1D2021", border: "#504945",
		selected: "#32302F", subtle: "#282828",
	}
	gruvboxLight = palette{
		green: "#98971A", yellow: "#D79921", red: "#CC241D", orange: "#D65D0E",
		cyan: "#458588", blue: "#076678", violet: "#8F3F71",
		lightText: "#3C3836", darkText: "#F9F5D7", border: "#D5C4A1",
		selected: "#F2E5BC", subtle: "#FBF1C7",
	}
	ansi = palette{
		green: "2", yellow: "3", red: "1", orange: "208",
		cyan: "6", blue: "4", violet: "5",
		lightText: "7", darkText: "0", border: "8",
		selected: "8", subtle: "0",
	}
)

// Colors is the palette of a theme. Entries are adaptive where the theme
// has a light variant.
type Colors struct {
	Green              lipgloss.TerminalColor
	Yellow             lipgloss.TerminalColor
	Red                lipgloss.TerminalColor
	Orange             lipgloss.TerminalColor
	Cyan               lipgloss.TerminalColor
	Blue               lipgloss.TerminalColor
	Violet             lipgloss.TerminalColor
	LightText          lipgloss.TerminalColor
	DarkText           lipgloss.TerminalColor
	Border             lipgloss.TerminalColor
	SelectedBackground lipgloss.TerminalColor
	SubtleBackground   lipgloss.TerminalColor
}

func adaptive(light, dark palette) Colors {
	c := func(l, d string) lipgloss.TerminalColor { return lipgloss.AdaptiveColor{Light: l, Dark: d} }
	return Colors{
		Green:              c(light.green, dark.green),
		Yellow:             c(light.yellow, dark.yellow),
		Red:                c(light.red, dark.red),
		Orange:             c(light.orange, dark.orange),
		Cyan:               c(light.cyan, dark.cyan),
		Blue:               c(light.blue, dark.blue),
		Violet:             c(light.violet, dark.violet),
		LightText:          c(light.lightText, dark.lightText),
		DarkText:           c(light.darkText, dark.darkText),
		Border:             c(light.border, dark.border),
		SelectedBackground: c(light.selected, dark.selected),
		SubtleBackground:   c(light.subtle, dark.subtle),
	}
}

// static uses p whatever the terminal background.
func static(p palette) Colors {
	c := func(v string) lipgloss.TerminalColor { return lipgloss.Color(v) }
	return Colors{
		Green: c(p.green), Yellow: c(p.yellow), Red: c(p.red), Orange: c(p.orange),
		Cyan: c(p.cyan), Blue: c(p.blue), Violet: c(p.violet),
		LightText: c(p.lightText), DarkText: c(p.darkText), Border: c(p.border),
		SelectedBackground: c(p.selected), SubtleBackground: c(p.subtle),
	}
}

// Theme holds the styles shared by the CLI and the dashboard.
type Theme struct {
	Name   string
	Colors Colors

	Header lipgloss.Style
	Title  lipgloss.Style

	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style

	Bold     lipgloss.Style
	Normal   lipgloss.Style
	Muted    lipgloss.Style
	Italic   lipgloss.Style
	Selected lipgloss.Style
	Accent   lipgloss.Style

	TableHeader lipgloss.Style

	// One style per notice kind; only one notice shows at a time.
	ViolationBanner  lipgloss.Style
	ErrorBanner      lipgloss.Style
	ConnectionBanner lipgloss.Style
}

var themes = map[string]func() Colors{
	"kanagawa": func() Colors { return adaptive(kanagawaLotus, kanagawaDragon) },
	"gruvbox":  func() Colors { return adaptive(gruvboxLight, gruvboxDark) },
	"terminal": func() Colors { return static(ansi) },
}

var themeAliases = map[string]string{
	"kanagawa-dark":   "kanagawa",
	"kanagawa-dragon": "kanagawa",
	"kanagawa-wave":   "kanagawa",
	"gruvbox-dark":    "gruvbox",
	"gruvbox-light":   "gruvbox",
	"ansi":            "terminal",
}

// DefaultTheme is the theme selected by TRAFFISENSE_THEME or tui.theme.
var DefaultTheme = NewTheme()

// Names lists the selectable themes.
func Names() []string {
	names := make([]string, 0, len(themes))
	for name := range themes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewTheme creates the theme named by the environment or configuration.
func NewTheme() *Theme {
	return NewThemeWithName(configuredName())
}

// NewThemeWithName builds a named theme. Unknown names fall back to
// kanagawa.
func NewThemeWithName(name string) *Theme {
	key := resolveThemeName(name)
	return build(key, themes[key]())
}

func build(name string, colors Colors) *Theme {
	banner := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	bold := lipgloss.NewStyle().Bold(true)
	return &Theme{
		Name:   name,
		Colors: colors,

		Header: bold.MarginBottom(1),
		Title:  bold.Underline(true),

		Success: bold.Foreground(colors.Green),
		Error:   bold.Foreground(colors.Red),
		Warning: bold.Foreground(colors.Yellow),
		Info:    bold.Foreground(colors.Cyan),

		Bold:     bold,
		Normal:   lipgloss.NewStyle(),
		Muted:    lipgloss.NewStyle().Faint(true),
		Italic:   lipgloss.NewStyle().Italic(true),
		Selected: lipgloss.NewStyle().Background(colors.SelectedBackground).Foreground(colors.LightText),
		Accent:   bold.Foreground(colors.Violet),

		TableHeader: bold.
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(colors.Border),

		ViolationBanner:  banner.Foreground(colors.DarkText).Background(colors.Red),
		ErrorBanner:      banner.Foreground(colors.Red),
		ConnectionBanner: banner.Foreground(colors.Yellow),
	}
}

func resolveThemeName(name string) string {
	key := normalizeThemeName(name)
	if alias, ok := themeAliases[key]; ok {
		key = alias
	}
	if _, ok := themes[key]; ok {
		return key
	}
	return defaultThemeName
}

func normalizeThemeName(name string) string {
	r := strings.NewReplacer(" ", "-", "_", "-")
	return r.Replace(strings.ToLower(strings.TrimSpace(name)))
}

func configuredName() string {
	if name := normalizeThemeName(os.Getenv("TRAFFISENSE_THEME")); name != "" {
		return name
	}
	cfg, err := config.LoadDefault()
	if err != nil || cfg == nil || cfg.TUI == nil {
		return defaultThemeName
	}
	if name := normalizeThemeName(cfg.TUI.Theme); name != "" {
		return name
	}
	return defaultThemeName
}
