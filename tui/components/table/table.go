package table

import (
	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"

	"github.com/traffisense/core/tui/theme"
)

// Options configures a styled table.
type Options struct {
	Theme         *theme.Theme
	Bordered      bool
	AlternateRows bool
	// Highlight marks one data row (zero-based); -1 for none.
	Highlight int
}

// DefaultOptions returns a bordered table with alternating rows.
func DefaultOptions() Options {
	return Options{
		Theme:         theme.DefaultTheme,
		Bordered:      true,
		AlternateRows: true,
		Highlight:     -1,
	}
}

// New creates a lipgloss table styled with opts.
func New(opts Options) *ltable.Table {
	t := opts.Theme
	if t == nil {
		t = theme.DefaultTheme
	}

	tbl := ltable.New()
	if opts.Bordered {
		tbl = tbl.Border(lipgloss.RoundedBorder()).
			BorderStyle(lipgloss.NewStyle().Foreground(t.Colors.Border))
	} else {
		tbl = tbl.Border(lipgloss.HiddenBorder())
	}

	return tbl.StyleFunc(func(row, col int) lipgloss.Style {
		cell := lipgloss.NewStyle().Padding(0, 1)
		switch {
		case row == ltable.HeaderRow:
			return t.TableHeader.Padding(0, 1)
		case row == opts.Highlight:
			return t.Selected.Padding(0, 1)
		case opts.AlternateRows && row%2 == 1:
			return cell.Background(t.Colors.SubtleBackground)
		}
		return cell
	})
}

// Render draws headers and rows with the default options.
func Render(headers []string, rows [][]string) string {
	return New(DefaultOptions()).Headers(headers...).Rows(rows...).String()
}

// KeyValue draws a borderless two-column table, keys muted.
func KeyValue(pairs [][2]string) string {
	t := theme.DefaultTheme
	rows := make([][]string, 0, len(pairs))
	for _, p := range pairs {
		rows = append(rows, []string{p[0], p[1]})
	}
	return ltable.New().
		Border(lipgloss.HiddenBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if col == 0 {
				return t.Muted.PaddingRight(2)
			}
			return t.Normal
		}).
		Rows(rows...).
		String()
}
