// Package dashboard is the interactive view of a live session.
package dashboard

import (
	"context"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/traffisense/core/pkg/models"
	"github.com/traffisense/core/pkg/session"
	"github.com/traffisense/core/tui/keymap"
	"github.com/traffisense/core/tui/theme"
)

// Controller is the part of session.Controller the view drives.
type Controller interface {
	Start(ctx context.Context, jobID string, dir models.Direction) error
	SetDirection(dir models.Direction) error
	Reset()
	Snapshot() session.State
	Subscribe() chan session.State
	Unsubscribe(ch chan session.State)
	SeekToViolation(ctx context.Context, player session.Player, videoURL string, violationID int, t float64)
}

// Exporter writes the report of a finished state and returns the file path.
type Exporter func(s session.State) (string, error)

// Options configures a Model.
type Options struct {
	// JobID restarts the session after a reset.
	JobID string
	// VideoBase resolves processed-video URLs for seeking.
	VideoBase string
	Player    session.Player
	// PreRoll matches the controller's seek offset, for the status line.
	PreRoll float64
	Export    Exporter
	Keys      keymap.Dashboard
	Theme     *theme.Theme
}

// Model is the bubbletea model of the dashboard.
type Model struct {
	ctx  context.Context
	ctrl Controller
	sub  chan session.State
	opts Options

	state    session.State
	keys     keymap.Dashboard
	theme    *theme.Theme
	help     help.Model
	progress progress.Model
	table    table.Model

	width   int
	height  int
	flash   string
	flashOK bool
}

// New creates the model and subscribes to ctrl. The subscription is
// released when the program quits.
func New(ctx context.Context, ctrl Controller, opts Options) Model {
	if ctx == nil {
		ctx = context.Background()
	}
	t := opts.Theme
	if t == nil {
		t = theme.DefaultTheme
	}
	if len(opts.Keys.Quit.Keys()) == 0 {
		opts.Keys = keymap.Default()
	}

	tbl := table.New(
		table.WithColumns(violationColumns(80)),
		table.WithFocused(true),
		table.WithHeight(6),
	)
	styles := table.DefaultStyles()
	styles.Header = t.TableHeader
	styles.Selected = t.Selected
	tbl.SetStyles(styles)

	m := Model{
		ctx:      ctx,
		ctrl:     ctrl,
		sub:      ctrl.Subscribe(),
		opts:     opts,
		state:    ctrl.Snapshot(),
		keys:     opts.Keys,
		theme:    t,
		help:     help.New(),
		progress: progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		table:    tbl,
		width:    80,
	}
	m.syncTable(true)
	return m
}

// State returns the last state the view rendered.
func (m Model) State() session.State {
	return m.state
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return waitForState(m.sub)
}

// Close releases the state subscription.
func (m Model) Close() {
	m.ctrl.Unsubscribe(m.sub)
}

// Run starts the dashboard as a full-screen program and blocks until the
// user quits.
func Run(ctx context.Context, ctrl Controller, opts Options) (session.State, error) {
	m := New(ctx, ctrl, opts)
	defer m.Close()

	final, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if fm, ok := final.(Model); ok {
		return fm.state, err
	}
	return ctrl.Snapshot(), err
}
