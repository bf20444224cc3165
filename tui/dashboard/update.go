package dashboard

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/traffisense/core/pkg/models"
	"github.com/traffisense/core/pkg/session"
)

type stateMsg session.State

type subscriptionClosedMsg struct{}

type exportedMsg struct {
	path string
	err  error
}

type actionErrMsg struct{ err error }

type seekMsg struct {
	id       int
	position float64
}

func waitForState(sub chan session.State) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-sub
		if !ok {
			return subscriptionClosedMsg{}
		}
		return stateMsg(s)
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.progress.Width = max(10, msg.Width-24)
		m.table.SetColumns(violationColumns(msg.Width))
		m.table.SetWidth(msg.Width - 2)
		m.table.SetHeight(max(3, msg.Height-18))
		return m, nil

	case stateMsg:
		prev := m.state
		m.state = session.State(msg)
		if m.state.Generation != prev.Generation {
			m.flash = ""
		}
		m.syncTable(!sameID(prev.ActiveViolationID, m.state.ActiveViolationID))
		return m, waitForState(m.sub)

	case subscriptionClosedMsg:
		return m, tea.Quit

	case exportedMsg:
		if msg.err != nil {
			m.setFlash(fmt.Sprintf("Export failed: %v", msg.err), false)
		} else {
			m.setFlash("Report saved to "+msg.path, true)
		}
		return m, nil

	case seekMsg:
		m.setFlash(fmt.Sprintf("Playing violation #%d from %.2fs", msg.id, msg.position), true)
		return m, nil

	case actionErrMsg:
		m.setFlash(msg.err.Error(), false)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.Up):
		m.table.MoveUp(1)
		return m, nil

	case key.Matches(msg, m.keys.Down):
		m.table.MoveDown(1)
		return m, nil

	case key.Matches(msg, m.keys.Direction):
		return m, m.cycleDirection()

	case key.Matches(msg, m.keys.Reset):
		m.ctrl.Reset()
		m.setFlash("Session reset. Press "+m.keys.Direction.Help().Key+" to start again.", true)
		return m, nil

	case key.Matches(msg, m.keys.Seek):
		return m, m.seekSelected()

	case key.Matches(msg, m.keys.Export):
		return m, m.export()
	}
	return m, nil
}

// cycleDirection restarts the session with the next direction hint. After
// a reset it starts the remembered job again.
func (m Model) cycleDirection() tea.Cmd {
	next := NextDirection(m.state.Direction)
	ctrl, ctx := m.ctrl, m.ctx
	jobID := m.state.JobID
	if jobID == "" {
		jobID = m.opts.JobID
	}
	restart := m.state.JobID == ""
	return func() tea.Msg {
		var err error
		if restart {
			if jobID == "" {
				return actionErrMsg{fmt.Errorf("no job to start")}
			}
			err = ctrl.Start(ctx, jobID, next)
		} else {
			err = ctrl.SetDirection(next)
		}
		if err != nil {
			return actionErrMsg{err}
		}
		return nil
	}
}

func (m Model) seekSelected() tea.Cmd {
	v, ok := m.selectedViolation()
	if !ok {
		return nil
	}
	// Missing times seek to the start of the recording.
	start, _ := v.Start()
	videoURL := m.state.Report.VideoURL(m.opts.VideoBase)
	ctrl, ctx, player, preRoll := m.ctrl, m.ctx, m.opts.Player, m.opts.PreRoll
	return func() tea.Msg {
		ctrl.SeekToViolation(ctx, player, videoURL, v.ID, start)
		return seekMsg{id: v.ID, position: session.SeekPositionWithPreRoll(start, preRoll)}
	}
}

func (m Model) export() tea.Cmd {
	if m.state.Report == nil {
		return func() tea.Msg { return actionErrMsg{fmt.Errorf("no report yet")} }
	}
	if m.opts.Export == nil {
		return func() tea.Msg { return actionErrMsg{fmt.Errorf("export is not available")} }
	}
	s, export := m.state, m.opts.Export
	return func() tea.Msg {
		path, err := export(s)
		return exportedMsg{path: path, err: err}
	}
}

func (m *Model) setFlash(text string, ok bool) {
	m.flash, m.flashOK = text, ok
}

// selectedViolation resolves the table cursor against the report.
func (m Model) selectedViolation() (models.Violation, bool) {
	row := m.table.SelectedRow()
	if row == nil || m.state.Report == nil {
		return models.Violation{}, false
	}
	id, err := strconv.Atoi(row[0])
	if err != nil {
		return models.Violation{}, false
	}
	return m.state.Report.FindViolation(id)
}

// syncTable rebuilds the violation rows. focusActive moves the cursor to
// the active violation.
func (m *Model) syncTable(focusActive bool) {
	var rows []table.Row
	if m.state.Report != nil {
		for _, v := range m.state.Report.ViolationList {
			rows = append(rows, violationRow(v))
		}
	}
	m.table.SetRows(rows)
	if focusActive && len(rows) > 0 && m.state.ActiveViolationID != nil {
		for i, v := range m.state.Report.ViolationList {
			if v.ID == *m.state.ActiveViolationID {
				m.table.SetCursor(i)
				break
			}
		}
	}
}

func sameID(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// NextDirection returns the hint after d in the order auto, 0, 90, 180, 270.
func NextDirection(d models.Direction) models.Direction {
	all := models.Directions()
	for i, candidate := range all {
		if candidate == d {
			return all[(i+1)%len(all)]
		}
	}
	return models.DirectionAuto
}
