package dashboard

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/traffisense/core/pkg/models"
	"github.com/traffisense/core/pkg/session"
	kv "github.com/traffisense/core/tui/components/table"
	"github.com/traffisense/core/tui/theme"
)

func violationColumns(width int) []table.Column {
	col := max(10, (width-12)/5)
	return []table.Column{
		{Title: "ID", Width: 6},
		{Title: "Start (s)", Width: col},
		{Title: "End (s)", Width: col},
		{Title: "Start frame", Width: col},
		{Title: "End frame", Width: col},
	}
}

func violationRow(v models.Violation) table.Row {
	start := ""
	if t, ok := v.Start(); ok {
		start = strconv.FormatFloat(t, 'f', 2, 64)
	}
	end := ""
	if v.EndTime != nil {
		end = strconv.FormatFloat(*v.EndTime, 'f', 2, 64)
	}
	return table.Row{strconv.Itoa(v.ID), start, end, optionalInt(v.StartFrame), optionalInt(v.EndFrame)}
}

func optionalInt(i *int) string {
	if i == nil {
		return ""
	}
	return strconv.Itoa(*i)
}

// PhaseIcon returns the icon shown next to a phase.
func PhaseIcon(p session.Phase) string {
	switch p {
	case session.PhaseConnecting:
		return theme.IconConnecting
	case session.PhaseStreaming:
		return theme.IconStreaming
	case session.PhaseReconnecting:
		return theme.IconReconnecting
	case session.PhaseFinished:
		return theme.IconFinished
	case session.PhaseFailed:
		return theme.IconFailed
	default:
		return theme.IconBullet
	}
}

// View implements tea.Model.
func (m Model) View() string {
	t := m.theme
	s := m.state
	var b strings.Builder

	b.WriteString(m.header())
	b.WriteString("\n\n")

	if s.JobID == "" {
		b.WriteString(t.Muted.Render("No active session."))
		b.WriteString("\n")
	} else {
		fmt.Fprintf(&b, "%s %5.1f%%  %s\n", m.progress.ViewAs(s.ProgressRatio), s.Progress(), frameCounter(s))
		fmt.Fprintf(&b, "%s objects %d   %s wrong-way %d",
			t.Muted.Render(theme.IconBullet), s.LiveStats.TotalObjects,
			t.Muted.Render(theme.IconViolation), s.LiveStats.WrongWayObjects)
		if n := len(s.LatestFrame); n > 0 {
			fmt.Fprintf(&b, "   %s", t.Muted.Render(fmt.Sprintf("frame %.1f KB", float64(n)/1024)))
		}
		b.WriteString("\n")
		if s.StatusText != "" {
			b.WriteString(t.Muted.Render(s.StatusText))
			b.WriteString("\n")
		}
	}

	if banner := m.banner(); banner != "" {
		b.WriteString("\n")
		b.WriteString(banner)
		b.WriteString("\n")
	}

	if s.Report != nil {
		b.WriteString("\n")
		b.WriteString(t.Title.Render("Report"))
		b.WriteString("\n")
		b.WriteString(reportSummary(s.Report))
		b.WriteString("\n")
		if len(s.Report.ViolationList) > 0 {
			b.WriteString(m.table.View())
			b.WriteString("\n")
		}
	}

	if m.flash != "" {
		style := t.Success
		if !m.flashOK {
			style = t.Error
		}
		b.WriteString("\n")
		b.WriteString(style.Render(m.flash))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) header() string {
	t := m.theme
	s := m.state
	title := t.Header.Render("traffisense")
	if s.JobID == "" {
		return title
	}
	phase := fmt.Sprintf("%s %s", PhaseIcon(s.Phase), s.Phase)
	switch s.Phase {
	case session.PhaseFinished:
		phase = t.Success.Render(phase)
	case session.PhaseFailed:
		phase = t.Error.Render(phase)
	case session.PhaseReconnecting:
		phase = t.Warning.Render(fmt.Sprintf("%s (%d/%d)", phase, s.RetryCount, s.Policy.MaxRetries))
	default:
		phase = t.Info.Render(phase)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		title, "  ",
		t.Bold.Render(s.JobID), "  ",
		t.Muted.Render("direction "+s.Direction.Label()), "  ",
		phase,
	)
}

// banner renders the single notice, if any.
func (m Model) banner() string {
	n := m.state.Notice
	if n == nil {
		return ""
	}
	t := m.theme
	switch n.Kind {
	case session.NoticeViolation:
		return t.ViolationBanner.Render(fmt.Sprintf("%s %s", theme.IconViolation, n.Text))
	case session.NoticeError:
		return t.ErrorBanner.Render(fmt.Sprintf("%s %s", theme.IconError, n.Text))
	default:
		return t.ConnectionBanner.Render(fmt.Sprintf("%s %s", theme.IconWarning, n.Text))
	}
}

func frameCounter(s session.State) string {
	if s.TotalFrames <= 0 {
		return ""
	}
	return fmt.Sprintf("frame %d/%d", s.CurrentFrame, s.TotalFrames)
}

func reportSummary(r *models.Report) string {
	pairs := [][2]string{
		{"Total vehicles", strconv.Itoa(r.Total)},
		{"Forward / backward / stationary", fmt.Sprintf("%d / %d / %d", r.Forward, r.Backward, r.Stationary)},
		{"Violations", strconv.Itoa(r.Violations)},
		{"Average speed", strconv.FormatFloat(r.AverageSpeed, 'f', 2, 64)},
	}
	for _, category := range r.Categories() {
		pairs = append(pairs, [2]string{"  " + category, strconv.Itoa(r.ClassBreakdown[category])})
	}
	return kv.KeyValue(pairs)
}
