package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

//nolint:gochecknoglobals
var (
	// titleStyle defines the style for a panel's title.
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	// borderStyle defines the style for a panel's borders.
	borderStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7D56F4"))

	// infoStyle defines the style for a panel's text.
	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA"))

	// helpStyle defines the style for the help panel's text.
	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			Padding(0, 1)
)

const maxLogLines = 100

// ProgressMsg is a [tea.Msg] containing a [Snapshot] of the move's progress.
type ProgressMsg struct {
	t    time.Time
	data Snapshot
}

// TeaModel is the principal [tea.Model] for the command-line user interface.
type TeaModel struct {
	width  int
	height int

	cancel context.CancelFunc

	uiHandler *Handler

	fullWidthWithBorders  int
	splitWidthWithBorders int

	data         Snapshot
	moveProgress progress.Model
	logsViewport viewport.Model
	logs         []string

	ready bool
}

// NewTeaModel returns an initial new [TeaModel].
//
//nolint:mnd
func NewTeaModel(uiHandler *Handler, cancel context.CancelFunc) TeaModel {
	return TeaModel{
		uiHandler: uiHandler,
		moveProgress: progress.New(
			progress.WithDefaultGradient(),
			progress.WithWidth(80),
		),
		logsViewport: viewport.New(80, 20),
		logs:         make([]string, 0, maxLogLines),
		cancel:       cancel,
	}
}

// Init initializes the model within a [tea.Program].
func (m TeaModel) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		updateProgress(m.uiHandler.tracker),
	)
}

// updateProgress produces a [tea.Cmd] for later scheduling in a [tea.Program].
// When executed, a [ProgressMsg] with the [Tracker]'s [Snapshot] is returned.
func updateProgress(tracker *Tracker) tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg { //nolint:mnd
		return ProgressMsg{
			t:    t,
			data: tracker.Snapshot(),
		}
	})
}

// Update is the principal message handling method of the model.
// It sets the internal state of the model, for later rendering.
//
//nolint:mnd,ireturn
func (m TeaModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.cancel()

			return m, tea.Quit
		case "q":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		m.fullWidthWithBorders = m.width - 2
		m.splitWidthWithBorders = (m.width / 2) - 2

		m.moveProgress.Width = m.splitWidthWithBorders

		// Upper panels take about 40% of the height.
		upperHeight := m.height * 2 / 5
		lowerHeight := m.height - upperHeight

		m.logsViewport.Width = m.fullWidthWithBorders
		m.logsViewport.Height = lowerHeight - 3

		m.refreshLogs()

		if !m.ready {
			m.ready = true
			m.uiHandler.Ready.Store(true)
		}

	case ProgressMsg:
		m.data = msg.data

		cmds = append(cmds,
			m.moveProgress.SetPercent(m.data.ProgressPct/100),
			updateProgress(m.uiHandler.tracker),
		)

	case LogMsg:
		if len(m.logs) >= maxLogLines {
			m.logs = m.logs[1:]
		}
		m.logs = append(m.logs, string(msg))

		m.refreshLogs()

	case progress.FrameMsg:
		updated, cmd := m.moveProgress.Update(msg)
		if progressModel, ok := updated.(progress.Model); ok {
			m.moveProgress = progressModel
		}
		cmds = append(cmds, cmd)
	}

	m.logsViewport, cmd = m.logsViewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// refreshLogs renders the collected logs into the viewport.
func (m *TeaModel) refreshLogs() {
	if len(m.logs) == 0 {
		return
	}

	logs := lipgloss.NewStyle().
		Width(m.logsViewport.Width).
		Render(strings.TrimSuffix(strings.Join(m.logs, ""), "\n"))

	m.logsViewport.SetContent(logs)
	m.logsViewport.GotoBottom()
}

// View is the principal rendering function of the model.
func (m TeaModel) View() string {
	if !m.ready {
		return "Loading the GUI..."
	}

	progressSection := lipgloss.JoinHorizontal(
		lipgloss.Top,
		borderStyle.Width(m.splitWidthWithBorders).Render(m.formatProgressView()),
		borderStyle.Width(m.splitWidthWithBorders).Render(m.formatTransferView()),
	)

	logsSection := borderStyle.
		Width(m.fullWidthWithBorders).
		Render(
			lipgloss.JoinVertical(
				lipgloss.Left,
				titleStyle.Width(m.fullWidthWithBorders).Render("Process Information"),
				lipgloss.NewStyle().Width(m.fullWidthWithBorders).Render(m.logsViewport.View()),
			),
		)

	helpSection := helpStyle.
		Width(m.fullWidthWithBorders).
		Render("q: quit gui • ctrl+c: abort move")

	return lipgloss.JoinVertical(
		lipgloss.Left,
		progressSection,
		logsSection,
		helpSection,
	)
}

// formatProgressView renders the panel with the step progress.
func (m TeaModel) formatProgressView() string {
	s := m.data

	var details string
	if !s.HasFinished {
		details = fmt.Sprintf(
			"Progress: %.2f%% (%d/%d)\n"+
				"Steps: Success=%d, Skipped=%d, Failed=%d\n"+
				"Time: Started=%v, ETA=%v (%.1fmin left)\n"+
				"Current: %s\n",
			s.ProgressPct,
			s.ProcessedItems,
			s.TotalItems,
			s.SuccessItems,
			s.SkippedItems,
			s.FailedItems,
			s.StartTime.Format("15:04:05"),
			s.ETA.Format("15:04:05"),
			s.TimeLeft.Minutes(),
			s.CurrentPath,
		)
	} else {
		details = fmt.Sprintf(
			"Progress: %.2f%% (%d/%d)\n"+
				"Steps: Success=%d, Skipped=%d, Failed=%d\n"+
				"Time: Started=%v, Finished=%v\n\n",
			s.ProgressPct,
			s.ProcessedItems,
			s.TotalItems,
			s.SuccessItems,
			s.SkippedItems,
			s.FailedItems,
			s.StartTime.Format("15:04:05"),
			s.FinishTime.Format("15:04:05"),
		)
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		titleStyle.Width(m.splitWidthWithBorders).Render("Move"),
		"",
		m.moveProgress.View(),
		"",
		infoStyle.Width(m.splitWidthWithBorders).Render(details),
	)
}

// formatTransferView renders the panel with the transfer statistics.
func (m TeaModel) formatTransferView() string {
	s := m.data

	details := fmt.Sprintf(
		"Copied: %s\n"+
			"Speed: %s/s, %.0f steps/s\n",
		humanize.Bytes(s.BytesCopied),
		humanize.Bytes(uint64(s.BytesPerSec)),
		s.ItemsPerSec,
	)

	return lipgloss.JoinVertical(
		lipgloss.Left,
		titleStyle.Width(m.splitWidthWithBorders).Render("Transfer"),
		"",
		infoStyle.Width(m.splitWidthWithBorders).Render(details),
	)
}
