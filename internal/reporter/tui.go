package reporter

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ppiankov/labforge/internal/session"
)

var spinnerChars = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// TUI styles
var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	failedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))  // red
	runStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("14")) // cyan
	doneStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10")) // green
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))  // gray
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

type tickMsg time.Time

// TUIModel is the Bubbletea model for the live run display. The
// dispatcher stays strictly sequential; the TUI only observes results
// through the polled snapshot function.
type TUIModel struct {
	order      []string // planned instance IDs in dispatch order
	getResults func() map[string]*session.Result
	cancelRun  func() // called on 'q' to cancel the run context

	results map[string]*session.Result
	frame   int
	width   int
	height  int
}

// NewTUIModel creates a TUI model over the planned instance order.
func NewTUIModel(order []string, getResults func() map[string]*session.Result, cancelRun func()) TUIModel {
	return TUIModel{
		order:      order,
		getResults: getResults,
		cancelRun:  cancelRun,
		results:    make(map[string]*session.Result),
	}
}

// Init implements tea.Model.
func (m TUIModel) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model.
func (m TUIModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.cancelRun != nil {
				m.cancelRun()
			}
			return m, tea.Quit
		}

	case tickMsg:
		m.results = m.getResults()
		m.frame++
		return m, tickCmd()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}

	return m, nil
}

// View implements tea.Model.
func (m TUIModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	var b strings.Builder

	var passed, failed, running, aborted, pending int
	for _, id := range m.order {
		res := m.results[id]
		if res == nil {
			pending++
			continue
		}
		switch res.State {
		case session.StatePassed:
			passed++
		case session.StateFailed:
			failed++
		case session.StateRunning:
			running++
		case session.StateAborted:
			aborted++
		default:
			pending++
		}
	}

	b.WriteString(headerStyle.Render(fmt.Sprintf("labforge — %d sessions", len(m.order))))
	b.WriteString("\n")
	b.WriteString(m.progressLine(passed, running, failed, aborted, pending))
	b.WriteString("\n")

	spinner := spinnerChars[m.frame%len(spinnerChars)]
	lines := 3
	for _, id := range m.order {
		if lines >= m.height-1 {
			b.WriteString(dimStyle.Render("  …"))
			b.WriteString("\n")
			lines++
			break
		}
		b.WriteString(m.instanceLine(id, spinner))
		b.WriteString("\n")
		lines++
	}

	for ; lines < m.height-1; lines++ {
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("  q: cancel run"))

	return b.String()
}

func (m TUIModel) instanceLine(id, spinner string) string {
	res := m.results[id]
	if res == nil {
		return dimStyle.Render(fmt.Sprintf("  ─ %-10s %s", "queued", id))
	}
	switch res.State {
	case session.StateRunning:
		elapsed := time.Since(res.StartedAt).Truncate(time.Second)
		return runStyle.Render(fmt.Sprintf("  %s %-10s %-40s %s", spinner, "running", id, elapsed))
	case session.StatePassed:
		dur := res.Duration.Truncate(time.Second)
		return doneStyle.Render(fmt.Sprintf("  ✓ %-10s %-40s %s", "passed", id, dur))
	case session.StateFailed:
		errMsg := res.Error
		if len(errMsg) > 40 {
			errMsg = errMsg[:40] + "..."
		}
		return failedStyle.Render(fmt.Sprintf("  ✗ %-10s %-40s %s", "failed", id, errMsg))
	case session.StateAborted:
		return dimStyle.Render(fmt.Sprintf("  ⊘ %-10s %s", "aborted", id))
	default:
		return dimStyle.Render(fmt.Sprintf("  ─ %-10s %s", "queued", id))
	}
}

func (m TUIModel) progressLine(passed, running, failed, aborted, pending int) string {
	var parts []string
	if passed > 0 {
		parts = append(parts, doneStyle.Render(fmt.Sprintf("%d passed", passed)))
	}
	if running > 0 {
		parts = append(parts, runStyle.Render(fmt.Sprintf("%d running", running)))
	}
	if failed > 0 {
		parts = append(parts, failedStyle.Render(fmt.Sprintf("%d failed", failed)))
	}
	if aborted > 0 {
		parts = append(parts, dimStyle.Render(fmt.Sprintf("%d aborted", aborted)))
	}
	if pending > 0 {
		parts = append(parts, dimStyle.Render(fmt.Sprintf("%d queued", pending)))
	}
	return "  " + strings.Join(parts, "  ")
}
