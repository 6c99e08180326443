package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/timmy/mygoreply/internal/tagging"
)

type startedMsg struct{ total, start int }

type processedMsg tagging.Progress

type pausedMsg struct{ d time.Duration }

type finishedMsg struct {
	stats tagging.Stats
	err   error
}

// doneMsg is sent once the job function has returned.
type doneMsg struct{ err error }

// Model is the Bubble Tea model of the batch tagging progress view.
type Model struct {
	title    string
	cancel   context.CancelFunc
	bar      progress.Model
	total    int
	start    int
	last     tagging.Progress
	stats    tagging.Stats
	pausedAt time.Time
	pause    time.Duration
	status   string
	err      error
	finished bool
	quitting bool
}

// New creates a progress model. cancel is called when the user presses
// ctrl+c; the view stays up until the run has saved its checkpoint.
func New(title string, cancel context.CancelFunc) Model {
	return Model{
		title:  title,
		cancel: cancel,
		bar:    progress.New(progress.WithDefaultGradient(), progress.WithWidth(50)),
		status: "Loading checkpoint...",
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd { return nil }

// Update handles pipeline events and key presses.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.bar.Width = clamp(msg.Width-4, 10, 80)
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.String() == "q" {
			if m.finished {
				return m, tea.Quit
			}
			if !m.quitting && m.cancel != nil {
				m.cancel()
			}
			m.quitting = true
			m.status = "Stopping after the current entry..."
		}
		return m, nil

	case startedMsg:
		m.total, m.start = msg.total, msg.start
		m.status = fmt.Sprintf("Resuming at %d of %d", msg.start, msg.total)
		return m, nil

	case processedMsg:
		m.last = tagging.Progress(msg)
		m.stats = msg.Stats
		m.pause = 0
		if !m.quitting {
			m.status = "Tagging..."
		}
		return m, nil

	case pausedMsg:
		m.pausedAt = time.Now()
		m.pause = msg.d
		m.status = fmt.Sprintf("Rate limit reached, pausing %s", msg.d)
		return m, nil

	case finishedMsg:
		m.stats = msg.stats
		m.err = msg.err
		return m, nil

	case doneMsg:
		m.finished = true
		if msg.err != nil {
			m.err = msg.err
		}
		if m.err != nil {
			m.status = "Stopped: " + m.err.Error()
		} else {
			m.status = "Done"
		}
		return m, tea.Quit
	}
	return m, nil
}

// Percent is the fraction of entries processed, resumed ones included.
func (m Model) Percent() float64 {
	if m.total == 0 {
		return 0
	}
	done := m.start + m.stats.Processed
	return float64(done) / float64(m.total)
}

// View renders the progress bar and counters.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n\n")
	b.WriteString(m.bar.ViewAs(m.Percent()))
	b.WriteString(fmt.Sprintf("  %d/%d\n\n", m.start+m.stats.Processed, m.total))

	b.WriteString(counterStyle.Render(fmt.Sprintf(
		"classified %d  cached %d  blocked %d  failed %d  calls %d  pauses %d",
		m.stats.Classified, m.stats.CacheHits, m.stats.Blocked, m.stats.Failed, m.stats.Calls, m.stats.Pauses,
	)))
	b.WriteString("\n")

	if m.last.Text != "" {
		line := fmt.Sprintf("#%d %s  [%s] %s", m.last.Position, truncate(m.last.Text, 40), m.last.Source, strings.Join(m.last.Tones, ","))
		if m.last.Reason != "" {
			line += " (" + m.last.Reason + ")"
		}
		b.WriteString(lastStyle.Render(line))
		b.WriteString("\n")
	}

	status := statusStyle
	if m.err != nil {
		status = errorStyle
	}
	b.WriteString("\n")
	if m.pause > 0 {
		if left := m.pause - time.Since(m.pausedAt); left > 0 {
			b.WriteString(lastStyle.Render(fmt.Sprintf("resuming in %s", left.Round(time.Second))))
			b.WriteString("\n")
		}
	}
	b.WriteString(status.Render(m.status))
	b.WriteString("\n")
	return b.String()
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	counterStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	lastStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
)

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
