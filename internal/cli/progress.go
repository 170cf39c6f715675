package cli

import (
	"fmt"
	"time"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"

	"github.com/prasanth-sim/off-highway/internal/executor"
)

// Theme holds the color scheme for the progress display.
type Theme struct {
	Running lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Hint    lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Running: lipgloss.Color("#5FAFD7"), // light blue
	Success: lipgloss.Color("#00D787"), // green
	Error:   lipgloss.Color("#FF005F"), // red
	Hint:    lipgloss.Color("#6C6C6C"), // dim gray
}

func (t Theme) runningStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Running)
}

func (t Theme) successStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

type jobState int

const (
	jobPending jobState = iota
	jobRunning
	jobSucceeded
	jobFailed
)

// buildEventMsg carries one pool event into the UI.
type buildEventMsg executor.Event

// buildsDoneMsg signals that the pool closed its event channel.
type buildsDoneMsg struct{}

// buildProgressModel is the bubbletea model for the parallel build phase.
type buildProgressModel struct {
	events <-chan executor.Event

	order     []string
	states    map[string]jobState
	durations map[string]time.Duration

	total    int
	done     int
	failed   int
	progress progress.Model
	theme    Theme
	detached bool
}

func newBuildProgressModel(events <-chan executor.Event, sels []executor.Selection) buildProgressModel {
	prog := progress.New(
		progress.WithDefaultBlend(),
		progress.WithWidth(40),
	)

	order := make([]string, len(sels))
	states := make(map[string]jobState, len(sels))
	for i, sel := range sels {
		order[i] = sel.Job.Name
		states[sel.Job.Name] = jobPending
	}

	return buildProgressModel{
		events:    events,
		order:     order,
		states:    states,
		durations: make(map[string]time.Duration, len(sels)),
		total:     len(sels),
		progress:  prog,
		theme:     defaultTheme,
	}
}

// Init starts listening for pool events.
func (m buildProgressModel) Init() tea.Cmd {
	return tea.Batch(
		m.waitForEvent(),
		m.progress.Init(),
	)
}

// waitForEvent blocks on the pool's event channel in a command goroutine so
// Update never blocks.
func (m buildProgressModel) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return buildsDoneMsg{}
		}
		return buildEventMsg(ev)
	}
}

// Update handles messages and returns the updated model.
func (m buildProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			// Builds keep running; only the display detaches.
			m.detached = true
			return m, tea.Quit
		}

	case buildEventMsg:
		ev := executor.Event(msg)
		switch ev.Kind {
		case executor.EventStarted:
			m.states[ev.Job] = jobRunning
		case executor.EventFinished:
			m.done++
			m.durations[ev.Job] = ev.Outcome.Duration()
			if ev.Outcome.Status == executor.StatusFail {
				m.states[ev.Job] = jobFailed
				m.failed++
			} else {
				m.states[ev.Job] = jobSucceeded
			}
		}
		return m, m.waitForEvent()

	case buildsDoneMsg:
		return m, tea.Quit

	case progress.FrameMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the progress display.
func (m buildProgressModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

func (m buildProgressModel) renderContent() string {
	var pct float64
	if m.total > 0 {
		pct = float64(m.done) / float64(m.total)
	}

	out := fmt.Sprintf("%s %d/%d jobs\n\n", m.progress.ViewAs(pct), m.done, m.total)
	for _, name := range m.order {
		out += m.renderJobLine(name)
	}
	out += "\n" + m.theme.hintStyle().Render("Press Ctrl+C to detach; builds keep running") + "\n"
	return out
}

func (m buildProgressModel) renderJobLine(name string) string {
	switch m.states[name] {
	case jobRunning:
		return fmt.Sprintf("  %s %s\n", m.theme.runningStyle().Render("building"), name)
	case jobSucceeded:
		return fmt.Sprintf("  %s %s (%.1fs)\n", m.theme.successStyle().Render("✓"), name, m.durations[name].Seconds())
	case jobFailed:
		return fmt.Sprintf("  %s %s (%.1fs)\n", m.theme.errorStyle().Render("✗"), name, m.durations[name].Seconds())
	default:
		return fmt.Sprintf("  %s %s\n", m.theme.hintStyle().Render("waiting "), name)
	}
}

// runProgressUI drives the interactive display until every job finished or
// the user detached. The event channel is always drained so the pool never
// blocks on a send.
func runProgressUI(events chan executor.Event, sels []executor.Selection) {
	model := newBuildProgressModel(events, sels)
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		fmt.Printf("progress display unavailable (%v), falling back to plain output\n", err)
		printPlainProgress(events)
		return
	}

	// Drain remaining events after Ctrl+C detach.
	for range events {
	}
}
