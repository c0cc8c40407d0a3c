package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/danielpatrickdp/horizon/go-controller/internal/episode"
	"github.com/danielpatrickdp/horizon/go-controller/internal/eval"
	"github.com/danielpatrickdp/horizon/go-controller/internal/inventory"
	"github.com/danielpatrickdp/horizon/go-controller/internal/monitor"
)

const recentAttempts = 5

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500")).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))

	goalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Bold(true)

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#5FD75F"))

	failStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#D75F5F"))

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("#3C3C3C")).
			PaddingLeft(2)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true)
)

// Model is the live evaluation view: attempt progress, the current step and
// the most recent attempt results.
type Model struct {
	task     string
	loops    int
	maxSteps int
	feed     *Feed

	progress progress.Model
	spinner  spinner.Model

	step      *episode.Event
	attempts  []eval.AttemptResult
	successes int
	summary   *eval.Summary
	width     int
}

// updateMsg wraps one feed update.
type updateMsg Update

// feedClosedMsg is sent once the feed has no more updates.
type feedClosedMsg struct{}

// New creates a model for loops attempts of task reading from feed.
func New(task string, loops, maxSteps int, feed *Feed) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return Model{
		task:     task,
		loops:    loops,
		maxSteps: maxSteps,
		feed:     feed,
		progress: progress.New(progress.WithDefaultGradient()),
		spinner:  s,
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listen())
}

func (m Model) listen() tea.Cmd {
	return func() tea.Msg {
		u, ok := <-m.feed.Updates()
		if !ok {
			return feedClosedMsg{}
		}
		return updateMsg(u)
	}
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progress.Width = max(msg.Width-8, 10)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case updateMsg:
		m = m.apply(Update(msg))
		if m.summary != nil {
			return m, tea.Quit
		}
		return m, m.listen()

	case feedClosedMsg:
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) apply(u Update) Model {
	switch {
	case u.Step != nil:
		m.step = u.Step
	case u.Attempt != nil:
		m.attempts = append(m.attempts, *u.Attempt)
		if u.Attempt.Success {
			m.successes++
		}
		m.step = nil
	case u.Summary != nil:
		m.summary = u.Summary
	}
	return m
}

// View implements tea.Model
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("Task %s", m.task)))
	b.WriteString("\n\n")

	done := len(m.attempts)
	pct := 0.0
	if m.loops > 0 {
		pct = float64(done) / float64(m.loops)
	}
	b.WriteString(fmt.Sprintf("%s %d/%d  %s %d\n", labelStyle.Render("attempts"), done, m.loops, labelStyle.Render("successes"), m.successes))
	b.WriteString(m.progress.ViewAs(pct))
	b.WriteString("\n\n")

	if m.step != nil {
		b.WriteString(panelStyle.Render(m.stepView(*m.step)))
		b.WriteString("\n\n")
	} else if m.summary == nil {
		b.WriteString(m.spinner.View() + " waiting for the simulator\n\n")
	}

	if n := len(m.attempts); n > 0 {
		start := max(n-recentAttempts, 0)
		for _, r := range m.attempts[start:] {
			b.WriteString(attemptLine(r))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if m.summary != nil {
		b.WriteString(fmt.Sprintf("success rate: %g\naverage episode length: %g\n", m.summary.SuccessRate, m.summary.AvgEpisodeLength))
		return b.String()
	}
	b.WriteString(helpStyle.Render("q to stop"))
	return b.String()
}

func (m Model) stepView(ev episode.Event) string {
	lines := []string{
		fmt.Sprintf("%s %d/%d  %s %d  %s %d",
			labelStyle.Render("step"), ev.Step, m.maxSteps,
			labelStyle.Render("replans"), ev.ReplanRounds,
			labelStyle.Render("deaths"), ev.Deaths),
		fmt.Sprintf("%s %s  %s %d  %s %s",
			labelStyle.Render("goal"), goalStyle.Render(ev.Goal.Name),
			labelStyle.Render("eps"), ev.GoalEps,
			labelStyle.Render("strategy"), ev.Strategy),
		fmt.Sprintf("%s %s", labelStyle.Render("inventory"), inventory.Describe(ev.Inventory)),
	}
	if ev.Verdict.Phase != monitor.PhaseRunning {
		lines = append(lines, fmt.Sprintf("%s %s (%s)", labelStyle.Render("verdict"), ev.Verdict.Phase, ev.Verdict.Reason))
	}
	return strings.Join(lines, "\n")
}

func attemptLine(r eval.AttemptResult) string {
	status := okStyle.Render("success")
	switch {
	case r.Err != nil:
		status = failStyle.Render("error")
	case !r.Success:
		status = failStyle.Render(r.Result.Outcome())
	}
	return fmt.Sprintf("#%d %s length %d", r.Iteration, status, r.Length)
}
