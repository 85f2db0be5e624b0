package tui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"that/internal/color"
	"that/internal/reporting"
	"that/pkg/logging"
	"that/pkg/runner"
)

const (
	maxLogLines       = 100
	visibleLogLines   = 3
	statusMessageTTL  = 3 * time.Second
	defaultViewHeight = 40
)

// writeClipboard is swapped out in tests.
var writeClipboard = clipboard.WriteAll

// Options configures the run view.
type Options struct {
	// Verbose includes error traces in the failure pane.
	Verbose       bool
	MaxValueWidth int
	ContextLines  int
	// Color enables ANSI styling.
	Color bool
	// Logs, when set, is shown below the failure pane.
	Logs <-chan logging.LogEntry
}

// Model is the bubbletea model of a live test run.
type Model struct {
	keys     KeyMap
	help     help.Model
	spinner  spinner.Model
	progress progress.Model
	styles   color.Styles
	opts     Options

	events <-chan tea.Msg
	cancel context.CancelFunc

	total    int
	done     int
	current  string
	lines    []string
	failures []runner.Outcome
	selected int
	logs     []string

	summary  *runner.Summary
	outcomes []runner.Outcome

	status   string
	width    int
	height   int
	stopping bool
	quitting bool
}

// NewModel creates the view. events carries the Reporter's messages; cancel
// stops the run when the user quits early.
func NewModel(opts Options, events <-chan tea.Msg, cancel context.CancelFunc) Model {
	if opts.MaxValueWidth <= 0 {
		opts.MaxValueWidth = reporting.DefaultMaxValueWidth
	}

	s := spinner.New()
	s.Spinner = spinner.Dot

	r := color.NewRenderer(os.Stdout, opts.Color)
	styles := color.NewStyles(r)
	s.Style = styles.Accent

	return Model{
		keys:     DefaultKeyMap(),
		help:     help.New(),
		spinner:  s,
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		styles:   styles,
		opts:     opts,
		events:   events,
		cancel:   cancel,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForEvent(m.events), waitForLog(m.opts.Logs))
}

// Finished reports whether the run has ended.
func (m Model) Finished() bool { return m.summary != nil }

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.progress.Width = max(10, min(msg.Width-20, 60))
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if m.Finished() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case runStartMsg:
		m.total = msg.total
		return m, waitForEvent(m.events)

	case suiteStartMsg:
		m.lines = append(m.lines, m.styles.Suite.Render(msg.suite))
		return m, waitForEvent(m.events)

	case testStartMsg:
		m.current = msg.name
		return m, waitForEvent(m.events)

	case outcomeMsg:
		m.done++
		m.lines = append(m.lines, m.outcomeLine(msg.outcome))
		if msg.outcome.Status == runner.StatusFailed || msg.outcome.Status == runner.StatusErrored {
			m.failures = append(m.failures, msg.outcome)
		}
		return m, waitForEvent(m.events)

	case runDoneMsg:
		s := msg.summary
		m.summary = &s
		m.outcomes = msg.outcomes
		m.current = ""
		if m.stopping {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil

	case logEntryMsg:
		line := fmt.Sprintf("[%s] %s %s: %s",
			msg.entry.Timestamp.Format("15:04:05"), msg.entry.Level, msg.entry.Subsystem, msg.entry.Message)
		m.logs = append(m.logs, line)
		if len(m.logs) > maxLogLines {
			m.logs = m.logs[len(m.logs)-maxLogLines:]
		}
		return m, waitForLog(m.opts.Logs)

	case clearStatusMsg:
		m.status = ""
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.Finished() {
			m.quitting = true
			return m, tea.Quit
		}
		// The runner stops between tests; the view closes once the summary arrives.
		if !m.stopping && m.cancel != nil {
			m.cancel()
		}
		m.stopping = true
		m.status = "Stopping after the current test…"
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if m.selected > 0 {
			m.selected--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.selected < len(m.failures)-1 {
			m.selected++
		}
		return m, nil

	case key.Matches(msg, m.keys.Copy):
		if len(m.failures) == 0 {
			return m, nil
		}
		if err := writeClipboard(m.failureText(m.failures[m.selected])); err != nil {
			m.status = "Copy failed: " + err.Error()
		} else {
			m.status = "Failure copied to clipboard"
		}
		return m, clearStatusAfter(statusMessageTTL)

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}
	return m, nil
}

func clearStatusAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return clearStatusMsg{} })
}

func (m Model) outcomeLine(o runner.Outcome) string {
	indent := ""
	if o.Suite != "" {
		indent = "  "
	}
	dur := m.styles.Muted.Render(" (" + reporting.FormatDuration(o.Duration) + ")")
	switch o.Status {
	case runner.StatusPassed:
		line := m.styles.Pass.Render("✓ "+o.Description) + dur
		if o.Slow {
			line += " " + m.styles.Slow.Render("[SLOW]")
		}
		return indent + line
	case runner.StatusFailed:
		return indent + m.styles.Fail.Render("✗ "+o.Description) + dur
	case runner.StatusErrored:
		return indent + m.styles.Error.Render("! "+o.Description) + dur
	default:
		return indent + m.styles.Skip.Render("- "+o.Description+" (skipped)")
	}
}

// failureText is the plain-text detail copied to the clipboard.
func (m Model) failureText(o runner.Outcome) string {
	lines := []string{o.FullName()}
	lines = append(lines, m.detailLines(o)...)
	return strings.Join(lines, "\n")
}

func (m Model) detailLines(o runner.Outcome) []string {
	switch {
	case o.Failure != nil:
		return reporting.FailureLines(o.Failure, m.opts.MaxValueWidth, m.opts.ContextLines)
	case o.Err != nil:
		return reporting.ErrorLines(o.Err, m.opts.Verbose)
	}
	return nil
}

// Summary returns the run summary once the run has finished.
func (m Model) Summary() (*runner.Summary, []runner.Outcome) {
	return m.summary, m.outcomes
}

func (m Model) viewHeight() int {
	if m.height <= 0 {
		return defaultViewHeight
	}
	return m.height
}

var _ tea.Model = Model{}
