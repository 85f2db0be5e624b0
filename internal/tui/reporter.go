package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"that/pkg/logging"
	"that/pkg/registry"
	"that/pkg/runner"
)

type runStartMsg struct{ total int }

type suiteStartMsg struct{ suite string }

type testStartMsg struct{ name string }

type outcomeMsg struct{ outcome runner.Outcome }

type runDoneMsg struct {
	summary  runner.Summary
	outcomes []runner.Outcome
}

type logEntryMsg struct{ entry logging.LogEntry }

type clearStatusMsg struct{}

// Reporter forwards run events to the view. Sends block until the view
// takes them or done is closed, so no outcome is dropped while the view is up.
type Reporter struct {
	events chan<- tea.Msg
	done   <-chan struct{}
}

// NewReporter creates a Reporter sending to events until done is closed.
func NewReporter(events chan<- tea.Msg, done <-chan struct{}) *Reporter {
	return &Reporter{events: events, done: done}
}

func (r *Reporter) send(msg tea.Msg) {
	select {
	case r.events <- msg:
	case <-r.done:
	}
}

func (r *Reporter) ReportStart(total int) { r.send(runStartMsg{total: total}) }

func (r *Reporter) ReportSuiteStart(suite string) { r.send(suiteStartMsg{suite: suite}) }

func (r *Reporter) ReportTestStart(tc *registry.TestCase) {
	r.send(testStartMsg{name: tc.FullName()})
}

func (r *Reporter) ReportOutcome(o runner.Outcome) { r.send(outcomeMsg{outcome: o}) }

func (r *Reporter) ReportSummary(s runner.Summary, outcomes []runner.Outcome) {
	r.send(runDoneMsg{summary: s, outcomes: outcomes})
}

// waitForEvent delivers the next run event to Update.
func waitForEvent(events <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-events
		if !ok {
			return nil
		}
		return msg
	}
}

// waitForLog delivers the next log entry to Update.
func waitForLog(logs <-chan logging.LogEntry) tea.Cmd {
	if logs == nil {
		return nil
	}
	return func() tea.Msg {
		entry, ok := <-logs
		if !ok {
			return nil
		}
		return logEntryMsg{entry: entry}
	}
}
