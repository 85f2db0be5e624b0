package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"that/pkg/runner"
)

// RunFunc executes the selected tests, reporting to rep.
type RunFunc func(ctx context.Context, rep runner.Reporter) (*runner.Summary, []runner.Outcome)

// Run shows the live view while run executes and returns its results once
// the view has closed. Quitting during the run cancels ctx for run, which
// stops before the next test.
func Run(ctx context.Context, opts Options, run RunFunc) (*runner.Summary, []runner.Outcome, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan tea.Msg, 64)
	done := make(chan struct{})

	type result struct {
		summary  *runner.Summary
		outcomes []runner.Outcome
	}
	results := make(chan result, 1)
	go func() {
		s, o := run(ctx, NewReporter(events, done))
		results <- result{s, o}
	}()

	p := tea.NewProgram(NewModel(opts, events, cancel), tea.WithAltScreen())
	_, err := p.Run()

	// Unblock the reporter if the view went away before the run ended.
	close(done)
	if err != nil {
		cancel()
	}
	res := <-results
	return res.summary, res.outcomes, err
}
