package app

import (
	"context"

	"that/internal/color"
	"that/internal/config"
	"that/internal/reporting"
	"that/internal/tui"
	"that/pkg/logging"
	"that/pkg/runner"
)

func runnerOptions(cfg *Config, rep runner.Reporter) []runner.Option {
	s := cfg.Settings
	return []runner.Option{
		runner.WithReporter(rep),
		runner.WithFilter(cfg.Filter()),
		runner.WithFailFast(s.Runner.FailFast),
		runner.WithSlowThreshold(s.Runner.SlowThreshold),
		runner.WithVerbose(s.Output.Verbose),
	}
}

// reportSaver writes the JSON report file when a report path is set and the
// primary output is not already JSON.
func reportSaver(cfg *Config) runner.Reporter {
	out := cfg.Settings.Output
	if out.ReportPath == "" || out.Format == config.FormatJSON {
		return nil
	}
	return reporting.NewJSON(nil, out.ReportPath)
}

// cliReporter picks the stdout reporter for the output format.
func cliReporter(cfg *Config) runner.Reporter {
	out := cfg.Settings.Output
	switch out.Format {
	case config.FormatQuiet:
		return reporting.NewQuiet(cfg.Stdout, out.MaxValueWidth, cfg.Settings.Diff.ContextLines)
	case config.FormatJSON:
		return reporting.NewJSON(cfg.Stdout, out.ReportPath)
	default:
		return reporting.NewConsole(cfg.Stdout, reporting.ConsoleOptions{
			Verbose:       out.Verbose,
			Focus:         out.Focus,
			Color:         color.Enabled(out.Color, cfg.Stdout),
			ContextLines:  cfg.Settings.Diff.ContextLines,
			MaxValueWidth: out.MaxValueWidth,
		})
	}
}

// runCLIMode streams results to stdout as the tests run
func runCLIMode(ctx context.Context, cfg *Config) (*runner.Summary, error) {
	logging.Debug("CLI", "running in %s mode", cfg.Settings.Output.Format)

	rep := reporting.Fanout(cliReporter(cfg), reportSaver(cfg))
	summary, _ := runner.New(cfg.Registry, runnerOptions(cfg, rep)...).Run(ctx)
	return summary, nil
}

// runTUIMode runs the tests behind the interactive view and prints a short
// summary once it closes
func runTUIMode(ctx context.Context, cfg *Config) (*runner.Summary, error) {
	s := cfg.Settings
	level, _ := logging.ParseLevel(s.Output.LogLevel)

	color.Initialize(true)
	logChan := logging.InitForTUI(level)

	saver := reportSaver(cfg)
	summary, outcomes, err := tui.Run(ctx, tui.Options{
		Verbose:       s.Output.Verbose,
		MaxValueWidth: s.Output.MaxValueWidth,
		ContextLines:  s.Diff.ContextLines,
		Color:         color.Enabled(s.Output.Color, cfg.Stdout),
		Logs:          logChan,
	}, func(ctx context.Context, rep runner.Reporter) (*runner.Summary, []runner.Outcome) {
		return runner.New(cfg.Registry, runnerOptions(cfg, reporting.Fanout(rep, saver))...).Run(ctx)
	})

	logging.CloseTUIChannel()
	logging.InitForCLI(level, cfg.Stderr)
	if err != nil {
		logging.Error("TUI-Lifecycle", err, "Error running TUI program")
		return nil, err
	}

	q := reporting.NewQuiet(cfg.Stdout, s.Output.MaxValueWidth, s.Diff.ContextLines)
	for _, o := range outcomes {
		q.ReportOutcome(o)
	}
	q.ReportSummary(*summary, outcomes)
	return summary, nil
}
