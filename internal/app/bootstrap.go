package app

import (
	"context"
	"fmt"

	"that/internal/config"
	"that/internal/replay"
	"that/pkg/logging"
	"that/pkg/runner"
)

// Application runs the selected tests with the configured reporters
type Application struct {
	config *Config
}

// NewApplication validates the configuration and prepares logging and
// replay defaults for the run
func NewApplication(cfg *Config) (*Application, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("no test registry configured")
	}
	if err := config.Validate(cfg.Settings); err != nil {
		return nil, err
	}

	level, err := logging.ParseLevel(cfg.Settings.Output.LogLevel)
	if err != nil {
		return nil, err
	}
	if cfg.Settings.Output.Verbose && level > logging.LevelInfo {
		level = logging.LevelInfo
	}
	logging.InitForCLI(level, cfg.Stderr)

	if err := cfg.Registry.Validate(cfg.Filter()); err != nil {
		logging.Error("Bootstrap", err, "Invalid test selection")
		return nil, err
	}

	replay.Configure(cfg.Settings.Replay)
	logging.Debug("Bootstrap", "replay cassettes in %s (mode %s)", cfg.Settings.Replay.CassetteDir, cfg.Settings.Replay.Mode)

	return &Application{config: cfg}, nil
}

// Run executes the tests in the mode the output format asks for
func (a *Application) Run(ctx context.Context) (*runner.Summary, error) {
	if a.config.Settings.Output.Format == config.FormatTUI {
		return runTUIMode(ctx, a.config)
	}
	return runCLIMode(ctx, a.config)
}
