package app

import (
	"io"

	"that/internal/config"
	"that/pkg/registry"
)

// Config holds everything one test run needs
type Config struct {
	// Settings is the merged file and flag configuration
	Settings config.ThatConfig

	// Registry supplies the tests
	Registry *registry.Registry

	// Stdout receives reports, Stderr receives logs
	Stdout io.Writer
	Stderr io.Writer
}

// NewConfig creates a run configuration
func NewConfig(settings config.ThatConfig, reg *registry.Registry, stdout, stderr io.Writer) *Config {
	return &Config{
		Settings: settings,
		Registry: reg,
		Stdout:   stdout,
		Stderr:   stderr,
	}
}

// Filter converts the runner selection settings into a registry filter.
func (c *Config) Filter() registry.Filter {
	return registry.Filter{
		Suites:    c.Settings.Runner.Suites,
		Include:   c.Settings.Runner.Tags,
		Exclude:   c.Settings.Runner.ExcludeTags,
		Locations: c.Settings.Runner.Lines,
	}
}
