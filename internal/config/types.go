package config

import (
	"time"
)

// ThatConfig is the top-level configuration structure for the that CLI.
type ThatConfig struct {
	Runner RunnerConfig `yaml:"runner"`
	Output OutputConfig `yaml:"output"`
	Diff   DiffConfig   `yaml:"diff"`
	Replay ReplayConfig `yaml:"replay"`
}

// RunnerConfig controls test selection and execution.
type RunnerConfig struct {
	FailFast bool `yaml:"failFast"`
	// SlowThreshold marks passing tests slower than this, e.g. "1s" or "250ms".
	SlowThreshold time.Duration `yaml:"slowThreshold" validate:"gte=0"`
	// Tags restricts the run to tests carrying one of these tags.
	Tags        []string `yaml:"tags,omitempty" validate:"dive,required"`
	ExcludeTags []string `yaml:"excludeTags,omitempty" validate:"dive,required"`
	Suites      []string `yaml:"suites,omitempty" validate:"dive,required"`
	// Lines selects tests by registration position, "file.go:42".
	Lines []string `yaml:"lines,omitempty" validate:"dive,required"`
}

// Output formats.
const (
	FormatConsole = "console"
	FormatQuiet   = "quiet"
	FormatJSON    = "json"
	FormatTUI     = "tui"
)

// Color modes.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// OutputConfig controls reporting.
type OutputConfig struct {
	Format  string `yaml:"format" validate:"oneof=console quiet json tui"`
	Color   string `yaml:"color" validate:"oneof=auto always never"`
	Verbose bool   `yaml:"verbose"`
	// Focus shows failures only.
	Focus bool `yaml:"focus"`
	// ReportPath is a directory for timestamped JSON reports.
	ReportPath string `yaml:"reportPath,omitempty"`
	LogLevel   string `yaml:"logLevel" validate:"oneof=debug info warn error"`
	// MaxValueWidth is the truncation width for rendered values.
	MaxValueWidth int `yaml:"maxValueWidth" validate:"gte=10,lte=1000"`
}

// DiffConfig controls how differences are rendered.
type DiffConfig struct {
	// ContextLines is the unified diff context for multi-line text.
	ContextLines int `yaml:"contextLines" validate:"gte=0,lte=20"`
}

// Replay modes.
const (
	ReplayOnce = "once"
	ReplayNone = "none"
	ReplayAll  = "all"
)

// ReplayConfig sets defaults for HTTP cassettes.
type ReplayConfig struct {
	CassetteDir string `yaml:"cassetteDir" validate:"required"`
	Mode        string `yaml:"mode" validate:"oneof=once none all"`
}
