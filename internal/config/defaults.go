package config

import (
	"time"
)

// GetDefaultConfig returns the built-in configuration every layer starts from.
func GetDefaultConfig() ThatConfig {
	return ThatConfig{
		Runner: RunnerConfig{
			SlowThreshold: time.Second,
		},
		Output: OutputConfig{
			Format:        FormatConsole,
			Color:         ColorAuto,
			LogLevel:      "warn",
			MaxValueWidth: 60,
		},
		Diff: DiffConfig{
			ContextLines: 3,
		},
		Replay: ReplayConfig{
			CassetteDir: "testdata/cassettes",
			Mode:        ReplayOnce,
		},
	}
}
