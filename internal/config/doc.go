// Package config provides configuration management for the that CLI.
//
// Configuration is loaded and merged in the following order, later layers
// overriding earlier ones key by key:
//
//  1. Default Configuration (GetDefaultConfig)
//  2. User Configuration (~/.config/that/config.yaml)
//  3. Project Configuration (./.that/config.yaml)
//  4. An explicit file passed with --config
//
// Command-line flags override the merged result when they are set.
//
// # Configuration Structure
//
//	runner:
//	  failFast: false
//	  slowThreshold: 1s
//	  excludeTags: [requires_network]
//
//	output:
//	  format: console        # console, quiet, json or tui
//	  color: auto            # auto, always or never
//	  focus: false           # show failures only
//	  reportPath: reports/   # write a timestamped JSON report per run
//	  logLevel: warn
//	  maxValueWidth: 60
//
//	diff:
//	  contextLines: 3
//
//	replay:
//	  cassetteDir: testdata/cassettes
//	  mode: once             # once, none or all
//
// Unknown keys are rejected, and values are validated after merging; an
// invalid file fails the command with one line per offending field.
package config
