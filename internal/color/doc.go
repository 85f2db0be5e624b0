// Package color provides terminal color detection and theming for the
// console reporter and the TUI.
//
// # Theme System
//
// Colors are organized into semantic categories:
//   - Success: passed tests
//   - Failure: failed assertions
//   - Errored: tests that broke (setup errors, panics)
//   - Warning: slow tests
//   - Muted: skipped tests, durations, secondary text
//   - Accent: headings and highlights
//
// # Usage Example
//
//	r := color.NewRenderer(os.Stdout, color.Enabled(cfg.Output.Color, os.Stdout))
//	styles := color.NewStyles(r)
//	fmt.Println(styles.Pass.Render("✓ adds an item"))
//	fmt.Println(styles.Fail.Render("✗ removes an item"))
//
// # Environment Variables
//
//   - NO_COLOR: disables color in auto mode
//
// An explicit "always" or "never" mode (from --no-color or the config file)
// takes precedence over detection.
package color
