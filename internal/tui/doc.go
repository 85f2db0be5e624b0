// Package tui provides the live terminal view for `that test --tui`.
//
// The view is a Bubble Tea program fed by a Reporter: the runner executes on
// its own goroutine and every event becomes a message handled by Model.Update.
//
// # Layout
//
//   - Header: spinner, progress bar and the test currently running; the
//     summary replaces it once the run ends
//   - Outcome lines grouped by suite, trimmed to the terminal height
//   - Failure pane: every Failed or Errored test, with the selected one
//     expanded to its full detail
//   - Recent log lines and key help
//
// # Keys
//
//   - ↑/k, ↓/j: select a failure
//   - y: copy the selected failure to the clipboard
//   - h: toggle help
//   - q, ctrl+c: quit; during a run this stops after the current test
package tui
