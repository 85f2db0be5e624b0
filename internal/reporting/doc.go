// Package reporting renders test runs for people and tools.
//
// Every reporter implements runner.Reporter:
//
//   - Console: per-suite progress with ✓/✗/! lines, structured failure
//     detail and a summary table. Focus mode holds back the per-test lines
//     and lists failures after the run.
//   - Quiet: failures and a one-line summary.
//   - JSON: one document per run, optionally saved under a report directory.
//
// Fanout combines several reporters, e.g. console output plus a saved report.
package reporting
