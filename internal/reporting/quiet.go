package reporting

import (
	"fmt"
	"io"

	"that/pkg/registry"
	"that/pkg/runner"
)

// Quiet prints failures as they happen and a single summary line.
type Quiet struct {
	out           io.Writer
	maxValueWidth int
	contextLines  int
}

// NewQuiet creates a quiet reporter writing to w.
func NewQuiet(w io.Writer, maxValueWidth, contextLines int) *Quiet {
	if maxValueWidth <= 0 {
		maxValueWidth = DefaultMaxValueWidth
	}
	return &Quiet{out: w, maxValueWidth: maxValueWidth, contextLines: contextLines}
}

func (q *Quiet) ReportStart(int)                    {}
func (q *Quiet) ReportSuiteStart(string)            {}
func (q *Quiet) ReportTestStart(*registry.TestCase) {}

// ReportOutcome prints Failed and Errored tests only.
func (q *Quiet) ReportOutcome(o runner.Outcome) {
	var lines []string
	switch {
	case o.Status == runner.StatusFailed && o.Failure != nil:
		lines = FailureLines(o.Failure, q.maxValueWidth, q.contextLines)
		fmt.Fprintf(q.out, "%s %s%s\n", symbolFail, o.FullName(), locationSuffix(o))
	case o.Status == runner.StatusErrored && o.Err != nil:
		lines = ErrorLines(o.Err, false)
		fmt.Fprintf(q.out, "%s %s%s\n", symbolError, o.FullName(), locationSuffix(o))
	default:
		return
	}
	for _, l := range lines {
		fmt.Fprintf(q.out, "    %s\n", l)
	}
}

func locationSuffix(o runner.Outcome) string {
	if loc := o.Location(); loc != "" {
		return " (" + loc + ")"
	}
	return ""
}

// ReportSummary prints the counts on one line.
func (q *Quiet) ReportSummary(s runner.Summary, _ []runner.Outcome) {
	verdict := "PASSED"
	if !s.Success {
		verdict = "FAILED"
	}
	fmt.Fprintf(q.out, "%s: %d passed, %d failed, %d errored, %d skipped in %s\n",
		verdict, s.Passed, s.Failed, s.Errored, s.Skipped, FormatDuration(s.Duration))
}
