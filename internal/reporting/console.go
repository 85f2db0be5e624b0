package reporting

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"that/internal/color"
	"that/pkg/registry"
	"that/pkg/runner"
)

const (
	symbolPass  = "✓"
	symbolFail  = "✗"
	symbolError = "!"
	symbolSkip  = "-"
)

// ConsoleOptions configures the console reporter.
type ConsoleOptions struct {
	// Verbose prints error traces and captured test logs.
	Verbose bool
	// Focus holds back per-test lines and prints failures after the run.
	Focus bool
	// Color enables ANSI styling.
	Color bool
	// ContextLines is the unified diff context for multi-line text.
	ContextLines int
	// MaxValueWidth truncates rendered values.
	MaxValueWidth int
}

// Console writes human-readable progress grouped by suite.
type Console struct {
	out    io.Writer
	opts   ConsoleOptions
	styles color.Styles
	title  cases.Caser
}

// NewConsole creates a console reporter writing to w.
func NewConsole(w io.Writer, opts ConsoleOptions) *Console {
	if opts.MaxValueWidth <= 0 {
		opts.MaxValueWidth = DefaultMaxValueWidth
	}
	if opts.ContextLines < 0 {
		opts.ContextLines = 0
	}
	return &Console{
		out:    w,
		opts:   opts,
		styles: color.NewStyles(color.NewRenderer(w, opts.Color)),
		title:  cases.Title(language.English),
	}
}

func (c *Console) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(c.out, format, args...)
}

// ReportStart implements runner.Reporter.
func (c *Console) ReportStart(total int) {
	c.printf("%s\n", c.styles.Bold.Render(fmt.Sprintf("Running %d %s", total, plural(total, "test"))))
}

// ReportSuiteStart implements runner.Reporter.
func (c *Console) ReportSuiteStart(suite string) {
	if c.opts.Focus {
		return
	}
	c.printf("\n%s\n", c.styles.Suite.Render(suite))
}

// ReportTestStart implements runner.Reporter.
func (c *Console) ReportTestStart(*registry.TestCase) {}

// ReportOutcome implements runner.Reporter.
func (c *Console) ReportOutcome(o runner.Outcome) {
	if c.opts.Focus {
		return
	}
	indent := ""
	if o.Suite != "" {
		indent = "  "
	}
	c.printf("%s%s\n", indent, c.line(o, o.Description))
	c.writeDetail(o, indent+"    ")
}

// ReportSummary implements runner.Reporter.
func (c *Console) ReportSummary(s runner.Summary, outcomes []runner.Outcome) {
	if c.opts.Focus {
		c.writeFocus(outcomes)
	}

	c.printf("\n%s\n", strings.Repeat("─", 40))
	c.printf("Ran %d %s in %s\n", s.Total, plural(s.Total, "test"), FormatDuration(s.Duration))
	c.writeCounts(s)

	verdict := c.styles.Pass.Render("PASSED")
	if !s.Success {
		verdict = c.styles.Fail.Render("FAILED")
	}
	if s.Interrupted {
		verdict += c.styles.Muted.Render(" (interrupted)")
	}
	c.printf("%s\n", verdict)
}

// line renders the status line of one outcome.
func (c *Console) line(o runner.Outcome, name string) string {
	var symbol string
	var style lipgloss.Style
	switch o.Status {
	case runner.StatusPassed:
		symbol, style = symbolPass, c.styles.Pass
	case runner.StatusFailed:
		symbol, style = symbolFail, c.styles.Fail
	case runner.StatusErrored:
		symbol, style = symbolError, c.styles.Error
	default:
		symbol, style = symbolSkip, c.styles.Skip
	}

	var b strings.Builder
	b.WriteString(style.Render(symbol + " " + name))
	if o.Status == runner.StatusSkipped {
		reason := "skipped"
		if o.SkipReason != "" {
			reason += ": " + o.SkipReason
		}
		b.WriteString(c.styles.Muted.Render(" (" + reason + ")"))
		return b.String()
	}
	b.WriteString(c.styles.Muted.Render(" (" + FormatDuration(o.Duration) + ")"))
	if o.Slow {
		b.WriteString(" " + c.styles.Slow.Render("[SLOW]"))
	}
	return b.String()
}

// writeDetail prints the failure or error body under an outcome line.
func (c *Console) writeDetail(o runner.Outcome, indent string) {
	var lines []string
	switch {
	case o.Status == runner.StatusFailed && o.Failure != nil:
		lines = FailureLines(o.Failure, c.opts.MaxValueWidth, c.opts.ContextLines)
		if len(lines) > 0 {
			lines[0] = c.styles.Fail.Render(lines[0])
		}
	case o.Status == runner.StatusErrored && o.Err != nil:
		lines = ErrorLines(o.Err, c.opts.Verbose)
		if len(lines) > 0 {
			lines[0] = c.styles.Error.Render(lines[0])
		}
	}
	if loc := o.Location(); loc != "" && len(lines) > 0 {
		lines = append(lines[:1], append([]string{c.styles.Muted.Render("at " + loc)}, lines[1:]...)...)
	}
	if c.opts.Verbose && o.Status != runner.StatusPassed {
		for _, l := range o.Logs {
			lines = append(lines, c.styles.Muted.Render("log: "+l))
		}
	}
	for _, l := range lines {
		c.printf("%s%s\n", indent, l)
	}
}

// writeFocus prints passed tests as a compact list, then every problem in full.
func (c *Console) writeFocus(outcomes []runner.Outcome) {
	var passed, problems []runner.Outcome
	for _, o := range outcomes {
		switch o.Status {
		case runner.StatusPassed:
			passed = append(passed, o)
		case runner.StatusFailed, runner.StatusErrored:
			problems = append(problems, o)
		}
	}

	if len(passed) > 0 {
		c.printf("\n%s\n", c.styles.Pass.Render(fmt.Sprintf("%d passed", len(passed))))
		for _, o := range passed {
			c.printf("  %s\n", c.styles.Muted.Render(symbolPass+" "+o.FullName()))
		}
	}
	if len(problems) == 0 {
		return
	}
	c.printf("\n%s\n", c.styles.Bold.Render("Failures"))
	for _, o := range problems {
		c.printf("\n  %s\n", c.line(o, o.FullName()))
		c.writeDetail(o, "    ")
	}
}

func (c *Console) writeCounts(s runner.Summary) {
	table := tablewriter.NewWriter(c.out)
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})
	rows := []struct {
		status runner.Status
		count  int
	}{
		{runner.StatusPassed, s.Passed},
		{runner.StatusFailed, s.Failed},
		{runner.StatusErrored, s.Errored},
		{runner.StatusSkipped, s.Skipped},
	}
	for _, r := range rows {
		if r.count == 0 && r.status != runner.StatusPassed {
			continue
		}
		table.Append([]string{c.title.String(string(r.status)), fmt.Sprintf("%d", r.count)})
	}
	table.Render()
}

// ErrorLines renders an errored test's detail. The trace is included only
// when verbose is set.
func ErrorLines(e *runner.ErrorDetail, verbose bool) []string {
	lines := []string{fmt.Sprintf("ERROR %s: %s", e.Kind, e.Message)}
	if verbose && e.Trace != "" {
		for _, l := range strings.Split(strings.TrimRight(e.Trace, "\n"), "\n") {
			lines = append(lines, "  "+l)
		}
	}
	for _, s := range e.Supplementary {
		lines = append(lines, "also: "+s)
	}
	return lines
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
