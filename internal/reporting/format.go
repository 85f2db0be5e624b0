package reporting

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/pmezard/go-difflib/difflib"

	"that/pkg/diff"
	"that/pkg/failure"
)

// DefaultMaxValueWidth is the display width values are truncated to.
const DefaultMaxValueWidth = 60

const ellipsis = "…"

// FormatDuration renders d with three decimals in seconds from one second
// up, one decimal in milliseconds from one millisecond up, and whole
// microseconds below that.
func FormatDuration(d time.Duration) string {
	switch {
	case d >= time.Second:
		return fmt.Sprintf("%.3fs", d.Seconds())
	case d >= time.Millisecond:
		return fmt.Sprintf("%.1fms", float64(d)/float64(time.Millisecond))
	default:
		return fmt.Sprintf("%.0fμs", float64(d)/float64(time.Microsecond))
	}
}

// FormatValue renders v for a report line. Collections whose rendering is
// wider than width collapse to "<type with N items>"; anything else wider
// than width is truncated with an ellipsis.
func FormatValue(v any, width int) string {
	if width <= 0 {
		width = DefaultMaxValueWidth
	}
	if d, ok := v.(failure.Description); ok {
		return truncate(string(d), width)
	}
	s := diff.FormatValue(v)
	if runewidth.StringWidth(s) <= width {
		return s
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return fmt.Sprintf("<%T with %d items>", v, rv.Len())
	}
	return truncate(s, width)
}

func truncate(s string, width int) string {
	if runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, ellipsis)
}

// describeKind renders a difference kind with values limited to width.
func describeKind(k diff.Kind, width int) string {
	switch k := k.(type) {
	case diff.ValueMismatch:
		if k.Absent == diff.SideExpected {
			return "expected <absent>, got " + FormatValue(k.Actual, width)
		}
		return "expected " + FormatValue(k.Expected, width) + ", got " + FormatValue(k.Actual, width)
	case diff.MissingKey:
		return "missing key (expected " + FormatValue(k.Expected, width) + ")"
	case diff.UnexpectedKey:
		return "unexpected key (value " + FormatValue(k.Actual, width) + ")"
	default:
		return k.String()
	}
}

// textPair returns both operands of a text mismatch.
func textPair(k diff.Kind) (expected, actual string, ok bool) {
	vm, isVM := k.(diff.ValueMismatch)
	if !isVM || vm.Absent != diff.SideNone || vm.DivergeAt < 0 {
		return "", "", false
	}
	expected, eok := vm.Expected.(string)
	actual, aok := vm.Actual.(string)
	return expected, actual, eok && aok
}

// caretLines renders a single-line text mismatch as an expected/actual pair
// with a caret under the first differing character.
func caretLines(expected, actual string, divergeAt int) []string {
	const (
		expectedLabel = "expected: "
		actualLabel   = "actual:   "
	)
	runes := []rune(actual)
	if divergeAt > len(runes) {
		divergeAt = len(runes)
	}
	// The quoted prefix minus its closing quote lines up with the quoted actual value.
	prefix := strconv.Quote(string(runes[:divergeAt]))
	col := runewidth.StringWidth(actualLabel) + runewidth.StringWidth(prefix) - 1
	return []string{
		expectedLabel + strconv.Quote(expected),
		actualLabel + strconv.Quote(actual),
		strings.Repeat(" ", col) + "^",
	}
}

// unifiedDiff renders a multi-line text mismatch.
func unifiedDiff(expected, actual string, context int) []string {
	out, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(expected),
		B:        difflib.SplitLines(actual),
		FromFile: "expected",
		ToFile:   "actual",
		Context:  context,
	})
	if err != nil {
		return []string{"(diff unavailable: " + err.Error() + ")"}
	}
	return strings.Split(strings.TrimRight(out, "\n"), "\n")
}

// FailureLines renders an assertion failure one item per line, without
// indentation or colour.
func FailureLines(f *failure.Error, width, context int) []string {
	lines := []string{f.Error()}
	switch {
	case f.Result != nil && !f.Result.IsEqual:
		for _, d := range f.Result.Differences {
			lines = append(lines, differenceLines(d, width, context)...)
		}
		if f.Result.Err != nil {
			lines = append(lines, "comparison aborted: "+f.Result.Err.Error())
		}
	case f.Expected != nil || f.Actual != nil:
		lines = append(lines,
			"Expected: "+FormatValue(f.Expected, width),
			"Actual:   "+FormatValue(f.Actual, width))
	}
	for _, s := range f.Supplementary {
		lines = append(lines, "also: "+s.Error())
	}
	return lines
}

func differenceLines(d diff.Difference, width, context int) []string {
	at := "at " + d.Path.String() + ": "
	expected, actual, ok := textPair(d.Kind)
	if !ok {
		return []string{at + describeKind(d.Kind, width)}
	}
	if strings.Contains(expected, "\n") || strings.Contains(actual, "\n") {
		lines := []string{at + "text differs"}
		for _, l := range unifiedDiff(expected, actual, context) {
			lines = append(lines, "  "+l)
		}
		return lines
	}
	if runewidth.StringWidth(expected) > width || runewidth.StringWidth(actual) > width {
		return []string{at + describeKind(d.Kind, width)}
	}
	lines := []string{at + "text differs"}
	for _, l := range caretLines(expected, actual, d.Kind.(diff.ValueMismatch).DivergeAt) {
		lines = append(lines, "  "+l)
	}
	return lines
}
