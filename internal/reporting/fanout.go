package reporting

import (
	"that/pkg/registry"
	"that/pkg/runner"
)

type fanout []runner.Reporter

// Fanout forwards every event to each reporter in order. Nil reporters are skipped.
func Fanout(reporters ...runner.Reporter) runner.Reporter {
	var f fanout
	for _, r := range reporters {
		if r != nil {
			f = append(f, r)
		}
	}
	if len(f) == 1 {
		return f[0]
	}
	return f
}

func (f fanout) ReportStart(total int) {
	for _, r := range f {
		r.ReportStart(total)
	}
}

func (f fanout) ReportSuiteStart(suite string) {
	for _, r := range f {
		r.ReportSuiteStart(suite)
	}
}

func (f fanout) ReportTestStart(tc *registry.TestCase) {
	for _, r := range f {
		r.ReportTestStart(tc)
	}
}

func (f fanout) ReportOutcome(o runner.Outcome) {
	for _, r := range f {
		r.ReportOutcome(o)
	}
}

func (f fanout) ReportSummary(s runner.Summary, outcomes []runner.Outcome) {
	for _, r := range f {
		r.ReportSummary(s, outcomes)
	}
}
