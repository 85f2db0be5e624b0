package runner

import (
	"time"

	"that/pkg/failure"
	"that/pkg/registry"
)

// Status is the state of one test execution.
type Status string

const (
	// StatusPending means the test has not started
	StatusPending Status = "PENDING"
	// StatusRunning means setup or the body is executing
	StatusRunning Status = "RUNNING"
	// StatusPassed indicates the body completed without error
	StatusPassed Status = "PASSED"
	// StatusFailed indicates an assertion did not hold
	StatusFailed Status = "FAILED"
	// StatusErrored indicates any other error: setup, panics, framework misuse
	StatusErrored Status = "ERRORED"
	// StatusSkipped indicates the test was not run
	StatusSkipped Status = "SKIPPED"
)

// Terminal reports whether s is a final status.
func (s Status) Terminal() bool {
	switch s {
	case StatusPassed, StatusFailed, StatusErrored, StatusSkipped:
		return true
	}
	return false
}

// ErrorDetail describes an Errored test.
type ErrorDetail struct {
	// Kind is the failure kind or the Go type of the panic value
	Kind    string `json:"kind"`
	Message string `json:"message"`
	// Trace is the goroutine stack, captured in verbose mode only
	Trace         string   `json:"trace,omitempty"`
	Supplementary []string `json:"supplementary,omitempty"`
}

// Outcome is the result of one test, handed read-only to reporters.
type Outcome struct {
	ID          int           `json:"id"`
	Description string        `json:"description"`
	Suite       string        `json:"suite,omitempty"`
	Tags        []string      `json:"tags,omitempty"`
	Status      Status        `json:"status"`
	StartTime   time.Time     `json:"start_time"`
	Duration    time.Duration `json:"duration"`
	// Failure is set for Failed tests.
	Failure *failure.Error `json:"-"`
	// Err is set for Errored tests.
	Err        *ErrorDetail `json:"error,omitempty"`
	SkipReason string       `json:"skip_reason,omitempty"`
	// Slow is set when the duration exceeded the slow threshold.
	Slow bool     `json:"slow,omitempty"`
	Logs []string `json:"logs,omitempty"`
	// File and Line are where the test was registered.
	File string `json:"file,omitempty"`
	Line int    `json:"line,omitempty"`
}

// FullName returns "Suite › Description", or the description for standalone tests.
func (o Outcome) FullName() string {
	if o.Suite == "" {
		return o.Description
	}
	return o.Suite + " › " + o.Description
}

// Location returns "file:line" for the test's registration, or "".
func (o Outcome) Location() string {
	return registry.FormatLocation(o.File, o.Line)
}

// Summary aggregates the outcomes of one run.
type Summary struct {
	RunID     string        `json:"run_id"`
	StartTime time.Time     `json:"start_time"`
	Duration  time.Duration `json:"duration"`
	Total     int           `json:"total"`
	Passed    int           `json:"passed"`
	Failed    int           `json:"failed"`
	Errored   int           `json:"errored"`
	Skipped   int           `json:"skipped"`
	// Success is true when no test failed or errored. Skipped tests don't count.
	Success bool `json:"success"`
	// Interrupted is set when the context was cancelled before the last test.
	Interrupted bool `json:"interrupted,omitempty"`
}

func (s *Summary) add(o Outcome) {
	s.Total++
	switch o.Status {
	case StatusPassed:
		s.Passed++
	case StatusFailed:
		s.Failed++
	case StatusErrored:
		s.Errored++
	case StatusSkipped:
		s.Skipped++
	}
	s.Success = s.Failed == 0 && s.Errored == 0
}

// Reporter receives run events in order. Implementations must not retain
// or modify the test cases they are given.
type Reporter interface {
	// ReportStart is called once with the number of selected tests
	ReportStart(total int)
	// ReportSuiteStart is called before the first test of each suite
	ReportSuiteStart(suite string)
	// ReportTestStart is called when a test begins
	ReportTestStart(tc *registry.TestCase)
	// ReportOutcome is called when a test reaches a terminal status
	ReportOutcome(o Outcome)
	// ReportSummary is called when all tests complete
	ReportSummary(s Summary, outcomes []Outcome)
}

// Hooks observe the run lifecycle. Nil fields are ignored; panics inside a
// hook are logged and never affect outcomes.
type Hooks struct {
	BeforeRun   func(tests []*registry.TestCase)
	AfterRun    func(s Summary)
	BeforeSuite func(suite string)
	AfterSuite  func(suite string)
	BeforeTest  func(tc *registry.TestCase)
	AfterTest   func(o Outcome)
}

type nopReporter struct{}

func (nopReporter) ReportStart(int)                    {}
func (nopReporter) ReportSuiteStart(string)            {}
func (nopReporter) ReportTestStart(*registry.TestCase) {}
func (nopReporter) ReportOutcome(Outcome)              {}
func (nopReporter) ReportSummary(Summary, []Outcome)   {}
