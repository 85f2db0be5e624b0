// Package runner executes registered tests sequentially and classifies
// their outcomes.
package runner

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"

	"that/pkg/failure"
	"that/pkg/logging"
	"that/pkg/registry"
)

// DefaultSlowThreshold marks tests slower than this as slow.
const DefaultSlowThreshold = time.Second

// Runner executes the tests of a registry.
type Runner struct {
	reg           *registry.Registry
	reporter      Reporter
	filter        registry.Filter
	failFast      bool
	slowThreshold time.Duration
	verbose       bool
	hooks         Hooks
}

// Option configures a Runner.
type Option func(*Runner)

// WithReporter sets the event sink. The default discards events.
func WithReporter(rep Reporter) Option {
	return func(r *Runner) {
		if rep != nil {
			r.reporter = rep
		}
	}
}

// WithFilter narrows the tests to run.
func WithFilter(f registry.Filter) Option {
	return func(r *Runner) { r.filter = f }
}

// WithFailFast stops after the first Failed or Errored test.
func WithFailFast(enabled bool) Option {
	return func(r *Runner) { r.failFast = enabled }
}

// WithSlowThreshold overrides DefaultSlowThreshold.
func WithSlowThreshold(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.slowThreshold = d
		}
	}
}

// WithVerbose captures stack traces for Errored tests.
func WithVerbose(enabled bool) Option {
	return func(r *Runner) { r.verbose = enabled }
}

// WithHooks installs lifecycle hooks.
func WithHooks(h Hooks) Option {
	return func(r *Runner) { r.hooks = h }
}

// New creates a runner over reg.
func New(reg *registry.Registry, opts ...Option) *Runner {
	r := &Runner{
		reg:           reg,
		reporter:      nopReporter{},
		slowThreshold: DefaultSlowThreshold,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the selected tests in order: standalone tests, then suites in
// first-declaration order. Cancelling ctx skips the tests not yet started; a
// running body is never interrupted.
func (r *Runner) Run(ctx context.Context) (*Summary, []Outcome) {
	tests := r.reg.Select(r.filter)
	summary := &Summary{
		RunID:     uuid.NewString(),
		StartTime: time.Now(),
		Success:   true,
	}
	outcomes := make([]Outcome, 0, len(tests))

	logging.Info("Runner", "run %s: %d test(s) selected", summary.RunID, len(tests))
	r.hook("BeforeRun", func() {
		if r.hooks.BeforeRun != nil {
			r.hooks.BeforeRun(tests)
		}
	})
	r.reporter.ReportStart(len(tests))

	currentSuite := ""
	endSuite := func() {
		if currentSuite == "" {
			return
		}
		suite := currentSuite
		r.hook("AfterSuite", func() {
			if r.hooks.AfterSuite != nil {
				r.hooks.AfterSuite(suite)
			}
		})
	}

	for _, tc := range tests {
		if tc.Suite != currentSuite {
			endSuite()
			currentSuite = tc.Suite
			if currentSuite != "" {
				suite := currentSuite
				r.reporter.ReportSuiteStart(suite)
				r.hook("BeforeSuite", func() {
					if r.hooks.BeforeSuite != nil {
						r.hooks.BeforeSuite(suite)
					}
				})
			}
		}

		var o Outcome
		if err := ctx.Err(); err != nil {
			summary.Interrupted = true
			o = newOutcome(tc)
			o.Status = StatusSkipped
			o.SkipReason = "run interrupted: " + err.Error()
		} else {
			r.reporter.ReportTestStart(tc)
			r.hook("BeforeTest", func() {
				if r.hooks.BeforeTest != nil {
					r.hooks.BeforeTest(tc)
				}
			})
			o = r.runTest(ctx, tc)
		}

		r.reporter.ReportOutcome(o)
		r.hook("AfterTest", func() {
			if r.hooks.AfterTest != nil {
				r.hooks.AfterTest(o)
			}
		})
		summary.add(o)
		outcomes = append(outcomes, o)

		if r.failFast && (o.Status == StatusFailed || o.Status == StatusErrored) {
			logging.Info("Runner", "fail-fast: stopping after %q", o.FullName())
			break
		}
	}
	endSuite()

	summary.Duration = time.Since(summary.StartTime)
	logging.Info("Runner", "run %s finished: %d passed, %d failed, %d errored, %d skipped",
		summary.RunID, summary.Passed, summary.Failed, summary.Errored, summary.Skipped)
	r.hook("AfterRun", func() {
		if r.hooks.AfterRun != nil {
			r.hooks.AfterRun(*summary)
		}
	})
	r.reporter.ReportSummary(*summary, outcomes)
	return summary, outcomes
}

func newOutcome(tc *registry.TestCase) Outcome {
	return Outcome{
		ID:          tc.ID,
		Description: tc.Description,
		Suite:       tc.Suite,
		Tags:        tc.TagList(),
		Status:      StatusPending,
		File:        tc.File,
		Line:        tc.Line,
	}
}

// runTest drives one test through setup, body, teardown and cleanups. The
// teardown and cleanups run whatever the body did.
func (r *Runner) runTest(ctx context.Context, tc *registry.TestCase) Outcome {
	o := newOutcome(tc)
	o.StartTime = time.Now()
	o.Status = StatusRunning

	if tc.SkipReason != "" {
		o.Status = StatusSkipped
		o.SkipReason = tc.SkipReason
		return o
	}

	var def *registry.SuiteDef
	var providers map[string]registry.Provider
	if tc.Suite != "" {
		if d, ok := r.reg.Lookup(tc.Suite); ok {
			def = d
			providers = d.Providers
		}
	}
	t := registry.NewT(ctx, tc, providers)

	var primary error
	var extra []error

	ready := true
	if def != nil && def.Setup != nil {
		var fixture any
		var serr error
		if perr := failure.Catch(func() { fixture, serr = def.Setup(t) }); perr != nil {
			serr = perr
		}
		switch {
		case serr == nil:
			t.SetFixture(fixture)
		case isSkip(serr):
			primary = serr
			ready = false
		default:
			primary = failure.Setup("setup failed", serr)
			ready = false
		}
	}

	if ready {
		primary = failure.Catch(func() { tc.Body(t) })

		if def != nil && def.Teardown != nil {
			var terr error
			if perr := failure.Catch(func() { terr = def.Teardown(t, t.Fixture()) }); perr != nil {
				terr = perr
			}
			if terr != nil {
				extra = append(extra, fmt.Errorf("teardown failed: %w", terr))
			}
		}
	}

	for _, err := range t.RunCleanups() {
		extra = append(extra, fmt.Errorf("cleanup failed: %w", err))
	}

	o.Duration = time.Since(o.StartTime)
	o.Slow = o.Duration > r.slowThreshold
	o.Logs = t.Logs()
	r.classify(&o, primary, extra)
	logging.Debug("Runner", "%s: %s in %s", o.FullName(), o.Status, o.Duration)
	return o
}

func isSkip(err error) bool {
	var skip *registry.SkipError
	return errors.As(err, &skip)
}

// classify sets the terminal status. Only a KindAssertion error raised by the
// body makes a test Failed; teardown errors never mask it.
func (r *Runner) classify(o *Outcome, primary error, extra []error) {
	var skip *registry.SkipError
	switch {
	case primary == nil || errors.As(primary, &skip):
		if len(extra) > 0 {
			o.Status = StatusErrored
			o.Err = r.detail(extra[0])
			o.Err.Supplementary = messages(extra[1:])
			return
		}
		if skip != nil {
			o.Status = StatusSkipped
			o.SkipReason = skip.Reason
			return
		}
		o.Status = StatusPassed

	default:
		if fe, ok := primary.(*failure.Error); ok && fe.Kind == failure.KindAssertion {
			cp := *fe
			cp.Supplementary = append(append([]error(nil), fe.Supplementary...), extra...)
			o.Status = StatusFailed
			o.Failure = &cp
			return
		}
		o.Status = StatusErrored
		o.Err = r.detail(primary)
		o.Err.Supplementary = messages(extra)
	}
}

func (r *Runner) detail(err error) *ErrorDetail {
	d := &ErrorDetail{Kind: "Error", Message: err.Error()}

	var fe *failure.Error
	var p *failure.Panic
	hasPanic := errors.As(err, &p)
	switch {
	case errors.As(err, &fe):
		d.Kind = fe.Kind.String()
	case hasPanic:
		d.Kind = panicKind(p.Value)
		if err == error(p) {
			d.Message = fmt.Sprint(p.Value)
		}
	}
	if hasPanic && r.verbose {
		d.Trace = p.Stack
	}
	return d
}

func panicKind(v any) string {
	switch e := v.(type) {
	case runtime.Error:
		return "RuntimeError"
	case error:
		return strings.TrimPrefix(fmt.Sprintf("%T", e), "*")
	default:
		return "Panic"
	}
}

func messages(errs []error) []string {
	if len(errs) == 0 {
		return nil
	}
	out := make([]string, len(errs))
	for i, err := range errs {
		out[i] = err.Error()
	}
	return out
}

func (r *Runner) hook(name string, fn func()) {
	if err := failure.Catch(fn); err != nil {
		logging.Warn("Runner", "%s hook panicked: %v", name, err)
	}
}
