package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"that/pkg/failure"
	"that/pkg/logging"
)

// ErrFixtureNotFound is wrapped when T.Use names no provider.
var ErrFixtureNotFound = errors.New("fixture not found")

// SkipError is raised by T.Skip. The runner reports the test Skipped.
type SkipError struct {
	Reason string
}

func (e *SkipError) Error() string { return "skipped: " + e.Reason }

// T is the per-test handle passed to bodies, setup and teardown.
type T struct {
	ctx       context.Context
	tc        *TestCase
	providers map[string]Provider

	mu       sync.Mutex
	fixture  any
	cache    map[string]any
	cleanups []func() error
	logs     []string
}

// NewT returns the handle for one execution of tc. providers may be nil.
func NewT(ctx context.Context, tc *TestCase, providers map[string]Provider) *T {
	if ctx == nil {
		ctx = context.Background()
	}
	return &T{
		ctx:       ctx,
		tc:        tc,
		providers: providers,
		cache:     make(map[string]any),
	}
}

// Name returns the test's full name.
func (t *T) Name() string { return t.tc.FullName() }

// Case returns the registered test.
func (t *T) Case() *TestCase { return t.tc }

// Context is cancelled when the run is interrupted.
func (t *T) Context() context.Context { return t.ctx }

// Fixture returns the suite setup value, or nil.
func (t *T) Fixture() any {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fixture
}

// SetFixture is called by the runner after suite setup.
func (t *T) SetFixture(v any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fixture = v
}

// Param returns the case value of a parametrized test.
func (t *T) Param() any { return t.tc.Param }

// Use returns the named fixture, building it on first use in this test.
// A missing provider or a failing factory raises a setup error.
func (t *T) Use(name string) any {
	t.mu.Lock()
	if v, ok := t.cache[name]; ok {
		t.mu.Unlock()
		return v
	}
	factory, ok := t.providers[name]
	t.mu.Unlock()
	if !ok {
		failure.Raise(failure.Setup(fmt.Sprintf("Use(%q)", name), ErrFixtureNotFound))
	}

	v, err := factory(t)
	if err != nil {
		failure.Raise(failure.Setup(fmt.Sprintf("fixture %q", name), err))
	}

	t.mu.Lock()
	t.cache[name] = v
	t.mu.Unlock()
	return v
}

// Cleanup registers fn to run after the test and its teardown, last registered first.
func (t *T) Cleanup(fn func()) {
	t.CleanupErr(func() error {
		fn()
		return nil
	})
}

// CleanupErr is Cleanup for functions that can fail. Errors are reported as
// supplementary detail on the test outcome.
func (t *T) CleanupErr(fn func() error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cleanups = append(t.cleanups, fn)
}

// RunCleanups runs every registered cleanup in reverse order and returns
// their errors. Panics are recovered and returned as errors.
func (t *T) RunCleanups() []error {
	t.mu.Lock()
	fns := t.cleanups
	t.cleanups = nil
	t.mu.Unlock()

	var errs []error
	for i := len(fns) - 1; i >= 0; i-- {
		var err error
		if perr := failure.Catch(func() { err = fns[i]() }); perr != nil {
			err = perr
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// Logf records a line shown with the test outcome in verbose output.
func (t *T) Logf(format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	t.mu.Lock()
	t.logs = append(t.logs, line)
	t.mu.Unlock()
	logging.Debug("Runner", "%s: %s", t.Name(), line)
}

// Logs returns the lines recorded with Logf.
func (t *T) Logs() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.logs...)
}

// Skip stops the test and reports it Skipped.
func (t *T) Skip(reason string) {
	panic(&SkipError{Reason: reason})
}

// Skipf is Skip with a formatted reason.
func (t *T) Skipf(format string, args ...any) {
	t.Skip(fmt.Sprintf(format, args...))
}
