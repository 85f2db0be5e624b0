// Package registry holds declared tests and suites in declaration order.
//
// A Registry is an explicit value. Test packages expose a registration
// function that receives it:
//
//	func Register(reg *registry.Registry) {
//		reg.Suite("todo store", func(s *registry.SuiteBuilder) {
//			s.Setup(func(t *registry.T) (any, error) { return newStore(t) })
//			s.Test("adds an item", func(t *registry.T) { ... })
//		})
//	}
package registry

import (
	"fmt"
	"strings"
	"sync"

	"that/pkg/failure"
	"that/pkg/logging"
)

// TestCase is one registered test. It is not modified after registration.
type TestCase struct {
	ID          int
	Description string
	// Suite is empty for standalone tests.
	Suite string
	Tags  map[string]struct{}
	Body  func(*T)
	// Param is the case value for parametrized tests.
	Param      any
	Slow       bool
	SkipReason string
	// File and Line are where the test was registered.
	File string
	Line int
}

// FullName returns "Suite › Description", or the description for standalone tests.
func (tc *TestCase) FullName() string {
	if tc.Suite == "" {
		return tc.Description
	}
	return tc.Suite + " › " + tc.Description
}

// HasTag reports whether the test carries tag.
func (tc *TestCase) HasTag(tag string) bool {
	_, ok := tc.Tags[tag]
	return ok
}

// TagList returns the tags sorted.
func (tc *TestCase) TagList() []string {
	return sortedTags(tc.Tags)
}

// Provider builds a named fixture on first use within a test.
type Provider func(t *T) (any, error)

// SuiteDef holds the suite-level hooks the runner needs.
type SuiteDef struct {
	Name      string
	Setup     func(*T) (any, error)
	Teardown  func(*T, any) error
	Providers map[string]Provider
	tests     []*TestCase
}

// Registry is the ordered collection of declared tests.
type Registry struct {
	mu         sync.RWMutex
	nextID     int
	tests      []*TestCase
	suiteOrder []string
	suites     map[string]*SuiteDef
	building   string
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{suites: make(map[string]*SuiteDef)}
}

// Reset drops every registered test and suite.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID = 0
	r.tests = nil
	r.suiteOrder = nil
	r.suites = make(map[string]*SuiteDef)
	r.building = ""
	logging.Debug("Registry", "registry reset")
}

// Test registers a standalone test. Invalid declarations panic with a
// KindRegistration error.
func (r *Registry) Test(description string, body func(*T), opts ...Option) *TestCase {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.building != "" {
		panic(failure.Registration("Test(%q) called on the registry while building suite %q; use the suite builder", description, r.building))
	}
	file, line := callerLocation(1)
	return r.add("", description, body, nil, opts, file, line)
}

// Suite declares a named group of tests. Declaring the same name again
// appends to the existing suite, which keeps its original position.
func (r *Registry) Suite(name string, build func(*SuiteBuilder), opts ...Option) {
	r.mu.Lock()
	if r.building != "" {
		building := r.building
		r.mu.Unlock()
		panic(failure.Registration("suite %q declared inside suite %q; suites cannot be nested", name, building))
	}
	if strings.TrimSpace(name) == "" {
		r.mu.Unlock()
		panic(failure.Registration("suite name must not be empty"))
	}
	def, ok := r.suites[name]
	if !ok {
		def = &SuiteDef{Name: name, Providers: make(map[string]Provider)}
		r.suites[name] = def
		r.suiteOrder = append(r.suiteOrder, name)
	}
	r.building = name
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.building = ""
		r.mu.Unlock()
	}()

	build(&SuiteBuilder{reg: r, def: def, defaults: opts})
	logging.Debug("Registry", "suite %q has %d test(s)", name, len(def.tests))
}

func (r *Registry) add(suite, description string, body func(*T), param any, opts []Option, file string, line int) *TestCase {
	if strings.TrimSpace(description) == "" {
		panic(failure.Registration("test description must not be empty (suite %q)", suite))
	}
	if body == nil {
		panic(failure.Registration("test %q has no body", description))
	}

	var def *SuiteDef
	if suite != "" {
		def = r.suites[suite]
		for _, existing := range def.tests {
			if existing.Description == description {
				panic(failure.Registration("duplicate test %q in suite %q", description, suite))
			}
		}
	}

	cfg := applyOptions(opts)
	r.nextID++
	tc := &TestCase{
		ID:          r.nextID,
		Description: description,
		Suite:       suite,
		Tags:        cfg.tags,
		Body:        body,
		Param:       param,
		Slow:        cfg.slow,
		SkipReason:  cfg.skip,
		File:        file,
		Line:        line,
	}
	r.tests = append(r.tests, tc)
	if def != nil {
		def.tests = append(def.tests, tc)
	}
	return tc
}

// Tests returns every test in registration order.
func (r *Registry) Tests() []*TestCase {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*TestCase, len(r.tests))
	copy(out, r.tests)
	return out
}

// Suites returns suite names in first-declaration order.
func (r *Registry) Suites() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.suiteOrder))
	copy(out, r.suiteOrder)
	return out
}

// SuiteTests returns the tests of one suite in declaration order.
func (r *Registry) SuiteTests(name string) []*TestCase {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.suites[name]
	if !ok {
		return nil
	}
	out := make([]*TestCase, len(def.tests))
	copy(out, def.tests)
	return out
}

// Lookup returns the hooks of a suite.
func (r *Registry) Lookup(name string) (*SuiteDef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.suites[name]
	return def, ok
}

// Find returns the test whose FullName or description equals name.
func (r *Registry) Find(name string) (*TestCase, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, tc := range r.tests {
		if tc.FullName() == name {
			return tc, true
		}
	}
	for _, tc := range r.tests {
		if tc.Description == name {
			return tc, true
		}
	}
	return nil, false
}

// Len returns the number of registered tests.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tests)
}

// Select returns the tests matching f in execution order: standalone tests
// first, then each suite in first-declaration order.
func (r *Registry) Select(f Filter) []*TestCase {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var at map[int]bool
	if len(f.Locations) > 0 {
		// Validate reports unresolvable locations; here they select nothing.
		at, _ = r.resolveLocations(f.Locations)
	}
	keep := func(tc *TestCase) bool {
		return f.Matches(tc) && (at == nil || at[tc.ID])
	}

	var out []*TestCase
	for _, tc := range r.tests {
		if tc.Suite == "" && keep(tc) {
			out = append(out, tc)
		}
	}
	for _, name := range r.suiteOrder {
		for _, tc := range r.suites[name].tests {
			if keep(tc) {
				out = append(out, tc)
			}
		}
	}
	return out
}

// Validate reports filter values that name no registered suite or location.
func (r *Registry) Validate(f Filter) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range f.Suites {
		if _, ok := r.suites[s]; !ok {
			return fmt.Errorf("unknown suite %q", s)
		}
	}
	if len(f.Locations) > 0 {
		if _, err := r.resolveLocations(f.Locations); err != nil {
			return err
		}
	}
	return nil
}
