package registry

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"

	"that/pkg/failure"
)

// SuiteBuilder declares the tests and hooks of one suite.
type SuiteBuilder struct {
	reg      *Registry
	def      *SuiteDef
	defaults []Option
}

// Name returns the suite name.
func (s *SuiteBuilder) Name() string { return s.def.Name }

// Setup sets the per-test fixture factory. Its value is passed to Teardown
// and exposed through T.Fixture.
func (s *SuiteBuilder) Setup(fn func(*T) (any, error)) {
	s.reg.mu.Lock()
	defer s.reg.mu.Unlock()
	if s.def.Setup != nil {
		panic(failure.Registration("suite %q declares Setup twice", s.def.Name))
	}
	s.def.Setup = fn
}

// Teardown runs after every test of the suite, whatever the outcome.
func (s *SuiteBuilder) Teardown(fn func(t *T, fixture any) error) {
	s.reg.mu.Lock()
	defer s.reg.mu.Unlock()
	if s.def.Teardown != nil {
		panic(failure.Registration("suite %q declares Teardown twice", s.def.Name))
	}
	s.def.Teardown = fn
}

// Provide registers a named fixture built lazily by T.Use.
func (s *SuiteBuilder) Provide(name string, factory Provider) {
	s.reg.mu.Lock()
	defer s.reg.mu.Unlock()
	if _, dup := s.def.Providers[name]; dup {
		panic(failure.Registration("suite %q provides %q twice", s.def.Name, name))
	}
	s.def.Providers[name] = factory
}

// Test registers a test in the suite. Suite-level options apply first.
func (s *SuiteBuilder) Test(description string, body func(*T), opts ...Option) *TestCase {
	s.reg.mu.Lock()
	defer s.reg.mu.Unlock()
	file, line := callerLocation(1)
	return s.reg.add(s.def.Name, description, body, nil, s.merge(opts), file, line)
}

// Parametrize registers one test per case. Descriptions get the case
// appended: "desc [1, 2]" for slices, "desc [a=1, b=2]" for maps and structs.
func (s *SuiteBuilder) Parametrize(description string, cases []any, body func(t *T, param any), opts ...Option) []*TestCase {
	s.reg.mu.Lock()
	defer s.reg.mu.Unlock()

	file, line := callerLocation(1)
	out := make([]*TestCase, 0, len(cases))
	for _, c := range cases {
		c := c
		desc := fmt.Sprintf("%s [%s]", description, caseLabel(c))
		out = append(out, s.reg.add(s.def.Name, desc, func(t *T) { body(t, c) }, c, s.merge(opts), file, line))
	}
	return out
}

func (s *SuiteBuilder) merge(opts []Option) []Option {
	if len(s.defaults) == 0 {
		return opts
	}
	return append(slices.Clone(s.defaults), opts...)
}

func caseLabel(c any) string {
	rv := reflect.ValueOf(c)
	for rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
			break
		}
		parts := make([]string, rv.Len())
		for i := range parts {
			parts[i] = fmt.Sprint(rv.Index(i).Interface())
		}
		return strings.Join(parts, ", ")
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		values := make(map[string]any, rv.Len())
		for _, k := range rv.MapKeys() {
			values[k.String()] = rv.MapIndex(k).Interface()
		}
		parts := make([]string, 0, len(values))
		for _, k := range slices.Sorted(maps.Keys(values)) {
			parts = append(parts, fmt.Sprintf("%s=%v", k, values[k]))
		}
		return strings.Join(parts, ", ")
	case reflect.Struct:
		var parts []string
		for i := 0; i < rv.NumField(); i++ {
			f := rv.Type().Field(i)
			if !f.IsExported() {
				continue
			}
			parts = append(parts, fmt.Sprintf("%s=%v", f.Name, rv.Field(i).Interface()))
		}
		if len(parts) > 0 {
			return strings.Join(parts, ", ")
		}
	}
	return fmt.Sprint(c)
}
