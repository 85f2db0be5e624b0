package that

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/mattn/go-runewidth"

	"that/pkg/diff"
	"that/pkg/failure"
)

const maxLabelWidth = 48

// Subject wraps a value under test. Methods return the subject so checks
// chain left to right; a failing check panics with *failure.Error, which
// aborts the rest of the chain.
type Subject struct {
	value any
	label string
}

// That starts an assertion chain on value. The optional label replaces the
// default "That(<value>)" in failure messages.
func That(value any, label ...string) *Subject {
	l := ""
	if len(label) > 0 {
		l = label[0]
	}
	if l == "" {
		l = "That(" + render(value) + ")"
	}
	return &Subject{value: value, label: l}
}

// Value returns the wrapped value unchanged.
func (s *Subject) Value() any { return s.value }

// Label returns the expression label used in failure messages.
func (s *Subject) Label() string { return s.label }

func (s *Subject) expr(method string, args ...any) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = render(a)
	}
	return fmt.Sprintf("%s.%s(%s)", s.label, method, strings.Join(parts, ", "))
}

func (s *Subject) fail(expr string, expected, actual any) {
	failure.Raise(failure.Predicate(expr, expected, actual))
}

func (s *Subject) misuse(expr string, format string, args ...any) {
	failure.Raise(failure.Setup(expr, fmt.Errorf(format, args...)))
}

func render(v any) string {
	if v != nil && reflect.TypeOf(v).Kind() == reflect.Func {
		return "<" + reflect.TypeOf(v).String() + ">"
	}
	return runewidth.Truncate(diff.FormatValue(v), maxLabelWidth, "…")
}

func describef(format string, args ...any) failure.Description {
	return failure.Description(fmt.Sprintf(format, args...))
}

// Equals compares the subject with expected structurally.
func (s *Subject) Equals(expected any, opts ...diff.Option) *Subject {
	return s.equals(s.expr("Equals", expected), expected, opts...)
}

// ApproximatelyEquals is Equals with numbers equal when abs(a-b) <= tolerance.
func (s *Subject) ApproximatelyEquals(expected any, tolerance float64) *Subject {
	return s.equals(s.expr("ApproximatelyEquals", expected, tolerance), expected, diff.WithTolerance(tolerance))
}

func (s *Subject) equals(expr string, expected any, opts ...diff.Option) *Subject {
	r, err := diff.CompareE(expected, s.value, opts...)
	if err != nil {
		failure.Raise(failure.Setup(expr, err))
	}
	if !r.IsEqual {
		e := failure.Assertion(expr, r)
		e.Expected, e.Actual = expected, s.value
		failure.Raise(e)
	}
	return s
}

// DoesNotEqual fails when the subject structurally equals unexpected.
func (s *Subject) DoesNotEqual(unexpected any) *Subject {
	if diff.Compare(unexpected, s.value).IsEqual {
		s.fail(s.expr("DoesNotEqual", unexpected), describef("not %s", render(unexpected)), s.value)
	}
	return s
}

// IsTrue requires the subject to be the boolean true.
func (s *Subject) IsTrue() *Subject {
	if b, ok := s.value.(bool); !ok || !b {
		s.fail(s.expr("IsTrue"), true, s.value)
	}
	return s
}

// IsFalse requires the subject to be the boolean false.
func (s *Subject) IsFalse() *Subject {
	if b, ok := s.value.(bool); !ok || b {
		s.fail(s.expr("IsFalse"), false, s.value)
	}
	return s
}

// IsNil accepts untyped nil and nil pointers, maps, slices, funcs, channels and interfaces.
func (s *Subject) IsNil() *Subject {
	if !isNil(s.value) {
		s.fail(s.expr("IsNil"), nil, s.value)
	}
	return s
}

func (s *Subject) IsNotNil() *Subject {
	if isNil(s.value) {
		s.fail(s.expr("IsNotNil"), describef("not nil"), s.value)
	}
	return s
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// IsInstanceOf requires the subject's type to be assignable to the type of
// example. Pass (*I)(nil) to check that the subject implements interface I,
// or a reflect.Type directly.
func (s *Subject) IsInstanceOf(example any) *Subject {
	want := targetType(example)
	expr := s.expr("IsInstanceOf", typeLabel(want))
	if want == nil {
		s.misuse(expr, "cannot derive a type from %v", example)
	}
	got := reflect.TypeOf(s.value)
	if got == nil || !got.AssignableTo(want) {
		s.fail(expr, describef("instance of %s", typeLabel(want)), describef("instance of %s", typeLabel(got)))
	}
	return s
}

// HasType requires the subject's dynamic type to be exactly the type of example.
func (s *Subject) HasType(example any) *Subject {
	want := targetType(example)
	got := reflect.TypeOf(s.value)
	if got != want {
		s.fail(s.expr("HasType", typeLabel(want)), describef("type %s", typeLabel(want)), describef("type %s", typeLabel(got)))
	}
	return s
}

func targetType(example any) reflect.Type {
	if t, ok := example.(reflect.Type); ok {
		return t
	}
	t := reflect.TypeOf(example)
	if t == nil {
		return nil
	}
	if t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Interface && reflect.ValueOf(example).IsNil() {
		return t.Elem()
	}
	return t
}

func typeLabel(t reflect.Type) failure.Description {
	if t == nil {
		return "nil"
	}
	return failure.Description(t.String())
}
