package that

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"time"

	"that/pkg/diff"
)

var errUnordered = errors.New("operands are not orderable")

// order compares a and b. Numbers of any width, strings of the same kind and
// time.Time values are orderable; everything else is a usage error.
func order(a, b any) (int, error) {
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		if !ok {
			return 0, fmt.Errorf("%w: %T and %T", errUnordered, a, b)
		}
		return ta.Compare(tb), nil
	}

	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	switch {
	case isNumber(ra) && isNumber(rb):
		if isNaN(ra) || isNaN(rb) {
			return 0, fmt.Errorf("%w: NaN", errUnordered)
		}
		return diff.CompareNumbers(ra, rb), nil
	case ra.Kind() == reflect.String && rb.Kind() == reflect.String:
		sa, sb := ra.String(), rb.String()
		switch {
		case sa < sb:
			return -1, nil
		case sa > sb:
			return 1, nil
		}
		return 0, nil
	}
	return 0, fmt.Errorf("%w: %T and %T", errUnordered, a, b)
}

func isNumber(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func isNaN(v reflect.Value) bool {
	return (v.Kind() == reflect.Float32 || v.Kind() == reflect.Float64) && math.IsNaN(v.Float())
}

func (s *Subject) ordered(expr string, other any) int {
	c, err := order(s.value, other)
	if err != nil {
		s.misuse(expr, "%w", err)
	}
	return c
}

func (s *Subject) IsGreaterThan(v any) *Subject {
	expr := s.expr("IsGreaterThan", v)
	if s.ordered(expr, v) <= 0 {
		s.fail(expr, describef("value > %s", render(v)), s.value)
	}
	return s
}

func (s *Subject) IsLessThan(v any) *Subject {
	expr := s.expr("IsLessThan", v)
	if s.ordered(expr, v) >= 0 {
		s.fail(expr, describef("value < %s", render(v)), s.value)
	}
	return s
}

// IsBetween requires lo <= subject <= hi.
func (s *Subject) IsBetween(lo, hi any) *Subject {
	expr := s.expr("IsBetween", lo, hi)
	if s.ordered(expr, lo) < 0 || s.ordered(expr, hi) > 0 {
		s.fail(expr, describef("value between %s and %s", render(lo), render(hi)), s.value)
	}
	return s
}

func (s *Subject) IsPositive() *Subject {
	expr := s.expr("IsPositive")
	if s.ordered(expr, 0) <= 0 {
		s.fail(expr, describef("value > 0"), s.value)
	}
	return s
}

func (s *Subject) integer(expr string) int64 {
	rv := reflect.ValueOf(s.value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint() % 2)
	}
	s.fail(expr, describef("integer"), describef("%T", s.value))
	return 0
}

func (s *Subject) IsEven() *Subject {
	expr := s.expr("IsEven")
	if s.integer(expr)%2 != 0 {
		s.fail(expr, describef("even number"), s.value)
	}
	return s
}

func (s *Subject) IsOdd() *Subject {
	expr := s.expr("IsOdd")
	if s.integer(expr)%2 == 0 {
		s.fail(expr, describef("odd number"), s.value)
	}
	return s
}
