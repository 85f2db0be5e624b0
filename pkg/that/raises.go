package that

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"that/pkg/failure"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// invoke calls a zero-argument func subject. A non-nil trailing error result
// and a panic both count as raised; the remaining results form the value.
func (s *Subject) invoke(expr string) (result any, raised error) {
	fn := reflect.ValueOf(s.value)
	if fn.Kind() != reflect.Func || fn.IsNil() || fn.Type().NumIn() != 0 {
		s.misuse(expr, "subject must be a func with no parameters, got %T", s.value)
	}

	var out []reflect.Value
	raised = failure.Catch(func() { out = fn.Call(nil) })
	if raised != nil {
		return nil, raised
	}

	ft := fn.Type()
	n := len(out)
	if n > 0 && ft.Out(n-1) == errorType {
		if err, _ := out[n-1].Interface().(error); err != nil {
			return nil, err
		}
		out = out[:n-1]
	}
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		return out[0].Interface(), nil
	}
	values := make([]any, len(out))
	for i, v := range out {
		values[i] = v.Interface()
	}
	return values, nil
}

// ErrorSubject is returned by Raises. It asserts on the caught error.
type ErrorSubject struct {
	*Subject
	err error
}

// Err returns the caught error.
func (e *ErrorSubject) Err() error { return e.err }

// WithMessage requires the caught error's message to contain substr.
func (e *ErrorSubject) WithMessage(substr string) *ErrorSubject {
	if msg := errorMessage(e.err); !strings.Contains(msg, substr) {
		e.fail(e.expr("WithMessage", substr), describef("message containing %s", render(substr)), msg)
	}
	return e
}

// Raises calls the func subject and requires it to fail with kind, or any
// error that wraps or is assignable to kind. kind may be:
//
//   - a sentinel error value, matched with errors.Is
//   - a nil pointer to a concrete error type, e.g. (*fs.PathError)(nil)
//   - a nil pointer to an interface, e.g. (*net.Error)(nil)
//   - a reflect.Type
//   - nil, which accepts any error
//
// Both returned errors and panics count. An optional message must appear
// in the error text.
func (s *Subject) Raises(kind any, message ...string) *ErrorSubject {
	expr := s.expr("Raises", append([]any{kindLabel(kind)}, stringsToAny(message)...)...)
	_, raised := s.invoke(expr)
	if raised == nil {
		s.fail(expr, kindLabel(kind), describef("no error raised"))
	}

	ok, err := matchKind(raised, kind)
	if err != nil {
		s.misuse(expr, "%w", err)
	}
	if !ok {
		s.fail(expr, kindLabel(kind), describeError(raised))
	}

	es := &ErrorSubject{Subject: That(raised, expr), err: raised}
	for _, m := range message {
		es.WithMessage(m)
	}
	return es
}

// DoesNotRaise calls the func subject and returns a subject over its result.
func (s *Subject) DoesNotRaise() *Subject {
	expr := s.expr("DoesNotRaise")
	result, raised := s.invoke(expr)
	if raised != nil {
		s.fail(expr, describef("no error"), describeError(raised))
	}
	return That(result, s.label+"()")
}

func matchKind(err error, kind any) (bool, error) {
	if kind == nil {
		return true, nil
	}
	target, isType := kindType(kind)
	if !isType {
		sentinel, ok := kind.(error)
		if !ok {
			return false, fmt.Errorf("kind must be an error value, a nil error pointer or a reflect.Type, got %T", kind)
		}
		return errors.Is(err, sentinel), nil
	}
	if target.Kind() != reflect.Interface && !target.Implements(errorType) {
		return false, fmt.Errorf("%s does not implement error", target)
	}
	ptr := reflect.New(target)
	return errors.As(err, ptr.Interface()), nil
}

// kindType reports the error type kind stands for, when kind names a type
// rather than a sentinel value.
func kindType(kind any) (reflect.Type, bool) {
	if t, ok := kind.(reflect.Type); ok {
		return t, true
	}
	rv := reflect.ValueOf(kind)
	if rv.Kind() != reflect.Pointer || !rv.IsNil() {
		return nil, false
	}
	if rv.Type().Elem().Kind() == reflect.Interface {
		return rv.Type().Elem(), true
	}
	return rv.Type(), true
}

func kindLabel(kind any) any {
	if kind == nil {
		return describef("any error")
	}
	if t, ok := kindType(kind); ok {
		return typeLabel(t)
	}
	return kind
}

func describeError(err error) any {
	var p *failure.Panic
	if errors.As(err, &p) {
		return describef("panic(%s)", render(p.Value))
	}
	return describef("%T(%q)", err, err.Error())
}

func errorMessage(err error) string {
	var p *failure.Panic
	if errors.As(err, &p) {
		return fmt.Sprint(p.Value)
	}
	return err.Error()
}

func stringsToAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
