package mock

import (
	"fmt"
	"reflect"

	"that/pkg/failure"
)

// ExhaustedPolicy decides what a Sequence does after its last value.
type ExhaustedPolicy int

const (
	// ExhaustedRaise fails further calls with failure.ErrSequenceExhausted.
	ExhaustedRaise ExhaustedPolicy = iota
	// ExhaustedRepeatLast keeps returning the final value.
	ExhaustedRepeatLast
)

// Behavior decides what a stand-in returns for a call.
type Behavior interface {
	resolve(h *Handle, index int, args []any, kwargs map[string]any) (any, error)
}

type constant struct{ value any }

// Constant returns value on every call.
func Constant(value any) Behavior { return constant{value: value} }

func (b constant) resolve(*Handle, int, []any, map[string]any) (any, error) {
	return b.value, nil
}

type sequence struct {
	values []any
	policy ExhaustedPolicy
}

// Sequence returns values[i] for the i-th call; the policy covers calls past the end.
func Sequence(policy ExhaustedPolicy, values ...any) Behavior {
	return sequence{values: values, policy: policy}
}

func (b sequence) resolve(h *Handle, index int, _ []any, _ map[string]any) (any, error) {
	if index < len(b.values) {
		return b.values[index], nil
	}
	if b.policy == ExhaustedRepeatLast && len(b.values) > 0 {
		return b.values[len(b.values)-1], nil
	}
	return nil, failure.Setup(fmt.Sprintf("mock %q exhausted after %d values", h.name, len(b.values)), failure.ErrSequenceExhausted)
}

// DynamicFunc computes a call's result from its arguments.
type DynamicFunc func(args []any, kwargs map[string]any) (any, error)

type dynamic struct{ fn DynamicFunc }

// Dynamic forwards every call to fn; its result or error becomes the call's.
func Dynamic(fn DynamicFunc) Behavior { return dynamic{fn: fn} }

func (b dynamic) resolve(_ *Handle, _ int, args []any, kwargs map[string]any) (result any, err error) {
	if perr := failure.Catch(func() { result, err = b.fn(args, kwargs) }); perr != nil {
		return nil, perr
	}
	return result, err
}

type raises struct{ template error }

// Raises fails every call with a fresh copy of template. Pointer-to-struct
// errors are copied per call; other errors are returned as is.
func Raises(template error) Behavior { return raises{template: template} }

func (b raises) resolve(*Handle, int, []any, map[string]any) (any, error) {
	return nil, freshError(b.template)
}

func freshError(template error) error {
	rv := reflect.ValueOf(template)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return template
	}
	cp := reflect.New(rv.Elem().Type())
	cp.Elem().Set(rv.Elem())
	if err, ok := cp.Interface().(error); ok {
		return err
	}
	return template
}
