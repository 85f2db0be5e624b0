// Package mock replaces a named callable on a target with a recording stand-in
// for the duration of a test.
//
// Targets are either a Patchable implementation, which receives a Func, or
// plain Go values patched through reflection: a pointer to a struct with an
// exported func field, or a pointer to a func variable.
//
//	h, err := mock.Install(t, &client, "Fetch", mock.Constant(payload))
//	...
//	h.AssertCalledWith("https://example.test/users/1")
package mock

import (
	"fmt"
	"reflect"
	"sync"

	"that/pkg/failure"
	"that/pkg/logging"
)

// Cleaner registers teardown work. *registry.T and *testing.T satisfy it.
type Cleaner interface {
	Cleanup(func())
}

// errCleaner is implemented by scopes that can report teardown errors.
type errCleaner interface {
	CleanupErr(func() error)
}

// Patchable targets expose their callables by name. SetAttr receives a Func
// when the stand-in is installed and the original value on restore.
type Patchable interface {
	GetAttr(name string) (any, bool)
	SetAttr(name string, value any) error
}

// Func is the stand-in shape handed to Patchable targets.
type Func func(args []any, kwargs map[string]any) (any, error)

// Result is what a recorded call produced.
type Result struct {
	Value any
	Err   error
}

// Record is one observed invocation.
type Record struct {
	Args   []any
	Kwargs map[string]any
	Result Result
	// SequenceIndex is the zero-based position of the call.
	SequenceIndex int
}

// Handle controls an installed stand-in and exposes its call history.
type Handle struct {
	name     string
	behavior Behavior

	mu        sync.Mutex
	calls     []Record
	installed bool

	restore    func() error
	once       sync.Once
	restoreErr error
}

// Install replaces attr on target with a stand-in driven by behavior. The
// original is restored at scope teardown; Uninstall restores it earlier.
func Install(scope Cleaner, target any, attr string, behavior Behavior) (*Handle, error) {
	if scope == nil {
		return nil, failure.Setupf("mock %q: scope is nil, the stand-in would outlive the test", attr)
	}
	if behavior == nil {
		return nil, failure.Setupf("mock %q: behavior is nil", attr)
	}
	if target == nil {
		return nil, failure.Setupf("mock %q: target is nil", attr)
	}

	h := &Handle{name: attr, behavior: behavior}

	var err error
	if p, ok := target.(Patchable); ok {
		err = h.patchAttr(p, attr)
	} else {
		err = h.patchReflect(target, attr)
	}
	if err != nil {
		return nil, err
	}
	h.installed = true
	logging.Debug("Mock", "installed stand-in for %s", h.name)

	switch s := scope.(type) {
	case errCleaner:
		s.CleanupErr(h.Uninstall)
	default:
		s.Cleanup(func() {
			if err := h.Uninstall(); err != nil {
				logging.Error("Mock", err, "failed to restore %s", h.name)
			}
		})
	}
	return h, nil
}

// MustInstall is Install for test bodies: a failure raises a setup error.
func MustInstall(scope Cleaner, target any, attr string, behavior Behavior) *Handle {
	h, err := Install(scope, target, attr, behavior)
	if err != nil {
		failure.Raise(err)
	}
	return h
}

func (h *Handle) patchAttr(p Patchable, attr string) error {
	original, ok := p.GetAttr(attr)
	if !ok {
		return failure.Setup(fmt.Sprintf("mock %q", attr), failure.ErrAttributeNotFound)
	}
	if err := p.SetAttr(attr, Func(h.invoke)); err != nil {
		return failure.Setup(fmt.Sprintf("mock %q: install", attr), err)
	}
	h.restore = func() error { return p.SetAttr(attr, original) }
	return nil
}

func (h *Handle) patchReflect(target any, attr string) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return failure.Setupf("mock %q: target must be a Patchable or a non-nil pointer, got %T", attr, target)
	}

	var slot reflect.Value
	switch elem := rv.Elem(); elem.Kind() {
	case reflect.Func:
		slot = elem
		if attr == "" {
			h.name = elem.Type().String()
		}
	case reflect.Struct:
		slot = elem.FieldByName(attr)
		if !slot.IsValid() {
			return failure.Setup(fmt.Sprintf("mock %q on %T", attr, target), failure.ErrAttributeNotFound)
		}
		if slot.Kind() != reflect.Func {
			return failure.Setupf("mock %q on %T: field is %s, not a func", attr, target, slot.Type())
		}
		if !slot.CanSet() {
			return failure.Setupf("mock %q on %T: field is not exported", attr, target)
		}
	default:
		return failure.Setupf("mock %q: cannot patch %T", attr, target)
	}

	original := reflect.New(slot.Type()).Elem()
	original.Set(slot)
	slot.Set(reflect.MakeFunc(slot.Type(), h.reflectCall(slot.Type())))
	h.restore = func() error {
		slot.Set(original)
		return nil
	}
	return nil
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// reflectCall adapts invoke to a concrete func signature. A trailing error
// result receives the behavior's error; signatures without one panic with it.
func (h *Handle) reflectCall(ft reflect.Type) func([]reflect.Value) []reflect.Value {
	numOut := ft.NumOut()
	hasErr := numOut > 0 && ft.Out(numOut-1) == errorType
	values := numOut
	if hasErr {
		values--
	}

	return func(in []reflect.Value) []reflect.Value {
		args := make([]any, 0, len(in))
		for i, v := range in {
			if ft.IsVariadic() && i == len(in)-1 {
				for j := 0; j < v.Len(); j++ {
					args = append(args, v.Index(j).Interface())
				}
				continue
			}
			args = append(args, v.Interface())
		}

		result, err := h.invoke(args, map[string]any{})

		out := make([]reflect.Value, numOut)
		for i := range out {
			out[i] = reflect.Zero(ft.Out(i))
		}
		if err != nil {
			if !hasErr {
				panic(err)
			}
			out[numOut-1] = reflect.ValueOf(&err).Elem()
			return out
		}

		parts := []any{result}
		if values > 1 {
			multi, ok := result.([]any)
			if !ok || len(multi) != values {
				panic(failure.Setupf("mock %q: behavior must return []any of %d values, got %T", h.name, values, result))
			}
			parts = multi
		}
		for i := 0; i < values; i++ {
			v, cerr := coerce(parts[i], ft.Out(i))
			if cerr != nil {
				panic(failure.Setupf("mock %q: result %d: %v", h.name, i, cerr))
			}
			out[i] = v
		}
		return out
	}
}

func coerce(v any, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(t), nil
	}
	rv := reflect.ValueOf(v)
	switch {
	case rv.Type().AssignableTo(t):
		out := reflect.New(t).Elem()
		out.Set(rv)
		return out, nil
	case rv.Type().ConvertibleTo(t) && rv.Kind() != reflect.String && t.Kind() != reflect.String:
		return rv.Convert(t), nil
	default:
		return reflect.Value{}, fmt.Errorf("%T is not assignable to %s", v, t)
	}
}

// invoke records the call and resolves it through the behavior.
func (h *Handle) invoke(args []any, kwargs map[string]any) (any, error) {
	h.mu.Lock()
	index := len(h.calls)
	h.calls = append(h.calls, Record{Args: args, Kwargs: kwargs, SequenceIndex: index})
	h.mu.Unlock()

	value, err := h.behavior.resolve(h, index, args, kwargs)

	h.mu.Lock()
	h.calls[index].Result = Result{Value: value, Err: err}
	h.mu.Unlock()
	return value, err
}

// Name returns the patched attribute name.
func (h *Handle) Name() string { return h.name }

// Installed reports whether the stand-in is still in place.
func (h *Handle) Installed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.installed
}

// Uninstall restores the original. Calling it more than once is a no-op.
// Recorded calls stay readable afterwards.
func (h *Handle) Uninstall() error {
	h.once.Do(func() {
		h.restoreErr = h.restore()
		h.mu.Lock()
		h.installed = false
		h.mu.Unlock()
		if h.restoreErr != nil {
			h.restoreErr = failure.Setup(fmt.Sprintf("mock %q: restore", h.name), h.restoreErr)
			return
		}
		logging.Debug("Mock", "restored %s after %d call(s)", h.name, h.CallCount())
	})
	return h.restoreErr
}
