package mock

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"that/pkg/diff"
	"that/pkg/failure"
)

// CallCount returns the number of recorded calls.
func (h *Handle) CallCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.calls)
}

// Called reports whether the stand-in was invoked at least once.
func (h *Handle) Called() bool { return h.CallCount() > 0 }

// Calls returns a copy of the call history in invocation order.
func (h *Handle) Calls() []Record {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Record, len(h.calls))
	copy(out, h.calls)
	return out
}

// FirstCall returns the earliest call, or false when there is none.
func (h *Handle) FirstCall() (Record, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.calls) == 0 {
		return Record{}, false
	}
	return h.calls[0], true
}

// LastCall returns the most recent call, or false when there is none.
func (h *Handle) LastCall() (Record, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.calls) == 0 {
		return Record{}, false
	}
	return h.calls[len(h.calls)-1], true
}

// GetCall returns the call at index. Out-of-range indexes wrap
// failure.ErrIndexOutOfRange.
func (h *Handle) GetCall(index int) (Record, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if index < 0 || index >= len(h.calls) {
		if len(h.calls) == 0 {
			return Record{}, failure.Assertionf(failure.ErrIndexOutOfRange, "mock %q: call index %d requested, no calls recorded", h.name, index)
		}
		return Record{}, failure.Assertionf(failure.ErrIndexOutOfRange, "mock %q: call index %d out of range (0-%d)", h.name, index, len(h.calls)-1)
	}
	return h.calls[index], nil
}

// CheckCalledOnce returns an error unless exactly one call was recorded.
func (h *Handle) CheckCalledOnce() error {
	return h.CheckCalledTimes(1)
}

// CheckCalledTimes returns an error unless exactly n calls were recorded.
func (h *Handle) CheckCalledTimes(n int) error {
	got := h.CallCount()
	if got == n {
		return nil
	}
	if got == 0 {
		return failure.Predicate(fmt.Sprintf("mock %q was never called", h.name), n, got)
	}
	return failure.Predicate(fmt.Sprintf("mock %q was called %d time(s), expected %d", h.name, got, n), n, got)
}

// CheckNotCalled returns an error if any call was recorded.
func (h *Handle) CheckNotCalled() error {
	if got := h.CallCount(); got != 0 {
		return failure.Predicate(fmt.Sprintf("mock %q was called %d time(s), expected none", h.name, got), 0, got)
	}
	return nil
}

// CheckCalledWith compares the most recent call's positional arguments and
// requires it to have no keyword arguments.
func (h *Handle) CheckCalledWith(args ...any) error {
	return h.CheckCalledWithKw(nil, args...)
}

// CheckCalledWithKw compares the most recent call's positional and keyword arguments.
func (h *Handle) CheckCalledWithKw(kwargs map[string]any, args ...any) error {
	last, ok := h.LastCall()
	if !ok {
		return failure.Predicate(fmt.Sprintf("mock %q was never called", h.name), callDescription(args, kwargs), failure.Description("no calls"))
	}
	result := compareCall(args, kwargs, last)
	if result.Err != nil {
		return failure.Setup(fmt.Sprintf("mock %q: compare arguments", h.name), result.Err)
	}
	if !result.IsEqual {
		return failure.Assertion(fmt.Sprintf("mock %q last called with %s, expected %s",
			h.name, callDescription(last.Args, last.Kwargs), callDescription(args, kwargs)), result)
	}
	return nil
}

// CheckAnyCall passes if any recorded call had exactly these positional
// arguments and no keyword arguments.
func (h *Handle) CheckAnyCall(args ...any) error {
	return h.CheckAnyCallKw(nil, args...)
}

// CheckAnyCallKw passes if any recorded call matches args and kwargs.
func (h *Handle) CheckAnyCallKw(kwargs map[string]any, args ...any) error {
	calls := h.Calls()
	for _, c := range calls {
		if r := compareCall(args, kwargs, c); r.Err == nil && r.IsEqual {
			return nil
		}
	}
	return failure.Predicate(fmt.Sprintf("mock %q has no call matching %s among %d call(s)", h.name, callDescription(args, kwargs), len(calls)),
		callDescription(args, kwargs), failure.Description(fmt.Sprintf("%d non-matching call(s)", len(calls))))
}

// AssertCalledOnce raises an assertion failure unless exactly one call was recorded.
func (h *Handle) AssertCalledOnce() *Handle { return h.must(h.CheckCalledOnce()) }

// AssertCalledTimes raises unless exactly n calls were recorded.
func (h *Handle) AssertCalledTimes(n int) *Handle { return h.must(h.CheckCalledTimes(n)) }

// AssertNotCalled raises if any call was recorded.
func (h *Handle) AssertNotCalled() *Handle { return h.must(h.CheckNotCalled()) }

// AssertCalledWith raises unless the most recent call had exactly args.
func (h *Handle) AssertCalledWith(args ...any) *Handle { return h.must(h.CheckCalledWith(args...)) }

// AssertCalledWithKw raises unless the most recent call had exactly args and kwargs.
func (h *Handle) AssertCalledWithKw(kwargs map[string]any, args ...any) *Handle {
	return h.must(h.CheckCalledWithKw(kwargs, args...))
}

// AssertAnyCall raises unless some call had exactly args.
func (h *Handle) AssertAnyCall(args ...any) *Handle { return h.must(h.CheckAnyCall(args...)) }

// AssertAnyCallKw raises unless some call had exactly args and kwargs.
func (h *Handle) AssertAnyCallKw(kwargs map[string]any, args ...any) *Handle {
	return h.must(h.CheckAnyCallKw(kwargs, args...))
}

func (h *Handle) must(err error) *Handle {
	if err != nil {
		failure.Raise(err)
	}
	return h
}

type callShape struct {
	Args   []any
	Kwargs map[string]any
}

func compareCall(args []any, kwargs map[string]any, rec Record) *diff.ComparisonResult {
	expected := callShape{Args: normalizeArgs(args), Kwargs: normalizeKwargs(kwargs)}
	actual := callShape{Args: normalizeArgs(rec.Args), Kwargs: normalizeKwargs(rec.Kwargs)}
	return diff.Compare(expected, actual)
}

func normalizeArgs(args []any) []any {
	if args == nil {
		return []any{}
	}
	return args
}

func normalizeKwargs(kwargs map[string]any) map[string]any {
	if kwargs == nil {
		return map[string]any{}
	}
	return kwargs
}

func callDescription(args []any, kwargs map[string]any) failure.Description {
	parts := make([]string, 0, len(args)+len(kwargs))
	for _, a := range args {
		parts = append(parts, diff.FormatValue(a))
	}
	for _, k := range slices.Sorted(maps.Keys(kwargs)) {
		parts = append(parts, fmt.Sprintf("%s=%s", k, diff.FormatValue(kwargs[k])))
	}
	return failure.Description("call(" + strings.Join(parts, ", ") + ")")
}
