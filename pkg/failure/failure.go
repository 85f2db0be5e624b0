// Package failure defines the error kinds the runner classifies test outcomes by.
package failure

import (
	"errors"
	"fmt"
	"runtime/debug"
	"strings"

	"that/pkg/diff"
)

// Kind identifies the category of a framework error.
type Kind int

const (
	// KindAssertion marks a check that did not hold. Tests raising it are Failed.
	KindAssertion Kind = iota
	// KindSetup marks misuse of a framework operation (unknown mock attribute, bad operands).
	KindSetup
	// KindRegistration marks invalid test declarations; raised while building the registry.
	KindRegistration
)

// String returns a human-readable name for the error kind.
func (k Kind) String() string {
	switch k {
	case KindAssertion:
		return "AssertionFailed"
	case KindSetup:
		return "SetupError"
	case KindRegistration:
		return "RegistrationError"
	default:
		return "Unknown"
	}
}

// Sentinel errors wrapped by framework failures.
var (
	ErrSequenceExhausted      = errors.New("sequence exhausted")
	ErrIndexOutOfRange        = errors.New("index out of range")
	ErrPathNotFound           = errors.New("path not found")
	ErrAttributeNotFound      = errors.New("attribute not found")
	ErrRecursionLimitExceeded = diff.ErrRecursionLimitExceeded
)

// Error is the structured error raised by assertions, mocks and registration.
type Error struct {
	Kind    Kind
	Message string
	// Expected and Actual describe the operands of a failed predicate.
	Expected any
	Actual   any
	// Result is the structured diff for equality assertions.
	Result *diff.ComparisonResult
	Cause  error
	// Supplementary holds errors raised after the primary one, such as teardown failures.
	Supplementary []error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Cause != nil {
		if e.Message != "" {
			b.WriteString(": ")
		}
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap exposes the cause and every supplementary error to errors.Is/As.
func (e *Error) Unwrap() []error {
	var errs []error
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return append(errs, e.Supplementary...)
}

// Detail renders the message followed by expected/actual or the diff, one item per line.
func (e *Error) Detail() string {
	var b strings.Builder
	b.WriteString(e.Error())
	if e.Result != nil && !e.Result.IsEqual {
		b.WriteString("\n")
		b.WriteString(diff.Format(e.Result))
	} else if e.Expected != nil || e.Actual != nil {
		fmt.Fprintf(&b, "\n  Expected: %s\n  Actual:   %s", describe(e.Expected), describe(e.Actual))
	}
	for _, s := range e.Supplementary {
		b.WriteString("\n  also: " + s.Error())
	}
	return b.String()
}

// Description renders predicate operands that are already prose ("value > 3")
// without quoting.
type Description string

func describe(v any) string {
	if d, ok := v.(Description); ok {
		return string(d)
	}
	return diff.FormatValue(v)
}

// Assertion returns a KindAssertion error carrying the comparison result.
func Assertion(message string, result *diff.ComparisonResult) *Error {
	return &Error{Kind: KindAssertion, Message: message, Result: result}
}

// Predicate returns a KindAssertion error for a direct boolean check.
func Predicate(message string, expected, actual any) *Error {
	return &Error{Kind: KindAssertion, Message: message, Expected: expected, Actual: actual}
}

// Assertionf returns a KindAssertion error wrapping cause.
func Assertionf(cause error, format string, args ...any) *Error {
	return &Error{Kind: KindAssertion, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Setup returns a KindSetup error.
func Setup(message string, cause error) *Error {
	return &Error{Kind: KindSetup, Message: message, Cause: cause}
}

// Setupf returns a KindSetup error with a formatted message.
func Setupf(format string, args ...any) *Error {
	return &Error{Kind: KindSetup, Message: fmt.Sprintf(format, args...)}
}

// Registration returns a KindRegistration error.
func Registration(format string, args ...any) *Error {
	return &Error{Kind: KindRegistration, Message: fmt.Sprintf(format, args...)}
}

// As extracts the *Error from err, if any.
func As(err error) (*Error, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

func is(err error, k Kind) bool {
	fe, ok := As(err)
	return ok && fe.Kind == k
}

func IsAssertion(err error) bool    { return is(err, KindAssertion) }
func IsSetup(err error) bool        { return is(err, KindSetup) }
func IsRegistration(err error) bool { return is(err, KindRegistration) }

// Raise aborts the current assertion chain with err. The runner recovers the panic.
func Raise(err error) {
	panic(err)
}

// Panic is a recovered non-error panic value, kept with its stack.
type Panic struct {
	Value any
	Stack string
}

func (p *Panic) Error() string { return fmt.Sprintf("panic: %v", p.Value) }

// FromRecovered turns a recovered panic value into an error. *Error passes
// through; anything else becomes a *Panic carrying the stack.
func FromRecovered(r any) error {
	switch v := r.(type) {
	case nil:
		return nil
	case *Error:
		return v
	default:
		return &Panic{Value: v, Stack: string(debug.Stack())}
	}
}

// Catch runs fn and returns whatever it panicked with as an error.
func Catch(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = FromRecovered(r)
		}
	}()
	fn()
	return nil
}

// Unwrap lets errors.Is see through a recovered error panic.
func (p *Panic) Unwrap() error {
	if err, ok := p.Value.(error); ok {
		return err
	}
	return nil
}
