package diff

import (
	"fmt"
	"strconv"
	"strings"
)

// Category is the comparison strategy chosen for a pair of values.
type Category int

const (
	CategoryScalar Category = iota
	CategoryNil
	CategoryMapping
	CategorySequence
	CategoryNumeric
	CategoryText
)

// String makes Category satisfy the fmt.Stringer interface.
func (c Category) String() string {
	switch c {
	case CategoryNil:
		return "nil"
	case CategoryMapping:
		return "mapping"
	case CategorySequence:
		return "sequence"
	case CategoryNumeric:
		return "number"
	case CategoryText:
		return "text"
	default:
		return "scalar"
	}
}

// Segment is one step of a Path: a mapping key or a sequence index.
type Segment struct {
	Key     any
	Index   int
	IsIndex bool
}

// Key returns a mapping-key segment.
func Key(k any) Segment { return Segment{Key: k} }

// Index returns a sequence-index segment.
func Index(i int) Segment { return Segment{Index: i, IsIndex: true} }

func (s Segment) String() string {
	if s.IsIndex {
		return "[" + strconv.Itoa(s.Index) + "]"
	}
	if k, ok := s.Key.(string); ok {
		if isIdent(k) {
			return "." + k
		}
		return "[" + strconv.Quote(k) + "]"
	}
	return fmt.Sprintf("[%v]", s.Key)
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && (r >= '0' && r <= '9' || r == '-'):
		default:
			return false
		}
	}
	return true
}

// Path locates a Difference inside the compared structure. The empty path is the root.
type Path []Segment

// String renders the path as "$", "$.user.roles[0]" or `$["a key"]`.
func (p Path) String() string {
	var b strings.Builder
	b.WriteString("$")
	for _, s := range p {
		b.WriteString(s.String())
	}
	return b.String()
}

// with returns a copy of p extended by s; paths are never shared between differences.
func (p Path) with(s Segment) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, s)
}

// Side names which operand is absent in a ValueMismatch. Only trailing
// actual elements are reported against absence, so SideExpected is the one
// non-zero value.
type Side int

const (
	SideNone Side = iota
	SideExpected
)

// Kind is the closed set of difference variants.
type Kind interface {
	fmt.Stringer
	isKind()
}

// ValueMismatch reports two values of the same category that are not equal.
// For text, DivergeAt holds the first differing rune index, otherwise -1.
// Absent is set for sequence elements that exist on one side only.
type ValueMismatch struct {
	Expected  any
	Actual    any
	DivergeAt int
	Absent    Side
}

// MissingKey reports a key present in expected but not in actual. The
// difference's path ends with the key.
type MissingKey struct {
	Key      any
	Expected any
}

// UnexpectedKey reports a key present in actual but not in expected.
type UnexpectedKey struct {
	Key    any
	Actual any
}

// LengthMismatch reports sequences of different length.
type LengthMismatch struct {
	Expected int
	Actual   int
}

// TypeMismatch reports operands that fall into different categories.
type TypeMismatch struct {
	Expected     Category
	Actual       Category
	ExpectedType string
	ActualType   string
}

func (ValueMismatch) isKind()  {}
func (MissingKey) isKind()     {}
func (UnexpectedKey) isKind()  {}
func (LengthMismatch) isKind() {}
func (TypeMismatch) isKind()   {}

func (k ValueMismatch) String() string {
	if k.Absent == SideExpected {
		return fmt.Sprintf("expected <absent>, got %s", FormatValue(k.Actual))
	}
	if k.DivergeAt >= 0 {
		return fmt.Sprintf("expected %s, got %s (first difference at index %d)",
			FormatValue(k.Expected), FormatValue(k.Actual), k.DivergeAt)
	}
	return fmt.Sprintf("expected %s, got %s", FormatValue(k.Expected), FormatValue(k.Actual))
}

func (k MissingKey) String() string {
	return fmt.Sprintf("missing key (expected %s)", FormatValue(k.Expected))
}

func (k UnexpectedKey) String() string {
	return fmt.Sprintf("unexpected key (value %s)", FormatValue(k.Actual))
}

func (k LengthMismatch) String() string {
	return fmt.Sprintf("length mismatch: expected %d, got %d", k.Expected, k.Actual)
}

func (k TypeMismatch) String() string {
	return fmt.Sprintf("type mismatch: expected %s (%s), got %s (%s)",
		k.Expected, k.ExpectedType, k.Actual, k.ActualType)
}

// Difference is one atomic structural mismatch. Nesting is expressed only through Path.
type Difference struct {
	Path Path
	Kind Kind
}

func (d Difference) String() string {
	return d.Path.String() + ": " + d.Kind.String()
}

// ComparisonResult is the outcome of one Compare call.
type ComparisonResult struct {
	IsEqual     bool
	Differences []Difference
	// Err is set when the comparison could not complete, e.g. the depth guard tripped.
	Err error
}
