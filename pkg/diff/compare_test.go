package diff

import (
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompare_SameValueIsEqual(t *testing.T) {
	tests := []struct {
		name  string
		value any
	}{
		{"int", 42},
		{"float", 3.25},
		{"string", "hello"},
		{"bool", true},
		{"nil", nil},
		{"slice", []int{1, 2, 3}},
		{"map", map[string]any{"a": 1, "b": []any{"x", 2.5}}},
		{"nested", map[string]any{"user": map[string]any{"roles": []string{"admin", "user"}}}},
		{"ordered", NewOrdered("b", 1, "a", 2)},
		{"time", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Compare(tt.value, tt.value)
			assert.True(t, r.IsEqual)
			assert.Empty(t, r.Differences)
			assert.NoError(t, r.Err)
		})
	}
}

func TestCompare_EndToEndMapping(t *testing.T) {
	expected := map[string]any{"name": "Alice", "age": 30}
	actual := map[string]any{"name": "Alice", "age": 28, "extra": 1}

	r := Compare(expected, actual)

	require.False(t, r.IsEqual)
	require.Len(t, r.Differences, 2)
	assert.Equal(t, Path{Key("age")}, r.Differences[0].Path)
	assert.Equal(t, ValueMismatch{Expected: 30, Actual: 28, DivergeAt: -1}, r.Differences[0].Kind)
	assert.Equal(t, Path{Key("extra")}, r.Differences[1].Path)
	assert.Equal(t, UnexpectedKey{Key: "extra", Actual: 1}, r.Differences[1].Kind)
}

func TestCompare_MappingKeySetsAreExact(t *testing.T) {
	expected := map[string]int{"a": 1, "b": 2, "c": 3}
	actual := map[string]int{"b": 2, "d": 4, "e": 5}

	r := Compare(expected, actual)

	var missing, unexpected []any
	for _, d := range r.Differences {
		switch k := d.Kind.(type) {
		case MissingKey:
			missing = append(missing, k.Key)
		case UnexpectedKey:
			unexpected = append(unexpected, k.Key)
		}
	}
	assert.Equal(t, []any{"a", "c"}, missing)
	assert.Equal(t, []any{"d", "e"}, unexpected)
}

func TestCompare_OrderedKeepsInsertionOrder(t *testing.T) {
	expected := NewOrdered("z", 1, "a", 2, "m", 3)
	actual := NewOrdered("q", 0, "m", 4)

	r := Compare(expected, actual)

	require.Len(t, r.Differences, 4)
	assert.Equal(t, "$.z: missing key (expected 1)", r.Differences[0].String())
	assert.Equal(t, "$.a: missing key (expected 2)", r.Differences[1].String())
	assert.Equal(t, "$.m: expected 3, got 4", r.Differences[2].String())
	assert.Equal(t, "$.q: unexpected key (value 0)", r.Differences[3].String())
}

func TestCompare_SequenceLengthMismatchKeepsComparing(t *testing.T) {
	r := Compare([]int{1, 2, 3}, []int{1, 9})

	require.Len(t, r.Differences, 2)
	assert.Equal(t, Difference{Path: nil, Kind: LengthMismatch{Expected: 3, Actual: 2}}, r.Differences[0])
	assert.Equal(t, Path{Index(1)}, r.Differences[1].Path)
	assert.Equal(t, ValueMismatch{Expected: 2, Actual: 9, DivergeAt: -1}, r.Differences[1].Kind)
}

func TestCompare_TrailingActualElementsReportedAgainstAbsence(t *testing.T) {
	r := Compare([]string{"a"}, []string{"a", "b", "c"})

	require.Len(t, r.Differences, 3)
	assert.Equal(t, LengthMismatch{Expected: 1, Actual: 3}, r.Differences[0].Kind)
	assert.Equal(t, "$[1]: expected <absent>, got \"b\"", r.Differences[1].String())
	assert.Equal(t, "$[2]: expected <absent>, got \"c\"", r.Differences[2].String())
	for _, d := range r.Differences {
		_, isKey := d.Kind.(UnexpectedKey)
		assert.False(t, isKey, "sequences never produce keyed differences")
	}
}

func TestCompare_ExpectedOnlyElementsAreCoveredByLength(t *testing.T) {
	r := Compare([]string{"a", "b", "c"}, []string{"a"})

	require.Len(t, r.Differences, 1)
	assert.Equal(t, "$: length mismatch: expected 3, got 1", r.Differences[0].String())
}

func TestCompare_ToleranceBoundaryIsInclusive(t *testing.T) {
	tests := []struct {
		name      string
		tolerance float64
	}{
		{"half", 0.5},
		{"quarter", 0.25},
		{"power of two", 1.0 / 1024},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, Compare(1.0, 1.0+tt.tolerance, WithTolerance(tt.tolerance)).IsEqual)
			assert.False(t, Compare(1.0, 1.0+tt.tolerance*1.0001, WithTolerance(tt.tolerance)).IsEqual)
		})
	}
}

func TestCompare_Numeric(t *testing.T) {
	tests := []struct {
		name     string
		expected any
		actual   any
		equal    bool
	}{
		{"int widths", int8(5), int64(5), true},
		{"int and float", 2, 2.0, true},
		{"signed and unsigned", -1, uint(1), false},
		{"unsigned and signed", uint64(7), 7, true},
		{"different", 1, 2, false},
		{"nan is never equal", math.NaN(), math.NaN(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.equal, Compare(tt.expected, tt.actual).IsEqual)
		})
	}
}

func TestCompare_NaNWithTolerance(t *testing.T) {
	assert.False(t, Compare(math.NaN(), math.NaN(), WithTolerance(1)).IsEqual)
}

func TestCompare_TextReportsFirstDivergence(t *testing.T) {
	r := Compare("hello world", "hello wurld")

	require.Len(t, r.Differences, 1)
	vm, ok := r.Differences[0].Kind.(ValueMismatch)
	require.True(t, ok)
	assert.Equal(t, 7, vm.DivergeAt)
	assert.Equal(t, "hello world", vm.Expected)
	assert.Equal(t, "hello wurld", vm.Actual)
}

func TestCompare_TextPrefixDivergesAtShorterLength(t *testing.T) {
	r := Compare("abc", "abcdef")

	require.Len(t, r.Differences, 1)
	assert.Equal(t, 3, r.Differences[0].Kind.(ValueMismatch).DivergeAt)
}

func TestCompare_TypeMismatchDoesNotRecurse(t *testing.T) {
	r := Compare(map[string]int{"a": 1}, []int{1})

	require.Len(t, r.Differences, 1)
	assert.Equal(t, TypeMismatch{
		Expected:     CategoryMapping,
		Actual:       CategorySequence,
		ExpectedType: "map[string]int",
		ActualType:   "[]int",
	}, r.Differences[0].Kind)
}

func TestCompare_NilAgainstValue(t *testing.T) {
	r := Compare(nil, 5)

	require.Len(t, r.Differences, 1)
	assert.Equal(t, "$: expected nil, got 5", r.Differences[0].String())
}

func TestCompare_Structs(t *testing.T) {
	type address struct {
		City string
		Zip  string
	}
	type person struct {
		Name    string
		Address address
		secret  int
	}

	r := Compare(
		person{Name: "Ann", Address: address{City: "Oslo", Zip: "0150"}, secret: 1},
		person{Name: "Ann", Address: address{City: "Bergen", Zip: "0150"}, secret: 2},
	)

	require.Len(t, r.Differences, 1)
	assert.Equal(t, "$.Address.City", r.Differences[0].Path.String())
}

func TestCompare_TimeUsesEqualMethod(t *testing.T) {
	utc := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	sameInstant := utc.In(time.FixedZone("X", 3600))

	assert.True(t, Compare(utc, sameInstant).IsEqual)
	assert.False(t, Compare(utc, utc.Add(time.Second)).IsEqual)
}

func TestCompare_RecursionLimit(t *testing.T) {
	type node struct {
		Next *node
		V    int
	}
	n := &node{V: 1}
	n.Next = n

	r := Compare(n, n, WithMaxDepth(16))

	assert.False(t, r.IsEqual)
	assert.True(t, errors.Is(r.Err, ErrRecursionLimitExceeded))

	_, err := CompareE(n, n, WithMaxDepth(16))
	assert.ErrorIs(t, err, ErrRecursionLimitExceeded)
}

func TestCompare_NegativeTolerance(t *testing.T) {
	_, err := CompareE(1.0, 1.0, WithTolerance(-0.1))
	assert.ErrorIs(t, err, ErrNegativeTolerance)
}

func TestCompare_GoMapKeysAreSorted(t *testing.T) {
	r := Compare(map[int]string{10: "a", 2: "b", 33: "c"}, map[int]string{})

	require.Len(t, r.Differences, 3)
	assert.Equal(t, "$[2]", r.Differences[0].Path.String())
	assert.Equal(t, "$[10]", r.Differences[1].Path.String())
	assert.Equal(t, "$[33]", r.Differences[2].Path.String())
}

func TestCompare_LargeIntegerKeysSortExactly(t *testing.T) {
	const big = int64(1) << 53
	expected := map[int64]string{big + 1: "b", big: "a", -1: "c"}

	for range 20 {
		r := Compare(expected, map[int64]string{})
		require.Len(t, r.Differences, 3)
		var keys []any
		for _, d := range r.Differences {
			keys = append(keys, d.Kind.(MissingKey).Key)
		}
		assert.Equal(t, []any{int64(-1), big, big + 1}, keys)
	}
}

func TestCompareNumbers(t *testing.T) {
	const maxU = ^uint64(0)
	tests := []struct {
		name string
		a, b any
		want int
	}{
		{"int64 above 2^53", int64(1<<53 + 1), int64(1 << 53), 1},
		{"uint64 max", maxU, maxU - 1, 1},
		{"equal across widths", int8(5), uint64(5), 0},
		{"negative below unsigned", int64(-1), uint64(0), -1},
		{"unsigned above negative", uint(0), int(-3), 1},
		{"signed vs huge unsigned", int64(math.MaxInt64), maxU, -1},
		{"float involved", 1.5, 2, -1},
		{"NaN first", math.NaN(), -math.MaxFloat64, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CompareNumbers(reflect.ValueOf(tt.a), reflect.ValueOf(tt.b)))
		})
	}
}

func TestPath_String(t *testing.T) {
	tests := []struct {
		name string
		path Path
		want string
	}{
		{"root", nil, "$"},
		{"nested", Path{Key("user"), Key("roles"), Index(0)}, "$.user.roles[0]"},
		{"quoted key", Path{Key("a key")}, `$["a key"]`},
		{"numeric key", Path{Key(7)}, "$[7]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.path.String())
		})
	}
}

func TestFormat(t *testing.T) {
	r := Compare([]any{"a", 1}, []any{"b", 1, true})

	assert.Equal(t, "$: length mismatch: expected 2, got 3\n"+
		"$[0]: expected \"a\", got \"b\" (first difference at index 0)\n"+
		"$[2]: expected <absent>, got true", Format(r))
}
