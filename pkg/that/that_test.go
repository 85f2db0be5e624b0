package that

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"that/pkg/diff"
	"that/pkg/failure"
)

// raised runs fn and returns the framework error it panicked with.
func raised(t *testing.T, fn func()) *failure.Error {
	t.Helper()
	err := failure.Catch(fn)
	require.Error(t, err, "expected the chain to fail")
	fe, ok := failure.As(err)
	require.True(t, ok, "expected *failure.Error, got %T: %v", err, err)
	return fe
}

func passes(t *testing.T, fn func()) {
	t.Helper()
	assert.NoError(t, failure.Catch(fn))
}

func TestEquals(t *testing.T) {
	passes(t, func() { That(map[string]any{"a": []int{1, 2}}).Equals(map[string]any{"a": []int{1, 2}}) })

	fe := raised(t, func() { That(1).Equals(2) })
	assert.Equal(t, failure.KindAssertion, fe.Kind)
	assert.Equal(t, "That(1).Equals(2)", fe.Message)
	require.NotNil(t, fe.Result)
	assert.Len(t, fe.Result.Differences, 1)
}

func TestEquals_StructuredDiff(t *testing.T) {
	expected := map[string]any{"name": "Alice", "age": 30}
	actual := map[string]any{"name": "Alice", "age": 28, "extra": 1}

	fe := raised(t, func() { That(actual, "user").Equals(expected) })

	assert.Equal(t, "user.Equals(map[age:30 name:Alice])", fe.Message)
	assert.Equal(t, "$.age: expected 30, got 28\n$.extra: unexpected key (value 1)", diff.Format(fe.Result))
}

func TestApproximatelyEquals(t *testing.T) {
	passes(t, func() { That(1.5).ApproximatelyEquals(1.0, 0.5) })
	raised(t, func() { That(1.6).ApproximatelyEquals(1.0, 0.5) })

	fe := raised(t, func() { That(1.0).ApproximatelyEquals(1.0, -1) })
	assert.Equal(t, failure.KindSetup, fe.Kind)
}

func TestChainAbortsAtFirstFailure(t *testing.T) {
	reached := false
	raised(t, func() {
		That([]int{1}).HasLength(5).AllSatisfy(func(any) bool {
			reached = true
			return true
		})
	})
	assert.False(t, reached)
}

func TestPredicates(t *testing.T) {
	var nilMap map[string]int
	var nilPtr *int

	tests := []struct {
		name string
		pass func()
		fail func()
	}{
		{"DoesNotEqual", func() { That(1).DoesNotEqual(2) }, func() { That(1).DoesNotEqual(1) }},
		{"IsTrue", func() { That(true).IsTrue() }, func() { That(1).IsTrue() }},
		{"IsFalse", func() { That(false).IsFalse() }, func() { That(true).IsFalse() }},
		{"IsNil", func() { That(nilPtr).IsNil().Equals(nil) }, func() { That(0).IsNil() }},
		{"IsNil map", func() { That(nilMap).IsNil() }, func() { That(map[string]int{}).IsNil() }},
		{"IsNotNil", func() { That(0).IsNotNil() }, func() { That(nil).IsNotNil() }},
		{"Contains string", func() { That("hello").Contains("ell") }, func() { That("hello").Contains("xyz") }},
		{"Contains slice", func() { That([]any{1, "a"}).Contains("a") }, func() { That([]int{1}).Contains(2) }},
		{"Contains map key", func() { That(map[string]int{"k": 1}).Contains("k") }, func() { That(map[string]int{}).Contains("k") }},
		{"Contains non collection", func() { That([]int{}).DoesNotContain(1) }, func() { That(42).Contains(4) }},
		{"DoesNotContain", func() { That(42).DoesNotContain(4) }, func() { That("abc").DoesNotContain("b") }},
		{"IsEmpty", func() { That([]int{}).IsEmpty() }, func() { That("x").IsEmpty() }},
		{"IsNotEmpty", func() { That("x").IsNotEmpty() }, func() { That(map[int]int{}).IsNotEmpty() }},
		{"HasLength", func() { That([3]int{}).HasLength(3) }, func() { That("ab").HasLength(3) }},
		{"HasLength no length", func() { That("ab").HasLength(2) }, func() { That(3).HasLength(1) }},
		{"HasLengthBetween", func() { That("abc").HasLengthBetween(1, 3) }, func() { That("abcd").HasLengthBetween(1, 3) }},
		{"StartsWith", func() { That("prefix-x").StartsWith("prefix") }, func() { That(12).StartsWith("1") }},
		{"EndsWith", func() { That("x.go").EndsWith(".go") }, func() { That("x.py").EndsWith(".go") }},
		{"Matches", func() { That("order-1234").Matches(`\d{4}$`) }, func() { That("order-12").Matches(`\d{4}`) }},
		{"IsGreaterThan", func() { That(3).IsGreaterThan(2.5) }, func() { That(2).IsGreaterThan(2) }},
		{"IsLessThan", func() { That("a").IsLessThan("b") }, func() { That(uint8(9)).IsLessThan(1) }},
		{"IsBetween inclusive", func() { That(5).IsBetween(5, 10).IsBetween(1, 5) }, func() { That(11).IsBetween(5, 10) }},
		{"IsPositive", func() { That(0.1).IsPositive() }, func() { That(-1).IsPositive() }},
		{"IsEven", func() { That(4).IsEven() }, func() { That(3).IsEven() }},
		{"IsOdd", func() { That(-3).IsOdd() }, func() { That(uint(8)).IsOdd() }},
		{"HasKey map", func() { That(map[string]int{"a": 1, "b": 2}).HasKey("a", "b") }, func() { That(map[string]int{"a": 1}).HasKey("b") }},
		{"HasKey struct", func() { That(struct{ Name string }{}).HasKey("Name") }, func() { That([]int{}).HasKey(0) }},
		{"HasValue map", func() { That(map[string][]int{"a": {1}}).HasValue([]int{1}) }, func() { That(map[string]int{"a": 1}).HasValue(2) }},
		{"HasValue ordered", func() { That(diff.NewOrdered("k", "v")).HasValue("v") }, func() { That([]int{1}).HasValue(1) }},
		{"HasUniqueItems", func() { That([]any{1, "1", 1.5}).HasUniqueItems() }, func() { That([][]int{{1}, {2}, {1}}).HasUniqueItems() }},
		{"IsSorted", func() { That([]float64{1, 1, 2.5}).IsSorted() }, func() { That([]string{"b", "a"}).IsSorted() }},
		{"AllSatisfy", func() { That([]int{2, 4}).AllSatisfy(even) }, func() { That([]int{2, 3}).AllSatisfy(even) }},
		{"AnySatisfy", func() { That([]int{1, 4}).AnySatisfy(even) }, func() { That([]int{1, 3}).AnySatisfy(even) }},
		{"IsInstanceOf interface", func() { That(errors.New("x")).IsInstanceOf((*error)(nil)) }, func() { That(1).IsInstanceOf((*error)(nil)) }},
		{"IsInstanceOf type", func() { That(time.Second).IsInstanceOf(reflect.TypeOf(time.Duration(0))) }, func() { That(1).IsInstanceOf("") }},
		{"HasType", func() { That(int64(1)).HasType(int64(0)) }, func() { That(1).HasType(int64(0)) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			passes(t, tt.pass)
			fe := raised(t, tt.fail)
			assert.Equal(t, failure.KindAssertion, fe.Kind, fe.Detail())
		})
	}
}

func even(v any) bool { return v.(int)%2 == 0 }

func TestPredicateMessages(t *testing.T) {
	fe := raised(t, func() { That(2).IsGreaterThan(3) })
	assert.Equal(t, "That(2).IsGreaterThan(3)\n  Expected: value > 3\n  Actual:   2", fe.Detail())

	fe = raised(t, func() { That([]int{1, 2}).HasLength(3) })
	assert.Equal(t, "That([1 2]).HasLength(3)\n  Expected: length 3\n  Actual:   length 2", fe.Detail())
}

func TestOrderingIsExactForLargeIntegers(t *testing.T) {
	const big = int64(1) << 53
	const maxU = ^uint64(0)

	passes(t, func() { That(big + 1).IsGreaterThan(big) })
	passes(t, func() { That(maxU).IsGreaterThan(maxU - 1) })
	passes(t, func() { That(big).IsLessThan(big + 1).IsBetween(big, big) })
	passes(t, func() { That([]uint64{maxU - 2, maxU - 1, maxU}).IsSorted() })
	passes(t, func() { That(int64(-1)).IsLessThan(maxU) })

	raised(t, func() { That(big).IsGreaterThan(big + 1) })
	raised(t, func() { That(maxU - 1).IsBetween(maxU, maxU) })
	raised(t, func() { That([]int64{big + 1, big}).IsSorted() })
}

func TestIsSortedRequiresOrderableElements(t *testing.T) {
	passes(t, func() { That([]any{}).IsSorted() })

	fe := raised(t, func() { That([]any{1, "a"}).IsSorted() })
	assert.Equal(t, failure.KindSetup, fe.Kind)
}

func TestMisuseIsSetupError(t *testing.T) {
	tests := []struct {
		name string
		fn   func()
	}{
		{"unorderable operands", func() { That(map[string]int{}).IsBetween(1, 2) }},
		{"mixed ordering", func() { That("a").IsGreaterThan(1) }},
		{"bad regexp", func() { That("a").Matches("(") }},
		{"bad pattern type", func() { That("a").Matches(1) }},
		{"inverted bounds", func() { That("a").HasLengthBetween(3, 1) }},
		{"raises on non-func", func() { That(1).Raises(nil) }},
		{"raises with bad kind", func() { That(func() error { return errors.New("x") }).Raises(42) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fe := raised(t, tt.fn)
			assert.Equal(t, failure.KindSetup, fe.Kind, fe.Detail())
		})
	}
}

type validationError struct{ Field string }

func (e *validationError) Error() string { return "invalid " + e.Field }

var errSentinel = errors.New("sentinel")

func TestRaises(t *testing.T) {
	t.Run("sentinel through wrapping", func(t *testing.T) {
		es := That(func() error { return fmt.Errorf("load: %w", errSentinel) }).Raises(errSentinel)
		assert.EqualError(t, es.Err(), "load: sentinel")
	})

	t.Run("subtype via errors.As", func(t *testing.T) {
		passes(t, func() {
			That(func() (int, error) { return 0, fmt.Errorf("ctx: %w", &validationError{Field: "name"}) }).
				Raises((*validationError)(nil), "name")
		})
	})

	t.Run("concrete pointer kind", func(t *testing.T) {
		passes(t, func() {
			That(func() error { _, err := os.Open("/does/not/exist"); return err }).
				Raises((*fs.PathError)(nil)).WithMessage("exist")
		})
	})

	t.Run("panic counts as raised", func(t *testing.T) {
		passes(t, func() { That(func() { panic("boom") }).Raises(nil, "boom") })
	})

	t.Run("panic with error value", func(t *testing.T) {
		passes(t, func() { That(func() { panic(errSentinel) }).Raises(errSentinel) })
	})

	t.Run("no error", func(t *testing.T) {
		fe := raised(t, func() { That(func() error { return nil }).Raises(errSentinel) })
		assert.Equal(t, failure.Description("no error raised"), fe.Actual)
	})

	t.Run("wrong kind", func(t *testing.T) {
		fe := raised(t, func() { That(func() error { return errors.New("other") }).Raises(errSentinel) })
		assert.Equal(t, failure.KindAssertion, fe.Kind)
	})

	t.Run("message mismatch", func(t *testing.T) {
		fe := raised(t, func() { That(func() error { return errSentinel }).Raises(errSentinel, "nope") })
		assert.Contains(t, fe.Message, "WithMessage")
	})

	t.Run("error subject chains", func(t *testing.T) {
		passes(t, func() {
			That(func() error { return &validationError{Field: "age"} }).
				Raises((*validationError)(nil)).
				Path("Field").Equals("age")
		})
	})
}

func TestDoesNotRaise(t *testing.T) {
	passes(t, func() {
		That(func() (string, error) { return "ok", nil }).DoesNotRaise().Equals("ok")
		That(func() {}).DoesNotRaise().IsNil()
		That(func() (int, string) { return 1, "a" }).DoesNotRaise().Equals([]any{1, "a"})
	})

	fe := raised(t, func() { That(func() error { return errSentinel }).DoesNotRaise() })
	assert.Contains(t, fe.Detail(), "sentinel")

	fe = raised(t, func() { That(func() { panic("bad") }).DoesNotRaise() })
	assert.Contains(t, fe.Detail(), `panic("bad")`)
}

func TestPath(t *testing.T) {
	data := map[string]any{"user": map[string]any{"roles": []any{"admin", "user"}}}

	passes(t, func() {
		That(data).Path("user.roles[0]").Equals("admin")
		That(data).Path("$.user.roles[1]").Equals("user")
		That(data).Path(`["user"].roles`).HasLength(2)
	})

	fe := raised(t, func() { That(data).Path("user.roles[5]") })
	assert.Equal(t, failure.KindAssertion, fe.Kind)
	assert.ErrorIs(t, fe, failure.ErrPathNotFound)
	assert.Nil(t, fe.Result)
	assert.Contains(t, fe.Error(), "index 5 out of range (len 2)")

	fe = raised(t, func() { That(data).Path("user.name") })
	assert.ErrorIs(t, fe, failure.ErrPathNotFound)
}

func TestPath_StructsAndOrdered(t *testing.T) {
	type item struct {
		SKU   string `json:"sku"`
		Count int
	}
	order := struct {
		Items []item
		Meta  *diff.Ordered
	}{
		Items: []item{{SKU: "A-1", Count: 2}},
		Meta:  diff.NewOrdered("content-type", "json"),
	}

	passes(t, func() {
		That(order).Path("Items[0].sku").Equals("A-1")
		That(&order).Path("Items[0].Count").Equals(2)
		That(order).Path(`Meta["content-type"]`).Equals("json")
		That(map[int]string{7: "seven"}).Path("7").Equals("seven")
	})
}

func TestParsePath(t *testing.T) {
	segs, err := ParsePath(`a.b[2]["c d"]`)
	require.NoError(t, err)
	assert.Equal(t, []diff.Segment{diff.Key("a"), diff.Key("b"), diff.Index(2), diff.Key("c d")}, segs)

	for _, bad := range []string{"a..b", "a[x]", "a[1", `a["x]`, "a[0]b"} {
		_, err := ParsePath(bad)
		assert.Error(t, err, bad)
	}
}

func TestAsJSON(t *testing.T) {
	passes(t, func() {
		That(`{"id": 7, "tags": ["a"]}`).AsJSON().Path("id").Equals(7)
	})
	raised(t, func() { That("{not json").AsJSON() })
}

func TestMatchesSchema(t *testing.T) {
	schema := `{
		"type": "object",
		"required": ["name", "age"],
		"properties": {
			"name": {"type": "string"},
			"age": {"type": "integer", "minimum": 0}
		}
	}`

	passes(t, func() {
		That(map[string]any{"name": "Ann", "age": 3}).MatchesSchema(schema)
		That(struct {
			Name string `json:"name"`
			Age  int    `json:"age"`
		}{"Bob", 40}).MatchesSchema(schema)
	})

	fe := raised(t, func() { That(map[string]any{"name": "Ann", "age": -1}).MatchesSchema(schema) })
	assert.Equal(t, failure.KindAssertion, fe.Kind)

	fe = raised(t, func() { That(1).MatchesSchema("{") })
	assert.Equal(t, failure.KindSetup, fe.Kind)
}

func TestLabels(t *testing.T) {
	assert.Equal(t, `That("x")`, That("x").Label())
	assert.Equal(t, "custom", That(1, "custom").Label())
	assert.Equal(t, "That(<func()>)", That(func() {}).Label())
	assert.Equal(t, 1, That(1).Value())
}

func TestGuard(t *testing.T) {
	Guard(t, func() { That(1).Equals(1) })
}
