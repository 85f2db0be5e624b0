package that

import (
	"reflect"
	"strings"

	"that/pkg/diff"
)

// length reports the length of strings, slices, arrays, maps, channels and
// diff.KeyOrderer values.
func length(v any) (int, bool) {
	if ko, ok := v.(diff.KeyOrderer); ok {
		return len(ko.Keys()), true
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Array, reflect.Map, reflect.Chan:
		return rv.Len(), true
	}
	return 0, false
}

// contains reports whether item is in v. Strings match substrings, sequences
// match elements by structural equality and mappings match keys.
func contains(v, item any) (found, ok bool) {
	if str, isStr := v.(string); isStr {
		switch it := item.(type) {
		case string:
			return strings.Contains(str, it), true
		case rune:
			return strings.ContainsRune(str, it), true
		}
		return false, false
	}
	if ko, isKO := v.(diff.KeyOrderer); isKO {
		_, found := ko.Get(item)
		return found, true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if diff.Compare(item, rv.Index(i).Interface()).IsEqual {
				return true, true
			}
		}
		return false, true
	case reflect.Map:
		kv := reflect.ValueOf(item)
		kt := rv.Type().Key()
		if !kv.IsValid() || !kv.Type().AssignableTo(kt) {
			if !kv.IsValid() || !kv.Type().ConvertibleTo(kt) || kv.Kind() != kt.Kind() {
				return false, true
			}
			kv = kv.Convert(kt)
		}
		return rv.MapIndex(kv).IsValid(), true
	}
	return false, false
}

// Contains requires item to be a substring, element or key of the subject.
func (s *Subject) Contains(item any) *Subject {
	expr := s.expr("Contains", item)
	found, ok := contains(s.value, item)
	if !ok {
		s.fail(expr, describef("collection containing %s", render(item)), describef("%T (not a collection)", s.value))
	}
	if !found {
		s.fail(expr, describef("collection containing %s", render(item)), s.value)
	}
	return s
}

// DoesNotContain is the negation of Contains. Values that are not collections
// contain nothing and pass.
func (s *Subject) DoesNotContain(item any) *Subject {
	if found, _ := contains(s.value, item); found {
		s.fail(s.expr("DoesNotContain", item), describef("collection not containing %s", render(item)), s.value)
	}
	return s
}

func (s *Subject) IsEmpty() *Subject {
	expr := s.expr("IsEmpty")
	n, ok := length(s.value)
	if !ok {
		s.fail(expr, describef("empty collection"), describef("%T (no length)", s.value))
	}
	if n != 0 {
		s.fail(expr, describef("empty collection"), describef("collection with %d items", n))
	}
	return s
}

func (s *Subject) IsNotEmpty() *Subject {
	expr := s.expr("IsNotEmpty")
	n, ok := length(s.value)
	if !ok {
		s.fail(expr, describef("non-empty collection"), describef("%T (no length)", s.value))
	}
	if n == 0 {
		s.fail(expr, describef("non-empty collection"), describef("empty collection"))
	}
	return s
}

// HasLength requires len(subject) == n.
func (s *Subject) HasLength(n int) *Subject {
	expr := s.expr("HasLength", n)
	got, ok := length(s.value)
	if !ok {
		s.fail(expr, describef("length %d", n), describef("%T (no length)", s.value))
	}
	if got != n {
		s.fail(expr, describef("length %d", n), describef("length %d", got))
	}
	return s
}

// HasLengthBetween requires lo <= len(subject) <= hi.
func (s *Subject) HasLengthBetween(lo, hi int) *Subject {
	expr := s.expr("HasLengthBetween", lo, hi)
	if lo > hi {
		s.misuse(expr, "lower bound %d is above upper bound %d", lo, hi)
	}
	got, ok := length(s.value)
	if !ok {
		s.fail(expr, describef("length between %d and %d", lo, hi), describef("%T (no length)", s.value))
	}
	if got < lo || got > hi {
		s.fail(expr, describef("length between %d and %d", lo, hi), describef("length %d", got))
	}
	return s
}

// HasKey requires a mapping subject to contain every given key.
func (s *Subject) HasKey(keys ...any) *Subject {
	expr := s.expr("HasKey", keys...)
	if diff.Categorize(s.value) != diff.CategoryMapping {
		s.fail(expr, describef("mapping"), describef("%T", s.value))
	}
	for _, k := range keys {
		found, ok := contains(s.value, k)
		if !ok {
			found, ok = structHasField(s.value, k)
		}
		if !ok || !found {
			s.fail(expr, describef("mapping with key %s", render(k)), s.value)
		}
	}
	return s
}

func structHasField(v, k any) (bool, bool) {
	name, isStr := k.(string)
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	if !isStr || rv.Kind() != reflect.Struct {
		return false, false
	}
	f, ok := rv.Type().FieldByName(name)
	return ok && f.IsExported(), true
}

// AllSatisfy requires pred to hold for every element of a sequence subject.
func (s *Subject) AllSatisfy(pred func(any) bool) *Subject {
	expr := s.expr("AllSatisfy", pred)
	for i, el := range s.elements(expr) {
		if !pred(el) {
			s.fail(expr, describef("every element satisfying the predicate"), describef("element %d (%s) does not", i, render(el)))
		}
	}
	return s
}

// AnySatisfy requires pred to hold for at least one element.
func (s *Subject) AnySatisfy(pred func(any) bool) *Subject {
	expr := s.expr("AnySatisfy", pred)
	for _, el := range s.elements(expr) {
		if pred(el) {
			return s
		}
	}
	s.fail(expr, describef("an element satisfying the predicate"), s.value)
	return s
}

func (s *Subject) elements(expr string) []any {
	rv := reflect.ValueOf(s.value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		s.fail(expr, describef("sequence"), describef("%T", s.value))
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

// HasValue requires a mapping subject to hold v under some key.
func (s *Subject) HasValue(v any) *Subject {
	expr := s.expr("HasValue", v)
	if ko, ok := s.value.(diff.KeyOrderer); ok {
		for _, k := range ko.Keys() {
			if got, _ := ko.Get(k); diff.Compare(v, got).IsEqual {
				return s
			}
		}
		s.fail(expr, describef("mapping with value %s", render(v)), s.value)
	}
	rv := reflect.ValueOf(s.value)
	if rv.Kind() != reflect.Map {
		s.fail(expr, describef("mapping"), describef("%T", s.value))
	}
	iter := rv.MapRange()
	for iter.Next() {
		if diff.Compare(v, iter.Value().Interface()).IsEqual {
			return s
		}
	}
	s.fail(expr, describef("mapping with value %s", render(v)), s.value)
	return s
}

// HasUniqueItems requires no two elements of a sequence to be structurally equal.
func (s *Subject) HasUniqueItems() *Subject {
	expr := s.expr("HasUniqueItems")
	els := s.elements(expr)
	for i := range els {
		for j := i + 1; j < len(els); j++ {
			if diff.Compare(els[i], els[j]).IsEqual {
				s.fail(expr, describef("unique items"), describef("elements %d and %d are both %s", i, j, render(els[i])))
			}
		}
	}
	return s
}

// IsSorted requires a sequence in non-decreasing order. Elements must be
// orderable the same way IsGreaterThan operands are.
func (s *Subject) IsSorted() *Subject {
	expr := s.expr("IsSorted")
	els := s.elements(expr)
	for i := 1; i < len(els); i++ {
		c, err := order(els[i-1], els[i])
		if err != nil {
			s.misuse(expr, "%w", err)
		}
		if c > 0 {
			s.fail(expr, describef("sorted sequence"), describef("element %d (%s) is before %s", i-1, render(els[i-1]), render(els[i])))
		}
	}
	return s
}
