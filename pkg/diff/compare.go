package diff

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
)

// DefaultMaxDepth bounds recursion so cyclic inputs fail fast instead of looping.
const DefaultMaxDepth = 256

var (
	// ErrRecursionLimitExceeded is returned when nesting exceeds the configured depth.
	ErrRecursionLimitExceeded = errors.New("recursion limit exceeded")
	// ErrNegativeTolerance is returned for a tolerance below zero.
	ErrNegativeTolerance = errors.New("tolerance must not be negative")
)

type options struct {
	tolerance    float64
	hasTolerance bool
	maxDepth     int
}

// Option configures a comparison.
type Option func(*options)

// WithTolerance makes numeric comparison succeed when abs(expected-actual) <= t.
func WithTolerance(t float64) Option {
	return func(o *options) {
		o.tolerance = t
		o.hasTolerance = true
	}
}

// WithMaxDepth overrides DefaultMaxDepth. n <= 0 disables the guard.
func WithMaxDepth(n int) Option {
	return func(o *options) { o.maxDepth = n }
}

// Compare structurally compares expected with actual. Errors that stop the
// comparison are recorded on the result's Err field and make it unequal.
func Compare(expected, actual any, opts ...Option) *ComparisonResult {
	res, err := CompareE(expected, actual, opts...)
	if err != nil {
		res.Err = err
		res.IsEqual = false
	}
	return res
}

// CompareE is Compare with the comparison error returned separately.
func CompareE(expected, actual any, opts ...Option) (*ComparisonResult, error) {
	o := options{maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(&o)
	}
	if o.hasTolerance && (o.tolerance < 0 || math.IsNaN(o.tolerance)) {
		return &ComparisonResult{}, fmt.Errorf("%w: %v", ErrNegativeTolerance, o.tolerance)
	}

	c := &comparer{opts: o}
	err := c.compare(nil, reflect.ValueOf(expected), reflect.ValueOf(actual), 0)
	res := &ComparisonResult{
		IsEqual:     err == nil && len(c.diffs) == 0,
		Differences: c.diffs,
	}
	return res, err
}

type comparer struct {
	opts  options
	diffs []Difference
}

func (c *comparer) add(p Path, k Kind) {
	c.diffs = append(c.diffs, Difference{Path: p, Kind: k})
}

func (c *comparer) compare(p Path, e, a reflect.Value, depth int) error {
	if c.opts.maxDepth > 0 && depth > c.opts.maxDepth {
		return fmt.Errorf("%w at %s (max depth %d)", ErrRecursionLimitExceeded, p, c.opts.maxDepth)
	}

	e, a = indirect(e), indirect(a)
	ec, ac := categorize(e), categorize(a)

	if ec != ac {
		if ec == CategoryNil || ac == CategoryNil {
			c.add(p, ValueMismatch{Expected: iface(e), Actual: iface(a), DivergeAt: -1})
			return nil
		}
		c.add(p, TypeMismatch{Expected: ec, Actual: ac, ExpectedType: typeName(e), ActualType: typeName(a)})
		return nil
	}

	switch ec {
	case CategoryNil:
		return nil
	case CategoryMapping:
		return c.compareMapping(p, e, a, depth)
	case CategorySequence:
		return c.compareSequence(p, e, a, depth)
	case CategoryNumeric:
		if !c.numericEqual(e, a) {
			c.add(p, ValueMismatch{Expected: iface(e), Actual: iface(a), DivergeAt: -1})
		}
	case CategoryText:
		es, as := e.String(), a.String()
		if es != as {
			c.add(p, ValueMismatch{Expected: iface(e), Actual: iface(a), DivergeAt: divergeAt(es, as)})
		}
	default:
		if e.Type() != a.Type() {
			c.add(p, TypeMismatch{Expected: ec, Actual: ac, ExpectedType: typeName(e), ActualType: typeName(a)})
			return nil
		}
		if !scalarEqual(e, a) {
			c.add(p, ValueMismatch{Expected: iface(e), Actual: iface(a), DivergeAt: -1})
		}
	}
	return nil
}

func (c *comparer) compareMapping(p Path, e, a reflect.Value, depth int) error {
	em, am := asMapping(e), asMapping(a)

	for _, k := range em.keys() {
		ev, _ := em.get(k)
		av, ok := am.get(k)
		if !ok {
			c.add(p.with(Key(k)), MissingKey{Key: k, Expected: iface(indirect(ev))})
			continue
		}
		if err := c.compare(p.with(Key(k)), ev, av, depth+1); err != nil {
			return err
		}
	}
	for _, k := range am.keys() {
		if _, ok := em.get(k); ok {
			continue
		}
		av, _ := am.get(k)
		c.add(p.with(Key(k)), UnexpectedKey{Key: k, Actual: iface(indirect(av))})
	}
	return nil
}

// compareSequence reports a length mismatch and keeps comparing the shared prefix.
// Elements only actual has are reported against absence; elements only expected
// has are covered by the LengthMismatch.
func (c *comparer) compareSequence(p Path, e, a reflect.Value, depth int) error {
	el, al := e.Len(), a.Len()
	if el != al {
		c.add(p, LengthMismatch{Expected: el, Actual: al})
	}
	for i := 0; i < min(el, al); i++ {
		if err := c.compare(p.with(Index(i)), e.Index(i), a.Index(i), depth+1); err != nil {
			return err
		}
	}
	for i := el; i < al; i++ {
		c.add(p.with(Index(i)), ValueMismatch{Actual: iface(indirect(a.Index(i))), DivergeAt: -1, Absent: SideExpected})
	}
	return nil
}

func (c *comparer) numericEqual(e, a reflect.Value) bool {
	if c.opts.hasTolerance {
		return math.Abs(toFloat(e)-toFloat(a)) <= c.opts.tolerance
	}
	if isFloat(e) || isFloat(a) {
		return toFloat(e) == toFloat(a)
	}
	switch {
	case isSigned(e) && isSigned(a):
		return e.Int() == a.Int()
	case !isSigned(e) && !isSigned(a):
		return e.Uint() == a.Uint()
	case isSigned(e):
		return e.Int() >= 0 && uint64(e.Int()) == a.Uint()
	default:
		return a.Int() >= 0 && uint64(a.Int()) == e.Uint()
	}
}

// CompareNumbers orders two numeric values of any int, uint or float kind.
// Integers compare exactly at full width; floats are involved only when
// either side is a float, and NaN sorts before every other number.
func CompareNumbers(a, b reflect.Value) int {
	if isFloat(a) || isFloat(b) {
		return cmp.Compare(toFloat(a), toFloat(b))
	}
	switch {
	case isSigned(a) && isSigned(b):
		return cmp.Compare(a.Int(), b.Int())
	case !isSigned(a) && !isSigned(b):
		return cmp.Compare(a.Uint(), b.Uint())
	case isSigned(a):
		if a.Int() < 0 {
			return -1
		}
		return cmp.Compare(uint64(a.Int()), b.Uint())
	default:
		if b.Int() < 0 {
			return 1
		}
		return cmp.Compare(a.Uint(), uint64(b.Int()))
	}
}

var (
	keyOrdererType = reflect.TypeOf((*KeyOrderer)(nil)).Elem()
	boolType       = reflect.TypeOf(true)
)

// indirect strips pointers and interfaces. KeyOrderer implementations are kept
// as-is because their methods usually sit on the pointer receiver.
func indirect(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}
		}
		if v.Kind() == reflect.Pointer && v.Type().Implements(keyOrdererType) {
			return v
		}
		v = v.Elem()
	}
	return v
}

// Categorize reports the comparison category Compare would pick for v.
func Categorize(v any) Category {
	return categorize(indirect(reflect.ValueOf(v)))
}

func categorize(v reflect.Value) Category {
	if !v.IsValid() {
		return CategoryNil
	}
	if v.Type().Implements(keyOrdererType) {
		return CategoryMapping
	}
	switch v.Kind() {
	case reflect.Map:
		return CategoryMapping
	case reflect.Slice, reflect.Array:
		return CategorySequence
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return CategoryNumeric
	case reflect.String:
		return CategoryText
	case reflect.Struct:
		if hasEqualMethod(v.Type()) || len(exportedFields(v.Type())) == 0 {
			return CategoryScalar
		}
		return CategoryMapping
	default:
		return CategoryScalar
	}
}

// hasEqualMethod matches types like time.Time that define Equal(T) bool.
func hasEqualMethod(t reflect.Type) bool {
	m, ok := t.MethodByName("Equal")
	if !ok {
		return false
	}
	mt := m.Type
	return mt.NumIn() == 2 && mt.In(1) == t && mt.NumOut() == 1 && mt.Out(0) == boolType
}

func scalarEqual(e, a reflect.Value) bool {
	if hasEqualMethod(e.Type()) {
		return e.MethodByName("Equal").Call([]reflect.Value{a})[0].Bool()
	}
	if e.CanInterface() && a.CanInterface() {
		return reflect.DeepEqual(e.Interface(), a.Interface())
	}
	return fmt.Sprint(e) == fmt.Sprint(a)
}

func exportedFields(t reflect.Type) []reflect.StructField {
	var out []reflect.StructField
	for i := 0; i < t.NumField(); i++ {
		if f := t.Field(i); f.IsExported() {
			out = append(out, f)
		}
	}
	return out
}

type mapping interface {
	keys() []any
	get(k any) (reflect.Value, bool)
}

func asMapping(v reflect.Value) mapping {
	if v.Type().Implements(keyOrdererType) {
		return ordererMapping{v.Interface().(KeyOrderer)}
	}
	if v.Kind() == reflect.Struct {
		return structMapping{v}
	}
	return goMapping{v}
}

type ordererMapping struct{ o KeyOrderer }

func (m ordererMapping) keys() []any { return m.o.Keys() }

func (m ordererMapping) get(k any) (reflect.Value, bool) {
	v, ok := m.o.Get(k)
	return reflect.ValueOf(v), ok
}

type structMapping struct{ v reflect.Value }

func (m structMapping) keys() []any {
	fields := exportedFields(m.v.Type())
	out := make([]any, len(fields))
	for i, f := range fields {
		out[i] = f.Name
	}
	return out
}

func (m structMapping) get(k any) (reflect.Value, bool) {
	name, ok := k.(string)
	if !ok {
		return reflect.Value{}, false
	}
	f, ok := m.v.Type().FieldByName(name)
	if !ok || !f.IsExported() || len(f.Index) != 1 {
		return reflect.Value{}, false
	}
	return m.v.FieldByIndex(f.Index), true
}

type goMapping struct{ v reflect.Value }

func (m goMapping) keys() []any {
	ks := m.v.MapKeys()
	sortKeys(ks)
	out := make([]any, len(ks))
	for i, k := range ks {
		out[i] = iface(k)
	}
	return out
}

func (m goMapping) get(k any) (reflect.Value, bool) {
	kt := m.v.Type().Key()
	kv := reflect.ValueOf(k)
	switch {
	case !kv.IsValid():
		if kt.Kind() != reflect.Interface {
			return reflect.Value{}, false
		}
		kv = reflect.Zero(kt)
	case kv.Type().AssignableTo(kt):
	case kv.Kind() == kt.Kind() && kv.Type().ConvertibleTo(kt):
		kv = kv.Convert(kt)
	default:
		return reflect.Value{}, false
	}
	v := m.v.MapIndex(kv)
	return v, v.IsValid()
}

// sortKeys orders Go map keys deterministically: numbers numerically, strings
// lexically, mixed or other kinds by category then rendered text.
func sortKeys(ks []reflect.Value) {
	sort.SliceStable(ks, func(i, j int) bool {
		a, b := indirect(ks[i]), indirect(ks[j])
		ac, bc := categorize(a), categorize(b)
		if ac != bc {
			return ac < bc
		}
		switch ac {
		case CategoryNumeric:
			return CompareNumbers(a, b) < 0
		case CategoryText:
			return a.String() < b.String()
		}
		return fmt.Sprint(iface(a)) < fmt.Sprint(iface(b))
	})
}

func divergeAt(e, a string) int {
	er, ar := []rune(e), []rune(a)
	n := min(len(er), len(ar))
	for i := 0; i < n; i++ {
		if er[i] != ar[i] {
			return i
		}
	}
	return n
}

func isFloat(v reflect.Value) bool {
	return v.Kind() == reflect.Float32 || v.Kind() == reflect.Float64
}

func isSigned(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

func toFloat(v reflect.Value) float64 {
	switch {
	case isFloat(v):
		return v.Float()
	case isSigned(v):
		return float64(v.Int())
	default:
		return float64(v.Uint())
	}
}

func iface(v reflect.Value) any {
	if !v.IsValid() {
		return nil
	}
	if v.CanInterface() {
		return v.Interface()
	}
	return fmt.Sprint(v)
}

func typeName(v reflect.Value) string {
	if !v.IsValid() {
		return "nil"
	}
	return v.Type().String()
}
