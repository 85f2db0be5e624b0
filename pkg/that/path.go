package that

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"that/pkg/diff"
	"that/pkg/failure"
)

// Path navigates into a mapping/sequence subject with dot-and-bracket
// notation ("user.roles[0]", `meta["content-type"]`, "$.a.b") and returns a
// subject over the nested value. A missing segment fails with
// failure.ErrPathNotFound.
func (s *Subject) Path(path string) *Subject {
	expr := s.expr("Path", path)
	segs, err := ParsePath(path)
	if err != nil {
		s.misuse(expr, "%w", err)
	}

	cur := s.value
	for i, seg := range segs {
		next, reason := step(cur, seg)
		if reason != "" {
			at := diff.Path(segs[:i+1]).String()
			failure.Raise(&failure.Error{
				Kind:    failure.KindAssertion,
				Message: expr,
				Cause:   fmt.Errorf("%w: %s: %s", failure.ErrPathNotFound, at, reason),
			})
		}
		cur = next
	}
	return That(cur, expr)
}

// ParsePath splits dotted/bracketed notation into diff path segments.
func ParsePath(path string) ([]diff.Segment, error) {
	p := strings.TrimPrefix(path, "$")
	var segs []diff.Segment
	for i := 0; i < len(p); {
		switch p[i] {
		case '.':
			i++
			j := i
			for j < len(p) && p[j] != '.' && p[j] != '[' {
				j++
			}
			if j == i {
				return nil, fmt.Errorf("empty key at offset %d in %q", i, path)
			}
			segs = append(segs, diff.Key(p[i:j]))
			i = j
		case '[':
			end := strings.IndexByte(p[i:], ']')
			if end < 0 {
				return nil, fmt.Errorf("unclosed bracket at offset %d in %q", i, path)
			}
			inner := p[i+1 : i+end]
			if strings.HasPrefix(inner, `"`) {
				k, err := strconv.Unquote(inner)
				if err != nil {
					return nil, fmt.Errorf("bad quoted key %s in %q", inner, path)
				}
				segs = append(segs, diff.Key(k))
			} else {
				n, err := strconv.Atoi(inner)
				if err != nil {
					return nil, fmt.Errorf("bad index %q in %q", inner, path)
				}
				segs = append(segs, diff.Index(n))
			}
			i += end + 1
		default:
			if i != 0 {
				return nil, fmt.Errorf("unexpected %q at offset %d in %q", p[i], i, path)
			}
			p = "." + p
		}
	}
	return segs, nil
}

// step resolves one segment. A non-empty reason means the segment is absent.
func step(cur any, seg diff.Segment) (any, string) {
	if ko, ok := cur.(diff.KeyOrderer); ok && !seg.IsIndex {
		if v, found := ko.Get(seg.Key); found {
			return v, ""
		}
		return nil, fmt.Sprintf("key %s not found", diff.FormatValue(seg.Key))
	}

	rv := reflect.ValueOf(cur)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, "nil value"
		}
		rv = rv.Elem()
	}

	if seg.IsIndex {
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return nil, fmt.Sprintf("cannot index %s", typeOf(rv))
		}
		if seg.Index < 0 || seg.Index >= rv.Len() {
			return nil, fmt.Sprintf("index %d out of range (len %d)", seg.Index, rv.Len())
		}
		return rv.Index(seg.Index).Interface(), ""
	}

	name, _ := seg.Key.(string)
	switch rv.Kind() {
	case reflect.Map:
		kv, ok := mapKey(rv.Type().Key(), name)
		if ok {
			if v := rv.MapIndex(kv); v.IsValid() {
				return v.Interface(), ""
			}
		}
		return nil, fmt.Sprintf("key %q not found", name)
	case reflect.Struct:
		if f, ok := structField(rv, name); ok {
			return f.Interface(), ""
		}
		return nil, fmt.Sprintf("field %q not found on %s", name, rv.Type())
	}
	return nil, fmt.Sprintf("cannot look up key %q in %s", name, typeOf(rv))
}

// mapKey converts a path key to the map's key type; integer keys are parsed.
func mapKey(kt reflect.Type, name string) (reflect.Value, bool) {
	switch kt.Kind() {
	case reflect.String:
		return reflect.ValueOf(name).Convert(kt), true
	case reflect.Interface:
		return reflect.ValueOf(name), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(name, 10, 64)
		if err != nil {
			return reflect.Value{}, false
		}
		return reflect.ValueOf(n).Convert(kt), true
	}
	return reflect.Value{}, false
}

// structField finds an exported field by name or by its json tag name.
func structField(rv reflect.Value, name string) (reflect.Value, bool) {
	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		tag, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if f.Name == name || (tag != "" && tag == name) {
			return rv.Field(i), true
		}
	}
	return reflect.Value{}, false
}

func typeOf(rv reflect.Value) string {
	if !rv.IsValid() {
		return "nil"
	}
	return rv.Type().String()
}
