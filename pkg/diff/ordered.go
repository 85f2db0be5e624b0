package diff

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// KeyOrderer is a mapping that controls its own key order. Compare walks
// KeyOrderer keys in the order returned by Keys instead of sorting them.
type KeyOrderer interface {
	Keys() []any
	Get(key any) (any, bool)
}

// Ordered is an insertion-ordered mapping. Keys must be comparable.
type Ordered struct {
	keys   []any
	values map[any]any
}

// NewOrdered builds an Ordered from alternating key/value arguments.
func NewOrdered(kv ...any) *Ordered {
	if len(kv)%2 != 0 {
		panic(fmt.Sprintf("diff.NewOrdered: odd number of arguments (%d)", len(kv)))
	}
	o := &Ordered{values: make(map[any]any, len(kv)/2)}
	for i := 0; i < len(kv); i += 2 {
		o.Set(kv[i], kv[i+1])
	}
	return o
}

// Set stores v under k. Re-setting a key keeps its original position.
func (o *Ordered) Set(k, v any) *Ordered {
	if o.values == nil {
		o.values = make(map[any]any)
	}
	if _, ok := o.values[k]; !ok {
		o.keys = append(o.keys, k)
	}
	o.values[k] = v
	return o
}

func (o *Ordered) Get(k any) (any, bool) {
	v, ok := o.values[k]
	return v, ok
}

// Delete removes k, preserving the order of the remaining keys.
func (o *Ordered) Delete(k any) {
	if _, ok := o.values[k]; !ok {
		return
	}
	delete(o.values, k)
	for i, key := range o.keys {
		if key == k {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			return
		}
	}
}

func (o *Ordered) Keys() []any {
	out := make([]any, len(o.keys))
	copy(out, o.keys)
	return out
}

func (o *Ordered) Len() int { return len(o.keys) }

func (o *Ordered) String() string {
	parts := make([]string, 0, len(o.keys))
	for _, k := range o.keys {
		parts = append(parts, FormatValue(k)+": "+FormatValue(o.values[k]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// MarshalJSON writes keys in insertion order; non-string keys are rendered with fmt.
func (o *Ordered) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		ks, ok := k.(string)
		if !ok {
			ks = fmt.Sprint(k)
		}
		kb, err := json.Marshal(ks)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(o.values[k])
		if err != nil {
			return nil, fmt.Errorf("marshal value for key %q: %w", ks, err)
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
