package diff

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrdered(t *testing.T) {
	o := NewOrdered("b", 1, "a", 2)
	o.Set("c", 3).Set("b", 10)

	assert.Equal(t, []any{"b", "a", "c"}, o.Keys())
	v, ok := o.Get("b")
	assert.True(t, ok)
	assert.Equal(t, 10, v)
	assert.Equal(t, 3, o.Len())

	o.Delete("a")
	assert.Equal(t, []any{"b", "c"}, o.Keys())
	assert.Equal(t, `{"b": 10, "c": 3}`, o.String())
}

func TestOrdered_MarshalJSONKeepsOrder(t *testing.T) {
	o := NewOrdered("zeta", 1, "alpha", []int{1, 2}, 3, "three")

	b, err := json.Marshal(o)
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":1,"alpha":[1,2],"3":"three"}`, string(b))
}

func TestNewOrdered_OddArgumentsPanics(t *testing.T) {
	assert.Panics(t, func() { NewOrdered("a") })
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  Category
	}{
		{"nil", nil, CategoryNil},
		{"nil pointer", (*int)(nil), CategoryNil},
		{"map", map[string]int{}, CategoryMapping},
		{"ordered", NewOrdered(), CategoryMapping},
		{"slice", []string{}, CategorySequence},
		{"array", [2]int{}, CategorySequence},
		{"float", 1.5, CategoryNumeric},
		{"uint8", uint8(1), CategoryNumeric},
		{"string", "x", CategoryText},
		{"bool", false, CategoryScalar},
		{"struct", struct{ A int }{}, CategoryMapping},
		{"opaque struct", struct{ a int }{}, CategoryScalar},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Categorize(tt.value))
		})
	}
}
