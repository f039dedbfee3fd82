package value

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapKeepsInsertionOrder(t *testing.T) {
	m := NewMap()
	m.Set("b", Int(1))
	m.Set("a", Int(2))
	m.Set("b", Int(3))
	assert.Equal(t, []string{"b", "a"}, m.Keys())

	got, ok := m.Get("b")
	require.True(t, ok)
	assert.True(t, Equal(Int(3), got))

	m.Delete("b")
	assert.Equal(t, []string{"a"}, m.Keys())
	assert.False(t, m.Has("b"))
}

func TestNilMapReads(t *testing.T) {
	var m *Map
	assert.Equal(t, 0, m.Len())
	assert.False(t, m.Has("x"))
	assert.Nil(t, m.Keys())
	assert.Equal(t, 0, m.Clone().Len())
}

func TestCloneIsDeep(t *testing.T) {
	inner := NewMap()
	inner.Set("k", String("v"))
	orig := NewMap()
	orig.Set("nested", Mapping(inner))
	orig.Set("list", Sequence(Int(1)))

	clone := orig.Clone()
	nested, _ := clone.Get("nested")
	nm, _ := nested.AsMap()
	nm.Set("k", String("changed"))

	v, _ := inner.Get("k")
	assert.True(t, Equal(String("v"), v))
	assert.True(t, orig.Equal(orig.Clone()))
}

func TestEqualKeepsNumericDistinction(t *testing.T) {
	assert.False(t, Equal(Int(1), Float(1)))
	assert.True(t, Equal(Float(1.5), Float(1.5)))

	a, b := NewMap(), NewMap()
	a.Set("x", Int(1))
	a.Set("y", Int(2))
	b.Set("y", Int(2))
	b.Set("x", Int(1))
	assert.True(t, Equal(Mapping(a), Mapping(b)))
}

func TestNonFiniteFloatBecomesText(t *testing.T) {
	assert.Equal(t, KindString, Float(math.Inf(1)).Kind())
	s, _ := Float(math.NaN()).AsString()
	assert.Equal(t, "nan", s)
}

func TestTypeName(t *testing.T) {
	cases := map[string]Value{
		"null":    Null(),
		"boolean": Bool(true),
		"integer": Int(3),
		"number":  Float(0.5),
		"string":  String(""),
		"array":   Sequence(),
		"object":  Mapping(nil),
	}
	for want, v := range cases {
		assert.Equal(t, want, v.TypeName())
	}
}

func TestFromAnyAndToTemplate(t *testing.T) {
	v := FromAny(map[string]any{
		"title": "Memo",
		"count": 3,
		"tags":  []string{"a", "b"},
		"meta":  map[string]any{"draft": true, "score": 0.5},
		"none":  nil,
	})
	m, ok := v.AsMap()
	require.True(t, ok)
	assert.Equal(t, []string{"count", "meta", "none", "tags", "title"}, m.Keys())

	tpl := ToTemplate(v).(map[string]any)
	assert.Equal(t, int64(3), tpl["count"])
	assert.Equal(t, []any{"a", "b"}, tpl["tags"])
	assert.Equal(t, map[string]any{"draft": true, "score": 0.5}, tpl["meta"])
	assert.Nil(t, tpl["none"])
}
