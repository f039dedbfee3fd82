package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromJSONKeepsOrderAndKinds(t *testing.T) {
	v, err := FromJSON([]byte(`{"z": 1, "a": 1.5, "m": [true, null, "s"], "o": {"y": {}, "x": []}}`))
	require.NoError(t, err)

	m, ok := v.AsMap()
	require.True(t, ok)
	assert.Equal(t, []string{"z", "a", "m", "o"}, m.Keys())

	z, _ := m.Get("z")
	assert.Equal(t, KindInt, z.Kind())
	a, _ := m.Get("a")
	assert.Equal(t, KindFloat, a.Kind())

	o, _ := m.Get("o")
	om, _ := o.AsMap()
	assert.Equal(t, []string{"y", "x"}, om.Keys())
}

func TestFromJSONErrors(t *testing.T) {
	_, err := FromJSON([]byte(`{"a": `))
	assert.Error(t, err)
	_, err = FromJSON(nil)
	assert.Error(t, err)
}

func TestMarshalJSONPreservesOrder(t *testing.T) {
	m := NewMap()
	m.Set("title", String("A <b> & \"c\""))
	m.Set("n", Int(2))
	m.Set("f", Float(2))
	m.Set("list", Sequence(Null(), Bool(false)))

	got, err := Mapping(m).MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"title":"A <b> & \"c\"","n":2,"f":2.0,"list":[null,false]}`, string(got))

	back, err := FromJSON(got)
	require.NoError(t, err)
	assert.True(t, Equal(Mapping(m), back))
}

func TestToHostIndents(t *testing.T) {
	m := NewMap()
	m.Set("b", Int(1))
	m.Set("a", Sequence(String("x")))
	out, err := ToHost(Mapping(m))
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"b\": 1,\n  \"a\": [\n    \"x\"\n  ]\n}\n", string(out))
}
