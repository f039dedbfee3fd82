package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/quill/internal/manifest"
	"github.com/agentic-research/quill/internal/value"
)

func ptr(v value.Value) *value.Value { return &v }

func memoFields() []manifest.FieldSchema {
	return []manifest.FieldSchema{
		{Name: "title", Type: manifest.TypeString, Description: "Subject", Default: ptr(value.String("Untitled"))},
		{Name: "date", Type: manifest.TypeDate},
		{Name: "tags", Type: manifest.TypeArray, Examples: []value.Value{value.Sequence(value.String("a"))}},
	}
}

func TestBuildShape(t *testing.T) {
	doc := Build(memoFields())
	want := `{"$schema":"https://json-schema.org/draft/2019-09/schema","type":"object",` +
		`"properties":{` +
		`"title":{"name":"title","type":"string","description":"Subject","default":"Untitled"},` +
		`"date":{"name":"date","type":"string","format":"date"},` +
		`"tags":{"name":"tags","type":"array","examples":[["a"]]}},` +
		`"required":["date","tags"],"additionalProperties":true}`
	assert.Equal(t, want, doc.String())
}

func TestEmptySchemaRequiresNothing(t *testing.T) {
	assert.NoError(t, Validate(Empty(), value.NewMap()))
	assert.Equal(t, 0, Defaults(Empty()).Len())
}

func TestDefaultsAndExamples(t *testing.T) {
	doc := Build(memoFields())

	defs := Defaults(doc)
	assert.Equal(t, []string{"title"}, defs.Keys())
	title, _ := defs.Get("title")
	assert.True(t, value.Equal(value.String("Untitled"), title))

	ex := Examples(doc)
	assert.Equal(t, []string{"tags"}, ex.Keys())
}

func TestDefaultsFromExternalDocument(t *testing.T) {
	doc, err := value.FromJSON([]byte(`{
		"type": "object",
		"properties": {
			"b": {"type": "integer", "default": 2},
			"a": {"type": "string", "default": "x", "examples": ["y", "z"]},
			"c": {"type": "string"}
		}
	}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, Defaults(doc).Keys())
	assert.Equal(t, []string{"a"}, Examples(doc).Keys())
}
