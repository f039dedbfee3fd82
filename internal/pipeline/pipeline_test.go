package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/quill/internal/filetree"
	"github.com/agentic-research/quill/internal/quill"
	"github.com/agentic-research/quill/internal/quillerr"
	"github.com/agentic-research/quill/internal/value"
)

const manifest = `[Quill]
name = "memo"
backend = "text"
description = "Memo"
%s
[fields.title]
type = "string"
default = "Untitled"

[fields.date]
type = "date"
`

func newQuill(t *testing.T, glueLine string, files map[string]string) *quill.Quill {
	t.Helper()
	tree := filetree.New()
	require.NoError(t, tree.Insert("Quill.toml", []byte(strings.Replace(manifest, "%s", glueLine, 1))))
	for p, body := range files {
		require.NoError(t, tree.Insert(p, []byte(body)))
	}
	q, err := quill.New(tree, "")
	require.NoError(t, err)
	return q
}

func mapOf(t *testing.T, src string) *value.Map {
	t.Helper()
	v, err := value.FromJSON([]byte(src))
	require.NoError(t, err)
	m, ok := v.AsMap()
	require.True(t, ok)
	return m
}

func TestRunAppliesDefaults(t *testing.T) {
	q := newQuill(t, "", nil)

	out, err := Run(q, mapOf(t, `{"date": "2024-01-01"}`))
	require.NoError(t, err)
	assert.True(t, out.Equal(mapOf(t, `{"title": "Untitled", "date": "2024-01-01"}`)))
}

func TestRunReportsExactlyMissingRequired(t *testing.T) {
	q := newQuill(t, "", nil)

	_, err := Run(q, value.NewMap())
	var ve *quillerr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []string{"date"}, ve.Missing())
	assert.Len(t, ve.Issues, 1)
}

func TestExplicitValuesWin(t *testing.T) {
	q := newQuill(t, "", nil)
	out, err := Run(q, mapOf(t, `{"title": "Mine", "date": "2024-01-01"}`))
	require.NoError(t, err)
	title, _ := out.Get("title")
	assert.True(t, value.Equal(value.String("Mine"), title))
}

func TestApplyDefaultsIdempotent(t *testing.T) {
	defaults := mapOf(t, `{"title": "Untitled", "tags": []}`)
	once := ApplyDefaults(mapOf(t, `{"date": "2024-01-01"}`), defaults)
	twice := ApplyDefaults(once, defaults)
	assert.True(t, once.Equal(twice))
	assert.Equal(t, once.Keys(), twice.Keys())
}

func TestRunDoesNotTouchInputOrQuill(t *testing.T) {
	q := newQuill(t, "", nil)
	in := mapOf(t, `{"date": "2024-01-01"}`)

	out, err := Run(q, in)
	require.NoError(t, err)
	out.Set("title", value.String("mutated"))

	assert.False(t, in.Has("title"))
	def, _ := q.Defaults().Get("title")
	assert.True(t, value.Equal(value.String("Untitled"), def))
}

func TestRenderWithGlueTemplate(t *testing.T) {
	q := newQuill(t, `glue_file = "glue.txt"`, map[string]string{"glue.txt": "{{.title}} / {{.date}}"})
	r, err := Glue(q)
	require.NoError(t, err)

	out, err := Render(q, mapOf(t, `{"date": "2024-01-01"}`), r)
	require.NoError(t, err)
	assert.Equal(t, "Untitled / 2024-01-01", out)
}

func TestRenderAutoGlue(t *testing.T) {
	q := newQuill(t, "", nil)
	r, err := Glue(q)
	require.NoError(t, err)

	out, err := Render(q, mapOf(t, `{"date": "2024-01-01"}`), r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"title": "Untitled", "date": "2024-01-01"}`, out)
}

func TestValidationStopsBeforeRender(t *testing.T) {
	q := newQuill(t, `glue_file = "glue.txt"`, map[string]string{"glue.txt": "{{.title}}"})
	r, err := Glue(q)
	require.NoError(t, err)

	_, err = Render(q, value.NewMap(), r)
	assert.ErrorIs(t, err, quillerr.ErrValidation)
	assert.NotErrorIs(t, err, quillerr.ErrRender)
}

func TestRenderFailureIsDistinct(t *testing.T) {
	q := newQuill(t, `glue_file = "glue.txt"`, map[string]string{"glue.txt": `{{index .title 99}}`})
	r, err := Glue(q)
	require.NoError(t, err)

	_, err = Render(q, mapOf(t, `{"date": "2024-01-01"}`), r)
	assert.ErrorIs(t, err, quillerr.ErrRender)
	assert.NotErrorIs(t, err, quillerr.ErrValidation)
}

func TestRunLeavesCachedDefaultsIntact(t *testing.T) {
	tree := filetree.New()
	require.NoError(t, tree.Insert("Quill.toml", []byte(`[Quill]
name = "memo"
backend = "text"
description = "Memo"

[fields.meta]
type = "mapping"
default = { tone = "formal" }
`)))
	q, err := quill.New(tree, "")
	require.NoError(t, err)

	in := mapOf(t, `{}`)
	out, err := Run(q, in)
	require.NoError(t, err)
	assert.Equal(t, 0, in.Len())

	meta, _ := out.Get("meta")
	m, ok := meta.AsMap()
	require.True(t, ok)
	m.Set("tone", value.String("casual"))

	again, err := Run(q, mapOf(t, `{}`))
	require.NoError(t, err)
	assert.True(t, again.Equal(mapOf(t, `{"meta": {"tone": "formal"}}`)))
	def, _ := q.Defaults().Get("meta")
	assert.True(t, value.Equal(def, value.Mapping(mapOf(t, `{"tone": "formal"}`))))
}
