package quill

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/quill/internal/backend"
	"github.com/agentic-research/quill/internal/backend/text"
	"github.com/agentic-research/quill/internal/filetree"
	"github.com/agentic-research/quill/internal/quillerr"
	"github.com/agentic-research/quill/internal/value"
)

const memoManifest = `[Quill]
name = "memo"
backend = "text"
description = "Plain memo"
glue_file = "glue.txt"
example_file = "example.md"

[fields.title]
type = "string"
default = "Untitled"
examples = ["Quarterly report"]

[fields.date]
type = "date"
`

var memoFiles = map[string]string{
	"Quill.toml":        memoManifest,
	"glue.txt":          "{{.title}} ({{.date}})\n",
	"example.md":        "---\ndate: 2024-01-01\n---\nBody\n",
	"assets/logo.bin":   "\x00\x01\xff",
	"assets/fonts/a.tx": "font",
}

func writeDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for p, body := range files {
		full := filepath.Join(dir, filepath.FromSlash(p))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(body), 0o644))
	}
	return dir
}

func describe(files map[string]string) []byte {
	root := map[string]any{}
	for p, body := range files {
		dir := root
		parts := strings.Split(p, "/")
		for _, d := range parts[:len(parts)-1] {
			next, ok := dir[d].(map[string]any)
			if !ok {
				next = map[string]any{}
				dir[d] = next
			}
			dir = next
		}
		bytes := make([]any, len(body))
		for i := 0; i < len(body); i++ {
			bytes[i] = int(body[i])
		}
		dir[parts[len(parts)-1]] = map[string]any{"contents": bytes}
	}
	data, _ := json.Marshal(map[string]any{"files": root, "metadata": map[string]any{"name": "ignored"}})
	return data
}

func assertSameState(t *testing.T, a, b *Quill) {
	t.Helper()
	assert.Equal(t, a.Name(), b.Name())
	assert.Equal(t, a.Backend(), b.Backend())
	assert.True(t, value.Equal(a.Schema(), b.Schema()), "schema")
	assert.True(t, a.Defaults().Equal(b.Defaults()), "defaults")
	assert.True(t, a.Examples().Equal(b.Examples()), "examples")
	assert.True(t, a.Metadata().Equal(b.Metadata()), "metadata")
	assert.True(t, a.Files().Equal(b.Files()), "files")
	assert.Equal(t, a.Files().Files(), b.Files().Files())
	ag, _ := a.Glue()
	bg, _ := b.Glue()
	assert.Equal(t, ag, bg)
}

func TestLoadPathsConverge(t *testing.T) {
	fromDir, err := FromDir(writeDir(t, memoFiles))
	require.NoError(t, err)

	fromJSON, err := FromJSON(describe(memoFiles))
	require.NoError(t, err)

	mem := memfs.New()
	for p, body := range memoFiles {
		require.NoError(t, util.WriteFile(mem, p, []byte(body), 0o644))
	}
	fromMem, err := FromFilesystem(mem, "whatever")
	require.NoError(t, err)

	assertSameState(t, fromDir, fromJSON)
	assertSameState(t, fromDir, fromMem)

	assert.Equal(t, "memo", fromDir.Name())
	logo, ok := fromJSON.Files().GetFile("assets/logo.bin")
	require.True(t, ok)
	assert.Equal(t, []byte{0, 1, 255}, logo)
}

func TestAssembledState(t *testing.T) {
	q, err := FromDir(writeDir(t, memoFiles))
	require.NoError(t, err)

	assert.Equal(t, "text", q.Backend())
	assert.Equal(t, "Plain memo", q.Description())
	assert.Equal(t, "glue.txt", q.GlueFile())
	glue, ok := q.Glue()
	require.True(t, ok)
	assert.Equal(t, "{{.title}} ({{.date}})\n", glue)
	_, ok = q.Example()
	assert.True(t, ok)

	assert.Equal(t, []string{"title"}, q.Defaults().Keys())
	assert.Equal(t, []string{"title"}, q.Examples().Keys())
	assert.Empty(t, q.Warnings())

	// Accessors return copies.
	q.Defaults().Set("title", value.String("changed"))
	title, _ := q.Defaults().Get("title")
	assert.True(t, value.Equal(value.String("Untitled"), title))
}

func TestQuillOwnsItsFiles(t *testing.T) {
	tree := filetree.New()
	require.NoError(t, tree.Insert("Quill.toml", []byte("[Quill]\nname = \"x\"\nbackend = \"text\"\ndescription = \"d\"\n")))
	q, err := New(tree, "")
	require.NoError(t, err)

	require.NoError(t, tree.Insert("injected.txt", []byte("x")))
	require.NoError(t, q.Files().Insert("Quill.toml", []byte("garbage")))

	assert.Equal(t, []string{"Quill.toml"}, q.Files().Files())
	data, ok := q.Files().GetFile("Quill.toml")
	require.True(t, ok)
	assert.Contains(t, string(data), `name = "x"`)
}

func TestDefaultNameNeverSubstituted(t *testing.T) {
	files := map[string]string{"Quill.toml": "[Quill]\nbackend = \"text\"\ndescription = \"d\"\n"}
	_, err := FromDir(writeDir(t, files))
	assert.ErrorIs(t, err, quillerr.ErrMissingName)

	_, err = FromJSON(describe(files))
	assert.ErrorIs(t, err, quillerr.ErrMissingName)
}

func TestMissingManifest(t *testing.T) {
	_, err := FromDir(writeDir(t, map[string]string{"glue.txt": "x"}))
	assert.ErrorIs(t, err, quillerr.ErrMissingManifest)
}

func TestMissingReferencedFileNamesRole(t *testing.T) {
	files := map[string]string{"Quill.toml": memoManifest, "glue.txt": "x"}
	_, err := FromJSON(describe(files))
	require.ErrorIs(t, err, quillerr.ErrMissingFile)
	var se *quillerr.StructureError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "example", se.Role)
	assert.Equal(t, "example.md", se.Path)
}

func TestGlueRulesWithKnownBackend(t *testing.T) {
	reg := backend.NewRegistry()
	require.NoError(t, reg.Register(text.New()))

	files := map[string]string{
		"Quill.toml": "[Quill]\nname = \"x\"\nbackend = \"text\"\ndescription = \"d\"\nglue_file = \"glue.xyz\"\n",
		"glue.xyz":   "x",
	}
	_, err := FromJSON(describe(files), WithBackends(reg.Capabilities))
	assert.ErrorIs(t, err, quillerr.ErrUnsupportedGlueExtension)

	// Without capabilities the bundle still assembles.
	q, err := FromJSON(describe(files))
	require.NoError(t, err)
	assert.Equal(t, "glue.xyz", q.GlueFile())
}

func TestExternalSchemaOverridesFields(t *testing.T) {
	files := map[string]string{
		"Quill.toml":  "[Quill]\nname = \"x\"\nbackend = \"text\"\ndescription = \"d\"\njson_schema_file = \"schema.json\"\n\n[fields.ignored]\ntype = \"string\"\ndefault = \"no\"\n",
		"schema.json": `{"type": "object", "properties": {"b": {"type": "string", "default": "B"}, "a": {"type": "integer", "default": 1, "examples": [1, 2]}}}`,
	}
	q, err := FromJSON(describe(files))
	require.NoError(t, err)

	assert.Equal(t, []string{"b", "a"}, q.Defaults().Keys())
	assert.Equal(t, []string{"a"}, q.Examples().Keys())
	require.Len(t, q.Warnings(), 1)
	assert.Equal(t, quillerr.WarnSchemaOverridden, q.Warnings()[0].Code)
}

func TestExternalSchemaMustBeObject(t *testing.T) {
	files := map[string]string{
		"Quill.toml":  "[Quill]\nname = \"x\"\nbackend = \"text\"\ndescription = \"d\"\njson_schema_file = \"schema.json\"\n",
		"schema.json": `[1, 2]`,
	}
	_, err := FromJSON(describe(files))
	assert.ErrorIs(t, err, quillerr.ErrInvalidManifest)
}

func TestInvalidGlueEncoding(t *testing.T) {
	files := map[string]string{
		"Quill.toml": "[Quill]\nname = \"x\"\nbackend = \"text\"\ndescription = \"d\"\nglue_file = \"glue.txt\"\n",
		"glue.txt":   "\xff\xfe",
	}
	_, err := FromJSON(describe(files))
	assert.ErrorIs(t, err, quillerr.ErrInvalidEncoding)
}

func TestFromJSONRejects(t *testing.T) {
	_, err := FromJSON([]byte(`{"metadata": {}}`))
	assert.ErrorIs(t, err, quillerr.ErrInvalidNode)

	_, err = FromJSON([]byte(`{"files": {"../escape": {"contents": "x"}}}`))
	assert.ErrorIs(t, err, quillerr.ErrInvalidPath)

	_, err = FromJSON([]byte(`{"files": {"Quill.toml": {"contents": {"a": 1}, "b": {}}}}`))
	assert.ErrorIs(t, err, quillerr.ErrInvalidNode)

	_, err = FromJSON([]byte(`not json`))
	assert.ErrorIs(t, err, quillerr.ErrInvalidNode)
}

func TestFromDirMissing(t *testing.T) {
	_, err := FromDir(filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, quillerr.ErrIO)
}
