package filetree

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/quill/internal/quillerr"
)

func decode(t *testing.T, s string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(s), &m))
	return m
}

func TestFromDescription(t *testing.T) {
	tree, err := FromDescription(decode(t, `{
		"Quill.toml": {"contents": "[Quill]\nname = \"demo\"\n"},
		"assets": {
			"logo.bin": {"contents": [0, 1, 255]},
			"fonts": {}
		}
	}`))
	require.NoError(t, err)

	assert.True(t, tree.FileExists("Quill.toml"))
	logo, ok := tree.GetFile("assets/logo.bin")
	require.True(t, ok)
	assert.Equal(t, []byte{0, 1, 255}, logo)
	assert.True(t, tree.DirExists("assets/fonts"))
	assert.Empty(t, tree.ListFiles("assets/fonts"))
}

func TestFromDescriptionDirectoryNamedContents(t *testing.T) {
	tree, err := FromDescription(decode(t, `{"contents": {"a.txt": {"contents": "a"}}}`))
	require.NoError(t, err)
	assert.True(t, tree.FileExists("contents/a.txt"))
}

func TestFromDescriptionRejects(t *testing.T) {
	cases := []struct {
		name string
		desc string
		kind error
		path string
	}{
		{"traversal", `{"../escape": {"contents": "x"}}`, quillerr.ErrInvalidPath, "../escape"},
		{"nested traversal", `{"a": {"..": {}}}`, quillerr.ErrInvalidPath, "a/.."},
		{"slash in name", `{"a/b": {"contents": "x"}}`, quillerr.ErrInvalidPath, "a/b"},
		{"both shapes", `{"f": {"contents": "x", "child": {}}}`, quillerr.ErrInvalidNode, "f"},
		{"neither shape", `{"dir": {"leaf": "raw string"}}`, quillerr.ErrInvalidNode, "dir/leaf"},
		{"bad byte", `{"f": {"contents": [1, 256]}}`, quillerr.ErrInvalidNode, "f"},
		{"fractional byte", `{"f": {"contents": [1.5]}}`, quillerr.ErrInvalidNode, "f"},
		{"null contents", `{"f": {"contents": null}}`, quillerr.ErrInvalidNode, "f"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tree, err := FromDescription(decode(t, tc.desc))
			require.Error(t, err)
			assert.Nil(t, tree)
			assert.ErrorIs(t, err, tc.kind)
			assert.ErrorIs(t, err, quillerr.ErrInvalidNode)
			var se *quillerr.StructureError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tc.path, se.Path)
		})
	}
}
