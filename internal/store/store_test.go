package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/quill/internal/filetree"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleTree(t *testing.T) *filetree.Tree {
	t.Helper()
	tree := filetree.New()
	require.NoError(t, tree.Insert("Quill.toml", []byte("[Quill]\nname = \"memo\"\n")))
	require.NoError(t, tree.Insert("assets/logo.bin", []byte{0, 255}))
	require.NoError(t, tree.Insert("empty.txt", []byte{}))
	require.NoError(t, tree.Mkdir("assets/fonts"))
	return tree
}

func TestPutAndTree(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	tree := sampleTree(t)

	require.NoError(t, s.Put(ctx, "memo", tree))
	back, err := s.Tree(ctx, "memo")
	require.NoError(t, err)
	assert.True(t, tree.Equal(back))
	assert.True(t, back.DirExists("assets/fonts"))
}

func TestPutReplaces(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "memo", sampleTree(t)))

	small := filetree.New()
	require.NoError(t, small.Insert("Quill.toml", []byte("x")))
	require.NoError(t, s.Put(ctx, "memo", small))

	back, err := s.Tree(ctx, "memo")
	require.NoError(t, err)
	assert.Equal(t, []string{"Quill.toml"}, back.Files())
}

func TestTreeNotFound(t *testing.T) {
	s := openTest(t)
	_, err := s.Tree(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListAndDelete(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "b", sampleTree(t)))
	require.NoError(t, s.Put(ctx, "a", filetree.New()))

	entries, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].Name)
	assert.Equal(t, 0, entries[0].Files)
	assert.Equal(t, "b", entries[1].Name)
	assert.Equal(t, 3, entries[1].Files)

	ok, err := s.Delete(ctx, "b")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.Delete(ctx, "b")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Tree(ctx, "b")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReopenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bundles.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, "memo", sampleTree(t)))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	back, err := s.Tree(ctx, "memo")
	require.NoError(t, err)
	assert.True(t, sampleTree(t).Equal(back))
}
