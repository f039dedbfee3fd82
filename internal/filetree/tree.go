// Package filetree is the in-memory file store a Quill is assembled from.
//
// A Tree is a strict hierarchy of Nodes. Each directory resolves its
// children through a name map, so a lookup costs one map access per path
// segment. Paths are "/"-separated and relative to the bundle root; "" and
// "." both name the root.
package filetree

import (
	"bytes"
	"errors"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/agentic-research/quill/internal/quillerr"
)

var ErrNotFound = errors.New("node not found")

// Node is either a file or a directory.
// The Mode field explicitly declares which: fs.ModeDir for directories,
// 0 for regular files.
type Node struct {
	Mode     fs.FileMode
	Contents []byte           // files only
	Children map[string]*Node // directories only
}

func newDir() *Node {
	return &Node{Mode: fs.ModeDir, Children: make(map[string]*Node)}
}

func (n *Node) IsDir() bool { return n.Mode.IsDir() }

// Tree is a rooted FileTree. The zero value is not usable; call New.
type Tree struct {
	root *Node
}

// New returns an empty tree holding only the root directory.
func New() *Tree {
	return &Tree{root: newDir()}
}

// segments splits a relative path into its components. It rejects absolute
// paths and any ".." component instead of resolving them.
func segments(p string) ([]string, error) {
	if strings.HasPrefix(p, "/") || strings.Contains(p, `\`) {
		return nil, &quillerr.StructureError{Kind: quillerr.ErrInvalidPath, Path: p}
	}
	var out []string
	for _, s := range strings.Split(p, "/") {
		switch s {
		case "", ".":
			continue
		case "..":
			return nil, &quillerr.StructureError{Kind: quillerr.ErrInvalidPath, Path: p}
		}
		out = append(out, s)
	}
	return out, nil
}

// Lookup resolves p to its node.
func (t *Tree) Lookup(p string) (*Node, error) {
	segs, err := segments(p)
	if err != nil {
		return nil, err
	}
	n := t.root
	for _, s := range segs {
		if !n.IsDir() {
			return nil, ErrNotFound
		}
		child, ok := n.Children[s]
		if !ok {
			return nil, ErrNotFound
		}
		n = child
	}
	return n, nil
}

// FileExists reports whether p names a file.
func (t *Tree) FileExists(p string) bool {
	n, err := t.Lookup(p)
	return err == nil && !n.IsDir()
}

// GetFile returns the stored bytes of the file at p.
func (t *Tree) GetFile(p string) ([]byte, bool) {
	n, err := t.Lookup(p)
	if err != nil || n.IsDir() {
		return nil, false
	}
	return n.Contents, true
}

// DirExists reports whether p names a directory.
func (t *Tree) DirExists(p string) bool {
	n, err := t.Lookup(p)
	return err == nil && n.IsDir()
}

// ListFiles returns the sorted names of the files directly under p.
func (t *Tree) ListFiles(p string) []string {
	return t.list(p, false)
}

// ListSubdirectories returns the sorted names of the directories directly
// under p.
func (t *Tree) ListSubdirectories(p string) []string {
	return t.list(p, true)
}

func (t *Tree) list(p string, dirs bool) []string {
	n, err := t.Lookup(p)
	if err != nil || !n.IsDir() {
		return nil
	}
	var out []string
	for name, child := range n.Children {
		if child.IsDir() == dirs {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Insert stores contents at p, creating parent directories as needed.
// An existing file at p is replaced.
func (t *Tree) Insert(p string, contents []byte) error {
	segs, err := segments(p)
	if err != nil {
		return err
	}
	if len(segs) == 0 {
		return &quillerr.StructureError{Kind: quillerr.ErrInvalidPath, Path: p}
	}
	dir, err := t.mkdirAll(p, segs[:len(segs)-1])
	if err != nil {
		return err
	}
	name := segs[len(segs)-1]
	if existing, ok := dir.Children[name]; ok && existing.IsDir() {
		return &quillerr.StructureError{Kind: quillerr.ErrInvalidNode, Path: p, Err: errors.New("is a directory")}
	}
	dir.Children[name] = &Node{Contents: contents}
	return nil
}

// Mkdir creates the directory p and any missing parents.
func (t *Tree) Mkdir(p string) error {
	segs, err := segments(p)
	if err != nil {
		return err
	}
	_, err = t.mkdirAll(p, segs)
	return err
}

func (t *Tree) mkdirAll(p string, segs []string) (*Node, error) {
	n := t.root
	for _, s := range segs {
		child, ok := n.Children[s]
		if !ok {
			child = newDir()
			n.Children[s] = child
		} else if !child.IsDir() {
			return nil, &quillerr.StructureError{Kind: quillerr.ErrInvalidNode, Path: p, Err: errors.New("not a directory")}
		}
		n = child
	}
	return n, nil
}

// WalkFunc is called for every node below the root. Returning fs.SkipDir
// from a directory skips its children.
type WalkFunc func(p string, n *Node) error

// Walk visits every node depth-first in lexical order.
func (t *Tree) Walk(fn WalkFunc) error {
	return walk("", t.root, fn)
}

func walk(prefix string, dir *Node, fn WalkFunc) error {
	names := make([]string, 0, len(dir.Children))
	for name := range dir.Children {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		child := dir.Children[name]
		p := path.Join(prefix, name)
		if err := fn(p, child); err != nil {
			if errors.Is(err, fs.SkipDir) && child.IsDir() {
				continue
			}
			return err
		}
		if child.IsDir() {
			if err := walk(p, child, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// Files returns every file path in the tree, sorted.
func (t *Tree) Files() []string {
	var out []string
	_ = t.Walk(func(p string, n *Node) error {
		if !n.IsDir() {
			out = append(out, p)
		}
		return nil
	})
	return out
}

// Clone returns a deep copy; file contents are copied too.
func (t *Tree) Clone() *Tree {
	if t == nil {
		return nil
	}
	return &Tree{root: cloneNode(t.root)}
}

func cloneNode(n *Node) *Node {
	if !n.IsDir() {
		return &Node{Mode: n.Mode, Contents: bytes.Clone(n.Contents)}
	}
	c := &Node{Mode: n.Mode, Children: make(map[string]*Node, len(n.Children))}
	for name, child := range n.Children {
		c.Children[name] = cloneNode(child)
	}
	return c
}

// Equal reports whether both trees hold the same paths with the same bytes.
func (t *Tree) Equal(o *Tree) bool {
	if t == nil || o == nil {
		return t == o
	}
	return nodeEqual(t.root, o.root)
}

func nodeEqual(a, b *Node) bool {
	if a.IsDir() != b.IsDir() {
		return false
	}
	if !a.IsDir() {
		return bytes.Equal(a.Contents, b.Contents)
	}
	if len(a.Children) != len(b.Children) {
		return false
	}
	for name, ac := range a.Children {
		bc, ok := b.Children[name]
		if !ok || !nodeEqual(ac, bc) {
			return false
		}
	}
	return true
}
