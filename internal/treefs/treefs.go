// Package treefs exposes a FileTree as a read-only billy.Filesystem, so the
// go-billy helpers (Walk, ReadFile, Chroot) and any billy consumer can read
// an assembled bundle.
package treefs

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/helper/chroot"

	"github.com/agentic-research/quill/internal/filetree"
	"github.com/agentic-research/quill/internal/value"
)

// SchemaFile is the virtual file WithSchema adds at the root.
const SchemaFile = "_schema.json"

var errReadOnly = errors.New("read-only filesystem")

// FS adapts a filetree.Tree to billy.Filesystem.
type FS struct {
	tree       *filetree.Tree
	schemaJSON []byte
	modTime    time.Time
}

type Option func(*FS)

// WithSchema serves doc, indented, as /_schema.json.
func WithSchema(doc value.Value) Option {
	return func(fs *FS) {
		out, err := value.ToHost(doc)
		if err != nil {
			out = []byte(fmt.Sprintf("{\"error\": %q}\n", err.Error()))
		}
		fs.schemaJSON = out
	}
}

// New returns a filesystem view of tree. The tree must not change while
// the view is in use.
func New(tree *filetree.Tree, opts ...Option) *FS {
	fs := &FS{tree: tree, modTime: time.Now()}
	for _, opt := range opts {
		opt(fs)
	}
	return fs
}

// --- billy.Basic ---

func (fs *FS) Create(filename string) (billy.File, error) {
	return nil, errReadOnly
}

func (fs *FS) Open(filename string) (billy.File, error) {
	return fs.OpenFile(filename, os.O_RDONLY, 0)
}

func (fs *FS) OpenFile(filename string, flag int, perm os.FileMode) (billy.File, error) {
	filename = cleanPath(filename)
	if flag&(os.O_WRONLY|os.O_RDWR|os.O_CREATE|os.O_TRUNC|os.O_APPEND) != 0 {
		return nil, &os.PathError{Op: "open", Path: filename, Err: errReadOnly}
	}
	if fs.isSchema(filename) {
		return &bytesFile{name: filename, data: fs.schemaJSON}, nil
	}

	node, err := fs.tree.Lookup(treePath(filename))
	if err != nil {
		return nil, &os.PathError{Op: "open", Path: filename, Err: os.ErrNotExist}
	}
	if node.IsDir() {
		return nil, &os.PathError{Op: "open", Path: filename, Err: errors.New("is a directory")}
	}
	return &bytesFile{name: filename, data: node.Contents}, nil
}

func (fs *FS) Stat(filename string) (os.FileInfo, error) {
	return fs.Lstat(filename)
}

func (fs *FS) Rename(oldpath, newpath string) error { return errReadOnly }
func (fs *FS) Remove(filename string) error         { return errReadOnly }

func (fs *FS) Join(elem ...string) string {
	return filepath.Join(elem...)
}

// --- billy.TempFile ---

func (fs *FS) TempFile(dir, prefix string) (billy.File, error) {
	return nil, billy.ErrNotSupported
}

// --- billy.Dir ---

func (fs *FS) ReadDir(p string) ([]os.FileInfo, error) {
	p = cleanPath(p)
	node, err := fs.tree.Lookup(treePath(p))
	if err != nil {
		return nil, &os.PathError{Op: "readdir", Path: p, Err: os.ErrNotExist}
	}
	if !node.IsDir() {
		return nil, &os.PathError{Op: "readdir", Path: p, Err: errors.New("not a directory")}
	}

	infos := make([]os.FileInfo, 0, len(node.Children)+1)
	if p == "/" && fs.schemaJSON != nil {
		infos = append(infos, fs.schemaInfo())
	}
	for name, child := range node.Children {
		infos = append(infos, fs.nodeInfo(name, child))
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name() < infos[j].Name() })
	return infos, nil
}

func (fs *FS) MkdirAll(filename string, perm os.FileMode) error {
	return errReadOnly
}

// --- billy.Symlink ---

func (fs *FS) Lstat(filename string) (os.FileInfo, error) {
	filename = cleanPath(filename)
	if filename == "/" {
		return &staticFileInfo{name: "/", mode: os.ModeDir | 0o555, modTime: fs.modTime}, nil
	}
	if fs.isSchema(filename) {
		return fs.schemaInfo(), nil
	}
	node, err := fs.tree.Lookup(treePath(filename))
	if err != nil {
		return nil, &os.PathError{Op: "lstat", Path: filename, Err: os.ErrNotExist}
	}
	return fs.nodeInfo(path.Base(filename), node), nil
}

func (fs *FS) Symlink(target, link string) error {
	return billy.ErrNotSupported
}

func (fs *FS) Readlink(link string) (string, error) {
	return "", billy.ErrNotSupported
}

// --- billy.Chroot ---

func (fs *FS) Chroot(p string) (billy.Filesystem, error) {
	return chroot.New(fs, p), nil
}

func (fs *FS) Root() string {
	return "/"
}

// --- billy.Capable ---

func (fs *FS) Capabilities() billy.Capability {
	return billy.ReadCapability | billy.SeekCapability
}

// --- internals ---

func (fs *FS) isSchema(p string) bool {
	return fs.schemaJSON != nil && p == "/"+SchemaFile
}

func (fs *FS) schemaInfo() os.FileInfo {
	return &staticFileInfo{name: SchemaFile, size: int64(len(fs.schemaJSON)), mode: 0o444, modTime: fs.modTime}
}

func (fs *FS) nodeInfo(name string, n *filetree.Node) os.FileInfo {
	if n.IsDir() {
		return &staticFileInfo{name: name, mode: os.ModeDir | 0o555, modTime: fs.modTime}
	}
	return &staticFileInfo{name: name, size: int64(len(n.Contents)), mode: 0o444, modTime: fs.modTime}
}

// cleanPath normalizes a billy path to a clean absolute slash path.
func cleanPath(p string) string {
	return path.Clean("/" + filepath.ToSlash(p))
}

func treePath(clean string) string {
	return clean[1:]
}

// staticFileInfo implements os.FileInfo with static values.
type staticFileInfo struct {
	name    string
	size    int64
	mode    os.FileMode
	modTime time.Time
}

func (fi *staticFileInfo) Name() string       { return fi.name }
func (fi *staticFileInfo) Size() int64        { return fi.size }
func (fi *staticFileInfo) Mode() os.FileMode  { return fi.mode }
func (fi *staticFileInfo) ModTime() time.Time { return fi.modTime }
func (fi *staticFileInfo) IsDir() bool        { return fi.mode.IsDir() }
func (fi *staticFileInfo) Sys() any           { return nil }

var (
	_ billy.Filesystem = (*FS)(nil)
	_ billy.Capable    = (*FS)(nil)
	_ billy.File       = (*bytesFile)(nil)
)
