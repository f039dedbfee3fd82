package quill

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/agentic-research/quill/api"
	"github.com/agentic-research/quill/internal/filetree"
	"github.com/agentic-research/quill/internal/quillerr"
)

// FromDir assembles the bundle rooted at dir on the local disk.
func FromDir(dir string, opts ...Option) (*Quill, error) {
	return FromFilesystem(osfs.New(dir), filepath.Base(filepath.Clean(dir)), opts...)
}

// FromFilesystem assembles the bundle rooted at the top of fsys.
func FromFilesystem(fsys billy.Filesystem, defaultName string, opts ...Option) (*Quill, error) {
	tree, err := ReadTree(fsys)
	if err != nil {
		return nil, err
	}
	return New(tree, defaultName, opts...)
}

// ReadTree copies fsys into a FileTree byte for byte, skipping paths
// matched by .quillignore (or the default ignore list when the bundle has
// none). Symlinked directories are not followed.
func ReadTree(fsys billy.Filesystem) (*filetree.Tree, error) {
	ignore, err := loadIgnore(fsys)
	if err != nil {
		return nil, err
	}

	tree := filetree.New()
	err = util.Walk(fsys, "/", func(p string, info os.FileInfo, err error) error {
		rel := strings.TrimPrefix(filepath.ToSlash(p), "/")
		if err != nil {
			return &quillerr.StructureError{Kind: quillerr.ErrIO, Path: rel, Err: err}
		}
		if rel == "" || rel == "." {
			return nil
		}
		if ignore.ignored(rel) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if info.Mode()&os.ModeSymlink != 0 {
			target, err := fsys.Stat(p)
			if err != nil {
				return &quillerr.StructureError{Kind: quillerr.ErrIO, Path: rel, Err: err}
			}
			if target.IsDir() {
				return nil
			}
		} else if info.IsDir() {
			return tree.Mkdir(rel)
		}

		data, err := util.ReadFile(fsys, p)
		if err != nil {
			return &quillerr.StructureError{Kind: quillerr.ErrIO, Path: rel, Err: err}
		}
		return tree.Insert(rel, data)
	})
	if err != nil {
		return nil, err
	}
	return tree, nil
}

// FromJSON assembles a bundle from its JSON wire description.
func FromJSON(data []byte, opts ...Option) (*Quill, error) {
	var b api.Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, &quillerr.StructureError{Kind: quillerr.ErrInvalidNode, Err: err}
	}
	return FromDescription(b, opts...)
}

// FromDescription assembles a bundle from a decoded wire description.
func FromDescription(b api.Bundle, opts ...Option) (*Quill, error) {
	if b.Files == nil {
		return nil, &quillerr.StructureError{
			Kind: quillerr.ErrInvalidNode,
			Path: "files",
			Err:  errors.New("missing files section"),
		}
	}
	tree, err := filetree.FromDescription(b.Files)
	if err != nil {
		return nil, err
	}
	var name string
	if b.Metadata != nil {
		name = b.Metadata.Name
	}
	return New(tree, name, opts...)
}
