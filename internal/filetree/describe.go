package filetree

import (
	"errors"
	"fmt"
	"math"
	"path"
	"sort"
	"strings"

	"github.com/agentic-research/quill/internal/quillerr"
)

// ContentsKey marks a file node in a nested description.
const ContentsKey = "contents"

// FromDescription builds a tree from a nested description as decoded from
// JSON. Every key of desc is a child of the root. A node is a file when it
// is an object carrying only "contents" (text, or a sequence of byte
// values), and a directory when it is any other object, including the empty
// one. Every node is validated before it is inserted.
func FromDescription(desc map[string]any) (*Tree, error) {
	t := New()
	if err := describeDir(t.root, "", desc); err != nil {
		return nil, err
	}
	return t, nil
}

func describeDir(dir *Node, prefix string, desc map[string]any) error {
	names := make([]string, 0, len(desc))
	for name := range desc {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		p := name
		if prefix != "" {
			p = prefix + "/" + name
		}
		if err := checkName(name, p); err != nil {
			return err
		}
		obj, ok := desc[name].(map[string]any)
		if !ok {
			return invalidNode(p, "node must be an object, found %s", describeKind(desc[name]))
		}

		raw, hasContents := obj[ContentsKey]
		if hasContents && isPayload(raw) {
			if len(obj) > 1 {
				return invalidNode(p, "node has both contents and children")
			}
			data, err := payload(raw)
			if err != nil {
				return invalidNode(p, "%v", err)
			}
			dir.Children[name] = &Node{Contents: data}
			continue
		}

		child := newDir()
		if err := describeDir(child, p, obj); err != nil {
			return err
		}
		dir.Children[name] = child
	}
	return nil
}

// checkName rejects names that would escape or split the hierarchy. The
// error is an invalid node that also matches ErrInvalidPath.
func checkName(name, p string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) || path.IsAbs(name) {
		return &quillerr.StructureError{Kind: quillerr.ErrInvalidNode, Path: p, Err: quillerr.ErrInvalidPath}
	}
	return nil
}

func invalidNode(p, format string, args ...any) error {
	return &quillerr.StructureError{
		Kind: quillerr.ErrInvalidNode,
		Path: p,
		Err:  fmt.Errorf(format, args...),
	}
}

// isPayload distinguishes a contents payload from a child directory that
// happens to be called "contents".
func isPayload(v any) bool {
	switch v.(type) {
	case map[string]any:
		return false
	}
	return true
}

func payload(v any) ([]byte, error) {
	switch x := v.(type) {
	case string:
		return []byte(x), nil
	case []byte:
		return append([]byte(nil), x...), nil
	case []any:
		out := make([]byte, len(x))
		for i, e := range x {
			b, err := byteValue(e)
			if err != nil {
				return nil, fmt.Errorf("contents[%d]: %w", i, err)
			}
			out[i] = b
		}
		return out, nil
	}
	return nil, fmt.Errorf("contents must be text or a byte sequence, found %s", describeKind(v))
}

var errByteRange = errors.New("byte value out of range 0-255")

func byteValue(v any) (byte, error) {
	var n int64
	switch x := v.(type) {
	case int:
		n = int64(x)
	case int64:
		n = x
	case float64:
		if x != math.Trunc(x) {
			return 0, errByteRange
		}
		n = int64(x)
	default:
		return 0, fmt.Errorf("expected byte value, found %s", describeKind(v))
	}
	if n < 0 || n > 255 {
		return 0, errByteRange
	}
	return byte(n), nil
}

func describeKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case int, int64, float64:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	return fmt.Sprintf("%T", v)
}
