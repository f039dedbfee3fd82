// Package document parses input documents: Markdown with optional YAML
// front matter between "---" fences.
package document

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/agentic-research/quill/internal/value"
)

const (
	// BodyField holds the Markdown after the front matter.
	BodyField = "body"
	// QuillKey in the front matter selects the Quill to render with.
	QuillKey = "QUILL"
	// DefaultTag is the Quill tag of a document that names none.
	DefaultTag = "__default__"
)

var (
	ErrMalformedFrontMatter = errors.New("document: malformed front matter")
	ErrReservedField        = errors.New("document: reserved field")
)

// Parsed is a document split into fields and its Quill tag.
type Parsed struct {
	fields   *value.Map
	quillTag string
}

// Fields returns a copy of the document's fields, body included.
func (p *Parsed) Fields() *value.Map { return p.fields.Clone() }

// Body returns the Markdown body.
func (p *Parsed) Body() string {
	v, _ := p.fields.Get(BodyField)
	s, _ := v.AsString()
	return s
}

// QuillTag names the Quill the document asked for, or DefaultTag.
func (p *Parsed) QuillTag() string { return p.quillTag }

// New wraps fields that did not come from Markdown, e.g. a host's JSON.
func New(fields *value.Map, quillTag string) *Parsed {
	if quillTag == "" {
		quillTag = DefaultTag
	}
	return &Parsed{fields: fields.Clone(), quillTag: quillTag}
}

// Parse splits markdown into front matter fields and body.
func Parse(markdown string) (*Parsed, error) {
	content := bytes.ReplaceAll([]byte(markdown), []byte("\r\n"), []byte("\n"))
	fields := value.NewMap()
	tag := DefaultTag

	front, body, ok, err := split(content)
	if err != nil {
		return nil, err
	}
	if ok {
		v, err := value.ParseYAML(front)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedFrontMatter, err)
		}
		switch v.Kind() {
		case value.KindNull:
		case value.KindMapping:
			fields, _ = v.AsMap()
		default:
			return nil, fmt.Errorf("%w: expected a mapping, found %s", ErrMalformedFrontMatter, v.TypeName())
		}
	}

	if fields.Has(BodyField) {
		return nil, fmt.Errorf("%w: %q is set from the document body", ErrReservedField, BodyField)
	}
	if raw, ok := fields.Get(QuillKey); ok {
		s, ok := raw.AsString()
		if !ok || s == "" {
			return nil, fmt.Errorf("%w: %s must be a non-empty string, found %s", ErrMalformedFrontMatter, QuillKey, raw.TypeName())
		}
		tag = s
		fields.Delete(QuillKey)
	}
	fields.Set(BodyField, value.String(string(body)))
	return &Parsed{fields: fields, quillTag: tag}, nil
}

// split returns the front matter block and the remaining body. ok is false
// when the document has no opening fence.
func split(content []byte) (front, body []byte, ok bool, err error) {
	if !bytes.HasPrefix(content, []byte("---\n")) {
		return nil, content, false, nil
	}
	rest := content[4:]
	if bytes.HasPrefix(rest, []byte("---\n")) {
		return nil, rest[4:], true, nil
	}
	if i := bytes.Index(rest, []byte("\n---\n")); i >= 0 {
		return rest[:i], rest[i+5:], true, nil
	}
	if bytes.HasSuffix(rest, []byte("\n---")) {
		return rest[:len(rest)-4], nil, true, nil
	}
	return nil, nil, false, fmt.Errorf("%w: missing closing fence", ErrMalformedFrontMatter)
}
