// Package pipeline prepares a document for rendering against a Quill:
// copy the fields, fill in defaults, validate, render.
//
// The Quill is shared between compilations and is only read; every stage
// works on the document's private copy.
package pipeline

import (
	"github.com/agentic-research/quill/internal/glue"
	"github.com/agentic-research/quill/internal/quill"
	"github.com/agentic-research/quill/internal/value"
)

// ApplyDefaults returns a copy of fields with every missing default added.
// Supplied values are never replaced, so applying twice changes nothing.
func ApplyDefaults(fields, defaults *value.Map) *value.Map {
	out := fields.Clone()
	defaults.Range(func(name string, def value.Value) bool {
		if !out.Has(name) {
			out.Set(name, def.Clone())
		}
		return true
	})
	return out
}

// Run defaults and validates fields against q. The returned mapping is
// the one templates see. Validation failures are a
// *quillerr.ValidationError listing every issue.
func Run(q *quill.Quill, fields *value.Map) (*value.Map, error) {
	out := q.WithDefaults(fields)
	if err := q.Validate(out); err != nil {
		return nil, err
	}
	return out, nil
}

// Glue returns q's glue template, or Auto when q has none.
func Glue(q *quill.Quill) (glue.Renderer, error) {
	src, ok := q.Glue()
	if !ok {
		return glue.Auto{}, nil
	}
	return glue.Parse(q.GlueFile(), src)
}

// Render runs the pipeline and hands the result to r. Render failures are
// *quillerr.RenderError, never validation errors.
func Render(q *quill.Quill, fields *value.Map, r glue.Renderer) (string, error) {
	prepared, err := Run(q, fields)
	if err != nil {
		return "", err
	}
	return r.Render(prepared)
}
