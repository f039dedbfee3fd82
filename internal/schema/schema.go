// Package schema builds, reads and enforces the JSON-Schema-shaped document
// a Quill carries for its fields.
//
// Only the subset bundles rely on is enforced: type, format (date and
// date-time), required, properties, items and enum. Every violation is
// collected; validation never stops at the first one.
package schema

import (
	"github.com/agentic-research/quill/internal/manifest"
	"github.com/agentic-research/quill/internal/value"
)

// Draft is the $schema URI stamped on synthesized documents.
const Draft = "https://json-schema.org/draft/2019-09/schema"

// Build synthesizes a schema from field schemas. Fields without a default
// are required; additional properties are allowed.
func Build(fields []manifest.FieldSchema) value.Value {
	props := value.NewMap()
	required := []value.Value{}
	for _, f := range fields {
		p := value.NewMap()
		p.Set("name", value.String(f.Name))
		if f.Title != "" {
			p.Set("title", value.String(f.Title))
		}
		p.Set("type", value.String(f.Type.JSONType()))
		if format := f.Type.Format(); format != "" {
			p.Set("format", value.String(format))
		}
		if f.Description != "" {
			p.Set("description", value.String(f.Description))
		}
		if f.Default != nil {
			p.Set("default", f.Default.Clone())
		} else {
			required = append(required, value.String(f.Name))
		}
		if len(f.Examples) > 0 {
			p.Set("examples", value.Sequence(f.Examples...).Clone())
		}
		props.Set(f.Name, value.Mapping(p))
	}

	doc := value.NewMap()
	doc.Set("$schema", value.String(Draft))
	doc.Set("type", value.String("object"))
	doc.Set("properties", value.Mapping(props))
	doc.Set("required", value.Sequence(required...))
	doc.Set("additionalProperties", value.Bool(true))
	return value.Mapping(doc)
}

// Empty is the schema of a bundle that declares no fields.
func Empty() value.Value {
	return Build(nil)
}

func properties(doc value.Value) *value.Map {
	m, ok := doc.AsMap()
	if !ok {
		return nil
	}
	raw, ok := m.Get("properties")
	if !ok {
		return nil
	}
	props, _ := raw.AsMap()
	return props
}

// Defaults extracts each property's default, in property order.
func Defaults(doc value.Value) *value.Map {
	out := value.NewMap()
	properties(doc).Range(func(name string, p value.Value) bool {
		if pm, ok := p.AsMap(); ok {
			if def, ok := pm.Get("default"); ok {
				out.Set(name, def.Clone())
			}
		}
		return true
	})
	return out
}

// Examples extracts each property's example values as a sequence, in
// property order. Properties without examples are omitted.
func Examples(doc value.Value) *value.Map {
	out := value.NewMap()
	properties(doc).Range(func(name string, p value.Value) bool {
		pm, ok := p.AsMap()
		if !ok {
			return true
		}
		if ex, ok := pm.Get("examples"); ok {
			if seq, ok := ex.AsSequence(); ok && len(seq) > 0 {
				out.Set(name, ex.Clone())
			}
		}
		return true
	})
	return out
}
