// Package glue renders a Quill's glue: the template turning document fields
// into backend source text. Bundles without a glue file get Auto, which
// emits the fields as JSON.
package glue

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/ohler55/ojg/jp"

	"github.com/agentic-research/quill/internal/quillerr"
	"github.com/agentic-research/quill/internal/value"
)

// Renderer turns a validated field mapping into backend source.
type Renderer interface {
	Render(fields *value.Map) (string, error)
}

var funcs = template.FuncMap{
	"json": func(v any) string {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("<json error: %v>", err)
		}
		return string(b)
	},
	"first": func(v any) any {
		switch s := v.(type) {
		case []any:
			if len(s) > 0 {
				return s[0]
			}
		}
		return nil
	},
	"default": func(def, v any) any {
		if v == nil || v == "" {
			return def
		}
		return v
	},
	"join": func(sep string, v any) string {
		items, _ := v.([]any)
		parts := make([]string, len(items))
		for i, e := range items {
			parts[i] = fmt.Sprint(e)
		}
		return strings.Join(parts, sep)
	},
	// query evaluates a JSONPath expression against v. A single match is
	// returned as is.
	"query": func(expr string, v any) (any, error) {
		x, err := jp.ParseString(expr)
		if err != nil {
			return nil, err
		}
		res := x.Get(v)
		switch len(res) {
		case 0:
			return nil, nil
		case 1:
			return res[0], nil
		}
		return res, nil
	},
}

// Template is a parsed glue template.
type Template struct {
	name string
	tmpl *template.Template
}

// Parse compiles src. name identifies the template in errors, usually the
// glue file path.
func Parse(name, src string) (*Template, error) {
	t, err := template.New(name).Funcs(funcs).Parse(src)
	if err != nil {
		return nil, &quillerr.RenderError{Template: name, Err: err}
	}
	return &Template{name: name, tmpl: t}, nil
}

func (t *Template) Render(fields *value.Map) (string, error) {
	var buf bytes.Buffer
	if err := t.tmpl.Execute(&buf, value.MapToTemplate(fields)); err != nil {
		return "", &quillerr.RenderError{Template: t.name, Err: err}
	}
	return buf.String(), nil
}

// Auto renders fields as indented JSON in field order.
type Auto struct{}

func (Auto) Render(fields *value.Map) (string, error) {
	out, err := value.ToHost(value.Mapping(fields))
	if err != nil {
		return "", &quillerr.RenderError{Template: "auto", Err: err}
	}
	return string(out), nil
}
