package schema

import (
	"fmt"
	"strings"
	"time"

	"github.com/agentic-research/quill/internal/quillerr"
	"github.com/agentic-research/quill/internal/value"
)

// Validate checks fields against doc. It returns nil or a
// *quillerr.ValidationError listing every issue.
func Validate(doc value.Value, fields *value.Map) error {
	s, ok := doc.AsMap()
	if !ok {
		return nil
	}
	var issues []quillerr.Issue
	check(s, value.Mapping(fields), "", &issues)
	if len(issues) == 0 {
		return nil
	}
	return &quillerr.ValidationError{Issues: issues}
}

func join(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}

func check(s *value.Map, v value.Value, path string, issues *[]quillerr.Issue) {
	if types := typeList(s); len(types) > 0 && !matchesAny(v, types) {
		*issues = append(*issues, quillerr.Issue{
			Path:     path,
			Code:     quillerr.CodeTypeMismatch,
			Expected: strings.Join(types, " or "),
			Found:    v.TypeName(),
		})
		return
	}

	if raw, ok := s.Get("enum"); ok {
		if opts, ok := raw.AsSequence(); ok && !inEnum(v, opts) {
			*issues = append(*issues, quillerr.Issue{
				Path:     path,
				Code:     quillerr.CodeNotInEnum,
				Expected: raw.String(),
				Found:    v.String(),
			})
		}
	}

	if str, ok := v.AsString(); ok {
		if f := stringAt(s, "format"); f != "" && !formatOK(f, str) {
			*issues = append(*issues, quillerr.Issue{
				Path:     path,
				Code:     quillerr.CodeInvalidFormat,
				Expected: f,
				Found:    fmt.Sprintf("%q", str),
			})
		}
	}

	switch v.Kind() {
	case value.KindMapping:
		obj, _ := v.AsMap()
		checkObject(s, obj, path, issues)
	case value.KindSequence:
		raw, ok := s.Get("items")
		if !ok {
			return
		}
		items, ok := raw.AsMap()
		if !ok {
			return
		}
		seq, _ := v.AsSequence()
		for i, e := range seq {
			check(items, e, fmt.Sprintf("%s[%d]", path, i), issues)
		}
	}
}

func checkObject(s *value.Map, obj *value.Map, path string, issues *[]quillerr.Issue) {
	required := map[string]bool{}
	var requiredOrder []string
	if raw, ok := s.Get("required"); ok {
		seq, _ := raw.AsSequence()
		for _, r := range seq {
			if name, ok := r.AsString(); ok && !required[name] {
				required[name] = true
				requiredOrder = append(requiredOrder, name)
			}
		}
	}

	var props *value.Map
	if raw, ok := s.Get("properties"); ok {
		props, _ = raw.AsMap()
	}

	props.Range(func(name string, p value.Value) bool {
		ps, _ := p.AsMap()
		child, present := obj.Get(name)
		switch {
		case !present && required[name]:
			*issues = append(*issues, missing(join(path, name), ps))
		case present && ps != nil:
			check(ps, child, join(path, name), issues)
		}
		return true
	})
	for _, name := range requiredOrder {
		if !props.Has(name) && !obj.Has(name) {
			*issues = append(*issues, missing(join(path, name), nil))
		}
	}
}

func missing(path string, s *value.Map) quillerr.Issue {
	expected := strings.Join(typeList(s), " or ")
	if expected == "" {
		expected = "a value"
	}
	return quillerr.Issue{Path: path, Code: quillerr.CodeMissingRequired, Expected: expected, Found: "nothing"}
}

func typeList(s *value.Map) []string {
	raw, ok := s.Get("type")
	if !ok {
		return nil
	}
	if t, ok := raw.AsString(); ok {
		return []string{t}
	}
	seq, _ := raw.AsSequence()
	var out []string
	for _, e := range seq {
		if t, ok := e.AsString(); ok {
			out = append(out, t)
		}
	}
	return out
}

func matchesAny(v value.Value, types []string) bool {
	for _, t := range types {
		if v.Is(t) {
			return true
		}
	}
	return false
}

func inEnum(v value.Value, opts []value.Value) bool {
	for _, o := range opts {
		if value.Equal(v, o) {
			return true
		}
	}
	return false
}

func stringAt(s *value.Map, key string) string {
	raw, ok := s.Get(key)
	if !ok {
		return ""
	}
	str, _ := raw.AsString()
	return str
}

// formatOK enforces the date formats dates are normalized to on
// ingestion. Unknown formats are not enforced.
func formatOK(format, s string) bool {
	var err error
	switch format {
	case "date":
		_, err = time.Parse(time.DateOnly, s)
	case "date-time":
		_, err = time.Parse(time.RFC3339, s)
	}
	return err == nil
}
