package manifest

import (
	"github.com/agentic-research/quill/internal/quillerr"
	"github.com/agentic-research/quill/internal/value"
)

// FieldType is the declared type of a document field.
type FieldType string

const (
	TypeString   FieldType = "string"
	TypeNumber   FieldType = "number"
	TypeInteger  FieldType = "integer"
	TypeBoolean  FieldType = "boolean"
	TypeArray    FieldType = "array"
	TypeMapping  FieldType = "mapping"
	TypeDate     FieldType = "date"
	TypeDateTime FieldType = "datetime"
)

var fieldTypeAliases = map[string]FieldType{
	"string":   TypeString,
	"str":      TypeString,
	"number":   TypeNumber,
	"integer":  TypeInteger,
	"int":      TypeInteger,
	"boolean":  TypeBoolean,
	"bool":     TypeBoolean,
	"array":    TypeArray,
	"mapping":  TypeMapping,
	"dict":     TypeMapping,
	"object":   TypeMapping,
	"date":     TypeDate,
	"datetime": TypeDateTime,
}

// ParseFieldType resolves a manifest type tag, including its aliases.
func ParseFieldType(s string) (FieldType, bool) {
	t, ok := fieldTypeAliases[s]
	return t, ok
}

// JSONType is the JSON Schema "type" for t.
func (t FieldType) JSONType() string {
	switch t {
	case TypeMapping:
		return "object"
	case TypeDate, TypeDateTime:
		return "string"
	}
	return string(t)
}

// Format is the JSON Schema "format" for t, if any.
func (t FieldType) Format() string {
	switch t {
	case TypeDate:
		return "date"
	case TypeDateTime:
		return "date-time"
	}
	return ""
}

// FieldSchema describes one expected document field.
type FieldSchema struct {
	Name        string
	Title       string
	Description string
	Type        FieldType
	Default     *value.Value
	Examples    []value.Value
}

func parseField(name string, raw value.Value) (FieldSchema, error) {
	key := "fields." + name
	tbl, ok := raw.AsMap()
	if !ok {
		return FieldSchema{}, typeErr(key, "table", raw)
	}

	f := FieldSchema{Name: name, Type: TypeString}
	var err error
	if f.Description, err = optString(tbl, "description", key); err != nil {
		return FieldSchema{}, err
	}
	if f.Title, err = optString(tbl, "title", key); err != nil {
		return FieldSchema{}, err
	}

	tag, err := optString(tbl, "type", key)
	if err != nil {
		return FieldSchema{}, err
	}
	if tag != "" {
		t, ok := ParseFieldType(tag)
		if !ok {
			return FieldSchema{}, &quillerr.ConfigError{
				Kind:     quillerr.ErrInvalidFieldType,
				Key:      key + ".type",
				Expected: "one of string, number, integer, boolean, array, mapping, date, datetime",
				Found:    tag,
			}
		}
		f.Type = t
	}

	if def, ok := tbl.Get("default"); ok {
		if !def.Is(f.Type.JSONType()) {
			return FieldSchema{}, &quillerr.ConfigError{
				Kind:     quillerr.ErrDefaultTypeMismatch,
				Key:      key + ".default",
				Expected: string(f.Type),
				Found:    def.TypeName(),
			}
		}
		d := def.Clone()
		f.Default = &d
	}

	if ex, ok := tbl.Get("examples"); ok {
		seq, ok := ex.AsSequence()
		if !ok {
			return FieldSchema{}, typeErr(key+".examples", "array", ex)
		}
		for _, e := range seq {
			f.Examples = append(f.Examples, e.Clone())
		}
	}
	return f, nil
}
