// Package value holds the canonical value every other package works with.
//
// A Value is a tagged variant over null, bool, integer, float, string,
// sequence and ordered mapping. Values enter through the From* converters
// (TOML manifests, YAML front matter, JSON schema files, Go-native host
// data) and leave through ToTemplate or MarshalJSON. No other package
// inspects source-format types.
package value

import (
	"fmt"
	"math"
)

type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindSequence
	KindMapping
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Value is immutable by convention: sequences and mappings returned from
// accessors must be cloned before they are modified.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	seq  []Value
	m    *Map
}

func Null() Value           { return Value{} }
func Bool(b bool) Value     { return Value{kind: KindBool, b: b} }
func Int(i int64) Value     { return Value{kind: KindInt, i: i} }
func String(s string) Value { return Value{kind: KindString, s: s} }
func Sequence(vs ...Value) Value {
	if vs == nil {
		vs = []Value{}
	}
	return Value{kind: KindSequence, seq: vs}
}

// Float stores f. Non-finite floats have no canonical form and are kept
// as their text.
func Float(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return String(formatNonFinite(f))
	}
	return Value{kind: KindFloat, f: f}
}

// Mapping wraps m. A nil map becomes an empty mapping.
func Mapping(m *Map) Value {
	if m == nil {
		m = NewMap()
	}
	return Value{kind: KindMapping, m: m}
}

func formatNonFinite(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	}
	return "-inf"
}

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) AsBool() (bool, bool)     { return v.b, v.kind == KindBool }
func (v Value) AsInt() (int64, bool)     { return v.i, v.kind == KindInt }
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

// AsFloat also accepts integers.
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return v.f, true
	case KindInt:
		return float64(v.i), true
	}
	return 0, false
}

func (v Value) AsSequence() ([]Value, bool) { return v.seq, v.kind == KindSequence }
func (v Value) AsMap() (*Map, bool)         { return v.m, v.kind == KindMapping }

// TypeName returns the JSON Schema name of v's type.
func (v Value) TypeName() string {
	switch v.kind {
	case KindBool:
		return "boolean"
	case KindInt:
		return "integer"
	case KindFloat:
		return "number"
	case KindString:
		return "string"
	case KindSequence:
		return "array"
	case KindMapping:
		return "object"
	}
	return "null"
}

// Clone returns a deep copy.
func (v Value) Clone() Value {
	switch v.kind {
	case KindSequence:
		out := make([]Value, len(v.seq))
		for i, e := range v.seq {
			out[i] = e.Clone()
		}
		return Value{kind: KindSequence, seq: out}
	case KindMapping:
		return Value{kind: KindMapping, m: v.m.Clone()}
	}
	return v
}

// Equal compares structurally. Mapping key order is ignored; integer and
// float are distinct even when numerically equal.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindInt:
		return a.i == b.i
	case KindFloat:
		return a.f == b.f
	case KindString:
		return a.s == b.s
	case KindSequence:
		if len(a.seq) != len(b.seq) {
			return false
		}
		for i := range a.seq {
			if !Equal(a.seq[i], b.seq[i]) {
				return false
			}
		}
		return true
	case KindMapping:
		return a.m.Equal(b.m)
	}
	return false
}

// String renders v as compact JSON.
func (v Value) String() string {
	b, err := v.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<%s: %v>", v.kind, err)
	}
	return string(b)
}

// Is reports whether v is an instance of the JSON Schema type name
// jsonType. An integer is also a "number".
func (v Value) Is(jsonType string) bool {
	if jsonType == "number" && v.kind == KindInt {
		return true
	}
	return v.TypeName() == jsonType
}
