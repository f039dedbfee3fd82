package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ohler55/ojg/oj"
)

// FromJSON decodes a JSON document, keeping object key order.
func FromJSON(data []byte) (Value, error) {
	b := &jsonBuilder{}
	if err := oj.Tokenize(data, b); err != nil {
		return Value{}, fmt.Errorf("parse json: %w", err)
	}
	if !b.set {
		return Value{}, fmt.Errorf("parse json: empty document")
	}
	return b.result, nil
}

type jsonFrame struct {
	m   *Map
	seq []Value
	key string
}

// jsonBuilder implements oj.TokenHandler.
type jsonBuilder struct {
	stack  []*jsonFrame
	result Value
	set    bool
}

func (b *jsonBuilder) add(v Value) {
	if len(b.stack) == 0 {
		b.result, b.set = v, true
		return
	}
	top := b.stack[len(b.stack)-1]
	if top.m != nil {
		top.m.Set(top.key, v)
		return
	}
	top.seq = append(top.seq, v)
}

func (b *jsonBuilder) pop() *jsonFrame {
	top := b.stack[len(b.stack)-1]
	b.stack = b.stack[:len(b.stack)-1]
	return top
}

func (b *jsonBuilder) Null()           { b.add(Null()) }
func (b *jsonBuilder) Bool(v bool)     { b.add(Bool(v)) }
func (b *jsonBuilder) Int(v int64)     { b.add(Int(v)) }
func (b *jsonBuilder) Float(v float64) { b.add(Float(v)) }
func (b *jsonBuilder) String(v string) { b.add(String(v)) }
func (b *jsonBuilder) Key(k string)    { b.stack[len(b.stack)-1].key = k }
func (b *jsonBuilder) ObjectStart()    { b.stack = append(b.stack, &jsonFrame{m: NewMap()}) }
func (b *jsonBuilder) ObjectEnd()      { b.add(Mapping(b.pop().m)) }
func (b *jsonBuilder) ArrayStart()     { b.stack = append(b.stack, &jsonFrame{seq: []Value{}}) }
func (b *jsonBuilder) ArrayEnd()       { b.add(Sequence(b.pop().seq...)) }

// Number receives numerals too large for int64 or float64.
func (b *jsonBuilder) Number(num string) {
	if f, err := strconv.ParseFloat(num, 64); err == nil {
		b.add(Float(f))
		return
	}
	b.add(String(num))
}

// MarshalJSON writes v as compact JSON with mapping order preserved.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := writeJSON(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalJSON lets Value sit inside JSON-decoded host structs.
func (v *Value) UnmarshalJSON(data []byte) error {
	out, err := FromJSON(data)
	if err != nil {
		return err
	}
	*v = out
	return nil
}

// ToHost converts v for a host binding: indented JSON, order preserved.
func ToHost(v Value) ([]byte, error) {
	raw, err := v.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return nil, err
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

func writeJSON(buf *bytes.Buffer, v Value) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.b))
	case KindInt:
		buf.WriteString(strconv.FormatInt(v.i, 10))
	case KindFloat:
		buf.WriteString(formatFloat(v.f))
	case KindString:
		writeString(buf, v.s)
	case KindSequence:
		buf.WriteByte('[')
		for i, e := range v.seq {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSON(buf, e); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindMapping:
		buf.WriteByte('{')
		var err error
		first := true
		v.m.Range(func(k string, e Value) bool {
			if !first {
				buf.WriteByte(',')
			}
			first = false
			writeString(buf, k)
			buf.WriteByte(':')
			err = writeJSON(buf, e)
			return err == nil
		})
		if err != nil {
			return err
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("marshal value: unknown kind %d", v.kind)
	}
	return nil
}

// formatFloat keeps a decimal point on integral floats so the value reads
// back as a float.
func formatFloat(f float64) string {
	abs := math.Abs(f)
	fmtByte := byte('f')
	if abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		fmtByte = 'e'
	}
	s := strconv.FormatFloat(f, fmtByte, -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

func writeString(buf *bytes.Buffer, s string) {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	// Encode appends a newline.
	buf.Truncate(buf.Len() - 1)
}
