package value

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/pelletier/go-toml/v2/unstable"
)

// FromTOML decodes a TOML document into a mapping. Tables keep their
// declaration order. Dates and datetimes become text: "2006-01-02" for
// local dates, RFC 3339 for offset datetimes, TOML's own text otherwise.
func FromTOML(data []byte) (Value, error) {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return Value{}, fmt.Errorf("parse toml: %w", err)
	}
	order := tomlKeyOrder(data)
	return fromTOMLAny(raw, nil, order), nil
}

// keyOrder maps a table path to its keys in first-seen order. Elements of
// an array share the path of the array.
type keyOrder map[string][]string

func (o keyOrder) record(parent []string, key string) {
	p := strings.Join(parent, "\x00")
	for _, k := range o[p] {
		if k == key {
			return
		}
	}
	o[p] = append(o[p], key)
}

func (o keyOrder) recordPath(segs []string) {
	for i := range segs {
		o.record(segs[:i], segs[i])
	}
}

func tomlKeyOrder(data []byte) keyOrder {
	order := keyOrder{}
	var p unstable.Parser
	p.Reset(data)
	var current []string
	for p.NextExpression() {
		expr := p.Expression()
		switch expr.Kind {
		case unstable.Table, unstable.ArrayTable:
			current = keySegments(expr)
			order.recordPath(current)
		case unstable.KeyValue:
			recordKeyValue(order, current, expr)
		}
	}
	// Unmarshal already succeeded, so a parser error here only costs order;
	// fromTOMLAny falls back to sorted keys.
	return order
}

func recordKeyValue(order keyOrder, base []string, kv *unstable.Node) {
	full := append(append([]string(nil), base...), keySegments(kv)...)
	order.recordPath(full)
	recordNested(order, full, kv.Value())
}

func recordNested(order keyOrder, at []string, n *unstable.Node) {
	switch n.Kind {
	case unstable.InlineTable:
		it := n.Children()
		for it.Next() {
			recordKeyValue(order, at, it.Node())
		}
	case unstable.Array:
		it := n.Children()
		for it.Next() {
			recordNested(order, at, it.Node())
		}
	}
}

func keySegments(n *unstable.Node) []string {
	var segs []string
	it := n.Key()
	for it.Next() {
		segs = append(segs, string(it.Node().Data))
	}
	return segs
}

func fromTOMLAny(v any, at []string, order keyOrder) Value {
	switch x := v.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(x)
	case int64:
		return Int(x)
	case float64:
		return Float(x)
	case string:
		return String(x)
	case time.Time:
		return String(x.Format(time.RFC3339Nano))
	case toml.LocalDate:
		return String(x.String())
	case toml.LocalDateTime:
		return String(x.String())
	case toml.LocalTime:
		return String(x.String())
	case []any:
		out := make([]Value, len(x))
		for i, e := range x {
			out[i] = fromTOMLAny(e, at, order)
		}
		return Sequence(out...)
	case []map[string]any:
		out := make([]Value, len(x))
		for i, e := range x {
			out[i] = fromTOMLAny(e, at, order)
		}
		return Sequence(out...)
	case map[string]any:
		m := NewMap()
		for _, k := range orderedKeys(x, order[strings.Join(at, "\x00")]) {
			m.Set(k, fromTOMLAny(x[k], append(at[:len(at):len(at)], k), order))
		}
		return Mapping(m)
	}
	return FromAny(v)
}

// orderedKeys returns the keys of m in recorded order, then any unrecorded
// keys sorted.
func orderedKeys(m map[string]any, recorded []string) []string {
	out := make([]string, 0, len(m))
	seen := make(map[string]bool, len(m))
	for _, k := range recorded {
		if _, ok := m[k]; ok && !seen[k] {
			out = append(out, k)
			seen[k] = true
		}
	}
	var rest []string
	for k := range m {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}
