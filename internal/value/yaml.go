package value

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const maxAliasDepth = 64

var (
	errAliasDepth    = errors.New("yaml aliases nested too deeply")
	errAliasExpanded = errors.New("yaml document contains excessive aliasing")
)

// ParseYAML decodes a YAML document. An empty or comment-only document is
// null.
func ParseYAML(data []byte) (Value, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Value{}, fmt.Errorf("parse yaml: %w", err)
	}
	return FromYAML(&doc)
}

// FromYAML converts a decoded YAML node. Keys are coerced to text, merge
// keys are applied, and timestamps become "2006-01-02" for plain dates and
// RFC 3339 otherwise. Alias expansion is bounded the way yaml.v3 bounds it
// when decoding into Go values.
func FromYAML(n *yaml.Node) (Value, error) {
	var d yamlDecoder
	return d.value(n)
}

// yamlDecoder counts visited nodes and the share of them reached through
// an alias.
type yamlDecoder struct {
	aliasDepth int
	nodes      int
	aliased    int
}

// allowedAliasRatio mirrors yaml.v3: small documents may be almost all
// aliases, large ones only a tenth.
func allowedAliasRatio(nodes int) float64 {
	const low, high = 400_000, 4_000_000
	switch {
	case nodes <= low:
		return 0.99
	case nodes >= high:
		return 0.10
	}
	return 0.99 - 0.89*(float64(nodes-low)/float64(high-low))
}

func (d *yamlDecoder) visit() error {
	d.nodes++
	if d.aliasDepth > 0 {
		d.aliased++
	}
	if d.aliased > 100 && d.nodes > 1000 && float64(d.aliased)/float64(d.nodes) > allowedAliasRatio(d.nodes) {
		return errAliasExpanded
	}
	return nil
}

func (d *yamlDecoder) value(n *yaml.Node) (Value, error) {
	if n == nil || n.Kind == 0 {
		return Null(), nil
	}
	if err := d.visit(); err != nil {
		return Value{}, err
	}
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return Null(), nil
		}
		return d.value(n.Content[0])
	case yaml.AliasNode:
		if d.aliasDepth >= maxAliasDepth {
			return Value{}, errAliasDepth
		}
		d.aliasDepth++
		v, err := d.value(n.Alias)
		d.aliasDepth--
		return v, err
	case yaml.ScalarNode:
		return yamlScalar(n)
	case yaml.SequenceNode:
		out := make([]Value, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := d.value(c)
			if err != nil {
				return Value{}, err
			}
			out = append(out, v)
		}
		return Sequence(out...), nil
	case yaml.MappingNode:
		m, err := d.mapping(n)
		if err != nil {
			return Value{}, err
		}
		return Mapping(m), nil
	}
	return Value{}, fmt.Errorf("yaml line %d: unsupported node kind %d", n.Line, n.Kind)
}

func (d *yamlDecoder) mapping(n *yaml.Node) (*Map, error) {
	m := NewMap()
	var merges []*yaml.Node
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if k.Kind == yaml.ScalarNode && k.ShortTag() == "!!merge" {
			merges = append(merges, v)
			continue
		}
		key, err := d.key(k)
		if err != nil {
			return nil, err
		}
		val, err := d.value(v)
		if err != nil {
			return nil, err
		}
		m.Set(key, val)
	}
	// Explicit keys win over merged ones.
	for _, src := range merges {
		if err := d.merge(m, src); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (d *yamlDecoder) merge(m *Map, src *yaml.Node) error {
	if src.Kind == yaml.SequenceNode {
		for _, c := range src.Content {
			if err := d.merge(m, c); err != nil {
				return err
			}
		}
		return nil
	}
	v, err := d.value(src)
	if err != nil {
		return err
	}
	sm, ok := v.AsMap()
	if !ok {
		return fmt.Errorf("yaml line %d: merge value must be a mapping", src.Line)
	}
	sm.Range(func(k string, e Value) bool {
		if !m.Has(k) {
			m.Set(k, e)
		}
		return true
	})
	return nil
}

// key renders a key node as text.
func (d *yamlDecoder) key(k *yaml.Node) (string, error) {
	v, err := d.value(k)
	if err != nil {
		return "", err
	}
	switch v.Kind() {
	case KindString:
		s, _ := v.AsString()
		return s, nil
	case KindNull:
		return "null", nil
	}
	return v.String(), nil
}

func yamlScalar(n *yaml.Node) (Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return Null(), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return Value{}, fmt.Errorf("yaml line %d: %w", n.Line, err)
		}
		return Bool(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err == nil {
			return Int(i), nil
		}
		if f, err := strconv.ParseFloat(n.Value, 64); err == nil {
			return Float(f), nil
		}
		return String(n.Value), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return String(n.Value), nil
		}
		return Float(f), nil
	case "!!timestamp":
		var t time.Time
		if err := n.Decode(&t); err != nil {
			return String(n.Value), nil
		}
		return String(formatTimestamp(n.Value, t)), nil
	}
	return String(n.Value), nil
}

func formatTimestamp(raw string, t time.Time) string {
	if _, err := time.Parse(time.DateOnly, raw); err == nil {
		return t.Format(time.DateOnly)
	}
	return t.Format(time.RFC3339Nano)
}
