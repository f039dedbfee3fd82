package value

// Map is a string-keyed mapping that remembers insertion order.
// Methods on a nil *Map behave as on an empty map for reads.
type Map struct {
	keys []string
	vals map[string]Value
}

func NewMap() *Map {
	return &Map{vals: make(map[string]Value)}
}

func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

func (m *Map) Get(key string) (Value, bool) {
	if m == nil {
		return Value{}, false
	}
	v, ok := m.vals[key]
	return v, ok
}

func (m *Map) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// Set stores v under key. Replacing an existing key keeps its position.
func (m *Map) Set(key string, v Value) {
	if _, ok := m.vals[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.vals[key] = v
}

func (m *Map) Delete(key string) {
	if _, ok := m.vals[key]; !ok {
		return
	}
	delete(m.vals, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i:i], m.keys[i+1:]...)
			break
		}
	}
}

// Keys returns a copy of the keys in insertion order.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.keys...)
}

// Range calls fn for each entry in order until fn returns false.
func (m *Map) Range(fn func(key string, v Value) bool) {
	if m == nil {
		return
	}
	for _, k := range m.keys {
		if !fn(k, m.vals[k]) {
			return
		}
	}
}

// Clone returns a deep copy. Cloning nil yields an empty map.
func (m *Map) Clone() *Map {
	out := NewMap()
	m.Range(func(k string, v Value) bool {
		out.Set(k, v.Clone())
		return true
	})
	return out
}

// Equal ignores key order.
func (m *Map) Equal(o *Map) bool {
	if m.Len() != o.Len() {
		return false
	}
	eq := true
	m.Range(func(k string, v Value) bool {
		ov, ok := o.Get(k)
		eq = ok && Equal(v, ov)
		return eq
	})
	return eq
}
