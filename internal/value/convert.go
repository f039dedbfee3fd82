package value

import (
	"fmt"
	"reflect"
	"sort"
	"time"
)

// FromAny converts Go-native data handed in by an in-process host. Go maps
// carry no order, so their keys are sorted.
func FromAny(v any) Value {
	switch x := v.(type) {
	case nil:
		return Null()
	case Value:
		return x.Clone()
	case *Map:
		return Mapping(x.Clone())
	case bool:
		return Bool(x)
	case int:
		return Int(int64(x))
	case int8:
		return Int(int64(x))
	case int16:
		return Int(int64(x))
	case int32:
		return Int(int64(x))
	case int64:
		return Int(x)
	case uint8:
		return Int(int64(x))
	case uint16:
		return Int(int64(x))
	case uint32:
		return Int(int64(x))
	case float32:
		return Float(float64(x))
	case float64:
		return Float(x)
	case string:
		return String(x)
	case []byte:
		return String(string(x))
	case time.Time:
		return String(x.Format(time.RFC3339Nano))
	case []Value:
		return Sequence(x...).Clone()
	case []any:
		out := make([]Value, len(x))
		for i, e := range x {
			out[i] = FromAny(e)
		}
		return Sequence(out...)
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		m := NewMap()
		for _, k := range keys {
			m.Set(k, FromAny(x[k]))
		}
		return Mapping(m)
	}
	return fromReflect(reflect.ValueOf(v))
}

func fromReflect(rv reflect.Value) Value {
	switch rv.Kind() {
	case reflect.Uint, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > 1<<63-1 {
			return Float(float64(u))
		}
		return Int(int64(u))
	case reflect.Slice, reflect.Array:
		out := make([]Value, rv.Len())
		for i := range out {
			out[i] = FromAny(rv.Index(i).Interface())
		}
		return Sequence(out...)
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		keys := make([]string, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		m := NewMap()
		for _, k := range keys {
			m.Set(k, FromAny(rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key())).Interface()))
		}
		return Mapping(m)
	case reflect.Pointer:
		if rv.IsNil() {
			return Null()
		}
		return FromAny(rv.Elem().Interface())
	}
	return String(fmt.Sprint(rv.Interface()))
}

// ToTemplate converts v into the plain Go values text/template walks:
// map[string]any, []any, and scalars.
func ToTemplate(v Value) any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindSequence:
		out := make([]any, len(v.seq))
		for i, e := range v.seq {
			out[i] = ToTemplate(e)
		}
		return out
	case KindMapping:
		return MapToTemplate(v.m)
	}
	return nil
}

// MapToTemplate is ToTemplate for a top-level field mapping.
func MapToTemplate(m *Map) map[string]any {
	out := make(map[string]any, m.Len())
	m.Range(func(k string, e Value) bool {
		out[k] = ToTemplate(e)
		return true
	})
	return out
}
