package fields

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// NotFound is stored for scalar fields the extractor could not locate.
const NotFound = ""

// FieldMap is an insertion-ordered mapping from field name to value. Values are
// strings, ints, float64s, []string, or nested *FieldMap.
type FieldMap struct {
	keys   []string
	values map[string]any
}

func NewFieldMap() *FieldMap {
	return &FieldMap{values: map[string]any{}}
}

// Set stores v under k, keeping the original position when k already exists.
func (m *FieldMap) Set(k string, v any) *FieldMap {
	if _, ok := m.values[k]; !ok {
		m.keys = append(m.keys, k)
	}
	m.values[k] = v
	return m
}

func (m *FieldMap) Get(k string) (any, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.values[k]
	return v, ok
}

// String returns the value under k when it is a string, else NotFound.
func (m *FieldMap) String(k string) string {
	v, _ := m.Get(k)
	s, _ := v.(string)
	return s
}

// Map returns the nested map under k, or nil.
func (m *FieldMap) Map(k string) *FieldMap {
	v, _ := m.Get(k)
	fm, _ := v.(*FieldMap)
	return fm
}

func (m *FieldMap) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

func (m *FieldMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Clone is a deep copy of nested maps and string slices.
func (m *FieldMap) Clone() *FieldMap {
	out := NewFieldMap()
	for _, k := range m.Keys() {
		switch v := m.values[k].(type) {
		case *FieldMap:
			out.Set(k, v.Clone())
		case []string:
			out.Set(k, append([]string(nil), v...))
		default:
			out.Set(k, v)
		}
	}
	return out
}

// ToMap converts to plain Go maps, recursively, for callers that do not care about order.
func (m *FieldMap) ToMap() map[string]any {
	out := make(map[string]any, m.Len())
	for _, k := range m.Keys() {
		if nested, ok := m.values[k].(*FieldMap); ok {
			out[k] = nested.ToMap()
			continue
		}
		out[k] = m.values[k]
	}
	return out
}

// MarshalJSON writes keys in insertion order.
func (m *FieldMap) MarshalJSON() ([]byte, error) {
	if m == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
