package domain

import (
	"encoding/json"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Metadata is an insertion-ordered bag of scalar values attached to a chunk.
// Setting a key that already exists replaces the value in place, keeping the
// key's original position.
type Metadata struct {
	om *orderedmap.OrderedMap[string, any]
}

// NewMetadata returns an empty metadata bag.
func NewMetadata() *Metadata {
	return &Metadata{om: orderedmap.New[string, any]()}
}

// MetadataOf builds metadata from alternating key/value arguments.
// A trailing key without a value is ignored.
func MetadataOf(keyvals ...any) *Metadata {
	m := NewMetadata()
	for i := 0; i+1 < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			continue
		}
		m.Set(key, keyvals[i+1])
	}
	return m
}

// Set stores value under key and returns m for chaining.
func (m *Metadata) Set(key string, value any) *Metadata {
	m.om.Set(key, value)
	return m
}

// Get returns the value stored under key.
func (m *Metadata) Get(key string) (any, bool) {
	if m == nil {
		return nil, false
	}
	return m.om.Get(key)
}

// Int returns the value under key when it holds an integer.
// Float values that came back from JSON decoding are accepted when integral.
func (m *Metadata) Int(key string) (int, bool) {
	v, ok := m.Get(key)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n == float64(int(n)) {
			return int(n), true
		}
	}
	return 0, false
}

// Bool returns the value under key when it holds a bool.
func (m *Metadata) Bool(key string) (bool, bool) {
	v, ok := m.Get(key)
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// String returns the value under key when it holds a string.
func (m *Metadata) String(key string) (string, bool) {
	v, ok := m.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Len returns the number of keys.
func (m *Metadata) Len() int {
	if m == nil {
		return 0
	}
	return m.om.Len()
}

// Keys returns the keys in insertion order.
func (m *Metadata) Keys() []string {
	if m == nil {
		return nil
	}
	keys := make([]string, 0, m.om.Len())
	for pair := m.om.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Clone returns an independent copy. Cloning a nil bag yields an empty one.
func (m *Metadata) Clone() *Metadata {
	out := NewMetadata()
	if m == nil {
		return out
	}
	for pair := m.om.Oldest(); pair != nil; pair = pair.Next() {
		out.om.Set(pair.Key, pair.Value)
	}
	return out
}

// Merge copies every key of other into m, in other's order.
func (m *Metadata) Merge(other *Metadata) *Metadata {
	if other == nil {
		return m
	}
	for pair := other.om.Oldest(); pair != nil; pair = pair.Next() {
		m.om.Set(pair.Key, pair.Value)
	}
	return m
}

// Matches reports whether every filter key is present with a value whose
// string form equals the filter value.
func (m *Metadata) Matches(filters map[string]string) bool {
	for key, want := range filters {
		v, ok := m.Get(key)
		if !ok || fmt.Sprint(v) != want {
			return false
		}
	}
	return true
}

// ToMap flattens the bag into a plain map; ordering is lost.
func (m *Metadata) ToMap() map[string]any {
	out := make(map[string]any, m.Len())
	if m == nil {
		return out
	}
	for pair := m.om.Oldest(); pair != nil; pair = pair.Next() {
		out[pair.Key] = pair.Value
	}
	return out
}

// MarshalJSON encodes the bag as a JSON object in insertion order.
func (m *Metadata) MarshalJSON() ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m.om)
}

// UnmarshalJSON decodes a JSON object, keeping the document's key order.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	om := orderedmap.New[string, any]()
	if err := json.Unmarshal(data, om); err != nil {
		return err
	}
	m.om = om
	return nil
}
