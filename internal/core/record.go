package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// IDField is the conventional identity field of a record.
const IDField = "id"

// Pair is a single field of a Record.
type Pair struct {
	Key   string
	Value any
}

// Record is an open-ended, ordered mapping from field name to value.
//
// Key order is part of the contract: columns, editor fields and preview
// fields follow the order in which keys were first set. The zero value is an
// empty record ready to use. Records share storage when copied by value; use
// Clone before mutating a record owned by someone else.
type Record struct {
	keys   []string
	values map[string]any
}

// NewRecord builds a record from pairs, preserving their order.
// A repeated key keeps its first position and its last value.
func NewRecord(pairs ...Pair) Record {
	var r Record
	for _, p := range pairs {
		r.Set(p.Key, p.Value)
	}
	return r
}

// RecordFromMap builds a record from m. Keys listed in order come first, in
// that order; remaining keys of m follow alphabetically.
func RecordFromMap(m map[string]any, order []string) Record {
	var r Record
	for _, k := range order {
		if v, ok := m[k]; ok {
			r.Set(k, v)
		}
	}
	rest := make([]string, 0, len(m))
	for k := range m {
		if !r.Has(k) {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		r.Set(k, m[k])
	}
	return r
}

// Set assigns value to key, appending key if it is new.
func (r *Record) Set(key string, value any) {
	if r.values == nil {
		r.values = make(map[string]any)
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// Delete removes key from the record.
func (r *Record) Delete(key string) {
	if _, ok := r.values[key]; !ok {
		return
	}
	delete(r.values, key)
	for i, k := range r.keys {
		if k == key {
			r.keys = append(r.keys[:i:i], r.keys[i+1:]...)
			break
		}
	}
}

// Get returns the value for key and whether it is present.
func (r Record) Get(key string) (any, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Value returns the value for key, or nil when absent.
func (r Record) Value(key string) any {
	return r.values[key]
}

// Has reports whether key is present.
func (r Record) Has(key string) bool {
	_, ok := r.values[key]
	return ok
}

// Keys returns the record's keys in order.
func (r Record) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len returns the number of fields.
func (r Record) Len() int {
	return len(r.keys)
}

// Pairs returns the fields in order.
func (r Record) Pairs() []Pair {
	out := make([]Pair, len(r.keys))
	for i, k := range r.keys {
		out[i] = Pair{Key: k, Value: r.values[k]}
	}
	return out
}

// Map returns an unordered copy of the fields.
func (r Record) Map() map[string]any {
	out := make(map[string]any, len(r.keys))
	for _, k := range r.keys {
		out[k] = r.values[k]
	}
	return out
}

// Clone returns an independent shallow copy.
func (r Record) Clone() Record {
	out := Record{
		keys:   make([]string, len(r.keys)),
		values: make(map[string]any, len(r.keys)),
	}
	copy(out.keys, r.keys)
	for k, v := range r.values {
		out.values[k] = v
	}
	return out
}

// Merge returns a new record holding r's fields overlaid with other's.
// Fields of other win; keys new to r are appended in other's order.
func (r Record) Merge(other Record) Record {
	out := r.Clone()
	for _, k := range other.keys {
		out.Set(k, other.values[k])
	}
	return out
}

// ID returns the record's identity value.
func (r Record) ID() (any, bool) {
	v, ok := r.values[IDField]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// IdentityKey returns the string form of the record's identity, used to
// compare rows regardless of whether the id arrived as a number or a string.
func (r Record) IdentityKey() string {
	v, ok := r.ID()
	if !ok {
		return ""
	}
	return IdentityString(v)
}

// IdentityString formats an identity value for comparison and transport.
func IdentityString(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case fmt.Stringer:
		return id.String()
	case float64:
		if id == float64(int64(id)) {
			return fmt.Sprintf("%d", int64(id))
		}
	}
	return fmt.Sprint(v)
}

// MarshalJSON encodes the record as a JSON object in key order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", k, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping the document's key order.
// Numbers decode as float64, nested values as the encoding/json defaults.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("record: expected JSON object")
	}

	*r = Record{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("record: expected string key")
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("record field %s: %w", key, err)
		}
		r.Set(key, v)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}
