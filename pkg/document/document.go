package document

import (
	"bytes"
	"encoding/json"
	"slices"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Document provides access to the field values of an indexable or indexed
// document.
//
// A field is either present with a value or absent; there are no null
// values. Both methods may fail when the underlying source cannot be read.
type Document interface {
	// Fields returns the names of all fields present in the document.
	// The order is not significant.
	Fields() ([]string, error)

	// Value returns the value of the field and whether it is present.
	Value(field string) (string, bool, error)
}

// MapDocument is a map-backed, mutable Document. The insertion order of
// field names is preserved for stable rendering.
//
// A MapDocument is not safe for concurrent mutation.
type MapDocument struct {
	keys   []string
	values map[string]string
}

// NewMapDocument creates a document from alternating field/value pairs.
// A trailing field without a value is left absent.
func NewMapDocument(pairs ...string) *MapDocument {
	d := &MapDocument{values: make(map[string]string, len(pairs)/2)}
	for i := 0; i+1 < len(pairs); i += 2 {
		d.Set(pairs[i], pairs[i+1])
	}
	return d
}

// FromMap creates a document holding a copy of m. Field names are ordered
// lexicographically since map iteration order is random.
func FromMap(m map[string]string) *MapDocument {
	d := &MapDocument{values: make(map[string]string, len(m))}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		d.Set(k, m[k])
	}
	return d
}

// Set assigns a value to the field. Empty field names are ignored.
func (d *MapDocument) Set(field, value string) *MapDocument {
	if field == "" {
		return d
	}
	if d.values == nil {
		d.values = make(map[string]string)
	}
	if _, ok := d.values[field]; !ok {
		d.keys = append(d.keys, field)
	}
	d.values[field] = value
	return d
}

// Remove deletes the field and returns its previous value.
func (d *MapDocument) Remove(field string) (string, bool) {
	v, ok := d.values[field]
	if !ok {
		return "", false
	}
	delete(d.values, field)
	d.keys = slices.DeleteFunc(d.keys, func(k string) bool { return k == field })
	return v, true
}

// Len returns the number of fields.
func (d *MapDocument) Len() int {
	return len(d.keys)
}

// Fields implements Document.
func (d *MapDocument) Fields() ([]string, error) {
	return slices.Clone(d.keys), nil
}

// Value implements Document.
func (d *MapDocument) Value(field string) (string, bool, error) {
	v, ok := d.values[field]
	return v, ok, nil
}

// String renders the document as {field=value,...}.
func (d *MapDocument) String() string {
	s, _ := Format(d)
	return s
}

// MarshalJSON encodes the document as a JSON object in field order.
func (d *MapDocument) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range d.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(d.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a flat JSON object of string values.
func (d *MapDocument) UnmarshalJSON(data []byte) error {
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*d = *FromMap(m)
	return nil
}

// Equal reports whether two documents have the same field names and the
// same value for every field.
func Equal(a, b Document) (bool, error) {
	fa, err := a.Fields()
	if err != nil {
		return false, err
	}
	fb, err := b.Fields()
	if err != nil {
		return false, err
	}
	if !sameNames(fa, fb) {
		return false, nil
	}
	for _, f := range fa {
		va, oka, err := a.Value(f)
		if err != nil {
			return false, err
		}
		vb, okb, err := b.Value(f)
		if err != nil {
			return false, err
		}
		if oka != okb || va != vb {
			return false, nil
		}
	}
	return true, nil
}

// Hash returns a hash of the document's field-name set.
//
// Values do not contribute: documents with the same field names and
// different values collide. This is consistent with Equal (equal documents
// always hash the same) and is a known limitation of the hash, not of
// equality.
func Hash(d Document) (uint64, error) {
	fields, err := d.Fields()
	if err != nil {
		return 0, err
	}
	names := slices.Clone(fields)
	slices.Sort(names)
	names = slices.Compact(names)

	h := xxhash.New()
	for _, n := range names {
		_, _ = h.WriteString(n)
		_, _ = h.Write([]byte{0})
	}
	return h.Sum64(), nil
}

// Format renders a document as {field=value,...} in field order.
func Format(d Document) (string, error) {
	fields, err := d.Fields()
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.WriteByte('{')
	for i, f := range fields {
		v, _, err := d.Value(f)
		if err != nil {
			return "", err
		}
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(f)
		sb.WriteByte('=')
		sb.WriteString(v)
	}
	sb.WriteByte('}')
	return sb.String(), nil
}

func sameNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	sa := slices.Clone(a)
	sb := slices.Clone(b)
	slices.Sort(sa)
	slices.Sort(sb)
	return slices.Equal(sa, sb)
}

var _ Document = (*MapDocument)(nil)
