package source

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Aman-CERP/docsearch/pkg/document"
)

// DecodeJSON converts a JSON object to a document, keeping the field order
// of the input. Strings are stored as is, numbers and booleans in their
// JSON spelling, nested objects and arrays as compact JSON. Null fields are
// absent.
func DecodeJSON(data []byte) (*document.MapDocument, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("decode document: expected a JSON object")
	}

	doc := document.NewMapDocument()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decode document: %w", err)
		}
		key, _ := tok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode field %q: %w", key, err)
		}
		value, ok, err := scalar(raw)
		if err != nil {
			return nil, fmt.Errorf("decode field %q: %w", key, err)
		}
		if ok {
			doc.Set(key, value)
		}
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("decode document: trailing data after object")
	}
	return doc, nil
}

func scalar(raw json.RawMessage) (string, bool, error) {
	trimmed := bytes.TrimSpace(raw)
	switch {
	case bytes.Equal(trimmed, []byte("null")):
		return "", false, nil
	case len(trimmed) > 0 && trimmed[0] == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", false, err
		}
		return s, true, nil
	case len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '['):
		var b bytes.Buffer
		if err := json.Compact(&b, trimmed); err != nil {
			return "", false, err
		}
		return b.String(), true, nil
	default:
		return strings.TrimSpace(string(trimmed)), true, nil
	}
}
