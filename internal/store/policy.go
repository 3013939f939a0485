package store

import (
	"encoding/json"
	"fmt"

	"github.com/blevesearch/bleve/v2"
)

const policyKeyPrefix = "docsearch/field/"

// FieldPolicy records how a field was indexed so that searches can
// analyze and boost it the same way.
type FieldPolicy struct {
	Analyzed bool    `json:"analyzed"`
	Boost    float64 `json:"boost"`
}

// DefaultPolicy applies to fields the writer has never seen.
var DefaultPolicy = FieldPolicy{Analyzed: true, Boost: 1}

func policyKey(field string) []byte {
	return []byte(policyKeyPrefix + field)
}

// internalStore reads the engine's key/value area. Both a bleve index and
// an index snapshot provide it.
type internalStore interface {
	GetInternal(key []byte) ([]byte, error)
}

func loadPolicy(idx internalStore, field string) (FieldPolicy, bool, error) {
	data, err := idx.GetInternal(policyKey(field))
	if err != nil {
		return FieldPolicy{}, false, fmt.Errorf("read policy for %s: %w", field, err)
	}
	if len(data) == 0 {
		return DefaultPolicy, false, nil
	}
	var p FieldPolicy
	if err := json.Unmarshal(data, &p); err != nil {
		return FieldPolicy{}, false, fmt.Errorf("decode policy for %s: %w", field, err)
	}
	return p, true, nil
}

func storePolicy(idx bleve.Index, field string, p FieldPolicy) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	if err := idx.SetInternal(policyKey(field), data); err != nil {
		return fmt.Errorf("write policy for %s: %w", field, err)
	}
	return nil
}
