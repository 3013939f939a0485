package errors

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatForCLI(t *testing.T) {
	err := SearchError("parse error", errors.New("bad syntax")).
		WithSuggestion("quote the query")

	out := FormatForCLI(err)

	assert.Contains(t, out, "Error: parse error")
	assert.Contains(t, out, "Cause: bad syntax")
	assert.Contains(t, out, "Hint: quote the query")
	assert.Contains(t, out, "Code: ERR_503_SEARCH_FAILED")
	assert.Equal(t, "", FormatForCLI(nil))
}

func TestToPayload_WrapsPlainErrors(t *testing.T) {
	p := ToPayload(errors.New("boom"))

	assert.Equal(t, ErrCodeInternal, p.Code)
	assert.Equal(t, "boom", p.Message)
	assert.Equal(t, string(CategoryInternal), p.Category)
}

func TestLogAttrs(t *testing.T) {
	attrs := LogAttrs(IndexError("cannot index", errors.New("disk")).WithDetail("doc", "123"))

	keys := make(map[string]string)
	for _, a := range attrs {
		keys[a.Key] = a.Value.String()
	}
	assert.Equal(t, ErrCodeIndexFailed, keys["error_code"])
	assert.Equal(t, "disk", keys["cause"])
	assert.Equal(t, "123", keys["detail_doc"])

	plain := LogAttrs(errors.New("x"))
	assert.Len(t, plain, 1)
	assert.Nil(t, LogAttrs(nil))
}

func TestLogArgs(t *testing.T) {
	args := LogArgs(SearchError("bad query", nil))
	require.Len(t, args, 3)
	_, ok := args[0].(slog.Attr)
	assert.True(t, ok)
	assert.Empty(t, LogArgs(nil))
}
