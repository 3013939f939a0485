package document

import (
	apperrors "github.com/Aman-CERP/docsearch/internal/errors"
)

// FullContentField is the reserved name of the synthetic field that
// aggregates every field searchable in full content. It is the default scope
// of unscoped queries and must not be used as a regular field name.
const FullContentField = "full-content"

// Sentinels for the two error kinds surfaced by this module. Errors match
// them with errors.Is by code:
//
//	if errors.Is(err, document.ErrSearch) { ... }
var (
	// ErrIndex matches indexing-path failures.
	ErrIndex = apperrors.New(apperrors.ErrCodeIndexFailed, "index failed", nil)

	// ErrSearch matches query-path failures, including failures raised
	// while reading a document's fields.
	ErrSearch = apperrors.New(apperrors.ErrCodeSearchFailed, "search failed", nil)
)
