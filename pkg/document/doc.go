// Package document defines the document model shared by the indexer and the
// searcher.
//
// A [Document] is a read-only view over named string fields. It is
// implemented by the mutable [MapDocument] and by the stored-field
// projections the searcher hands back with each result, so any field source
// can be indexed or inspected the same way.
//
// Documents reach the indexer through a [Provider], which pairs an
// [Iterator] with an explicit Close hook so resource-backed sources (SQL
// cursors, message consumers) are always released:
//
//	provider := document.NewProvider(
//	    document.NewMapDocument("id", "123", "firstName", "John"),
//	)
//	err := idx.Index(ctx, descriptions, provider)
//
// Per-field indexing policy is described by an immutable [FieldDescription]
// built with a [Builder]:
//
//	descriptions := document.Descriptions{
//	    "id":    document.NewBuilder().SetIdentifier(true).Build(),
//	    "title": document.NewBuilder().SetBoostFactor(2).Build(),
//	}
//
// Fields without an entry use [Default].
package document
