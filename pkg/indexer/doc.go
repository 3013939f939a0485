// Package indexer writes documents into a search index.
//
// # Re-indexing
//
// Fields described as identifiers key a document. Before a document is
// added, every entry whose identifier fields match the document's values is
// deleted, so re-indexing a document replaces all of its previous fields:
//
//	descs := document.Descriptions{
//	    "id": document.NewBuilder().SetIdentifier(true).Build(),
//	}
//	idx, err := indexer.New(dir)
//	if err != nil {
//	    return err
//	}
//	defer idx.Close()
//
//	err = idx.IndexDocuments(ctx, descs, document.NewMapDocument("id", "123", "title", "Hello"))
//
// Without identifier fields documents are only appended.
//
// # Full content
//
// Values of fields that are searchable in full content are joined with
// spaces into the reserved [document.FullContentField], which is the default
// search scope of the searcher.
//
// # Failures
//
// A batch is not atomic. Documents before a failing document stay indexed
// and the rest of the batch is skipped; callers retry the remainder.
//
// # Concurrency
//
// One Indexer may be open per index. For disk directories this is enforced
// across processes with a lock file; see [WithLock].
package indexer
