package cmd

import (
	"bytes"
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/docsearch/internal/config"
	"github.com/Aman-CERP/docsearch/internal/errors"
	"github.com/Aman-CERP/docsearch/internal/output"
	"github.com/Aman-CERP/docsearch/internal/store"
	"github.com/Aman-CERP/docsearch/pkg/document"
	"github.com/Aman-CERP/docsearch/pkg/indexer"
)

func TestIndexCmd_JSONL(t *testing.T) {
	// Given: a project with four books
	project, books := booksProject(t)

	// When: indexing the file
	out, err := run(t, "--dir", project, "index", "--file", books)

	// Then: every book is in the index under the configured path
	require.NoError(t, err)
	assert.Contains(t, out, "Indexed jsonl source")
	assert.Contains(t, out, "Documents in index: 4")
	assert.DirExists(t, filepath.Join(project, "idx", store.IndexDirName))
}

func TestIndexCmd_ReindexReplacesByIdentifier(t *testing.T) {
	// Given: an indexed project
	project, books := booksProject(t)
	_, err := run(t, "--dir", project, "index", "--file", books)
	require.NoError(t, err)

	// When: the same ids are indexed again with new titles
	writeFile(t, project, "books.jsonl", `{"id": "1", "title": "The Slow Tortoise"}
{"id": "2", "title": "Tortoise Habitats"}
`)
	out, err := run(t, "--dir", project, "index", "--file", books)

	// Then: the old versions were replaced rather than duplicated
	require.NoError(t, err)
	assert.Contains(t, out, "Documents in index: 4")
}

func TestIndexCmd_ConfiguredJSONLPath(t *testing.T) {
	project := newProject(t)
	writeFile(t, project, "books.jsonl", booksJSONL)
	writeFile(t, project, ".docsearch.yaml", `index:
  path: idx
sources:
  jsonl:
    path: books.jsonl
`)

	out, err := run(t, "--dir", project, "index")
	require.NoError(t, err)
	assert.Contains(t, out, "Documents in index: 4")
}

func TestIndexCmd_SQLSource(t *testing.T) {
	// Given: a sqlite database with two rows
	project := newProject(t)
	dbPath := filepath.Join(project, "books.db")
	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE books (id TEXT, title TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO books VALUES ('1', 'Sql Fox'), ('2', 'Sql Hound')`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	writeFile(t, project, ".docsearch.yaml", `index:
  path: idx
sources:
  sql:
    driver: sqlite
    dsn: `+dbPath+`
    query: SELECT id, title FROM books
`)

	// When: indexing the sql source
	out, err := run(t, "--dir", project, "index", "--source", "sql")

	// Then: each row became a document
	require.NoError(t, err)
	assert.Contains(t, out, "Indexed sql source")
	assert.Contains(t, out, "Documents in index: 2")
}

func TestIndexCmd_InvalidInvocations(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		args []string
		code string
	}{
		{
			name: "unknown source",
			args: []string{"index", "--source", "ftp"},
			code: errors.ErrCodeInvalidInput,
		},
		{
			name: "jsonl without a file",
			args: []string{"index"},
			code: errors.ErrCodeInvalidInput,
		},
		{
			name: "watch on a non-file source",
			args: []string{"index", "--source", "sql", "--watch"},
			code: errors.ErrCodeInvalidInput,
		},
		{
			name: "sql without a query",
			args: []string{"index", "--source", "sql"},
			code: errors.ErrCodeInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			project := newProject(t)
			writeFile(t, project, ".docsearch.yaml", "index:\n  path: idx\n")

			_, err := run(t, append([]string{"--dir", project}, tt.args...)...)

			require.Error(t, err)
			assert.Equal(t, tt.code, errors.GetCode(err))
		})
	}
}

func TestIndexCmd_SecondWriterIsLocked(t *testing.T) {
	// Given: an indexer holding the project's index
	project, books := booksProject(t)
	cfg, err := config.Load(project)
	require.NoError(t, err)
	dir, err := store.OpenDisk(cfg.Index.Path, cfg.StoreConfig())
	require.NoError(t, err)
	idx, err := indexer.New(dir)
	require.NoError(t, err)
	defer func() { _ = idx.Close() }()

	// When: the CLI indexes the same project
	_, err = run(t, "--dir", project, "index", "--file", books)

	// Then: it is told to retry later
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeWriterLocked, errors.GetCode(err))
	assert.True(t, errors.IsRetryable(err))
}

func TestWatchJSONL_ReindexesOnChange(t *testing.T) {
	// Given: an in-memory index holding one document of a watched file
	newProject(t)
	path := filepath.Join(t.TempDir(), "docs.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(`{"id": "1", "text": "one"}`+"\n"), 0o644))

	dir, err := store.OpenMemory(store.DefaultConfig())
	require.NoError(t, err)
	defer func() { _ = dir.Close() }()
	idx, err := indexer.New(dir)
	require.NoError(t, err)
	defer func() { _ = idx.Close() }()
	descs := document.Descriptions{"id": document.NewBuilder().SetIdentifier(true).Build()}

	ctx, cancel := context.WithCancel(context.Background())
	buf := &bytes.Buffer{}
	var refreshed atomic.Int32
	refresh := func() error {
		refreshed.Add(1)
		return nil
	}
	done := make(chan error, 1)
	go func() {
		done <- watchJSONL(ctx, output.NewWithColor(buf, false), idx, descs, path, 30*time.Millisecond, refresh)
	}()

	// When: a second document is appended after the watcher started
	time.Sleep(100 * time.Millisecond)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"id": "2", "text": "two"}` + "\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	// Then: the file is re-indexed with both documents, replacing the first
	require.Eventually(t, func() bool {
		stats, err := idx.Stats()
		return err == nil && stats.DocumentCount == 2
	}, 5*time.Second, 20*time.Millisecond)

	// And: searchers are refreshed after the batch
	require.Eventually(t, func() bool { return refreshed.Load() >= 1 }, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop after cancel")
	}
	assert.Contains(t, buf.String(), "Watching "+path)
	assert.Contains(t, buf.String(), "Re-indexed "+path)
}
