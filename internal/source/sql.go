package source

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/lib/pq"  // postgres driver
	_ "modernc.org/sqlite" // pure Go sqlite driver

	"github.com/Aman-CERP/docsearch/pkg/document"
)

// SQL driver names accepted by OpenSQL.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// OpenSQL opens and pings a database.
func OpenSQL(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s database: %w", driver, err)
	}
	return db, nil
}

// SQLProvider turns every row of a query into a document with one field
// per column. NULL columns are absent.
type SQLProvider struct {
	db    *sql.DB
	query string
	args  []any
}

// NewSQLProvider returns a provider running query with args on db. The
// provider does not own db.
func NewSQLProvider(db *sql.DB, query string, args ...any) *SQLProvider {
	return &SQLProvider{db: db, query: query, args: args}
}

// Iterate runs the query.
func (p *SQLProvider) Iterate(ctx context.Context) (document.Iterator, error) {
	rows, err := p.db.QueryContext(ctx, p.query, p.args...)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	cols, err := rows.Columns()
	if err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("read columns: %w", err)
	}
	return &sqlIterator{rows: rows, cols: cols}, nil
}

// Close closes the rows of it.
func (p *SQLProvider) Close(it document.Iterator) error {
	si, ok := it.(*sqlIterator)
	if !ok {
		return nil
	}
	return si.close()
}

type sqlIterator struct {
	rows *sql.Rows
	cols []string
	doc  document.Document
	err  error

	closeOnce sync.Once
	closeErr  error
}

func (it *sqlIterator) Next() bool {
	if it.err != nil || !it.rows.Next() {
		return false
	}

	values := make([]sql.NullString, len(it.cols))
	dest := make([]any, len(values))
	for i := range values {
		dest[i] = &values[i]
	}
	if err := it.rows.Scan(dest...); err != nil {
		it.err = fmt.Errorf("scan row: %w", err)
		return false
	}

	doc := document.NewMapDocument()
	for i, col := range it.cols {
		if values[i].Valid {
			doc.Set(col, values[i].String)
		}
	}
	it.doc = doc
	return true
}

func (it *sqlIterator) Document() document.Document { return it.doc }

func (it *sqlIterator) Err() error {
	if it.err != nil {
		return it.err
	}
	return it.rows.Err()
}

func (it *sqlIterator) close() error {
	it.closeOnce.Do(func() { it.closeErr = it.rows.Close() })
	return it.closeErr
}
