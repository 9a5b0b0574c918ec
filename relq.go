// Package relq compiles association-aware requests into SQL and runs them.
//
// # Module Structure
//
//   - schema: tables, associations and the registry they are declared in
//   - pkg/compiler: plans, attachments, aggregates and SQL rendering
//   - pkg/introspect: foreign key discovery from live SQLite and PostgreSQL databases
//   - relq (this package): error taxonomy and the Runner that executes statements
//
// The compiler is pure: it performs no I/O and only produces SQL text with
// an ordered argument list. The Runner is the executor boundary.
//
// # Core Concepts
//
// Associations relate two tables. They are declared once and shared:
//
//	reg, _ := schema.NewRegistry(authors, books)
//	books, _ := reg.HasMany("authors", "books")
//
// Plans compose a request against a root table:
//
//	p, _ := compiler.NewPlan(reg, "authors")
//	_ = p.Annotate(compiler.Count(books).As("bookCount"))
//	_ = p.Filter(compiler.Count(books).Gt(0))
//	stmt, _ := p.Build()
//
// # Running Statements
//
// The Runner works with *sql.DB, *sql.Tx, or *sql.Conn:
//
//	runner := relq.NewRunner(db, relq.WithDialect(relq.DialectPostgres))
//	rows, err := runner.Query(ctx, stmt)
//
// Statements render "?" placeholders; the PostgreSQL dialect rebinds them to
// $1, $2... before execution.
//
// # Caching
//
// Use WithStmtCache to reuse prepared statements across queries:
//
//	cache := relq.NewStmtCache(relq.WithTTL(time.Minute))
//	runner := relq.NewRunner(db, relq.WithStmtCache(cache))
//	defer cache.Clear()
package relq

import (
	"context"
	"database/sql"
)

// Querier is the minimal database interface the Runner needs.
// Implemented by *sql.DB, *sql.Tx, and *sql.Conn.
//
// Using *sql.Tx lets queries see uncommitted changes within the transaction.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// Row is one result row. Columns keeps duplicates: a statement selecting
// "a".* and "b".* may return two "id" columns.
type Row struct {
	Columns []string
	Values  []any
}

// Get returns the value of the first column named name.
func (r Row) Get(name string) (any, bool) {
	for i, c := range r.Columns {
		if c == name {
			return r.Values[i], true
		}
	}
	return nil, false
}

// Map returns the row as a column map. Later duplicates are dropped.
func (r Row) Map() map[string]any {
	m := make(map[string]any, len(r.Columns))
	for i, c := range r.Columns {
		if _, ok := m[c]; !ok {
			m[c] = r.Values[i]
		}
	}
	return m
}
