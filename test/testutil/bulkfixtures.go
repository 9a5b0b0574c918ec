package testutil

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
)

// BulkFixtures loads datasets into PostgreSQL with COPY FROM.
// This is much faster than batch INSERTs for large datasets.
type BulkFixtures struct {
	db  *sql.DB
	ctx context.Context
}

// NewBulkFixtures creates a new BulkFixtures instance for bulk data loading via COPY FROM.
func NewBulkFixtures(ctx context.Context, db *sql.DB) *BulkFixtures {
	return &BulkFixtures{db: db, ctx: ctx}
}

// Insert copies every row of d, parents first.
func (bf *BulkFixtures) Insert(d Dataset) error {
	conn, err := bf.db.Conn(bf.ctx)
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	// Access the underlying pgx connection through stdlib wrapper
	return conn.Raw(func(driverConn any) error {
		stdlibConn, ok := driverConn.(*stdlib.Conn)
		if !ok {
			return fmt.Errorf("not a pgx connection (got %T)", driverConn)
		}
		return bf.copyDataset(stdlibConn.Conn(), d)
	})
}

func (bf *BulkFixtures) copyDataset(conn *pgx.Conn, d Dataset) error {
	steps := []struct {
		table   string
		columns []string
		source  pgx.CopyFromSource
	}{
		{"libraries", []string{"id", "city"}, pgx.CopyFromSlice(len(d.Libraries), func(i int) ([]any, error) {
			l := d.Libraries[i]
			return []any{l.ID, l.City}, nil
		})},
		{"authors", []string{"id", "name"}, pgx.CopyFromSlice(len(d.Authors), func(i int) ([]any, error) {
			a := d.Authors[i]
			return []any{a.ID, a.Name}, nil
		})},
		{"readers", []string{"id", "name", "library_id"}, pgx.CopyFromSlice(len(d.Readers), func(i int) ([]any, error) {
			r := d.Readers[i]
			return []any{r.ID, r.Name, r.LibraryID}, nil
		})},
		{"books", []string{"id", "title", "pages", "author_id", "library_id"}, pgx.CopyFromSlice(len(d.Books), func(i int) ([]any, error) {
			b := d.Books[i]
			return []any{b.ID, b.Title, b.Pages, b.AuthorID, b.LibraryID}, nil
		})},
	}

	for _, s := range steps {
		if _, err := conn.CopyFrom(bf.ctx, pgx.Identifier{s.table}, s.columns, s.source); err != nil {
			return fmt.Errorf("COPY FROM %s: %w", s.table, err)
		}
	}
	return nil
}
