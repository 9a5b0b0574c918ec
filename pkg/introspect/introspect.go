// Package introspect reads table schemas from live databases.
//
// The tables it returns carry primary keys, columns and foreign keys, which
// is everything the schema builder needs to infer association key mappings:
//
//	tables, err := introspect.SQLite(db).Tables(ctx)
//	reg, err := schema.NewRegistry(tables...)
//	books, err := reg.HasMany("authors", "books")
//
// Two databases are supported. SQLite is read through sqlite_master and the
// table_info / foreign_key_list pragmas; PostgreSQL through
// information_schema.
package introspect

import (
	"context"
	"database/sql"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/pthm/relq/schema"
)

// Querier is the database interface introspection needs.
// Implemented by *sql.DB, *sql.Tx, and *sql.Conn.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Introspector reads every user table of a database.
type Introspector interface {
	Tables(ctx context.Context) ([]schema.Table, error)
}

type options struct {
	log    *logrus.Entry
	schema string
}

// Option configures an introspector.
type Option func(*options)

// WithLogger logs discovered tables at debug level.
func WithLogger(log *logrus.Entry) Option {
	return func(o *options) {
		o.log = log
	}
}

// WithSchema selects the PostgreSQL schema to read. The default is the
// connection's current_schema(). SQLite ignores it.
func WithSchema(name string) Option {
	return func(o *options) {
		o.schema = name
	}
}

func newOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		o.log = logrus.NewEntry(l)
	}
	return o
}

// For returns the introspector for a database/sql driver name.
func For(driver string, db Querier, opts ...Option) (Introspector, bool) {
	switch driver {
	case "sqlite", "sqlite3":
		return SQLite(db, opts...), true
	case "postgres", "postgresql", "pgx":
		return Postgres(db, opts...), true
	}
	return nil, false
}

func logTable(log *logrus.Entry, t schema.Table) {
	log.WithFields(logrus.Fields{
		"table":       t.Name,
		"primaryKey":  t.PrimaryKey,
		"columns":     len(t.Columns),
		"foreignKeys": len(t.ForeignKeys),
	}).Debug("introspected table")
}
