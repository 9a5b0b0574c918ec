package relq

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pthm/relq/pkg/compiler"
)

// Dialect selects the placeholder syntax used when executing statements.
// Compiled SQL always uses "?" placeholders.
type Dialect int

const (
	// DialectSQLite keeps "?" placeholders.
	DialectSQLite Dialect = iota
	// DialectPostgres rewrites placeholders to $1, $2...
	DialectPostgres
)

func (d Dialect) String() string {
	if d == DialectPostgres {
		return "postgres"
	}
	return "sqlite"
}

// DialectFor returns the dialect of a database/sql driver name.
func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	case "postgres", "postgresql", "pgx":
		return DialectPostgres, nil
	}
	return 0, fmt.Errorf("relq: unsupported driver %q", driver)
}

// Rebind rewrites "?" placeholders for the dialect. Question marks inside
// quoted strings and identifiers are left alone.
func (d Dialect) Rebind(query string) string {
	if d != DialectPostgres || !strings.Contains(query, "?") {
		return query
	}

	var sb strings.Builder
	sb.Grow(len(query) + 8)
	n := 0
	var quote byte
	for i := 0; i < len(query); i++ {
		ch := query[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case ch == '\'' || ch == '"':
			quote = ch
		case ch == '?':
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteByte(ch)
	}
	return sb.String()
}

// Runner executes compiled statements.
//
// Runner is the executor boundary of the compiler: it takes a Statement,
// adapts the placeholders for the database and returns generic rows. Typed
// decoding is left to the caller; Statement.Segments describes the layout of
// each row.
//
// A Runner is safe for concurrent use when its Querier is.
type Runner struct {
	q       Querier
	dialect Dialect
	cache   *StmtCache
	log     *logrus.Entry
}

// Option configures a Runner.
type Option func(*Runner)

// WithDialect sets the placeholder dialect. The default is DialectSQLite.
func WithDialect(d Dialect) Option {
	return func(r *Runner) {
		r.dialect = d
	}
}

// WithStmtCache prepares statements through cache.
func WithStmtCache(cache *StmtCache) Option {
	return func(r *Runner) {
		r.cache = cache
	}
}

// WithLogger logs every executed statement at debug level.
func WithLogger(log *logrus.Entry) Option {
	return func(r *Runner) {
		r.log = log
	}
}

// NewRunner creates a Runner over q.
func NewRunner(q Querier, opts ...Option) *Runner {
	r := &Runner{q: q}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		r.log = logrus.NewEntry(l)
	}
	return r
}

// Dialect returns the runner's dialect.
func (r *Runner) Dialect() Dialect {
	return r.dialect
}

// Query executes stmt and returns every row.
func (r *Runner) Query(ctx context.Context, stmt compiler.Statement) ([]Row, error) {
	query := r.dialect.Rebind(stmt.SQL)
	start := time.Now()

	rows, err := r.query(ctx, query, stmt.Args)
	if err != nil {
		return nil, r.mapError("query", err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, r.mapError("columns", err)
	}

	var out []Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, r.mapError("scan", err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		out = append(out, Row{Columns: cols, Values: values})
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapError("rows", err)
	}

	r.log.WithFields(logrus.Fields{
		"sql":      query,
		"args":     len(stmt.Args),
		"rows":     len(out),
		"duration": time.Since(start),
	}).Debug("query")
	return out, nil
}

// Count returns the number of rows stmt produces.
func (r *Runner) Count(ctx context.Context, stmt compiler.Statement) (int64, error) {
	query := r.dialect.Rebind(CountSQL(stmt.SQL))

	var n int64
	var err error
	if r.cache != nil {
		var st *sql.Stmt
		st, err = r.cache.Prepare(ctx, r.q, query)
		if err == nil {
			err = st.QueryRowContext(ctx, stmt.Args...).Scan(&n)
		}
	} else {
		err = r.q.QueryRowContext(ctx, query, stmt.Args...).Scan(&n)
	}
	if err != nil {
		return 0, r.mapError("count", err)
	}

	r.log.WithFields(logrus.Fields{"sql": query, "count": n}).Debug("count")
	return n, nil
}

// CountSQL wraps a query so it returns its row count.
func CountSQL(query string) string {
	return `SELECT COUNT(*) FROM (` + query + `) AS "counted"`
}

func (r *Runner) query(ctx context.Context, query string, args []any) (*sql.Rows, error) {
	if r.cache == nil {
		return r.q.QueryContext(ctx, query, args...)
	}
	st, err := r.cache.Prepare(ctx, r.q, query)
	if err != nil {
		return nil, err
	}
	return st.QueryContext(ctx, args...)
}

// mapError maps database errors to sentinel errors.
// Uses interface-based detection to work with pq, pgx and sqlite.
func (r *Runner) mapError(operation string, err error) error {
	switch sqlState(err) {
	case pgUndefinedTable:
		return fmt.Errorf("%w: %v", ErrMissingTable, err)
	case pgUndefinedColumn:
		return fmt.Errorf("%w: %v", ErrMissingColumn, err)
	}

	// SQLite reports schema errors by message only.
	msg := err.Error()
	switch {
	case strings.Contains(msg, "no such table"):
		return fmt.Errorf("%w: %v", ErrMissingTable, err)
	case strings.Contains(msg, "no such column"):
		return fmt.Errorf("%w: %v", ErrMissingColumn, err)
	}

	return fmt.Errorf("%s: %w", operation, err)
}

// sqlState extracts the SQLSTATE code from a PostgreSQL error.
// Works with multiple drivers via interface detection:
//   - pgx/pgconn and lib/pq: SQLState() string
//   - other wrappers: Code() string
//
// Returns empty string if the error doesn't contain a SQLSTATE.
func sqlState(err error) string {
	type sqlStateErr interface{ SQLState() string }
	var se sqlStateErr
	if errors.As(err, &se) {
		return se.SQLState()
	}

	type codeErr interface{ Code() string }
	var ce codeErr
	if errors.As(err, &ce) {
		return ce.Code()
	}

	// Fallback: "... (SQLSTATE 42P01)" or "SQLSTATE: 42P01"
	errStr := err.Error()
	for _, prefix := range []string{"SQLSTATE ", "SQLSTATE: "} {
		if idx := strings.Index(errStr, prefix); idx >= 0 {
			start := idx + len(prefix)
			if start+5 <= len(errStr) {
				return errStr[start : start+5]
			}
		}
	}
	return ""
}
