package introspect

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/pthm/relq/internal/sqlgen/sqldsl"
	"github.com/pthm/relq/schema"
)

// SQLiteIntrospector reads tables from a SQLite database.
type SQLiteIntrospector struct {
	db   Querier
	opts options
}

// SQLite returns an introspector for a SQLite database.
func SQLite(db Querier, opts ...Option) *SQLiteIntrospector {
	return &SQLiteIntrospector{db: db, opts: newOptions(opts)}
}

// Tables returns every user table, sorted by name. Tables without a primary
// key are reported as keyless.
//
// Queries run one after another, so a database limited to a single
// connection (the usual in-memory setup) works.
func (s *SQLiteIntrospector) Tables(ctx context.Context) ([]schema.Table, error) {
	names, err := s.tableNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	tables := make([]schema.Table, 0, len(names))
	for _, name := range names {
		t := schema.Table{Name: name}
		if err := s.readColumns(ctx, &t); err != nil {
			return nil, fmt.Errorf("columns of %s: %w", name, err)
		}
		if err := s.readForeignKeys(ctx, &t); err != nil {
			return nil, fmt.Errorf("foreign keys of %s: %w", name, err)
		}
		t.Keyless = len(t.PrimaryKey) == 0
		logTable(s.opts.log, t)
		tables = append(tables, t)
	}
	return tables, nil
}

func (s *SQLiteIntrospector) tableNames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table'
		AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// readColumns fills Columns and PrimaryKey from PRAGMA table_info.
// The pk column is the 1-based position of the column within the key.
func (s *SQLiteIntrospector) readColumns(ctx context.Context, t *schema.Table) error {
	rows, err := s.db.QueryContext(ctx, `PRAGMA table_info(`+sqldsl.Ident(t.Name)+`)`)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	type keyCol struct {
		pos  int
		name string
	}
	var keys []keyCol
	for rows.Next() {
		var (
			cid     int
			name    string
			typ     sql.NullString
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return err
		}
		t.Columns = append(t.Columns, name)
		if pk > 0 {
			keys = append(keys, keyCol{pos: pk, name: name})
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	sort.Slice(keys, func(i, j int) bool { return keys[i].pos < keys[j].pos })
	for _, k := range keys {
		t.PrimaryKey = append(t.PrimaryKey, k.name)
	}
	return nil
}

// readForeignKeys fills ForeignKeys from PRAGMA foreign_key_list. Rows of a
// composite key share an id and are ordered by seq. A NULL "to" column means
// the key references the parent's primary key.
func (s *SQLiteIntrospector) readForeignKeys(ctx context.Context, t *schema.Table) error {
	rows, err := s.db.QueryContext(ctx, `PRAGMA foreign_key_list(`+sqldsl.Ident(t.Name)+`)`)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	byID := make(map[int]*schema.ForeignKey)
	var ids []int
	for rows.Next() {
		var (
			id, seq                   int
			table, from               string
			to                        sql.NullString
			onUpdate, onDelete, match sql.NullString
		)
		if err := rows.Scan(&id, &seq, &table, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			return err
		}
		fk, ok := byID[id]
		if !ok {
			fk = &schema.ForeignKey{Table: table}
			byID[id] = fk
			ids = append(ids, id)
		}
		fk.Columns = append(fk.Columns, from)
		if to.Valid && to.String != "" {
			fk.References = append(fk.References, to.String)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	// SQLite lists keys in reverse declaration order.
	sort.Sort(sort.Reverse(sort.IntSlice(ids)))
	for _, id := range ids {
		fk := byID[id]
		if len(fk.References) != len(fk.Columns) {
			fk.References = nil
		}
		t.ForeignKeys = append(t.ForeignKeys, *fk)
	}
	return nil
}
