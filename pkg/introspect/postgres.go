package introspect

import (
	"context"
	"fmt"

	"github.com/pthm/relq/schema"
)

// PostgresIntrospector reads tables from one PostgreSQL schema through
// information_schema.
type PostgresIntrospector struct {
	db   Querier
	opts options
}

// Postgres returns an introspector for a PostgreSQL database.
func Postgres(db Querier, opts ...Option) *PostgresIntrospector {
	return &PostgresIntrospector{db: db, opts: newOptions(opts)}
}

// schemaArg is the schema filter. COALESCE lets an empty WithSchema fall
// back to the connection's search path.
const schemaArg = `COALESCE(NULLIF($1, ''), current_schema())`

// Tables returns every base table of the schema, sorted by name.
//
// PostgreSQL has no implicit row id; tables without a primary key are
// reported as keyless and logged, and aggregates over them will fail until
// a key is declared in the schema document.
func (p *PostgresIntrospector) Tables(ctx context.Context) ([]schema.Table, error) {
	names, err := p.strings(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = `+schemaArg+`
		AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	byName := make(map[string]*schema.Table, len(names))
	tables := make([]schema.Table, len(names))
	for i, name := range names {
		tables[i].Name = name
		byName[name] = &tables[i]
	}

	if err := p.readColumns(ctx, byName); err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}
	if err := p.readPrimaryKeys(ctx, byName); err != nil {
		return nil, fmt.Errorf("primary keys: %w", err)
	}
	if err := p.readForeignKeys(ctx, byName); err != nil {
		return nil, fmt.Errorf("foreign keys: %w", err)
	}

	for i := range tables {
		if len(tables[i].PrimaryKey) == 0 {
			tables[i].Keyless = true
			p.opts.log.WithField("table", tables[i].Name).Warn("table has no primary key")
		}
		logTable(p.opts.log, tables[i])
	}
	return tables, nil
}

func (p *PostgresIntrospector) strings(ctx context.Context, query string) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, query, p.opts.schema)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *PostgresIntrospector) readColumns(ctx context.Context, byName map[string]*schema.Table) error {
	rows, err := p.db.QueryContext(ctx, `
		SELECT table_name, column_name
		FROM information_schema.columns
		WHERE table_schema = `+schemaArg+`
		ORDER BY table_name, ordinal_position
	`, p.opts.schema)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var table, column string
		if err := rows.Scan(&table, &column); err != nil {
			return err
		}
		if t, ok := byName[table]; ok {
			t.Columns = append(t.Columns, column)
		}
	}
	return rows.Err()
}

func (p *PostgresIntrospector) readPrimaryKeys(ctx context.Context, byName map[string]*schema.Table) error {
	rows, err := p.db.QueryContext(ctx, `
		SELECT kcu.table_name, kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON kcu.constraint_schema = tc.constraint_schema
			AND kcu.constraint_name = tc.constraint_name
		WHERE tc.constraint_type = 'PRIMARY KEY'
		AND tc.table_schema = `+schemaArg+`
		ORDER BY kcu.table_name, kcu.ordinal_position
	`, p.opts.schema)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var table, column string
		if err := rows.Scan(&table, &column); err != nil {
			return err
		}
		if t, ok := byName[table]; ok {
			t.PrimaryKey = append(t.PrimaryKey, column)
		}
	}
	return rows.Err()
}

// readForeignKeys pairs each referencing column with the referenced column
// at the same position of the unique constraint.
func (p *PostgresIntrospector) readForeignKeys(ctx context.Context, byName map[string]*schema.Table) error {
	rows, err := p.db.QueryContext(ctx, `
		SELECT kcu.table_name, kcu.constraint_name, kcu.column_name, ref.table_name, ref.column_name
		FROM information_schema.referential_constraints rc
		JOIN information_schema.key_column_usage kcu
			ON kcu.constraint_schema = rc.constraint_schema
			AND kcu.constraint_name = rc.constraint_name
		JOIN information_schema.key_column_usage ref
			ON ref.constraint_schema = rc.unique_constraint_schema
			AND ref.constraint_name = rc.unique_constraint_name
			AND ref.ordinal_position = kcu.position_in_unique_constraint
		WHERE kcu.table_schema = `+schemaArg+`
		ORDER BY kcu.table_name, kcu.constraint_name, kcu.ordinal_position
	`, p.opts.schema)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	type fkKey struct{ table, constraint string }
	index := make(map[fkKey]int)
	for rows.Next() {
		var table, constraint, column, refTable, refColumn string
		if err := rows.Scan(&table, &constraint, &column, &refTable, &refColumn); err != nil {
			return err
		}
		t, ok := byName[table]
		if !ok {
			continue
		}
		k := fkKey{table, constraint}
		i, ok := index[k]
		if !ok {
			t.ForeignKeys = append(t.ForeignKeys, schema.ForeignKey{Table: refTable})
			i = len(t.ForeignKeys) - 1
			index[k] = i
		}
		fk := &t.ForeignKeys[i]
		fk.Columns = append(fk.Columns, column)
		fk.References = append(fk.References, refColumn)
	}
	return rows.Err()
}
