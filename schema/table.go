package schema

import (
	"fmt"
	"strings"
)

// RowID is the implicit row identifier used in place of a primary key for
// keyless tables.
const RowID = "rowid"

// ForeignKey is a foreign key declared on a table. Columns live on the
// owning table and reference Table.References, or Table's primary key when
// References is empty.
type ForeignKey struct {
	Columns    []string `json:"columns"`
	Table      string   `json:"table"`
	References []string `json:"references,omitempty"`
}

// Table describes the shape of one SQL table.
//
// Columns is optional. When present it is used to resolve bare column names
// across joined tables; when absent the table never claims a bare name.
type Table struct {
	Name        string       `json:"name"`
	PrimaryKey  []string     `json:"primaryKey,omitempty"`
	Columns     []string     `json:"columns,omitempty"`
	ForeignKeys []ForeignKey `json:"foreignKeys,omitempty"`
	Keyless     bool         `json:"keyless,omitempty"`
}

// RowKey returns the columns identifying a row: the primary key, or RowID
// for keyless tables.
func (t *Table) RowKey() []string {
	if len(t.PrimaryKey) == 0 {
		return []string{RowID}
	}
	return t.PrimaryKey
}

// HasColumn reports whether name is a declared column of the table.
// Primary key columns count as declared.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	for _, c := range t.PrimaryKey {
		if c == name {
			return true
		}
	}
	return false
}

// DeclaresColumns reports whether the table carries column metadata.
func (t *Table) DeclaresColumns() bool {
	return len(t.Columns) > 0
}

// Is reports whether the table is named name. Table names compare
// case-insensitively.
func (t *Table) Is(name string) bool {
	return strings.EqualFold(t.Name, name)
}

// Validate checks the table declaration.
func (t *Table) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("%w: table name is empty", ErrInvalidTable)
	}
	if len(t.PrimaryKey) == 0 && !t.Keyless {
		return fmt.Errorf("%w: table %q has no primary key and is not keyless", ErrInvalidTable, t.Name)
	}
	for i, fk := range t.ForeignKeys {
		if len(fk.Columns) == 0 {
			return fmt.Errorf("%w: foreign key %d of %q has no columns", ErrInvalidTable, i, t.Name)
		}
		if fk.Table == "" {
			return fmt.Errorf("%w: foreign key %d of %q references no table", ErrInvalidTable, i, t.Name)
		}
		if len(fk.References) > 0 && len(fk.References) != len(fk.Columns) {
			return fmt.Errorf("%w: foreign key %v of %q maps %d columns to %d",
				ErrInvalidTable, fk.Columns, t.Name, len(fk.Columns), len(fk.References))
		}
	}
	return nil
}

// foreignKeysTo returns the foreign keys of t referencing target.
func (t *Table) foreignKeysTo(target string) []ForeignKey {
	var fks []ForeignKey
	for _, fk := range t.ForeignKeys {
		if strings.EqualFold(fk.Table, target) {
			fks = append(fks, fk)
		}
	}
	return fks
}
