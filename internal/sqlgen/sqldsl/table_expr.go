package sqldsl

import "strings"

// TableRef is one occurrence of a table in a statement.
//
// Columns hold the *TableRef they belong to, so assigning an alias after
// columns were recorded changes how every one of them renders.
type TableRef struct {
	Name  string
	Alias string

	explicit bool
}

// Table creates an unaliased table occurrence.
func Table(name string) *TableRef {
	return &TableRef{Name: name}
}

// TableAs creates a table occurrence with a caller-chosen alias.
func TableAs(name, alias string) *TableRef {
	return &TableRef{Name: name, Alias: alias, explicit: alias != ""}
}

// Qualifier returns the name columns are qualified with: the alias if any,
// the table name otherwise.
func (t *TableRef) Qualifier() string {
	if t.Alias != "" {
		return t.Alias
	}
	return t.Name
}

// Explicit reports whether the alias was supplied by the caller.
func (t *TableRef) Explicit() bool {
	return t.explicit
}

// TableSQL returns the SQL for use in FROM/JOIN clauses.
func (t *TableRef) TableSQL() string {
	if t.Alias != "" {
		return Ident(t.Name) + " " + Ident(t.Alias)
	}
	return Ident(t.Name)
}

// TableAlias returns the alias if any (empty string if none).
func (t *TableRef) TableAlias() string {
	return t.Alias
}

// SameTable reports whether both occurrences refer to the same table.
// Table names compare case-insensitively.
func (t *TableRef) SameTable(name string) bool {
	return strings.EqualFold(t.Name, name)
}

// Col returns a column of this occurrence.
func (t *TableRef) Col(name string) Col {
	return Col{Table: t, Column: name}
}

// Star returns "qualifier".*.
func (t *TableRef) Star() Star {
	return Star{Table: t}
}

func (t *TableRef) String() string {
	return t.TableSQL()
}
