package sqlgen

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pthm/relq/internal/sqlgen/sqldsl"
	"github.com/pthm/relq/schema"
)

func fk(table string, cols ...string) schema.ForeignKey {
	return schema.ForeignKey{Columns: cols, Table: table}
}

// abSchema is the two-table schema a(id), b(id, aid).
type abSchema struct {
	reg *schema.Registry
	bs  *schema.Association
}

func newABSchema(t *testing.T) abSchema {
	t.Helper()
	reg, err := schema.NewRegistry(
		schema.Table{Name: "a", PrimaryKey: []string{"id"}},
		schema.Table{Name: "b", PrimaryKey: []string{"id"}, ForeignKeys: []schema.ForeignKey{fk("a", "aid")}},
	)
	require.NoError(t, err)
	bs, err := reg.HasMany("a", "b", schema.WithName("bs"))
	require.NoError(t, err)
	return abSchema{reg: reg, bs: bs}
}

// librarySchema models readers, libraries, books and authors.
type librarySchema struct {
	reg *schema.Registry

	readerLibrary  *schema.Association // readers -> libraries
	libraryBooks   *schema.Association // libraries -> books
	libraryReaders *schema.Association // libraries -> readers
	bookAuthor     *schema.Association // books -> authors
	authorBooks    *schema.Association // authors -> books
	readerProfile  *schema.Association // readers -> profiles
	profileAvatar  *schema.Association // profiles -> avatars
	authorNotes    *schema.Association // authors -> notes (keyless)
	employeeBoss   *schema.Association // employees -> employees
	readerBooks    *schema.Association // readers -> libraries -> books
}

func newLibrarySchema(t *testing.T) librarySchema {
	t.Helper()
	reg, err := schema.NewRegistry(
		schema.Table{Name: "libraries", PrimaryKey: []string{"id"}},
		schema.Table{Name: "readers", PrimaryKey: []string{"id"}, ForeignKeys: []schema.ForeignKey{fk("libraries", "libraryId")}},
		schema.Table{
			Name:        "books",
			PrimaryKey:  []string{"id"},
			Columns:     []string{"id", "title", "pages", "libraryId", "authorId"},
			ForeignKeys: []schema.ForeignKey{fk("libraries", "libraryId"), fk("authors", "authorId")},
		},
		schema.Table{Name: "authors", PrimaryKey: []string{"id"}, Columns: []string{"id", "name"}},
		schema.Table{Name: "profiles", PrimaryKey: []string{"id"}, ForeignKeys: []schema.ForeignKey{fk("readers", "readerId"), fk("avatars", "avatarId")}},
		schema.Table{Name: "avatars", PrimaryKey: []string{"id"}},
		schema.Table{Name: "notes", Keyless: true, ForeignKeys: []schema.ForeignKey{fk("authors", "authorId")}},
		schema.Table{Name: "employees", PrimaryKey: []string{"id"}, ForeignKeys: []schema.ForeignKey{fk("employees", "managerId")}},
	)
	require.NoError(t, err)

	s := librarySchema{reg: reg}
	must := func(a *schema.Association, err error) *schema.Association {
		t.Helper()
		require.NoError(t, err)
		return a
	}
	s.readerLibrary = must(reg.BelongsTo("readers", "libraries"))
	s.libraryBooks = must(reg.HasMany("libraries", "books"))
	s.libraryReaders = must(reg.HasMany("libraries", "readers"))
	s.bookAuthor = must(reg.BelongsTo("books", "authors"))
	s.authorBooks = must(reg.HasMany("authors", "books"))
	s.readerProfile = must(reg.HasOne("readers", "profiles"))
	s.profileAvatar = must(reg.BelongsTo("profiles", "avatars"))
	s.authorNotes = must(reg.HasMany("authors", "notes"))
	s.employeeBoss = must(reg.BelongsTo("employees", "employees", schema.WithName("manager")))
	s.readerBooks = must(reg.Through("books", s.readerLibrary, s.libraryBooks))
	return s
}

func mustPlan(t *testing.T, reg *schema.Registry, table string) *Plan {
	t.Helper()
	p, err := NewPlan(reg, table)
	require.NoError(t, err)
	return p
}

func mustBuild(t *testing.T, p *Plan) Statement {
	t.Helper()
	stmt, err := p.Build()
	require.NoError(t, err)
	return stmt
}

// col is shorthand for a bare column.
func col(name string) sqldsl.Col {
	return sqldsl.Column(name)
}
