package sqlgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm/relq/internal/sqlgen/sqldsl"
	"github.com/pthm/relq/schema"
)

func TestAttach_AliasDeterminism(t *testing.T) {
	s := newABSchema(t)

	build := func() string {
		p := mustPlan(t, s.reg, "a")
		_, err := p.Attach(s.bs, Including())
		require.NoError(t, err)
		_, err = p.Attach(s.bs, Including())
		require.NoError(t, err)
		_, err = p.Attach(s.bs)
		require.NoError(t, err)
		return mustBuild(t, p).SQL
	}

	want := `SELECT "a".*, "b1".*, "b2".* FROM "a" ` +
		`JOIN "b" "b1" ON ("b1"."aid" = "a"."id") ` +
		`JOIN "b" "b2" ON ("b2"."aid" = "a"."id") ` +
		`JOIN "b" "b3" ON ("b3"."aid" = "a"."id")`
	assert.Equal(t, want, build())
	assert.Equal(t, want, build())
}

func TestAttach_ExplicitAliases(t *testing.T) {
	s := newABSchema(t)

	t.Run("excluded from numbering", func(t *testing.T) {
		p := mustPlan(t, s.reg, "a")
		mine, err := p.Attach(s.bs, As("mine"))
		require.NoError(t, err)
		first, err := p.Attach(s.bs)
		require.NoError(t, err)
		assert.Equal(t, "mine", mine.Qualifier())
		assert.Equal(t, "b", first.Qualifier())

		second, err := p.Attach(s.bs)
		require.NoError(t, err)
		assert.Equal(t, "b1", first.Qualifier())
		assert.Equal(t, "b2", second.Qualifier())
		assert.Equal(t, "mine", mine.Qualifier())
	})

	t.Run("collision with explicit alias", func(t *testing.T) {
		p := mustPlan(t, s.reg, "a")
		_, err := p.Attach(s.bs, As("x"))
		require.NoError(t, err)
		_, err = p.Attach(s.bs, As("x"))
		assert.True(t, schema.IsAliasCollisionErr(err), "got %v", err)
		assert.Len(t, p.Joins(), 1)
	})

	t.Run("collision with table name", func(t *testing.T) {
		p := mustPlan(t, s.reg, "a")
		_, err := p.Attach(s.bs, As("A"))
		assert.True(t, schema.IsAliasCollisionErr(err), "got %v", err)
	})

	t.Run("auto numbering skips taken names", func(t *testing.T) {
		p := mustPlan(t, s.reg, "a")
		_, err := p.Attach(s.bs, As("b1"))
		require.NoError(t, err)
		first, err := p.Attach(s.bs)
		require.NoError(t, err)
		second, err := p.Attach(s.bs)
		require.NoError(t, err)
		assert.Equal(t, "b2", first.Qualifier())
		assert.Equal(t, "b3", second.Qualifier())
	})

	t.Run("unaliased table clashing with an explicit alias", func(t *testing.T) {
		p := mustPlan(t, s.reg, "a")
		_, err := p.Attach(s.bs, As("b"))
		require.NoError(t, err)
		next, err := p.Attach(s.bs)
		require.NoError(t, err)
		assert.Equal(t, "b1", next.Qualifier())
	})
}

func TestAttach_SelfJoinRewritesRecordedColumns(t *testing.T) {
	s := newLibrarySchema(t)
	p := mustPlan(t, s.reg, "employees")
	require.NoError(t, p.Filter(col("name").Eq("Ada")))
	require.NoError(t, p.Order(col("name").Asc()))

	_, err := p.Attach(s.employeeBoss, Including())
	require.NoError(t, err)

	stmt := mustBuild(t, p)
	assert.Equal(t,
		`SELECT "employees1".*, "employees2".* FROM "employees" "employees1" `+
			`JOIN "employees" "employees2" ON ("employees2"."id" = "employees1"."managerId") `+
			`WHERE ("employees1"."name" = ?) ORDER BY "employees1"."name" ASC`,
		stmt.SQL)
	assert.Equal(t, []any{"Ada"}, stmt.Args)
}

func TestAttach_ThroughShapes(t *testing.T) {
	s := newLibrarySchema(t)
	libraryAuthors, err := s.reg.Through("authors", s.libraryBooks, s.bookAuthor)
	require.NoError(t, err)
	readerAvatar, err := s.reg.Through("avatar", s.readerProfile, s.profileAvatar)
	require.NoError(t, err)
	readerAuthors, err := s.reg.Through("authors", s.readerBooks, s.bookAuthor)
	require.NoError(t, err)

	tests := []struct {
		name  string
		root  string
		assoc *schema.Association
		kind  schema.Kind
		want  string
	}{
		{
			name:  "belongs-to then has-many",
			root:  "readers",
			assoc: s.readerBooks,
			kind:  schema.HasMany,
			want: `SELECT "readers".*, "books".* FROM "readers" ` +
				`JOIN "libraries" ON ("libraries"."id" = "readers"."libraryId") ` +
				`JOIN "books" ON ("books"."libraryId" = "libraries"."id")`,
		},
		{
			name:  "has-many then belongs-to",
			root:  "libraries",
			assoc: libraryAuthors,
			kind:  schema.HasMany,
			want: `SELECT "libraries".*, "authors".* FROM "libraries" ` +
				`JOIN "books" ON ("books"."libraryId" = "libraries"."id") ` +
				`JOIN "authors" ON ("authors"."id" = "books"."authorId")`,
		},
		{
			name:  "has-one then belongs-to",
			root:  "readers",
			assoc: readerAvatar,
			kind:  schema.HasOne,
			want: `SELECT "readers".*, "avatars".* FROM "readers" ` +
				`JOIN "profiles" ON ("profiles"."readerId" = "readers"."id") ` +
				`JOIN "avatars" ON ("avatars"."id" = "profiles"."avatarId")`,
		},
		{
			name:  "three hops flatten",
			root:  "readers",
			assoc: readerAuthors,
			kind:  schema.HasMany,
			want: `SELECT "readers".*, "authors".* FROM "readers" ` +
				`JOIN "libraries" ON ("libraries"."id" = "readers"."libraryId") ` +
				`JOIN "books" ON ("books"."libraryId" = "libraries"."id") ` +
				`JOIN "authors" ON ("authors"."id" = "books"."authorId")`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.assoc.Kind())

			p := mustPlan(t, s.reg, tt.root)
			ref, err := p.Attach(tt.assoc, Including())
			require.NoError(t, err)
			assert.Equal(t, tt.assoc.Target().Name, ref.Name)

			joins := p.Joins()
			require.Len(t, joins, len(tt.assoc.Hops()))
			for i, j := range joins {
				last := i == len(joins)-1
				assert.Equal(t, !last, j.Pivot, "join %d pivot", i)
				assert.Equal(t, last, j.Selected, "join %d selected", i)
			}
			assert.Equal(t, tt.want, mustBuild(t, p).SQL)
		})
	}
}

func TestAttach_ThroughHopFiltersStayOnTheirHop(t *testing.T) {
	s := newLibrarySchema(t)
	openLibrary := s.readerLibrary.Filter(col("open").Eq(true))
	longBooks := s.libraryBooks.Filter(col("pages").Gt(300))
	through, err := s.reg.Through("longBooks", openLibrary, longBooks)
	require.NoError(t, err)
	through = through.Filter(col("title").Like("A%"))

	p := mustPlan(t, s.reg, "readers")
	_, err = p.Attach(through)
	require.NoError(t, err)

	stmt := mustBuild(t, p)
	assert.Equal(t,
		`SELECT "readers".* FROM "readers" `+
			`JOIN "libraries" ON (("libraries"."id" = "readers"."libraryId") AND ("libraries"."open" = ?)) `+
			`JOIN "books" ON (("books"."libraryId" = "libraries"."id") AND ("books"."pages" > ?) AND ("books"."title" LIKE ?))`,
		stmt.SQL)
	assert.Equal(t, []any{true, 300, "A%"}, stmt.Args)
}

func TestAttach_JoinKinds(t *testing.T) {
	s := newLibrarySchema(t)
	optionalLibrary, err := s.reg.BelongsTo("readers", "libraries", schema.WithName("maybeLibrary"), schema.Optional())
	require.NoError(t, err)

	tests := []struct {
		name  string
		assoc *schema.Association
		opts  []AttachOption
		want  sqldsl.JoinType
	}{
		{"required by default", s.readerLibrary, nil, sqldsl.InnerJoin},
		{"optional association", optionalLibrary, nil, sqldsl.LeftJoin},
		{"forced left", s.readerLibrary, []AttachOption{OptionalJoin()}, sqldsl.LeftJoin},
		{"forced inner", optionalLibrary, []AttachOption{Required()}, sqldsl.InnerJoin},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := mustPlan(t, s.reg, "readers")
			_, err := p.Attach(tt.assoc, tt.opts...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Joins()[0].Kind)
		})
	}
}

func TestAttach_Chained(t *testing.T) {
	s := newLibrarySchema(t)
	p := mustPlan(t, s.reg, "readers")
	library, err := p.Attach(s.readerLibrary)
	require.NoError(t, err)
	_, err = p.AttachFrom(library, s.libraryBooks, Including(), OptionalJoin())
	require.NoError(t, err)

	assert.Equal(t,
		`SELECT "readers".*, "books".* FROM "readers" `+
			`JOIN "libraries" ON ("libraries"."id" = "readers"."libraryId") `+
			`LEFT JOIN "books" ON ("books"."libraryId" = "libraries"."id")`,
		mustBuild(t, p).SQL)
}

func TestAttach_Errors(t *testing.T) {
	s := newLibrarySchema(t)

	p := mustPlan(t, s.reg, "authors")
	_, err := p.Attach(s.libraryBooks)
	assert.True(t, schema.IsUnknownAssociationErr(err), "got %v", err)

	_, err = p.AttachFrom(sqldsl.Table("authors"), s.authorBooks)
	assert.True(t, schema.IsUnknownAssociationErr(err), "foreign occurrence: got %v", err)

	_, err = p.AttachNamed("shelves")
	assert.True(t, schema.IsUnknownAssociationErr(err), "got %v", err)

	ref, err := p.AttachNamed("books", Including())
	require.NoError(t, err)
	assert.Equal(t, "books", ref.Qualifier())

	_, err = NewPlan(s.reg, "nowhere")
	assert.ErrorIs(t, err, schema.ErrInvalidTable)
}

func TestNewPlanAs(t *testing.T) {
	s := newABSchema(t)
	p, err := NewPlanAs(s.reg, "a", "root")
	require.NoError(t, err)
	require.NoError(t, p.Annotate(Count(s.bs).As("n")))

	assert.Equal(t,
		`SELECT "root".*, COUNT("b"."id") AS "n" FROM "a" "root" LEFT JOIN "b" ON ("b"."aid" = "root"."id") GROUP BY "root"."id"`,
		mustBuild(t, p).SQL)
}
