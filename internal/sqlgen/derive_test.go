package sqlgen

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm/relq/internal/sqlgen/sqldsl"
	"github.com/pthm/relq/schema"
)

func TestOrderIndependence(t *testing.T) {
	s := newLibrarySchema(t)
	sorted := s.authorBooks.Order(col("title").Asc())

	type step func(p *Plan) error
	filter := func(p *Plan) error { return p.Filter(col("name").Eq("Ursula")) }
	order := func(p *Plan) error { return p.Order(col("name").Desc()) }
	attach := func(p *Plan) error {
		_, err := p.Attach(sorted, Including())
		return err
	}
	count := func(p *Plan) error { return p.Filter(Count(s.authorBooks).Gt(1)) }
	annotate := func(p *Plan) error { return p.Annotate(Count(s.authorBooks).As("bookCount")) }

	tests := []struct {
		name  string
		a, b  []step
		wantS string
	}{
		{
			name: "filter before or after attach",
			a:    []step{filter, attach},
			b:    []step{attach, filter},
			wantS: `SELECT "authors".*, "books".* FROM "authors" ` +
				`JOIN "books" ON ("books"."authorId" = "authors"."id") ` +
				`WHERE ("authors"."name" = ?) ORDER BY "books"."title" ASC`,
		},
		{
			name: "order before or after attach",
			a:    []step{order, attach},
			b:    []step{attach, order},
		},
		{
			name: "count filter before or after plain filter",
			a:    []step{count, filter},
			b:    []step{filter, count},
		},
		{
			name: "annotation interleaved with filter",
			a:    []step{annotate, filter, count},
			b:    []step{filter, count, annotate},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run := func(steps []step) Statement {
				p := mustPlan(t, s.reg, "authors")
				for _, st := range steps {
					require.NoError(t, st(p))
				}
				return mustBuild(t, p)
			}
			a, b := run(tt.a), run(tt.b)
			assert.Equal(t, a.SQL, b.SQL)
			assert.Equal(t, a.Args, b.Args)
			if tt.wantS != "" {
				assert.Equal(t, tt.wantS, a.SQL)
			}
		})
	}
}

func TestFilter_RoutesAggregatesToHaving(t *testing.T) {
	s := newLibrarySchema(t)
	p := mustPlan(t, s.reg, "authors")
	require.NoError(t, p.Filter(sqldsl.And(
		col("name").Like("U%"),
		Count(s.authorBooks).Gte(2),
		col("id").Gt(10),
	)))

	stmt := mustBuild(t, p)
	assert.Equal(t,
		`SELECT "authors".* FROM "authors" LEFT JOIN "books" ON ("books"."authorId" = "authors"."id") `+
			`WHERE (("authors"."name" LIKE ?) AND ("authors"."id" > ?)) `+
			`GROUP BY "authors"."id" HAVING (COUNT("books"."id") >= 2)`,
		stmt.SQL)
	assert.Equal(t, []any{"U%", 10}, stmt.Args)
}

func TestFilter_UnsignedThresholdKeepsItsValue(t *testing.T) {
	s := newLibrarySchema(t)
	p := mustPlan(t, s.reg, "authors")
	require.NoError(t, p.Filter(Count(s.authorBooks).Gt(uint64(math.MaxUint64))))

	assert.Equal(t,
		`SELECT "authors".* FROM "authors" LEFT JOIN "books" ON ("books"."authorId" = "authors"."id") `+
			`GROUP BY "authors"."id" HAVING (COUNT("books"."id") > 18446744073709551615)`,
		mustBuild(t, p).SQL)
}

func TestFilter_BindsLexically(t *testing.T) {
	s := newLibrarySchema(t)
	p := mustPlan(t, s.reg, "authors")
	require.NoError(t, p.Filter(col("id").Eq(1)))
	books, err := p.Attach(s.authorBooks)
	require.NoError(t, err)
	require.NoError(t, p.Filter(col("id").Gt(0)))
	require.NoError(t, p.FilterOn(books, col("id").Lt(100)))

	stmt := mustBuild(t, p)
	assert.Equal(t,
		`SELECT "authors".* FROM "authors" JOIN "books" ON ("books"."authorId" = "authors"."id") `+
			`WHERE (("authors"."id" = ?) AND ("authors"."id" > ?) AND ("books"."id" < ?))`,
		stmt.SQL)
	assert.Equal(t, []any{1, 0, 100}, stmt.Args)
}

func TestArgsFollowPlaceholders(t *testing.T) {
	s := newABSchema(t)
	p := mustPlan(t, s.reg, "a")
	require.NoError(t, p.Filter(col("x").Eq("where")))
	_, err := p.Attach(s.bs.Filter(col("name").Eq("join")))
	require.NoError(t, err)
	require.NoError(t, p.Having(sqldsl.Gt(sqldsl.Max(col("n")), sqldsl.Value("having"))))
	require.NoError(t, p.Order(sqldsl.OrderBy(sqldsl.Call("coalesce", col("y"), sqldsl.Value("order")))))

	stmt := mustBuild(t, p)
	assert.Equal(t, []any{"join", "where", "having", "order"}, stmt.Args)
	assert.Equal(t,
		`SELECT "a".* FROM "a" JOIN "b" ON (("b"."aid" = "a"."id") AND ("b"."name" = ?)) `+
			`WHERE ("a"."x" = ?) GROUP BY "a"."id" HAVING (MAX("a"."n") > ?) ORDER BY coalesce("a"."y", ?)`,
		stmt.SQL)
}

func TestColumn(t *testing.T) {
	s := newLibrarySchema(t)
	p := mustPlan(t, s.reg, "authors")
	_, err := p.Attach(s.authorBooks)
	require.NoError(t, err)

	title, err := p.Column("title")
	require.NoError(t, err)
	assert.Equal(t, `"books"."title"`, title.SQL())

	name, err := p.Column("name")
	require.NoError(t, err)
	assert.Equal(t, `"authors"."name"`, name.SQL())

	undeclared, err := p.Column("nickname")
	require.NoError(t, err)
	assert.Equal(t, `"authors"."nickname"`, undeclared.SQL())

	_, err = p.Column("id")
	assert.True(t, schema.IsAmbiguousColumnErr(err), "got %v", err)
}

func TestOrder_RequestBeforeAssociation(t *testing.T) {
	s := newLibrarySchema(t)
	p := mustPlan(t, s.reg, "authors")
	books, err := p.Attach(s.authorBooks.Order(col("title").Desc()), Including())
	require.NoError(t, err)
	require.NoError(t, p.OrderOn(books, col("pages").Asc()))
	require.NoError(t, p.Order(sqldsl.OrderBy(col("name"))))

	assert.Equal(t,
		`SELECT "authors".*, "books".* FROM "authors" JOIN "books" ON ("books"."authorId" = "authors"."id") `+
			`ORDER BY "books"."pages" ASC, "authors"."name", "books"."title" DESC`,
		mustBuild(t, p).SQL)
}

func TestAnnotate(t *testing.T) {
	s := newLibrarySchema(t)

	t.Run("reuses the aggregate join", func(t *testing.T) {
		p := mustPlan(t, s.reg, "authors")
		require.NoError(t, p.Annotate(Count(s.authorBooks).As("bookCount")))
		require.NoError(t, p.Filter(Count(s.authorBooks).Gt(0)))
		require.NoError(t, p.Order(Count(s.authorBooks).Desc()))

		stmt := mustBuild(t, p)
		assert.Equal(t,
			`SELECT "authors".*, COUNT("books"."id") AS "bookCount" FROM "authors" `+
				`LEFT JOIN "books" ON ("books"."authorId" = "authors"."id") `+
				`GROUP BY "authors"."id" HAVING (COUNT("books"."id") > 0) ORDER BY COUNT("books"."id") DESC`,
			stmt.SQL)
		assert.Equal(t, []Segment{
			{Kind: SegmentTable, Table: "authors", Qualifier: "authors"},
			{Kind: SegmentAnnotation, Table: "books", Qualifier: "books", Label: "bookCount"},
		}, stmt.Segments)
	})

	t.Run("other aggregate functions", func(t *testing.T) {
		p := mustPlan(t, s.reg, "authors")
		require.NoError(t, p.Annotate(
			Sum(s.authorBooks, "pages").As("pages"),
			Max(s.authorBooks, "pages"),
			Min(s.authorBooks, "pages"),
			Avg(s.authorBooks, "pages"),
		))
		assert.Equal(t,
			`SELECT "authors".*, SUM("books"."pages") AS "pages", MAX("books"."pages"), MIN("books"."pages"), AVG("books"."pages") `+
				`FROM "authors" LEFT JOIN "books" ON ("books"."authorId" = "authors"."id") GROUP BY "authors"."id"`,
			mustBuild(t, p).SQL)
	})

	t.Run("keyless target counts rowid", func(t *testing.T) {
		p := mustPlan(t, s.reg, "authors")
		require.NoError(t, p.Annotate(Count(s.authorNotes)))
		assert.Equal(t,
			`SELECT "authors".*, COUNT("notes"."rowid") FROM "authors" LEFT JOIN "notes" ON ("notes"."authorId" = "authors"."id") GROUP BY "authors"."id"`,
			mustBuild(t, p).SQL)
	})

	t.Run("through association", func(t *testing.T) {
		p := mustPlan(t, s.reg, "readers")
		require.NoError(t, p.Annotate(Count(s.readerBooks)))
		assert.Equal(t,
			`SELECT "readers".*, COUNT("books"."id") FROM "readers" `+
				`LEFT JOIN "libraries" ON ("libraries"."id" = "readers"."libraryId") `+
				`LEFT JOIN "books" ON ("books"."libraryId" = "libraries"."id") GROUP BY "readers"."id"`,
			mustBuild(t, p).SQL)
	})

	t.Run("from a joined occurrence", func(t *testing.T) {
		p := mustPlan(t, s.reg, "readers")
		library, err := p.Attach(s.readerLibrary, Including())
		require.NoError(t, err)
		require.NoError(t, p.Annotate(Count(s.libraryBooks).From(library).As("libraryBooks")))
		assert.Equal(t,
			`SELECT "readers".*, "libraries".*, COUNT("books"."id") AS "libraryBooks" FROM "readers" `+
				`JOIN "libraries" ON ("libraries"."id" = "readers"."libraryId") `+
				`LEFT JOIN "books" ON ("books"."libraryId" = "libraries"."id") GROUP BY "readers"."id"`,
			mustBuild(t, p).SQL)
	})

	t.Run("wrong origin", func(t *testing.T) {
		p := mustPlan(t, s.reg, "authors")
		err := p.Annotate(Count(s.libraryBooks))
		assert.True(t, schema.IsUnknownAssociationErr(err), "got %v", err)
		err = p.Filter(Count(s.libraryBooks).Gt(0))
		assert.True(t, schema.IsUnknownAssociationErr(err), "got %v", err)
	})
}

func TestSelectGroupByLimit(t *testing.T) {
	s := newLibrarySchema(t)
	p := mustPlan(t, s.reg, "books")
	require.NoError(t, p.Select(col("authorId"), sqldsl.As(sqldsl.Count(col("id")), "n")))
	p.GroupBy(col("authorId"))
	p.Limit(10, 20)

	stmt := mustBuild(t, p)
	assert.Equal(t,
		`SELECT "books"."authorId", COUNT("books"."id") AS "n" FROM "books" GROUP BY "books"."authorId" LIMIT 10 OFFSET 20`,
		stmt.SQL)
	assert.Equal(t, []Segment{{Kind: SegmentExpr}, {Kind: SegmentExpr, Label: "n"}}, stmt.Segments)

	p.Limit(-1)
	_, err := p.Build()
	assert.Error(t, err)

	p.Limit(0, 10)
	_, err = p.Build()
	assert.ErrorContains(t, err, "offset 10 requires a limit")
}

func TestKeylessRootGroupsByRowID(t *testing.T) {
	reg, err := schema.NewRegistry(
		schema.Table{Name: "events", Keyless: true},
		schema.Table{Name: "tags", PrimaryKey: []string{"id"}, ForeignKeys: []schema.ForeignKey{
			{Columns: []string{"eventId"}, Table: "events", References: []string{"rowid"}},
		}},
	)
	require.NoError(t, err)
	tags, err := reg.HasMany("events", "tags")
	require.NoError(t, err)

	p := mustPlan(t, reg, "events")
	require.NoError(t, p.Annotate(Count(tags)))
	assert.Equal(t,
		`SELECT "events".*, COUNT("tags"."id") FROM "events" LEFT JOIN "tags" ON ("tags"."eventId" = "events"."rowid") GROUP BY "events"."rowid"`,
		mustBuild(t, p).SQL)
}
