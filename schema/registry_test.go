package schema_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm/relq/internal/sqlgen/sqldsl"
	"github.com/pthm/relq/schema"
)

func libraryRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	reg, err := schema.NewRegistry(
		schema.Table{Name: "libraries", PrimaryKey: []string{"id"}},
		schema.Table{
			Name:        "readers",
			PrimaryKey:  []string{"id"},
			ForeignKeys: []schema.ForeignKey{{Columns: []string{"libraryId"}, Table: "libraries"}},
		},
		schema.Table{
			Name:        "books",
			PrimaryKey:  []string{"id"},
			ForeignKeys: []schema.ForeignKey{{Columns: []string{"libraryId"}, Table: "libraries"}},
		},
	)
	require.NoError(t, err)
	return reg
}

func TestBelongsTo_InfersMapping(t *testing.T) {
	reg := libraryRegistry(t)

	a, err := reg.BelongsTo("readers", "libraries")
	require.NoError(t, err)

	assert.Equal(t, "library", a.Name())
	assert.Equal(t, schema.BelongsTo, a.Kind())
	assert.Equal(t, []schema.KeyPair{{Origin: "libraryId", Target: "id"}}, a.Mapping())
	assert.Equal(t, "readers", a.Origin().Name)
	assert.Equal(t, "libraries", a.Target().Name)
	assert.False(t, a.IsThrough())
}

func TestHasMany_InfersInverseMapping(t *testing.T) {
	reg := libraryRegistry(t)

	a, err := reg.HasMany("libraries", "books")
	require.NoError(t, err)

	assert.Equal(t, "books", a.Name())
	assert.Equal(t, []schema.KeyPair{{Origin: "id", Target: "libraryId"}}, a.Mapping())

	one, err := reg.HasOne("libraries", "readers", schema.WithName("headReader"))
	require.NoError(t, err)
	assert.Equal(t, "headReader", one.Name())
	assert.Equal(t, schema.HasOne, one.Kind())
}

func TestForeignKeyResolution(t *testing.T) {
	reg, err := schema.NewRegistry(
		schema.Table{Name: "people", PrimaryKey: []string{"id"}},
		schema.Table{Name: "countries", PrimaryKey: []string{"code"}},
		schema.Table{
			Name:       "passports",
			PrimaryKey: []string{"id"},
			ForeignKeys: []schema.ForeignKey{
				{Columns: []string{"holderId"}, Table: "people"},
				{Columns: []string{"issuerId"}, Table: "people"},
			},
		},
	)
	require.NoError(t, err)

	_, err = reg.BelongsTo("passports", "people")
	assert.True(t, errors.Is(err, schema.ErrAmbiguousForeignKey), "got %v", err)

	_, err = reg.BelongsTo("passports", "countries")
	assert.True(t, errors.Is(err, schema.ErrMissingForeignKey), "got %v", err)

	holder, err := reg.BelongsTo("passports", "people", schema.WithForeignKey("holderId"), schema.WithName("holder"))
	require.NoError(t, err)
	assert.Equal(t, []schema.KeyPair{{Origin: "holderId", Target: "id"}}, holder.Mapping())

	country, err := reg.BelongsTo("passports", "countries",
		schema.WithForeignKey("countryCode"), schema.WithPrimaryKey("code"), schema.Optional())
	require.NoError(t, err)
	assert.Equal(t, "country", country.Name())
	assert.True(t, country.IsOptional())
	assert.Equal(t, []schema.KeyPair{{Origin: "countryCode", Target: "code"}}, country.Mapping())

	_, err = reg.BelongsTo("passports", "people", schema.WithForeignKey("issuerId"), schema.WithName("holder"))
	assert.True(t, errors.Is(err, schema.ErrDuplicateAssociation), "got %v", err)
}

func TestThrough(t *testing.T) {
	reg := libraryRegistry(t)
	library, err := reg.BelongsTo("readers", "libraries")
	require.NoError(t, err)
	books, err := reg.HasMany("libraries", "books")
	require.NoError(t, err)
	readers, err := reg.HasMany("libraries", "readers")
	require.NoError(t, err)

	t.Run("two hops", func(t *testing.T) {
		a, err := reg.Through("books", library, books)
		require.NoError(t, err)
		assert.True(t, a.IsThrough())
		assert.Equal(t, schema.HasMany, a.Kind())
		assert.Equal(t, "readers", a.Origin().Name)
		assert.Equal(t, "books", a.Target().Name)
		assert.Equal(t, []*schema.Association{library, books}, a.Hops())
		assert.Equal(t, []string{"libraryId"}, a.OriginColumns())
	})

	t.Run("flattens nested chains", func(t *testing.T) {
		peers, err := reg.Through("peers", library, readers)
		require.NoError(t, err)
		peerLibrary, err := reg.Through("peerLibraries", peers, library)
		require.NoError(t, err)
		assert.Equal(t, []*schema.Association{library, readers, library}, peerLibrary.Hops())
		assert.Equal(t, schema.HasMany, peerLibrary.Kind())
	})

	t.Run("target must start at pivot", func(t *testing.T) {
		bookLibrary, err := reg.BelongsTo("books", "libraries")
		require.NoError(t, err)
		_, err = reg.Through("bookPeer", bookLibrary, library)
		assert.True(t, schema.IsInvalidThroughChainErr(err), "got %v", err)
	})

	t.Run("mismatched pivot", func(t *testing.T) {
		_, err := reg.Through("broken", books, library)
		assert.True(t, schema.IsInvalidThroughChainErr(err), "got %v", err)
	})
}

func TestAssociationTo(t *testing.T) {
	reg, err := schema.NewRegistry(
		schema.Table{Name: "a", PrimaryKey: []string{"id"}},
		schema.Table{Name: "b", PrimaryKey: []string{"id"}},
	)
	require.NoError(t, err)

	a, err := reg.AssociationTo("a", "b", func(origin, target *sqldsl.TableRef) sqldsl.Expr {
		return sqldsl.Eq(origin.Col("foo"), target.Col("bar"))
	})
	require.NoError(t, err)
	assert.Equal(t, "b", a.Name())
	assert.Empty(t, a.Mapping())
	require.NotNil(t, a.Condition())

	_, err = reg.AssociationTo("a", "b", nil, schema.WithName("other"))
	assert.True(t, errors.Is(err, schema.ErrMissingForeignKey))
}

func TestDerivation(t *testing.T) {
	reg := libraryRegistry(t)
	books, err := reg.HasMany("libraries", "books")
	require.NoError(t, err)

	filtered := books.Filter(sqldsl.Column("title").IsNotNull())
	ordered := filtered.Order(sqldsl.Column("title").Asc()).Named("titledBooks")

	assert.NotSame(t, books, filtered)
	assert.Empty(t, books.Filters())
	assert.Len(t, filtered.Filters(), 1)
	assert.Empty(t, filtered.Ordering())
	assert.Len(t, ordered.Ordering(), 1)
	assert.Equal(t, "books", filtered.Name())
	assert.Equal(t, "titledBooks", ordered.Name())

	got, err := reg.Association("libraries", "books")
	require.NoError(t, err)
	assert.Same(t, books, got)
}

func TestRegistry_Lookup(t *testing.T) {
	reg := libraryRegistry(t)
	_, err := reg.HasMany("libraries", "books")
	require.NoError(t, err)
	_, err = reg.HasMany("libraries", "readers")
	require.NoError(t, err)

	tbl, ok := reg.Table("LIBRARIES")
	require.True(t, ok)
	assert.Equal(t, "libraries", tbl.Name)

	names := []string{}
	for _, a := range reg.Associations("libraries") {
		names = append(names, a.Name())
	}
	assert.Equal(t, []string{"books", "readers"}, names)

	_, err = reg.Association("libraries", "shelves")
	assert.True(t, schema.IsUnknownAssociationErr(err))

	_, err = reg.BelongsTo("readers", "nowhere")
	assert.True(t, errors.Is(err, schema.ErrInvalidTable))

	assert.Panics(t, func() { reg.MustTable("nowhere") })
}

func TestRegistry_Validate(t *testing.T) {
	tests := []struct {
		name    string
		tables  []schema.Table
		wantErr bool
	}{
		{
			name:   "valid",
			tables: []schema.Table{{Name: "a", PrimaryKey: []string{"id"}}, {Name: "log", Keyless: true}},
		},
		{
			name: "unknown referenced table",
			tables: []schema.Table{{
				Name:        "a",
				PrimaryKey:  []string{"id"},
				ForeignKeys: []schema.ForeignKey{{Columns: []string{"bid"}, Table: "b"}},
			}},
			wantErr: true,
		},
		{
			name: "arity mismatch",
			tables: []schema.Table{
				{Name: "b", PrimaryKey: []string{"x", "y"}},
				{Name: "a", PrimaryKey: []string{"id"}, ForeignKeys: []schema.ForeignKey{{Columns: []string{"bid"}, Table: "b"}}},
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, err := schema.NewRegistry(tt.tables...)
			require.NoError(t, err)
			err = reg.Validate()
			if tt.wantErr {
				assert.True(t, errors.Is(err, schema.ErrInvalidTable), "got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTable_Validate(t *testing.T) {
	_, err := schema.NewRegistry(schema.Table{Name: ""})
	assert.True(t, errors.Is(err, schema.ErrInvalidTable))

	_, err = schema.NewRegistry(schema.Table{Name: "a"})
	assert.True(t, errors.Is(err, schema.ErrInvalidTable))

	_, err = schema.NewRegistry(schema.Table{Name: "a", PrimaryKey: []string{"id"}}, schema.Table{Name: "A", PrimaryKey: []string{"id"}})
	assert.True(t, errors.Is(err, schema.ErrInvalidTable))

	keyless := schema.Table{Name: "log", Keyless: true}
	assert.NoError(t, keyless.Validate())
	assert.Equal(t, []string{schema.RowID}, keyless.RowKey())
}

func TestRegistry_ConcurrentReads(t *testing.T) {
	reg := libraryRegistry(t)
	_, err := reg.HasMany("libraries", "books")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a, err := reg.Association("libraries", "books")
			assert.NoError(t, err)
			assert.Equal(t, "books", a.Target().Name)
		}()
	}
	wg.Wait()
}
