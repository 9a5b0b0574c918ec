package introspect

import (
	"bytes"
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm/relq/schema"
)

func TestPostgres_Tables(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM information_schema.tables`).
		WithArgs("library").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).
			AddRow("authors").
			AddRow("books").
			AddRow("tags"))
	mock.ExpectQuery(`FROM information_schema.columns`).
		WithArgs("library").
		WillReturnRows(sqlmock.NewRows([]string{"table_name", "column_name"}).
			AddRow("authors", "id").
			AddRow("authors", "name").
			AddRow("books", "id").
			AddRow("books", "author_id").
			AddRow("books", "editor_id").
			AddRow("tags", "label"))
	mock.ExpectQuery(`'PRIMARY KEY'`).
		WithArgs("library").
		WillReturnRows(sqlmock.NewRows([]string{"table_name", "column_name"}).
			AddRow("authors", "id").
			AddRow("books", "id"))
	mock.ExpectQuery(`FROM information_schema.referential_constraints`).
		WithArgs("library").
		WillReturnRows(sqlmock.NewRows([]string{"table_name", "constraint_name", "column_name", "table_name", "column_name"}).
			AddRow("books", "books_author_fk", "author_id", "authors", "id").
			AddRow("books", "books_editor_fk", "editor_id", "authors", "id"))

	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)

	tables, err := Postgres(db, WithSchema("library"), WithLogger(logrus.NewEntry(logger))).Tables(context.Background())
	require.NoError(t, err)

	want := []schema.Table{
		{Name: "authors", PrimaryKey: []string{"id"}, Columns: []string{"id", "name"}},
		{
			Name:       "books",
			PrimaryKey: []string{"id"},
			Columns:    []string{"id", "author_id", "editor_id"},
			ForeignKeys: []schema.ForeignKey{
				{Columns: []string{"author_id"}, Table: "authors", References: []string{"id"}},
				{Columns: []string{"editor_id"}, Table: "authors", References: []string{"id"}},
			},
		},
		{Name: "tags", Columns: []string{"label"}, Keyless: true},
	}
	assert.Equal(t, want, tables)
	assert.Contains(t, buf.String(), "table has no primary key")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_DefaultSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`current_schema\(\)`).
		WithArgs("").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}))
	mock.ExpectQuery(`FROM information_schema.columns`).WithArgs("").WillReturnRows(sqlmock.NewRows([]string{"table_name", "column_name"}))
	mock.ExpectQuery(`'PRIMARY KEY'`).WithArgs("").WillReturnRows(sqlmock.NewRows([]string{"table_name", "column_name"}))
	mock.ExpectQuery(`referential_constraints`).WithArgs("").WillReturnRows(sqlmock.NewRows([]string{"a", "b", "c", "d", "e"}))

	tables, err := Postgres(db).Tables(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tables)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`information_schema.tables`).WillReturnError(assert.AnError)

	_, err = Postgres(db).Tables(context.Background())
	require.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "list tables")
}
