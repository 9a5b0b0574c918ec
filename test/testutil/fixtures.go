package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/pthm/relq"
)

// Author is a row of authors.
type Author struct {
	ID   int64
	Name string
}

// Library is a row of libraries.
type Library struct {
	ID   int64
	City string
}

// Reader is a row of readers.
type Reader struct {
	ID        int64
	Name      string
	LibraryID int64
}

// Book is a row of books.
type Book struct {
	ID        int64
	Title     string
	Pages     int64
	AuthorID  int64
	LibraryID int64
}

// Dataset is a generated library. Tests compute expected results from it
// and compare them to what compiled queries return.
type Dataset struct {
	Authors   []Author
	Libraries []Library
	Readers   []Reader
	Books     []Book
}

// Size bounds a generated dataset.
type Size struct {
	Authors   int
	Libraries int
	Readers   int
	// MaxBooks is the largest number of books per author. Authors get
	// between zero and MaxBooks books.
	MaxBooks int
}

// Generate builds a deterministic dataset from seed.
func Generate(seed uint64, size Size) Dataset {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	var d Dataset
	for i := 1; i <= size.Libraries; i++ {
		d.Libraries = append(d.Libraries, Library{ID: int64(i), City: fmt.Sprintf("city_%d", i)})
	}
	for i := 1; i <= size.Authors; i++ {
		d.Authors = append(d.Authors, Author{ID: int64(i), Name: fmt.Sprintf("author_%d", i)})
	}
	for i := 1; i <= size.Readers; i++ {
		d.Readers = append(d.Readers, Reader{
			ID:        int64(i),
			Name:      fmt.Sprintf("reader_%d", i),
			LibraryID: int64(rng.IntN(size.Libraries) + 1),
		})
	}

	id := int64(0)
	for _, a := range d.Authors {
		for range rng.IntN(size.MaxBooks + 1) {
			id++
			d.Books = append(d.Books, Book{
				ID:        id,
				Title:     fmt.Sprintf("book_%d", id),
				Pages:     int64(rng.IntN(500) + 1),
				AuthorID:  a.ID,
				LibraryID: int64(rng.IntN(size.Libraries) + 1),
			})
		}
	}
	return d
}

// BooksBy returns the books written by author.
func (d Dataset) BooksBy(author int64) []Book {
	var out []Book
	for _, b := range d.Books {
		if b.AuthorID == author {
			out = append(out, b)
		}
	}
	return out
}

// BooksIn returns the books held by library.
func (d Dataset) BooksIn(library int64) []Book {
	var out []Book
	for _, b := range d.Books {
		if b.LibraryID == library {
			out = append(out, b)
		}
	}
	return out
}

// Fixtures inserts datasets with batched multi-row INSERTs.
type Fixtures struct {
	db      *sql.DB
	dialect relq.Dialect
	ctx     context.Context
}

// NewFixtures creates a Fixtures instance. Statements are written with ?
// placeholders and rebound for dialect.
func NewFixtures(ctx context.Context, db *sql.DB, dialect relq.Dialect) *Fixtures {
	return &Fixtures{db: db, dialect: dialect, ctx: ctx}
}

// Insert writes every row of d, parents first.
func (f *Fixtures) Insert(d Dataset) error {
	libraries := make([][]any, len(d.Libraries))
	for i, l := range d.Libraries {
		libraries[i] = []any{l.ID, l.City}
	}
	authors := make([][]any, len(d.Authors))
	for i, a := range d.Authors {
		authors[i] = []any{a.ID, a.Name}
	}
	readers := make([][]any, len(d.Readers))
	for i, r := range d.Readers {
		readers[i] = []any{r.ID, r.Name, r.LibraryID}
	}
	books := make([][]any, len(d.Books))
	for i, b := range d.Books {
		books[i] = []any{b.ID, b.Title, b.Pages, b.AuthorID, b.LibraryID}
	}

	steps := []struct {
		table   string
		columns []string
		rows    [][]any
	}{
		{"libraries", []string{"id", "city"}, libraries},
		{"authors", []string{"id", "name"}, authors},
		{"readers", []string{"id", "name", "library_id"}, readers},
		{"books", []string{"id", "title", "pages", "author_id", "library_id"}, books},
	}
	for _, s := range steps {
		if err := f.insert(s.table, s.columns, s.rows); err != nil {
			return fmt.Errorf("insert %s: %w", s.table, err)
		}
	}
	return nil
}

// insert writes rows in batches of 200.
func (f *Fixtures) insert(table string, columns []string, rows [][]any) error {
	const batchSize = 200

	tuple := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ") + ")"
	for start := 0; start < len(rows); start += batchSize {
		end := min(start+batchSize, len(rows))

		tuples := make([]string, 0, end-start)
		args := make([]any, 0, (end-start)*len(columns))
		for _, row := range rows[start:end] {
			tuples = append(tuples, tuple)
			args = append(args, row...)
		}

		query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
			table, strings.Join(columns, ", "), strings.Join(tuples, ", "))
		if _, err := f.db.ExecContext(f.ctx, f.dialect.Rebind(query), args...); err != nil {
			return fmt.Errorf("batch %d-%d: %w", start, end, err)
		}
	}
	return nil
}
