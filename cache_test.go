package relq

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func TestStmtCache_ConcurrentPrepare(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPrepare("SELECT 1")

	cache := NewStmtCache()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cache.Prepare(context.Background(), db, "SELECT 1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, cache.Size())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStmtCache_TTL(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPrepare("SELECT 1").WillBeClosed()
	mock.ExpectPrepare("SELECT 1").WillBeClosed()

	cache := NewStmtCache(WithTTL(time.Millisecond))
	first, err := cache.Prepare(context.Background(), db, "SELECT 1")
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	second, err := cache.Prepare(context.Background(), db, "SELECT 1")
	require.NoError(t, err)
	assert.NotSame(t, first, second, "expired statement is prepared again")
	assert.Equal(t, 1, cache.Size())

	require.NoError(t, cache.Clear())
	assert.Equal(t, 0, cache.Size())
	assert.NoError(t, mock.ExpectationsWereMet(), "Clear closes retired statements too")
}

func TestStmtCache_ExpiredStatementStaysUsable(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()

	cache := NewStmtCache(WithTTL(time.Millisecond))
	held, err := cache.Prepare(ctx, db, "SELECT 1")
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	replacement, err := cache.Prepare(ctx, db, "SELECT 1")
	require.NoError(t, err)
	require.NotSame(t, held, replacement)

	var n int
	require.NoError(t, held.QueryRowContext(ctx).Scan(&n), "a statement fetched before expiry keeps working")
	assert.Equal(t, 1, n)
	require.NoError(t, replacement.QueryRowContext(ctx).Scan(&n))

	require.NoError(t, cache.Clear())
	assert.Error(t, held.QueryRowContext(ctx).Scan(&n), "Clear closes retired statements")
}

func TestStmtCache_PrepareError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPrepare("SELECT nope").WillReturnError(assert.AnError)

	cache := NewStmtCache()
	_, err = cache.Prepare(context.Background(), db, "SELECT nope")
	require.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 0, cache.Size(), "failed prepares are not cached")
}
