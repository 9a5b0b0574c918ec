package relq

import (
	"context"
	"database/sql"
	"sync"
	"time"
)

// stmtEntry is one prepared statement held by the cache.
type stmtEntry struct {
	stmt      *sql.Stmt
	expiresAt time.Time // zero means no expiry
}

// StmtCache holds prepared statements keyed by their SQL text.
// Prepare is safe for concurrent use from multiple goroutines.
//
// A statement replaced after its TTL may still be in use by a caller that
// fetched it earlier, so it is retired rather than closed and stays open
// until Clear. Clear closes everything and must not run while queries on
// cached statements are in flight.
//
// Prepared statements belong to the Querier that prepared them, so a cache
// should only be shared by Runners over the same *sql.DB. Statements prepared
// on a *sql.Tx are closed by the database when the transaction ends; do not
// keep such a cache past the transaction.
type StmtCache struct {
	mu    sync.RWMutex
	items   map[string]stmtEntry
	retired []*sql.Stmt
	ttl     time.Duration // 0 means no expiry
}

// CacheOption configures a StmtCache.
type CacheOption func(*StmtCache)

// WithTTL sets how long a prepared statement is reused.
// Expired statements are prepared again on next use; the old ones are
// closed by Clear.
// A TTL of 0 (default) keeps statements until Clear.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *StmtCache) {
		c.ttl = ttl
	}
}

// NewStmtCache creates an empty statement cache.
func NewStmtCache(opts ...CacheOption) *StmtCache {
	c := &StmtCache{
		items: make(map[string]stmtEntry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Prepare returns the cached statement for query, preparing it with q when
// it is absent or expired.
func (c *StmtCache) Prepare(ctx context.Context, q Querier, query string) (*sql.Stmt, error) {
	c.mu.RLock()
	entry, ok := c.items[query]
	c.mu.RUnlock()

	if ok && !c.expired(entry) {
		return entry.stmt, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another goroutine may have prepared it while we waited.
	if entry, ok := c.items[query]; ok {
		if !c.expired(entry) {
			return entry.stmt, nil
		}
		c.retired = append(c.retired, entry.stmt)
		delete(c.items, query)
	}

	stmt, err := q.PrepareContext(ctx, query)
	if err != nil {
		return nil, err
	}

	entry = stmtEntry{stmt: stmt}
	if c.ttl > 0 {
		entry.expiresAt = time.Now().Add(c.ttl)
	}
	c.items[query] = entry
	return stmt, nil
}

func (c *StmtCache) expired(e stmtEntry) bool {
	return !e.expiresAt.IsZero() && time.Now().After(e.expiresAt)
}

// Size returns the number of live cached statements, not counting retired
// ones.
func (c *StmtCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Clear closes and removes every cached and retired statement.
// Returns the first error reported while closing.
func (c *StmtCache) Clear() error {
	c.mu.Lock()
	items, retired := c.items, c.retired
	c.items = make(map[string]stmtEntry)
	c.retired = nil
	c.mu.Unlock()

	for _, e := range items {
		retired = append(retired, e.stmt)
	}
	var first error
	for _, stmt := range retired {
		if err := stmt.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
