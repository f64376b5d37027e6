package memdb

import (
	"context"
	"time"

	"github.com/darasa/portal/core/school"
)

type cache struct {
	db *cacheTable
}

var _ school.Cache = (*cache)(nil) // interface compliance check

func NewCache(db *DB) *cache {
	return &cache{db: db.cache}
}

func (c *cache) Get(ctx context.Context, key string) ([]byte, error) {
	c.db.RLock()
	entry, ok := c.db.table[key]
	c.db.RUnlock()

	if !ok {
		return nil, school.ErrCacheMiss
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		c.db.Lock()
		delete(c.db.table, key)
		c.db.Unlock()
		return nil, school.ErrCacheMiss
	}
	return entry.val, nil
}

func (c *cache) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	entry := cacheEntry{val: val}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}

	c.db.Lock()
	defer c.db.Unlock()
	c.db.table[key] = entry
	return nil
}

func (c *cache) Incr(ctx context.Context, key string) (int64, error) {
	c.db.Lock()
	defer c.db.Unlock()
	c.db.counters[key]++
	return c.db.counters[key], nil
}
