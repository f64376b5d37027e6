package redisdb

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/darasa/portal/core/school"
)

const cacheKeyPrefix = "cache:"

type cache struct {
	rdb *redis.Client
}

var _ school.Cache = (*cache)(nil) // interface compliance check

func NewCache(rdb *redis.Client) *cache {
	return &cache{rdb: rdb}
}

func (c cache) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := c.rdb.Get(ctx, cacheKeyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, school.ErrCacheMiss
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading cache")
	}
	return b, nil
}

func (c cache) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, cacheKeyPrefix+key, val, ttl).Err(); err != nil {
		return errors.Wrap(err, "writing cache")
	}
	return nil
}

// Incr also works on missing keys, starting from zero; version counters
// never expire.
func (c cache) Incr(ctx context.Context, key string) (int64, error) {
	n, err := c.rdb.Incr(ctx, cacheKeyPrefix+key).Result()
	if err != nil {
		return 0, errors.Wrap(err, "bumping counter")
	}
	return n, nil
}
