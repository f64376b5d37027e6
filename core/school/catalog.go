package school

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/darasa/portal/core"
)

var ErrCacheMiss = errors.New("cache entry not found")

// Cache is a byte store with TTLs and integer counters. Backed by Redis in
// production and an in-memory table in dev and tests.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Incr(ctx context.Context, key string) (int64, error)
}

// Cache families. Invalidation bumps a family's version counter, which
// retires every key under it at once; no scan-and-delete.
const (
	famCatalog     = "catalog"  // sessions, classes, sections, subjects
	famClassConfig = "classcfg" // per-class aggregates
	famStats       = "stats"    // dashboard stats
	famTasks       = "tasks"    // teacher dashboards
)

// envelope wraps a cached payload with its fetch time. Freshness is decided
// here, not by the store's TTL: the store retains entries longer so a stale
// copy can still serve reads while the school API is unreachable.
type envelope struct {
	FetchedAt time.Time       `json:"fetched_at"`
	Payload   json.RawMessage `json:"payload"`
}

// Catalog is the reference-data container: a read-through cache over the
// school API with per-family freshness windows.
type Catalog struct {
	api    Client
	cache  Cache
	logger core.Logger
	conf   *core.Config
}

func NewCatalog(api Client, cache Cache, logger core.Logger, conf *core.Config) *Catalog {
	return &Catalog{api: api, cache: cache, logger: logger, conf: conf}
}

// Long window: the slow-moving reference lists.

func (c *Catalog) Sessions(ctx context.Context, token string) ([]Session, error) {
	var out []Session
	err := c.cached(ctx, famCatalog, "sessions", c.conf.Cache.LongTTL, &out, func(ctx context.Context) (interface{}, error) {
		return c.api.Sessions(ctx, token)
	})
	return out, err
}

func (c *Catalog) Classes(ctx context.Context, token string) ([]Class, error) {
	var out []Class
	err := c.cached(ctx, famCatalog, "classes", c.conf.Cache.LongTTL, &out, func(ctx context.Context) (interface{}, error) {
		return c.api.Classes(ctx, token)
	})
	return out, err
}

func (c *Catalog) Sections(ctx context.Context, token string) ([]Section, error) {
	var out []Section
	err := c.cached(ctx, famCatalog, "sections", c.conf.Cache.LongTTL, &out, func(ctx context.Context) (interface{}, error) {
		return c.api.Sections(ctx, token)
	})
	return out, err
}

func (c *Catalog) Subjects(ctx context.Context, token string) ([]Subject, error) {
	var out []Subject
	err := c.cached(ctx, famCatalog, "subjects", c.conf.Cache.LongTTL, &out, func(ctx context.Context) (interface{}, error) {
		return c.api.Subjects(ctx, token)
	})
	return out, err
}

// Medium window: per-class aggregates.

func (c *Catalog) ClassConfig(ctx context.Context, token, classID string) (ClassConfig, error) {
	var out ClassConfig
	err := c.cached(ctx, famClassConfig, classID, c.conf.Cache.MediumTTL, &out, func(ctx context.Context) (interface{}, error) {
		return c.api.ClassConfig(ctx, token, classID)
	})
	return out, err
}

// Short window: the volatile dashboards.

func (c *Catalog) DashboardStats(ctx context.Context, token string) (DashboardStats, error) {
	var out DashboardStats
	err := c.cached(ctx, famStats, "dashboard", c.conf.Cache.ShortTTL, &out, func(ctx context.Context) (interface{}, error) {
		return c.api.DashboardStats(ctx, token)
	})
	return out, err
}

// MyAssignments is cached per teacher; the token's owner is identified by
// `teacherID` so teachers never see each other's cache rows.
func (c *Catalog) MyAssignments(ctx context.Context, token, teacherID string) (MyAssignments, error) {
	var out MyAssignments
	err := c.cached(ctx, famTasks, "asg:"+teacherID, c.conf.Cache.ShortTTL, &out, func(ctx context.Context) (interface{}, error) {
		return c.api.MyAssignments(ctx, token)
	})
	return out, err
}

func (c *Catalog) PendingTasks(ctx context.Context, token, teacherID string) (PendingTasks, error) {
	var out PendingTasks
	err := c.cached(ctx, famTasks, "tasks:"+teacherID, c.conf.Cache.ShortTTL, &out, func(ctx context.Context) (interface{}, error) {
		return c.api.PendingTasks(ctx, token)
	})
	return out, err
}

// Invalidation: one bump retires the whole family.

func (c *Catalog) InvalidateCatalog(ctx context.Context)     { c.bump(ctx, famCatalog) }
func (c *Catalog) InvalidateClassConfig(ctx context.Context) { c.bump(ctx, famClassConfig) }
func (c *Catalog) InvalidateStats(ctx context.Context)       { c.bump(ctx, famStats) }
func (c *Catalog) InvalidateTasks(ctx context.Context)       { c.bump(ctx, famTasks) }

func (c *Catalog) bump(ctx context.Context, family string) {
	if _, err := c.cache.Incr(ctx, "ver:"+family); err != nil {
		c.logger.Warn("bumping cache version", errors.Wrap(err, family))
	}
}

func (c *Catalog) version(ctx context.Context, family string) int64 {
	b, err := c.cache.Get(ctx, "ver:"+family)
	if err != nil {
		return 0
	}
	v, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// cached reads through the cache: a fresh hit skips the school API entirely,
// a stale hit re-fetches, and a fetch failure against an unreachable API
// falls back to the stale copy when one exists.
func (c *Catalog) cached(
	ctx context.Context,
	family, key string,
	window time.Duration,
	out interface{},
	fetch func(ctx context.Context) (interface{}, error),
) error {
	fullKey := fmt.Sprintf("%s:v%d:%s", family, c.version(ctx, family), key)

	var stale []byte
	if b, err := c.cache.Get(ctx, fullKey); err == nil {
		var env envelope
		if jerr := json.Unmarshal(b, &env); jerr == nil {
			if time.Since(env.FetchedAt) < window {
				return json.Unmarshal(env.Payload, out)
			}
			stale = env.Payload
		}
	} else if errors.Cause(err) != ErrCacheMiss {
		c.logger.Warn("reading cache", errors.Wrap(err, fullKey))
	}

	fetched, err := fetch(ctx)
	if err != nil {
		if core.IsUnavailable(err) && stale != nil {
			c.logger.Warn("serving stale cache entry", errors.Wrap(err, fullKey))
			return json.Unmarshal(stale, out)
		}
		return err
	}

	payload, err := json.Marshal(fetched)
	if err != nil {
		return errors.Wrap(err, "encoding cache payload")
	}
	env, err := json.Marshal(envelope{FetchedAt: time.Now().UTC(), Payload: payload})
	if err != nil {
		return errors.Wrap(err, "encoding cache envelope")
	}
	if err := c.cache.Set(ctx, fullKey, env, c.conf.Cache.Retention); err != nil {
		c.logger.Warn("writing cache", errors.Wrap(err, fullKey))
	}
	return json.Unmarshal(payload, out)
}
