// Package cache keeps rendered blog detail views in Redis between writes.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rpupo63/inkwell-backend/database"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const DefaultTTL = 5 * time.Minute

// BlogCache holds blog detail views. Implementations never fail a request:
// errors are logged and treated as a miss.
//
// Every blog has a generation that Invalidate bumps. A miss reports the current
// generation and Set stamps the view with it, so a view loaded before an
// invalidation is never served after it.
type BlogCache interface {
	Get(ctx context.Context, blogID uuid.UUID) (view *database.BlogView, gen int64, hit bool)
	Set(ctx context.Context, view *database.BlogView, gen int64)
	Invalidate(ctx context.Context, blogID uuid.UUID)
}

// Noop is used when REDIS_ADDR is unset.
type Noop struct{}

func (Noop) Get(context.Context, uuid.UUID) (*database.BlogView, int64, bool) { return nil, 0, false }
func (Noop) Set(context.Context, *database.BlogView, int64)                   {}
func (Noop) Invalidate(context.Context, uuid.UUID)                            {}

type redisClient interface {
	MGet(ctx context.Context, keys ...string) *redis.SliceCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
}

type RedisCache struct {
	client  redisClient
	ttl     time.Duration
	observe func(hit bool)
	logger  zerolog.Logger
}

type Options struct {
	Addr     string
	Password string
	TTL      time.Duration
	// Observe is called on every lookup, for hit/miss metrics.
	Observe func(hit bool)
}

// NewRedisCache connects and pings the server.
func NewRedisCache(ctx context.Context, opts Options) (*RedisCache, *redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}
	return newRedisCache(client, opts.TTL, opts.Observe), client, nil
}

func newRedisCache(client redisClient, ttl time.Duration, observe func(bool)) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if observe == nil {
		observe = func(bool) {}
	}
	return &RedisCache{
		client:  client,
		ttl:     ttl,
		observe: observe,
		logger:  log.With().Str("component", "cache").Logger(),
	}
}

func blogKey(id uuid.UUID) string {
	return "inkwell:blog:" + id.String()
}

func genKey(id uuid.UUID) string {
	return "inkwell:blog:" + id.String() + ":gen"
}

type entry struct {
	Gen  int64             `json:"gen"`
	View database.BlogView `json:"view"`
}

func (c *RedisCache) Get(ctx context.Context, blogID uuid.UUID) (*database.BlogView, int64, bool) {
	vals, err := c.client.MGet(ctx, blogKey(blogID), genKey(blogID)).Result()
	if err != nil || len(vals) != 2 {
		c.logger.Warn().Err(err).Str("blogID", blogID.String()).Msg("cache read failed")
		c.observe(false)
		// -1 never matches a stored generation, so the caller's Set is dropped
		return nil, -1, false
	}

	var gen int64
	if raw, ok := vals[1].(string); ok {
		if gen, err = strconv.ParseInt(raw, 10, 64); err != nil {
			c.logger.Warn().Err(err).Str("blogID", blogID.String()).Msg("bad cache generation")
			c.observe(false)
			return nil, -1, false
		}
	}

	raw, ok := vals[0].(string)
	if !ok {
		c.observe(false)
		return nil, gen, false
	}
	var e entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		c.logger.Warn().Err(err).Str("blogID", blogID.String()).Msg("discarding undecodable cache entry")
		c.observe(false)
		return nil, gen, false
	}
	if e.Gen != gen {
		c.observe(false)
		return nil, gen, false
	}
	c.observe(true)
	return &e.View, gen, true
}

func (c *RedisCache) Set(ctx context.Context, view *database.BlogView, gen int64) {
	if gen < 0 {
		return
	}
	data, err := json.Marshal(entry{Gen: gen, View: *view})
	if err != nil {
		c.logger.Warn().Err(err).Msg("cache encode failed")
		return
	}
	if err := c.client.Set(ctx, blogKey(view.ID), data, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("blogID", view.ID.String()).Msg("cache write failed")
	}
}

// Invalidate bumps the generation before deleting, so a concurrent Set with the
// old generation leaves an entry that Get rejects.
func (c *RedisCache) Invalidate(ctx context.Context, blogID uuid.UUID) {
	if err := c.client.Incr(ctx, genKey(blogID)).Err(); err != nil {
		c.logger.Warn().Err(err).Str("blogID", blogID.String()).Msg("cache generation bump failed")
	}
	if err := c.client.Del(ctx, blogKey(blogID)).Err(); err != nil {
		c.logger.Warn().Err(err).Str("blogID", blogID.String()).Msg("cache invalidation failed")
	}
}

var (
	_ BlogCache = Noop{}
	_ BlogCache = (*RedisCache)(nil)
)
