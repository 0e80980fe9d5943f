// Package redis caches raw API response bodies of static lookups in Redis.
package redis

import (
	"context"
	stderrors "errors"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/focosview/focosview/internal/infrastructure/monitoring/logging"
	"github.com/focosview/focosview/pkg/errors"
)

// Metrics counts cache hits and misses.
type Metrics interface {
	CacheAccess(hit bool)
}

type nopMetrics struct{}

func (nopMetrics) CacheAccess(bool) {}

// Cache stores response bodies under a key prefix with a TTL. It satisfies
// client.ResponseCache.
type Cache struct {
	client  *Client
	logger  logging.Logger
	metrics Metrics
	prefix  string
	ttl     time.Duration
	jitter  bool
	reads   singleflight.Group
}

type CacheOption func(*Cache)

func WithPrefix(prefix string) CacheOption {
	return func(c *Cache) { c.prefix = prefix }
}

func WithTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithJitter spreads expirations by +/-10% of the TTL.
func WithJitter(on bool) CacheOption {
	return func(c *Cache) { c.jitter = on }
}

func WithMetrics(m Metrics) CacheOption {
	return func(c *Cache) {
		if m != nil {
			c.metrics = m
		}
	}
}

// NewCache returns a Cache with the "focos:" prefix and a one hour TTL.
func NewCache(client *Client, log logging.Logger, opts ...CacheOption) *Cache {
	if log == nil {
		log = logging.NewNopLogger()
	}
	c := &Cache{
		client:  client,
		logger:  log,
		metrics: nopMetrics{},
		prefix:  "focos:",
		ttl:     time.Hour,
		jitter:  true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) fullKey(key string) string {
	return c.prefix + key
}

func (c *Cache) expiry() time.Duration {
	if !c.jitter {
		return c.ttl
	}
	jitter := float64(c.ttl) * 0.1 * (rand.Float64()*2 - 1)
	return c.ttl + time.Duration(jitter)
}

// GetBody returns the cached body of key. Concurrent reads of one key share
// a single round trip.
func (c *Cache) GetBody(ctx context.Context, key string) ([]byte, bool, error) {
	if c.client.isClosed() {
		return nil, false, ErrClientClosed
	}
	fullKey := c.fullKey(key)
	v, err, _ := c.reads.Do(fullKey, func() (interface{}, error) {
		data, err := c.client.rdb.Get(ctx, fullKey).Bytes()
		if stderrors.Is(err, redis.Nil) {
			return []byte(nil), nil
		}
		return data, err
	})
	if err != nil {
		return nil, false, errors.Wrap(err, errors.ErrCodeCacheError, "failed to get from cache")
	}
	data := v.([]byte)
	c.metrics.CacheAccess(data != nil)
	if data == nil {
		return nil, false, nil
	}
	return data, true, nil
}

// SetBody stores body under key.
func (c *Cache) SetBody(ctx context.Context, key string, body []byte) error {
	if c.client.isClosed() {
		return ErrClientClosed
	}
	if err := c.client.rdb.Set(ctx, c.fullKey(key), body, c.expiry()).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to set cache")
	}
	return nil
}

// Purge deletes every key under the cache prefix and returns the count.
func (c *Cache) Purge(ctx context.Context) (int64, error) {
	var deleted int64
	var cursor uint64
	match := c.prefix + "*"
	for {
		keys, next, err := c.client.rdb.Scan(ctx, cursor, match, 100).Result()
		if err != nil {
			return deleted, errors.Wrap(err, errors.ErrCodeCacheError, "failed to scan cache")
		}
		if len(keys) > 0 {
			if err := c.client.rdb.Del(ctx, keys...).Err(); err != nil {
				return deleted, errors.Wrap(err, errors.ErrCodeCacheError, "failed to purge cache")
			}
			deleted += int64(len(keys))
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	c.logger.Info("cache purged", logging.Int64("keys", deleted))
	return deleted, nil
}

// Ping checks the backing server.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx)
}
