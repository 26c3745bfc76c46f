// Package cache memoizes search responses in an in-process LRU backed by an
// optional shared Redis tier. Keys carry the index fingerprint, so a reload
// never serves results computed against the previous index.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/resilience"
)

const keyPrefix = "search:"

// Status says where a response came from.
type Status string

const (
	StatusLocal Status = "local"
	StatusRedis Status = "redis"
	StatusMiss  Status = "miss"
)

// Key identifies a cached response.
type Key struct {
	Book        string
	Fingerprint string
	Query       string
	Bool        string
	Expand      *bool
	Boosts      map[string]float64
	Limit       int
}

// String hashes the normalized key.
func (k Key) String() string {
	var b strings.Builder
	b.WriteString(k.Book)
	b.WriteByte('|')
	b.WriteString(k.Fingerprint)
	b.WriteByte('|')
	b.WriteString(normalizeQuery(k.Query))
	b.WriteString("|bool=")
	b.WriteString(strings.ToUpper(k.Bool))
	if k.Expand != nil {
		b.WriteString("|expand=")
		b.WriteString(strconv.FormatBool(*k.Expand))
	}
	for _, name := range slices.Sorted(maps.Keys(k.Boosts)) {
		fmt.Fprintf(&b, "|%s^%g", name, k.Boosts[name])
	}
	fmt.Fprintf(&b, "|limit=%d", k.Limit)
	hash := sha256.Sum256([]byte(b.String()))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}

// QueryCache is safe for concurrent use.
type QueryCache struct {
	local    *expirable.LRU[string, *executor.SearchResult]
	client   *pkgredis.Client
	breaker  *resilience.CircuitBreaker
	redisTTL time.Duration
	group    singleflight.Group
	metrics  *metrics.Metrics
	logger   *slog.Logger
	hits     atomic.Int64
	misses   atomic.Int64
}

// New creates a cache. client may be nil for a process-local cache.
func New(cfg config.CacheConfig, client *pkgredis.Client, redisTTL time.Duration, m *metrics.Metrics) *QueryCache {
	size := cfg.Size
	if size <= 0 {
		size = 1024
	}
	return &QueryCache{
		local:    expirable.NewLRU[string, *executor.SearchResult](size, nil, cfg.TTL),
		client:   client,
		breaker:  resilience.NewCircuitBreaker("redis-cache", resilience.BreakerConfig{}),
		redisTTL: redisTTL,
		metrics:  m,
		logger:   slog.Default().With("component", "query-cache"),
	}
}

// Get looks key up in both tiers. A Redis hit is copied into the local tier.
func (c *QueryCache) Get(ctx context.Context, key Key) (*executor.SearchResult, Status) {
	k := key.String()
	if result, ok := c.local.Get(k); ok {
		c.hit(StatusLocal)
		return result, StatusLocal
	}
	if c.client != nil {
		var data []byte
		var found bool
		err := c.breaker.Execute(func() (err error) {
			data, found, err = c.client.Get(ctx, k)
			return err
		})
		switch {
		case errors.Is(err, resilience.ErrCircuitOpen):
			// redis is down, treat as a miss
		case err != nil:
			c.logger.Error("cache get failed", "key", k, "error", err)
		case found:
			var result executor.SearchResult
			if err := json.Unmarshal(data, &result); err != nil {
				c.logger.Error("cache unmarshal failed", "key", k, "error", err)
				break
			}
			c.local.Add(k, &result)
			c.hit(StatusRedis)
			return &result, StatusRedis
		}
	}
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
	return nil, StatusMiss
}

func (c *QueryCache) hit(tier Status) {
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.WithLabelValues(string(tier)).Inc()
	}
}

// Set stores result in both tiers.
func (c *QueryCache) Set(ctx context.Context, key Key, result *executor.SearchResult) {
	k := key.String()
	c.local.Add(k, result)
	if c.client == nil {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", k, "error", err)
		return
	}
	err = c.breaker.Execute(func() error {
		return c.client.Set(ctx, k, data, c.redisTTL)
	})
	if err != nil && !errors.Is(err, resilience.ErrCircuitOpen) {
		c.logger.Error("cache set failed", "key", k, "error", err)
	}
}

// GetOrCompute returns the cached response for key, or runs computeFn once
// for all concurrent callers missing the same key.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	key Key,
	computeFn func() (*executor.SearchResult, error),
) (*executor.SearchResult, Status, error) {
	if result, status := c.Get(ctx, key); status != StatusMiss {
		return result, status, nil
	}
	val, err, _ := c.group.Do(key.String(), func() (interface{}, error) {
		result, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, key, result)
		return result, nil
	})
	if err != nil {
		return nil, StatusMiss, err
	}
	return val.(*executor.SearchResult), StatusMiss, nil
}

// Invalidate empties the local tier and deletes every search key in Redis.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	c.local.Purge()
	if c.client == nil {
		c.logger.Info("cache invalidated")
		return nil
	}
	deleted, err := c.client.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Len is the number of entries in the local tier.
func (c *QueryCache) Len() int {
	return c.local.Len()
}

// normalizeQuery lowercases and collapses whitespace; analysis is
// case-insensitive and splits on whitespace, so such queries are equivalent.
func normalizeQuery(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}
