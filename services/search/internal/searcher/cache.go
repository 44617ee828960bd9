package searcher

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultCacheSize = 10
	DefaultCacheTTL  = 10 * time.Minute
)

// BuildFunc constructs the searcher of a tenant.
type BuildFunc func(ctx context.Context, tenant string) (*Searcher, error)

// Cache holds at most size searchers, each evicted after ttl without use.
// Concurrent misses for one tenant share a single construction. A
// construction that overlaps an invalidation is handed to its waiters but
// never cached.
type Cache struct {
	items  *ttlcache.Cache[string, *Searcher]
	flight singleflight.Group
	build  BuildFunc
	logger *slog.Logger

	mu  sync.Mutex
	gen uint64
}

// NewCache creates a cache. Non-positive size or ttl select the defaults.
func NewCache(size int, ttl time.Duration, build BuildFunc, logger *slog.Logger) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	c := &Cache{
		items: ttlcache.New[string, *Searcher](
			ttlcache.WithTTL[string, *Searcher](ttl),
			ttlcache.WithCapacity[string, *Searcher](uint64(size)),
		),
		build:  build,
		logger: logger,
	}
	c.items.OnEviction(func(_ context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[string, *Searcher]) {
		SearchersEvicted.WithLabelValues(evictionReason(reason)).Inc()
		c.logger.Debug("searcher evicted", slog.String("tenant", item.Key()))
	})
	return c
}

// Start launches the expiry loop. It runs until Stop is called.
func (c *Cache) Start() {
	go c.items.Start()
}

// Stop ends the expiry loop.
func (c *Cache) Stop() {
	c.items.Stop()
}

// Get returns the searcher of tenant, building it on a miss. A caller
// whose ctx ends stops waiting; the construction itself continues and its
// result is cached for later callers.
func (c *Cache) Get(ctx context.Context, tenant string) (*Searcher, error) {
	if item := c.items.Get(tenant); item != nil {
		CacheLookups.WithLabelValues("hit").Inc()
		return item.Value(), nil
	}
	CacheLookups.WithLabelValues("miss").Inc()

	gen := c.generation()
	ch := c.flight.DoChan(tenant+"@"+strconv.FormatUint(gen, 10), func() (any, error) {
		if item := c.items.Get(tenant); item != nil {
			return item.Value(), nil
		}
		s, err := c.build(context.WithoutCancel(ctx), tenant)
		if err != nil {
			return nil, err
		}
		SearchersBuilt.Inc()
		if !c.store(tenant, s, gen) {
			c.logger.Info("searcher outdated by invalidation, not cached", slog.String("tenant", tenant))
			return s, nil
		}
		c.logger.Info("searcher created", slog.String("tenant", tenant))
		return s, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("get searcher for %s: %w", tenant, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Searcher), nil
	}
}

func (c *Cache) generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// store caches s unless an invalidation happened since gen was read.
func (c *Cache) store(tenant string, s *Searcher, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return false
	}
	c.items.Set(tenant, s, ttlcache.DefaultTTL)
	return true
}

// Invalidate drops the searcher of tenant. Constructions already running
// are not cached.
func (c *Cache) Invalidate(tenant string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.items.Delete(tenant)
}

// InvalidateAll drops every searcher.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.items.DeleteAll()
}

// Len returns the number of cached searchers.
func (c *Cache) Len() int {
	return c.items.Len()
}

func evictionReason(r ttlcache.EvictionReason) string {
	switch r {
	case ttlcache.EvictionReasonExpired:
		return "expired"
	case ttlcache.EvictionReasonCapacityReached:
		return "capacity"
	default:
		return "deleted"
	}
}
