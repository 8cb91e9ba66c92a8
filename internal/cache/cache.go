// Package cache is the query cache shared by table bindings. Entries are
// keyed by (table, options...) tuples, expire after a TTL and are dropped by
// key prefix when a table changes.
package cache

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// Key identifies a cached query. The first element is the table name.
type Key []string

// NewKey builds a key from a table name and query options.
func NewKey(table string, opts ...string) Key {
	return append(Key{table}, opts...)
}

// Table returns the first element of the key.
func (k Key) Table() string {
	if len(k) == 0 {
		return ""
	}
	return k[0]
}

// HasPrefix reports whether k starts with every element of prefix.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i, p := range prefix {
		if k[i] != p {
			return false
		}
	}
	return true
}

func (k Key) String() string {
	return strings.Join(k, "\x1f")
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits    int64
	Misses  int64
	Entries int
}

type entry struct {
	key     Key
	value   any
	expires time.Time
}

// Cache is a TTL cache with per-table generations. A fetch that started
// before an invalidation of its table never repopulates the cache, and
// concurrent fetches of one key share a single call.
type Cache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]entry
	gens    map[string]uint64
	epoch   uint64 // bumped by a full clear

	group  singleflight.Group
	hits   atomic.Int64
	misses atomic.Int64
}

// DefaultTTL is used when New is given a non-positive TTL.
const DefaultTTL = 30 * time.Second

// New creates an empty cache.
func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]entry),
		gens:    make(map[string]uint64),
	}
}

// Get returns the cached value for key, calling fetch on a miss. Errors are
// never cached.
func (c *Cache) Get(ctx context.Context, key Key, fetch func(context.Context) (any, error)) (any, error) {
	id := key.String()

	c.mu.Lock()
	if e, ok := c.entries[id]; ok && c.now().Before(e.expires) {
		c.mu.Unlock()
		c.hits.Add(1)
		return e.value, nil
	}
	epoch, gen := c.epoch, c.gens[key.Table()]
	c.mu.Unlock()
	c.misses.Add(1)

	// Callers arriving after an invalidation must not join an older fetch.
	flight := strconv.FormatUint(epoch, 10) + "." + strconv.FormatUint(gen, 10) + "\x1e" + id
	v, err, _ := c.group.Do(flight, func() (any, error) {
		v, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if c.epoch == epoch && c.gens[key.Table()] == gen {
			c.entries[id] = entry{key: key, value: v, expires: c.now().Add(c.ttl)}
		}
		c.mu.Unlock()
		return v, nil
	})
	return v, err
}

// Fetch is Get with a typed result.
func Fetch[T any](ctx context.Context, c *Cache, key Key, fetch func(context.Context) (T, error)) (T, error) {
	v, err := c.Get(ctx, key, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// InvalidatePrefix drops every entry whose key starts with prefix and
// prevents in-flight fetches of the prefix's table from being stored. An
// empty prefix clears the whole cache.
func (c *Cache) InvalidatePrefix(prefix ...string) int {
	p := Key(prefix)

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(p) == 0 {
		n := len(c.entries)
		c.epoch++
		clear(c.entries)
		return n
	}

	c.gens[p.Table()]++
	n := 0
	for id, e := range c.entries {
		if e.key.HasPrefix(p) {
			delete(c.entries, id)
			n++
		}
	}
	return n
}

// Stats returns the current counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	n := len(c.entries)
	c.mu.Unlock()
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load(), Entries: n}
}
