package data

import (
	"strings"
	"sync"
	"time"

	"facet/internal/schema"
)

// Cache is an explicit, injected result cache — created at application start,
// closed at shutdown (or test teardown), never a package-level singleton.
// Entries are fresh for the stale window and eligible for eviction after the
// GC window of disuse.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	stale   time.Duration
	gc      time.Duration

	done  chan struct{}
	close sync.Once
}

type entry struct {
	value   any
	fetched time.Time
	used    time.Time
}

func NewCache(cfg schema.CacheConfig) *Cache {
	c := &Cache{
		entries: make(map[string]*entry),
		stale:   cfg.StaleTime,
		gc:      cfg.GCTime,
		done:    make(chan struct{}),
	}
	if c.gc > 0 {
		go c.janitor()
	}
	return c
}

func (c *Cache) janitor() {
	t := time.NewTicker(c.gc)
	defer t.Stop()
	for {
		select {
		case <-c.done:
			return
		case now := <-t.C:
			c.Sweep(now)
		}
	}
}

// Key builds a cache key from (entity, operation, args).
func Key(entity, op, args string) string {
	return strings.Join([]string{entity, op, args}, "/")
}

// Fresh returns the cached value if it is still within the stale window, and
// marks it used.
func (c *Cache) Fresh(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entries[key]
	if e == nil {
		return nil, false
	}
	now := time.Now()
	if now.Sub(e.fetched) > c.stale {
		return nil, false
	}
	e.used = now
	return e.value, true
}

func (c *Cache) Put(key string, v any) {
	now := time.Now()
	c.mu.Lock()
	c.entries[key] = &entry{value: v, fetched: now, used: now}
	c.mu.Unlock()
}

func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Sweep evicts entries unused for longer than the GC window.
func (c *Cache) Sweep(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.entries {
		if now.Sub(e.used) > c.gc {
			delete(c.entries, k)
		}
	}
}

func (c *Cache) Close() {
	c.close.Do(func() { close(c.done) })
}
