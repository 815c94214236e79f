// Package geospatial proxies VWorld basemap tiles and data API requests for
// map clients, with an in-memory tile cache.
package geospatial

import (
	"container/list"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// TileCache is a concurrency-safe LRU cache for raster tiles with TTL expiry.
type TileCache struct {
	mu         sync.Mutex
	entries    map[string]*list.Element
	lru        *list.List // front = most recently used
	maxEntries int
	ttl        time.Duration
	now        func() time.Time
	hits       atomic.Int64
	misses     atomic.Int64
	evictions  atomic.Int64
}

type tileEntry struct {
	key         string
	data        []byte
	contentType string
	storedAt    time.Time
}

// CacheStats contains cache performance statistics.
type CacheStats struct {
	Entries    int     `json:"entries"`
	MaxEntries int     `json:"max_entries"`
	Hits       int64   `json:"hits"`
	Misses     int64   `json:"misses"`
	Evictions  int64   `json:"evictions"`
	HitRate    float64 `json:"hit_rate"`
}

// NewTileCache creates a TileCache. maxEntries <= 0 disables caching.
func NewTileCache(maxEntries int, ttl time.Duration) *TileCache {
	return &TileCache{
		entries:    make(map[string]*list.Element),
		lru:        list.New(),
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        time.Now,
	}
}

func tileKey(layer string, z, x, y int) string {
	return layer + "/" + strconv.Itoa(z) + "/" + strconv.Itoa(x) + "/" + strconv.Itoa(y)
}

// Get returns a cached tile and its content type.
func (c *TileCache) Get(layer string, z, x, y int) ([]byte, string, bool) {
	key := tileKey(layer, z, x, y)

	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		c.misses.Add(1)
		return nil, "", false
	}
	e := el.Value.(*tileEntry)
	if c.ttl > 0 && c.now().Sub(e.storedAt) > c.ttl {
		c.removeElement(el)
		c.misses.Add(1)
		return nil, "", false
	}

	c.lru.MoveToFront(el)
	c.hits.Add(1)
	return e.data, e.contentType, true
}

// Put stores a tile, evicting the least recently used entry when full.
func (c *TileCache) Put(layer string, z, x, y int, data []byte, contentType string) {
	if c.maxEntries <= 0 {
		return
	}
	key := tileKey(layer, z, x, y)

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		e := el.Value.(*tileEntry)
		e.data, e.contentType, e.storedAt = data, contentType, c.now()
		c.lru.MoveToFront(el)
		return
	}

	for c.lru.Len() >= c.maxEntries {
		c.removeElement(c.lru.Back())
		c.evictions.Add(1)
	}

	e := &tileEntry{key: key, data: data, contentType: contentType, storedAt: c.now()}
	c.entries[key] = c.lru.PushFront(e)
}

// Invalidate drops every entry for layer.
func (c *TileCache) Invalidate(layer string) int {
	prefix := layer + "/"

	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for key, el := range c.entries {
		if strings.HasPrefix(key, prefix) {
			c.removeElement(el)
			n++
		}
	}
	return n
}

// Stats returns cache performance statistics.
func (c *TileCache) Stats() CacheStats {
	c.mu.Lock()
	entries := c.lru.Len()
	c.mu.Unlock()

	hits := c.hits.Load()
	misses := c.misses.Load()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return CacheStats{
		Entries:    entries,
		MaxEntries: c.maxEntries,
		Hits:       hits,
		Misses:     misses,
		Evictions:  c.evictions.Load(),
		HitRate:    hitRate,
	}
}

// removeElement must be called with mu held.
func (c *TileCache) removeElement(el *list.Element) {
	e := c.lru.Remove(el).(*tileEntry)
	delete(c.entries, e.key)
}
