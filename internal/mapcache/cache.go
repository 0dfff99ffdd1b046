// Package mapcache implements Cortex's bounded in-memory Map cache
// (spec.md §4.11): freshness tracking over sealed Maps and a
// byte-budgeted LRU eviction policy. One cache-wide RWMutex guards all
// entries; there is no per-domain lock here, and in-flight mapping
// dedup is done by the Mapper's singleflight group, not by this package.
package mapcache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"

	"github.com/cortexmap/cortex/internal/mapmodel"
)

const defaultMaxBytes = 200 << 20 // 200MB default bound (spec.md §4.11)

// entryMeta mirrors the teacher's CacheMetadata freshness fields,
// repurposed from HTTP cache TTLs to Map freshness.
type entryMeta struct {
	mapObj    *mapmodel.Map
	createdAt time.Time
	sizeBytes int64
}

func (e *entryMeta) age() time.Duration { return time.Since(e.createdAt) }

// IsFresh mirrors the teacher's CacheMetadata.IsFresh: an entry is
// fresh while younger than maxAge.
func (e *entryMeta) isFresh(maxAge time.Duration) bool { return e.age() < maxAge }

// Cache is a bounded-bytes, byte-budget-evicting store of sealed Maps,
// keyed by normalized domain.
type Cache struct {
	mu        sync.RWMutex
	entries   *lru.Cache // domain -> *entryMeta
	maxBytes  int64
	usedBytes int64
	maxAge    time.Duration
	logger    *zap.Logger
}

// New creates a Cache. maxBytes <= 0 uses defaultMaxBytes. maxAge <= 0
// disables freshness checks (entries never expire on their own; the
// byte budget alone drives eviction).
func New(maxBytes int64, maxAge time.Duration, logger *zap.Logger) (*Cache, error) {
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	c := &Cache{maxBytes: maxBytes, maxAge: maxAge, logger: logger}
	// Unbounded item count: eviction is driven by usedBytes, not entry
	// count, so the underlying LRU's own capacity must never trigger
	// first. onEvict keeps usedBytes in sync: hashicorp/golang-lru calls
	// it for every Remove, RemoveOldest and Purge, so Put and Delete rely
	// on it rather than adjusting usedBytes themselves.
	entries, err := lru.NewWithEvict(1<<20, c.onEvict)
	if err != nil {
		return nil, err
	}
	c.entries = entries
	return c, nil
}

func (c *Cache) onEvict(key interface{}, value interface{}) {
	if meta, ok := value.(*entryMeta); ok {
		c.usedBytes -= meta.sizeBytes
	}
}

// Get returns the cached Map for domain and whether it exists at all
// (fresh or stale) — mirroring the teacher's GetCacheEntry returning
// (metadata, exists) so the caller decides what to do with a stale hit.
func (c *Cache) Get(domain string) (m *mapmodel.Map, fresh bool, exists bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	v, ok := c.entries.Get(domain)
	if !ok {
		return nil, false, false
	}
	meta := v.(*entryMeta)
	if c.maxAge <= 0 {
		return meta.mapObj, true, true
	}
	return meta.mapObj, meta.isFresh(c.maxAge), true
}

// Put inserts or replaces the cached Map for domain, evicting the
// least-recently-used entries until usedBytes fits within maxBytes.
func (c *Cache) Put(domain string, m *mapmodel.Map, sizeBytes int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries.Remove(domain) // onEvict subtracts the replaced entry's size

	c.entries.Add(domain, &entryMeta{mapObj: m, createdAt: time.Now(), sizeBytes: sizeBytes})
	c.usedBytes += sizeBytes

	for c.usedBytes > c.maxBytes {
		evictedKey, _, ok := c.entries.RemoveOldest()
		if !ok {
			break
		}
		c.logger.Debug("mapcache evicted entry", zap.Any("domain", evictedKey))
	}
}

// Delete removes domain's cached Map, if any.
func (c *Cache) Delete(domain string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Remove(domain) // onEvict subtracts the entry's size
}

// UsedBytes reports the cache's current byte usage, for the status RPC.
func (c *Cache) UsedBytes() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.usedBytes
}

// Len reports the number of cached domains.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries.Len()
}

// Domains lists every cached domain, for the status RPC's cached_maps.
func (c *Cache) Domains() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := c.entries.Keys()
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if s, ok := k.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Clear empties the cache entirely.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Purge()
	c.usedBytes = 0
}
