// Package cache provides an in-memory cache of sampled orbit paths.
//
// Paths depend only on an orbit's shape, so entries are keyed by orbit.Shape
// and survive any number of phase changes. A background sweeper evicts paths
// that have not been read for IdleTTL, and the cache never holds more than
// Capacity paths; the least recently used one goes first.
package cache

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/star/orbitalator/internal/metrics"
	"github.com/star/orbitalator/internal/orbit"
)

// Config holds cache configuration.
type Config struct {
	Capacity      int           // Maximum cached paths (default: 64)
	SamplePoints  int           // Segments per path (default: orbit.DefaultPathPoints)
	IdleTTL       time.Duration // Evict paths unused for this long (default: 10m)
	SweepInterval time.Duration // How often the sweeper runs (default: 1m)
}

// DefaultConfig returns the default cache configuration.
func DefaultConfig() Config {
	return Config{
		Capacity:      64,
		SamplePoints:  orbit.DefaultPathPoints,
		IdleTTL:       10 * time.Minute,
		SweepInterval: time.Minute,
	}
}

// CacheEntry wraps a path with generation metadata.
type CacheEntry struct {
	Path        orbit.Path
	GeneratedAt time.Time
	lastUsed    atomic.Int64 // unix nanos
}

// PathCache is a shape-keyed cache of sampled paths.
// Safe for concurrent use by multiple goroutines. Returned paths are shared
// and must not be modified.
type PathCache struct {
	mu      sync.RWMutex
	entries map[orbit.Shape]*CacheEntry

	config Config
	logger *slog.Logger
	now    func() time.Time

	// Counters (lock-free).
	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// NewPathCache creates a new path cache. Zero config fields take their
// defaults.
func NewPathCache(config Config, logger *slog.Logger) *PathCache {
	def := DefaultConfig()
	if config.Capacity <= 0 {
		config.Capacity = def.Capacity
	}
	if config.SamplePoints <= 0 {
		config.SamplePoints = def.SamplePoints
	}
	if config.IdleTTL <= 0 {
		config.IdleTTL = def.IdleTTL
	}
	if config.SweepInterval <= 0 {
		config.SweepInterval = def.SweepInterval
	}

	logger.Info("path cache initialized",
		"capacity", config.Capacity,
		"sample_points", config.SamplePoints,
		"idle_ttl_seconds", config.IdleTTL.Seconds(),
	)

	return &PathCache{
		entries: make(map[orbit.Shape]*CacheEntry),
		config:  config,
		logger:  logger,
		now:     time.Now,
	}
}

// SamplePoints returns the number of segments per cached path.
func (c *PathCache) SamplePoints() int {
	return c.config.SamplePoints
}

// Get returns the cached path for a shape, or nil if not cached.
func (c *PathCache) Get(s orbit.Shape) orbit.Path {
	c.mu.RLock()
	entry, ok := c.entries[s]
	c.mu.RUnlock()

	if ok {
		entry.lastUsed.Store(c.now().UnixNano())
		c.hits.Add(1)
		metrics.IncPathCacheHits()
		return entry.Path
	}

	c.misses.Add(1)
	metrics.IncPathCacheMisses()
	return nil
}

// Path returns the sampled path of el, sampling and caching it on a miss.
// A degenerate orbit yields an empty path and is not cached.
func (c *PathCache) Path(el orbit.Elements) orbit.Path {
	if el.Degenerate() {
		return orbit.Path{}
	}
	s := el.Shape()
	if p := c.Get(s); p != nil {
		return p
	}
	p := orbit.SamplePath(el, c.config.SamplePoints)
	c.put(s, p)
	return p
}

// put stores a path in the cache. Caller must not hold mu.
func (c *PathCache) put(s orbit.Shape, p orbit.Path) {
	now := c.now()
	entry := &CacheEntry{Path: p, GeneratedAt: now}
	entry.lastUsed.Store(now.UnixNano())

	var evicted int
	c.mu.Lock()
	c.entries[s] = entry
	for len(c.entries) > c.config.Capacity {
		c.evictOldestLocked()
		evicted++
	}
	c.mu.Unlock()

	if evicted > 0 {
		c.evictions.Add(int64(evicted))
		metrics.AddPathCacheEvictions(evicted)
	}
	c.updateMetrics()
}

// evictOldestLocked removes the least recently used entry. Caller holds mu.
func (c *PathCache) evictOldestLocked() {
	var (
		oldestKey  orbit.Shape
		oldestUsed int64
		found      bool
	)
	for k, e := range c.entries {
		used := e.lastUsed.Load()
		if !found || used < oldestUsed {
			oldestKey, oldestUsed, found = k, used, true
		}
	}
	if found {
		delete(c.entries, oldestKey)
	}
}

// evictIdle removes entries not read within IdleTTL.
func (c *PathCache) evictIdle() int {
	cutoff := c.now().Add(-c.config.IdleTTL).UnixNano()
	var removed int

	c.mu.Lock()
	for k, e := range c.entries {
		if e.lastUsed.Load() < cutoff {
			delete(c.entries, k)
			removed++
		}
	}
	c.mu.Unlock()

	if removed > 0 {
		c.evictions.Add(int64(removed))
		metrics.AddPathCacheEvictions(removed)
		c.updateMetrics()
		c.logger.Debug("path cache eviction", "entries_removed", removed)
	}

	return removed
}

// Stats returns current cache statistics.
func (c *PathCache) Stats() CacheStats {
	c.mu.RLock()
	count := len(c.entries)
	var oldest time.Time
	for _, e := range c.entries {
		if oldest.IsZero() || e.GeneratedAt.Before(oldest) {
			oldest = e.GeneratedAt
		}
	}
	c.mu.RUnlock()

	return CacheStats{
		Entries:         count,
		Capacity:        c.config.Capacity,
		SizeBytes:       c.estimateSizeBytes(),
		OldestGenerated: oldest,
		Hits:            c.hits.Load(),
		Misses:          c.misses.Load(),
		Evictions:       c.evictions.Load(),
	}
}

// CacheStats holds cache statistics for the stats endpoint.
type CacheStats struct {
	Entries         int       `json:"entries"`
	Capacity        int       `json:"capacity"`
	SizeBytes       int64     `json:"size_bytes"`
	OldestGenerated time.Time `json:"oldest_generated"`
	Hits            int64     `json:"hits"`
	Misses          int64     `json:"misses"`
	Evictions       int64     `json:"evictions"`
}

// estimateSizeBytes returns a rough estimate of the cache memory footprint.
func (c *PathCache) estimateSizeBytes() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var total int64
	for _, entry := range c.entries {
		total += int64(cap(entry.Path)) * int64(unsafe.Sizeof(orbit.Position{}))
		// Slice header(24) + GeneratedAt(24) + lastUsed(8).
		total += 56
	}
	// Key: five float64s per shape.
	total += int64(len(c.entries)) * int64(unsafe.Sizeof(orbit.Shape{}))
	return total
}

// updateMetrics publishes current cache size to Prometheus.
func (c *PathCache) updateMetrics() {
	c.mu.RLock()
	count := len(c.entries)
	c.mu.RUnlock()

	metrics.SetPathCacheEntries(count)
}
