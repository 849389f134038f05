package cache

import (
	"context"
	"time"

	"github.com/star/orbitalator/internal/orbit"
)

// Start runs the idle sweeper until ctx is cancelled.
func (c *PathCache) Start(ctx context.Context) {
	ticker := time.NewTicker(c.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("path cache sweeper stopped")
			return
		case <-ticker.C:
			c.evictIdle()
		}
	}
}

// Warm samples and caches the given orbits, stopping early if ctx is
// cancelled. Used at startup to prefill the paths of the preset catalog.
func (c *PathCache) Warm(ctx context.Context, orbits []orbit.Elements) int {
	start := time.Now()
	generated := 0

	for _, el := range orbits {
		select {
		case <-ctx.Done():
			return generated
		default:
		}
		if el.Degenerate() {
			continue
		}
		c.mu.RLock()
		_, ok := c.entries[el.Shape()]
		c.mu.RUnlock()
		if ok {
			continue
		}
		c.put(el.Shape(), orbit.SamplePath(el, c.config.SamplePoints))
		generated++
	}

	c.logger.Info("path cache warmup complete",
		"generated", generated,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return generated
}
