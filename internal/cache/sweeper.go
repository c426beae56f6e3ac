package cache

import (
	"context"
	"time"

	"github.com/star/skytonight/internal/metrics"
)

// Serve runs the maintenance loop: every SweepInterval it drops all entries
// if the catalog version changed, otherwise it evicts expired entries.
// Blocks until ctx is cancelled.
func (c *ReportCache) Serve(ctx context.Context) error {
	ticker := time.NewTicker(c.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("cache sweeper stopped")
			return ctx.Err()
		case <-ticker.C:
			c.tick()
		}
	}
}

// String names the service in supervisor logs.
func (c *ReportCache) String() string {
	return "report-cache"
}

// tick runs one iteration of the maintenance loop.
func (c *ReportCache) tick() {
	if c.versionChanged() {
		c.performCutover()
		return
	}
	c.evictExpired()
}

// versionChanged checks whether the catalog was reloaded since the cached
// reports were computed.
func (c *ReportCache) versionChanged() bool {
	if c.version == nil {
		return false
	}
	v := c.version()
	if v.IsZero() {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !v.Equal(c.currentVersion)
}

// performCutover drops every entry computed against the previous catalog.
func (c *ReportCache) performCutover() {
	v := c.version()

	c.mu.Lock()
	old := c.currentVersion
	removed := len(c.entries)
	c.entries = make(map[string]*Entry)
	c.currentVersion = v
	c.mu.Unlock()

	if removed > 0 {
		c.evictions.Add(int64(removed))
		metrics.AddReportCacheEvictions("catalog_changed", removed)
	}
	c.updateMetrics()

	c.logger.Info("catalog changed, report cache cleared",
		"old_catalog_loaded_at", old.UTC().Format(time.RFC3339),
		"new_catalog_loaded_at", v.UTC().Format(time.RFC3339),
		"entries_removed", removed,
	)
}
