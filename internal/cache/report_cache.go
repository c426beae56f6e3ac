// Package cache provides an in-memory TTL cache of finalized visibility
// reports.
//
// Entries expire after a fixed TTL and are swept by a background loop. When
// the catalog is reloaded every entry is dropped, since cached reports may
// describe objects whose positions or metadata changed.
package cache

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/star/skytonight/internal/metrics"
	"github.com/star/skytonight/internal/visibility"
)

// Config holds cache configuration.
type Config struct {
	TTL           time.Duration // how long a report is served (0 disables caching)
	MaxEntries    int           // oldest entries are evicted beyond this
	SweepInterval time.Duration // expiry sweep period
}

// VersionFunc reports the version of the data reports were computed from.
// A change drops every cached report.
type VersionFunc func() time.Time

// Entry wraps a report with cache bookkeeping.
type Entry struct {
	Report    *visibility.Report
	StoredAt  time.Time
	ExpiresAt time.Time
}

// ReportCache is an in-memory cache of reports keyed by normalized request.
// Safe for concurrent use by multiple goroutines.
type ReportCache struct {
	mu      sync.RWMutex
	entries map[string]*Entry

	config  Config
	version VersionFunc
	logger  *slog.Logger
	now     func() time.Time

	// Version the current entries were computed against.
	currentVersion time.Time

	// Counters (lock-free).
	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// New creates a report cache. version may be nil.
func New(config Config, version VersionFunc, logger *slog.Logger) *ReportCache {
	if config.MaxEntries <= 0 {
		config.MaxEntries = 256
	}
	if config.SweepInterval <= 0 {
		config.SweepInterval = time.Minute
	}
	logger = logger.With("component", "report_cache")
	logger.Info("cache initialized",
		"ttl_seconds", config.TTL.Seconds(),
		"max_entries", config.MaxEntries,
		"sweep_interval_seconds", config.SweepInterval.Seconds(),
	)

	c := &ReportCache{
		entries: make(map[string]*Entry),
		config:  config,
		version: version,
		logger:  logger,
		now:     time.Now,
	}
	if version != nil {
		c.currentVersion = version()
	}
	return c
}

// Key derives a stable cache key from a request. Coordinates are rounded to
// about ten meters; target order is kept because it fixes report order.
func Key(req visibility.Request) string {
	o := req.Observer
	var b strings.Builder
	fmt.Fprintf(&b, "%.4f|%.4f|%.0f|%t|%s|%.2f|",
		round4(o.LatitudeDeg), round4(o.LongitudeDeg), o.ElevationM, req.FixedElevation, o.Date, o.UTCOffsetHours)
	for i, t := range req.Targets {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(visibility.ParseTarget(t).Name)
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(b.String())).String()
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

// Enabled reports whether reports are cached at all.
func (c *ReportCache) Enabled() bool {
	return c.config.TTL > 0
}

// Get returns the cached report for key, if present and unexpired.
func (c *ReportCache) Get(key string) (*visibility.Report, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if ok && c.now().Before(entry.ExpiresAt) {
		c.hits.Add(1)
		metrics.RecordReportCache(true)
		return entry.Report, true
	}

	c.misses.Add(1)
	metrics.RecordReportCache(false)
	return nil, false
}

// Put stores a report. The oldest entry is evicted when the cache is full.
func (c *ReportCache) Put(key string, report *visibility.Report) {
	if !c.Enabled() || report == nil {
		return
	}
	now := c.now()
	entry := &Entry{Report: report, StoredAt: now, ExpiresAt: now.Add(c.config.TTL)}

	c.mu.Lock()
	var evicted int
	if _, exists := c.entries[key]; !exists {
		for len(c.entries) >= c.config.MaxEntries {
			c.evictOldestLocked()
			evicted++
		}
	}
	c.entries[key] = entry
	c.mu.Unlock()

	if evicted > 0 {
		c.evictions.Add(int64(evicted))
		metrics.AddReportCacheEvictions("capacity", evicted)
	}
	c.updateMetrics()
}

// evictOldestLocked drops the entry stored first. Caller must hold mu.
func (c *ReportCache) evictOldestLocked() {
	var (
		oldestKey string
		oldest    time.Time
	)
	for k, e := range c.entries {
		if oldestKey == "" || e.StoredAt.Before(oldest) {
			oldestKey, oldest = k, e.StoredAt
		}
	}
	delete(c.entries, oldestKey)
}

// evictExpired removes entries past their expiry.
func (c *ReportCache) evictExpired() int {
	now := c.now()
	var removed int

	c.mu.Lock()
	for k, e := range c.entries {
		if !now.Before(e.ExpiresAt) {
			delete(c.entries, k)
			removed++
		}
	}
	c.mu.Unlock()

	if removed > 0 {
		c.evictions.Add(int64(removed))
		metrics.AddReportCacheEvictions("expired", removed)
		c.updateMetrics()
		c.logger.Debug("cache eviction", "entries_removed", removed)
	}
	return removed
}

// Stats returns current cache statistics.
func (c *ReportCache) Stats() Stats {
	c.mu.RLock()
	count := len(c.entries)
	var oldest, newest time.Time
	for _, e := range c.entries {
		if oldest.IsZero() || e.StoredAt.Before(oldest) {
			oldest = e.StoredAt
		}
		if newest.IsZero() || e.StoredAt.After(newest) {
			newest = e.StoredAt
		}
	}
	c.mu.RUnlock()

	return Stats{
		Entries:    count,
		MaxEntries: c.config.MaxEntries,
		TTLSeconds: c.config.TTL.Seconds(),
		Oldest:     oldest,
		Newest:     newest,
		Hits:       c.hits.Load(),
		Misses:     c.misses.Load(),
		Evictions:  c.evictions.Load(),
	}
}

// Stats holds cache statistics for the stats endpoint.
type Stats struct {
	Entries    int       `json:"entries"`
	MaxEntries int       `json:"max_entries"`
	TTLSeconds float64   `json:"ttl_seconds"`
	Oldest     time.Time `json:"oldest"`
	Newest     time.Time `json:"newest"`
	Hits       int64     `json:"hits"`
	Misses     int64     `json:"misses"`
	Evictions  int64     `json:"evictions"`
}

// updateMetrics publishes the current cache size to Prometheus.
func (c *ReportCache) updateMetrics() {
	c.mu.RLock()
	count := len(c.entries)
	c.mu.RUnlock()

	metrics.SetReportCacheEntries(count)
}
