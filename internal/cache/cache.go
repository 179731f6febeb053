// Package cache keeps the most recent successful (or best-effort partial)
// report so consumers can fall back to it when a collection cycle fails
// entirely. It uses patrickmn/go-cache for TTL-based expiry.
package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/finopshub/advisor/pkg/recommend"
)

const latestKey = "latest-report"

// ReportCache stores the last usable report.
type ReportCache struct {
	store *gocache.Cache
}

// New creates a report cache with the given TTL. Expired reports are
// treated as absent: stale data must not masquerade as current.
func New(ttl, cleanupInterval time.Duration) *ReportCache {
	return &ReportCache{
		store: gocache.New(ttl, cleanupInterval),
	}
}

// Put stores the latest report with the default TTL.
func (c *ReportCache) Put(report *recommend.Report) {
	c.store.Set(latestKey, report, gocache.DefaultExpiration)
}

// Latest returns the cached report, or nil when none is available.
func (c *ReportCache) Latest() *recommend.Report {
	v, ok := c.store.Get(latestKey)
	if !ok {
		return nil
	}
	report, ok := v.(*recommend.Report)
	if !ok {
		return nil
	}
	return report
}

// Clear drops the cached report.
func (c *ReportCache) Clear() {
	c.store.Delete(latestKey)
}
