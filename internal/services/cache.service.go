package services

import (
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"xenocpu/internal/models"
)

const snapshotKey = "snapshot"

// MetricsCache holds the last system snapshot with a TTL, so the stats
// broadcast and HTTP readers don't each pay for a blocking sample.
// Concurrent misses share one fetch.
type MetricsCache struct {
	mu           sync.RWMutex
	snapshot     *models.SystemSnapshot
	snapshotTime time.Time
	ttl          time.Duration
	now          func() time.Time
	flight       singleflight.Group
}

// NewMetricsCache creates an empty cache
func NewMetricsCache(ttl time.Duration) *MetricsCache {
	return &MetricsCache{ttl: ttl, now: time.Now}
}

// isCacheValid checks if cache is still valid
func (mc *MetricsCache) isCacheValid(cacheTime time.Time) bool {
	return mc.now().Sub(cacheTime) < mc.ttl
}

func (mc *MetricsCache) cached() (*models.SystemSnapshot, bool) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	if mc.snapshot != nil && mc.isCacheValid(mc.snapshotTime) {
		return mc.snapshot, true
	}
	return nil, false
}

// GetSnapshot returns the cached snapshot if valid, otherwise calls fetch
// and caches its result. Callers missing at the same time wait for a single
// fetch. Errors are not cached.
func (mc *MetricsCache) GetSnapshot(fetch func() (*models.SystemSnapshot, error)) (*models.SystemSnapshot, error) {
	if snapshot, ok := mc.cached(); ok {
		return snapshot, nil
	}

	// Fetch outside the lock; sampling blocks for the sample interval
	result, err, _ := mc.flight.Do(snapshotKey, func() (interface{}, error) {
		if snapshot, ok := mc.cached(); ok {
			return snapshot, nil
		}
		snapshot, err := fetch()
		if err != nil {
			return nil, err
		}

		mc.mu.Lock()
		mc.snapshot = snapshot
		mc.snapshotTime = mc.now()
		mc.mu.Unlock()
		return snapshot, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.SystemSnapshot), nil
}

// Clear drops the cached snapshot
func (mc *MetricsCache) Clear() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.snapshot = nil
}
