package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"xenocpu/internal/config"
	"xenocpu/internal/models"
)

// SnapshotSource supplies the readings the history collector records
type SnapshotSource interface {
	CachedSnapshot(ctx context.Context) *models.SystemSnapshot
}

// HistoryCollector manages time-series metric data
type HistoryCollector struct {
	mu               sync.RWMutex
	loadHistory      []models.LoadHistory
	frequencyHistory []models.FrequencyHistory
	benchmarkHistory []models.BenchmarkResult
	maxDataPoints    int
	interval         time.Duration

	source SnapshotSource
	log    *zap.SugaredLogger
	now    func() time.Time

	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewHistoryCollector creates a collector. source may be nil when only
// benchmark results are recorded.
func NewHistoryCollector(cfg config.HistoryConfig, source SnapshotSource, log *zap.SugaredLogger) *HistoryCollector {
	return &HistoryCollector{
		loadHistory:      []models.LoadHistory{},
		frequencyHistory: []models.FrequencyHistory{},
		benchmarkHistory: []models.BenchmarkResult{},
		maxDataPoints:    cfg.MaxPoints,
		interval:         cfg.Interval,
		source:           source,
		log:              log,
		now:              time.Now,
	}
}

// Start begins sampling every interval until Stop
func (hc *HistoryCollector) Start() {
	hc.mu.Lock()
	if hc.running || hc.source == nil {
		hc.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	hc.running = true
	hc.cancel = cancel
	hc.done = make(chan struct{})
	done := hc.done
	hc.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(hc.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				hc.collectSnapshot(ctx)
			}
		}
	}()

	hc.log.Infow("history collector started", "interval", hc.interval)
}

// Stop stops the collector and waits for an in-flight sample to finish
func (hc *HistoryCollector) Stop() {
	hc.mu.Lock()
	if !hc.running {
		hc.mu.Unlock()
		return
	}
	hc.running = false
	cancel, done := hc.cancel, hc.done
	hc.mu.Unlock()

	cancel()
	<-done
	hc.log.Infow("history collector stopped")
}

// collectSnapshot takes one reading. Sampling happens outside the lock;
// it blocks for the sample interval.
func (hc *HistoryCollector) collectSnapshot(ctx context.Context) {
	snapshot := hc.source.CachedSnapshot(ctx)
	if snapshot == nil {
		return
	}
	now := hc.now()

	hc.mu.Lock()
	defer hc.mu.Unlock()

	if snapshot.Hardware.HasLoad() {
		hc.loadHistory = appendBounded(hc.loadHistory, models.LoadHistory{
			Timestamp: now,
			Load:      snapshot.Hardware.CPULoadPercent,
		}, hc.maxDataPoints)
	}
	if snapshot.Hardware.HasFrequency() {
		hc.frequencyHistory = appendBounded(hc.frequencyHistory, models.FrequencyHistory{
			Timestamp: now,
			MHz:       snapshot.Hardware.CPUFrequencyMHz,
		}, hc.maxDataPoints)
	}
}

// RecordBenchmark keeps a finished benchmark result
func (hc *HistoryCollector) RecordBenchmark(result models.BenchmarkResult) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.benchmarkHistory = appendBounded(hc.benchmarkHistory, result, hc.maxDataPoints)
}

func appendBounded[T any](s []T, v T, limit int) []T {
	s = append(s, v)
	if len(s) > limit {
		s = s[len(s)-limit:]
	}
	return s
}

// GetHistoricalData returns historical data for the specified metric and duration
// metric: "load", "frequency", "benchmark"
// Returns nil for an unknown metric.
func (hc *HistoryCollector) GetHistoricalData(metric string, duration time.Duration) interface{} {
	hc.mu.RLock()
	defer hc.mu.RUnlock()

	cutoffTime := hc.now().Add(-duration)

	switch metric {
	case "load":
		filtered := []models.LoadHistory{}
		for _, h := range hc.loadHistory {
			if h.Timestamp.After(cutoffTime) {
				filtered = append(filtered, h)
			}
		}
		return filtered

	case "frequency":
		filtered := []models.FrequencyHistory{}
		for _, h := range hc.frequencyHistory {
			if h.Timestamp.After(cutoffTime) {
				filtered = append(filtered, h)
			}
		}
		return filtered

	case "benchmark":
		filtered := []models.BenchmarkResult{}
		for _, h := range hc.benchmarkHistory {
			if h.StartedAt.After(cutoffTime) {
				filtered = append(filtered, h)
			}
		}
		return filtered

	default:
		return nil
	}
}

// GetAllHistoricalData returns all historical data as a window
func (hc *HistoryCollector) GetAllHistoricalData(duration time.Duration) models.HistoricalDataWindow {
	window := models.HistoricalDataWindow{}
	window.Load, _ = hc.GetHistoricalData("load", duration).([]models.LoadHistory)
	window.Frequency, _ = hc.GetHistoricalData("frequency", duration).([]models.FrequencyHistory)
	window.Benchmarks, _ = hc.GetHistoricalData("benchmark", duration).([]models.BenchmarkResult)
	return window
}
