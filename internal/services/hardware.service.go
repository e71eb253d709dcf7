package services

import (
	"context"
	"errors"
	"math"
	"regexp"
	"runtime"
	"strconv"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"xenocpu/internal/config"
	"xenocpu/internal/models"
	"xenocpu/internal/telemetry"
)

// brandFrequency matches the clock suffix of brands like
// "Intel(R) Core(TM) i7-9700K CPU @ 3.60GHz"
var brandFrequency = regexp.MustCompile(`(?i)@\s*([0-9]+(?:\.[0-9]+)?)\s*GHz`)

// ParseBrandFrequency extracts the rated clock in MHz from a brand string
func ParseBrandFrequency(brand string) (int, bool) {
	m := brandFrequency.FindStringSubmatch(brand)
	if m == nil {
		return 0, false
	}
	ghz, err := strconv.ParseFloat(m[1], 64)
	if err != nil || ghz <= 0 {
		return 0, false
	}
	return int(math.Round(ghz * 1000)), true
}

// HardwareInspector answers CPU identity and instantaneous load/frequency
// queries on top of a SystemInfoProvider. It keeps no state between calls
// apart from the snapshot cache.
type HardwareInspector struct {
	provider SystemInfoProvider
	cfg      config.HardwareConfig
	metrics  *telemetry.Metrics
	log      *zap.SugaredLogger
	cache    *MetricsCache

	memory func(ctx context.Context) (*models.MemoryStatus, error)
}

// NewHardwareInspector creates an inspector backed by provider
func NewHardwareInspector(provider SystemInfoProvider, cfg config.HardwareConfig, metrics *telemetry.Metrics, log *zap.SugaredLogger) *HardwareInspector {
	return &HardwareInspector{
		provider: provider,
		cfg:      cfg,
		metrics:  metrics,
		log:      log,
		cache:    NewMetricsCache(cfg.CacheTTL),
		memory:   GetMemoryUsage,
	}
}

// GetHardwareMetrics samples the frequency ratio, then the load. Each field
// that could not be read is left at its sentinel; the reading is valid when
// at least one field holds a real value.
func (hi *HardwareInspector) GetHardwareMetrics(ctx context.Context) models.HardwareMetrics {
	m := models.HardwareMetrics{
		CPULoadPercent:  models.LoadUnavailable,
		CPUFrequencyMHz: models.FrequencyUnavailable,
	}

	if mhz, err := hi.effectiveMHz(ctx); err != nil {
		hi.sampleFailed("frequency", err)
	} else {
		m.CPUFrequencyMHz = mhz
		hi.metrics.CPUFrequency.Set(float64(mhz))
	}

	if load, err := hi.provider.SampleLoad(ctx); err != nil {
		hi.sampleFailed("load", err)
	} else if load < 0 {
		hi.sampleFailed("load", errors.New("negative load sample"))
	} else {
		m.CPULoadPercent = load
		hi.metrics.CPULoad.Set(load)
	}

	m.IsValid = m.HasFrequency() || m.HasLoad()
	return m
}

// effectiveMHz is nominal * ratio/100
func (hi *HardwareInspector) effectiveMHz(ctx context.Context) (int, error) {
	ratio, err := hi.provider.SampleFrequencyRatio(ctx)
	if err != nil {
		return 0, err
	}
	nominal, err := hi.provider.NominalMHz()
	if err != nil {
		return 0, err
	}
	mhz := int(float64(nominal) * ratio / 100)
	if mhz <= 0 {
		return 0, errors.New("no positive frequency reading")
	}
	return mhz, nil
}

func (hi *HardwareInspector) sampleFailed(counter string, err error) {
	hi.metrics.HardwareSampleFail.WithLabelValues(counter).Inc()
	hi.log.Debugw("hardware counter unavailable", "counter", counter, "error", err)
}

// GetCPUInfo describes the processor. The model name is cut to at most
// capacity bytes without splitting a character.
func (hi *HardwareInspector) GetCPUInfo(capacity int) models.CPUIdentity {
	brand, err := hi.provider.BrandString()
	if err != nil {
		hi.log.Debugw("brand string unavailable", "error", err)
	}
	brand = trimBrand(brand)

	threads, err := hi.provider.LogicalThreads()
	if err != nil || threads <= 0 {
		hi.log.Debugw("logical thread count unavailable, using runtime count", "error", err)
		threads = runtime.NumCPU()
	}

	mhz := hi.nominalMHz(brand)
	return models.CPUIdentity{
		ModelName:            truncateName(brand, capacity),
		PhysicalCoreEstimate: max(1, threads/2),
		LogicalThreadCount:   threads,
		NominalFrequencyMHz:  mhz,
		NominalFrequencyGHz:  float64(mhz) / 1000,
	}
}

// nominalMHz tries the brand suffix, then the provider, then the configured default
func (hi *HardwareInspector) nominalMHz(brand string) int {
	if mhz, ok := ParseBrandFrequency(brand); ok {
		return mhz
	}
	if mhz, err := hi.provider.NominalMHz(); err == nil && mhz > 0 {
		return mhz
	}
	return hi.cfg.DefaultMHz
}

func truncateName(name string, capacity int) string {
	if capacity <= 0 {
		return ""
	}
	if len(name) <= capacity {
		return name
	}
	cut := capacity
	for cut > 0 && !utf8.RuneStart(name[cut]) {
		cut--
	}
	return name[:cut]
}

// GetSystemSnapshot combines a hardware reading with memory usage. A memory
// failure leaves Memory nil.
func (hi *HardwareInspector) GetSystemSnapshot(ctx context.Context) *models.SystemSnapshot {
	snapshot := &models.SystemSnapshot{
		Hardware:  hi.GetHardwareMetrics(ctx),
		Timestamp: time.Now(),
	}

	memory, err := hi.memory(ctx)
	if err != nil {
		hi.log.Warnw("failed to get memory usage", "error", err)
	} else {
		snapshot.Memory = memory
	}
	return snapshot
}

// CachedSnapshot returns a snapshot no older than the cache TTL. The returned
// snapshot is shared between callers and must not be modified.
func (hi *HardwareInspector) CachedSnapshot(ctx context.Context) *models.SystemSnapshot {
	// the fetch may serve other callers, so it must outlive this one's ctx
	shared := context.WithoutCancel(ctx)
	snapshot, _ := hi.cache.GetSnapshot(func() (*models.SystemSnapshot, error) {
		return hi.GetSystemSnapshot(shared), nil
	})
	return snapshot
}
