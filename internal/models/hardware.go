package models

import "time"

// Sentinels for readings that could not be obtained. Callers must treat them
// as "unavailable", never as a real reading.
const (
	LoadUnavailable      = -1.0
	FrequencyUnavailable = 0
)

// HardwareMetrics is an instantaneous CPU reading. Temperature, voltage and
// package power are not supported and are always nil.
type HardwareMetrics struct {
	CPULoadPercent  float64  `json:"cpu_load"`
	CPUFrequencyMHz int      `json:"cpu_freq_mhz"`
	TemperatureC    *float64 `json:"temp_c"`
	VoltageV        *float64 `json:"voltage"`
	PackagePowerW   *float64 `json:"package_power_w"`
	IsValid         bool     `json:"is_valid"`
}

// HasLoad reports whether the load field holds a real reading
func (m HardwareMetrics) HasLoad() bool {
	return m.CPULoadPercent >= 0
}

// HasFrequency reports whether the frequency field holds a real reading
func (m HardwareMetrics) HasFrequency() bool {
	return m.CPUFrequencyMHz > FrequencyUnavailable
}

// CPUIdentity describes the processor. PhysicalCoreEstimate is a heuristic
// (logical threads / 2, at least 1) and is not a true physical core count.
type CPUIdentity struct {
	ModelName            string  `json:"name"`
	PhysicalCoreEstimate int     `json:"cores"`
	LogicalThreadCount   int     `json:"threads"`
	NominalFrequencyMHz  int     `json:"max_clock_mhz"`
	NominalFrequencyGHz  float64 `json:"max_clock_ghz"`
}

// MemoryStatus represents memory usage information
type MemoryStatus struct {
	TotalGB      float64 `json:"total_gb"`
	UsedGB       float64 `json:"used_gb"`
	AvailableGB  float64 `json:"available_gb"`
	UsagePercent float64 `json:"usage_percent"`
}

// SystemSnapshot combines the CPU reading with memory usage
type SystemSnapshot struct {
	Hardware  HardwareMetrics `json:"hardware"`
	Memory    *MemoryStatus   `json:"memory,omitempty"`
	Stress    StressStatus    `json:"stress"`
	Timestamp time.Time       `json:"timestamp"`
}
