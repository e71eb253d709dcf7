package models

import "time"

// LoadHistory stores historical CPU load
type LoadHistory struct {
	Timestamp time.Time `json:"timestamp"`
	Load      float64   `json:"load"`
}

// FrequencyHistory stores historical effective CPU frequency
type FrequencyHistory struct {
	Timestamp time.Time `json:"timestamp"`
	MHz       int       `json:"mhz"`
}

// HistoricalDataWindow holds time-series data for dashboard
type HistoricalDataWindow struct {
	Load       []LoadHistory      `json:"load"`
	Frequency  []FrequencyHistory `json:"frequency"`
	Benchmarks []BenchmarkResult  `json:"benchmarks"`
}
