package models

import "time"

// BenchmarkKind identifies one of the benchmark variants
type BenchmarkKind string

const (
	BenchmarkSingleCore        BenchmarkKind = "single_core"
	BenchmarkMultiCore         BenchmarkKind = "multi_core"
	BenchmarkMultiCoreProgress BenchmarkKind = "multi_core_progress"
)

// BenchmarkResult is one completed benchmark call. Score is the median trial
// score; higher is faster.
type BenchmarkResult struct {
	ID        string        `json:"id"`
	Kind      BenchmarkKind `json:"kind"`
	Score     float64       `json:"score"`
	Runs      int           `json:"runs"`
	Threads   int           `json:"threads"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
	Success   bool          `json:"success"`
}

// BenchmarkProgress is pushed to clients before each trial starts
type BenchmarkProgress struct {
	ID         string `json:"id"`
	CurrentRun int    `json:"current_run"`
	TotalRuns  int    `json:"total_runs"`
}
