// Package telemetry holds the Prometheus collectors exported on /metrics.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups every collector the services update
type Metrics struct {
	Registry *prometheus.Registry

	StressThreads      prometheus.Gauge
	StressPaused       prometheus.Gauge
	StressRounds       prometheus.Counter
	StressTransitions  *prometheus.CounterVec
	BenchmarkScore     *prometheus.GaugeVec
	BenchmarkDuration  *prometheus.HistogramVec
	CPULoad            prometheus.Gauge
	CPUFrequency       prometheus.Gauge
	HardwareSampleFail *prometheus.CounterVec
	WebSocketClients   prometheus.Gauge
}

// New registers all collectors on a fresh registry, along with the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		StressThreads: f.NewGauge(prometheus.GaugeOpts{
			Name: "xenocpu_stress_threads",
			Help: "Number of active stress worker threads",
		}),
		StressPaused: f.NewGauge(prometheus.GaugeOpts{
			Name: "xenocpu_stress_paused",
			Help: "1 while the stress session is paused",
		}),
		StressRounds: f.NewCounter(prometheus.CounterOpts{
			Name: "xenocpu_stress_rounds_total",
			Help: "Stress rounds completed across all workers",
		}),
		StressTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "xenocpu_stress_transitions_total",
			Help: "Stress control calls by operation and outcome",
		}, []string{"op", "result"}),
		BenchmarkScore: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "xenocpu_benchmark_score",
			Help: "Most recent benchmark median score by kind",
		}, []string{"kind"}),
		BenchmarkDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "xenocpu_benchmark_duration_seconds",
			Help:    "Wall time of whole benchmark calls",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20, 40, 80},
		}, []string{"kind"}),
		CPULoad: f.NewGauge(prometheus.GaugeOpts{
			Name: "xenocpu_cpu_load_percent",
			Help: "Last sampled CPU utilisation",
		}),
		CPUFrequency: f.NewGauge(prometheus.GaugeOpts{
			Name: "xenocpu_cpu_frequency_mhz",
			Help: "Last sampled effective CPU frequency",
		}),
		HardwareSampleFail: f.NewCounterVec(prometheus.CounterOpts{
			Name: "xenocpu_hardware_sample_failures_total",
			Help: "Hardware counter queries that returned no reading",
		}, []string{"counter"}),
		WebSocketClients: f.NewGauge(prometheus.GaugeOpts{
			Name: "xenocpu_websocket_clients",
			Help: "Connected WebSocket clients",
		}),
	}
}
