package services

import (
	"runtime"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"xenocpu/internal/config"
	"xenocpu/internal/models"
	"xenocpu/internal/telemetry"
)

const (
	fixedTrialRuns  = 5
	minProgressRuns = 1
	maxProgressRuns = 10

	// fallbackParallelism is used when the hardware concurrency is unknown
	fallbackParallelism = 4

	// Score divisors. The progress variant reports on a 10x smaller scale;
	// clients compare its scores only with each other.
	standardScoreDivisor = 1000.0
	progressScoreDivisor = 100.0
)

// ProgressNotifier is told (current, total) synchronously before each trial
// of a progress benchmark. Implementations must not block.
type ProgressNotifier interface {
	Notify(currentRun, totalRuns int)
}

// ProgressFunc adapts a function to ProgressNotifier
type ProgressFunc func(currentRun, totalRuns int)

func (f ProgressFunc) Notify(currentRun, totalRuns int) { f(currentRun, totalRuns) }

// PriorityBooster raises the scheduling priority of the calling thread.
// restore must be safe to call even when Raise returned an error.
type PriorityBooster interface {
	Raise() (restore func(), err error)
}

type noopBooster struct{}

func (noopBooster) Raise() (func(), error) { return func() {}, nil }

// BenchmarkRunner runs the prime-counting benchmarks. It holds no state
// between calls besides a sink that keeps computed counts observable.
type BenchmarkRunner struct {
	cfg     config.BenchmarkConfig
	booster PriorityBooster
	log     *zap.SugaredLogger

	parallelism func() int
	now         func() time.Time
	sleep       func(time.Duration)

	sink atomic.Int64
}

// NewBenchmarkRunner creates a runner. A nil booster disables priority changes.
func NewBenchmarkRunner(cfg config.BenchmarkConfig, booster PriorityBooster, log *zap.SugaredLogger) *BenchmarkRunner {
	if booster == nil {
		booster = noopBooster{}
	}
	return &BenchmarkRunner{
		cfg:         cfg,
		booster:     booster,
		log:         log,
		parallelism: runtime.NumCPU,
		now:         time.Now,
		sleep:       time.Sleep,
	}
}

// trialPlan parameterises the shared trial loop
type trialPlan struct {
	name     string
	runs     int
	limit    int
	threads  int
	divisor  float64
	boost    bool
	gap      time.Duration
	notifier ProgressNotifier
}

// SingleCore counts primes up to the single-core limit on the calling
// thread, five times, and returns the median of 1000/seconds.
func (br *BenchmarkRunner) SingleCore() float64 {
	return br.runTrials(trialPlan{
		name:    string(models.BenchmarkSingleCore),
		runs:    fixedTrialRuns,
		limit:   br.cfg.SingleCoreLimit,
		threads: 1,
		divisor: standardScoreDivisor,
		boost:   true,
		gap:     br.cfg.SingleCoreTrialGap,
	})
}

// MultiCore spreads the multi-core range over every hardware thread, five
// times, and returns the median of 1000/seconds.
func (br *BenchmarkRunner) MultiCore() float64 {
	return br.runTrials(trialPlan{
		name:    string(models.BenchmarkMultiCore),
		runs:    fixedTrialRuns,
		limit:   br.cfg.MultiCoreLimit,
		threads: br.Threads(),
		divisor: standardScoreDivisor,
		gap:     br.cfg.MultiCoreTrialGap,
	})
}

// MultiCoreWithProgress is MultiCore with a caller-chosen run count (clamped
// to [1, 10]) and a notifier called before every trial. The median is taken
// at index runs/2, which is the upper median for even counts.
func (br *BenchmarkRunner) MultiCoreWithProgress(numRuns int, notifier ProgressNotifier) float64 {
	return br.runTrials(trialPlan{
		name:     string(models.BenchmarkMultiCoreProgress),
		runs:     ClampRuns(numRuns),
		limit:    br.cfg.MultiCoreLimit,
		threads:  br.Threads(),
		divisor:  progressScoreDivisor,
		boost:    true,
		gap:      br.cfg.MultiCoreTrialGap,
		notifier: notifier,
	})
}

// Threads returns the parallelism used by the multi-core variants
func (br *BenchmarkRunner) Threads() int {
	n := br.parallelism()
	if n <= 0 {
		return fallbackParallelism
	}
	return n
}

// ClampRuns bounds a requested progress run count to [1, 10]
func ClampRuns(numRuns int) int {
	if numRuns < minProgressRuns {
		return minProgressRuns
	}
	if numRuns > maxProgressRuns {
		return maxProgressRuns
	}
	return numRuns
}

func (br *BenchmarkRunner) runTrials(p trialPlan) float64 {
	if p.boost {
		restore, err := br.booster.Raise()
		defer restore()
		if err != nil {
			br.log.Debugw("could not raise thread priority, continuing", "benchmark", p.name, "error", err)
		}
	}

	br.sink.Add(int64(warmup(br.cfg.WarmupIterations)))
	br.sleep(br.cfg.Cooldown)

	shares := partition(2, p.limit, p.threads)
	scores := make([]float64, p.runs)

	for run := 0; run < p.runs; run++ {
		if p.notifier != nil {
			p.notifier.Notify(run+1, p.runs)
		}

		start := br.now()
		primes := countShares(shares)
		elapsed := br.now().Sub(start)

		scores[run] = trialScore(p.divisor, elapsed)
		br.sink.Add(int64(primes))
		br.log.Debugw("benchmark trial", "benchmark", p.name, "run", run+1, "of", p.runs,
			"primes", primes, "elapsed", elapsed, "score", scores[run])

		if run < p.runs-1 {
			br.sleep(p.gap)
		}
	}

	sort.Float64s(scores)
	return scores[p.runs/2]
}

// countShares counts every share, concurrently when there is more than one,
// and returns once all of them are done.
func countShares(shares []shareRange) int {
	if len(shares) == 1 {
		return countPrimes(shares[0].lo, shares[0].hi)
	}

	counts := make([]int, len(shares))
	var g errgroup.Group
	for i, s := range shares {
		g.Go(func() error {
			counts[i] = countPrimes(s.lo, s.hi)
			return nil
		})
	}
	_ = g.Wait()

	total := 0
	for _, c := range counts {
		total += c
	}
	return total
}

// trialScore converts a trial duration to divisor/seconds. Durations below
// the clock resolution are floored to 1ns so the score stays finite.
func trialScore(divisor float64, elapsed time.Duration) float64 {
	if elapsed < time.Nanosecond {
		elapsed = time.Nanosecond
	}
	return divisor / elapsed.Seconds()
}

// BenchmarkService wraps the runner with identifiers, telemetry and history
type BenchmarkService struct {
	runner  *BenchmarkRunner
	history *HistoryCollector
	metrics *telemetry.Metrics
	log     *zap.SugaredLogger
}

// NewBenchmarkService creates the service. history may be nil.
func NewBenchmarkService(runner *BenchmarkRunner, history *HistoryCollector, metrics *telemetry.Metrics, log *zap.SugaredLogger) *BenchmarkService {
	return &BenchmarkService{runner: runner, history: history, metrics: metrics, log: log}
}

// Run executes one benchmark of the given kind. runs is only used by the
// progress variant; onProgress, if set, receives one event per trial.
func (bs *BenchmarkService) Run(kind models.BenchmarkKind, runs int, onProgress func(models.BenchmarkProgress)) models.BenchmarkResult {
	result := models.BenchmarkResult{
		ID:        uuid.NewString(),
		Kind:      kind,
		StartedAt: time.Now(),
	}
	bs.log.Infow("benchmark started", "id", result.ID, "kind", kind)

	switch kind {
	case models.BenchmarkSingleCore:
		result.Runs = fixedTrialRuns
		result.Threads = 1
		result.Score = bs.runner.SingleCore()
	case models.BenchmarkMultiCore:
		result.Runs = fixedTrialRuns
		result.Threads = bs.runner.Threads()
		result.Score = bs.runner.MultiCore()
	default:
		result.Kind = models.BenchmarkMultiCoreProgress
		result.Runs = ClampRuns(runs)
		result.Threads = bs.runner.Threads()
		var notifier ProgressNotifier
		if onProgress != nil {
			notifier = ProgressFunc(func(current, total int) {
				onProgress(models.BenchmarkProgress{ID: result.ID, CurrentRun: current, TotalRuns: total})
			})
		}
		result.Score = bs.runner.MultiCoreWithProgress(runs, notifier)
	}

	result.Duration = time.Since(result.StartedAt)
	result.Success = result.Score > 0

	bs.metrics.BenchmarkScore.WithLabelValues(string(result.Kind)).Set(result.Score)
	bs.metrics.BenchmarkDuration.WithLabelValues(string(result.Kind)).Observe(result.Duration.Seconds())
	if bs.history != nil {
		bs.history.RecordBenchmark(result)
	}

	bs.log.Infow("benchmark finished", "id", result.ID, "kind", result.Kind,
		"score", result.Score, "runs", result.Runs, "threads", result.Threads, "duration", result.Duration)
	return result
}
