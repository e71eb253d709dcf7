package services

import (
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"xenocpu/internal/config"
	"xenocpu/internal/models"
	"xenocpu/internal/telemetry"
)

// observeEvery is how many rounds a worker runs between publishing a result
// value to the shared sink.
const observeEvery = 100

// StressController owns the single stress session of the process. Workers
// only read the running and paused flags; every transition goes through mu.
type StressController struct {
	mu        sync.Mutex
	running   atomic.Bool
	paused    atomic.Bool
	active    atomic.Int32
	rounds    atomic.Uint64
	sink      atomic.Uint64
	workers   []*stressWorker
	startedAt time.Time

	cfg     config.StressConfig
	log     *zap.SugaredLogger
	metrics *telemetry.Metrics

	// workerExited is called by each worker right before it finishes
	workerExited func(id int)
}

type stressWorker struct {
	id   int
	done chan struct{}
}

// NewStressController creates an idle controller
func NewStressController(cfg config.StressConfig, log *zap.SugaredLogger, metrics *telemetry.Metrics) *StressController {
	return &StressController{
		cfg:     cfg,
		log:     log,
		metrics: metrics,
	}
}

// Start spawns threadCount workers. It returns false, leaving the controller
// untouched, when a session is already active or threadCount is below 1.
func (sc *StressController) Start(threadCount int) bool {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.running.Load() {
		sc.log.Infow("stress start rejected: session already active", "threads", sc.active.Load())
		sc.record("start", false)
		return false
	}
	if threadCount < 1 {
		sc.log.Infow("stress start rejected: invalid thread count", "threads", threadCount)
		sc.record("start", false)
		return false
	}

	sc.paused.Store(false)
	sc.running.Store(true)
	sc.startedAt = time.Now()
	sc.workers = make([]*stressWorker, 0, threadCount)
	for i := 0; i < threadCount; i++ {
		w := &stressWorker{id: i, done: make(chan struct{})}
		sc.workers = append(sc.workers, w)
		go sc.runWorker(w)
	}
	sc.active.Store(int32(threadCount))

	sc.metrics.StressThreads.Set(float64(threadCount))
	sc.metrics.StressPaused.Set(0)
	sc.record("start", true)
	sc.log.Infow("stress started", "threads", threadCount, "buffer_elements", sc.cfg.BufferElements)
	return true
}

// Stop signals every worker to exit and blocks until all of them have.
func (sc *StressController) Stop() bool {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if !sc.running.Load() {
		sc.record("stop", false)
		return false
	}

	sc.running.Store(false)
	for _, w := range sc.workers {
		<-w.done
	}
	joined := len(sc.workers)
	sc.workers = nil
	sc.active.Store(0)
	sc.paused.Store(false)

	sc.metrics.StressThreads.Set(0)
	sc.metrics.StressPaused.Set(0)
	sc.record("stop", true)
	sc.log.Infow("stress stopped", "joined", joined, "elapsed", time.Since(sc.startedAt), "rounds", sc.rounds.Load())
	return true
}

// Pause parks the workers without ending the session
func (sc *StressController) Pause() bool {
	ok, _ := sc.setPaused("pause", func(bool) bool { return true })
	return ok
}

// Resume lets parked workers continue
func (sc *StressController) Resume() bool {
	ok, _ := sc.setPaused("resume", func(bool) bool { return false })
	return ok
}

// Toggle pauses a running session or resumes a paused one. It reports
// whether the call succeeded and the resulting paused state.
func (sc *StressController) Toggle() (ok bool, paused bool) {
	return sc.setPaused("toggle", func(current bool) bool { return !current })
}

func (sc *StressController) setPaused(op string, next func(current bool) bool) (bool, bool) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if !sc.running.Load() {
		sc.record(op, false)
		return false, false
	}
	paused := next(sc.paused.Load())
	sc.paused.Store(paused)

	if paused {
		sc.metrics.StressPaused.Set(1)
	} else {
		sc.metrics.StressPaused.Set(0)
	}
	sc.record(op, true)
	sc.log.Infow("stress "+op, "threads", sc.active.Load(), "paused", paused)
	return true, paused
}

// ActiveThreadCount returns the size of the worker list, 0 when idle
func (sc *StressController) ActiveThreadCount() int {
	return int(sc.active.Load())
}

// Status reports the current session state
func (sc *StressController) Status() models.StressStatus {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	status := models.StressStatus{
		Running:     sc.running.Load(),
		Paused:      sc.paused.Load(),
		ThreadCount: int(sc.active.Load()),
		Rounds:      sc.rounds.Load(),
	}
	if status.Running {
		status.StartedAt = sc.startedAt
	}
	return status
}

func (sc *StressController) record(op string, ok bool) {
	result := "ok"
	if !ok {
		result = "rejected"
	}
	sc.metrics.StressTransitions.WithLabelValues(op, result).Inc()
}

func (sc *StressController) runWorker(w *stressWorker) {
	defer close(w.done)

	// Each worker gets its own OS thread for the whole session.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	kernel := newStressKernel(sc.cfg.BufferElements)
	var rounds uint64

	for sc.running.Load() {
		if sc.paused.Load() {
			time.Sleep(sc.cfg.PauseInterval)
			continue
		}

		kernel.round()
		rounds++
		sc.rounds.Add(1)
		sc.metrics.StressRounds.Inc()

		if rounds%observeEvery == 0 {
			sc.sink.Store(math.Float64bits(kernel.observe(rounds)))
		}
	}

	if sc.workerExited != nil {
		sc.workerExited(w.id)
	}
}
