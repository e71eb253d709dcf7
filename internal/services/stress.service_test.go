package services

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"xenocpu/internal/config"
	"xenocpu/internal/telemetry"
)

func newTestStressController(t *testing.T) *StressController {
	t.Helper()
	sc := NewStressController(config.StressConfig{
		BufferElements: 64,
		PauseInterval:  5 * time.Millisecond,
		DefaultThreads: 2,
	}, zap.NewNop().Sugar(), telemetry.New())
	t.Cleanup(func() { sc.Stop() })
	return sc
}

func TestStressController_StartTwice(t *testing.T) {
	sc := newTestStressController(t)

	require.True(t, sc.Start(3))
	assert.False(t, sc.Start(5))
	assert.Equal(t, 3, sc.ActiveThreadCount())
}

func TestStressController_StartReportsThreadCount(t *testing.T) {
	for _, n := range []int{1, 2, 7} {
		sc := newTestStressController(t)
		require.True(t, sc.Start(n))
		assert.Equal(t, n, sc.ActiveThreadCount())
		require.True(t, sc.Stop())
	}
}

func TestStressController_StartRejectsNonPositive(t *testing.T) {
	sc := newTestStressController(t)

	assert.False(t, sc.Start(0))
	assert.False(t, sc.Start(-2))
	assert.Equal(t, 0, sc.ActiveThreadCount())
	assert.False(t, sc.Status().Running)
}

func TestStressController_StopJoinsAllWorkers(t *testing.T) {
	sc := newTestStressController(t)

	var exited atomic.Int32
	sc.workerExited = func(int) { exited.Add(1) }

	const n = 4
	require.True(t, sc.Start(n))
	time.Sleep(10 * time.Millisecond)

	require.True(t, sc.Stop())
	assert.Equal(t, int32(n), exited.Load())
	assert.Equal(t, 0, sc.ActiveThreadCount())
	assert.False(t, sc.Status().Running)
}

func TestStressController_IdleOperationsFail(t *testing.T) {
	sc := newTestStressController(t)

	assert.False(t, sc.Stop())
	assert.False(t, sc.Pause())
	assert.False(t, sc.Resume())
	ok, _ := sc.Toggle()
	assert.False(t, ok)

	status := sc.Status()
	assert.False(t, status.Running)
	assert.False(t, status.Paused)
	assert.Equal(t, 0, status.ThreadCount)
}

func TestStressController_PauseResumeKeepsWorkers(t *testing.T) {
	sc := newTestStressController(t)

	require.True(t, sc.Start(3))
	require.True(t, sc.Pause())
	assert.Equal(t, 3, sc.ActiveThreadCount())
	assert.True(t, sc.Status().Paused)

	require.True(t, sc.Resume())
	assert.Equal(t, 3, sc.ActiveThreadCount())
	assert.False(t, sc.Status().Paused)

	require.True(t, sc.Pause())
	done := make(chan bool, 1)
	go func() { done <- sc.Stop() }()

	select {
	case ok := <-done:
		assert.True(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return while paused")
	}
	assert.Equal(t, 0, sc.ActiveThreadCount())
}

func TestStressController_PauseHaltsRounds(t *testing.T) {
	sc := newTestStressController(t)

	require.True(t, sc.Start(2))
	assert.Eventually(t, func() bool { return sc.Status().Rounds > 0 }, 2*time.Second, 5*time.Millisecond)

	require.True(t, sc.Pause())
	time.Sleep(30 * time.Millisecond)
	before := sc.Status().Rounds
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, before, sc.Status().Rounds)

	require.True(t, sc.Resume())
	assert.Eventually(t, func() bool { return sc.Status().Rounds > before }, 2*time.Second, 5*time.Millisecond)
}

func TestStressController_Toggle(t *testing.T) {
	sc := newTestStressController(t)
	require.True(t, sc.Start(1))

	ok, paused := sc.Toggle()
	assert.True(t, ok)
	assert.True(t, paused)

	ok, paused = sc.Toggle()
	assert.True(t, ok)
	assert.False(t, paused)
}

func TestStressController_RestartAfterStop(t *testing.T) {
	sc := newTestStressController(t)

	require.True(t, sc.Start(2))
	require.True(t, sc.Pause())
	require.True(t, sc.Stop())

	require.True(t, sc.Start(1))
	assert.Equal(t, 1, sc.ActiveThreadCount())
	assert.False(t, sc.Status().Paused, "a new session starts unpaused")
}

func TestStressController_ConcurrentStarts(t *testing.T) {
	sc := newTestStressController(t)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if sc.Start(2) {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, 2, sc.ActiveThreadCount())
}

func TestStressKernel_RoundIsDeterministic(t *testing.T) {
	a := newStressKernel(128)
	b := newStressKernel(128)
	for i := 0; i < 3; i++ {
		a.round()
		b.round()
	}
	assert.Equal(t, a.result, b.result)
	assert.Equal(t, a.observe(300), b.observe(300))
}
