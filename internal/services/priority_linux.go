//go:build linux

package services

import (
	"runtime"
	"sync"

	"golang.org/x/sys/unix"
)

// boostNice is how far the thread's nice value is lowered while measuring
const boostNice = 2

// threadPriorityBooster lowers the nice value of the calling OS thread. The
// goroutine stays locked to that thread until restore runs.
type threadPriorityBooster struct{}

// NewPriorityBooster returns the platform booster
func NewPriorityBooster() PriorityBooster {
	return threadPriorityBooster{}
}

func (threadPriorityBooster) Raise() (func(), error) {
	runtime.LockOSThread()
	tid := unix.Gettid()

	// getpriority(2) returns 20-nice on Linux
	raw, err := unix.Getpriority(unix.PRIO_PROCESS, tid)
	if err != nil {
		runtime.UnlockOSThread()
		return func() {}, err
	}
	original := 20 - raw

	var once sync.Once
	restore := func() {
		once.Do(func() {
			_ = unix.Setpriority(unix.PRIO_PROCESS, tid, original)
			runtime.UnlockOSThread()
		})
	}

	if err := unix.Setpriority(unix.PRIO_PROCESS, tid, original-boostNice); err != nil {
		// Without CAP_SYS_NICE the raise fails; keep the lock so restore
		// stays symmetric.
		return restore, err
	}
	return restore, nil
}
