package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"xenocpu/internal/models"
)

var (
	errUnknownCommand   = errors.New("unknown command")
	errBenchmarkRunning = errors.New("a benchmark is already running")
)

// commandArgs is the union of every command's arguments
type commandArgs struct {
	NumProcesses *int `json:"numProcesses"`
	Threads      *int `json:"threads"`
	NumRuns      *int `json:"numRuns"`
	Capacity     *int `json:"capacity"`
}

// controlReply is the reply shape of the stress control commands
type controlReply struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Paused  *bool  `json:"paused,omitempty"`
}

func control(ok bool, okMsg, failMsg string) controlReply {
	if ok {
		return controlReply{Success: true, Message: okMsg}
	}
	return controlReply{Message: failMsg}
}

// Dispatch executes one command from the WebSocket bus and returns the reply
// payload. Benchmark commands block until the benchmark finishes.
func (h *Handlers) Dispatch(ctx context.Context, cmd string, raw json.RawMessage) (interface{}, error) {
	var args commandArgs
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &args); err != nil {
			return nil, fmt.Errorf("invalid args for %s: %w", cmd, err)
		}
	}

	switch cmd {
	case "startStress":
		threads := h.Config.Stress.DefaultThreads
		if args.NumProcesses != nil {
			threads = *args.NumProcesses
		} else if args.Threads != nil {
			threads = *args.Threads
		}
		return control(h.Stress.Start(threads), "Stress test started", "Failed to start"), nil

	case "stopStress":
		return control(h.Stress.Stop(), "Stress test stopped", "Failed to stop"), nil

	case "pauseStress":
		reply := control(h.Stress.Pause(), "Paused", "Failed to pause")
		paused := h.Stress.Status().Paused
		reply.Paused = &paused
		return reply, nil

	case "resumeStress":
		reply := control(h.Stress.Resume(), "Resumed", "Failed to resume")
		paused := h.Stress.Status().Paused
		reply.Paused = &paused
		return reply, nil

	case "togglePauseResume":
		ok, paused := h.Stress.Toggle()
		okMsg := "Resumed"
		if paused {
			okMsg = "Paused"
		}
		reply := control(ok, okMsg, "Failed to toggle")
		reply.Paused = &paused
		return reply, nil

	case "getStressStatus":
		return h.Stress.Status(), nil

	case "getCPUInfo", "getCpuInfo":
		capacity := h.Config.Hardware.NameCapacity
		if args.Capacity != nil {
			capacity = *args.Capacity
		}
		return h.Hardware.GetCPUInfo(capacity), nil

	case "getHardwareMetrics":
		return h.snapshot(ctx), nil

	case "runSingleCoreBenchmark":
		return h.dispatchBenchmark(models.BenchmarkSingleCore, 0)

	case "runMultiCoreBenchmark":
		runs := h.Config.Benchmark.DefaultRuns
		if args.NumRuns != nil {
			runs = *args.NumRuns
		}
		return h.dispatchBenchmark(models.BenchmarkMultiCoreProgress, runs)

	default:
		return nil, fmt.Errorf("%w: %s", errUnknownCommand, cmd)
	}
}

func (h *Handlers) dispatchBenchmark(kind models.BenchmarkKind, runs int) (interface{}, error) {
	result, ok := h.runExclusive(func() models.BenchmarkResult {
		return h.Benchmarks.Run(kind, runs, h.Hub.BroadcastProgress)
	})
	if !ok {
		return nil, errBenchmarkRunning
	}
	return result, nil
}
