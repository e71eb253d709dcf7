package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"xenocpu/internal/models"
)

// RunSingleCoreBenchmark blocks for the whole benchmark and returns its result
func (h *Handlers) RunSingleCoreBenchmark(c *gin.Context) {
	h.runBenchmark(c, models.BenchmarkSingleCore, 0)
}

// RunMultiCoreBenchmark runs the fixed five-trial multi-core benchmark, or
// the progress variant when ?runs= is given. Progress events go to every
// WebSocket client.
func (h *Handlers) RunMultiCoreBenchmark(c *gin.Context) {
	runsStr, withProgress := c.GetQuery("runs")
	if !withProgress {
		h.runBenchmark(c, models.BenchmarkMultiCore, 0)
		return
	}

	runs, err := strconv.Atoi(runsStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid runs"})
		return
	}
	h.runBenchmark(c, models.BenchmarkMultiCoreProgress, runs)
}

func (h *Handlers) runBenchmark(c *gin.Context, kind models.BenchmarkKind, runs int) {
	result, ok := h.runExclusive(func() models.BenchmarkResult {
		return h.Benchmarks.Run(kind, runs, h.Hub.BroadcastProgress)
	})
	if !ok {
		c.JSON(http.StatusConflict, gin.H{"success": false, "message": "a benchmark is already running"})
		return
	}
	c.JSON(http.StatusOK, result)
}
