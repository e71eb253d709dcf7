package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"xenocpu/internal/models"
)

// StartStress starts a stress session. Body: {"threads": n}; without a body
// the configured default thread count is used.
func (h *Handlers) StartStress(c *gin.Context) {
	threads := h.Config.Stress.DefaultThreads
	if c.Request.ContentLength != 0 {
		var req models.StressStartRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if req.Threads < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "threads must be at least 1"})
			return
		}
		threads = req.Threads
	}

	ok := h.Stress.Start(threads)
	respondResult(c, ok, "Stress test started", "Stress test already running",
		gin.H{"status": h.Stress.Status()})
}

func (h *Handlers) StopStress(c *gin.Context) {
	ok := h.Stress.Stop()
	respondResult(c, ok, "Stress test stopped", "Stress test not running", nil)
}

func (h *Handlers) PauseStress(c *gin.Context) {
	ok := h.Stress.Pause()
	respondResult(c, ok, "Paused", "Stress test not running", gin.H{"paused": h.Stress.Status().Paused})
}

func (h *Handlers) ResumeStress(c *gin.Context) {
	ok := h.Stress.Resume()
	respondResult(c, ok, "Resumed", "Stress test not running", gin.H{"paused": h.Stress.Status().Paused})
}

// ToggleStress pauses a running session or resumes a paused one
func (h *Handlers) ToggleStress(c *gin.Context) {
	ok, paused := h.Stress.Toggle()
	msg := "Resumed"
	if paused {
		msg = "Paused"
	}
	respondResult(c, ok, msg, "Stress test not running", gin.H{"paused": paused})
}

// GetStressStatus returns running/paused and the active thread count
func (h *Handlers) GetStressStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.Stress.Status())
}
