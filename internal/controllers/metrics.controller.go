package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// GetHardwareMetrics takes a fresh load/frequency reading
func (h *Handlers) GetHardwareMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, h.Hardware.GetHardwareMetrics(c.Request.Context()))
}

// GetCPUInfo returns the CPU identity. Query: capacity=<max name bytes>
func (h *Handlers) GetCPUInfo(c *gin.Context) {
	capacity := h.Config.Hardware.NameCapacity
	if s, ok := c.GetQuery("capacity"); ok {
		n, err := strconv.Atoi(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid capacity"})
			return
		}
		capacity = n
	}
	c.JSON(http.StatusOK, h.Hardware.GetCPUInfo(capacity))
}

// GetSnapshot returns the cached reading with memory usage and stress status
func (h *Handlers) GetSnapshot(c *gin.Context) {
	c.JSON(http.StatusOK, h.snapshot(c.Request.Context()))
}
