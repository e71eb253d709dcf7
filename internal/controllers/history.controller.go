package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// GetMetricHistory returns historical data for a specific metric
// Query params: metric=load|frequency|benchmark, duration=5m|10m|1h (default: 10m)
func (h *Handlers) GetMetricHistory(c *gin.Context) {
	metric := c.DefaultQuery("metric", "load")
	durationStr := c.DefaultQuery("duration", "10m")

	duration, err := time.ParseDuration(durationStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid duration format"})
		return
	}

	data := h.History.GetHistoricalData(metric, duration)
	if data == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid metric"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"metric":   metric,
		"duration": durationStr,
		"data":     data,
	})
}

// GetAllHistory returns all historical metrics in a window
// Query params: duration=5m|10m|1h (default: 10m)
func (h *Handlers) GetAllHistory(c *gin.Context) {
	durationStr := c.DefaultQuery("duration", "10m")

	duration, err := time.ParseDuration(durationStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid duration format"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"duration": durationStr,
		"data":     h.History.GetAllHistoricalData(duration),
	})
}
