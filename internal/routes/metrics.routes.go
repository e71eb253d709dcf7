package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"xenocpu/internal/controllers"
	"xenocpu/internal/telemetry"
)

// RegisterMonitorRoutes registers the read-only hardware and history
// endpoints and the Prometheus exporter.
func RegisterMonitorRoutes(r gin.IRouter, h *controllers.Handlers, metrics *telemetry.Metrics) {
	hardware := r.Group("/hardware")
	{
		hardware.GET("/metrics", h.GetHardwareMetrics)
		hardware.GET("/cpu", h.GetCPUInfo)
		hardware.GET("/snapshot", h.GetSnapshot)
	}

	history := r.Group("/history")
	{
		history.GET("", h.GetMetricHistory)
		history.GET("/all", h.GetAllHistory)
	}

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))
}
