package routes

import (
	"github.com/gin-gonic/gin"

	"xenocpu/internal/controllers"
)

// RegisterControlRoutes registers the stress and benchmark endpoints behind
// guard, which enforces the bearer token when one is required.
func RegisterControlRoutes(r gin.IRouter, h *controllers.Handlers, guard gin.HandlerFunc) {
	stress := r.Group("/stress")
	{
		stress.GET("/status", h.GetStressStatus)
		stress.POST("/start", guard, h.StartStress)
		stress.POST("/stop", guard, h.StopStress)
		stress.POST("/pause", guard, h.PauseStress)
		stress.POST("/resume", guard, h.ResumeStress)
		stress.POST("/toggle", guard, h.ToggleStress)
	}

	benchmark := r.Group("/benchmark", guard)
	{
		benchmark.POST("/single", h.RunSingleCoreBenchmark)
		benchmark.POST("/multi", h.RunMultiCoreBenchmark)
	}
}
