// Package routes assembles the gin engine.
package routes

import (
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"xenocpu/internal/controllers"
	"xenocpu/internal/logging"
	"xenocpu/internal/middleware"
	"xenocpu/internal/telemetry"
)

// NewRouter builds the engine with the security middleware chain and every
// route registered.
func NewRouter(h *controllers.Handlers, metrics *telemetry.Metrics) *gin.Engine {
	cfg := h.Config

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logging.GinMiddleware(h.Log))
	r.Use(middleware.SecurityHeadersMiddleware())
	r.Use(middleware.CORSMiddleware(cfg.Server.AllowedOrigins))
	r.Use(middleware.IPAllowListMiddleware(middleware.NewIPAllowList(cfg.Server.AllowedIPs), h.Security))
	r.Use(middleware.RateLimitMiddleware(middleware.NewRateLimiter(rate.Limit(cfg.Server.RateLimit), cfg.Server.RateBurst), h.Security))

	// 5 WebSocket connects per minute per IP, burst of 10
	wsLimit := middleware.RateLimitMiddleware(middleware.NewRateLimiter(rate.Every(12*time.Second), 10), h.Security)
	guard := middleware.BearerAuthMiddleware(h.Auth, cfg.Auth.RequireToken, h.Security)

	RegisterMonitorRoutes(r, h, metrics)
	RegisterControlRoutes(r, h, guard)
	RegisterAuthRoutes(r, h, wsLimit)
	return r
}
