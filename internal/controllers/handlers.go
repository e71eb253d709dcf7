// Package controllers holds the gin handlers and the WebSocket command bus.
package controllers

import (
	"context"
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"xenocpu/internal/config"
	"xenocpu/internal/middleware"
	"xenocpu/internal/models"
	"xenocpu/internal/services"
)

// Handlers carries the services every endpoint works against
type Handlers struct {
	Stress     *services.StressController
	Benchmarks *services.BenchmarkService
	Hardware   *services.HardwareInspector
	History    *services.HistoryCollector
	Hub        *services.WebSocketHub
	Auth       *services.AuthService
	Security   *middleware.SecurityLogger
	Config     config.Config
	Log        *zap.SugaredLogger

	upgrader         websocket.Upgrader
	benchmarkRunning atomic.Bool
}

// NewHandlers finishes wiring h and returns it
func NewHandlers(h *Handlers) *Handlers {
	allowed := h.Config.Server.AllowedOrigins
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || middleware.OriginAllowed(origin, allowed)
		},
	}
	return h
}

// Stats builds the periodic stats payload from the cached snapshot and the
// live stress status.
func (h *Handlers) Stats() interface{} {
	return h.snapshot(context.Background())
}

// snapshot copies the cached snapshot and stamps the current stress status
func (h *Handlers) snapshot(ctx context.Context) models.SystemSnapshot {
	snap := *h.Hardware.CachedSnapshot(ctx)
	snap.Stress = h.Stress.Status()
	return snap
}

// runExclusive runs fn unless another benchmark is in progress
func (h *Handlers) runExclusive(fn func() models.BenchmarkResult) (models.BenchmarkResult, bool) {
	if !h.benchmarkRunning.CompareAndSwap(false, true) {
		return models.BenchmarkResult{}, false
	}
	defer h.benchmarkRunning.Store(false)
	return fn(), true
}

// respondResult renders a boolean control result the way every control
// endpoint does: 200 on success, 409 otherwise.
func respondResult(c *gin.Context, ok bool, okMsg, failMsg string, extra gin.H) {
	body := gin.H{"success": ok, "message": okMsg}
	if !ok {
		body["message"] = failMsg
	}
	for k, v := range extra {
		body[k] = v
	}

	status := http.StatusOK
	if !ok {
		status = http.StatusConflict
	}
	c.JSON(status, body)
}
