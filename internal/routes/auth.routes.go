package routes

import (
	"github.com/gin-gonic/gin"

	"xenocpu/internal/controllers"
)

// RegisterAuthRoutes registers the WebSocket endpoint. Tokens are issued by
// the token CLI command only; there is no HTTP endpoint for them.
func RegisterAuthRoutes(r gin.IRouter, h *controllers.Handlers, limit gin.HandlerFunc) {
	r.GET("/ws", limit, h.HandleWebSocket)
}
