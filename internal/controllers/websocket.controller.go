package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"xenocpu/internal/middleware"
	"xenocpu/internal/models"
	"xenocpu/internal/services"
)

// HandleWebSocket upgrades the connection and attaches it to the hub. A token
// (query parameter or bearer header) is mandatory when auth.require_token is
// set.
func (h *Handlers) HandleWebSocket(c *gin.Context) {
	clientName := "anonymous"
	if token := middleware.ExtractToken(c); token != "" {
		claims, err := h.Auth.ValidateToken(token)
		if err != nil {
			h.Security.LogFailedAuth(c.ClientIP(), "invalid token: "+err.Error())
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		clientName = claims.ClientName
	} else if h.Config.Auth.RequireToken {
		h.Security.LogFailedAuth(c.ClientIP(), "missing token")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Log.Warnw("websocket upgrade failed", "error", err)
		return
	}
	h.Security.LogWebSocketConnected(c.ClientIP(), clientName)

	client := services.NewClientConnection(ws, clientName)
	h.Hub.Register(client)

	ip := c.ClientIP()
	go h.readPump(client, ip)
	go h.writePump(client)
}

// readPump reads messages from the WebSocket client
func (h *Handlers) readPump(client *services.ClientConnection, ip string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		h.Hub.Unregister(client.ID)
		client.Conn.Close()
		h.Security.LogWebSocketDisconnected(ip, client.ID)
	}()

	for {
		var msg models.WebSocketMessage
		if err := client.Conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.Log.Warnw("websocket read error", "client_id", client.ID, "error", err)
			}
			return
		}

		switch msg.Type {
		case "command":
			go h.runCommand(ctx, client, msg)

		case "auth":
			h.Hub.SendMessage(client.ID, h.authenticate(client, msg.Token))

		case "ping":
			h.Hub.SendMessage(client.ID, models.WebSocketMessage{Type: "pong", Timestamp: time.Now()})

		case "unsubscribe":
			return

		default:
			h.Log.Debugw("unknown websocket message type", "client_id", client.ID, "type", msg.Type)
		}
	}
}

func (h *Handlers) authenticate(client *services.ClientConnection, token string) models.WebSocketMessage {
	claims, err := h.Auth.ValidateToken(token)
	if err != nil {
		h.Security.LogFailedAuth(client.ID, "websocket auth message: "+err.Error())
		return models.WebSocketMessage{Type: "auth_error", Error: "invalid token", Timestamp: time.Now()}
	}
	return models.WebSocketMessage{
		Type:      "auth_success",
		Data:      gin.H{"client": claims.ClientName},
		Timestamp: time.Now(),
	}
}

// runCommand dispatches one command and replies to its sender only
func (h *Handlers) runCommand(ctx context.Context, client *services.ClientConnection, msg models.WebSocketMessage) {
	h.Log.Debugw("websocket command", "client_id", client.ID, "cmd", msg.Cmd, "id", msg.ID)

	reply := models.WebSocketMessage{
		Type:    services.MessageReply,
		ID:      msg.ID,
		ReplyTo: msg.Cmd,
	}
	data, err := h.Dispatch(ctx, msg.Cmd, msg.Args)
	if err != nil {
		reply.Error = err.Error()
	} else {
		reply.Data = data
	}
	reply.Timestamp = time.Now()
	h.Hub.SendMessage(client.ID, reply)
}

// writePump writes messages to the WebSocket client
func (h *Handlers) writePump(client *services.ClientConnection) {
	defer client.Conn.Close()

	for msg := range client.Send {
		if err := client.Conn.WriteJSON(msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.Log.Warnw("websocket write error", "client_id", client.ID, "error", err)
			}
			return
		}
	}

	// Send closed by the hub
	_ = client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}
