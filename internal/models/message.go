package models

import (
	"encoding/json"
	"time"
)

// WebSocketMessage represents a message sent over WebSocket
type WebSocketMessage struct {
	Type      string          `json:"type"` // "stats", "command", "reply", "benchmarkProgress", "ping", "auth"
	ID        string          `json:"id,omitempty"`
	Cmd       string          `json:"cmd,omitempty"`
	ReplyTo   string          `json:"reply_to,omitempty"`
	Args      json.RawMessage `json:"args,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Data      interface{}     `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`
	Token     string          `json:"token,omitempty"` // For auth messages from client
}
