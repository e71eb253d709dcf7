package services

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"xenocpu/internal/models"
	"xenocpu/internal/telemetry"
)

// Message types pushed by the hub
const (
	MessageStats             = "stats"
	MessageBenchmarkProgress = "benchmarkProgress"
	MessageReply             = "reply"
)

// ClientConnection represents a connected WebSocket client
type ClientConnection struct {
	ID         string
	ClientName string
	Conn       *websocket.Conn
	Send       chan models.WebSocketMessage
}

// NewClientConnection wraps conn with a fresh client ID
func NewClientConnection(conn *websocket.Conn, clientName string) *ClientConnection {
	return &ClientConnection{
		ID:         uuid.NewString(),
		ClientName: clientName,
		Conn:       conn,
		Send:       make(chan models.WebSocketMessage, 256),
	}
}

// StatsFunc builds the periodic stats payload
type StatsFunc func() interface{}

// WebSocketHub manages all connected WebSocket clients
type WebSocketHub struct {
	clients    map[string]*ClientConnection
	broadcast  chan models.WebSocketMessage
	register   chan *ClientConnection
	unregister chan string
	mu         sync.RWMutex
	interval   time.Duration
	stats      StatsFunc
	done       chan struct{}
	stopOnce   sync.Once

	// set while a stats payload is being built
	statsBusy atomic.Bool

	metrics *telemetry.Metrics
	log     *zap.SugaredLogger
}

// NewWebSocketHub creates a hub that pushes stats() every interval once
// started. stats may be nil to disable the periodic push.
func NewWebSocketHub(interval time.Duration, stats StatsFunc, metrics *telemetry.Metrics, log *zap.SugaredLogger) *WebSocketHub {
	return &WebSocketHub{
		clients:    make(map[string]*ClientConnection),
		broadcast:  make(chan models.WebSocketMessage, 256),
		register:   make(chan *ClientConnection),
		unregister: make(chan string),
		interval:   interval,
		stats:      stats,
		done:       make(chan struct{}),
		metrics:    metrics,
		log:        log,
	}
}

// Start runs the hub's event loop in the background
func (h *WebSocketHub) Start() {
	go h.run()
}

// run manages the hub's event loop
func (h *WebSocketHub) run() {
	var tick <-chan time.Time
	if h.stats != nil {
		ticker := time.NewTicker(h.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for id, client := range h.clients {
				delete(h.clients, id)
				close(client.Send)
			}
			h.mu.Unlock()
			h.metrics.WebSocketClients.Set(0)
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			total := len(h.clients)
			h.mu.Unlock()
			h.metrics.WebSocketClients.Set(float64(total))
			h.log.Infow("websocket client connected", "client_id", client.ID, "client", client.ClientName, "total", total)

		case clientID := <-h.unregister:
			h.mu.Lock()
			if client, exists := h.clients[clientID]; exists {
				delete(h.clients, clientID)
				close(client.Send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.metrics.WebSocketClients.Set(float64(total))
			h.log.Infow("websocket client disconnected", "client_id", clientID, "total", total)

		case msg := <-h.broadcast:
			h.mu.RLock()
			for _, client := range h.clients {
				select {
				case client.Send <- msg:
				default:
					// Client's send channel is full, skip this message
				}
			}
			h.mu.RUnlock()

		case <-tick:
			if h.ClientCount() == 0 || !h.statsBusy.CompareAndSwap(false, true) {
				continue
			}
			// stats may block on a hardware sample; keep the loop responsive
			go h.pushStats()
		}
	}
}

func (h *WebSocketHub) pushStats() {
	defer h.statsBusy.Store(false)
	data := h.stats()
	select {
	case <-h.done:
		return
	default:
	}
	h.Broadcast(models.WebSocketMessage{
		Type:      MessageStats,
		Timestamp: time.Now(),
		Data:      data,
	})
}

// Register adds a new client to the hub
func (h *WebSocketHub) Register(client *ClientConnection) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.Send)
	}
}

// Unregister removes a client from the hub
func (h *WebSocketHub) Unregister(clientID string) {
	select {
	case h.unregister <- clientID:
	case <-h.done:
	}
}

// Broadcast queues a message for every client. It never blocks; when the
// queue is full the message is dropped.
func (h *WebSocketHub) Broadcast(msg models.WebSocketMessage) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	select {
	case h.broadcast <- msg:
	default:
		h.log.Debugw("broadcast queue full, dropping message", "type", msg.Type)
	}
}

// BroadcastProgress pushes a benchmark progress event
func (h *WebSocketHub) BroadcastProgress(p models.BenchmarkProgress) {
	h.Broadcast(models.WebSocketMessage{Type: MessageBenchmarkProgress, Data: p})
}

// SendMessage sends a message to a specific client. Messages to unknown
// clients or full queues are dropped.
func (h *WebSocketHub) SendMessage(clientID string, msg models.WebSocketMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	client, exists := h.clients[clientID]
	if !exists {
		return
	}
	select {
	case client.Send <- msg:
	default:
	}
}

// ClientCount returns the number of registered clients
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stop gracefully stops the hub and closes every client's send queue
func (h *WebSocketHub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}
