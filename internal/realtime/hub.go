// Package realtime pushes freshly created notifications to a recipient's
// live connections. Delivery is best-effort: a user with no connection
// simply misses the push and reads the notification from the feed later.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yocodex/backend/internal/logger"
	"github.com/yocodex/backend/internal/metrics"
	"go.uber.org/zap"
)

// Hub maintains the set of active clients keyed by user ID. Each user
// may hold several simultaneous connections (multi-device); a unicast
// goes to all of them.
type Hub struct {
	// Registered clients by user ID for targeted delivery
	clients map[string]map[*Client]struct{}

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Send message to a specific user
	unicast chan *unicastMessage

	// Mutex for client map access
	mu sync.RWMutex

	// Metrics
	metrics *Metrics

	// Shutdown handling
	ctx    context.Context
	cancel context.CancelFunc

	rateLimitConfig RateLimitConfig
}

// Metrics tracks connection statistics
type Metrics struct {
	TotalConnections   atomic.Int64
	ActiveConnections  atomic.Int64
	MessagesReceived   atomic.Int64
	MessagesSent       atomic.Int64
	Errors             atomic.Int64
	ConnectionsDropped atomic.Int64
}

// RateLimitConfig bounds inbound frames per client
type RateLimitConfig struct {
	MaxMessagesPerSecond int
	BurstSize            int
}

// DefaultRateLimitConfig returns sensible defaults
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxMessagesPerSecond: 10,
		BurstSize:            20,
	}
}

type unicastMessage struct {
	userID  string
	message *Message
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:         make(map[string]map[*Client]struct{}),
		register:        make(chan *Client, 256),
		unregister:      make(chan *Client, 256),
		unicast:         make(chan *unicastMessage, 256),
		metrics:         &Metrics{},
		ctx:             ctx,
		cancel:          cancel,
		rateLimitConfig: DefaultRateLimitConfig(),
	}
}

// Run starts the hub's main event loop
func (h *Hub) Run() {
	logger.Log.Info("Realtime hub starting")

	for {
		select {
		case <-h.ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case uc := <-h.unicast:
			h.sendToUser(uc.userID, uc.message)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.UserID] == nil {
		h.clients[client.UserID] = make(map[*Client]struct{})
	}
	h.clients[client.UserID][client] = struct{}{}

	h.metrics.TotalConnections.Add(1)
	h.metrics.ActiveConnections.Add(1)
	metrics.Get().WebSocketConnections.Inc()

	logger.Log.Info("Realtime client connected",
		logger.WithUserID(client.UserID),
		zap.Int64("active", h.metrics.ActiveConnections.Load()),
	)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.clients[client.UserID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}

	delete(clients, client)
	if len(clients) == 0 {
		delete(h.clients, client.UserID)
	}

	close(client.send)
	h.metrics.ActiveConnections.Add(-1)
	metrics.Get().WebSocketConnections.Dec()

	logger.Log.Info("Realtime client disconnected",
		logger.WithUserID(client.UserID),
		zap.Int64("active", h.metrics.ActiveConnections.Load()),
	)
}

// sendToUser delivers a message to every connection the user holds.
// Zero connections means the push is dropped.
func (h *Hub) sendToUser(userID string, message *Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients, ok := h.clients[userID]
	if !ok || len(clients) == 0 {
		return
	}

	data, err := json.Marshal(message)
	if err != nil {
		logger.Log.Error("Failed to marshal realtime message", zap.Error(err))
		return
	}

	for client := range clients {
		select {
		case client.send <- data:
			h.metrics.MessagesSent.Add(1)
			metrics.Get().WebSocketMessagesTotal.WithLabelValues("out").Inc()
		default:
			// Client's buffer is full, mark for removal
			h.metrics.ConnectionsDropped.Add(1)
			go func(c *Client) {
				h.unregister <- c
			}(client)
		}
	}
}

// EmitToUser queues a fire-and-forget push to the user's connections.
// It never blocks the caller and never reports delivery failure.
func (h *Hub) EmitToUser(userID string, event string, payload interface{}) {
	select {
	case h.unicast <- &unicastMessage{userID: userID, message: NewMessage(event, payload)}:
	case <-h.ctx.Done():
	default:
		// Unicast queue full; the notification is still readable from
		// the feed, so dropping here is acceptable.
		h.metrics.ConnectionsDropped.Add(1)
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.ctx.Done():
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

// IsUserOnline checks if a user has any active connections
func (h *Hub) IsUserOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	clients, ok := h.clients[userID]
	return ok && len(clients) > 0
}

// UserConnectionCount returns the number of connections for a user
func (h *Hub) UserConnectionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Shutdown stops the hub and closes all client connections
func (h *Hub) Shutdown(ctx context.Context) error {
	h.cancel()

	done := make(chan struct{})
	go func() {
		// Wait for the run loop to drain and close clients
		for {
			h.mu.RLock()
			n := len(h.clients)
			h.mu.RUnlock()
			if n == 0 {
				close(done)
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
	}()

	select {
	case <-done:
		logger.Log.Info("Realtime hub shutdown complete")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown timeout: %w", ctx.Err())
	}
}

// closeAll closes every client connection during shutdown
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	shutdownMsg := NewMessage(MessageTypeSystem, SystemPayload{Event: "server_shutdown"})
	data, _ := json.Marshal(shutdownMsg)

	for _, clients := range h.clients {
		for client := range clients {
			select {
			case client.send <- data:
			default:
			}
			close(client.send)
		}
	}

	h.clients = make(map[string]map[*Client]struct{})
}

// GetMetrics returns a point-in-time snapshot of hub metrics
func (h *Hub) GetMetrics() MetricsSnapshot {
	return MetricsSnapshot{
		TotalConnections:   h.metrics.TotalConnections.Load(),
		ActiveConnections:  h.metrics.ActiveConnections.Load(),
		MessagesReceived:   h.metrics.MessagesReceived.Load(),
		MessagesSent:       h.metrics.MessagesSent.Load(),
		Errors:             h.metrics.Errors.Load(),
		ConnectionsDropped: h.metrics.ConnectionsDropped.Load(),
	}
}

// MetricsSnapshot is a point-in-time snapshot of metrics
type MetricsSnapshot struct {
	TotalConnections   int64 `json:"total_connections"`
	ActiveConnections  int64 `json:"active_connections"`
	MessagesReceived   int64 `json:"messages_received"`
	MessagesSent       int64 `json:"messages_sent"`
	Errors             int64 `json:"errors"`
	ConnectionsDropped int64 `json:"connections_dropped"`
}

// RateLimitForClients returns the inbound rate limit configuration
func (h *Hub) RateLimitForClients() RateLimitConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rateLimitConfig
}
