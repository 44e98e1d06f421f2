package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/quantumlab/labtrack/internal/pkg/metrics"
	"github.com/rs/zerolog"
)

// Event types pushed to connected clients
const (
	EventNotification = "notification"
	EventMessage      = "message"
)

// Event is a realtime push addressed to one user
type Event struct {
	// Type of event: "notification", "message"
	Type string `json:"type"`

	// Recipient user
	UserID int64 `json:"userId"`

	// Event body, already JSON encoded
	Payload json.RawMessage `json:"payload"`

	Timestamp time.Time `json:"timestamp"`
}

// Hub maintains the set of active clients and routes events to them by user
type Hub struct {
	// Registered clients organized by user ID; a user may have several tabs open
	clients map[int64]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	deliver    chan *Event
	done       chan struct{}

	mu     sync.RWMutex
	logger zerolog.Logger
}

// NewHub creates a new Hub instance
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[int64]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		deliver:    make(chan *Event, 256),
		done:       make(chan struct{}),
		logger:     logger.With().Str("component", "realtime").Logger(),
	}
}

// Run handles registrations and deliveries until ctx is cancelled
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			close(h.done)
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.mu.Lock()
			h.removeClient(client)
			h.mu.Unlock()

		case event := <-h.deliver:
			h.deliverEvent(event)
		}
	}
}

// Deliver queues an event for local clients. It never blocks; when the hub is
// saturated the event is dropped, since clients reload state over HTTP anyway.
func (h *Hub) Deliver(event *Event) {
	select {
	case h.deliver <- event:
	default:
		h.logger.Warn().Str("type", event.Type).Int64("userID", event.UserID).Msg("Realtime hub saturated, event dropped")
	}
}

// attach registers a client unless the hub has stopped
func (h *Hub) attach(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// detach unregisters a client; after the hub stopped it is a no-op
func (h *Hub) detach(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// ClientCount returns the number of open connections for a user
func (h *Hub) ClientCount(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.userID]; !ok {
		h.clients[client.userID] = make(map[*Client]bool)
	}
	h.clients[client.userID][client] = true
	metrics.RealtimeConnections.Inc()

	h.logger.Debug().Int64("userID", client.userID).Msg("Client registered")
}

// removeClient must be called with mu held
func (h *Hub) removeClient(client *Client) {
	userClients, ok := h.clients[client.userID]
	if !ok {
		return
	}
	if _, ok := userClients[client]; !ok {
		return
	}

	delete(userClients, client)
	close(client.send)
	metrics.RealtimeConnections.Dec()
	if len(userClients) == 0 {
		delete(h.clients, client.userID)
	}

	h.logger.Debug().Int64("userID", client.userID).Msg("Client unregistered")
}

func (h *Hub) deliverEvent(event *Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Str("type", event.Type).Msg("Failed to marshal realtime event")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients[event.UserID] {
		select {
		case client.send <- data:
		default:
			// Slow consumer: drop the connection, the client reconnects and refetches.
			h.removeClient(client)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, userClients := range h.clients {
		for client := range userClients {
			h.removeClient(client)
		}
	}
}
