package events

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// LoginEvent is the interactive-login notification broadcast to monitor
// clients when a member is logged in through the token endpoint.
type LoginEvent struct {
	Type     string    `json:"type"`
	MemberID int64     `json:"member_id"`
	Username string    `json:"username"`
	Remote   string    `json:"remote,omitempty"`
	At       time.Time `json:"at"`
}

// NewLoginEvent builds an interactive-login event stamped with the
// current time.
func NewLoginEvent(memberID int64, username, remote string) LoginEvent {
	return LoginEvent{
		Type:     "interactive_login",
		MemberID: memberID,
		Username: username,
		Remote:   remote,
		At:       time.Now().UTC(),
	}
}

// Hub maintains the set of connected monitor clients and fans login
// events out to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Broadcast sends the event to all connected clients.
func (h *Hub) Broadcast(ev LoginEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("marshal login event", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			// Client buffer full — drop the event rather than block the login
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
