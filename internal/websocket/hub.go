package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Event notifies connected clients that an entity changed. FamilyID scopes
// delivery: nil events reach everyone, family events reach that family's
// members and superadmin connections.
type Event struct {
	Type     string `json:"type"`
	Entity   string `json:"entity"`
	Action   string `json:"action"`
	ID       int64  `json:"id,omitempty"`
	FamilyID *int64 `json:"family_id,omitempty"`
}

// NewEvent builds an Event with Type derived from entity and action.
func NewEvent(entity, action string, id int64, familyID *int64) Event {
	return Event{
		Type:     entity + "_" + action,
		Entity:   entity,
		Action:   action,
		ID:       id,
		FamilyID: familyID,
	}
}

// Hub tracks active connections and fans events out to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger.With("component", "websocket"),
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Broadcast delivers the event to every client allowed to see it.
func (h *Hub) Broadcast(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("marshal event", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		if !c.wants(ev) {
			continue
		}
		select {
		case c.send <- data:
		default:
			// Client buffer full, drop rather than block the broadcaster
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
