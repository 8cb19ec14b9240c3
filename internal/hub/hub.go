package hub

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Event represents a real-time event to be sent to a client.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Client represents a single live connection for a user. It's essentially a
// channel that the SSE handler will listen to.
type Client chan []byte

// clientBuffer bounds how many undelivered events a client may lag behind
// before deliveries to it start getting dropped.
const clientBuffer = 16

// Hub maintains the mapping from a user to their live delivery channel and
// pushes outbound notifications. Registration is last-wins: a user has at
// most one live channel, and a new connection replaces the previous one.
type Hub struct {
	clients map[uuid.UUID]Client
	mu      sync.RWMutex
}

// New creates a new Hub.
func New() *Hub {
	return &Hub{
		clients: make(map[uuid.UUID]Client),
	}
}

// Register binds a new client channel to a user, replacing and closing any
// previous one. The returned client must be released with Unregister.
func (h *Hub) Register(userID uuid.UUID) Client {
	client := make(Client, clientBuffer)

	h.mu.Lock()
	defer h.mu.Unlock()

	if old, ok := h.clients[userID]; ok {
		close(old)
	}
	h.clients[userID] = client

	logrus.WithField("user_id", userID).Debug("realtime client registered")
	return client
}

// Unregister removes the binding on disconnect. A stale client (already
// replaced by a newer registration) is ignored.
func (h *Hub) Unregister(userID uuid.UUID, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if current, ok := h.clients[userID]; ok && current == client {
		delete(h.clients, userID)
		close(client)
		logrus.WithField("user_id", userID).Debug("realtime client unregistered")
	}
}

// Deliver pushes an event to the user's live channel, if any. The push is
// best-effort: it never blocks and never retries. It reports whether the
// event was handed to a connected client.
func (h *Hub) Deliver(userID uuid.UUID, event Event) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	client, ok := h.clients[userID]
	if !ok {
		return false
	}

	messageBytes, err := json.Marshal(event)
	if err != nil {
		logrus.WithError(err).Error("failed to marshal realtime event")
		return false
	}

	// Use a non-blocking send to prevent a slow client from blocking the hub.
	select {
	case client <- messageBytes:
		return true
	default:
		// Client channel is full; the connection is slow or dead. Drop the
		// event, history stays queryable on demand.
		logrus.WithField("user_id", userID).Warn("dropping realtime event for slow client")
		return false
	}
}

// Connected reports whether the user currently has a live channel.
func (h *Hub) Connected(userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[userID]
	return ok
}
