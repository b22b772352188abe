package ws

import (
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"

	"messenger-service/internal/models"
	"messenger-service/internal/observability"
	"messenger-service/internal/presence"
)

// Hub owns the group rooms and the presence registry. All mutations of
// shared connection state go through it; broadcasts are enqueue-only
// and never block on a slow connection.
type Hub struct {
	mu       sync.RWMutex
	rooms    map[int]map[*Client]bool
	presence *presence.Registry
	log      *logrus.Logger
}

// NewHub creates an empty hub.
func NewHub(log *logrus.Logger) *Hub {
	if log == nil {
		log = logrus.New()
	}
	return &Hub{
		rooms:    make(map[int]map[*Client]bool),
		presence: presence.NewRegistry(),
		log:      log,
	}
}

// Register adds a freshly connected client. When this is the user's
// first live connection the presence snapshot is rebroadcast.
func (h *Hub) Register(c *Client) {
	first := h.presence.Register(c.UserID, c)
	observability.IncWSActive()
	if first {
		h.broadcastPresence()
	}
}

// Drop tears a client down: it leaves every room, is removed from the
// presence registry, and its send queue is closed so the write pump
// exits. Dropping an already-dropped client is a no-op.
func (h *Hub) Drop(c *Client) {
	if !c.close() {
		return
	}

	h.mu.Lock()
	for groupID, members := range h.rooms {
		if members[c] {
			delete(members, c)
			if len(members) == 0 {
				delete(h.rooms, groupID)
			}
		}
	}
	h.mu.Unlock()

	last := h.presence.Unregister(c.UserID, c)
	observability.DecWSActive()
	if last {
		h.broadcastPresence()
	}
}

// IsOnline reports whether the user has at least one live connection.
func (h *Hub) IsOnline(userID int) bool {
	return h.presence.IsOnline(userID)
}

// OnlineUsers returns the current presence snapshot.
func (h *Hub) OnlineUsers() []int {
	return h.presence.Snapshot()
}

// JoinRoom subscribes a client to a group room.
func (h *Hub) JoinRoom(groupID int, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[groupID]; !ok {
		h.rooms[groupID] = make(map[*Client]bool)
	}
	h.rooms[groupID][c] = true
}

// LeaveRoom drops a client's room subscription.
func (h *Hub) LeaveRoom(groupID int, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.rooms[groupID]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, groupID)
		}
	}
}

// SubscribeUser joins every live connection of the user to the room.
// Used right after group creation so members receive messages without
// reconnecting.
func (h *Hub) SubscribeUser(groupID, userID int) {
	for _, handle := range h.presence.HandlesFor(userID) {
		if c, ok := handle.(*Client); ok {
			h.JoinRoom(groupID, c)
		}
	}
}

// UnsubscribeUser removes every live connection of the user from the room.
func (h *Hub) UnsubscribeUser(groupID, userID int) {
	for _, handle := range h.presence.HandlesFor(userID) {
		if c, ok := handle.(*Client); ok {
			h.LeaveRoom(groupID, c)
		}
	}
}

// BroadcastToRoom pushes an event to every connection subscribed to the
// group room.
func (h *Hub) BroadcastToRoom(groupID int, event models.ServerEvent) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.rooms[groupID]))
	for c := range h.rooms[groupID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	h.deliver(clients, event)
}

// SendToUser pushes an event to every live connection of one user.
// Offline users are silently skipped; durability comes from the store.
func (h *Hub) SendToUser(userID int, event models.ServerEvent) {
	handles := h.presence.HandlesFor(userID)
	clients := make([]*Client, 0, len(handles))
	for _, handle := range handles {
		if c, ok := handle.(*Client); ok {
			clients = append(clients, c)
		}
	}
	h.deliver(clients, event)
}

func (h *Hub) broadcastPresence() {
	event := models.ServerEvent{Type: models.EventOnlineUsers, UserIDs: h.presence.Snapshot()}
	handles := h.presence.AllHandles()
	clients := make([]*Client, 0, len(handles))
	for _, handle := range handles {
		if c, ok := handle.(*Client); ok {
			clients = append(clients, c)
		}
	}
	observability.IncWSEvent(models.EventOnlineUsers)
	h.deliver(clients, event)
}

func (h *Hub) deliver(clients []*Client, event models.ServerEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.log.WithError(err).Error("marshal ws event")
		return
	}
	for _, c := range clients {
		if !c.Enqueue(payload) {
			h.log.WithFields(logrus.Fields{
				"user_id": c.UserID,
				"conn_id": c.ID,
				"event":   event.Type,
			}).Warn("send queue stalled, evicting connection")
			h.Drop(c)
		}
	}
}
