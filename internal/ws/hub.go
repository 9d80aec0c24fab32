package ws

import (
	"sync"

	"serveease-chat/internal/models"
)

// Hub owns the connection registry and the broadcast rooms. It is created
// once at startup and injected into the gateway and the chat service; nothing
// else mutates it. One connection per user is considered online: a newer
// connection replaces the registry entry of an older one.
type Hub struct {
	mu sync.RWMutex

	// rooms maps conversation id to the connections joined to it.
	rooms map[int]map[*Conn]bool
	// userConns and connUsers are the registry: O(1) in both directions.
	userConns map[int]*Conn
	connUsers map[string]int
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		rooms:     make(map[int]map[*Conn]bool),
		userConns: make(map[int]*Conn),
		connUsers: make(map[string]int),
	}
}

// Register records the user's connection, replacing any previous one.
func (h *Hub) Register(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if prev, ok := h.userConns[c.UserID]; ok {
		delete(h.connUsers, prev.ID)
	}
	h.userConns[c.UserID] = c
	h.connUsers[c.ID] = c.UserID
}

// Unregister removes the connection from the registry and every room. The
// registry entry is only dropped if it still points at this connection.
func (h *Hub) Unregister(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.connUsers, c.ID)
	if current, ok := h.userConns[c.UserID]; ok && current == c {
		delete(h.userConns, c.UserID)
	}
	for conversationID, conns := range h.rooms {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.rooms, conversationID)
		}
	}
}

// JoinRoom adds the connection to a conversation's room.
func (h *Hub) JoinRoom(conversationID int, c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[conversationID]; !ok {
		h.rooms[conversationID] = make(map[*Conn]bool)
	}
	h.rooms[conversationID][c] = true
}

// LeaveRoom removes the connection from a conversation's room. Membership
// only; no receipt or participant state changes.
func (h *Hub) LeaveRoom(conversationID int, c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.rooms[conversationID]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.rooms, conversationID)
		}
	}
}

// IsOnline reports whether the user has a registered connection.
func (h *Hub) IsOnline(userID int) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.userConns[userID]
	return ok
}

// ToConversation sends the event to every connection in the room.
func (h *Hub) ToConversation(conversationID int, event models.ServerEvent) {
	for _, c := range h.roomConns(conversationID) {
		c.Enqueue(event)
	}
}

// ToConversationExcept sends the event to the room, skipping one user's
// connections.
func (h *Hub) ToConversationExcept(conversationID, exceptUserID int, event models.ServerEvent) {
	for _, c := range h.roomConns(conversationID) {
		if c.UserID == exceptUserID {
			continue
		}
		c.Enqueue(event)
	}
}

// ToUser sends a user-directed event independent of any conversation room.
func (h *Hub) ToUser(userID int, event models.ServerEvent) {
	h.mu.RLock()
	c, ok := h.userConns[userID]
	h.mu.RUnlock()
	if ok {
		c.Enqueue(event)
	}
}

// ToAllExcept announces presence changes to every other connection.
func (h *Hub) ToAllExcept(exceptConn *Conn, event models.ServerEvent) {
	h.mu.RLock()
	conns := make([]*Conn, 0, len(h.userConns))
	for _, c := range h.userConns {
		if c != exceptConn {
			conns = append(conns, c)
		}
	}
	h.mu.RUnlock()
	for _, c := range conns {
		c.Enqueue(event)
	}
}

func (h *Hub) roomConns(conversationID int) []*Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	conns := make([]*Conn, 0, len(h.rooms[conversationID]))
	for c := range h.rooms[conversationID] {
		conns = append(conns, c)
	}
	return conns
}
