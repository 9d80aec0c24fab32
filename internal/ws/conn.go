package ws

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"serveease-chat/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 64
)

// Conn is one authenticated websocket connection. Identity is fixed at
// handshake and never changes for the connection's lifetime.
type Conn struct {
	ID       string
	UserID   int
	UserName string

	ws   *websocket.Conn
	send chan models.ServerEvent

	mu     sync.Mutex
	closed bool
}

func newConn(wsConn *websocket.Conn, user models.User) *Conn {
	return &Conn{
		ID:       newConnID(),
		UserID:   user.ID,
		UserName: user.Name,
		ws:       wsConn,
		send:     make(chan models.ServerEvent, sendBuffer),
	}
}

// Enqueue hands an event to the write pump. A slow consumer whose buffer is
// full drops the event rather than stalling the broadcaster. Broadcasters can
// hold a room snapshot taken before this connection disconnected, so events
// arriving after close are dropped the same way.
func (c *Conn) Enqueue(event models.ServerEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- event:
	default:
		log.Printf("ws: dropping %s event for slow connection %s (user %d)", event.Type, c.ID, c.UserID)
	}
}

// writePump serializes all writes to the socket and keeps it alive with pings.
func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				log.Printf("ws: encode %s event for user %d: %v", event.Type, c.UserID, err)
				continue
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Conn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func newConnID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}
