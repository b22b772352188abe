package ws

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// sendQueueSize bounds the per-connection outbound queue. A client that
// cannot drain its queue is evicted instead of backpressuring the router.
const sendQueueSize = 64

// Conn is the subset of *websocket.Conn the client needs, split out so
// hub and router tests can run without network sockets.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client is one live websocket connection bound to a user identity.
type Client struct {
	ID          string
	UserID      int
	ConnectedAt time.Time

	conn Conn

	mu     sync.Mutex
	closed bool
	send   chan []byte
}

// NewClient wraps a connection for the given user.
func NewClient(userID int, conn Conn) *Client {
	return &Client{
		ID:          newConnID(),
		UserID:      userID,
		ConnectedAt: time.Now(),
		conn:        conn,
		send:        make(chan []byte, sendQueueSize),
	}
}

// Enqueue offers a payload to the connection without blocking. It
// reports false when the client is closed or its queue is full.
func (c *Client) Enqueue(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// close shuts the send queue exactly once and reports whether this call
// did the closing.
func (c *Client) close() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.closed = true
	close(c.send)
	return true
}

// WritePump drains the send queue onto the wire. It exits when the
// queue is closed or a write fails, closing the underlying connection
// either way so the read side unblocks.
func (c *Client) WritePump() {
	defer c.conn.Close()
	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

func newConnID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}
