package signaling

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 70 * time.Second
	pingPeriod = 30 * time.Second

	sendBufferSize = 32
)

// Client is one live bidirectional connection. The ID is opaque, assigned on
// connect and never reused. The user identity attaches later, when the client
// sends announce-identity.
type Client struct {
	ID string

	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu       sync.Mutex
	identity string

	closeOnce sync.Once
}

func newClient(hub *Hub, conn *websocket.Conn) (*Client, error) {
	id, err := gonanoid.New(16)
	if err != nil {
		return nil, err
	}
	return &Client{
		ID:   id,
		hub:  hub,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}, nil
}

func (c *Client) setIdentity(identity string) {
	c.mu.Lock()
	c.identity = identity
	c.mu.Unlock()
}

// Identity returns the announced user identity, or "" before announce.
func (c *Client) Identity() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity
}

// trySend queues payload without blocking. Delivery is fire-and-forget: a full
// buffer or a closed channel reports false, never panics.
func (c *Client) trySend(payload []byte) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

func (c *Client) closeConn() {
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

func (c *Client) readPump() {
	defer func() {
		c.closeConn()
		c.hub.dropClient(c)
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		c.hub.handleEvent(c, payload)
	}
}

func (c *Client) writePump() {
	defer c.closeConn()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
