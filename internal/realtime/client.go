package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 4096
)

type client struct {
	hub   *Hub
	conn  *websocket.Conn
	send  chan []byte
	mu    sync.RWMutex
	rooms map[string]struct{}
	once  sync.Once
}

func newClient(hub *Hub, conn *websocket.Conn, buffer int) *client {
	return &client{
		hub:   hub,
		conn:  conn,
		send:  make(chan []byte, buffer),
		rooms: make(map[string]struct{}),
	}
}

func (c *client) join(room string) {
	c.mu.Lock()
	c.rooms[room] = struct{}{}
	c.mu.Unlock()
}

// roomFor returns the first tagged room the client has joined, or "".
func (c *client) roomFor(rooms []string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, room := range rooms {
		if _, ok := c.rooms[room]; ok {
			return room
		}
	}
	return ""
}

// enqueue never blocks; a full buffer means the client is too slow.
func (c *client) enqueue(msg []byte) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.send)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

func (c *client) handleMessage(ctx context.Context, raw []byte) {
	var msg clientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return
	}
	switch msg.Type {
	case msgJoinAdminRoom:
		c.join(AdminRoom)
	case msgJoinUserRoom:
		id, err := uuid.Parse(msg.UserID)
		if err != nil {
			return
		}
		c.join(UserRoom(id))
		if c.hub.logg != nil {
			c.hub.logg.Debug(c.hub.logg.WithField(ctx, "room", UserRoom(id)), "realtime.join")
		}
	}
}

func (c *client) readPump(ctx context.Context, pongWait time.Duration) {
	defer c.hub.unregister(c)
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		c.handleMessage(ctx, raw)
	}
}

func (c *client) writePump(pingInterval time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.hub.unregister(c)
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
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
