package broker

import (
	"sync"

	"github.com/gorilla/websocket"

	"MediChat/logger"
	"MediChat/module/chat/model"
	"MediChat/tools/safe"
)

// client is one authenticated websocket, with its own outbound queue
// consumed by a single writer goroutine.
type client struct {
	userID   int64
	identity model.Identity
	ws       *websocket.Conn
	send     chan []byte

	closeOnce sync.Once
}

func newClient(userID int64, ws *websocket.Conn, queueSize int) *client {
	c := &client{
		userID: userID,
		ws:     ws,
		send:   make(chan []byte, queueSize),
	}
	safe.SafeGo(c.writePump)
	return c
}

func (c *client) writePump() {
	for data := range c.send {
		if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
			logger.Infof("broker write to user %d failed: %v", c.userID, err)
			return
		}
	}
}

// enqueue drops on a full queue rather than blocking the caller.
func (c *client) enqueue(data []byte) {
	select {
	case c.send <- data:
	default:
		logger.Infof("broker send queue full, dropping frame for user %d", c.userID)
	}
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.send)
		_ = c.ws.Close()
	})
}

// Registry indexes live clients by user id. A user reconnecting replaces
// the previous socket.
type Registry struct {
	mu     sync.RWMutex
	byUser map[int64]*client
}

func NewRegistry() *Registry {
	return &Registry{byUser: make(map[int64]*client)}
}

func (r *Registry) add(c *client) {
	r.mu.Lock()
	old := r.byUser[c.userID]
	r.byUser[c.userID] = c
	r.mu.Unlock()
	if old != nil {
		old.close()
	}
}

func (r *Registry) remove(c *client) {
	r.mu.Lock()
	if r.byUser[c.userID] == c {
		delete(r.byUser, c.userID)
	}
	r.mu.Unlock()
	c.close()
}

func (r *Registry) get(userID int64) *client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byUser[userID]
}

// online reports whether a user has a live socket.
func (r *Registry) online(userID int64) bool {
	return r.get(userID) != nil
}
