package chat

import (
	"context"
	"sync"
	"time"

	"github.com/parley-chat/parley/internal/logger"
)

// Hub is the connection registry for one gateway instance. It maps socket
// ids to live clients and rooms to their locally subscribed sockets, and
// delivers room-scoped payloads to them. All map access is serialized by a
// single mutex, and the mutex is never held across network I/O: sends go
// through each client's buffered channel.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	rooms   map[string]map[string]*Client
	wg      sync.WaitGroup
	closed  bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		rooms:   make(map[string]map[string]*Client),
	}
}

// Register adds an authenticated client to the registry and starts its
// read/write pumps when it has a live transport connection.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		c.closeConnection()
		return
	}
	c.closed = false
	h.clients[c.session.SocketID] = c
	total := len(h.clients)
	h.mu.Unlock()

	logger.Infof("socket %s registered from %s (%d connected)", c.session.SocketID, c.addr, total)

	if c.conn != nil {
		h.wg.Add(2)
		go func() {
			defer h.wg.Done()
			c.writePump()
		}()
		go func() {
			defer h.wg.Done()
			c.readPump()
		}()
	}
}

// Unregister removes the client from the registry and every room
// subscription, closing its send channel exactly once. Safe to call for a
// client that was never registered or is already gone.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c.session.SocketID]
	if ok {
		delete(h.clients, c.session.SocketID)
		for roomID, members := range h.rooms {
			delete(members, c.session.SocketID)
			if len(members) == 0 {
				delete(h.rooms, roomID)
			}
		}
		c.closed = true
	}
	total := len(h.clients)
	h.mu.Unlock()

	if ok {
		close(c.send)
		logger.Infof("socket %s unregistered (%d connected)", c.session.SocketID, total)
	}
}

// Subscribe adds the client's socket to a room's local broadcast group.
func (h *Hub) Subscribe(roomID string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	if _, registered := h.clients[c.session.SocketID]; !registered {
		return
	}
	members := h.rooms[roomID]
	if members == nil {
		members = make(map[string]*Client)
		h.rooms[roomID] = members
	}
	members[c.session.SocketID] = c
}

// Unsubscribe removes the client's socket from a room's broadcast group.
func (h *Hub) Unsubscribe(roomID string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members := h.rooms[roomID]
	if members == nil {
		return
	}
	delete(members, c.session.SocketID)
	if len(members) == 0 {
		delete(h.rooms, roomID)
	}
}

// DeliverRoom sends a payload to every local socket subscribed to the room,
// skipping exceptSocket when set. Sockets whose send buffers are full are
// dropped from the hub; delivery to a disconnected socket is swallowed, not
// retried.
func (h *Hub) DeliverRoom(roomID string, payload []byte, exceptSocket string) {
	h.mu.RLock()
	members := h.rooms[roomID]
	targets := make([]*Client, 0, len(members))
	for socketID, c := range members {
		if socketID == exceptSocket {
			continue
		}
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	var failed []*Client
	for _, c := range targets {
		if !h.trySend(c, payload) {
			failed = append(failed, c)
		}
	}
	h.dropFailed(failed)
}

// Send delivers a payload to a single client, dropping the client if its
// buffer is full.
func (h *Hub) Send(c *Client, payload []byte) {
	if !h.trySend(c, payload) {
		h.dropFailed([]*Client{c})
	}
}

func (h *Hub) trySend(c *Client, payload []byte) bool {
	defer func() {
		if r := recover(); r != nil {
			logger.Warnf("recovered from send on closed channel: %v", r)
		}
	}()

	h.mu.RLock()
	defer h.mu.RUnlock()

	if _, exists := h.clients[c.session.SocketID]; !exists || c.closed {
		return false
	}

	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (h *Hub) dropFailed(failed []*Client) {
	if len(failed) == 0 {
		return
	}

	h.mu.Lock()
	var toClose []chan []byte
	for _, c := range failed {
		if _, exists := h.clients[c.session.SocketID]; exists {
			delete(h.clients, c.session.SocketID)
			for roomID, members := range h.rooms {
				delete(members, c.session.SocketID)
				if len(members) == 0 {
					delete(h.rooms, roomID)
				}
			}
			c.closed = true
			toClose = append(toClose, c.send)
			logger.Warnf("socket %s dropped: send buffer full", c.session.SocketID)
		}
	}
	h.mu.Unlock()

	for _, ch := range toClose {
		close(ch)
	}
}

// RoomSize returns the number of local sockets subscribed to a room.
func (h *Hub) RoomSize(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// Len returns the number of registered clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Shutdown closes every client connection and waits for the pump goroutines
// to finish, or until the timeout elapses.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.mu.Lock()
	h.closed = true
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	logger.Infof("closing %d client connections", len(clients))
	for _, c := range clients {
		c.closeConnection()
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Infof("hub shutdown completed")
		return nil
	case <-time.After(timeout):
		logger.Warnf("hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
