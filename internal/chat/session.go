package chat

import (
	"sync"

	"github.com/google/uuid"
)

// Identity is the authenticated principal bound to a connection. It is set
// once during the handshake and never changes for the session's lifetime.
type Identity struct {
	UserID   string
	Username string
}

// Session is the per-socket state record: the socket's identity and the
// room it has joined, if any. A session joins at most one room at a time.
// All fields are guarded by the session's own mutex so a disconnect racing
// an explicit leave observes a consistent transition.
type Session struct {
	SocketID string

	mu       sync.Mutex
	identity *Identity
	room     string
	closed   bool
}

// NewSession creates an unauthenticated session with a fresh socket id.
func NewSession() *Session {
	return &Session{SocketID: uuid.NewString()}
}

// Authenticate binds the identity to the session. It is called exactly once,
// before the session is registered with the hub.
func (s *Session) Authenticate(id Identity) {
	s.mu.Lock()
	s.identity = &id
	s.mu.Unlock()
}

// Identity returns the bound identity and whether the session is
// authenticated.
func (s *Session) Identity() (Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return Identity{}, false
	}
	return *s.identity, true
}

// Room returns the currently joined room id, or "".
func (s *Session) Room() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room
}

// EnterRoom records the joined room unless the session has already closed.
// It reports whether the join was recorded; a false return means the socket
// disconnected while the join was in flight and the caller must discard the
// state change.
func (s *Session) EnterRoom(roomID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.room = roomID
	return true
}

// ExitRoom clears the joined room if it matches roomID, reporting whether
// anything was cleared. Leaving a room the session is not in is a no-op,
// which makes explicit leave and disconnect cleanup idempotent against each
// other.
func (s *Session) ExitRoom(roomID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.room != roomID || roomID == "" {
		return false
	}
	s.room = ""
	return true
}

// Close marks the session closed, reporting whether this call was the first.
func (s *Session) Close() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.closed = true
	return true
}
