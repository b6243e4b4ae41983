package chat

import "sync"

// PresenceTable tracks which users are joined to each room through at least
// one local connection. Multiple sockets for the same user collapse to a
// single presence entry; the table keeps a per-user reference count so that
// closing one socket does not drop presence while another remains joined.
//
// The table is advisory local state owned by this gateway instance. It is
// the only gateway-owned shared state that requires mutual exclusion, and
// its lock is never held across I/O.
type PresenceTable struct {
	mu    sync.Mutex
	rooms map[string]map[string]int
}

// NewPresenceTable creates an empty presence table.
func NewPresenceTable() *PresenceTable {
	return &PresenceTable{rooms: make(map[string]map[string]int)}
}

// Join records one socket of userID joining roomID. It reports whether this
// is the user's first live socket in the room, i.e. whether the user just
// became present.
func (p *PresenceTable) Join(roomID, userID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	users := p.rooms[roomID]
	if users == nil {
		users = make(map[string]int)
		p.rooms[roomID] = users
	}
	users[userID]++
	return users[userID] == 1
}

// Leave records one socket of userID leaving roomID. It reports whether the
// user's last socket just left, i.e. whether the user is no longer present.
// Leaving a room the user was never joined to is a no-op.
func (p *PresenceTable) Leave(roomID, userID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	users := p.rooms[roomID]
	if users == nil || users[userID] == 0 {
		return false
	}
	users[userID]--
	if users[userID] > 0 {
		return false
	}
	delete(users, userID)
	if len(users) == 0 {
		delete(p.rooms, roomID)
	}
	return true
}

// Contains reports whether userID is present in roomID.
func (p *PresenceTable) Contains(roomID, userID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rooms[roomID][userID] > 0
}

// Users returns the set of users currently present in roomID.
func (p *PresenceTable) Users(roomID string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	users := p.rooms[roomID]
	out := make([]string, 0, len(users))
	for userID := range users {
		out = append(out, userID)
	}
	return out
}
