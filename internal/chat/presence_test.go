package chat

import (
	"sort"
	"testing"
)

func TestPresenceFirstAndLastSocketTransitions(t *testing.T) {
	p := NewPresenceTable()

	if !p.Join("r1", "ua") {
		t.Error("first socket must report the user became present")
	}
	if p.Join("r1", "ua") {
		t.Error("second socket must not report a new presence")
	}
	if !p.Contains("r1", "ua") {
		t.Error("user must be present after joining")
	}

	if p.Leave("r1", "ua") {
		t.Error("leaving one of two sockets must not report absence")
	}
	if !p.Contains("r1", "ua") {
		t.Error("user must stay present while a socket remains")
	}
	if !p.Leave("r1", "ua") {
		t.Error("last socket leaving must report the user became absent")
	}
	if p.Contains("r1", "ua") {
		t.Error("user must be absent after the last socket left")
	}
}

func TestPresenceLeaveWithoutJoinIsNoop(t *testing.T) {
	p := NewPresenceTable()
	if p.Leave("r1", "ua") {
		t.Error("leave without join must not report a transition")
	}
	if p.Contains("r1", "ua") {
		t.Error("leave without join must not create presence")
	}
}

func TestPresenceRoomsAreIndependent(t *testing.T) {
	p := NewPresenceTable()
	p.Join("r1", "ua")
	p.Join("r2", "ua")
	p.Join("r1", "ub")

	if !p.Leave("r1", "ua") {
		t.Error("leaving r1 must drop presence in r1")
	}
	if !p.Contains("r2", "ua") {
		t.Error("presence in r2 must be unaffected")
	}

	users := p.Users("r1")
	sort.Strings(users)
	if len(users) != 1 || users[0] != "ub" {
		t.Errorf("r1 users = %v, want [ub]", users)
	}
}
