package chat

import (
	"testing"
	"time"

	"github.com/parley-chat/parley/internal/backplane"
	"github.com/parley-chat/parley/internal/config"
)

func newHubClient(t *testing.T) (*Gateway, *Client) {
	t.Helper()
	g := New("gw-hub", config.Default(), fakeVerifier{}, newFakeDirectory(), &fakeMessageStore{}, backplane.NewMemory())
	s := NewSession()
	s.Authenticate(Identity{UserID: "ua", Username: "alice"})
	return g, newClient(nil, g, s, "test")
}

func TestHubDeliverRoomSkipsExceptSocket(t *testing.T) {
	g, a := newHubClient(t)
	bSession := NewSession()
	bSession.Authenticate(Identity{UserID: "ub", Username: "bob"})
	b := newClient(nil, g, bSession, "test")

	g.hub.Register(a)
	g.hub.Register(b)
	g.hub.Subscribe("r1", a)
	g.hub.Subscribe("r1", b)

	g.hub.DeliverRoom("r1", []byte("x"), a.session.SocketID)

	select {
	case <-b.send:
	default:
		t.Fatal("non-excluded socket must receive the payload")
	}
	select {
	case <-a.send:
		t.Fatal("excluded socket must not receive the payload")
	default:
	}
}

func TestHubSubscribeRequiresRegistration(t *testing.T) {
	g, a := newHubClient(t)

	g.hub.Subscribe("r1", a)
	if g.hub.RoomSize("r1") != 0 {
		t.Fatal("unregistered client must not join a broadcast group")
	}

	g.hub.Register(a)
	g.hub.Subscribe("r1", a)
	if g.hub.RoomSize("r1") != 1 {
		t.Fatal("registered client must join the broadcast group")
	}
}

func TestHubUnregisterIsIdempotent(t *testing.T) {
	g, a := newHubClient(t)
	g.hub.Register(a)
	g.hub.Subscribe("r1", a)

	g.hub.Unregister(a)
	g.hub.Unregister(a)

	if g.hub.Len() != 0 || g.hub.RoomSize("r1") != 0 {
		t.Fatalf("client still tracked: len=%d room=%d", g.hub.Len(), g.hub.RoomSize("r1"))
	}
	if _, open := <-a.send; open {
		t.Error("send channel must be closed after unregister")
	}

	// Delivery to a gone socket is swallowed.
	g.hub.DeliverRoom("r1", []byte("x"), "")
	g.hub.Send(a, []byte("x"))
}

func TestHubDropsClientWithFullBuffer(t *testing.T) {
	g, a := newHubClient(t)
	g.hub.Register(a)
	g.hub.Subscribe("r1", a)

	for i := 0; i < sendBufferSize; i++ {
		a.send <- []byte("fill")
	}
	g.hub.DeliverRoom("r1", []byte("overflow"), "")

	if g.hub.Len() != 0 {
		t.Fatal("slow client must be dropped from the registry")
	}

	// Drain to the close.
	for range a.send {
	}
}

func TestHubRejectsRegistrationAfterShutdown(t *testing.T) {
	g, a := newHubClient(t)
	if err := g.hub.Shutdown(time.Second); err != nil {
		t.Fatalf("Shutdown() = %v", err)
	}

	g.hub.Register(a)
	if g.hub.Len() != 0 {
		t.Error("registration after shutdown must be refused")
	}
}
