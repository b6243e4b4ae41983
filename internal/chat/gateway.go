package chat

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/parley-chat/parley/internal/backplane"
	"github.com/parley-chat/parley/internal/config"
	"github.com/parley-chat/parley/internal/logger"
)

// TokenVerifier validates a bearer credential and extracts the identity it
// claims. Verification failure covers expired, malformed, and badly signed
// tokens alike.
type TokenVerifier interface {
	Verify(token string) (Identity, error)
}

// Directory is the authoritative store answering membership and identity
// queries. The gateway queries it live on every join so that revoked
// membership takes effect immediately; it never caches the answers.
type Directory interface {
	IsMember(ctx context.Context, userID, roomID string) (bool, error)
	FindUser(ctx context.Context, userID string) (Identity, error)
}

// StoredMessage is a message the store has durably appended, hydrated with
// the server-assigned id, timestamp, and author name.
type StoredMessage struct {
	ID         string
	Content    string
	UserID     string
	RoomID     string
	AuthorName string
	CreatedAt  time.Time
}

// MessageStore durably appends messages. The gateway holds no message
// history itself; it is a store-then-broadcast relay.
type MessageStore interface {
	Append(ctx context.Context, userID, roomID, content string) (StoredMessage, error)
}

// Gateway orchestrates the real-time side of Parley for one instance:
// handshake authentication, join/leave, presence bookkeeping, message and
// typing relay. Cross-instance fan-out goes through the injected backplane;
// local and remote delivery share the backplane consume path.
type Gateway struct {
	id        string
	cfg       *config.Config
	verifier  TokenVerifier
	directory Directory
	messages  MessageStore
	bus       backplane.Backplane
	hub       *Hub
	presence  *PresenceTable
}

// New creates a gateway instance. instanceID distinguishes this process on
// the backplane and only needs to be unique per deployment.
func New(instanceID string, cfg *config.Config, verifier TokenVerifier, directory Directory, messages MessageStore, bus backplane.Backplane) *Gateway {
	return &Gateway{
		id:        instanceID,
		cfg:       cfg,
		verifier:  verifier,
		directory: directory,
		messages:  messages,
		bus:       bus,
		hub:       NewHub(),
		presence:  NewPresenceTable(),
	}
}

// Start subscribes the gateway to the backplane. A subscription failure is
// returned so the caller can decide to run single-instance; the gateway
// itself keeps serving either way.
func (g *Gateway) Start() error {
	return g.bus.Subscribe(g.handleBackplaneEvent)
}

// Hub exposes the connection registry, mainly for shutdown coordination.
func (g *Gateway) Hub() *Hub { return g.hub }

// Presence exposes the local presence table.
func (g *Gateway) Presence() *PresenceTable { return g.presence }

// Dispatch routes one inbound frame from a socket. Frames are dispatched in
// receipt order from the read pump, so a single client's events are never
// reordered.
func (g *Gateway) Dispatch(c *Client, raw []byte) {
	env, err := decodeEnvelope(raw)
	if err != nil {
		g.emitError(c, wrapError(KindValidation, "Malformed frame", err))
		return
	}

	switch env.Event {
	case EventJoinRoom:
		var data JoinRoomData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			g.emitError(c, wrapError(KindValidation, "Malformed joinRoom payload", err))
			return
		}
		g.handleJoin(c, data)
	case EventLeaveRoom:
		var data JoinRoomData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			g.emitError(c, wrapError(KindValidation, "Malformed leaveRoom payload", err))
			return
		}
		g.leaveRoom(c, data.RoomID)
	case EventSendMessage:
		var data SendMessageData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			g.emitError(c, wrapError(KindValidation, "Malformed sendMessage payload", err))
			return
		}
		g.handleSendMessage(c, data)
	case EventTyping:
		var data TypingRequest
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return
		}
		g.handleTyping(c, data.RoomID, true)
	case EventStopTyping:
		var data TypingRequest
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return
		}
		g.handleTyping(c, data.RoomID, false)
	default:
		logger.Debugf("socket %s sent unknown event %q", c.session.SocketID, env.Event)
	}
}

// handleJoin joins the socket to a room. Membership is re-validated against
// the directory on every call; a join that succeeded in the past does not
// authorize a rejoin after revocation.
func (g *Gateway) handleJoin(c *Client, data JoinRoomData) {
	identity, ok := c.session.Identity()
	if !ok {
		g.emitError(c, newError(KindAuthentication, "Authentication required"))
		return
	}
	if data.RoomID == "" {
		g.emitError(c, newError(KindValidation, "Room id is required"))
		return
	}
	if c.session.Room() == data.RoomID {
		// Already joined on this socket.
		return
	}

	// Directory round-trip happens before any table lock is taken.
	member, err := g.directory.IsMember(context.Background(), identity.UserID, data.RoomID)
	if err != nil {
		g.emitError(c, wrapError(KindPersistence, "Failed to join room", err))
		return
	}
	if !member {
		g.emitError(c, newError(KindAuthorization, "Room not found or access denied"))
		return
	}

	// One room per session: switching rooms leaves the previous one
	// explicitly, with its own userLeft fan-out.
	if prev := c.session.Room(); prev != "" {
		g.leaveRoom(c, prev)
	}

	if !c.session.EnterRoom(data.RoomID) {
		// The socket disconnected while the membership check was in
		// flight; discard the stale join.
		return
	}
	g.hub.Subscribe(data.RoomID, c)
	first := g.presence.Join(data.RoomID, identity.UserID)

	logger.Infof("user %s joined room %s on socket %s", identity.Username, data.RoomID, c.session.SocketID)

	// Peers learn about the user once, when their first socket joins. The
	// joining socket itself is excluded from the fan-out.
	if first {
		g.publish(data.RoomID, EventUserJoined, PresenceData{
			UserID:   identity.UserID,
			Username: identity.Username,
			RoomID:   data.RoomID,
		}, c.session.SocketID)
	}
}

// leaveRoom is the single cleanup path shared by explicit leaveRoom
// requests, room switches, and disconnects. Leaving a room the session is
// not joined to is a silent no-op.
func (g *Gateway) leaveRoom(c *Client, roomID string) {
	identity, ok := c.session.Identity()
	if !ok {
		return
	}
	if !c.session.ExitRoom(roomID) {
		return
	}

	g.hub.Unsubscribe(roomID, c)
	last := g.presence.Leave(roomID, identity.UserID)

	logger.Infof("user %s left room %s on socket %s", identity.Username, roomID, c.session.SocketID)

	// userLeft goes out only when the user's last socket leaves; closing
	// one of several sockets must not announce a departure.
	if last {
		g.publish(roomID, EventUserLeft, PresenceData{
			UserID:   identity.UserID,
			Username: identity.Username,
			RoomID:   roomID,
		}, c.session.SocketID)
	}
}

// handleSendMessage persists the message and broadcasts the hydrated record
// to every member, sender included. Nothing is broadcast when persistence
// fails: a message is never partially visible.
func (g *Gateway) handleSendMessage(c *Client, data SendMessageData) {
	identity, ok := c.session.Identity()
	if !ok {
		g.emitError(c, newError(KindAuthentication, "Authentication required"))
		return
	}

	content := strings.TrimSpace(data.Content)
	if content == "" {
		g.emitError(c, newError(KindValidation, "Message content cannot be empty"))
		return
	}
	if int64(len(content)) > g.cfg.MaxMessageSize {
		g.emitError(c, newError(KindValidation, "Message content too long"))
		return
	}

	// Membership was established at join time; sends trust that check
	// rather than paying a directory round-trip per message.
	if c.session.Room() != data.RoomID {
		g.emitError(c, newError(KindAuthorization, "Room not found or access denied"))
		return
	}

	msg, err := g.messages.Append(context.Background(), identity.UserID, data.RoomID, content)
	if err != nil {
		g.emitError(c, wrapError(KindPersistence, "Failed to send message", err))
		return
	}
	if msg.AuthorName == "" {
		msg.AuthorName = identity.Username
	}

	g.publish(data.RoomID, EventMessage, messagePayload(msg), "")
}

// handleTyping relays a typing indicator to the other members of the room.
// Pure forwarding: no persistence, no membership re-validation beyond the
// session holding an identity, at most one event forwarded per event
// received. Debouncing is the client's job.
func (g *Gateway) handleTyping(c *Client, roomID string, typing bool) {
	identity, ok := c.session.Identity()
	if !ok || roomID == "" {
		return
	}

	if typing {
		g.publish(roomID, EventTyping, TypingData{
			UserID:   identity.UserID,
			Username: identity.Username,
			RoomID:   roomID,
		}, c.session.SocketID)
		return
	}
	g.publish(roomID, EventStopTyping, StopTypingData{
		UserID: identity.UserID,
		RoomID: roomID,
	}, c.session.SocketID)
}

// Disconnect runs the leave-equivalent cleanup for a closed socket. It is
// idempotent: a second call for the same client does nothing.
func (g *Gateway) Disconnect(c *Client) {
	if c.session.Close() {
		if room := c.session.Room(); room != "" {
			g.leaveRoom(c, room)
		}
	}
	g.hub.Unregister(c)
}

// BroadcastMessage fans out a message persisted outside the socket path
// (the HTTP API) to every connected member of its room, across instances.
func (g *Gateway) BroadcastMessage(msg StoredMessage) {
	g.publish(msg.RoomID, EventMessage, messagePayload(msg), "")
}

func messagePayload(msg StoredMessage) MessageData {
	return MessageData{
		ID:      msg.ID,
		Content: msg.Content,
		UserID:  msg.UserID,
		RoomID:  msg.RoomID,
		User: UserRef{
			ID:       msg.UserID,
			Username: msg.AuthorName,
		},
		CreatedAt: msg.CreatedAt,
	}
}

// publish routes a room event through the backplane so every instance,
// this one included, delivers it through the same path. When the backplane
// is unreachable the gateway degrades to local-only fan-out instead of
// failing the operation.
func (g *Gateway) publish(roomID, event string, data any, sourceSocket string) {
	payload, err := json.Marshal(data)
	if err != nil {
		logger.Errorf("encode %s payload for room %s: %v", event, roomID, err)
		return
	}

	ev := backplane.Event{
		Room:         roomID,
		Type:         event,
		Origin:       g.id,
		SourceSocket: sourceSocket,
		Payload:      payload,
	}
	if err := g.bus.Publish(context.Background(), ev); err != nil {
		logger.Warnf("backplane unavailable, local-only fan-out of %s in room %s: %v", event, roomID, err)
		g.deliverLocal(ev)
	}
}

func (g *Gateway) handleBackplaneEvent(ev backplane.Event) {
	g.deliverLocal(ev)
}

func (g *Gateway) deliverLocal(ev backplane.Event) {
	frame, err := json.Marshal(Envelope{Event: ev.Type, Data: ev.Payload})
	if err != nil {
		logger.Errorf("encode %s frame for room %s: %v", ev.Type, ev.Room, err)
		return
	}
	g.hub.DeliverRoom(ev.Room, frame, ev.SourceSocket)
}

// emit sends an event to a single client through its send buffer.
func (g *Gateway) emit(c *Client, event string, data any) {
	frame, err := encodeEvent(event, data)
	if err != nil {
		logger.Errorf("encode %s for socket %s: %v", event, c.session.SocketID, err)
		return
	}
	g.hub.Send(c, frame)
}

// emitError reports a failure to the originating socket only. Failures
// never propagate to other sessions and never crash the gateway.
func (g *Gateway) emitError(c *Client, gerr *Error) {
	if gerr.Err != nil {
		logger.Warnf("socket %s %s", c.session.SocketID, gerr.Error())
	} else {
		logger.Debugf("socket %s %s", c.session.SocketID, gerr.Error())
	}
	g.emit(c, EventError, ErrorData{Message: gerr.Message})
}
