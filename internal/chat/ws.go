package chat

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/parley-chat/parley/internal/logger"
)

// NewUpgrader builds the WebSocket upgrader used by the gateway route. The
// bearer subprotocol is offered so clients can carry their credential
// inside the handshake itself.
func NewUpgrader(checkOrigin func(*http.Request) bool) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		Subprotocols:    []string{"bearer"},
		CheckOrigin:     checkOrigin,
	}
}

var defaultUpgrader = NewUpgrader(nil)

// HandleWS upgrades the connection and authenticates it before any other
// event is accepted. A missing credential terminates the transport without
// emitting events; a failed verification and a deleted account both emit a
// typed error event and then terminate, indistinguishable in kind.
func (g *Gateway) HandleWS(c *gin.Context) {
	g.handleWS(defaultUpgrader, c.Writer, c.Request)
}

// HandleWSWith is HandleWS with an explicit upgrader, for servers that
// enforce an origin allow-list.
func (g *Gateway) HandleWSWith(upgrader websocket.Upgrader) gin.HandlerFunc {
	return func(c *gin.Context) {
		g.handleWS(upgrader, c.Writer, c.Request)
	}
}

func (g *Gateway) handleWS(upgrader websocket.Upgrader, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Infof("websocket upgrade failed for %s: %v", r.RemoteAddr, err)
		return
	}

	session := NewSession()
	client := newClient(conn, g, session, r.RemoteAddr)

	token := bearerFromRequest(r)
	if token == "" {
		logger.Infof("socket %s rejected: no credential in handshake", session.SocketID)
		g.closeHandshake(client, "authentication token required")
		return
	}

	identity, authErr := g.authenticate(r.Context(), token)
	if authErr != nil {
		logger.Infof("socket %s rejected: %v", session.SocketID, authErr)
		if frame, encErr := encodeEvent(EventError, ErrorData{Message: authErr.Message}); encErr == nil {
			client.writeDirect(frame)
		}
		g.closeHandshake(client, "authentication failed")
		return
	}

	session.Authenticate(identity)
	g.hub.Register(client)
	g.emit(client, EventAuthenticated, AuthenticatedData{
		UserID:   identity.UserID,
		Username: identity.Username,
	})
	logger.Infof("user %s (%s) authenticated on socket %s", identity.Username, identity.UserID, session.SocketID)
}

// authenticate verifies the credential and re-resolves the identity against
// the directory, so tokens outstanding after an account deletion are
// rejected like any other bad credential.
func (g *Gateway) authenticate(ctx context.Context, token string) (Identity, *Error) {
	claimed, err := g.verifier.Verify(token)
	if err != nil {
		return Identity{}, wrapError(KindAuthentication, "Invalid or expired authentication token", err)
	}

	identity, err := g.directory.FindUser(ctx, claimed.UserID)
	if err != nil {
		return Identity{}, wrapError(KindAuthentication, "User not found", err)
	}
	return identity, nil
}

func (g *Gateway) closeHandshake(c *Client, reason string) {
	if c.conn != nil {
		deadline := time.Now().Add(writeWait)
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), deadline)
	}
	c.closeConnection()
}

// bearerFromRequest extracts the credential from the handshake, checking
// sources in priority order: the auth payload carried in the bearer
// subprotocol, the Authorization header, then the token query parameter.
func bearerFromRequest(r *http.Request) string {
	if protos := websocket.Subprotocols(r); len(protos) >= 2 && strings.EqualFold(protos[0], "bearer") {
		if token := strings.TrimSpace(protos[1]); token != "" {
			return token
		}
	}
	if authz := strings.TrimSpace(r.Header.Get("Authorization")); authz != "" {
		if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			if token := strings.TrimSpace(authz[len("bearer "):]); token != "" {
				return token
			}
		}
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}
