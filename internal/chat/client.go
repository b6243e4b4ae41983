package chat

import (
	"errors"
	"io"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/parley-chat/parley/internal/logger"
)

const (
	// writeWait bounds a single write to the peer.
	writeWait = 10 * time.Second
	// pongWait is how long the peer may stay silent before the read side
	// gives up; pings go out on pingPeriod, which must be shorter.
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second

	sendBufferSize = 256
)

// Client is one live WebSocket connection together with its session record.
// Inbound frames are processed in receipt order on the read pump, which
// preserves per-socket ordering; outbound frames flow through the buffered
// send channel drained by the write pump.
type Client struct {
	conn    *websocket.Conn
	send    chan []byte
	gw      *Gateway
	session *Session
	addr    string

	// closed is guarded by the hub mutex alongside the registry itself.
	closed bool

	limiter *rateLimiter
}

// newClient wraps an accepted connection. The session must already carry an
// authenticated identity by the time the client is registered.
func newClient(conn *websocket.Conn, gw *Gateway, session *Session, addr string) *Client {
	if conn != nil {
		conn.SetReadLimit(gw.cfg.MaxMessageSize)
	}
	return &Client{
		conn:    conn,
		send:    make(chan []byte, sendBufferSize),
		gw:      gw,
		session: session,
		addr:    addr,
		limiter: newRateLimiter(gw.cfg.RateLimit.Burst, gw.cfg.RateLimit.RefillInterval),
	}
}

// Session exposes the client's session record.
func (c *Client) Session() *Session { return c.session }

// SendChan exposes the outbound frame channel for tests.
func (c *Client) SendChan() <-chan []byte { return c.send }

func (c *Client) readPump() {
	defer func() {
		c.gw.Disconnect(c)
		c.closeConnection()
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadError(err)
			return
		}

		if !c.limiter.allow() {
			logger.Warnf("socket %s rate limited, frame discarded", c.session.SocketID)
			continue
		}

		c.gw.Dispatch(c, raw)
	}
}

func (c *Client) logReadError(err error) {
	switch {
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure,
		websocket.CloseNoStatusReceived):
		logger.Infof("socket %s disconnected: %v", c.session.SocketID, err)
	case errors.Is(err, websocket.ErrReadLimit):
		logger.Warnf("socket %s exceeded max frame size", c.session.SocketID)
	case errors.Is(err, io.EOF) || isExpectedCloseError(err):
		logger.Infof("socket %s connection closed: %v", c.session.SocketID, err)
	default:
		logger.Warnf("socket %s read error: %v", c.session.SocketID, err)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.closeConnection()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				if !isExpectedCloseError(err) {
					logger.Warnf("socket %s write error: %v", c.session.SocketID, err)
				}
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

// writeDirect writes a frame synchronously. It is only used during the
// handshake, before the pumps own the connection.
func (c *Client) writeDirect(payload []byte) {
	if c.conn == nil {
		return
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.conn.WriteMessage(websocket.TextMessage, payload)
}

func (c *Client) closeConnection() {
	if c.conn == nil {
		return
	}
	if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
		logger.Debugf("socket %s close: %v", c.session.SocketID, err)
	}
}

// isExpectedCloseError reports whether an error is routine connection
// teardown noise rather than a real failure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
