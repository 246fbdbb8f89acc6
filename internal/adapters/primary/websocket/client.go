package websocket

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/lorrc/pizza-orders-backend/internal/core/domain"
	apperrors "github.com/lorrc/pizza-orders-backend/internal/core/errors"
)

// ClientConfig holds the keepalive and buffering settings of a connection.
type ClientConfig struct {
	// Time allowed to write a message to the peer.
	WriteWait time.Duration

	// Time allowed to read the next pong message from the peer.
	PongWait time.Duration

	// Send pings to peer with this period. Must be less than PongWait.
	PingPeriod time.Duration

	// Maximum message size allowed from peer.
	MaxMessageSize int64

	// Capacity of the outbound queue.
	SendBuffer int

	// Time allowed for a join authorization lookup.
	JoinTimeout time.Duration
}

// DefaultClientConfig returns the settings used when none are configured.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		PingPeriod:     54 * time.Second,
		MaxMessageSize: 1024,
		SendBuffer:     256,
		JoinTimeout:    5 * time.Second,
	}
}

func (c ClientConfig) withDefaults() ClientConfig {
	def := DefaultClientConfig()
	if c.WriteWait <= 0 {
		c.WriteWait = def.WriteWait
	}
	if c.PongWait <= 0 {
		c.PongWait = def.PongWait
	}
	if c.PingPeriod <= 0 || c.PingPeriod >= c.PongWait {
		c.PingPeriod = (c.PongWait * 9) / 10
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = def.MaxMessageSize
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = def.SendBuffer
	}
	if c.JoinTimeout <= 0 {
		c.JoinTimeout = def.JoinTimeout
	}
	return c
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	// ID identifies this connection.
	ID uuid.UUID

	// UserID and Role come from the token the connection was opened with.
	UserID uuid.UUID
	Role   domain.Role

	hub  *Hub
	conn *websocket.Conn
	cfg  ClientConfig

	// send is the buffered queue of encoded outbound frames.
	send chan []byte

	// mu guards sends against a concurrent close of send
	mu     sync.Mutex
	closed bool

	logger *slog.Logger
}

// NewClient creates a new WebSocket client for an authenticated user.
func NewClient(hub *Hub, conn *websocket.Conn, userID uuid.UUID, role domain.Role, cfg ClientConfig, logger *slog.Logger) *Client {
	cfg = cfg.withDefaults()
	id := uuid.New()
	return &Client{
		ID:     id,
		UserID: userID,
		Role:   role,
		hub:    hub,
		conn:   conn,
		cfg:    cfg,
		send:   make(chan []byte, cfg.SendBuffer),
		logger: logger.With("conn_id", id.String(), "user_id", userID.String()),
	}
}

// Send returns the outbound queue. It is closed when the client disconnects.
func (c *Client) Send() <-chan []byte {
	return c.send
}

// CloseSend safely closes the send channel exactly once
func (c *Client) CloseSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// enqueue queues frame without blocking. It reports false when the queue
// is full or already closed.
func (c *Client) enqueue(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// ReadPump pumps messages from the websocket connection to the hub.
// This method runs in its own goroutine.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.Disconnect(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(c.cfg.MaxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait)); err != nil {
		c.logger.Error("failed to set read deadline", "error", err)
		return
	}

	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait)); err != nil {
			c.logger.Error("failed to set read deadline in pong handler", "error", err)
		}
		return nil
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", "error", err)
			}
			return
		}

		c.handleIncomingMessage(ctx, frame)
	}
}

// WritePump pumps messages from the hub to the websocket connection.
// This method runs in its own goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait)); err != nil {
				c.logger.Error("failed to set write deadline", "error", err)
				return
			}

			if !ok {
				// The hub closed the channel. Send close message.
				if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					c.logger.Debug("failed to send close message", "error", err)
				}
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.logger.Error("failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait)); err != nil {
				c.logger.Error("failed to set write deadline for ping", "error", err)
				return
			}

			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("failed to send ping", "error", err)
				return
			}
		}
	}
}

// --- Incoming Message Handling ---

// handleIncomingMessage processes a frame received from the client
func (c *Client) handleIncomingMessage(ctx context.Context, frame []byte) {
	msg, err := DecodeMessage(frame)
	if err != nil {
		c.logger.Warn("failed to decode client message", "error", err)
		c.reply(EventError, ErrorData{Code: CodeBadMessage, Message: "Malformed message"})
		return
	}

	switch msg.Event {
	case EventJoin:
		c.handleJoin(ctx, msg)

	case EventPing:
		// Client-side keep-alive, respond with pong
		c.reply(EventPong, nil)

	default:
		c.logger.Debug("received unknown event", "event", msg.Event)
	}
}

func (c *Client) handleJoin(ctx context.Context, msg Message) {
	group, err := groupName(msg.Data)
	if err != nil {
		c.reply(EventError, ErrorData{Code: CodeInvalidGroup, Message: err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.JoinTimeout)
	defer cancel()

	switch err := c.hub.Join(ctx, c, group); {
	case err == nil:
		c.reply(EventJoined, group)
	case errors.Is(err, apperrors.ErrInvalidGroup):
		c.reply(EventError, ErrorData{Code: CodeInvalidGroup, Message: "Unknown group " + group})
	case errors.Is(err, apperrors.ErrForbidden):
		c.reply(EventError, ErrorData{Code: CodeJoinForbidden, Message: "Not allowed to join " + group})
	case errors.Is(err, apperrors.ErrConnectionClosed):
		// The connection is going away; nothing to reply to.
	default:
		c.logger.Error("join failed", "group", group, "error", err)
		c.reply(EventError, ErrorData{Code: CodeJoinForbidden, Message: "Could not join " + group})
	}
}

// reply queues a direct response. Replies are dropped when the queue is full.
func (c *Client) reply(event string, data any) {
	frame, err := EncodeMessage(event, data)
	if err != nil {
		c.logger.Error("failed to encode reply", "event", event, "error", err)
		return
	}
	if !c.enqueue(frame) {
		c.logger.Debug("reply dropped", "event", event)
	}
}
