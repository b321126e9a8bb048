package client

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/devaloi/toastbox/internal/domain"
	"github.com/devaloi/toastbox/internal/hub"
	"github.com/devaloi/toastbox/internal/metrics"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096
)

// Client is a renderer connected to the hub over WebSocket.
type Client struct {
	hub       *hub.Hub
	conn      *websocket.Conn
	send      chan []byte
	name      string
	logger    *slog.Logger
	providers map[string]bool
}

// New creates a new Client.
func New(h *hub.Hub, conn *websocket.Conn, name string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		hub:       h,
		conn:      conn,
		send:      make(chan []byte, 256),
		name:      name,
		logger:    logger.With(slog.String("client", name)),
		providers: make(map[string]bool),
	}
}

// Name returns the client's name.
func (c *Client) Name() string {
	return c.name
}

// Send queues a message to be sent to the WebSocket client.
func (c *Client) Send(data []byte) {
	select {
	case c.send <- data:
	default:
		// Send buffer full; the renderer resyncs from the next snapshot.
		c.logger.Warn("send buffer full, dropping message")
	}
}

// ReadPump reads commands from the WebSocket connection and applies them
// through the hub.
func (c *Client) ReadPump() {
	metrics.ConnectedClients.Inc()
	defer func() {
		// Detach from all providers on disconnect.
		for provider := range c.providers {
			c.hub.Unregister(c, provider)
		}
		c.conn.Close()
		metrics.ConnectedClients.Dec()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("read error", slog.Any("error", err))
			}
			return
		}
		c.handleCommand(data)
	}
}

// WritePump writes messages from the send channel to the WebSocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleCommand(data []byte) {
	cmd, err := domain.DecodeCommand(data)
	if err != nil {
		c.sendError("invalid JSON")
		return
	}
	if cmd.Provider == "" {
		c.sendError("provider name required")
		return
	}

	switch cmd.Type {
	case domain.MsgJoin:
		c.providers[cmd.Provider] = true
		c.hub.Register(c, cmd.Provider)

	case domain.MsgLeave:
		delete(c.providers, cmd.Provider)
		c.hub.Unregister(c, cmd.Provider)

	case domain.MsgAdd:
		if !c.providers[cmd.Provider] {
			c.sendError("not joined to provider")
			return
		}
		spec, err := cmd.Spec()
		if err != nil {
			c.sendError(err.Error())
			return
		}
		if _, err := c.hub.AddToast(cmd.Provider, spec); err != nil {
			c.sendError(err.Error())
		}

	case domain.MsgClose:
		if !c.providers[cmd.Provider] {
			c.sendError("not joined to provider")
			return
		}
		if _, err := c.hub.CloseToast(cmd.Provider, cmd.ID); err != nil {
			c.sendError(err.Error())
		}

	default:
		c.sendError("unknown message type: " + cmd.Type)
	}
}

func (c *Client) sendError(message string) {
	errMsg := domain.ErrorMessage{Type: domain.MsgError, Message: message}
	if data, err := domain.Encode(errMsg); err == nil {
		c.Send(data)
	}
}
