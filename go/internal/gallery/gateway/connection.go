package gateway

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024, // viewers only send small commands
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			// Displays and phones connect from wherever the wall is opened
			return true
		},
	}
}

// Connection binds a hub session to a WebSocket
type Connection struct {
	session    *Session
	hub        *Hub
	conn       *websocket.Conn
	config     ConnectionConfig
	remoteAddr string
}

func newConnection(session *Session, hub *Hub, conn *websocket.Conn, config ConnectionConfig, remoteAddr string) *Connection {
	return &Connection{
		session:    session,
		hub:        hub,
		conn:       conn,
		config:     config,
		remoteAddr: remoteAddr,
	}
}

// writePump handles sending messages to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.hub.Unsubscribe(c.session)
	}()

	for {
		select {
		case message, ok := <-c.session.Messages():
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			if !ok {
				// Hub dropped or unregistered the session
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("session_id", c.session.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().
					Err(err).
					Str("session_id", c.session.ID).
					Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump handles reading messages from the WebSocket connection
func (c *Connection) readPump() {
	defer func() {
		c.hub.Unsubscribe(c.session)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().
					Err(err).
					Str("session_id", c.session.ID).
					Msg("unexpected WebSocket close")
			}
			break
		}

		c.handleClientMessage(message)
		c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
	}
}

// handleClientMessage processes messages received from the viewer
func (c *Connection) handleClientMessage(message []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		log.Debug().
			Err(err).
			Str("session_id", c.session.ID).
			Msg("ignoring malformed client message")
		return
	}

	switch msg.Type {
	case ClientMessageClearGallery:
		log.Info().
			Str("session_id", c.session.ID).
			Str("remote_addr", c.remoteAddr).
			Msg("clear requested by viewer")
		c.hub.RequestClear()
	default:
		log.Debug().
			Str("session_id", c.session.ID).
			Str("type", string(msg.Type)).
			Msg("ignoring unknown client message")
	}
}
