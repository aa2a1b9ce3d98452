// Package ws bridges the signal bus to WebSocket clients so dashboards see
// ledger events as they happen.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cropshield/cropshield/internal/domain"
)

const (
	// eventPattern matches every per-event bus channel.
	eventPattern = "events:*"

	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 256
)

// Hub fans bus messages out to connected WebSocket clients.
type Hub struct {
	bus      domain.SignalBus
	upgrader websocket.Upgrader
	logger   *slog.Logger

	register   chan *client
	unregister chan *client
	broadcast  chan []byte
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates a Hub. checkOrigin relaxes the origin check for local
// dashboards; pass nil to keep the default same-origin policy.
func NewHub(bus domain.SignalBus, checkOrigin func(*http.Request) bool, logger *slog.Logger) *Hub {
	return &Hub{
		bus: bus,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		logger:     logger.With(slog.String("component", "ws_hub")),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, sendBufferSize),
	}
}

// Run subscribes to the event channels and pumps messages to clients until
// ctx is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	msgs, err := h.bus.Subscribe(ctx, eventPattern)
	if err != nil {
		return err
	}

	clients := make(map[*client]struct{})
	defer func() {
		for c := range clients {
			close(c.send)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case c := <-h.register:
			clients[c] = struct{}{}
			h.logger.Info("client connected", slog.Int("clients", len(clients)))
		case c := <-h.unregister:
			if _, ok := clients[c]; ok {
				delete(clients, c)
				close(c.send)
				h.logger.Info("client disconnected", slog.Int("clients", len(clients)))
			}
		case payload, ok := <-msgs:
			if !ok {
				return nil
			}
			for c := range clients {
				select {
				case c.send <- payload:
				default:
					// Slow consumer: drop it rather than stall the hub.
					delete(clients, c)
					close(c.send)
				}
			}
		case payload := <-h.broadcast:
			for c := range clients {
				select {
				case c.send <- payload:
				default:
					delete(clients, c)
					close(c.send)
				}
			}
		}
	}
}

// Broadcast sends a message to every connected client, bypassing the bus.
func (h *Hub) Broadcast(v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case h.broadcast <- payload:
	default:
	}
}

// HandleWS upgrades the request and attaches the client to the hub.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBufferSize)}
	h.register <- c

	go h.writePump(c)
	go h.readPump(c)
}

// readPump discards inbound frames; its job is pong handling and noticing
// the client going away.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read error", slog.String("error", err.Error()))
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
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
