package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/ajmal017/piker/internal/chart"
	"github.com/ajmal017/piker/internal/cursor"
	"github.com/ajmal017/piker/pkg/config"
	"github.com/ajmal017/piker/pkg/models"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Hub fans chart updates out to websocket clients and feeds their
// pointer events into the cursor debouncers. One client follows one
// symbol's session.
type Hub struct {
	cfg     *config.WebSocketConfig
	manager *chart.Manager
	logger  *logrus.Entry

	upgrader websocket.Upgrader

	clients map[*client]bool
	mu      sync.RWMutex
}

// client is one websocket connection following a symbol
type client struct {
	hub     *Hub
	conn    *websocket.Conn
	session *chart.Session
	send    chan []byte
}

// NewHub creates a websocket hub
func NewHub(cfg *config.WebSocketConfig, manager *chart.Manager, logger *logrus.Logger) *Hub {
	return &Hub{
		cfg:     cfg,
		manager: manager,
		logger:  logger.WithField("component", "ws-hub"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]bool),
	}
}

// Start wires crosshair notifications for every managed session.
// Must run after sessions are created and before clients connect.
func (h *Hub) Start(ctx context.Context) {
	for _, symbol := range h.manager.Symbols() {
		session, ok := h.manager.Get(symbol)
		if !ok {
			continue
		}

		sym := symbol
		s := session
		s.Do(func() {
			s.Cursor().SetNotifier(func(u cursor.Update) {
				h.BroadcastCursor(sym, u)
			})
		})
	}
}

// BroadcastCursor pushes a synchronized crosshair update to every
// client following the symbol
func (h *Hub) BroadcastCursor(symbol string, u cursor.Update) {
	h.broadcast(symbol, &models.WSMessage{
		Type:    "crosshair",
		Symbol:  symbol,
		Payload: u,
	})
}

// BroadcastRender pushes a render snapshot to every client following
// the symbol
func (h *Hub) BroadcastRender(symbol string, snapshot chart.Snapshot) {
	h.broadcast(symbol, &models.WSMessage{
		Type:    "render",
		Symbol:  symbol,
		Payload: snapshot,
	})
}

func (h *Hub) broadcast(symbol string, msg *models.WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.WithError(err).Error("Failed to marshal broadcast")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		if c.session.Symbol() != symbol {
			continue
		}
		select {
		case c.send <- data:
		default:
			// slow client; drop the frame rather than block the hub
		}
	}
}

// ServeWS upgrades an HTTP request into a chart-following websocket.
// The symbol is selected with the ?symbol query parameter.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	session, ok := h.manager.Get(symbol)
	if !ok {
		http.Error(w, "unknown symbol", http.StatusNotFound)
		return
	}

	h.mu.RLock()
	count := len(h.clients)
	h.mu.RUnlock()
	if count >= h.cfg.MaxClients {
		http.Error(w, "too many clients", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	c := &client{
		hub:     h,
		conn:    conn,
		session: session,
		send:    make(chan []byte, 64),
	}

	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()

	h.logger.WithField("symbol", symbol).Debug("WebSocket client connected")

	go c.writePump()
	go c.readPump()

	// push the current render state so the client can paint
	// immediately
	var snapshot chart.Snapshot
	session.Do(func() {
		snapshot = session.Render()
	})
	h.BroadcastRender(symbol, snapshot)
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// readPump consumes pointer events from the client
func (c *client) readPump() {
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.hub.cfg.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.hub.cfg.PongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.hub.cfg.PongTimeout))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.WithError(err).Debug("WebSocket read error")
			}
			return
		}

		var msg models.PointerEventMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.hub.logger.WithError(err).Debug("Bad pointer event")
			continue
		}

		switch msg.Type {
		case "enter":
			c.session.Pointer(cursor.Event{Kind: cursor.EventEnter, PanelID: msg.PanelID})
		case "leave":
			c.session.Pointer(cursor.Event{Kind: cursor.EventLeave, PanelID: msg.PanelID})
		case "move":
			c.session.Pointer(cursor.Event{Kind: cursor.EventMove, X: msg.X, Y: msg.Y})
		case "render":
			var snapshot chart.Snapshot
			c.session.Do(func() {
				snapshot = c.session.Render()
			})
			c.hub.BroadcastRender(c.session.Symbol(), snapshot)
		default:
			c.hub.logger.WithField("type", msg.Type).Debug("Unknown ws message type")
		}
	}
}

// writePump pushes outbound frames and keepalive pings
func (c *client) writePump() {
	ticker := time.NewTicker(c.hub.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
