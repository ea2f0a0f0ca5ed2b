package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/dingz-bridge/internal/dingz"
	"github.com/nerrad567/dingz-bridge/internal/infrastructure/config"
	"github.com/nerrad567/dingz-bridge/internal/infrastructure/logging"
	"github.com/nerrad567/dingz-bridge/internal/notify"
)

// WebSocket message types.
const (
	WSTypeNotification = "notification"
	WSTypeState        = "state"
	WSTypeSubscribe    = "subscribe"
	WSTypeUnsubscribe  = "unsubscribe"
	WSTypePing         = "ping"
	WSTypePong         = "pong"
	WSTypeResponse     = "response"
	WSTypeError        = "error"

	// wsSendBufferSize is the per-client outbound queue. A client that
	// falls this far behind misses messages.
	wsSendBufferSize = 256
)

// WSMessage is a message to or from a WebSocket client.
type WSMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	Device    string `json:"device,omitempty"`
	Kind      string `json:"kind,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// WSSubscribePayload narrows (or widens) the devices a client hears from.
type WSSubscribePayload struct {
	Devices []string `json:"devices"`
}

// Hub fans device events out to WebSocket clients.
type Hub struct {
	cfg    config.WebSocketConfig
	logger *logging.Logger

	mu      sync.RWMutex
	clients map[*WSClient]struct{}
}

// WSClient is one connection. With no subscriptions it receives every
// device.
type WSClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu      sync.RWMutex
	devices map[string]struct{}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Origins are filtered by corsMiddleware.
		return true
	},
}

// NewHub creates a hub.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		cfg:     cfg,
		logger:  logger,
		clients: make(map[*WSClient]struct{}),
	}
}

// Run blocks until ctx is done, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// Register adds a client.
func (h *Hub) Register(c *WSClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "clients", h.ClientCount())
}

// Unregister removes a client. Only the call that removes it closes its
// send channel.
func (h *Hub) Unregister(c *WSClient) {
	h.mu.Lock()
	_, existed := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()

	if existed {
		close(c.send)
	}
	h.logger.Debug("websocket client disconnected", "clients", h.ClientCount())
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastNotification sends a push notification of device.
func (h *Hub) BroadcastNotification(device string, n notify.Notification) {
	h.broadcast(WSMessage{Type: WSTypeNotification, Device: device, Kind: n.Kind(), Payload: n})
}

// BroadcastState sends a state snapshot of device.
func (h *Hub) BroadcastState(device string, st *dingz.State) {
	h.broadcast(WSMessage{Type: WSTypeState, Device: device, Payload: st})
}

func (h *Hub) broadcast(msg WSMessage) {
	msg.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to marshal broadcast message", "type", msg.Type, "error", err)
		return
	}

	h.mu.RLock()
	clients := make([]*WSClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if c.wants(msg.Device) {
			c.trySend(data)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		close(c.send)
		if c.conn != nil {
			c.conn.Close() //nolint:errcheck // Shutting down
		}
		delete(h.clients, c)
	}
}

// handleWebSocket upgrades the request and starts the client pumps.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &WSClient{
		hub:     s.hub,
		conn:    conn,
		send:    make(chan []byte, wsSendBufferSize),
		devices: make(map[string]struct{}),
	}
	s.hub.Register(c)

	go c.writePump(s.wsCfg)
	go c.readPump(s.wsCfg)
}

func (c *WSClient) readPump(cfg config.WebSocketConfig) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close() //nolint:errcheck // Connection is done
	}()

	if cfg.MaxMessageSize > 0 {
		c.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	}
	wait := time.Duration(cfg.PingInterval+cfg.PongTimeout) * time.Second
	extend := func() {
		if wait > 0 {
			c.conn.SetReadDeadline(time.Now().Add(wait)) //nolint:errcheck // A failed deadline surfaces as a read error
		}
	}
	extend()
	c.conn.SetPongHandler(func(string) error {
		extend()
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "error", err)
			}
			return
		}
		extend()
		c.handleMessage(data)
	}
}

func (c *WSClient) writePump(cfg config.WebSocketConfig) {
	interval := time.Duration(cfg.PingInterval) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}
	writeWait := time.Duration(cfg.PongTimeout) * time.Second
	if writeWait <= 0 {
		writeWait = 10 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer func() {
		ticker.Stop()
		c.conn.Close() //nolint:errcheck // Connection is done
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck // Write error caught below
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, nil) //nolint:errcheck // Best-effort close frame
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck // Ping error caught below
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *WSClient) handleMessage(data []byte) {
	var msg struct {
		Type    string             `json:"type"`
		ID      string             `json:"id"`
		Payload WSSubscribePayload `json:"payload"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError("", "invalid JSON message")
		return
	}

	switch msg.Type {
	case WSTypeSubscribe:
		c.mu.Lock()
		for _, d := range msg.Payload.Devices {
			c.devices[d] = struct{}{}
		}
		c.mu.Unlock()
		c.sendResponse(msg.ID, WSTypeResponse, map[string]any{"subscribed": msg.Payload.Devices})
	case WSTypeUnsubscribe:
		c.mu.Lock()
		for _, d := range msg.Payload.Devices {
			delete(c.devices, d)
		}
		c.mu.Unlock()
		c.sendResponse(msg.ID, WSTypeResponse, map[string]any{"unsubscribed": msg.Payload.Devices})
	case WSTypePing:
		c.sendResponse(msg.ID, WSTypePong, nil)
	default:
		c.sendError(msg.ID, "unknown message type: "+msg.Type)
	}
}

// wants reports whether device passes the client's filter.
func (c *WSClient) wants(device string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.devices) == 0 {
		return true
	}
	_, ok := c.devices[device]
	return ok
}

// trySend queues data without blocking. A full queue drops the message;
// a closed one (client gone mid-broadcast) is ignored.
func (c *WSClient) trySend(data []byte) {
	defer func() {
		recover() //nolint:errcheck // Absorb send on closed channel
	}()

	select {
	case c.send <- data:
	default:
	}
}

func (c *WSClient) sendResponse(id, msgType string, payload any) {
	data, err := json.Marshal(WSMessage{
		Type:      msgType,
		ID:        id,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Payload:   payload,
	})
	if err != nil {
		return
	}
	c.trySend(data)
}

func (c *WSClient) sendError(id, message string) {
	c.sendResponse(id, WSTypeError, map[string]string{"message": message})
}
