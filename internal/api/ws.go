package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/minjae-dev/stockpulse/internal/event"
	"github.com/minjae-dev/stockpulse/pkg/logger"
)

const (
	writeWait     = 10 * time.Second
	pingPeriod    = 30 * time.Second
	clientBacklog = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// CompletionHub streams completion events to connected websocket clients.
// A client that cannot keep up is dropped rather than allowed to block the
// broadcast.
type CompletionHub struct {
	broker  *event.Broker
	logger  *logger.Logger
	mu      sync.Mutex
	clients map[*wsClient]struct{}
	sub     *event.Subscription
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// NewCompletionHub creates the hub; Start attaches it to the broker.
func NewCompletionHub(broker *event.Broker, log *logger.Logger) *CompletionHub {
	return &CompletionHub{
		broker:  broker,
		logger:  log.WithComponent("ws"),
		clients: make(map[*wsClient]struct{}),
	}
}

// Start subscribes the hub to completion events.
func (h *CompletionHub) Start() {
	h.sub = h.broker.Subscribe(event.TypeCompletion, h.onCompletion)
}

// Stop detaches from the broker and closes every client.
func (h *CompletionHub) Stop() {
	h.broker.Unsubscribe(h.sub)

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
}

func (h *CompletionHub) onCompletion(evt event.Event) {
	payload, ok := evt.Payload.(event.CompletionPayload)
	if !ok {
		return
	}

	data, err := json.Marshal(map[string]interface{}{
		"type":   "completion",
		"result": payload.Result,
	})
	if err != nil {
		h.logger.WithError(err).Error("Completion encode failed")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			close(c.send)
			delete(h.clients, c)
			h.logger.Warn("Slow websocket client dropped")
		}
	}
}

// ServeWS upgrades the connection and registers the client.
func (h *CompletionHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}

	client := &wsClient{
		conn: conn,
		send: make(chan []byte, clientBacklog),
	}

	h.mu.Lock()
	h.clients[client] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.WithField("clients", count).Debug("Websocket client connected")

	go h.writePump(client)
	go h.readPump(client)
}

// writePump pushes broadcasts and keepalive pings to one client.
func (h *CompletionHub) writePump(c *wsClient) {
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

// readPump discards inbound frames and detects disconnects.
func (h *CompletionHub) readPump(c *wsClient) {
	defer func() {
		h.mu.Lock()
		if _, ok := h.clients[c]; ok {
			close(c.send)
			delete(h.clients, c)
		}
		h.mu.Unlock()
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
