package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/shelfscan/internal/app"
	"github.com/ayusman/shelfscan/internal/capture"
	"github.com/ayusman/shelfscan/internal/logging"
)

// Message types sent on /api/events besides the scan event types.
const (
	MessageSurface = "surface"
	MessageDevices = "devices"
)

const sendBuffer = 64

// Message is one event pushed to websocket clients.
type Message struct {
	Type     string    `json:"type"`
	Barcode  string    `json:"barcode,omitempty"`
	Format   string    `json:"format,omitempty"`
	Existing bool      `json:"existing,omitempty"`
	Error    string    `json:"error,omitempty"`
	Visible  *bool     `json:"visible,omitempty"`
	Action   string    `json:"action,omitempty"`
	Device   string    `json:"device,omitempty"`
	Time     time.Time `json:"time"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// Hub broadcasts scan, surface and device events to websocket clients. It
// is the camera session's presentation surface: Show and Hide become
// "surface" messages the browser uses to toggle the preview.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
}

var _ capture.Surface = (*Hub)(nil)

// NewHub creates an empty Hub.
func NewHub(logger *slog.Logger) *Hub {
	h := &Hub{
		logger:  logging.NewComponentLogger(logger, "events"),
		clients: make(map[*client]struct{}),
	}
	h.upgrader = websocket.Upgrader{CheckOrigin: checkOrigin}
	return h
}

// ServeHTTP upgrades the request and keeps the client registered until it
// disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", logging.Error(err))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	go c.writePump()
	h.logger.Debug("websocket client connected", slog.String("remote", r.RemoteAddr))

	// Reads only detect the disconnect.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.remove(c)
	h.logger.Debug("websocket client disconnected", slog.String("remote", r.RemoteAddr))
}

// Show implements capture.Surface.
func (h *Hub) Show() { h.surface(true) }

// Hide implements capture.Surface.
func (h *Hub) Hide() { h.surface(false) }

func (h *Hub) surface(visible bool) {
	h.Publish(Message{Type: MessageSurface, Visible: &visible})
}

// ScanEvent forwards an app event. It is meant for App.Subscribe.
func (h *Hub) ScanEvent(ev app.Event) {
	h.Publish(Message{
		Type:     ev.Type,
		Barcode:  ev.Barcode,
		Format:   ev.Format,
		Existing: ev.Existing,
		Error:    ev.Error,
		Time:     ev.Time,
	})
}

// DeviceEvent forwards a camera hotplug event.
func (h *Hub) DeviceEvent(ev capture.HotplugEvent) {
	h.Publish(Message{Type: MessageDevices, Action: ev.Action, Device: ev.Device})
}

// Publish sends msg to every client. Clients that cannot keep up are
// dropped.
func (h *Hub) Publish(msg Message) {
	if msg.Time.IsZero() {
		msg.Time = time.Now().UTC()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("encoding event failed", logging.Error(err))
		return
	}

	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		h.send(c, data)
	}
}

func (h *Hub) send(c *client, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
		h.logger.Warn("websocket client too slow, disconnecting")
		go h.remove(c)
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// checkOrigin accepts same-host and loopback origins.
func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}
	if parsed.Host == r.Host {
		return true
	}
	host := parsed.Hostname()
	return host == "localhost" || host == "127.0.0.1" || host == "::1" || strings.HasSuffix(host, ".localhost")
}
