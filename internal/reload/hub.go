package reload

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/evangambit/Gamgee/internal/metrics"
)

const (
	// Message is the text frame sent to clients when they should reload.
	Message = "reload"

	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

type client struct {
	id   string
	conn *websocket.Conn
	// One slot: a pending reload already covers any that follow it.
	send chan struct{}
}

// Hub fans reload signals out to connected browsers. Notify never blocks on a
// slow client and is throttled to one broadcast per interval, with a trailing
// broadcast so the last change in a burst is still delivered.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu      sync.Mutex
	clients map[string]*client
	limiter *rate.Limiter
	pending bool
	closed  bool
}

func NewHub(minInterval time.Duration, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	limit := rate.Inf
	if minInterval > 0 {
		limit = rate.Every(minInterval)
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger:  logger.With("component", "reload"),
		clients: make(map[string]*client),
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Notify asks every connected client to reload.
func (h *Hub) Notify() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed || h.pending {
		return
	}

	delay := h.limiter.Reserve().Delay()
	if delay == 0 {
		h.broadcastLocked()
		return
	}

	h.pending = true
	time.AfterFunc(delay, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.pending = false
		if !h.closed {
			h.broadcastLocked()
		}
	})
}

func (h *Hub) broadcastLocked() {
	metrics.ObserveBroadcast()
	for _, c := range h.clients {
		select {
		case c.send <- struct{}{}:
		default:
		}
	}
	h.logger.Debug("reload broadcast", "clients", len(h.clients))
}

// Clients reports the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and holds the connection open until the
// browser goes away or the hub is closed.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade error", "err", err)
		return
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan struct{}, 1),
	}
	if !h.register(c) {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}
	h.logger.Info("reload client connected", "client", c.id, "remote", r.RemoteAddr)

	go h.readLoop(c)
	h.writeLoop(c)

	h.logger.Info("reload client disconnected", "client", c.id)
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c.id] = c
	metrics.SetReloadClients(len(h.clients))
	return true
}

// unregister removes c and closes its send channel. Sends only happen under
// mu, so closing here cannot race a broadcast.
func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.id]; !ok {
		return
	}
	delete(h.clients, c.id)
	close(c.send)
	metrics.SetReloadClients(len(h.clients))
}

// readLoop drains client frames so pongs and close frames are processed.
func (h *Hub) readLoop(c *client) {
	defer h.unregister(c)

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("reload client read error", "client", c.id, "err", err)
			}
			return
		}
	}
}

func (h *Hub) writeLoop(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case _, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, []byte(Message)); err != nil {
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

// Close disconnects every client and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, c := range h.clients {
		delete(h.clients, id)
		close(c.send)
	}
	metrics.SetReloadClients(0)
}
