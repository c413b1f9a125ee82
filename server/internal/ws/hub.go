package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/reviewpulse/reviewpulse/pkg/types"
	"github.com/reviewpulse/reviewpulse/server/internal/store"
)

const (
	writeTimeout = 10 * time.Second

	// pongWait is how long to wait for a pong before treating the
	// connection as dead.
	pongWait = 60 * time.Second

	// pingPeriod must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	sendBufSize = 16
)

// Event names.
const (
	EventDataset = "dataset"
	EventSwap    = "swap"
	EventWaiting = "waiting"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Message is the JSON envelope sent to clients.
type Message struct {
	Event string                `json:"event"`
	Data  *types.DatasetSummary `json:"data"`
}

// Hub pushes the served dataset's summary to connected clients: once on
// connect, on every swap, and on a tick when the served version has changed
// since the last push.
type Hub struct {
	store    *store.Store
	interval time.Duration

	mu      sync.RWMutex
	clients map[*client]struct{}
	pushed  string // version of the last broadcast, "" before any
}

// client is one connection. The handler goroutine writes; a reader goroutine
// drains control frames and closes done on disconnect.
type client struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
}

// New creates a Hub that reads from st and checks for changes every interval.
func New(st *store.Store, interval time.Duration) *Hub {
	return &Hub{
		store:    st,
		interval: interval,
		clients:  make(map[*client]struct{}),
	}
}

// Run checks for an unpushed dataset every interval until ctx is cancelled,
// then closes all connections.
func (h *Hub) Run(ctx context.Context) {
	t := time.NewTicker(h.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-t.C:
			if h.changed() {
				h.broadcast(EventDataset)
			}
		}
	}
}

// Notify pushes the current summary right away. It is registered as a store
// swap hook.
func (h *Hub) Notify(*store.Snapshot) { h.broadcast(EventSwap) }

// ServeHTTP upgrades the connection, sends the current summary and then
// streams updates. Blocks until the connection closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already written the error response.
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBufSize), done: make(chan struct{})}
	h.register(c)
	defer h.unregister(c)

	go c.read()
	first, _, _ := h.message(EventDataset)
	c.serve(first)
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// --- internal ---------------------------------------------------------------

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// changed reports whether the served version differs from the last push.
func (h *Hub) changed() bool {
	v := ""
	if snap := h.store.Current(); snap != nil {
		v = snap.Version
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return v != h.pushed
}

func (h *Hub) broadcast(event string) {
	data, version, err := h.message(event)
	if err != nil {
		return
	}

	h.mu.Lock()
	h.pushed = version
	var slow []*client
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.Unlock()

	for _, c := range slow {
		h.unregister(c)
	}
}

// message encodes the current summary and returns the version it describes.
func (h *Hub) message(event string) ([]byte, string, error) {
	snap := h.store.Current()
	if snap == nil {
		b, err := json.Marshal(Message{Event: EventWaiting})
		return b, "", err
	}
	sum := snap.Summary()
	b, err := json.Marshal(Message{Event: event, Data: &sum})
	return b, snap.Version, err
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
}

func (c *client) write(kind int, data []byte) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)) //nolint:errcheck
	return c.conn.WriteMessage(kind, data)
}

// serve writes first, then queued messages and pings until the peer goes away
// or the hub closes send.
func (c *client) serve(first []byte) {
	defer c.conn.Close()
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	if first != nil && c.write(websocket.TextMessage, first) != nil {
		return
	}
	for {
		select {
		case <-c.done:
			return
		case msg, ok := <-c.send:
			if !ok {
				c.write(websocket.CloseMessage, []byte{}) //nolint:errcheck
				return
			}
			if c.write(websocket.TextMessage, msg) != nil {
				return
			}
		case <-ping.C:
			if c.write(websocket.PingMessage, nil) != nil {
				return
			}
		}
	}
}

// read keeps the pong deadline fresh and discards client frames.
func (c *client) read() {
	defer close(c.done)
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.NextReader(); err != nil {
			return
		}
	}
}
