package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/openeurope/energyaudit/internal/api"
	"github.com/openeurope/energyaudit/internal/findings"
	"github.com/openeurope/energyaudit/internal/store"
	"github.com/openeurope/energyaudit/pkg/types"
)

const (
	// writeTimeout is the deadline for a single write to a client.
	writeTimeout = 10 * time.Second

	// pongWait is how long to wait for a pong before treating the connection
	// as dead.
	pongWait = 60 * time.Second

	// pingPeriod must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// sendBufSize is the per-client outgoing message buffer depth.
	sendBufSize = 16

	// completedBufSize bounds the finished runs queued for announcement.
	// Runs beyond it still reach clients through the next snapshot.
	completedBufSize = 16
)

// Event names of a Message.
const (
	EventSnapshot     = "snapshot"
	EventRunCompleted = "run.completed"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Message is the JSON envelope sent to clients. Data is an
// api.SnapshotResponse for EventSnapshot and an api.RunResponse for
// EventRunCompleted.
type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Hub manages WebSocket client connections. It announces each finished run
// as it is recorded and broadcasts the full runs snapshot on every interval.
type Hub struct {
	store     *store.Store
	findings  *findings.Engine
	interval  time.Duration
	completed chan *types.Run

	mu      sync.RWMutex
	clients map[*client]struct{}
}

// client represents one connected WebSocket client.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// New creates a Hub that reads from st and engine and broadcasts every
// interval. engine may be nil.
func New(st *store.Store, engine *findings.Engine, interval time.Duration) *Hub {
	return &Hub{
		store:     st,
		findings:  engine,
		interval:  interval,
		completed: make(chan *types.Run, completedBufSize),
		clients:   make(map[*client]struct{}),
	}
}

// Notify announces a finished run to all clients, followed by a fresh
// snapshot. It never blocks; when the queue is full the run is only seen
// in the next periodic snapshot.
func (h *Hub) Notify(run *types.Run) {
	select {
	case h.completed <- run:
	default:
	}
}

// Run starts the broadcast loop. Run blocks until ctx is cancelled, then
// closes all active connections.
func (h *Hub) Run(ctx context.Context) {
	t := time.NewTicker(h.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-t.C:
			h.broadcast(h.snapshotMessage())
		case run := <-h.completed:
			h.broadcast(h.completedMessage(run))
			h.broadcast(h.snapshotMessage())
		}
	}
}

// ServeHTTP upgrades the HTTP connection to WebSocket and serves the client.
// The current snapshot is sent on connect. Blocks until the connection closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already written the error response.
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, sendBufSize),
	}
	h.register(c)
	defer h.unregister(c)

	if data, err := h.snapshotMessage(); err == nil {
		select {
		case c.send <- data:
		default:
		}
	}

	go c.writePump()
	c.readPump() // blocks until connection closes
}

// Count returns the number of currently connected clients.
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

func (h *Hub) broadcast(data []byte, err error) {
	if err != nil {
		return
	}

	// Sends happen under the read lock so unregister cannot close a channel
	// mid-send.
	var slow []*client
	h.mu.RLock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.unregister(c)
	}
}

func (h *Hub) snapshotMessage() ([]byte, error) {
	return json.Marshal(Message{
		Event: EventSnapshot,
		Data:  api.BuildSnapshot(h.store, h.findings),
	})
}

func (h *Hub) completedMessage(run *types.Run) ([]byte, error) {
	e, ok := h.store.Get(run.ID)
	if !ok {
		e = &store.Entry{Run: run, StoredAt: time.Now()}
	}
	return json.Marshal(Message{
		Event: EventRunCompleted,
		Data:  api.NewRunResponse(e),
	})
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
}

// writePump forwards queued messages to the connection and sends periodic
// pings. Runs in its own goroutine per client.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump processes control frames and detects disconnects. Blocks until the
// connection closes.
func (c *client) readPump() {
	defer c.conn.Close()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}
