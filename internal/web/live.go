package web

import (
	"bytes"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sweeney/gate-controller/internal/status"
)

const writeWait = 2 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  256,
	WriteBufferSize: 1024,
	// nil CheckOrigin: same-origin only
}

// Hub pushes status snapshots to websocket clients whenever they change.
// Only the Run goroutine writes to client connections.
type Hub struct {
	tracker  *status.Tracker
	interval time.Duration

	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	stop       chan struct{}
	stopOnce   sync.Once

	mu      sync.RWMutex
	clients map[*websocket.Conn]bool
	last    []byte
}

// NewHub creates a hub that samples the tracker every interval.
func NewHub(tracker *status.Tracker, interval time.Duration) *Hub {
	return &Hub{
		tracker:    tracker,
		interval:   interval,
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		stop:       make(chan struct{}),
		clients:    make(map[*websocket.Conn]bool),
	}
}

// Run serves registrations and pushes changed snapshots until Stop.
func (h *Hub) Run() {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stop:
			h.mu.Lock()
			for c := range h.clients {
				c.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
					time.Now().Add(writeWait))
				c.Close()
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			n := len(h.clients)
			h.mu.Unlock()
			log.Printf("web: live client connected (%d total)", n)
			h.send(c, status.FormatCompact(h.tracker.Snapshot()))

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				c.Close()
			}
			n := len(h.clients)
			h.mu.Unlock()
			log.Printf("web: live client disconnected (%d total)", n)

		case <-ticker.C:
			h.broadcastIfChanged()
		}
	}
}

// Stop ends Run and closes all client connections.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) broadcastIfChanged() {
	snap := h.tracker.Snapshot()
	// Uptime and timestamp tick every second; compare without them.
	snap.Now = snap.StartTime
	key := status.FormatCompact(snap)
	if bytes.Equal(key, h.last) {
		return
	}
	h.last = key

	msg := status.FormatCompact(h.tracker.Snapshot())
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		h.send(c, msg)
	}
}

func (h *Hub) send(c *websocket.Conn, msg []byte) {
	c.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
		log.Printf("web: live write: %v", err)
		h.mu.Lock()
		delete(h.clients, c)
		h.mu.Unlock()
		c.Close()
	}
}

// HandleWebSocket upgrades the request and registers the connection. The
// read loop only watches for the client going away.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: upgrade: %v", err)
		return
	}

	select {
	case h.register <- conn:
	case <-h.stop:
		conn.Close()
		return
	}

	go func() {
		defer func() {
			select {
			case h.unregister <- conn:
			case <-h.stop:
			}
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("web: live read: %v", err)
				}
				return
			}
		}
	}()
}
