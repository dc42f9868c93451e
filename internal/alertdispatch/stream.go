package alertdispatch

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/sentrywatch/siemcore/internal/logging"
	"github.com/sentrywatch/siemcore/internal/model"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = (streamPongWait * 9) / 10
	streamMaxMessage = 4096
)

// StreamMessage is the envelope broadcast to every connected /ws/alerts
// client.
type StreamMessage struct {
	Type  string       `json:"type"`
	Alert *model.Alert `json:"alert,omitempty"`
}

// Hub fans alerts out to every connected SOC-dashboard websocket client.
// Mount it at /ws/alerts via its ServeHTTP and run it under a supervisor
// via Run so a crashed hub is restarted. Run disconnects every client when
// it exits; clients have to open a new connection afterwards.
type Hub struct {
	clients    map[*streamClient]bool
	broadcast  chan StreamMessage
	register   chan *streamClient
	unregister chan *streamClient
	mu         sync.RWMutex
}

// NewHub creates an empty Hub ready to Run.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*streamClient]bool),
		broadcast:  make(chan StreamMessage, 256),
		register:   make(chan *streamClient),
		unregister: make(chan *streamClient),
	}
}

// Run services client lifecycle and broadcast events until ctx is
// canceled, disconnecting every client on exit.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return ctx.Err()
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
		case msg := <-h.broadcast:
			h.fanOut(msg)
		}
	}
}

// fanOut delivers msg to every client in ascending client-ID order, so
// broadcast ordering is reproducible across runs, and drops any client
// whose send buffer is full rather than blocking the rest.
func (h *Hub) fanOut(msg StreamMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*streamClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].id < clients[j].id })

	for _, c := range clients {
		select {
		case c.send <- msg:
		default:
			close(c.send)
			delete(h.clients, c)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
}

// Broadcast queues alert for delivery to every connected client, dropping
// it instead of blocking if the broadcast buffer is full.
func (h *Hub) Broadcast(alert *model.Alert) {
	select {
	case h.broadcast <- StreamMessage{Type: "alert", Alert: alert}:
	default:
	}
}

// ClientCount reports the number of currently connected dashboards.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

var streamUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

var streamClientIDCounter atomic.Uint64

type streamClient struct {
	id   uint64
	conn *websocket.Conn
	send chan StreamMessage
}

// ServeHTTP upgrades the request to a websocket connection and registers
// it with the hub. Mount at /ws/alerts; clients send nothing and receive
// a StreamMessage per dispatched alert.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := streamUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("alert stream upgrade failed")
		return
	}

	c := &streamClient{id: streamClientIDCounter.Add(1), conn: conn, send: make(chan StreamMessage, 64)}
	h.register <- c

	go h.writePump(c)
	go h.readPump(c)
}

// readPump only drains the connection to observe its close/ping frames;
// the stream is one-directional, so any application message is ignored.
func (h *Hub) readPump(c *streamClient) {
	defer func() {
		h.unregister <- c
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(streamMaxMessage)
	_ = c.conn.SetReadDeadline(time.Now().Add(streamPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *streamClient) {
	ticker := time.NewTicker(streamPingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			b, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// StreamChannel adapts Hub to the Channel interface so the Dispatcher
// routes an alert to every connected dashboard the same way it routes to
// email or chat.
type StreamChannel struct {
	hub *Hub
}

// NewStreamChannel wraps hub as a dispatch Channel.
func NewStreamChannel(hub *Hub) *StreamChannel {
	return &StreamChannel{hub: hub}
}

func (s *StreamChannel) Name() string { return "stream" }

func (s *StreamChannel) Send(_ context.Context, alert *model.Alert, _ string) error {
	s.hub.Broadcast(alert)
	return nil
}
