package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/posebeat/internal/game"
	"github.com/ayusman/posebeat/internal/gesture"
	"github.com/ayusman/posebeat/internal/pose"
)

// DefaultSnapshotInterval pushes game state at roughly 30 FPS.
const DefaultSnapshotInterval = 33 * time.Millisecond

const (
	writeWait  = 5 * time.Second
	sendBuffer = 64
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// Message types sent to and received from websocket clients.
const (
	MsgPose       = "pose"
	MsgState      = "state"
	MsgHit        = "hit"
	MsgMiss       = "miss"
	MsgCombo      = "combo"
	MsgEnd        = "end"
	MsgGesture    = "gesture"
	MsgCalibrated = "calibrated"
)

// FrameSink consumes pose frames, typically an app.Session.
type FrameSink interface {
	HandleFrame(f *pose.Frame) (gesture.Event, game.HitResult, bool)
}

// Message is the envelope for every websocket message.
type Message struct {
	Type      string          `json:"type"`
	Timestamp int64           `json:"timestamp"`
	Snapshot  *game.Snapshot  `json:"snapshot,omitempty"`
	Hit       *game.HitResult `json:"hit,omitempty"`
	Arrow     *game.Arrow     `json:"arrow,omitempty"`
	Combo     *ComboUpdate    `json:"combo,omitempty"`
	Stats     *game.Stats     `json:"stats,omitempty"`
	Gesture   *gesture.Event  `json:"gesture,omitempty"`
	Baseline  *pose.Baseline  `json:"baseline,omitempty"`
}

// ComboUpdate carries a combo change.
type ComboUpdate struct {
	Combo      int `json:"combo"`
	Multiplier int `json:"multiplier"`
}

// inbound is a client message. A pose message with a null frame reports
// that no person is visible.
type inbound struct {
	Type  string      `json:"type"`
	Frame *pose.Frame `json:"frame"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans game notifications and periodic state snapshots out to
// websocket clients, and feeds pose frames from clients into the session.
// It implements game.Listener.
type Hub struct {
	engine   *game.Engine
	sink     FrameSink
	interval time.Duration

	clients map[*client]struct{}
	mu      sync.RWMutex

	stopCh    chan struct{}
	closeOnce sync.Once
}

// NewHub creates a Hub and starts its snapshot broadcast loop. sink may be
// nil, in which case pose messages are ignored.
func NewHub(engine *game.Engine, sink FrameSink, interval time.Duration) *Hub {
	if interval <= 0 {
		interval = DefaultSnapshotInterval
	}
	h := &Hub{
		engine:   engine,
		sink:     sink,
		interval: interval,
		clients:  make(map[*client]struct{}),
		stopCh:   make(chan struct{}),
	}
	go h.broadcastState()
	return h
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	select {
	case <-h.stopCh:
		h.mu.Unlock()
		conn.Close()
		return
	default:
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go h.writePump(c)

	// Send current state right away so the client can render
	h.sendTo(c, h.stateMessage())

	h.readPump(c)
	h.remove(c)
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close stops broadcasting and disconnects all clients.
func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		h.mu.Lock()
		close(h.stopCh)
		clients := make([]*client, 0, len(h.clients))
		for c := range h.clients {
			clients = append(clients, c)
		}
		h.mu.Unlock()

		for _, c := range clients {
			h.remove(c)
		}
	})
}

// readPump decodes client messages until the connection fails.
func (h *Hub) readPump(c *client) {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("websocket: invalid message: %v", err)
			continue
		}

		switch msg.Type {
		case MsgPose:
			if h.sink != nil {
				h.sink.HandleFrame(msg.Frame)
			}
		case MsgState:
			h.sendTo(c, h.stateMessage())
		}
	}
}

// writePump delivers queued messages to one client.
func (h *Hub) writePump(c *client) {
	defer c.conn.Close()

	for data := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// remove unregisters c and closes its send queue. Safe to call twice.
func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

// broadcastState sends snapshots while a game is active and clients are connected.
func (h *Hub) broadcastState() {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stopCh:
			return
		case <-ticker.C:
			if h.Clients() == 0 {
				continue
			}
			switch h.engine.Status() {
			case game.StatusIdle, game.StatusEnded:
				continue
			}
			h.broadcast(h.stateMessage())
		}
	}
}

func (h *Hub) stateMessage() Message {
	snap := h.engine.Snapshot()
	return Message{Type: MsgState, Snapshot: &snap}
}

// broadcast queues msg for every client. Clients whose queue is full drop
// the message rather than stall the game.
func (h *Hub) broadcast(msg Message) {
	data, err := encode(msg)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
		}
	}
}

func (h *Hub) sendTo(c *client, msg Message) {
	data, err := encode(msg)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func encode(msg Message) ([]byte, error) {
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixMilli()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("websocket: encode %s: %v", msg.Type, err)
	}
	return data, err
}

// OnHit implements game.Listener.
func (h *Hub) OnHit(r game.HitResult) {
	h.broadcast(Message{Type: MsgHit, Hit: &r})
}

// OnMiss implements game.Listener.
func (h *Hub) OnMiss(a game.Arrow) {
	h.broadcast(Message{Type: MsgMiss, Arrow: &a})
}

// OnComboChange implements game.Listener.
func (h *Hub) OnComboChange(combo, multiplier int) {
	h.broadcast(Message{Type: MsgCombo, Combo: &ComboUpdate{Combo: combo, Multiplier: multiplier}})
}

// OnGameEnd implements game.Listener.
func (h *Hub) OnGameEnd(s game.Stats) {
	h.broadcast(Message{Type: MsgEnd, Stats: &s})
	h.broadcast(h.stateMessage())
}

// OnGesture forwards a classified gesture and the engine's verdict.
func (h *Hub) OnGesture(ev gesture.Event, hit game.HitResult) {
	h.broadcast(Message{Type: MsgGesture, Gesture: &ev, Hit: &hit})
}

// OnCalibrated announces a newly installed baseline.
func (h *Hub) OnCalibrated(b *pose.Baseline) {
	h.broadcast(Message{Type: MsgCalibrated, Baseline: b})
}
