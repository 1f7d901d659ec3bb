package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/GriffinCanCode/markread/internal/render"
	"github.com/GriffinCanCode/markread/internal/viewer"
	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 16
)

// Source publishes displayed documents.
type Source interface {
	State() viewer.State
	Subscribe(fn func(viewer.State)) func()
}

// Metrics receives connection and message counts.
type Metrics interface {
	IncWSConnections()
	DecWSConnections()
	RecordWSMessage(msgType string)
}

// Message is a server to client frame.
type Message struct {
	Type      string           `json:"type"`
	Message   string           `json:"message,omitempty"`
	Version   uint64           `json:"version,omitempty"`
	Title     string           `json:"title,omitempty"`
	Filename  string           `json:"filename,omitempty"`
	HTML      string           `json:"html,omitempty"`
	Words     int              `json:"words,omitempty"`
	Outline   []render.Heading `json:"outline,omitempty"`
	Timestamp int64            `json:"timestamp"`
}

type inbound struct {
	Type string `json:"type"`
}

// Handler manages WebSocket connections and pushes every newly displayed
// document to all of them.
type Handler struct {
	source   Source
	metrics  Metrics
	logger   *zap.Logger
	upgrader websocket.Upgrader
	unsub    func()

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// NewHandler creates a handler subscribed to source.
func NewHandler(source Source, metrics Metrics, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{
		source:  source,
		metrics: metrics,
		logger:  logger.Named("ws"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Local viewer, any page may follow it
			},
		},
		clients: make(map[*client]struct{}),
	}
	h.unsub = source.Subscribe(h.publish)
	return h
}

// HandleConnection handles WebSocket upgrade and messages
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	cl := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	if !h.add(cl) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}
	defer h.remove(cl)

	go h.writePump(cl)

	h.enqueue(cl, Message{Type: "system", Message: "connected"})
	if state := h.source.State(); !state.Empty() {
		h.enqueue(cl, documentMessage(state))
	}

	h.readPump(cl)
}

func (h *Handler) readPump(cl *client) {
	cl.conn.SetReadLimit(maxMessageSize)
	_ = cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg inbound
		if err := cl.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket read error", zap.Error(err))
			}
			return
		}

		switch msg.Type {
		case "ping":
			h.enqueue(cl, Message{Type: "pong"})
		default:
			h.enqueue(cl, Message{Type: "error", Message: "unknown message type"})
		}
	}
}

func (h *Handler) writePump(cl *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		cl.conn.Close()
	}()

	for {
		select {
		case data, ok := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = cl.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := cl.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Handler) add(cl *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[cl] = struct{}{}
	if h.metrics != nil {
		h.metrics.IncWSConnections()
	}
	return true
}

func (h *Handler) remove(cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[cl]; !ok {
		return
	}
	delete(h.clients, cl)
	cl.close()
	if h.metrics != nil {
		h.metrics.DecWSConnections()
	}
}

// enqueue never blocks. A client that cannot keep up is disconnected.
func (h *Handler) enqueue(cl *client, msg Message) {
	data, err := encode(msg)
	if err != nil {
		h.logger.Error("failed to encode websocket message", zap.Error(err))
		return
	}
	h.deliver(cl, msg.Type, data)
}

func (h *Handler) deliver(cl *client, msgType string, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[cl]; !ok {
		return
	}
	select {
	case cl.send <- data:
		if h.metrics != nil {
			h.metrics.RecordWSMessage(msgType)
		}
	default:
		h.logger.Warn("slow websocket client dropped")
		delete(h.clients, cl)
		cl.close()
		if h.metrics != nil {
			h.metrics.DecWSConnections()
		}
	}
}

func (h *Handler) publish(state viewer.State) {
	msg := documentMessage(state)
	data, err := encode(msg)
	if err != nil {
		h.logger.Error("failed to encode document message", zap.Error(err))
		return
	}

	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for cl := range h.clients {
		clients = append(clients, cl)
	}
	h.mu.Unlock()

	for _, cl := range clients {
		h.deliver(cl, msg.Type, data)
	}
}

// Clients returns the number of connected clients.
func (h *Handler) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close unsubscribes from the source and disconnects every client.
func (h *Handler) Close() {
	h.unsub()

	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for cl := range h.clients {
		delete(h.clients, cl)
		cl.close()
		if h.metrics != nil {
			h.metrics.DecWSConnections()
		}
	}
}

func documentMessage(state viewer.State) Message {
	return Message{
		Type:      "document",
		Version:   state.Version,
		Title:     state.Title,
		Filename:  state.Filename,
		HTML:      state.HTML,
		Words:     state.Words,
		Outline:   state.Outline,
		Timestamp: time.Now().Unix(),
	}
}

func encode(msg Message) ([]byte, error) {
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().Unix()
	}
	return sonic.Marshal(msg)
}
