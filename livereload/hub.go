package livereload

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingEvery    = (pongWait * 9) / 10
	clientQueue  = 16
	readMaxBytes = 4096
)

// Message types sent to clients.
const (
	TypeHello      = "hello"
	TypeCSSUpdate  = "css-update"
	TypeBuildError = "build-error"
)

// Message is what connected clients receive, one JSON object per frame.
type Message struct {
	Type    string `json:"type"`
	ID      string `json:"id,omitempty"`
	Path    string `json:"path,omitempty"`
	Version int    `json:"version,omitempty"`
	Message string `json:"message,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Pages under development are served from anywhere (dev server, file://)
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

type client struct {
	conn *websocket.Conn
	send chan Message
}

// Hub keeps connected websocket clients and fans messages out to them.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	hello   func() Message
	log     *zap.Logger
}

// NewHub creates hub. When hello is not nil its result is sent to every
// client right after connection.
func NewHub(hello func() Message, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		clients: make(map[*client]struct{}),
		hello:   hello,
		log:     log,
	}
}

// Len returns number of connected clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast queues message for every connected client. Slow clients lose
// their oldest pending message rather than block the sender.
func (h *Hub) Broadcast(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		push(c.send, msg)
	}
}

// Close drops all connected clients. Hijacked connections are not closed by
// http.Server.Shutdown so this has to be done separately.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	var err error
	for c := range h.clients {
		err = multierr.Append(err, c.conn.Close())
		delete(h.clients, c)
	}
	return err
}

// register queues hello and adds client atomically with respect to
// Broadcast, so no message published after the hello snapshot is lost.
func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.hello != nil {
		c.send <- h.hello()
	}
	h.clients[c] = struct{}{}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("Websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	conn.SetReadLimit(readMaxBytes)
	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		h.log.Debug("Unable to set read deadline", zap.Error(err))
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	c := &client{conn: conn, send: make(chan Message, clientQueue)}
	h.register(c)
	defer h.unregister(c)

	h.log.Debug("Client connected", zap.String("remote", r.RemoteAddr))
	defer h.log.Debug("Client disconnected", zap.String("remote", r.RemoteAddr))

	done := make(chan struct{})
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(pingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(writeWait))
				return
			case <-r.Context().Done():
				return
			case msg := <-c.send:
				if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
					return
				}
				if err := conn.WriteJSON(msg); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	// Clients have nothing to say, reading is needed to process control
	// frames and to notice disconnects.
	for {
		if _, _, err := conn.NextReader(); err != nil {
			break
		}
	}
	close(done)
	<-writerDone
}

func push(ch chan Message, msg Message) {
	select {
	case ch <- msg:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- msg:
	default:
	}
}
