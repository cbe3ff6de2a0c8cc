package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	applog "wavelab/internal/log"

	"github.com/gorilla/websocket"
)

const (
	broadcastBuffer = 256
	writeTimeout    = 5 * time.Second

	// DefaultReadLimit is the largest client message accepted unless
	// SetReadLimit is called.
	DefaultReadLimit int64 = 512 << 10
)

// Handler answers one request message received from a WebSocket client. The
// returned value is written back to that client as JSON; a non-nil error is
// written back as an ErrorReply instead.
type Handler func(ctx context.Context, msg []byte) (any, error)

// ErrorReply is sent to a client whose request failed.
type ErrorReply struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// wsClient serializes writes to one connection; gorilla allows a single
// concurrent writer.
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(v)
}

// WebSocketTransport implements the Transport interface for WebSocket
// connections. Clients connect on /ws; text messages are passed to the
// Handler and Send broadcasts to every connected client.
type WebSocketTransport struct {
	addr     string
	upgrader websocket.Upgrader
	handler  Handler

	readLimit atomic.Int64

	clients   map[*wsClient]bool
	clientsMu sync.Mutex

	broadcast chan any
	done      chan struct{}
	closeOnce sync.Once
	ctx       context.Context
	cancel    context.CancelFunc

	server   *http.Server
	listener net.Listener
}

// NewWebSocketTransport creates a new WebSocketTransport and starts its
// broadcast loop. Call Start to listen on addr, or mount Mux on an existing
// server. handler may be nil, in which case client messages are ignored.
func NewWebSocketTransport(addr string, handler Handler) *WebSocketTransport {
	ctx, cancel := context.WithCancel(context.Background())
	wst := &WebSocketTransport{
		addr:    addr,
		handler: handler,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Browser clients are served from other origins.
			},
		},
		clients:   make(map[*wsClient]bool),
		broadcast: make(chan any, broadcastBuffer),
		done:      make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
	}

	wst.readLimit.Store(DefaultReadLimit)

	go wst.handleBroadcasts()
	return wst
}

// SetReadLimit sets the largest message read from a client; larger messages
// close that client's connection. It applies to connections opened afterwards.
func (wst *WebSocketTransport) SetReadLimit(n int64) {
	wst.readLimit.Store(n)
}

// Mux returns the HTTP handler serving the /ws endpoint.
func (wst *WebSocketTransport) Mux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wst.handleWebSocket)
	return mux
}

// Start binds addr and serves in the background. Bind errors are returned.
func (wst *WebSocketTransport) Start() error {
	ln, err := net.Listen("tcp", wst.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", wst.addr, err)
	}
	wst.listener = ln
	wst.server = &http.Server{
		Handler:           wst.Mux(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		applog.Infof("WebSocketTransport: Starting WebSocket server on %s", ln.Addr())
		if err := wst.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			applog.Errorf("WebSocketTransport: Server error: %v", err)
		}
	}()
	return nil
}

// Addr returns the bound address once Start has succeeded, otherwise the
// configured one.
func (wst *WebSocketTransport) Addr() string {
	if wst.listener != nil {
		return wst.listener.Addr().String()
	}
	return wst.addr
}

// ClientCount returns the number of connected clients.
func (wst *WebSocketTransport) ClientCount() int {
	wst.clientsMu.Lock()
	defer wst.clientsMu.Unlock()
	return len(wst.clients)
}

// handleWebSocket upgrades the connection and runs its read loop until the
// client disconnects.
func (wst *WebSocketTransport) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wst.upgrader.Upgrade(w, r, nil)
	if err != nil {
		applog.Warnf("WebSocketTransport: Upgrade error: %v", err)
		return
	}

	conn.SetReadLimit(wst.readLimit.Load())

	c := &wsClient{conn: conn}
	wst.clientsMu.Lock()
	wst.clients[c] = true
	total := len(wst.clients)
	wst.clientsMu.Unlock()
	applog.Infof("WebSocketTransport: Client connected, total: %d", total)

	defer wst.removeClient(c)

	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage || wst.handler == nil {
			continue
		}

		reply, err := wst.handler(wst.ctx, msg)
		if err != nil {
			applog.Debugf("WebSocketTransport: Request failed: %v", err)
			reply = ErrorReply{Type: "error", Error: err.Error()}
		}
		if err := c.writeJSON(reply); err != nil {
			applog.Warnf("WebSocketTransport: Error replying to client: %v", err)
			return
		}
	}
}

func (wst *WebSocketTransport) removeClient(c *wsClient) {
	wst.clientsMu.Lock()
	_, ok := wst.clients[c]
	delete(wst.clients, c)
	total := len(wst.clients)
	wst.clientsMu.Unlock()

	c.conn.Close()
	if ok {
		applog.Infof("WebSocketTransport: Client disconnected, total: %d", total)
	}
}

// handleBroadcasts sends queued messages to all connected clients.
func (wst *WebSocketTransport) handleBroadcasts() {
	for {
		select {
		case data := <-wst.broadcast:
			wst.clientsMu.Lock()
			targets := make([]*wsClient, 0, len(wst.clients))
			for c := range wst.clients {
				targets = append(targets, c)
			}
			wst.clientsMu.Unlock()

			for _, c := range targets {
				if err := c.writeJSON(data); err != nil {
					applog.Warnf("WebSocketTransport: Error sending to client: %v", err)
					wst.removeClient(c)
				}
			}
		case <-wst.done:
			return
		}
	}
}

// Send queues data for broadcast. Messages are dropped when the queue is full.
func (wst *WebSocketTransport) Send(data any) error {
	select {
	case <-wst.done:
		return ErrClosed
	default:
	}

	select {
	case wst.broadcast <- data:
	default:
		applog.Debugf("WebSocketTransport: Broadcast queue full, dropping message")
	}
	return nil
}

// Close disconnects all clients and shuts down the server.
func (wst *WebSocketTransport) Close() error {
	var err error
	wst.closeOnce.Do(func() {
		applog.Infof("WebSocketTransport: Closing server")
		close(wst.done)
		wst.cancel()

		wst.clientsMu.Lock()
		for c := range wst.clients {
			c.conn.Close()
		}
		wst.clients = make(map[*wsClient]bool)
		wst.clientsMu.Unlock()

		if wst.server != nil {
			err = wst.server.Close()
		}
	})
	return err
}

// Ensure WebSocketTransport satisfies the interface
var _ Transport = (*WebSocketTransport)(nil)
