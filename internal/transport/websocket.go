// SPDX-License-Identifier: MIT
package transport

import (
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sandcore/frequatuner/internal/log"
)

// DefaultBroadcastQueue is the number of frames buffered for slow clients
// before Send starts dropping.
const DefaultBroadcastQueue = 256

// DefaultWriteTimeout bounds a single frame write. A client that cannot
// take a frame within it is disconnected.
const DefaultWriteTimeout = time.Second

// WebSocketTransport implements the Transport interface for WebSocket
// connections. Every frame passed to Send is written as JSON to all
// connected clients.
type WebSocketTransport struct {
	addr         string
	path         string
	minInterval  time.Duration
	writeTimeout time.Duration

	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex
	broadcast chan any
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	sendMu   sync.Mutex
	lastSend time.Time

	server   *http.Server
	listener net.Listener
	log      *log.Logger
}

// NewWebSocketTransport creates a transport serving clients on path. When
// minInterval is positive, frames arriving sooner than minInterval after
// the previous one are dropped unless they carry an event. The server does
// not listen until Start is called.
func NewWebSocketTransport(addr, path string, minInterval time.Duration) *WebSocketTransport {
	if path == "" {
		path = "/"
	}
	wst := &WebSocketTransport{
		addr:         addr,
		path:         path,
		minInterval:  minInterval,
		writeTimeout: DefaultWriteTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // displays are served from anywhere on the LAN
			},
		},
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan any, DefaultBroadcastQueue),
		done:      make(chan struct{}),
		log:       log.Named("websocket"),
	}

	wst.wg.Add(1)
	go wst.handleBroadcasts()
	return wst
}

// Handler returns the HTTP handler that upgrades requests on the configured
// path.
func (wst *WebSocketTransport) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(wst.path, wst.handleWebSocket)
	return mux
}

// Start begins listening on the configured address. An empty address leaves
// the transport without a server, which is useful when Handler is mounted
// elsewhere.
func (wst *WebSocketTransport) Start() error {
	if wst.addr == "" {
		return nil
	}

	ln, err := net.Listen("tcp", wst.addr)
	if err != nil {
		return err
	}
	wst.listener = ln
	wst.server = &http.Server{
		Handler:           wst.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		wst.log.Infof("listening on %s%s", ln.Addr(), wst.path)
		if err := wst.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			wst.log.Errorf("server error: %v", err)
		}
	}()
	return nil
}

// Addr returns the listening address, or nil before Start.
func (wst *WebSocketTransport) Addr() net.Addr {
	if wst.listener == nil {
		return nil
	}
	return wst.listener.Addr()
}

// ClientCount returns the number of connected clients.
func (wst *WebSocketTransport) ClientCount() int {
	wst.clientsMu.Lock()
	defer wst.clientsMu.Unlock()
	return len(wst.clients)
}

func (wst *WebSocketTransport) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wst.upgrader.Upgrade(w, r, nil)
	if err != nil {
		wst.log.Warnf("upgrade error: %v", err)
		return
	}

	wst.clientsMu.Lock()
	wst.clients[conn] = true
	total := len(wst.clients)
	wst.clientsMu.Unlock()
	wst.log.Infof("client connected, total: %d", total)

	go func() {
		// Clients never send; any read result means the peer went away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
		wst.removeClient(conn)
	}()
}

func (wst *WebSocketTransport) removeClient(conn *websocket.Conn) {
	wst.clientsMu.Lock()
	_, ok := wst.clients[conn]
	delete(wst.clients, conn)
	total := len(wst.clients)
	wst.clientsMu.Unlock()

	if ok {
		conn.Close()
		wst.log.Infof("client disconnected, total: %d", total)
	}
}

func (wst *WebSocketTransport) handleBroadcasts() {
	defer wst.wg.Done()
	for {
		select {
		case data := <-wst.broadcast:
			wst.clientsMu.Lock()
			deadline := time.Now().Add(wst.writeTimeout)
			for client := range wst.clients {
				client.SetWriteDeadline(deadline)
				if err := client.WriteJSON(data); err != nil {
					wst.log.Debugf("error sending to client: %v", err)
					client.Close()
					delete(wst.clients, client)
				}
			}
			wst.clientsMu.Unlock()
		case <-wst.done:
			return
		}
	}
}

// Send queues data for broadcast. Frames inside the rate limit window and
// frames arriving while the queue is full are dropped without error.
func (wst *WebSocketTransport) Send(data any) error {
	if !wst.admit(data) {
		return nil
	}

	select {
	case <-wst.done:
		return nil
	default:
	}

	select {
	case wst.broadcast <- data:
	default:
		wst.log.Debugf("broadcast queue full, dropping frame")
	}
	return nil
}

func (wst *WebSocketTransport) admit(data any) bool {
	if wst.minInterval <= 0 {
		return true
	}

	now := time.Now()
	wst.sendMu.Lock()
	defer wst.sendMu.Unlock()
	if !isEvent(data) && now.Sub(wst.lastSend) < wst.minInterval {
		return false
	}
	wst.lastSend = now
	return true
}

// Close disconnects all clients and shuts down the server.
func (wst *WebSocketTransport) Close() error {
	var err error
	wst.closeOnce.Do(func() {
		close(wst.done)
		wst.wg.Wait()

		wst.clientsMu.Lock()
		for client := range wst.clients {
			client.Close()
		}
		wst.clients = make(map[*websocket.Conn]bool)
		wst.clientsMu.Unlock()

		if wst.server != nil {
			err = wst.server.Close()
		}
		wst.log.Debugf("closed")
	})
	return err
}

var _ Transport = (*WebSocketTransport)(nil)
