package wsserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"beatbind/internal/workerutil"
)

// writeDeadline is the maximum time allowed for a single WebSocket write.
// A client frozen longer than this is considered dead.
const writeDeadline = 5 * time.Second

// readDeadline allows ~3 missed pings (pingInterval=30s) before timeout.
const readDeadline = 90 * time.Second

const pingInterval = 30 * time.Second

// maxReadMessageSize bounds client subscribe payloads.
const maxReadMessageSize = 32 * 1024

// defaultMaxClients caps concurrent observers.
const defaultMaxClients = 8

var wsUpgrader = websocket.Upgrader{
	// The server binds to 127.0.0.1 only.
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 4 * 1024,
}

// ErrHubStopped is returned by Start after Stop.
var ErrHubStopped = errors.New("wsserver: hub stopped")

// HubOptions configures the WebSocket server.
type HubOptions struct {
	// Addr is the listen address. Use "127.0.0.1:0" for an OS-assigned port.
	Addr string
	// MaxClients defaults to 8. Connections beyond it are refused with 503.
	MaxClients int
	// PingInterval overrides the keepalive period (tests).
	PingInterval time.Duration
}

// Hub broadcasts notifications to every connected observer.
//
// Lock ordering (never acquire in reverse):
//
//	client.writeMu -> Hub.mu
//
// Write failure policy: a failed write disconnects that client only.
type Hub struct {
	opts HubOptions

	mu      sync.RWMutex
	clients map[*client]struct{}
	stopped bool

	listener net.Listener
	server   *http.Server
	url      string
	wg       sync.WaitGroup

	closeOnce sync.Once
}

type client struct {
	conn *websocket.Conn
	// writeMu serializes WriteMessage calls; gorilla/websocket does not
	// support concurrent writers.
	writeMu sync.Mutex
	// events is guarded by Hub.mu.
	events map[string]bool
}

const (
	subscribeAction   = "subscribe"
	unsubscribeAction = "unsubscribe"
)

// subscribeMsg is the JSON payload for client subscribe/unsubscribe requests.
type subscribeMsg struct {
	Action string   `json:"action"`
	Events []string `json:"events"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// NewHub creates a Hub. The hub is not started until Start is called.
func NewHub(opts HubOptions) *Hub {
	if opts.Addr == "" {
		opts.Addr = "127.0.0.1:0"
	}
	if opts.MaxClients <= 0 {
		opts.MaxClients = defaultMaxClients
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = pingInterval
	}
	return &Hub{
		opts:    opts,
		clients: make(map[*client]struct{}),
	}
}

// Start listens on the configured address and serves /ws. ctx becomes the
// BaseContext of request handlers; the server itself stops via Stop.
func (h *Hub) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return ErrHubStopped
	}
	if h.server != nil {
		return errors.New("wsserver: already started")
	}

	ln, err := net.Listen("tcp", h.opts.Addr)
	if err != nil {
		return fmt.Errorf("wsserver: listen: %w", err)
	}
	h.listener = ln
	h.url = fmt.Sprintf("ws://%s/ws", ln.Addr().String())

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.handleWS)
	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}
	h.server = server

	workerutil.Go(&h.wg, "wsserver-serve", func() {
		if serveErr := server.Serve(ln); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("[DEBUG-WS] server error", "error", serveErr)
		}
	})

	slog.Info("[DEBUG-WS] server started", "url", h.url)
	return nil
}

// Stop shuts down the server and disconnects every client. Idempotent.
func (h *Hub) Stop() error {
	var stopErr error
	h.closeOnce.Do(func() {
		h.mu.Lock()
		h.stopped = true
		clients := h.clients
		h.clients = make(map[*client]struct{})
		server := h.server
		h.mu.Unlock()

		for c := range clients {
			h.closeConn(c, "hub stop")
		}

		if server != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				stopErr = fmt.Errorf("wsserver: shutdown: %w", err)
			}
		}
		h.wg.Wait()
		slog.Info("[DEBUG-WS] server stopped")
	})
	return stopErr
}

// URL returns the WebSocket URL, or "" before Start.
func (h *Hub) URL() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.url
}

// ClientCount returns the number of connected observers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends a notification of eventType to every client subscribed to
// it and returns the number of clients that received it.
func (h *Hub) Broadcast(eventType string, payload any) (int, error) {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		if c.events[eventType] {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	if len(targets) == 0 {
		slog.Debug("[DEBUG-WS] broadcast skipped: no subscribers", "event", eventType)
		return 0, nil
	}

	frame, err := EncodeNotification(eventType, payload, time.Now())
	if err != nil {
		return 0, err
	}

	delivered := 0
	for _, c := range targets {
		if h.write(c, websocket.TextMessage, frame) {
			delivered++
		}
	}
	return delivered, nil
}

// write sends one frame to c. On failure c is removed and closed.
func (h *Hub) write(c *client, messageType int, data []byte) bool {
	c.writeMu.Lock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
		c.writeMu.Unlock()
		slog.Warn("[DEBUG-WS] SetWriteDeadline failed, closing connection", "error", err)
		h.drop(c, "SetWriteDeadline failure")
		return false
	}
	err := c.conn.WriteMessage(messageType, data)
	if clearErr := c.conn.SetWriteDeadline(time.Time{}); clearErr != nil {
		slog.Debug("[DEBUG-WS] clearWriteDeadline failed (non-fatal)", "error", clearErr)
	}
	c.writeMu.Unlock()

	if err != nil {
		slog.Warn("[DEBUG-WS] write failed, closing connection", "remoteAddr", c.conn.RemoteAddr(), "error", err)
		h.drop(c, "write error")
		return false
	}
	return true
}

// drop removes c from the client set and closes it.
func (h *Hub) drop(c *client, reason string) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	h.closeConn(c, reason)
}

// closeConn closes a connection. Double-close returns an error from
// gorilla/websocket with no other side effects.
func (h *Hub) closeConn(c *client, reason string) {
	if err := c.conn.Close(); err != nil {
		slog.Debug("[DEBUG-WS] connection close", "reason", reason, "error", err)
	}
}

func (h *Hub) handleWS(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	full := len(h.clients) >= h.opts.MaxClients
	stopped := h.stopped
	h.mu.RUnlock()
	if stopped || full {
		slog.Warn("[DEBUG-WS] refusing connection", "remoteAddr", r.RemoteAddr, "stopped", stopped, "clients", h.opts.MaxClients)
		http.Error(w, "too many observers", http.StatusServiceUnavailable)
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("[DEBUG-WS] upgrade failed", "error", err)
		return
	}
	conn.SetReadLimit(maxReadMessageSize)

	c := &client{conn: conn, events: make(map[string]bool, len(knownEvents))}
	for ev := range knownEvents {
		c.events[ev] = true
	}

	if err := conn.SetReadDeadline(time.Now().Add(readDeadline)); err != nil {
		slog.Warn("[DEBUG-WS] SetReadDeadline failed on new connection", "error", err)
		h.closeConn(c, "initial SetReadDeadline failure")
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readDeadline))
	})

	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		h.closeConn(c, "hub stopped during upgrade")
		return
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	slog.Info("[DEBUG-WS] client connected", "remoteAddr", conn.RemoteAddr())

	var pingWG sync.WaitGroup
	pingDone := make(chan struct{})
	workerutil.Go(&pingWG, "wsserver-ping", func() { h.pingLoop(c, pingDone) })

	defer func() {
		close(pingDone)
		pingWG.Wait()
		h.drop(c, "read pump exit")
		slog.Info("[DEBUG-WS] client disconnected", "remoteAddr", conn.RemoteAddr())
	}()

	err = workerutil.Call(func() error {
		h.readPump(c)
		return nil
	})
	if err != nil {
		slog.Error("[DEBUG-PANIC] wsserver read pump recovered", "error", err)
	}
}

func (h *Hub) readPump(c *client) {
	for {
		msgType, msg, readErr := c.conn.ReadMessage()
		if readErr != nil {
			if websocket.IsUnexpectedCloseError(readErr, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("[DEBUG-WS] read error", "error", readErr)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var sub subscribeMsg
		if jsonErr := json.Unmarshal(msg, &sub); jsonErr != nil {
			slog.Debug("[DEBUG-WS] invalid JSON from client", "error", jsonErr)
			h.sendError(c, fmt.Sprintf("invalid JSON: %s", jsonErr))
			continue
		}
		if msg := h.handleSubscription(c, sub); msg != "" {
			h.sendError(c, msg)
		}
	}
}

func (h *Hub) pingLoop(c *client, done <-chan struct{}) {
	ticker := time.NewTicker(h.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if !h.write(c, websocket.PingMessage, nil) {
				return
			}
		}
	}
}

// handleSubscription applies sub to c and returns a client-facing error
// message, or "" on success.
func (h *Hub) handleSubscription(c *client, sub subscribeMsg) string {
	for _, ev := range sub.Events {
		if !knownEvents[ev] {
			return fmt.Sprintf("unknown event %q", ev)
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	switch sub.Action {
	case subscribeAction:
		for _, ev := range sub.Events {
			c.events[ev] = true
		}
	case unsubscribeAction:
		for _, ev := range sub.Events {
			delete(c.events, ev)
		}
	default:
		return fmt.Sprintf("unknown action %q", sub.Action)
	}
	slog.Debug("[DEBUG-WS] subscription updated", "action", sub.Action, "events", sub.Events)
	return ""
}

// subscribed reports whether c currently receives eventType.
func (h *Hub) subscribed(c *client, eventType string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return c.events[eventType]
}

func (h *Hub) sendError(c *client, message string) {
	frame, err := EncodeNotification(EventError, errorPayload{Message: message}, time.Now())
	if err != nil {
		slog.Debug("[DEBUG-WS] failed to encode error message", "error", err)
		return
	}
	h.write(c, websocket.TextMessage, frame)
}
