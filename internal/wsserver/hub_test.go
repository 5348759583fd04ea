package wsserver

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"beatbind/internal/testutil"
)

const testListenAddr = "127.0.0.1:0"

func startHub(t *testing.T, opts HubOptions) *Hub {
	t.Helper()
	if opts.Addr == "" {
		opts.Addr = testListenAddr
	}
	hub := NewHub(opts)
	if err := hub.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { _ = hub.Stop() })
	return hub
}

func dialHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(hub.URL(), nil)
	if err != nil {
		t.Fatalf("failed to dial hub: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	testutil.WaitFor(t, 2*time.Second, "hub client count", func() bool {
		return hub.ClientCount() == n
	})
}

func readNotification(t *testing.T, conn *websocket.Conn) Notification {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("SetReadDeadline: %v", err)
	}
	msgType, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	if msgType != websocket.TextMessage {
		t.Fatalf("message type = %d, want text", msgType)
	}
	n, err := DecodeNotification(data)
	if err != nil {
		t.Fatalf("DecodeNotification() error = %v", err)
	}
	return n
}

func sendSubscription(t *testing.T, conn *websocket.Conn, action string, events ...string) {
	t.Helper()
	data, err := json.Marshal(subscribeMsg{Action: action, Events: events})
	if err != nil {
		t.Fatalf("marshal subscription: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("write subscription: %v", err)
	}
}

func onlyClient(t *testing.T, hub *Hub) *client {
	t.Helper()
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	for c := range hub.clients {
		return c
	}
	t.Fatal("hub has no clients")
	return nil
}

func TestStartAndStop(t *testing.T) {
	hub := NewHub(HubOptions{Addr: testListenAddr})
	if hub.URL() != "" {
		t.Fatalf("URL() before Start = %q, want empty", hub.URL())
	}
	if err := hub.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if hub.URL() == "" {
		t.Fatal("URL() after Start is empty")
	}
	if err := hub.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := hub.Stop(); err != nil {
		t.Fatalf("second Stop() error = %v", err)
	}
	if err := hub.Start(context.Background()); !errors.Is(err, ErrHubStopped) {
		t.Fatalf("Start() after Stop = %v, want ErrHubStopped", err)
	}
}

func TestStartDoubleCallReturnsError(t *testing.T) {
	hub := startHub(t, HubOptions{})
	if err := hub.Start(context.Background()); err == nil {
		t.Fatal("second Start() expected error")
	}
}

func TestStartPortConflict(t *testing.T) {
	ln, err := net.Listen("tcp", testListenAddr)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	hub := NewHub(HubOptions{Addr: ln.Addr().String()})
	if err := hub.Start(context.Background()); err == nil {
		_ = hub.Stop()
		t.Fatal("Start() on busy port expected error")
	}
}

func TestNewHubDefaults(t *testing.T) {
	hub := NewHub(HubOptions{})
	if hub.opts.Addr != "127.0.0.1:0" || hub.opts.MaxClients != defaultMaxClients || hub.opts.PingInterval != pingInterval {
		t.Fatalf("NewHub defaults = %+v", hub.opts)
	}
}

func TestBroadcastReachesEveryClient(t *testing.T) {
	hub := startHub(t, HubOptions{})
	a := dialHub(t, hub)
	b := dialHub(t, hub)
	waitForClients(t, hub, 2)

	n, err := hub.Broadcast(EventHotkeyTriggered, TriggeredPayload{HotkeyID: 1, Action: "play_pause"})
	if err != nil {
		t.Fatalf("Broadcast() error = %v", err)
	}
	if n != 2 {
		t.Fatalf("Broadcast() delivered = %d, want 2", n)
	}
	for _, conn := range []*websocket.Conn{a, b} {
		got := readNotification(t, conn)
		if got.Type != EventHotkeyTriggered {
			t.Fatalf("Type = %q", got.Type)
		}
		var p TriggeredPayload
		if err := json.Unmarshal(got.Payload, &p); err != nil {
			t.Fatalf("payload: %v", err)
		}
		if p.HotkeyID != 1 || p.Action != "play_pause" {
			t.Fatalf("payload = %+v", p)
		}
	}
}

func TestBroadcastWithoutClients(t *testing.T) {
	hub := startHub(t, HubOptions{})
	n, err := hub.Broadcast(EventEngineState, EngineStatePayload{State: "running"})
	if err != nil || n != 0 {
		t.Fatalf("Broadcast() = %d, %v; want 0, nil", n, err)
	}
}

func TestUnsubscribeFiltersEvents(t *testing.T) {
	hub := startHub(t, HubOptions{})
	conn := dialHub(t, hub)
	waitForClients(t, hub, 1)
	c := onlyClient(t, hub)

	sendSubscription(t, conn, unsubscribeAction, EventEngineState)
	testutil.WaitFor(t, 2*time.Second, "unsubscribe applied", func() bool {
		return !hub.subscribed(c, EventEngineState)
	})

	if n, _ := hub.Broadcast(EventEngineState, EngineStatePayload{State: "paused"}); n != 0 {
		t.Fatalf("unsubscribed event delivered to %d clients", n)
	}
	if n, _ := hub.Broadcast(EventHotkeyTriggered, TriggeredPayload{HotkeyID: 2}); n != 1 {
		t.Fatalf("subscribed event delivered to %d clients, want 1", n)
	}
	if got := readNotification(t, conn); got.Type != EventHotkeyTriggered {
		t.Fatalf("Type = %q, want %q", got.Type, EventHotkeyTriggered)
	}

	sendSubscription(t, conn, subscribeAction, EventEngineState)
	testutil.WaitFor(t, 2*time.Second, "resubscribe applied", func() bool {
		return hub.subscribed(c, EventEngineState)
	})
}

func TestInvalidClientMessages(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{name: "invalid json", payload: "{not json"},
		{name: "unknown action", payload: `{"action":"explode","events":["engine-state"]}`},
		{name: "unknown event", payload: `{"action":"subscribe","events":["weather"]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hub := startHub(t, HubOptions{})
			conn := dialHub(t, hub)
			waitForClients(t, hub, 1)

			if err := conn.WriteMessage(websocket.TextMessage, []byte(tt.payload)); err != nil {
				t.Fatalf("write: %v", err)
			}
			got := readNotification(t, conn)
			if got.Type != EventError {
				t.Fatalf("Type = %q, want %q", got.Type, EventError)
			}
			if hub.ClientCount() != 1 {
				t.Fatal("client dropped after invalid message")
			}
		})
	}
}

func TestMaxClientsRefusesExtraConnections(t *testing.T) {
	hub := startHub(t, HubOptions{MaxClients: 1})
	dialHub(t, hub)
	waitForClients(t, hub, 1)

	_, resp, err := websocket.DefaultDialer.Dial(hub.URL(), nil)
	if err == nil {
		t.Fatal("second Dial() expected error")
	}
	if resp == nil || resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("second Dial() response = %v, want 503", resp)
	}
}

func TestClientDisconnectRemovesClient(t *testing.T) {
	hub := startHub(t, HubOptions{})
	conn := dialHub(t, hub)
	waitForClients(t, hub, 1)

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
	_ = conn.Close()
	waitForClients(t, hub, 0)
}

func TestStopDisconnectsClients(t *testing.T) {
	hub := NewHub(HubOptions{Addr: testListenAddr})
	if err := hub.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	conn := dialHub(t, hub)
	waitForClients(t, hub, 1)

	if err := hub.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if hub.ClientCount() != 0 {
		t.Fatalf("ClientCount() after Stop = %d", hub.ClientCount())
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("ReadMessage() after Stop expected error")
	}
}

func TestPingLoopKeepsConnectionAlive(t *testing.T) {
	hub := startHub(t, HubOptions{PingInterval: 20 * time.Millisecond})
	conn := dialHub(t, hub)
	waitForClients(t, hub, 1)

	pings := make(chan struct{}, 8)
	conn.SetPingHandler(func(string) error {
		select {
		case pings <- struct{}{}:
		default:
		}
		return nil
	})
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	select {
	case <-pings:
	case <-time.After(2 * time.Second):
		t.Fatal("no ping received")
	}
	if hub.ClientCount() != 1 {
		t.Fatal("client dropped while pinging")
	}
}
