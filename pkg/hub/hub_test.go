package hub

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	gorilla "github.com/gorilla/websocket"
	"github.com/teslashibe/go-mattersim/pkg/protocol"
)

// startServer serves h at /ws on a loopback port and returns the URL.
func startServer(t *testing.T, h *Hub) string {
	t.Helper()
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(func(c *websocket.Conn) {
		client, err := NewClient(h, c)
		if err != nil {
			return
		}
		client.Run()
	}))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	go app.Listener(ln)
	t.Cleanup(func() { app.Shutdown() })
	return "ws://" + ln.Addr().String() + "/ws"
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestNew(t *testing.T) {
	h := New("session")
	if h.ClientCount() != 0 {
		t.Error("ClientCount should be 0 initially")
	}
	if h.IsRunning() {
		t.Error("hub should not run before Run")
	}
}

func TestBroadcastToClients(t *testing.T) {
	h := New("broadcast")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	url := startServer(t, h)

	var conns []*gorilla.Conn
	for i := 0; i < 2; i++ {
		ws, _, err := gorilla.DefaultDialer.Dial(url, nil)
		if err != nil {
			t.Fatalf("dial: %v", err)
		}
		defer ws.Close()
		conns = append(conns, ws)
	}
	waitFor(t, "two clients", func() bool { return h.ClientCount() == 2 })

	msg, err := protocol.NewStateMessage(protocol.StateData{ScanID: "scan", Step: 2})
	if err != nil {
		t.Fatal(err)
	}
	if err := h.BroadcastProtocol(msg); err != nil {
		t.Fatal(err)
	}
	h.BroadcastBinary([]byte{0xFF, 0xD8})

	for i, ws := range conns {
		ws.SetReadDeadline(time.Now().Add(2 * time.Second))

		kind, data, err := ws.ReadMessage()
		if err != nil {
			t.Fatalf("client %d read: %v", i, err)
		}
		if kind != gorilla.TextMessage {
			t.Errorf("client %d: first message kind %d, want text", i, kind)
		}
		parsed, err := protocol.ParseMessage(data)
		if err != nil {
			t.Fatal(err)
		}
		state, err := parsed.GetStateData()
		if err != nil {
			t.Fatal(err)
		}
		if state.Step != 2 {
			t.Errorf("client %d: step %d", i, state.Step)
		}

		kind, data, err = ws.ReadMessage()
		if err != nil {
			t.Fatalf("client %d read: %v", i, err)
		}
		if kind != gorilla.BinaryMessage || len(data) != 2 {
			t.Errorf("client %d: got kind %d len %d, want binary frame", i, kind, len(data))
		}
	}
}

func TestClientDisconnect(t *testing.T) {
	h := New("disconnect")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	url := startServer(t, h)
	ws, _, err := gorilla.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	waitFor(t, "client", func() bool { return h.ClientCount() == 1 })

	ws.Close()
	waitFor(t, "disconnect", func() bool { return h.ClientCount() == 0 })
}

func TestRunStopsOnCancel(t *testing.T) {
	h := New("stop")
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)

	url := startServer(t, h)
	ws, _, err := gorilla.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ws.Close()
	waitFor(t, "client", func() bool { return h.ClientCount() == 1 })

	cancel()
	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop")
	}
	if h.IsRunning() || h.ClientCount() != 0 {
		t.Errorf("after stop: running=%v clients=%d", h.IsRunning(), h.ClientCount())
	}

	// The server closes the socket
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := ws.ReadMessage(); err == nil {
		t.Error("expected connection to close")
	}

	// Late clients are refused
	if _, err := NewClient(h, nil); err != ErrStopped {
		t.Errorf("NewClient after stop: got %v, want ErrStopped", err)
	}
}

func TestBroadcastWhenFull(t *testing.T) {
	h := New("full")
	// Not running, so the buffer fills up
	for i := 0; i < cap(h.broadcast)+3; i++ {
		h.BroadcastBinary([]byte{1})
	}
	if h.Dropped() != 3 {
		t.Errorf("Dropped = %d, want 3", h.Dropped())
	}
}
