package wsconn

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/KPR-V/stellar/internal/apperror"
)

// newStreamServer accepts WebSocket upgrades and hands each conn to handler.
func newStreamServer(t *testing.T, handler func(conn *websocket.Conn)) (*httptest.Server, string) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Logf("accept: %v", err)
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")
		if handler != nil {
			handler(conn)
		}
	}))
	return srv, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func testConfig(url string) Config {
	cfg := DefaultConfig(url, "test")
	cfg.PingInterval = 0
	return cfg
}

func drain(conn *websocket.Conn) {
	for {
		if _, _, err := conn.Read(context.Background()); err != nil {
			return
		}
	}
}

func mustConnect(t *testing.T, cfg Config) *Client {
	t.Helper()
	client, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	return client
}

func TestNew_RequiresURL(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error for empty url")
	}
}

func TestClient_Connect(t *testing.T) {
	srv, url := newStreamServer(t, drain)
	defer srv.Close()

	var mu sync.Mutex
	var states []State
	client, err := New(testConfig(url))
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()
	client.OnStateChange(func(s State, _ error) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	})

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if !client.IsConnected() {
		t.Fatalf("state = %s", client.State())
	}

	mu.Lock()
	defer mu.Unlock()
	if len(states) < 2 || states[0] != StateConnecting || states[1] != StateConnected {
		t.Fatalf("transitions = %v", states)
	}
}

func TestClient_ConnectFailureLeavesDisconnected(t *testing.T) {
	client, err := New(testConfig("ws://127.0.0.1:1"))
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err = client.Connect(ctx)
	if !apperror.HasCode(err, apperror.CodeWebSocketConnectionError) {
		t.Fatalf("err = %v", err)
	}
	if client.State() != StateDisconnected {
		t.Fatalf("state = %s", client.State())
	}
}

func TestClient_ConnectWithRetryGivesUp(t *testing.T) {
	cfg := testConfig("ws://127.0.0.1:1")
	cfg.InitialBackoff = time.Millisecond
	cfg.MaxReconnects = 3
	client, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	if err := client.ConnectWithRetry(context.Background()); err == nil {
		t.Fatal("expected failure after max attempts")
	}
}

func TestClient_SendJSONAndEcho(t *testing.T) {
	srv, url := newStreamServer(t, func(conn *websocket.Conn) {
		ctx := context.Background()
		for {
			typ, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			if err := conn.Write(ctx, typ, data); err != nil {
				return
			}
		}
	})
	defer srv.Close()

	client, err := New(testConfig(url))
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	got := make(chan []byte, 1)
	client.OnMessage(func(_ context.Context, msg []byte) {
		select {
		case got <- msg:
		default:
		}
	})
	if err := client.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}

	sub := map[string]any{"method": "SUBSCRIBE", "params": []string{"!miniTicker@arr"}, "id": 1}
	if err := client.SendJSON(context.Background(), sub); err != nil {
		t.Fatalf("SendJSON: %v", err)
	}

	select {
	case msg := <-got:
		var parsed map[string]any
		if err := json.Unmarshal(msg, &parsed); err != nil {
			t.Fatalf("echo not json: %v", err)
		}
		if parsed["method"] != "SUBSCRIBE" {
			t.Fatalf("method = %v", parsed["method"])
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for echo")
	}
}

func TestClient_ConcurrentSend(t *testing.T) {
	var count atomic.Int32
	srv, url := newStreamServer(t, func(conn *websocket.Conn) {
		for {
			if _, _, err := conn.Read(context.Background()); err != nil {
				return
			}
			count.Add(1)
		}
	})
	defer srv.Close()

	client := mustConnect(t, testConfig(url))

	const workers, each = 8, 5
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < each; j++ {
				if err := client.SendJSON(context.Background(), map[string]int{"w": id, "n": j}); err != nil {
					t.Errorf("SendJSON: %v", err)
					return
				}
			}
		}(i)
	}
	wg.Wait()

	deadline := time.Now().Add(2 * time.Second)
	for count.Load() < workers*each && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := count.Load(); got != workers*each {
		t.Fatalf("server received %d messages", got)
	}
}

func TestClient_CloseIsIdempotent(t *testing.T) {
	srv, url := newStreamServer(t, drain)
	defer srv.Close()

	client := mustConnect(t, testConfig(url))

	if err := client.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if client.State() != StateClosed {
		t.Fatalf("state = %s", client.State())
	}
	if err := client.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if err := client.Send(context.Background(), []byte("x")); !apperror.HasCode(err, apperror.CodeWebSocketClosed) {
		t.Fatalf("Send after close: %v", err)
	}
}

func TestClient_OversizedMessageDisconnects(t *testing.T) {
	srv, url := newStreamServer(t, func(conn *websocket.Conn) {
		conn.Write(context.Background(), websocket.MessageText, []byte(strings.Repeat("A", 4096)))
		time.Sleep(200 * time.Millisecond)
	})
	defer srv.Close()

	cfg := testConfig(url)
	cfg.MaxMessageSize = 100
	client := mustConnect(t, cfg)

	time.Sleep(100 * time.Millisecond)
	if client.State() == StateConnected {
		t.Fatal("expected disconnect after oversized frame")
	}
}

func TestClient_ReconnectsAfterDrop(t *testing.T) {
	var accepted atomic.Int32
	srv, url := newStreamServer(t, func(conn *websocket.Conn) {
		if accepted.Add(1) == 1 {
			return // drop the first connection right away
		}
		drain(conn)
	})
	defer srv.Close()

	cfg := testConfig(url)
	cfg.InitialBackoff = 10 * time.Millisecond
	client := mustConnect(t, cfg)

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if accepted.Load() >= 2 && client.IsConnected() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("did not reconnect: accepted=%d state=%s", accepted.Load(), client.State())
}
