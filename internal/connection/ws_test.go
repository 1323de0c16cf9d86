package connection

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Divyesh-Thirukonda/quantshit/internal/protocol"
)

// wsEcho upgrades and echoes every received frame back, prefixed.
func wsEcho(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			conn.WriteMessage(mt, append([]byte("echo:"), data...))
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWSConn_ConnectSendReceive(t *testing.T) {
	srv := wsEcho(t)
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.Endpoint = wsURL(srv)
	cfg.RecvTimeout = 0
	cfg.AutoReconnect = false

	conn := NewWSConn(cfg, protocol.KalshiWs, nil)

	var mu sync.Mutex
	var packets []*protocol.RawPacket
	conn.SetDataCallback(func(p *protocol.RawPacket) {
		mu.Lock()
		packets = append(packets, p)
		mu.Unlock()
	})

	var states []State
	conn.SetStateCallback(func(s State) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	})

	if !conn.Connect() {
		t.Fatal("Connect() = false")
	}
	defer conn.Disconnect()

	if conn.State() != Connected {
		t.Fatalf("State() = %v, want Connected", conn.State())
	}
	if !conn.Send([]byte("ping")) {
		t.Fatal("Send() = false on connected conn")
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := len(packets)
		mu.Unlock()
		if n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("no packet delivered")
		}
		time.Sleep(time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()

	got := packets[0]
	if got.Protocol != protocol.KalshiWs {
		t.Errorf("packet protocol = %v, want KalshiWs", got.Protocol)
	}
	if string(got.Data) != "echo:ping" {
		t.Errorf("packet data = %q, want \"echo:ping\"", got.Data)
	}
	if got.RecvTimestampNS <= 0 {
		t.Errorf("RecvTimestampNS = %d, want > 0", got.RecvTimestampNS)
	}

	sawConnected := false
	for _, s := range states {
		if s == Connected {
			sawConnected = true
		}
	}
	if !sawConnected {
		t.Error("state callback never saw Connected")
	}
}

func TestWSConn_SendWhenDisconnected(t *testing.T) {
	conn := NewWSConn(DefaultConfig(), protocol.PolymarketWs, nil)
	if conn.Send([]byte("x")) {
		t.Error("Send() = true on disconnected conn")
	}
}

func TestWSConn_ConnectFailure(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Endpoint = "ws://127.0.0.1:1/nothing"
	cfg.ConnectTimeout = 200 * time.Millisecond

	conn := NewWSConn(cfg, protocol.KalshiWs, nil)

	var mu sync.Mutex
	gotErr := false
	conn.SetErrorCallback(func(code int, msg string) {
		mu.Lock()
		gotErr = true
		mu.Unlock()
	})

	if conn.Connect() {
		t.Fatal("Connect() = true against closed port")
	}
	if conn.State() != Error {
		t.Errorf("State() = %v, want Error", conn.State())
	}

	mu.Lock()
	defer mu.Unlock()
	if !gotErr {
		t.Error("error callback not invoked")
	}
}

func TestWSConn_DisconnectIdempotent(t *testing.T) {
	srv := wsEcho(t)
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.Endpoint = wsURL(srv)
	cfg.RecvTimeout = 0
	cfg.AutoReconnect = false

	conn := NewWSConn(cfg, protocol.KalshiWs, nil)
	if !conn.Connect() {
		t.Fatal("Connect() = false")
	}
	conn.Disconnect()
	conn.Disconnect() // second call is a no-op

	if conn.State() != Disconnected {
		t.Errorf("State() = %v, want Disconnected", conn.State())
	}
}
