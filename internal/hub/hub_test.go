package hub

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// pairTestWS creates a test HTTP server that upgrades to WebSocket and
// returns both ends of the connection. The caller must close the server.
func pairTestWS(t *testing.T) (*httptest.Server, *websocket.Conn, *websocket.Conn) {
	t.Helper()

	connCh := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		connCh <- c
	}))

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	clientConn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		srv.Close()
		t.Fatalf("dial: %v", err)
	}

	select {
	case serverConn := <-connCh:
		return srv, serverConn, clientConn
	case <-time.After(2 * time.Second):
		srv.Close()
		t.Fatal("timed out waiting for server-side WebSocket connection")
		return nil, nil, nil
	}
}

// readEnvelope reads one message from the client side within the deadline.
func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("unmarshal %q: %v", raw, err)
	}
	return env
}

// expectNoMessage asserts that nothing arrives on conn within the window.
func expectNoMessage(t *testing.T, conn *websocket.Conn, window time.Duration) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(window))
	if _, raw, err := conn.ReadMessage(); err == nil {
		t.Fatalf("unexpected message: %s", raw)
	}
}

func TestRegistry_UniqueIDs(t *testing.T) {
	reg := NewRegistry()
	seen := make(map[string]bool)

	for i := 0; i < 20; i++ {
		srv, serverConn, _ := pairTestWS(t)
		defer srv.Close()

		s := reg.Register(serverConn, fmt.Sprintf("10.0.0.%d:5000", i))
		if seen[s.ID] {
			t.Fatalf("duplicate session id %s", s.ID)
		}
		seen[s.ID] = true
	}

	if got := reg.Len(); got != 20 {
		t.Fatalf("expected 20 sessions, got %d", got)
	}
	connections, _ := reg.Counts()
	if connections != 20 {
		t.Fatalf("quantityConnection should equal registered count, got %d", connections)
	}
}

func TestRegistry_UnregisterIdempotent(t *testing.T) {
	reg := NewRegistry()
	srv, serverConn, _ := pairTestWS(t)
	defer srv.Close()

	s := reg.Register(serverConn, "10.0.0.1:5000")
	reg.Unregister(s.ID)
	reg.Unregister(s.ID) // absent id is a no-op
	reg.Unregister("never-existed")

	if got := reg.Len(); got != 0 {
		t.Fatalf("expected empty registry, got %d", got)
	}
	if _, ok := reg.Get(s.ID); ok {
		t.Fatal("unregistered session still reachable")
	}
}

func TestRegistry_CountsDistinctHosts(t *testing.T) {
	reg := NewRegistry()
	addrs := []string{"1.2.3.4:100", "1.2.3.4:101", "5.6.7.8:99"}
	for _, addr := range addrs {
		srv, serverConn, _ := pairTestWS(t)
		defer srv.Close()
		reg.Register(serverConn, addr)
	}

	connections, online := reg.Counts()
	if connections != 3 {
		t.Errorf("expected 3 connections, got %d", connections)
	}
	if online != 2 {
		t.Errorf("expected 2 distinct hosts, got %d", online)
	}
}

func TestBroadcast_TagsRecipientID(t *testing.T) {
	reg := NewRegistry()
	h := NewHub(reg, false)

	srv1, serverConn1, clientConn1 := pairTestWS(t)
	defer srv1.Close()
	srv2, serverConn2, clientConn2 := pairTestWS(t)
	defer srv2.Close()

	s1 := reg.Register(serverConn1, "1.1.1.1:1")
	s2 := reg.Register(serverConn2, "2.2.2.2:2")

	h.Broadcast(map[string]string{"event": "everyone"})

	env1 := readEnvelope(t, clientConn1)
	env2 := readEnvelope(t, clientConn2)
	if env1.ID != s1.ID {
		t.Errorf("recipient 1 tagged with %s, want its own id %s", env1.ID, s1.ID)
	}
	if env2.ID != s2.ID {
		t.Errorf("recipient 2 tagged with %s, want its own id %s", env2.ID, s2.ID)
	}
}

func TestBroadcast_IsolatesDeadRecipients(t *testing.T) {
	reg := NewRegistry()
	h := NewHub(reg, false)

	srvDead, serverConnDead, _ := pairTestWS(t)
	defer srvDead.Close()
	srvLive, serverConnLive, clientConnLive := pairTestWS(t)
	defer srvLive.Close()

	dead := reg.Register(serverConnDead, "1.1.1.1:1")
	dead.close() // transport no longer writable, still registered
	reg.Register(serverConnLive, "2.2.2.2:2")

	h.Broadcast(map[string]string{"event": "everyone"})

	if env := readEnvelope(t, clientConnLive); env.Data == nil {
		t.Fatal("live recipient should still get the broadcast")
	}
}

func TestBroadcast_NoWritableSessions(t *testing.T) {
	reg := NewRegistry()
	h := NewHub(reg, false)

	// Zero sessions: must not panic or error.
	h.Broadcast(map[string]string{"event": "everyone"})

	srv, serverConn, _ := pairTestWS(t)
	defer srv.Close()
	s := reg.Register(serverConn, "1.1.1.1:1")
	s.close()

	// One session, none writable: still a no-op.
	h.Broadcast(map[string]string{"event": "everyone"})
}

func TestSendTo_UnknownSessionDropped(t *testing.T) {
	reg := NewRegistry()
	h := NewHub(reg, false)
	h.SendTo("no-such-session", map[string]string{"event": "pong"})
}

func TestDispatch_ToEchoesOnlyToSender(t *testing.T) {
	reg := NewRegistry()
	h := NewHub(reg, false)

	srv1, serverConn1, clientConn1 := pairTestWS(t)
	defer srv1.Close()
	srv2, serverConn2, clientConn2 := pairTestWS(t)
	defer srv2.Close()

	s1 := reg.Register(serverConn1, "1.1.1.1:1")
	reg.Register(serverConn2, "2.2.2.2:2")

	raw := fmt.Sprintf(`{"id":%q,"command":"to","data":{"foo":1}}`, s1.ID)
	h.dispatch([]byte(raw))

	env := readEnvelope(t, clientConn1)
	if env.ID != s1.ID {
		t.Errorf("reply tagged %s, want %s", env.ID, s1.ID)
	}
	data, ok := env.Data.(map[string]any)
	if !ok {
		t.Fatalf("unexpected data shape %T", env.Data)
	}
	if data["event"] != "to" {
		t.Errorf("event = %v, want to", data["event"])
	}
	inner, ok := data["data"].(map[string]any)
	if !ok || inner["foo"] != float64(1) {
		t.Errorf("payload not echoed: %v", data["data"])
	}

	expectNoMessage(t, clientConn2, 200*time.Millisecond)
}

func TestDispatch_PingEchoesTime(t *testing.T) {
	reg := NewRegistry()
	h := NewHub(reg, false)

	srv, serverConn, clientConn := pairTestWS(t)
	defer srv.Close()
	s := reg.Register(serverConn, "1.1.1.1:1")

	h.dispatch([]byte(fmt.Sprintf(`{"id":%q,"command":"ping","time":12345}`, s.ID)))

	env := readEnvelope(t, clientConn)
	data := env.Data.(map[string]any)
	if data["event"] != "pong" {
		t.Errorf("event = %v, want pong", data["event"])
	}
	if data["time"] != float64(12345) {
		t.Errorf("time = %v, want 12345", data["time"])
	}
}

func TestDispatch_StatsRepliesWithMemory(t *testing.T) {
	reg := NewRegistry()
	h := NewHub(reg, false)

	srv, serverConn, clientConn := pairTestWS(t)
	defer srv.Close()
	s := reg.Register(serverConn, "1.1.1.1:1")

	h.dispatch([]byte(fmt.Sprintf(`{"id":%q,"command":"stats"}`, s.ID)))

	env := readEnvelope(t, clientConn)
	data := env.Data.(map[string]any)
	if data["event"] != "stats" {
		t.Errorf("event = %v, want stats", data["event"])
	}
	mem, ok := data["mem"].(map[string]any)
	if !ok || mem["heapAlloc"] == nil {
		t.Errorf("mem payload missing: %v", data["mem"])
	}
}

func TestDispatch_DropsGarbage(t *testing.T) {
	reg := NewRegistry()
	h := NewHub(reg, false)

	srv, serverConn, clientConn := pairTestWS(t)
	defer srv.Close()
	s := reg.Register(serverConn, "1.1.1.1:1")

	h.dispatch([]byte(`{not json`))
	h.dispatch([]byte(`{"id":"unknown","command":"ping"}`))
	h.dispatch([]byte(fmt.Sprintf(`{"id":%q,"command":"self-destruct"}`, s.ID)))

	expectNoMessage(t, clientConn, 200*time.Millisecond)
}

func TestHeartbeat_EvictsStalePeers(t *testing.T) {
	reg := NewRegistry()
	h := NewHub(reg, false)
	hb := NewHeartbeat(h, 15*time.Second, 30*time.Second)

	srvStale, serverConnStale, _ := pairTestWS(t)
	defer srvStale.Close()
	srvFresh, serverConnFresh, _ := pairTestWS(t)
	defer srvFresh.Close()

	stale := reg.Register(serverConnStale, "1.1.1.1:1")
	fresh := reg.Register(serverConnFresh, "2.2.2.2:2")

	stale.markPong(nowMilli() - 31_000)

	hb.sweep()

	if _, ok := reg.Get(stale.ID); ok {
		t.Error("stale session should have been evicted")
	}
	if _, ok := reg.Get(fresh.ID); !ok {
		t.Error("fresh session should have survived the sweep")
	}

	evictedSeen := false
	reg.ForEach(func(s *Session) {
		if s.ID == stale.ID {
			evictedSeen = true
		}
	})
	if evictedSeen {
		t.Error("evicted session still visible to ForEach")
	}
}

func TestSession_PongUpdatesLiveness(t *testing.T) {
	reg := NewRegistry()
	h := NewHub(reg, false)

	srv, serverConn, _ := pairTestWS(t)
	defer srv.Close()
	s := reg.Register(serverConn, "1.1.1.1:1")

	s.markPong(nowMilli() - 60_000)
	before := s.lastPong()

	h.handlePong(s.ID)
	if s.lastPong() <= before {
		t.Error("pong should refresh lastPongReceivedAt")
	}
}
