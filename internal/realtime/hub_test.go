package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kiranaconnect/kiranaconnect-backend/pkg/logger"
	"github.com/kiranaconnect/kiranaconnect-backend/pkg/metrics"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func readEnvelope(t *testing.T, conn *websocket.Conn) envelope {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return env
}

func TestBroadcastReachesEveryClientOnceWithRoom(t *testing.T) {
	hub := NewHub(HubOptions{})
	srv := httptest.NewServer(hub)
	defer srv.Close()

	userID := uuid.New()
	admin := dial(t, srv)
	buyer := dial(t, srv)
	anon := dial(t, srv)
	waitFor(t, func() bool { return hub.ClientCount() == 3 })

	if err := admin.WriteJSON(clientMessage{Type: msgJoinAdminRoom}); err != nil {
		t.Fatalf("join admin: %v", err)
	}
	if err := buyer.WriteJSON(clientMessage{Type: msgJoinUserRoom, UserID: userID.String()}); err != nil {
		t.Fatalf("join user: %v", err)
	}
	// Joins are processed asynchronously by the read pump.
	waitFor(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		joined := 0
		for c := range hub.clients {
			if c.roomFor([]string{AdminRoom, UserRoom(userID)}) != "" {
				joined++
			}
		}
		return joined == 2
	})

	evt, err := NewEvent(EventOrderCreated, map[string]string{"orderId": "o-1"}, AdminRoom, UserRoom(userID))
	if err != nil {
		t.Fatalf("new event: %v", err)
	}
	if err := hub.Broadcast(context.Background(), evt); err != nil {
		t.Fatalf("broadcast: %v", err)
	}

	if env := readEnvelope(t, admin); env.Event != EventOrderCreated || env.Room != AdminRoom {
		t.Fatalf("unexpected admin envelope %+v", env)
	}
	if env := readEnvelope(t, buyer); env.Room != UserRoom(userID) {
		t.Fatalf("unexpected buyer envelope %+v", env)
	}
	env := readEnvelope(t, anon)
	if env.Room != "" || !strings.Contains(string(env.Data), "o-1") {
		t.Fatalf("unexpected anonymous envelope %+v", env)
	}
}

func TestSlowClientIsDropped(t *testing.T) {
	hub := NewHub(HubOptions{SendBuffer: 1})
	c := newClient(hub, nil, 1)
	hub.register(c)

	evt, _ := NewEvent(EventOrderCreated, map[string]int{"n": 1})
	hub.deliver(evt)
	if hub.ClientCount() != 1 {
		t.Fatal("first event should fit in the buffer")
	}
	hub.deliver(evt)
	if hub.ClientCount() != 0 {
		t.Fatal("expected client dropped once its buffer is full")
	}
}

type fakeBridge struct {
	mu        sync.Mutex
	published [][]byte
	inbound   chan []byte
}

func (f *fakeBridge) Publish(_ context.Context, _ string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, payload)
	return nil
}

func (f *fakeBridge) Subscribe(context.Context, string) (<-chan []byte, error) {
	return f.inbound, nil
}

func TestBridgeRelaysForeignEventsOnly(t *testing.T) {
	bridge := &fakeBridge{inbound: make(chan []byte, 4)}
	hub := NewHub(HubOptions{InstanceID: "a", Channel: "kc:events", Bridge: bridge, SendBuffer: 4})
	c := newClient(hub, nil, 4)
	hub.register(c)

	evt, _ := NewEvent(EventOrderCreated, map[string]string{"orderId": "x"})
	if err := hub.Broadcast(context.Background(), evt); err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	if len(c.send) != 1 {
		t.Fatalf("expected local delivery, got %d", len(c.send))
	}
	bridge.mu.Lock()
	if len(bridge.published) != 1 {
		t.Fatalf("expected one published message, got %d", len(bridge.published))
	}
	own := bridge.published[0]
	bridge.mu.Unlock()

	foreign, _ := json.Marshal(bridgeMessage{Instance: "b", Event: evt})
	bridge.inbound <- own
	bridge.inbound <- foreign

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.Run(ctx) }()

	waitFor(t, func() bool { return len(c.send) == 2 })
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(c.send) != 2 {
		t.Fatalf("own echo must be suppressed, got %d frames", len(c.send))
	}
}

type downBridge struct{}

func (downBridge) Publish(context.Context, string, []byte) error {
	return errors.New("connection refused")
}

func (downBridge) Subscribe(context.Context, string) (<-chan []byte, error) {
	return nil, errors.New("connection refused")
}

func TestBridgeFailureKeepsLocalDelivery(t *testing.T) {
	reg := prometheus.NewRegistry()
	var buf bytes.Buffer
	hub := NewHub(HubOptions{
		InstanceID: "a",
		Channel:    "kc:events",
		Bridge:     downBridge{},
		SendBuffer: 4,
		Logger:     logger.New(logger.Options{ServiceName: "test", Output: &buf}),
		Metrics:    metrics.NewRealtimeMetrics(reg),
	})
	c := newClient(hub, nil, 4)
	hub.register(c)

	evt, _ := NewEvent(EventOrderCreated, map[string]string{"orderId": "x"})
	if err := hub.Broadcast(context.Background(), evt); err != nil {
		t.Fatalf("local delivery succeeded, broadcast should not fail: %v", err)
	}
	if len(c.send) != 1 {
		t.Fatalf("expected local delivery, got %d", len(c.send))
	}
	if !strings.Contains(buf.String(), "realtime.bridge_publish_failed") {
		t.Fatalf("expected bridge failure logged, got %s", buf.String())
	}
	expected := `
# HELP realtime_bridge_publish_failures_total Events delivered locally that could not be forwarded to other instances.
# TYPE realtime_bridge_publish_failures_total counter
realtime_bridge_publish_failures_total 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "realtime_bridge_publish_failures_total"); err != nil {
		t.Fatalf("unexpected bridge failure counter: %v", err)
	}
}
