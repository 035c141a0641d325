package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kiranaconnect/kiranaconnect-backend/pkg/logger"
	"github.com/kiranaconnect/kiranaconnect-backend/pkg/metrics"
)

const (
	defaultSendBuffer   = 32
	defaultPingInterval = 30 * time.Second
)

// Bridge carries events between API instances; *redis.Client satisfies it.
type Bridge interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// HubOptions configures a Hub. Bridge may be nil for single-instance runs.
type HubOptions struct {
	InstanceID   string
	Channel      string
	SendBuffer   int
	PingInterval time.Duration
	Bridge       Bridge
	Logger       *logger.Logger
	Metrics      *metrics.RealtimeMetrics
}

// Hub tracks connected sockets and fans events out to them.
type Hub struct {
	mu           sync.RWMutex
	clients      map[*client]struct{}
	instanceID   string
	channel      string
	sendBuffer   int
	pingInterval time.Duration
	bridge       Bridge
	logg         *logger.Logger
	metrics      *metrics.RealtimeMetrics
	upgrader     websocket.Upgrader
}

// bridgeMessage is the pubsub payload; Instance suppresses our own echoes.
type bridgeMessage struct {
	Instance string `json:"instance"`
	Event    Event  `json:"event"`
}

func NewHub(opts HubOptions) *Hub {
	buffer := opts.SendBuffer
	if buffer <= 0 {
		buffer = defaultSendBuffer
	}
	ping := opts.PingInterval
	if ping <= 0 {
		ping = defaultPingInterval
	}
	return &Hub{
		clients:      make(map[*client]struct{}),
		instanceID:   opts.InstanceID,
		channel:      opts.Channel,
		sendBuffer:   buffer,
		pingInterval: ping,
		bridge:       opts.Bridge,
		logg:         opts.Logger,
		metrics:      opts.Metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The socket is unauthenticated and only pushes public order events.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// ClientCount reports the number of live sockets.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and starts the client pumps.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		if h.logg != nil {
			h.logg.Warn(h.logg.WithField(r.Context(), "error", err.Error()), "realtime.upgrade_failed")
		}
		return
	}
	c := newClient(h, conn, h.sendBuffer)
	h.register(c)

	// The request context ends when ServeHTTP returns, so the pumps get their own.
	ctx := context.WithoutCancel(r.Context())
	go c.writePump(h.pingInterval)
	go c.readPump(ctx, h.pingInterval*2)
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.metrics.Connected()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok {
		h.metrics.Disconnected()
	}
	c.close()
}

// Broadcast delivers locally and forwards to other instances when bridged.
// A failed forward is logged and counted; local sockets already have the event.
func (h *Hub) Broadcast(ctx context.Context, evt Event) error {
	h.deliver(evt)
	if h.bridge == nil || h.channel == "" {
		return nil
	}
	payload, err := json.Marshal(bridgeMessage{Instance: h.instanceID, Event: evt})
	if err != nil {
		h.bridgeFailed(ctx, evt, fmt.Errorf("encode bridge message: %w", err))
		return nil
	}
	if err := h.bridge.Publish(ctx, h.channel, payload); err != nil {
		h.bridgeFailed(ctx, evt, err)
	}
	return nil
}

func (h *Hub) bridgeFailed(ctx context.Context, evt Event, err error) {
	h.metrics.BridgeFailed()
	if h.logg == nil {
		return
	}
	h.logg.Warn(h.logg.WithFields(ctx, map[string]any{
		"event": evt.Name,
		"error": err.Error(),
	}), "realtime.bridge_publish_failed")
}

// deliver writes evt once to every client, labelled with the client's room.
func (h *Hub) deliver(evt Event) {
	frames := make(map[string][]byte, len(evt.Rooms)+1)
	var slow []*client

	h.mu.RLock()
	for c := range h.clients {
		room := c.roomFor(evt.Rooms)
		frame, ok := frames[room]
		if !ok {
			var err error
			frame, err = json.Marshal(envelope{Event: evt.Name, Room: room, Data: evt.Data})
			if err != nil {
				continue
			}
			frames[room] = frame
		}
		if !c.enqueue(frame) {
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		if h.logg != nil {
			h.logg.Warn(context.Background(), "realtime.client_dropped")
		}
		h.unregister(c)
	}
}

// Run relays bridged events until ctx ends. Without a bridge it returns at once.
func (h *Hub) Run(ctx context.Context) error {
	if h.bridge == nil || h.channel == "" {
		return nil
	}
	messages, err := h.bridge.Subscribe(ctx, h.channel)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", h.channel, err)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case payload, ok := <-messages:
			if !ok {
				return nil
			}
			h.relay(ctx, payload)
		}
	}
}

func (h *Hub) relay(ctx context.Context, payload []byte) {
	var msg bridgeMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		if h.logg != nil {
			h.logg.Warn(h.logg.WithField(ctx, "error", err.Error()), "realtime.bridge_decode_failed")
		}
		return
	}
	if msg.Instance == h.instanceID {
		return
	}
	h.deliver(msg.Event)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	for _, c := range clients {
		h.unregister(c)
	}
}
