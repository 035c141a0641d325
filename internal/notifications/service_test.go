package notifications

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/shopspring/decimal"

	"github.com/kiranaconnect/kiranaconnect-backend/internal/realtime"
	"github.com/kiranaconnect/kiranaconnect-backend/internal/storage"
	"github.com/kiranaconnect/kiranaconnect-backend/pkg/enums"
	"github.com/kiranaconnect/kiranaconnect-backend/pkg/metrics"
)

type stubBroadcaster struct {
	events []realtime.Event
	err    error
}

func (s *stubBroadcaster) Broadcast(_ context.Context, evt realtime.Event) error {
	s.events = append(s.events, evt)
	return s.err
}

type sentMessage struct {
	to   string
	body string
}

type stubSender struct {
	mu      sync.Mutex
	enabled bool
	err     error
	sent    []sentMessage
}

func (s *stubSender) Enabled() bool { return s.enabled }

func (s *stubSender) Send(_ context.Context, to, body string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.sent = append(s.sent, sentMessage{to: to, body: body})
	return "SM123", nil
}

type stubInventory map[uuid.UUID]storage.Inventory

func (s stubInventory) GetInventory(_ context.Context, id uuid.UUID) (*storage.Inventory, error) {
	inv, ok := s[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &inv, nil
}

func testOrder() *storage.Order {
	productID := uuid.New()
	return &storage.Order{
		ID:          uuid.New(),
		UserID:      uuid.New(),
		UserType:    enums.UserRoleVendor,
		TotalAmount: decimal.RequireFromString("191.00"),
		Status:      enums.OrderStatusPending,
		Items: []storage.OrderItem{{
			ProductID:   productID,
			ProductName: "Basmati Rice",
			Label:       "1kg",
			Quantity:    2,
			UnitPrice:   decimal.RequireFromString("95.50"),
		}},
	}
}

func strPtr(v string) *string { return &v }

func TestOrderPlacedFansOut(t *testing.T) {
	order := testOrder()
	reg := prometheus.NewRegistry()
	m := metrics.NewNotificationMetrics(reg)
	hub := &stubBroadcaster{}
	sender := &stubSender{enabled: true}
	svc := NewService(ServiceParams{
		Broadcaster: hub,
		WhatsApp:    sender,
		Inventory: stubInventory{order.Items[0].ProductID: {
			ProductID: order.Items[0].ProductID, AvailableQuantity: 4, MinStockLevel: 10,
		}},
		AlertNumber: "+919900000000",
		Metrics:     m,
	})

	buyer := &storage.User{ID: order.UserID, Phone: strPtr("+919811111111")}
	if err := svc.OrderPlaced(context.Background(), order, buyer); err != nil {
		t.Fatalf("order placed: %v", err)
	}

	if len(hub.events) != 1 {
		t.Fatalf("expected one broadcast, got %d", len(hub.events))
	}
	evt := hub.events[0]
	if evt.Name != realtime.EventOrderCreated || len(evt.Rooms) != 2 || evt.Rooms[0] != realtime.AdminRoom {
		t.Fatalf("unexpected event %+v", evt)
	}
	if !strings.Contains(string(evt.Data), order.ID.String()) {
		t.Fatalf("event data missing order id: %s", evt.Data)
	}

	if len(sender.sent) != 2 {
		t.Fatalf("expected confirmation and low-stock alert, got %d", len(sender.sent))
	}
	if sender.sent[0].to != "+919811111111" || !strings.Contains(sender.sent[0].body, "Order Confirmed") {
		t.Fatalf("unexpected confirmation %+v", sender.sent[0])
	}
	if sender.sent[1].to != "+919900000000" || !strings.Contains(sender.sent[1].body, "Basmati Rice: 4 left") {
		t.Fatalf("unexpected alert %+v", sender.sent[1])
	}
	if got := counterValue(t, reg, ChannelWhatsApp, metrics.ResultSent); got != 2 {
		t.Fatalf("expected 2 whatsapp sends recorded, got %v", got)
	}
}

func TestOrderPlacedContinuesPastFailures(t *testing.T) {
	order := testOrder()
	reg := prometheus.NewRegistry()
	m := metrics.NewNotificationMetrics(reg)
	hub := &stubBroadcaster{err: errors.New("redis down")}
	sender := &stubSender{enabled: true, err: errors.New("twilio 500")}
	svc := NewService(ServiceParams{Broadcaster: hub, WhatsApp: sender, Metrics: m})

	err := svc.OrderPlaced(context.Background(), order, &storage.User{Phone: strPtr("+919811111111")})
	if err == nil {
		t.Fatal("expected aggregated error")
	}
	if !strings.Contains(err.Error(), "redis down") || !strings.Contains(err.Error(), "twilio 500") {
		t.Fatalf("expected both failures reported, got %v", err)
	}
	if got := counterValue(t, reg, ChannelRealtime, metrics.ResultFailed); got != 1 {
		t.Fatalf("expected realtime failure recorded, got %v", got)
	}
	if got := counterValue(t, reg, ChannelWhatsApp, metrics.ResultFailed); got != 1 {
		t.Fatalf("expected whatsapp failure recorded, got %v", got)
	}
}

func TestWhatsAppSkippedWhenDisabledOrNoPhone(t *testing.T) {
	order := testOrder()
	sender := &stubSender{enabled: false}
	svc := NewService(ServiceParams{WhatsApp: sender})
	if err := svc.OrderStatusChanged(context.Background(), order, &storage.User{Phone: strPtr("+91")}); err != nil {
		t.Fatalf("disabled sender should not error: %v", err)
	}

	sender.enabled = true
	if err := svc.OrderStatusChanged(context.Background(), order, &storage.User{}); err != nil {
		t.Fatalf("missing phone should not error: %v", err)
	}
	if len(sender.sent) != 0 {
		t.Fatalf("expected nothing sent, got %d", len(sender.sent))
	}

	if err := svc.OrderStatusChanged(context.Background(), order, &storage.User{Phone: strPtr("+919811111111")}); err != nil {
		t.Fatalf("status update: %v", err)
	}
	if len(sender.sent) != 1 || !strings.Contains(sender.sent[0].body, "PENDING") {
		t.Fatalf("unexpected status message %+v", sender.sent)
	}
}

func counterValue(t *testing.T, reg *prometheus.Registry, channel, result string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, family := range families {
		if family.GetName() != "notifications_sent_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			if labelsMatch(metric.GetLabel(), channel, result) {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func labelsMatch(labels []*dto.LabelPair, channel, result string) bool {
	var gotChannel, gotResult string
	for _, label := range labels {
		switch label.GetName() {
		case "channel":
			gotChannel = label.GetValue()
		case "result":
			gotResult = label.GetValue()
		}
	}
	return gotChannel == channel && gotResult == result
}
