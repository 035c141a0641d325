// Package notifications fans order events out to sockets and WhatsApp.
// Failures are logged and counted; callers never see them as request errors.
package notifications

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/kiranaconnect/kiranaconnect-backend/internal/realtime"
	"github.com/kiranaconnect/kiranaconnect-backend/internal/storage"
	"github.com/kiranaconnect/kiranaconnect-backend/pkg/logger"
	"github.com/kiranaconnect/kiranaconnect-backend/pkg/metrics"
	"github.com/kiranaconnect/kiranaconnect-backend/pkg/whatsapp"
)

const (
	ChannelRealtime = "realtime"
	ChannelWhatsApp = "whatsapp"
)

// Notifier is what the orders service calls after a commit.
type Notifier interface {
	OrderPlaced(ctx context.Context, order *storage.Order, buyer *storage.User) error
	OrderStatusChanged(ctx context.Context, order *storage.Order, owner *storage.User) error
}

type broadcaster interface {
	Broadcast(ctx context.Context, evt realtime.Event) error
}

type inventoryReader interface {
	GetInventory(ctx context.Context, productID uuid.UUID) (*storage.Inventory, error)
}

// OrderCreatedPayload is the `data` of the orderCreated event.
type OrderCreatedPayload struct {
	OrderID     uuid.UUID       `json:"orderId"`
	UserID      uuid.UUID       `json:"userId"`
	UserType    string          `json:"userType"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
}

// ServiceParams bundles the notifier dependencies. Broadcaster and WhatsApp are optional.
type ServiceParams struct {
	Broadcaster broadcaster
	WhatsApp    whatsapp.Sender
	Inventory   inventoryReader
	AlertNumber string
	Logger      *logger.Logger
	Metrics     *metrics.NotificationMetrics
}

type service struct {
	broadcaster broadcaster
	whatsapp    whatsapp.Sender
	inventory   inventoryReader
	alertNumber string
	logg        *logger.Logger
	metrics     *metrics.NotificationMetrics
}

func NewService(params ServiceParams) Notifier {
	return &service{
		broadcaster: params.Broadcaster,
		whatsapp:    params.WhatsApp,
		inventory:   params.Inventory,
		alertNumber: strings.TrimSpace(params.AlertNumber),
		logg:        params.Logger,
		metrics:     params.Metrics,
	}
}

// OrderPlaced broadcasts the event, confirms to the buyer and raises a low-stock
// alert. Every step runs even if an earlier one failed.
func (s *service) OrderPlaced(ctx context.Context, order *storage.Order, buyer *storage.User) error {
	if order == nil {
		return nil
	}
	if s.logg != nil {
		ctx = s.logg.WithOrderID(ctx, order.ID.String())
	}

	var errs error
	errs = multierr.Append(errs, s.broadcastCreated(ctx, order))

	var phone *string
	if buyer != nil {
		phone = buyer.Phone
	}
	errs = multierr.Append(errs, s.sendWhatsApp(ctx, "order_confirmation", phone,
		whatsapp.OrderConfirmationMessage(summarize(order))))

	errs = multierr.Append(errs, s.alertLowStock(ctx, order))
	return errs
}

// OrderStatusChanged messages the order owner.
func (s *service) OrderStatusChanged(ctx context.Context, order *storage.Order, owner *storage.User) error {
	if order == nil {
		return nil
	}
	if s.logg != nil {
		ctx = s.logg.WithOrderID(ctx, order.ID.String())
	}
	var phone *string
	if owner != nil {
		phone = owner.Phone
	}
	return s.sendWhatsApp(ctx, "order_status", phone, whatsapp.OrderStatusUpdateMessage(summarize(order)))
}

func (s *service) broadcastCreated(ctx context.Context, order *storage.Order) error {
	if s.broadcaster == nil {
		s.metrics.Record(ChannelRealtime, metrics.ResultSkipped)
		return nil
	}
	evt, err := realtime.NewEvent(realtime.EventOrderCreated, OrderCreatedPayload{
		OrderID:     order.ID,
		UserID:      order.UserID,
		UserType:    string(order.UserType),
		TotalAmount: order.TotalAmount,
	}, realtime.AdminRoom, realtime.UserRoom(order.UserID))
	if err == nil {
		err = s.broadcaster.Broadcast(ctx, evt)
	}
	if err != nil {
		s.metrics.Record(ChannelRealtime, metrics.ResultFailed)
		s.logError(ctx, "notification.realtime.failed", err)
		return err
	}
	s.metrics.Record(ChannelRealtime, metrics.ResultSent)
	return nil
}

func (s *service) sendWhatsApp(ctx context.Context, template string, to *string, body string) error {
	if s.logg != nil {
		ctx = s.logg.WithField(ctx, "template", template)
	}
	if s.whatsapp == nil || !s.whatsapp.Enabled() {
		s.metrics.Record(ChannelWhatsApp, metrics.ResultSkipped)
		if s.logg != nil {
			s.logg.Warn(ctx, "notification.whatsapp.disabled")
		}
		return nil
	}
	if to == nil || strings.TrimSpace(*to) == "" {
		s.metrics.Record(ChannelWhatsApp, metrics.ResultSkipped)
		return nil
	}

	sid, err := s.whatsapp.Send(ctx, *to, body)
	if err != nil {
		if errors.Is(err, whatsapp.ErrDisabled) {
			s.metrics.Record(ChannelWhatsApp, metrics.ResultSkipped)
			return nil
		}
		s.metrics.Record(ChannelWhatsApp, metrics.ResultFailed)
		s.logError(ctx, "notification.whatsapp.failed", err)
		return err
	}
	s.metrics.Record(ChannelWhatsApp, metrics.ResultSent)
	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "message_sid", sid), "notification.whatsapp.sent")
	}
	return nil
}

func (s *service) alertLowStock(ctx context.Context, order *storage.Order) error {
	if s.alertNumber == "" || s.inventory == nil {
		return nil
	}
	names := make(map[uuid.UUID]string, len(order.Items))
	for _, item := range order.Items {
		names[item.ProductID] = item.ProductName
	}

	var low []whatsapp.LowStockProduct
	var errs error
	for _, pq := range storage.AggregateQuantities(order.Items) {
		inv, err := s.inventory.GetInventory(ctx, pq.ProductID)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if inv.IsLowStock() {
			low = append(low, whatsapp.LowStockProduct{Name: names[pq.ProductID], AvailableQuantity: inv.AvailableQuantity})
		}
	}
	if errs != nil {
		s.logError(ctx, "notification.low_stock.lookup_failed", errs)
	}
	if len(low) == 0 {
		return errs
	}
	alert := s.alertNumber
	return multierr.Append(errs, s.sendWhatsApp(ctx, "low_stock_alert", &alert, whatsapp.LowStockAlertMessage(low)))
}

func (s *service) logError(ctx context.Context, msg string, err error) {
	if s.logg != nil {
		s.logg.Error(ctx, msg, err)
	}
}

func summarize(order *storage.Order) whatsapp.OrderSummary {
	lines := make([]whatsapp.OrderLine, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, whatsapp.OrderLine{
			ProductName: item.ProductName,
			Label:       item.Label,
			Quantity:    item.Quantity,
		})
	}
	return whatsapp.OrderSummary{
		ID:          order.ID.String(),
		TotalAmount: order.TotalAmount,
		Status:      string(order.Status),
		Items:       lines,
	}
}
