package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kiranaconnect/kiranaconnect-backend/internal/notifications"
	"github.com/kiranaconnect/kiranaconnect-backend/internal/storage"
	"github.com/kiranaconnect/kiranaconnect-backend/internal/users"
	"github.com/kiranaconnect/kiranaconnect-backend/pkg/enums"
	pkgerrors "github.com/kiranaconnect/kiranaconnect-backend/pkg/errors"
	"github.com/kiranaconnect/kiranaconnect-backend/pkg/logger"
	"github.com/kiranaconnect/kiranaconnect-backend/pkg/metrics"
)

const notifyTimeout = 15 * time.Second

// maxTotalAmount is the largest value a numeric(12,2) column holds.
var maxTotalAmount = decimal.RequireFromString("9999999999.99")

// Service exposes order placement and lifecycle operations.
type Service interface {
	Place(ctx context.Context, actor Actor, req PlaceOrderRequest) (*OrderDTO, error)
	List(ctx context.Context, actor Actor) ([]OrderDTO, error)
	Get(ctx context.Context, actor Actor, id uuid.UUID) (*OrderDTO, error)
	UpdateStatus(ctx context.Context, actor Actor, id uuid.UUID, req UpdateStatusRequest) (*OrderDTO, error)
}

type orderStore interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*storage.Product, error)
	GetUser(ctx context.Context, id uuid.UUID) (*storage.User, error)
	PlaceOrder(ctx context.Context, in storage.NewOrder) (*storage.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*storage.Order, error)
	ListOrders(ctx context.Context, filter storage.OrderFilter) ([]storage.Order, error)
	TransitionOrder(ctx context.Context, id uuid.UUID, from, to storage.OrderStatus) (*storage.Order, error)
}

// ServiceParams bundles the dependencies required to build an orders service.
type ServiceParams struct {
	Store    orderStore
	Users    users.Service
	Notifier notifications.Notifier
	Logger   *logger.Logger
	Metrics  *metrics.OrderMetrics
	// Dispatch runs post-commit notification work; defaults to a goroutine.
	Dispatch func(func())
}

type service struct {
	store    orderStore
	users    users.Service
	notifier notifications.Notifier
	logg     *logger.Logger
	metrics  *metrics.OrderMetrics
	dispatch func(func())
}

func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("order store is required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("users service is required")
	}
	dispatch := params.Dispatch
	if dispatch == nil {
		dispatch = func(fn func()) { go fn() }
	}
	return &service{
		store:    params.Store,
		users:    params.Users,
		notifier: params.Notifier,
		logg:     params.Logger,
		metrics:  params.Metrics,
		dispatch: dispatch,
	}, nil
}

func (s *service) Place(ctx context.Context, actor Actor, req PlaceOrderRequest) (*OrderDTO, error) {
	if len(req.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item is required")
	}
	total := req.TotalAmount.Round(2)
	if !total.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "totalAmount must be >= 0.01")
	}
	if total.GreaterThan(maxTotalAmount) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "totalAmount is too large").
			WithDetails(map[string]any{"max": maxTotalAmount.String()})
	}

	items := make([]storage.OrderItem, 0, len(req.Items))
	for _, line := range req.Items {
		item, err := s.priceLine(ctx, line)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := storage.CheckQuantities(items); err != nil {
		return nil, quantityError(err)
	}

	order, err := s.store.PlaceOrder(ctx, storage.NewOrder{
		UserID:      actor.UserID,
		UserType:    actor.Role,
		TotalAmount: total,
		Region:      req.Region,
		Items:       items,
	})
	if err != nil {
		var stockErr *storage.StockError
		switch {
		case errors.As(err, &stockErr):
			s.metrics.IncStockConflict()
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient stock").WithDetails(stockErr)
		case errors.Is(err, storage.ErrQuantityLimit):
			return nil, quantityError(err)
		case errors.Is(err, storage.ErrNotFound):
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown product")
		default:
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "place order")
		}
	}

	s.metrics.IncPlaced()
	dto := toDTO(order, nil)
	if s.logg != nil {
		logCtx := s.logg.WithFields(s.logg.WithOrderID(ctx, order.ID.String()), map[string]any{
			"total_amount":   order.TotalAmount.String(),
			"computed_total": dto.ComputedTotal.String(),
			"items":          len(order.Items),
		})
		if !dto.ComputedTotal.Equal(order.TotalAmount) {
			s.logg.Warn(logCtx, "order.total_mismatch")
		}
		s.logg.Info(logCtx, "order.placed")
	}

	buyer, err := s.store.GetUser(ctx, actor.UserID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.logError(ctx, "order.buyer_lookup_failed", err)
	}
	if buyer != nil {
		dto.Customer = users.CustomerFromStorage(buyer)
	}
	s.notify(ctx, func(nctx context.Context) error {
		return s.notifier.OrderPlaced(nctx, order, buyer)
	})
	return dto, nil
}

func (s *service) priceLine(ctx context.Context, line OrderItemRequest) (storage.OrderItem, error) {
	if line.Quantity <= 0 || line.Quantity > storage.MaxOrderQuantity {
		return storage.OrderItem{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("quantity must be between 1 and %d", storage.MaxOrderQuantity)).
			WithDetails(map[string]any{"productId": line.ProductID})
	}
	product, err := s.store.GetProduct(ctx, line.ProductID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.OrderItem{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown product").
				WithDetails(map[string]any{"productId": line.ProductID})
		}
		return storage.OrderItem{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	if !product.IsActive {
		return storage.OrderItem{}, pkgerrors.New(pkgerrors.CodeStateConflict, "product is not available").
			WithDetails(map[string]any{"productId": line.ProductID})
	}
	variant, err := resolveVariant(product, line)
	if err != nil {
		return storage.OrderItem{}, err
	}
	variantID := variant.ID
	return storage.OrderItem{
		ProductID:   product.ID,
		VariantID:   &variantID,
		ProductName: product.Name,
		Label:       variant.Label,
		Quantity:    line.Quantity,
		UnitPrice:   unitPrice(variant, line.Quantity),
	}, nil
}

func quantityError(err error) error {
	var qtyErr *storage.QuantityError
	if errors.As(err, &qtyErr) {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity out of range").WithDetails(qtyErr)
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "quantity out of range")
}

func (s *service) List(ctx context.Context, actor Actor) ([]OrderDTO, error) {
	filter := storage.OrderFilter{}
	if !actor.IsAdmin() {
		filter.UserID = &actor.UserID
	}
	list, err := s.store.ListOrders(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}

	ids := make([]uuid.UUID, 0, len(list))
	seen := make(map[uuid.UUID]struct{}, len(list))
	for _, o := range list {
		if _, ok := seen[o.UserID]; !ok {
			seen[o.UserID] = struct{}{}
			ids = append(ids, o.UserID)
		}
	}
	customers, err := s.users.Customers(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]OrderDTO, 0, len(list))
	for i := range list {
		out = append(out, *toDTO(&list[i], customers[list[i].UserID]))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, actor Actor, id uuid.UUID) (*OrderDTO, error) {
	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && order.UserID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
	}
	customers, err := s.users.Customers(ctx, []uuid.UUID{order.UserID})
	if err != nil {
		return nil, err
	}
	return toDTO(order, customers[order.UserID]), nil
}

func (s *service) UpdateStatus(ctx context.Context, actor Actor, id uuid.UUID, req UpdateStatusRequest) (*OrderDTO, error) {
	next := req.Status
	if !next.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status").
			WithDetails(map[string]any{"status": next})
	}
	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	current := order.Status

	if !actor.IsAdmin() {
		if order.UserID != actor.UserID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
		}
		if next != enums.OrderStatusCancelled || current != enums.OrderStatusPending {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "customers may only cancel pending orders")
		}
	}
	if !current.CanTransitionTo(next) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "invalid status transition").
			WithDetails(map[string]any{"from": current, "to": next})
	}

	updated, err := s.store.TransitionOrder(ctx, id, current, next)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrStatusConflict):
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently").
				WithDetails(map[string]any{"from": current, "to": next})
		case errors.Is(err, storage.ErrNotFound):
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		default:
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order status")
		}
	}

	s.metrics.IncTransition(string(next))
	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(s.logg.WithOrderID(ctx, id.String()), map[string]any{
			"from": string(current),
			"to":   string(next),
		}), "order.status_changed")
	}

	owner, err := s.store.GetUser(ctx, updated.UserID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.logError(ctx, "order.owner_lookup_failed", err)
	}
	s.notify(ctx, func(nctx context.Context) error {
		return s.notifier.OrderStatusChanged(nctx, updated, owner)
	})
	return toDTO(updated, users.CustomerFromStorage(owner)), nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*storage.Order, error) {
	order, err := s.store.GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	return order, nil
}

// notify detaches from the request so a client disconnect does not cancel sends.
func (s *service) notify(ctx context.Context, fn func(context.Context) error) {
	if s.notifier == nil {
		return
	}
	detached := context.WithoutCancel(ctx)
	s.dispatch(func() {
		nctx, cancel := context.WithTimeout(detached, notifyTimeout)
		defer cancel()
		if err := fn(nctx); err != nil && s.logg != nil {
			s.logg.Warn(s.logg.WithField(nctx, "error", err.Error()), "order.notify_failed")
		}
	})
}

func (s *service) logError(ctx context.Context, msg string, err error) {
	if s.logg != nil {
		s.logg.Error(ctx, msg, err)
	}
}
