package analytics

import (
	"context"
	"fmt"

	"github.com/kiranaconnect/kiranaconnect-backend/internal/analytics/types"
	"github.com/kiranaconnect/kiranaconnect-backend/internal/storage"
	pkgerrors "github.com/kiranaconnect/kiranaconnect-backend/pkg/errors"
)

// Service computes admin dashboard reports from live store data.
type Service interface {
	Overview(ctx context.Context) (*types.Overview, error)
	Revenue(ctx context.Context) (*types.RevenueReport, error)
	Full(ctx context.Context) (*types.Report, error)
}

type analyticsStore interface {
	ListUsers(ctx context.Context) ([]storage.User, error)
	ListProducts(ctx context.Context, filter storage.ProductFilter) ([]storage.Product, error)
	ListLowStock(ctx context.Context) ([]storage.Inventory, error)
	ListOrders(ctx context.Context, filter storage.OrderFilter) ([]storage.Order, error)
}

type service struct {
	store analyticsStore
}

func NewService(store analyticsStore) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("analytics store required")
	}
	return &service{store: store}, nil
}

func (s *service) Overview(ctx context.Context) (*types.Overview, error) {
	orders, err := s.orders(ctx)
	if err != nil {
		return nil, err
	}
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list users")
	}
	low, err := s.store.ListLowStock(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list low stock")
	}
	revenue, _ := totalRevenue(orders)
	return &types.Overview{
		TotalRevenue:    revenue,
		TotalOrders:     len(orders),
		ActiveCustomers: customerAnalytics(users).ActiveCustomers,
		LowStockItems:   len(low),
	}, nil
}

func (s *service) Revenue(ctx context.Context) (*types.RevenueReport, error) {
	orders, err := s.orders(ctx)
	if err != nil {
		return nil, err
	}
	series := monthlySeries(orders)
	out := &types.RevenueReport{MonthlyRevenue: make([]types.MonthlyRevenue, 0, len(series))}
	for _, point := range series {
		out.MonthlyRevenue = append(out.MonthlyRevenue, types.MonthlyRevenue{Month: point.Month, Revenue: point.Revenue})
	}
	return out, nil
}

func (s *service) Full(ctx context.Context) (*types.Report, error) {
	orders, err := s.orders(ctx)
	if err != nil {
		return nil, err
	}
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list users")
	}
	products, err := s.store.ListProducts(ctx, storage.ProductFilter{IncludeInactive: true})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list products")
	}
	low, err := s.store.ListLowStock(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list low stock")
	}
	return &types.Report{
		OrderAnalytics:    orderAnalytics(orders),
		CustomerAnalytics: customerAnalytics(users),
		ProductAnalytics: types.ProductAnalytics{
			TotalProducts: len(products),
			LowStockCount: len(low),
			TopProducts:   topProducts(orders, topProductsLimit),
		},
	}, nil
}

func (s *service) orders(ctx context.Context) ([]storage.Order, error) {
	orders, err := s.store.ListOrders(ctx, storage.OrderFilter{})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	return orders, nil
}
