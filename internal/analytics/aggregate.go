package analytics

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kiranaconnect/kiranaconnect-backend/internal/analytics/types"
	"github.com/kiranaconnect/kiranaconnect-backend/internal/storage"
	"github.com/kiranaconnect/kiranaconnect-backend/pkg/enums"
)

const (
	topProductsLimit = 5
	unknownRegion    = "unknown"
)

// countsTowardRevenue excludes cancelled orders from every money figure.
func countsTowardRevenue(o storage.Order) bool {
	return o.Status != enums.OrderStatusCancelled
}

func totalRevenue(orders []storage.Order) (decimal.Decimal, int) {
	total := decimal.Zero
	counted := 0
	for _, o := range orders {
		if !countsTowardRevenue(o) {
			continue
		}
		total = total.Add(o.TotalAmount)
		counted++
	}
	return total, counted
}

func monthlySeries(orders []storage.Order) []types.MonthlyOrders {
	buckets := map[string]*types.MonthlyOrders{}
	for _, o := range orders {
		key := MonthKey(o.CreatedAt)
		bucket, ok := buckets[key]
		if !ok {
			bucket = &types.MonthlyOrders{Month: key, Revenue: decimal.Zero}
			buckets[key] = bucket
		}
		bucket.Orders++
		if countsTowardRevenue(o) {
			bucket.Revenue = bucket.Revenue.Add(o.TotalAmount)
		}
	}
	out := make([]types.MonthlyOrders, 0, len(buckets))
	for _, bucket := range buckets {
		out = append(out, *bucket)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

func orderAnalytics(orders []storage.Order) types.OrderAnalytics {
	revenue, counted := totalRevenue(orders)
	average := decimal.Zero
	if counted > 0 {
		average = revenue.Div(decimal.NewFromInt(int64(counted))).Round(2)
	}
	breakdown := make(map[enums.OrderStatus]int, 5)
	for _, o := range orders {
		breakdown[o.Status]++
	}
	return types.OrderAnalytics{
		TotalOrders:       len(orders),
		TotalRevenue:      revenue,
		AverageOrderValue: average,
		StatusBreakdown:   breakdown,
		MonthlyData:       monthlySeries(orders),
	}
}

func customerAnalytics(users []storage.User) types.CustomerAnalytics {
	var out types.CustomerAnalytics
	regions := map[string]int{}
	for _, u := range users {
		if !u.Role.IsCustomer() {
			continue
		}
		out.TotalCustomers++
		if u.IsActive {
			out.ActiveCustomers++
		}
		switch u.Role {
		case enums.UserRoleVendor:
			out.VendorCount++
		case enums.UserRoleRetail:
			out.RetailCount++
		}
		region := unknownRegion
		if u.Region != nil && *u.Region != "" {
			region = *u.Region
		}
		regions[region]++
	}
	out.RegionDistribution = make([]types.RegionCount, 0, len(regions))
	for region, n := range regions {
		out.RegionDistribution = append(out.RegionDistribution, types.RegionCount{Region: region, Customers: n})
	}
	sort.Slice(out.RegionDistribution, func(i, j int) bool {
		a, b := out.RegionDistribution[i], out.RegionDistribution[j]
		if a.Customers != b.Customers {
			return a.Customers > b.Customers
		}
		return a.Region < b.Region
	})
	return out
}

func topProducts(orders []storage.Order, limit int) []types.TopProduct {
	type tally struct {
		types.TopProduct
		id uuid.UUID
	}
	byProduct := map[uuid.UUID]*tally{}
	for _, o := range orders {
		if !countsTowardRevenue(o) {
			continue
		}
		for _, item := range o.Items {
			t, ok := byProduct[item.ProductID]
			if !ok {
				t = &tally{id: item.ProductID, TopProduct: types.TopProduct{Name: item.ProductName, Revenue: decimal.Zero}}
				byProduct[item.ProductID] = t
			}
			t.Sales += item.Quantity
			t.Revenue = t.Revenue.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}
	}
	ranked := make([]*tally, 0, len(byProduct))
	for _, t := range byProduct {
		ranked = append(ranked, t)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Sales != ranked[j].Sales {
			return ranked[i].Sales > ranked[j].Sales
		}
		if !ranked[i].Revenue.Equal(ranked[j].Revenue) {
			return ranked[i].Revenue.GreaterThan(ranked[j].Revenue)
		}
		return ranked[i].Name < ranked[j].Name
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	out := make([]types.TopProduct, 0, len(ranked))
	for _, t := range ranked {
		out = append(out, t.TopProduct)
	}
	return out
}
