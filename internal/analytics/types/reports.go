package types

import (
	"github.com/shopspring/decimal"

	"github.com/kiranaconnect/kiranaconnect-backend/pkg/enums"
)

// Overview is the admin dashboard headline.
type Overview struct {
	TotalRevenue    decimal.Decimal `json:"totalRevenue"`
	TotalOrders     int             `json:"totalOrders"`
	ActiveCustomers int             `json:"activeCustomers"`
	LowStockItems   int             `json:"lowStockItems"`
}

// MonthlyRevenue is one point of the revenue series, month formatted YYYY-MM.
type MonthlyRevenue struct {
	Month   string          `json:"month"`
	Revenue decimal.Decimal `json:"revenue"`
}

type RevenueReport struct {
	MonthlyRevenue []MonthlyRevenue `json:"monthlyRevenue"`
}

type MonthlyOrders struct {
	Month   string          `json:"month"`
	Orders  int             `json:"orders"`
	Revenue decimal.Decimal `json:"revenue"`
}

type OrderAnalytics struct {
	TotalOrders       int                       `json:"totalOrders"`
	TotalRevenue      decimal.Decimal           `json:"totalRevenue"`
	AverageOrderValue decimal.Decimal           `json:"averageOrderValue"`
	StatusBreakdown   map[enums.OrderStatus]int `json:"statusBreakdown"`
	MonthlyData       []MonthlyOrders           `json:"monthlyData"`
}

type RegionCount struct {
	Region    string `json:"region"`
	Customers int    `json:"customers"`
}

type CustomerAnalytics struct {
	TotalCustomers     int           `json:"totalCustomers"`
	ActiveCustomers    int           `json:"activeCustomers"`
	VendorCount        int           `json:"vendorCount"`
	RetailCount        int           `json:"retailCount"`
	RegionDistribution []RegionCount `json:"regionDistribution"`
}

// TopProduct ranks a product by units sold.
type TopProduct struct {
	Name    string          `json:"name"`
	Sales   int             `json:"sales"`
	Revenue decimal.Decimal `json:"revenue"`
}

type ProductAnalytics struct {
	TotalProducts int          `json:"totalProducts"`
	LowStockCount int          `json:"lowStockCount"`
	TopProducts   []TopProduct `json:"topProducts"`
}

// Report bundles every analytics group.
type Report struct {
	OrderAnalytics    OrderAnalytics    `json:"orderAnalytics"`
	CustomerAnalytics CustomerAnalytics `json:"customerAnalytics"`
	ProductAnalytics  ProductAnalytics  `json:"productAnalytics"`
}
