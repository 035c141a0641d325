package storage

import (
	"sort"
	"strings"

	"github.com/google/uuid"
)

// MaxOrderQuantity caps a single line and the per-product total of one order.
const MaxOrderQuantity = 100000

// ProductQuantity is the total quantity requested for one product in an order.
type ProductQuantity struct {
	ProductID uuid.UUID
	Quantity  int
}

// AggregateQuantities folds items for the same product together and orders the
// result by product id so concurrent writers always lock rows in the same order.
func AggregateQuantities(items []OrderItem) []ProductQuantity {
	totals := make(map[uuid.UUID]int, len(items))
	for _, item := range items {
		totals[item.ProductID] += item.Quantity
	}
	out := make([]ProductQuantity, 0, len(totals))
	for id, qty := range totals {
		out = append(out, ProductQuantity{ProductID: id, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ProductID.String() < out[j].ProductID.String()
	})
	return out
}

// CheckQuantities rejects non-positive lines and per-product totals above
// MaxOrderQuantity. Totals are checked as they accumulate so they cannot wrap.
func CheckQuantities(items []OrderItem) error {
	totals := make(map[uuid.UUID]int, len(items))
	for _, item := range items {
		if item.Quantity <= 0 || item.Quantity > MaxOrderQuantity {
			return &QuantityError{ProductID: item.ProductID, Requested: item.Quantity, Limit: MaxOrderQuantity}
		}
		sum := totals[item.ProductID] + item.Quantity
		if sum > MaxOrderQuantity {
			return &QuantityError{ProductID: item.ProductID, Requested: sum, Limit: MaxOrderQuantity}
		}
		totals[item.ProductID] = sum
	}
	return nil
}

// NormalizeEmail is the canonical form used for uniqueness and lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SortOrdersNewestFirst orders by CreatedAt descending with id as tiebreaker.
func SortOrdersNewestFirst(orders []Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID.String() > orders[j].ID.String()
		}
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
}

// SortProductsByName orders the catalog alphabetically.
func SortProductsByName(products []Product) {
	sort.SliceStable(products, func(i, j int) bool {
		return strings.ToLower(products[i].Name) < strings.ToLower(products[j].Name)
	})
}

// MinStockOrDefault resolves the optional threshold on product creation.
func MinStockOrDefault(level *int) int {
	if level == nil {
		return DefaultMinStockLevel
	}
	return *level
}
