package storage

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kiranaconnect/kiranaconnect-backend/pkg/enums"
)

type (
	UserRole    = enums.UserRole
	OrderStatus = enums.OrderStatus
)

const DefaultMinStockLevel = 10

type User struct {
	ID           uuid.UUID      `json:"id"`
	Name         string         `json:"name"`
	Email        string         `json:"email"`
	PasswordHash string         `json:"-"`
	Phone        *string        `json:"phone"`
	Role         enums.UserRole `json:"role"`
	ShopName     *string        `json:"shopName"`
	Region       *string        `json:"region"`
	IsActive     bool           `json:"isActive"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

type NewUser struct {
	Name         string
	Email        string
	PasswordHash string
	Phone        *string
	Role         enums.UserRole
	ShopName     *string
	Region       *string
}

// UserUpdate carries the mutable profile fields; nil leaves a field unchanged.
type UserUpdate struct {
	Name     *string
	Phone    *string
	ShopName *string
	Region   *string
	IsActive *bool
}

type Product struct {
	ID          uuid.UUID        `json:"id"`
	Name        string           `json:"name"`
	Description *string          `json:"description"`
	ImageURL    *string          `json:"imageUrl"`
	Category    string           `json:"category"`
	IsActive    bool             `json:"isActive"`
	Stock       int              `json:"stock"`
	Tags        []string         `json:"tags"`
	TargetUsers []enums.UserRole `json:"targetUsers"`
	Variants    []Variant        `json:"variants"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// VisibleTo reports whether the product targets audience. An empty target
// list or an empty audience matches everything.
func (p Product) VisibleTo(audience enums.UserRole) bool {
	if audience == "" || len(p.TargetUsers) == 0 {
		return true
	}
	for _, target := range p.TargetUsers {
		if target == audience {
			return true
		}
	}
	return false
}

// Variant returns the variant with id, if it belongs to the product.
func (p Product) Variant(id uuid.UUID) (Variant, bool) {
	for _, v := range p.Variants {
		if v.ID == id {
			return v, true
		}
	}
	return Variant{}, false
}

type Variant struct {
	ID              uuid.UUID           `json:"id"`
	ProductID       uuid.UUID           `json:"productId"`
	Label           string              `json:"label"`
	Price           decimal.Decimal     `json:"price"`
	BulkPrice       decimal.NullDecimal `json:"bulkPrice"`
	MinBulkQuantity int                 `json:"minBulkQuantity"`
	Unit            string              `json:"unit"`
}

type NewVariant struct {
	Label           string
	Price           decimal.Decimal
	BulkPrice       decimal.NullDecimal
	MinBulkQuantity int
	Unit            string
}

type NewProduct struct {
	Name          string
	Description   *string
	ImageURL      *string
	Category      string
	Tags          []string
	TargetUsers   []enums.UserRole
	Stock         int
	MinStockLevel *int
	Variants      []NewVariant
}

// ProductUpdate is a partial update; a non-nil Stock resets the inventory's
// available quantity to that value.
type ProductUpdate struct {
	Name        *string
	Description *string
	ImageURL    *string
	Category    *string
	Tags        *[]string
	TargetUsers *[]enums.UserRole
	IsActive    *bool
	Stock       *int
}

type ProductFilter struct {
	Category        string
	Audience        enums.UserRole
	IncludeInactive bool
}

// Matches applies the filter to a product loaded from any backend.
func (f ProductFilter) Matches(p Product) bool {
	if !f.IncludeInactive && !p.IsActive {
		return false
	}
	if f.Category != "" && !strings.EqualFold(f.Category, p.Category) {
		return false
	}
	return p.VisibleTo(f.Audience)
}

type Inventory struct {
	ProductID         uuid.UUID  `json:"productId"`
	AvailableQuantity int        `json:"availableQuantity"`
	SoldQuantity      int        `json:"soldQuantity"`
	ReturnedQuantity  int        `json:"returnedQuantity"`
	MinStockLevel     int        `json:"minStockLevel"`
	LastRestockDate   *time.Time `json:"lastRestockDate"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// IsLowStock is computed on read, never stored.
func (i Inventory) IsLowStock() bool {
	return i.AvailableQuantity <= i.MinStockLevel
}

// InventoryUpdate restocks and/or changes the low-stock threshold.
type InventoryUpdate struct {
	RestockQuantity int
	MinStockLevel   *int
}

type Order struct {
	ID          uuid.UUID         `json:"id"`
	UserID      uuid.UUID         `json:"userId"`
	UserType    enums.UserRole    `json:"userType"`
	TotalAmount decimal.Decimal   `json:"totalAmount"`
	Region      *string           `json:"region"`
	Status      enums.OrderStatus `json:"status"`
	Items       []OrderItem       `json:"items"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// Subtotal sums quantity * unit price over the items.
func (o Order) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

type OrderItem struct {
	ProductID   uuid.UUID       `json:"productId"`
	VariantID   *uuid.UUID      `json:"variantId"`
	ProductName string          `json:"productName"`
	Label       string          `json:"label"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

type NewOrder struct {
	UserID      uuid.UUID
	UserType    enums.UserRole
	TotalAmount decimal.Decimal
	Region      *string
	Items       []OrderItem
}

// OrderFilter narrows ListOrders; a nil UserID lists every order.
type OrderFilter struct {
	UserID *uuid.UUID
}
