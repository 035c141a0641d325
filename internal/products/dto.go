package products

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kiranaconnect/kiranaconnect-backend/internal/storage"
	"github.com/kiranaconnect/kiranaconnect-backend/pkg/enums"
)

// StockSummary is the inventory slice attached to catalog listings.
type StockSummary struct {
	AvailableQuantity int  `json:"availableQuantity"`
	IsLowStock        bool `json:"isLowStock"`
}

// InventoryDTO is a full inventory record with the computed low-stock flag.
type InventoryDTO struct {
	ProductID         uuid.UUID  `json:"productId"`
	AvailableQuantity int        `json:"availableQuantity"`
	SoldQuantity      int        `json:"soldQuantity"`
	ReturnedQuantity  int        `json:"returnedQuantity"`
	MinStockLevel     int        `json:"minStockLevel"`
	LastRestockDate   *time.Time `json:"lastRestockDate"`
	UpdatedAt         time.Time  `json:"updatedAt"`
	IsLowStock        bool       `json:"isLowStock"`
}

// ProductSummaryDTO is a catalog entry.
type ProductSummaryDTO struct {
	storage.Product
	Inventory *StockSummary `json:"inventory"`
}

// ProductDetailDTO is a single product with its full inventory record.
type ProductDetailDTO struct {
	storage.Product
	Inventory *InventoryDTO `json:"inventory"`
}

// VariantRequest describes a packaging tier on create or add-variant.
type VariantRequest struct {
	Label           string           `json:"label" validate:"required,min=1,max=60"`
	Price           decimal.Decimal  `json:"price"`
	BulkPrice       *decimal.Decimal `json:"bulkPrice,omitempty"`
	MinBulkQuantity *int             `json:"minBulkQuantity,omitempty"`
	Unit            string           `json:"unit" validate:"required,min=1,max=20"`
}

// CreateProductRequest is the admin create payload.
type CreateProductRequest struct {
	Name          string           `json:"name" validate:"required,min=1,max=160"`
	Description   *string          `json:"description,omitempty"`
	ImageURL      *string          `json:"imageUrl,omitempty" validate:"omitempty,url"`
	Category      string           `json:"category" validate:"required,min=1,max=80"`
	Tags          []string         `json:"tags,omitempty" validate:"omitempty,dive,min=1,max=40"`
	TargetUsers   []enums.UserRole `json:"targetUsers,omitempty"`
	Stock         int              `json:"stock" validate:"gte=0"`
	MinStockLevel *int             `json:"minStockLevel,omitempty" validate:"omitempty,gte=0"`
	Variants      []VariantRequest `json:"variants" validate:"dive"`
}

// UpdateProductRequest is a partial update; stock syncs inventory.
type UpdateProductRequest struct {
	Name        *string           `json:"name,omitempty" validate:"omitempty,min=1,max=160"`
	Description *string           `json:"description,omitempty"`
	ImageURL    *string           `json:"imageUrl,omitempty" validate:"omitempty,url"`
	Category    *string           `json:"category,omitempty" validate:"omitempty,min=1,max=80"`
	Tags        *[]string         `json:"tags,omitempty"`
	TargetUsers *[]enums.UserRole `json:"targetUsers,omitempty"`
	IsActive    *bool             `json:"isActive,omitempty"`
	Stock       *int              `json:"stock,omitempty" validate:"omitempty,gte=0"`
}

// ListParams narrows the public catalog.
type ListParams struct {
	Category string
	Audience enums.UserRole
}

func toInventoryDTO(inv *storage.Inventory) *InventoryDTO {
	if inv == nil {
		return nil
	}
	return &InventoryDTO{
		ProductID:         inv.ProductID,
		AvailableQuantity: inv.AvailableQuantity,
		SoldQuantity:      inv.SoldQuantity,
		ReturnedQuantity:  inv.ReturnedQuantity,
		MinStockLevel:     inv.MinStockLevel,
		LastRestockDate:   inv.LastRestockDate,
		UpdatedAt:         inv.UpdatedAt,
		IsLowStock:        inv.IsLowStock(),
	}
}

// ToInventoryDTO is shared with the inventory package.
func ToInventoryDTO(inv *storage.Inventory) *InventoryDTO {
	return toInventoryDTO(inv)
}
