package models

import (
	"time"

	"github.com/google/uuid"
)

// InventoryItem tracks available/sold/returned counts per product.
type InventoryItem struct {
	ProductID       uuid.UUID  `gorm:"column:product_id;type:uuid;primaryKey"`
	AvailableQty    int        `gorm:"column:available_qty;not null;default:0;check:chk_inventory_available_nonnegative,available_qty >= 0"`
	SoldQty         int        `gorm:"column:sold_qty;not null;default:0"`
	ReturnedQty     int        `gorm:"column:returned_qty;not null;default:0"`
	MinStockLevel   int        `gorm:"column:min_stock_level;not null;default:10"`
	LastRestockDate *time.Time `gorm:"column:last_restock_date"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
