package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbtypes "github.com/kiranaconnect/kiranaconnect-backend/pkg/db/types"
)

// Product is a catalog entry; Stock mirrors Inventory.AvailableQty.
type Product struct {
	ID          uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	Name        string             `gorm:"column:name;not null"`
	Description *string            `gorm:"column:description"`
	ImageURL    *string            `gorm:"column:image_url"`
	Category    string             `gorm:"column:category;not null;index"`
	IsActive    bool               `gorm:"column:is_active;not null;default:true"`
	Stock       int                `gorm:"column:stock;not null;default:0"`
	Tags        dbtypes.StringList `gorm:"column:tags;not null"`
	TargetUsers dbtypes.StringList `gorm:"column:target_users;not null"`
	Variants    []ProductVariant   `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Inventory   *InventoryItem     `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// ProductVariant is a packaging and pricing tier of a product.
type ProductVariant struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	ProductID       uuid.UUID           `gorm:"column:product_id;type:uuid;not null;index"`
	Label           string              `gorm:"column:label;not null"`
	Price           decimal.Decimal     `gorm:"column:price;type:numeric(12,2);not null"`
	BulkPrice       decimal.NullDecimal `gorm:"column:bulk_price;type:numeric(12,2)"`
	MinBulkQuantity int                 `gorm:"column:min_bulk_quantity;not null;default:1"`
	Unit            string              `gorm:"column:unit;not null"`
}

func (v *ProductVariant) BeforeCreate(*gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}
