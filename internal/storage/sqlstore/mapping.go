package sqlstore

import (
	"github.com/google/uuid"

	"github.com/kiranaconnect/kiranaconnect-backend/internal/storage"
	dbtypes "github.com/kiranaconnect/kiranaconnect-backend/pkg/db/types"
	"github.com/kiranaconnect/kiranaconnect-backend/pkg/db/models"
	"github.com/kiranaconnect/kiranaconnect-backend/pkg/enums"
)

func toUser(m models.User) *storage.User {
	return &storage.User{
		ID:           m.ID,
		Name:         m.Name,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Phone:        m.Phone,
		Role:         enums.UserRole(m.Role),
		ShopName:     m.ShopName,
		Region:       m.Region,
		IsActive:     m.IsActive,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func rolesToList(roles []enums.UserRole) dbtypes.StringList {
	out := make(dbtypes.StringList, 0, len(roles))
	for _, role := range roles {
		out = append(out, string(role))
	}
	return out
}

func listToRoles(list dbtypes.StringList) []enums.UserRole {
	out := make([]enums.UserRole, 0, len(list))
	for _, role := range list {
		out = append(out, enums.UserRole(role))
	}
	return out
}

func toVariantModel(productID uuid.UUID, in storage.NewVariant) models.ProductVariant {
	minBulk := in.MinBulkQuantity
	if minBulk < 1 {
		minBulk = 1
	}
	return models.ProductVariant{
		ProductID:       productID,
		Label:           in.Label,
		Price:           in.Price,
		BulkPrice:       in.BulkPrice,
		MinBulkQuantity: minBulk,
		Unit:            in.Unit,
	}
}

func toVariant(m models.ProductVariant) storage.Variant {
	return storage.Variant{
		ID:              m.ID,
		ProductID:       m.ProductID,
		Label:           m.Label,
		Price:           m.Price,
		BulkPrice:       m.BulkPrice,
		MinBulkQuantity: m.MinBulkQuantity,
		Unit:            m.Unit,
	}
}

func toProduct(m models.Product) *storage.Product {
	variants := make([]storage.Variant, 0, len(m.Variants))
	for _, v := range m.Variants {
		variants = append(variants, toVariant(v))
	}
	return &storage.Product{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		ImageURL:    m.ImageURL,
		Category:    m.Category,
		IsActive:    m.IsActive,
		Stock:       m.Stock,
		Tags:        append([]string{}, m.Tags...),
		TargetUsers: listToRoles(m.TargetUsers),
		Variants:    variants,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func toInventory(m models.InventoryItem) *storage.Inventory {
	return &storage.Inventory{
		ProductID:         m.ProductID,
		AvailableQuantity: m.AvailableQty,
		SoldQuantity:      m.SoldQty,
		ReturnedQuantity:  m.ReturnedQty,
		MinStockLevel:     m.MinStockLevel,
		LastRestockDate:   m.LastRestockDate,
		UpdatedAt:         m.UpdatedAt,
	}
}

func toOrderItemModel(item storage.OrderItem) models.OrderItem {
	return models.OrderItem{
		ProductID:   item.ProductID,
		VariantID:   item.VariantID,
		ProductName: item.ProductName,
		Label:       item.Label,
		Quantity:    item.Quantity,
		UnitPrice:   item.UnitPrice,
	}
}

func toOrder(m models.Order) *storage.Order {
	items := make([]storage.OrderItem, 0, len(m.Items))
	for _, item := range m.Items {
		items = append(items, storage.OrderItem{
			ProductID:   item.ProductID,
			VariantID:   item.VariantID,
			ProductName: item.ProductName,
			Label:       item.Label,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		})
	}
	return &storage.Order{
		ID:          m.ID,
		UserID:      m.UserID,
		UserType:    enums.UserRole(m.UserType),
		TotalAmount: m.TotalAmount,
		Region:      m.Region,
		Status:      enums.OrderStatus(m.Status),
		Items:       items,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}
