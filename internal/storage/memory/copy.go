package memory

import (
	"sort"

	"github.com/google/uuid"

	"github.com/kiranaconnect/kiranaconnect-backend/internal/storage"
	"github.com/kiranaconnect/kiranaconnect-backend/pkg/enums"
)

// Values leave the store as deep copies so callers can't mutate shared state.

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}

func copyUser(u storage.User) *storage.User {
	u.Phone = cloneString(u.Phone)
	u.ShopName = cloneString(u.ShopName)
	u.Region = cloneString(u.Region)
	return &u
}

func newVariant(productID uuid.UUID, in storage.NewVariant) storage.Variant {
	minBulk := in.MinBulkQuantity
	if minBulk < 1 {
		minBulk = 1
	}
	return storage.Variant{
		ID:              uuid.New(),
		ProductID:       productID,
		Label:           in.Label,
		Price:           in.Price,
		BulkPrice:       in.BulkPrice,
		MinBulkQuantity: minBulk,
		Unit:            in.Unit,
	}
}

func copyProduct(p storage.Product) *storage.Product {
	p.Description = cloneString(p.Description)
	p.ImageURL = cloneString(p.ImageURL)
	p.Tags = append([]string{}, p.Tags...)
	p.TargetUsers = append([]enums.UserRole{}, p.TargetUsers...)
	p.Variants = append([]storage.Variant{}, p.Variants...)
	return &p
}

func copyInventory(i storage.Inventory) *storage.Inventory {
	if i.LastRestockDate != nil {
		restocked := *i.LastRestockDate
		i.LastRestockDate = &restocked
	}
	return &i
}

func copyItems(items []storage.OrderItem) []storage.OrderItem {
	out := make([]storage.OrderItem, len(items))
	for i, item := range items {
		if item.VariantID != nil {
			variantID := *item.VariantID
			item.VariantID = &variantID
		}
		out[i] = item
	}
	return out
}

func copyOrder(o storage.Order) *storage.Order {
	o.Region = cloneString(o.Region)
	o.Items = copyItems(o.Items)
	return &o
}

func sortInventory(items []storage.Inventory) {
	sort.Slice(items, func(i, j int) bool {
		return items[i].ProductID.String() < items[j].ProductID.String()
	})
}
