package orders

import (
	"github.com/shopspring/decimal"

	"github.com/kiranaconnect/kiranaconnect-backend/internal/storage"
	pkgerrors "github.com/kiranaconnect/kiranaconnect-backend/pkg/errors"
)

// resolveVariant picks the requested variant, or the first listed one when the
// client names none.
func resolveVariant(product *storage.Product, req OrderItemRequest) (storage.Variant, error) {
	if req.VariantID != nil {
		variant, ok := product.Variant(*req.VariantID)
		if !ok {
			return storage.Variant{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown variant").
				WithDetails(map[string]any{"productId": product.ID, "variantId": *req.VariantID})
		}
		return variant, nil
	}
	if len(product.Variants) == 0 {
		return storage.Variant{}, pkgerrors.New(pkgerrors.CodeValidation, "product has no purchasable variants").
			WithDetails(map[string]any{"productId": product.ID})
	}
	return product.Variants[0], nil
}

// unitPrice applies the bulk price once the quantity reaches the bulk minimum.
func unitPrice(variant storage.Variant, quantity int) decimal.Decimal {
	if variant.BulkPrice.Valid && quantity >= variant.MinBulkQuantity {
		return variant.BulkPrice.Decimal
	}
	return variant.Price
}
