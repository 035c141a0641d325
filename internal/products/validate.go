package products

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/kiranaconnect/kiranaconnect-backend/internal/storage"
	"github.com/kiranaconnect/kiranaconnect-backend/pkg/enums"
	pkgerrors "github.com/kiranaconnect/kiranaconnect-backend/pkg/errors"
)

// validateTargets allows only customer roles as audiences.
func validateTargets(targets []enums.UserRole) error {
	for _, role := range targets {
		if !role.IsCustomer() {
			return pkgerrors.New(pkgerrors.CodeValidation, "targetUsers entries must be vendor or retail_user").
				WithDetails(map[string]any{"targetUser": role})
		}
	}
	return nil
}

func (v VariantRequest) toStorage() (storage.NewVariant, error) {
	if strings.TrimSpace(v.Label) == "" || strings.TrimSpace(v.Unit) == "" {
		return storage.NewVariant{}, pkgerrors.New(pkgerrors.CodeValidation, "variant label and unit are required")
	}
	if v.Price.IsNegative() {
		return storage.NewVariant{}, pkgerrors.New(pkgerrors.CodeValidation, "price must be >= 0")
	}
	out := storage.NewVariant{
		Label:           strings.TrimSpace(v.Label),
		Price:           v.Price.Round(2),
		MinBulkQuantity: 1,
		Unit:            strings.TrimSpace(v.Unit),
	}
	if v.BulkPrice != nil {
		if v.BulkPrice.IsNegative() {
			return storage.NewVariant{}, pkgerrors.New(pkgerrors.CodeValidation, "bulkPrice must be >= 0")
		}
		out.BulkPrice = decimal.NewNullDecimal(v.BulkPrice.Round(2))
	}
	if v.MinBulkQuantity != nil {
		if *v.MinBulkQuantity < 1 {
			return storage.NewVariant{}, pkgerrors.New(pkgerrors.CodeValidation, "minBulkQuantity must be >= 1")
		}
		out.MinBulkQuantity = *v.MinBulkQuantity
	}
	return out, nil
}

func (r CreateProductRequest) toStorage() (storage.NewProduct, error) {
	name := strings.TrimSpace(r.Name)
	category := strings.TrimSpace(r.Category)
	if name == "" || category == "" {
		return storage.NewProduct{}, pkgerrors.New(pkgerrors.CodeValidation, "name and category are required")
	}
	if r.Stock < 0 {
		return storage.NewProduct{}, pkgerrors.New(pkgerrors.CodeValidation, "stock must be >= 0")
	}
	if r.MinStockLevel != nil && *r.MinStockLevel < 0 {
		return storage.NewProduct{}, pkgerrors.New(pkgerrors.CodeValidation, "minStockLevel must be >= 0")
	}
	if err := validateTargets(r.TargetUsers); err != nil {
		return storage.NewProduct{}, err
	}

	variants := make([]storage.NewVariant, 0, len(r.Variants))
	for _, v := range r.Variants {
		nv, err := v.toStorage()
		if err != nil {
			return storage.NewProduct{}, err
		}
		variants = append(variants, nv)
	}

	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	targets := r.TargetUsers
	if targets == nil {
		targets = []enums.UserRole{}
	}
	return storage.NewProduct{
		Name:          name,
		Description:   r.Description,
		ImageURL:      r.ImageURL,
		Category:      category,
		Tags:          tags,
		TargetUsers:   targets,
		Stock:         r.Stock,
		MinStockLevel: r.MinStockLevel,
		Variants:      variants,
	}, nil
}

func (r UpdateProductRequest) toStorage() (storage.ProductUpdate, error) {
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		return storage.ProductUpdate{}, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
	}
	if r.Category != nil && strings.TrimSpace(*r.Category) == "" {
		return storage.ProductUpdate{}, pkgerrors.New(pkgerrors.CodeValidation, "category cannot be empty")
	}
	if r.Stock != nil && *r.Stock < 0 {
		return storage.ProductUpdate{}, pkgerrors.New(pkgerrors.CodeValidation, "stock must be >= 0")
	}
	if r.TargetUsers != nil {
		if err := validateTargets(*r.TargetUsers); err != nil {
			return storage.ProductUpdate{}, err
		}
	}
	return storage.ProductUpdate{
		Name:        r.Name,
		Description: r.Description,
		ImageURL:    r.ImageURL,
		Category:    r.Category,
		Tags:        r.Tags,
		TargetUsers: r.TargetUsers,
		IsActive:    r.IsActive,
		Stock:       r.Stock,
	}, nil
}
