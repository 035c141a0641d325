package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/kiranaconnect/kiranaconnect-backend/internal/products"
	"github.com/kiranaconnect/kiranaconnect-backend/internal/storage"
	pkgerrors "github.com/kiranaconnect/kiranaconnect-backend/pkg/errors"
)

// ItemDTO is an inventory record joined with its product.
type ItemDTO struct {
	products.InventoryDTO
	Product *storage.Product `json:"product"`
}

// UpdateRequest restocks and/or moves the low-stock threshold.
type UpdateRequest struct {
	RestockQuantity *int `json:"restockQuantity,omitempty" validate:"omitempty,gt=0"`
	MinStockLevel   *int `json:"minStockLevel,omitempty" validate:"omitempty,gte=0"`
}

// Service exposes the admin inventory views.
type Service interface {
	List(ctx context.Context) ([]ItemDTO, error)
	LowStock(ctx context.Context) ([]ItemDTO, error)
	Update(ctx context.Context, productID uuid.UUID, req UpdateRequest) (*ItemDTO, error)
}

type inventoryStore interface {
	ListInventory(ctx context.Context) ([]storage.Inventory, error)
	ListLowStock(ctx context.Context) ([]storage.Inventory, error)
	UpdateInventory(ctx context.Context, productID uuid.UUID, in storage.InventoryUpdate) (*storage.Inventory, error)
	ListProducts(ctx context.Context, filter storage.ProductFilter) ([]storage.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*storage.Product, error)
}

type service struct {
	store inventoryStore
}

func NewService(store inventoryStore) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("inventory store is required")
	}
	return &service{store: store}, nil
}

func (s *service) List(ctx context.Context) ([]ItemDTO, error) {
	records, err := s.store.ListInventory(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list inventory")
	}
	return s.join(ctx, records)
}

func (s *service) LowStock(ctx context.Context) ([]ItemDTO, error) {
	records, err := s.store.ListLowStock(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list low stock")
	}
	return s.join(ctx, records)
}

func (s *service) Update(ctx context.Context, productID uuid.UUID, req UpdateRequest) (*ItemDTO, error) {
	if req.RestockQuantity == nil && req.MinStockLevel == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "restockQuantity or minStockLevel is required")
	}
	update := storage.InventoryUpdate{MinStockLevel: req.MinStockLevel}
	if req.RestockQuantity != nil {
		if *req.RestockQuantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "restockQuantity must be > 0")
		}
		update.RestockQuantity = *req.RestockQuantity
	}
	if req.MinStockLevel != nil && *req.MinStockLevel < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "minStockLevel must be >= 0")
	}

	inv, err := s.store.UpdateInventory(ctx, productID, update)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory record not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update inventory")
	}
	product, err := s.store.GetProduct(ctx, productID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	return &ItemDTO{InventoryDTO: *products.ToInventoryDTO(inv), Product: product}, nil
}

func (s *service) join(ctx context.Context, records []storage.Inventory) ([]ItemDTO, error) {
	catalog, err := s.store.ListProducts(ctx, storage.ProductFilter{IncludeInactive: true})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list products")
	}
	byID := make(map[uuid.UUID]*storage.Product, len(catalog))
	for i := range catalog {
		byID[catalog[i].ID] = &catalog[i]
	}

	out := make([]ItemDTO, 0, len(records))
	for i := range records {
		out = append(out, ItemDTO{
			InventoryDTO: *products.ToInventoryDTO(&records[i]),
			Product:      byID[records[i].ProductID],
		})
	}
	return out, nil
}
