package products

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/kiranaconnect/kiranaconnect-backend/internal/storage"
	pkgerrors "github.com/kiranaconnect/kiranaconnect-backend/pkg/errors"
)

// Service exposes the catalog operations.
type Service interface {
	List(ctx context.Context, params ListParams) ([]ProductSummaryDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*ProductDetailDTO, error)
	Create(ctx context.Context, req CreateProductRequest) (*ProductDetailDTO, error)
	Update(ctx context.Context, id uuid.UUID, req UpdateProductRequest) (*ProductDetailDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
	AddVariant(ctx context.Context, productID uuid.UUID, req VariantRequest) (*storage.Variant, error)
}

type productStore interface {
	CreateProduct(ctx context.Context, in storage.NewProduct) (*storage.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*storage.Product, error)
	ListProducts(ctx context.Context, filter storage.ProductFilter) ([]storage.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, in storage.ProductUpdate) (*storage.Product, error)
	DeactivateProduct(ctx context.Context, id uuid.UUID) error
	AddVariant(ctx context.Context, productID uuid.UUID, in storage.NewVariant) (*storage.Variant, error)
	GetInventory(ctx context.Context, productID uuid.UUID) (*storage.Inventory, error)
	ListInventory(ctx context.Context) ([]storage.Inventory, error)
}

type service struct {
	store productStore
}

func NewService(store productStore) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("product store is required")
	}
	return &service{store: store}, nil
}

func (s *service) List(ctx context.Context, params ListParams) ([]ProductSummaryDTO, error) {
	if params.Audience != "" && !params.Audience.IsCustomer() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "audience must be vendor or retail_user")
	}
	list, err := s.store.ListProducts(ctx, storage.ProductFilter{
		Category: params.Category,
		Audience: params.Audience,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list products")
	}
	inventory, err := s.store.ListInventory(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list inventory")
	}
	byProduct := make(map[uuid.UUID]storage.Inventory, len(inventory))
	for _, inv := range inventory {
		byProduct[inv.ProductID] = inv
	}

	out := make([]ProductSummaryDTO, 0, len(list))
	for _, p := range list {
		dto := ProductSummaryDTO{Product: p}
		if inv, ok := byProduct[p.ID]; ok {
			dto.Inventory = &StockSummary{AvailableQuantity: inv.AvailableQuantity, IsLowStock: inv.IsLowStock()}
		}
		out = append(out, dto)
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*ProductDetailDTO, error) {
	product, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "load product")
	}
	return s.detail(ctx, product)
}

func (s *service) Create(ctx context.Context, req CreateProductRequest) (*ProductDetailDTO, error) {
	in, err := req.toStorage()
	if err != nil {
		return nil, err
	}
	product, err := s.store.CreateProduct(ctx, in)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create product")
	}
	return s.detail(ctx, product)
}

func (s *service) Update(ctx context.Context, id uuid.UUID, req UpdateProductRequest) (*ProductDetailDTO, error) {
	in, err := req.toStorage()
	if err != nil {
		return nil, err
	}
	product, err := s.store.UpdateProduct(ctx, id, in)
	if err != nil {
		return nil, mapStoreError(err, "update product")
	}
	return s.detail(ctx, product)
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.store.DeactivateProduct(ctx, id); err != nil {
		return mapStoreError(err, "deactivate product")
	}
	return nil
}

func (s *service) AddVariant(ctx context.Context, productID uuid.UUID, req VariantRequest) (*storage.Variant, error) {
	in, err := req.toStorage()
	if err != nil {
		return nil, err
	}
	variant, err := s.store.AddVariant(ctx, productID, in)
	if err != nil {
		return nil, mapStoreError(err, "add variant")
	}
	return variant, nil
}

func (s *service) detail(ctx context.Context, product *storage.Product) (*ProductDetailDTO, error) {
	inv, err := s.store.GetInventory(ctx, product.ID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load inventory")
	}
	return &ProductDetailDTO{Product: *product, Inventory: toInventoryDTO(inv)}, nil
}

func mapStoreError(err error, action string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, action)
}
