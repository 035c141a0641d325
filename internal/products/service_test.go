package products

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kiranaconnect/kiranaconnect-backend/internal/storage/memory"
	"github.com/kiranaconnect/kiranaconnect-backend/pkg/enums"
	pkgerrors "github.com/kiranaconnect/kiranaconnect-backend/pkg/errors"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	svc, err := NewService(memory.New())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func intPtr(v int) *int { return &v }

func riceRequest() CreateProductRequest {
	bulk := decimal.RequireFromString("2000")
	return CreateProductRequest{
		Name:          "Basmati Rice",
		Category:      "grains",
		Tags:          []string{"staple"},
		TargetUsers:   []enums.UserRole{enums.UserRoleVendor},
		Stock:         40,
		MinStockLevel: intPtr(5),
		Variants: []VariantRequest{
			{Label: "1kg", Price: decimal.RequireFromString("95.50"), Unit: "kg"},
			{Label: "25kg", Price: decimal.RequireFromString("2100"), BulkPrice: &bulk, MinBulkQuantity: intPtr(5), Unit: "bag"},
		},
	}
}

func TestCreateAndGet(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, riceRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(created.Variants) != 2 {
		t.Fatalf("expected 2 variants, got %d", len(created.Variants))
	}
	if created.Inventory == nil || created.Inventory.AvailableQuantity != 40 || created.Inventory.MinStockLevel != 5 {
		t.Fatalf("unexpected inventory %+v", created.Inventory)
	}

	got, err := svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Stock != 40 || got.Inventory.IsLowStock {
		t.Fatalf("unexpected detail %+v", got)
	}

	_, err = svc.Get(ctx, uuid.New())
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	cases := map[string]func(*CreateProductRequest){
		"missing name":      func(r *CreateProductRequest) { r.Name = " " },
		"negative price":    func(r *CreateProductRequest) { r.Variants[0].Price = decimal.NewFromInt(-1) },
		"negative bulk":     func(r *CreateProductRequest) { neg := decimal.NewFromInt(-5); r.Variants[1].BulkPrice = &neg },
		"zero min bulk":     func(r *CreateProductRequest) { r.Variants[1].MinBulkQuantity = intPtr(0) },
		"admin audience":    func(r *CreateProductRequest) { r.TargetUsers = []enums.UserRole{enums.UserRoleAdmin} },
		"negative minStock": func(r *CreateProductRequest) { r.MinStockLevel = intPtr(-1) },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := riceRequest()
			mutate(&req)
			_, err := svc.Create(ctx, req)
			if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestListFiltersAudienceAndHidesInactive(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	rice, err := svc.Create(ctx, riceRequest())
	if err != nil {
		t.Fatalf("create rice: %v", err)
	}
	oil := riceRequest()
	oil.Name = "Mustard Oil"
	oil.Category = "oils"
	oil.TargetUsers = nil
	oil.Stock = 3
	if _, err := svc.Create(ctx, oil); err != nil {
		t.Fatalf("create oil: %v", err)
	}

	all, err := svc.List(ctx, ListParams{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 products, got %d", len(all))
	}
	for _, p := range all {
		if p.Inventory == nil {
			t.Fatalf("expected inventory summary on %s", p.Name)
		}
		if p.Name == "Mustard Oil" && !p.Inventory.IsLowStock {
			t.Fatal("expected oil to be low stock")
		}
	}

	retail, err := svc.List(ctx, ListParams{Audience: enums.UserRoleRetail})
	if err != nil {
		t.Fatalf("list retail: %v", err)
	}
	if len(retail) != 1 || retail[0].Name != "Mustard Oil" {
		t.Fatalf("expected only untargeted product for retail, got %+v", retail)
	}

	oils, err := svc.List(ctx, ListParams{Category: "OILS"})
	if err != nil || len(oils) != 1 {
		t.Fatalf("expected category filter to match case-insensitively: %v %d", err, len(oils))
	}

	if err := svc.Delete(ctx, rice.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	remaining, _ := svc.List(ctx, ListParams{})
	if len(remaining) != 1 {
		t.Fatalf("expected soft-deleted product hidden, got %d", len(remaining))
	}
	if _, err := svc.Get(ctx, rice.ID); err != nil {
		t.Fatalf("soft-deleted product should still load by id: %v", err)
	}

	_, err = svc.List(ctx, ListParams{Audience: enums.UserRoleAdmin})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for admin audience, got %v", err)
	}
}

func TestUpdateStockSyncsInventory(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, riceRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := svc.Update(ctx, created.ID, UpdateProductRequest{Stock: intPtr(75)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Stock != 75 || updated.Inventory.AvailableQuantity != 75 {
		t.Fatalf("expected stock 75 synced, got %d / %d", updated.Stock, updated.Inventory.AvailableQuantity)
	}
	if updated.Inventory.LastRestockDate == nil {
		t.Fatal("expected restock date when stock increases")
	}

	_, err = svc.Update(ctx, uuid.New(), UpdateProductRequest{Stock: intPtr(1)})
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAddVariant(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, riceRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	variant, err := svc.AddVariant(ctx, created.ID, VariantRequest{Label: "5kg", Price: decimal.RequireFromString("450"), Unit: "bag"})
	if err != nil {
		t.Fatalf("add variant: %v", err)
	}
	if variant.MinBulkQuantity != 1 || variant.ProductID != created.ID {
		t.Fatalf("unexpected variant %+v", variant)
	}

	_, err = svc.AddVariant(ctx, uuid.New(), VariantRequest{Label: "5kg", Price: decimal.NewFromInt(1), Unit: "bag"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
