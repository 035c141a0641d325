package inventory

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/kiranaconnect/kiranaconnect-backend/internal/storage"
	"github.com/kiranaconnect/kiranaconnect-backend/internal/storage/memory"
	pkgerrors "github.com/kiranaconnect/kiranaconnect-backend/pkg/errors"
)

func intPtr(v int) *int { return &v }

func seedProduct(t *testing.T, store storage.Store, name string, stock, minStock int) *storage.Product {
	t.Helper()
	p, err := store.CreateProduct(context.Background(), storage.NewProduct{
		Name:          name,
		Category:      "staples",
		Stock:         stock,
		MinStockLevel: intPtr(minStock),
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	return p
}

func TestLowStockIsExactlyAtOrBelowThreshold(t *testing.T) {
	store := memory.New()
	below := seedProduct(t, store, "Atta", 3, 10)
	equal := seedProduct(t, store, "Sugar", 10, 10)
	seedProduct(t, store, "Salt", 11, 10)
	svc, _ := NewService(store)

	low, err := svc.LowStock(context.Background())
	if err != nil {
		t.Fatalf("low stock: %v", err)
	}
	if len(low) != 2 {
		t.Fatalf("expected 2 low stock records, got %d", len(low))
	}
	seen := map[uuid.UUID]bool{}
	for _, item := range low {
		if !item.IsLowStock || item.Product == nil {
			t.Fatalf("unexpected item %+v", item)
		}
		seen[item.ProductID] = true
	}
	if !seen[below.ID] || !seen[equal.ID] {
		t.Fatal("expected below and equal threshold products")
	}

	all, err := svc.List(context.Background())
	if err != nil || len(all) != 3 {
		t.Fatalf("expected 3 records, got %d (%v)", len(all), err)
	}
}

func TestUpdateRestocks(t *testing.T) {
	store := memory.New()
	p := seedProduct(t, store, "Atta", 3, 10)
	svc, _ := NewService(store)

	item, err := svc.Update(context.Background(), p.ID, UpdateRequest{RestockQuantity: intPtr(20), MinStockLevel: intPtr(5)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if item.AvailableQuantity != 23 || item.MinStockLevel != 5 || item.IsLowStock {
		t.Fatalf("unexpected item %+v", item.InventoryDTO)
	}
	if item.LastRestockDate == nil {
		t.Fatal("expected restock date")
	}
	if item.Product == nil || item.Product.Stock != 23 {
		t.Fatalf("expected product stock synced, got %+v", item.Product)
	}
}

func TestUpdateValidation(t *testing.T) {
	store := memory.New()
	p := seedProduct(t, store, "Atta", 3, 10)
	svc, _ := NewService(store)
	ctx := context.Background()

	cases := []struct {
		name string
		id   uuid.UUID
		req  UpdateRequest
		code pkgerrors.Code
	}{
		{"empty", p.ID, UpdateRequest{}, pkgerrors.CodeValidation},
		{"zero restock", p.ID, UpdateRequest{RestockQuantity: intPtr(0)}, pkgerrors.CodeValidation},
		{"negative threshold", p.ID, UpdateRequest{MinStockLevel: intPtr(-1)}, pkgerrors.CodeValidation},
		{"unknown product", uuid.New(), UpdateRequest{RestockQuantity: intPtr(1)}, pkgerrors.CodeNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Update(ctx, tc.id, tc.req)
			if !pkgerrors.IsCode(err, tc.code) {
				t.Fatalf("expected %s, got %v", tc.code, err)
			}
		})
	}
}
