package seed

import (
	"context"
	"testing"

	"github.com/kiranaconnect/kiranaconnect-backend/internal/storage"
	"github.com/kiranaconnect/kiranaconnect-backend/internal/storage/memory"
	"github.com/kiranaconnect/kiranaconnect-backend/pkg/config"
	"github.com/kiranaconnect/kiranaconnect-backend/pkg/enums"
	"github.com/kiranaconnect/kiranaconnect-backend/pkg/security"
)

// fastPasswords keeps argon2 cheap in tests.
var fastPasswords = config.PasswordConfig{
	ArgonMemoryKB:    64,
	ArgonTime:        1,
	ArgonParallelism: 1,
	ArgonSaltLen:     16,
	ArgonKeyLen:      32,
}

func TestDefaultFixtureParses(t *testing.T) {
	f, err := DefaultFixture()
	if err != nil {
		t.Fatalf("default fixture: %v", err)
	}
	if len(f.Users) != 3 || f.Users[0].Role != enums.UserRoleAdmin {
		t.Fatalf("unexpected users %+v", f.Users)
	}
	if len(f.Products) < 5 {
		t.Fatalf("expected staples catalog, got %d products", len(f.Products))
	}
	if len(f.Products[0].Variants) != 3 || f.Products[0].Variants[0].BulkPrice == nil {
		t.Fatalf("expected anchored staple variants, got %+v", f.Products[0].Variants)
	}
}

func TestParseFixtureRejectsBadData(t *testing.T) {
	cases := map[string]string{
		"bad role":  "users:\n  - {email: a@b.c, password: x, role: owner}\n",
		"bad price": "products:\n  - {name: Rice, category: Grains, variants: [{label: 1kg, price: abc}]}\n",
		"no email":  "users:\n  - {password: x, role: admin}\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseFixture([]byte(doc)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestRunSeedsAndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	f, err := DefaultFixture()
	if err != nil {
		t.Fatalf("fixture: %v", err)
	}

	res, err := Run(ctx, store, f, Options{Password: fastPasswords})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Skipped || res.UsersCreated != 3 || res.ProductsCreated != len(f.Products) {
		t.Fatalf("unexpected result %+v", res)
	}

	vendor, err := store.GetUserByEmail(ctx, "vendor@example.com")
	if err != nil {
		t.Fatalf("vendor: %v", err)
	}
	if vendor.ShopName == nil || *vendor.ShopName != "Kumar General Store" {
		t.Fatalf("unexpected vendor %+v", vendor)
	}
	ok, err := security.VerifyPassword("vendor123", vendor.PasswordHash)
	if err != nil || !ok {
		t.Fatalf("expected seeded password to verify, ok=%v err=%v", ok, err)
	}

	again, err := Run(ctx, store, f, Options{Password: fastPasswords})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if !again.Skipped {
		t.Fatalf("expected second run to skip, got %+v", again)
	}

	forced, err := Run(ctx, store, f, Options{Password: fastPasswords, Force: true})
	if err != nil {
		t.Fatalf("forced run: %v", err)
	}
	if forced.Skipped || forced.UsersCreated != 0 || forced.ProductsCreated != 0 {
		t.Fatalf("forced run should only fill gaps, got %+v", forced)
	}

	products, err := store.ListProducts(ctx, storage.ProductFilter{IncludeInactive: true})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(products) != len(f.Products) {
		t.Fatalf("expected %d products, got %d", len(f.Products), len(products))
	}
	inv, err := store.GetInventory(ctx, products[0].ID)
	if err != nil {
		t.Fatalf("inventory: %v", err)
	}
	if inv.MinStockLevel != 50 {
		t.Fatalf("expected min stock 50, got %d", inv.MinStockLevel)
	}
}
