// Package storagetest is the behavioural contract every storage backend runs.
package storagetest

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiranaconnect/kiranaconnect-backend/internal/storage"
	"github.com/kiranaconnect/kiranaconnect-backend/pkg/enums"
)

// Factory returns an empty store for a single subtest.
type Factory func(t *testing.T) storage.Store

// Run executes the full contract against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("Users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("Products", func(t *testing.T) { testProducts(t, newStore(t)) })
	t.Run("ProductStockSync", func(t *testing.T) { testProductStockSync(t, newStore(t)) })
	t.Run("LowStock", func(t *testing.T) { testLowStock(t, newStore(t)) })
	t.Run("Restock", func(t *testing.T) { testRestock(t, newStore(t)) })
	t.Run("PlaceOrder", func(t *testing.T) { testPlaceOrder(t, newStore(t)) })
	t.Run("PlaceOrderShortageIsAtomic", func(t *testing.T) { testPlaceOrderShortage(t, newStore(t)) })
	t.Run("PlaceOrderAggregatesItems", func(t *testing.T) { testPlaceOrderAggregates(t, newStore(t)) })
	t.Run("PlaceOrderRejectsQuantityOverflow", func(t *testing.T) { testPlaceOrderQuantityOverflow(t, newStore(t)) })
	t.Run("ConcurrentOrdersNeverOversell", func(t *testing.T) { testConcurrentOrders(t, newStore(t)) })
	t.Run("ListOrders", func(t *testing.T) { testListOrders(t, newStore(t)) })
	t.Run("TransitionOrder", func(t *testing.T) { testTransitionOrder(t, newStore(t)) })
	t.Run("CancelRestocks", func(t *testing.T) { testCancelRestocks(t, newStore(t)) })
}

func strPtr(v string) *string { return &v }

func intPtr(v int) *int { return &v }

func createUser(t *testing.T, store storage.Store, email string, role enums.UserRole) *storage.User {
	t.Helper()
	user, err := store.CreateUser(context.Background(), storage.NewUser{
		Name:         "Test " + string(role),
		Email:        email,
		PasswordHash: "hash",
		Phone:        strPtr("+919800000000"),
		Role:         role,
		Region:       strPtr("Mumbai"),
	})
	require.NoError(t, err)
	return user
}

func createProduct(t *testing.T, store storage.Store, name string, stock, minStock int, targets ...enums.UserRole) *storage.Product {
	t.Helper()
	product, err := store.CreateProduct(context.Background(), storage.NewProduct{
		Name:          name,
		Description:   strPtr(name + " description"),
		Category:      "grains",
		Tags:          []string{"staple"},
		TargetUsers:   targets,
		Stock:         stock,
		MinStockLevel: intPtr(minStock),
		Variants: []storage.NewVariant{
			{Label: "1kg", Price: decimal.RequireFromString("95.50"), MinBulkQuantity: 1, Unit: "kg"},
			{Label: "25kg", Price: decimal.RequireFromString("2100"), BulkPrice: decimal.NewNullDecimal(decimal.RequireFromString("2000")), MinBulkQuantity: 5, Unit: "bag"},
		},
	})
	require.NoError(t, err)
	return product
}

func orderFor(user *storage.User, items ...storage.OrderItem) storage.NewOrder {
	return storage.NewOrder{
		UserID:      user.ID,
		UserType:    user.Role,
		TotalAmount: decimal.RequireFromString("100"),
		Region:      strPtr("Mumbai"),
		Items:       items,
	}
}

func itemFor(product *storage.Product, qty int) storage.OrderItem {
	variant := product.Variants[0]
	variantID := variant.ID
	return storage.OrderItem{
		ProductID:   product.ID,
		VariantID:   &variantID,
		ProductName: product.Name,
		Label:       variant.Label,
		Quantity:    qty,
		UnitPrice:   variant.Price,
	}
}

func available(t *testing.T, store storage.Store, productID uuid.UUID) int {
	t.Helper()
	inv, err := store.GetInventory(context.Background(), productID)
	require.NoError(t, err)
	return inv.AvailableQuantity
}

func testUsers(t *testing.T, store storage.Store) {
	ctx := context.Background()
	user := createUser(t, store, "Vendor@Example.com", enums.UserRoleVendor)
	assert.Equal(t, "vendor@example.com", user.Email)
	assert.True(t, user.IsActive)
	assert.NotEqual(t, uuid.Nil, user.ID)

	_, err := store.CreateUser(ctx, storage.NewUser{Name: "dup", Email: "VENDOR@example.com", PasswordHash: "x", Role: enums.UserRoleRetail})
	require.ErrorIs(t, err, storage.ErrDuplicateEmail)

	byEmail, err := store.GetUserByEmail(ctx, " vendor@EXAMPLE.com ")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)
	assert.Equal(t, "hash", byEmail.PasswordHash)

	_, err = store.GetUser(ctx, uuid.New())
	require.ErrorIs(t, err, storage.ErrNotFound)
	_, err = store.GetUserByEmail(ctx, "missing@example.com")
	require.ErrorIs(t, err, storage.ErrNotFound)

	updated, err := store.UpdateUser(ctx, user.ID, storage.UserUpdate{Name: strPtr("Kumar"), ShopName: strPtr("Kumar General Store")})
	require.NoError(t, err)
	assert.Equal(t, "Kumar", updated.Name)
	require.NotNil(t, updated.ShopName)
	assert.Equal(t, "Kumar General Store", *updated.ShopName)
	require.NotNil(t, updated.Region)
	assert.Equal(t, "Mumbai", *updated.Region)

	_, err = store.UpdateUser(ctx, uuid.New(), storage.UserUpdate{Name: strPtr("x")})
	require.ErrorIs(t, err, storage.ErrNotFound)

	createUser(t, store, "retail@example.com", enums.UserRoleRetail)
	users, err := store.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func testProducts(t *testing.T, store storage.Store) {
	ctx := context.Background()
	rice := createProduct(t, store, "Basmati Rice", 50, 10)
	oil := createProduct(t, store, "Mustard Oil", 20, 5, enums.UserRoleVendor)

	require.Len(t, rice.Variants, 2)
	assert.Equal(t, 50, rice.Stock)
	assert.True(t, rice.IsActive)

	got, err := store.GetProduct(ctx, rice.ID)
	require.NoError(t, err)
	assert.Equal(t, "Basmati Rice", got.Name)
	require.Len(t, got.Variants, 2)
	assert.Equal(t, []string{"staple"}, got.Tags)
	bulk, ok := got.Variant(rice.Variants[1].ID)
	require.True(t, ok)
	assert.True(t, bulk.BulkPrice.Valid)
	assert.True(t, bulk.BulkPrice.Decimal.Equal(decimal.RequireFromString("2000")))
	assert.True(t, bulk.Price.Equal(decimal.RequireFromString("2100")))
	assert.Equal(t, 5, bulk.MinBulkQuantity)

	inv, err := store.GetInventory(ctx, rice.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, inv.AvailableQuantity)
	assert.Equal(t, 10, inv.MinStockLevel)

	retail, err := store.ListProducts(ctx, storage.ProductFilter{Audience: enums.UserRoleRetail})
	require.NoError(t, err)
	require.Len(t, retail, 1)
	assert.Equal(t, rice.ID, retail[0].ID)

	vendor, err := store.ListProducts(ctx, storage.ProductFilter{Audience: enums.UserRoleVendor})
	require.NoError(t, err)
	assert.Len(t, vendor, 2)

	none, err := store.ListProducts(ctx, storage.ProductFilter{Category: "spices"})
	require.NoError(t, err)
	assert.Empty(t, none)

	require.NoError(t, store.DeactivateProduct(ctx, oil.ID))
	active, err := store.ListProducts(ctx, storage.ProductFilter{})
	require.NoError(t, err)
	require.Len(t, active, 1)
	all, err := store.ListProducts(ctx, storage.ProductFilter{IncludeInactive: true})
	require.NoError(t, err)
	assert.Len(t, all, 2)
	require.ErrorIs(t, store.DeactivateProduct(ctx, uuid.New()), storage.ErrNotFound)

	variant, err := store.AddVariant(ctx, rice.ID, storage.NewVariant{Label: "5kg", Price: decimal.RequireFromString("450"), Unit: "bag"})
	require.NoError(t, err)
	assert.Equal(t, rice.ID, variant.ProductID)
	assert.Equal(t, 1, variant.MinBulkQuantity)
	got, err = store.GetProduct(ctx, rice.ID)
	require.NoError(t, err)
	assert.Len(t, got.Variants, 3)

	_, err = store.AddVariant(ctx, uuid.New(), storage.NewVariant{Label: "x", Unit: "kg"})
	require.ErrorIs(t, err, storage.ErrNotFound)

	renamed, err := store.UpdateProduct(ctx, rice.ID, storage.ProductUpdate{Name: strPtr("Premium Basmati"), TargetUsers: &[]enums.UserRole{enums.UserRoleVendor}})
	require.NoError(t, err)
	assert.Equal(t, "Premium Basmati", renamed.Name)
	assert.Equal(t, []enums.UserRole{enums.UserRoleVendor}, renamed.TargetUsers)
}

func testProductStockSync(t *testing.T, store storage.Store) {
	ctx := context.Background()
	product := createProduct(t, store, "Atta Flour", 30, 10)

	updated, err := store.UpdateProduct(ctx, product.ID, storage.ProductUpdate{Stock: intPtr(80)})
	require.NoError(t, err)
	assert.Equal(t, 80, updated.Stock)

	inv, err := store.GetInventory(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 80, inv.AvailableQuantity)
	require.NotNil(t, inv.LastRestockDate)

	_, err = store.UpdateProduct(ctx, uuid.New(), storage.ProductUpdate{Stock: intPtr(1)})
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func testLowStock(t *testing.T, store storage.Store) {
	ctx := context.Background()
	createProduct(t, store, "Plenty", 50, 10)
	edge := createProduct(t, store, "Edge", 10, 10)
	low := createProduct(t, store, "Low", 3, 10)

	items, err := store.ListLowStock(ctx)
	require.NoError(t, err)

	ids := map[uuid.UUID]bool{}
	for _, inv := range items {
		assert.LessOrEqual(t, inv.AvailableQuantity, inv.MinStockLevel)
		ids[inv.ProductID] = true
	}
	assert.Equal(t, map[uuid.UUID]bool{edge.ID: true, low.ID: true}, ids)

	all, err := store.ListInventory(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func testRestock(t *testing.T, store storage.Store) {
	ctx := context.Background()
	product := createProduct(t, store, "Toor Dal", 5, 10)

	inv, err := store.UpdateInventory(ctx, product.ID, storage.InventoryUpdate{RestockQuantity: 20, MinStockLevel: intPtr(15)})
	require.NoError(t, err)
	assert.Equal(t, 25, inv.AvailableQuantity)
	assert.Equal(t, 15, inv.MinStockLevel)
	require.NotNil(t, inv.LastRestockDate)

	got, err := store.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 25, got.Stock)

	_, err = store.UpdateInventory(ctx, uuid.New(), storage.InventoryUpdate{RestockQuantity: 1})
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func testPlaceOrder(t *testing.T, store storage.Store) {
	ctx := context.Background()
	buyer := createUser(t, store, "buyer@example.com", enums.UserRoleRetail)
	product := createProduct(t, store, "Basmati Rice", 50, 10)

	order, err := store.PlaceOrder(ctx, orderFor(buyer, itemFor(product, 7)))
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.Equal(t, buyer.ID, order.UserID)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "1kg", order.Items[0].Label)
	assert.True(t, order.Items[0].UnitPrice.Equal(decimal.RequireFromString("95.50")))
	assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("100")))

	inv, err := store.GetInventory(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 43, inv.AvailableQuantity)
	assert.Equal(t, 7, inv.SoldQuantity)

	got, err := store.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 43, got.Stock)

	fetched, err := store.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, fetched.ID)
	require.Len(t, fetched.Items, 1)
	require.NotNil(t, fetched.Items[0].VariantID)

	_, err = store.GetOrder(ctx, uuid.New())
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func testPlaceOrderShortage(t *testing.T, store storage.Store) {
	ctx := context.Background()
	buyer := createUser(t, store, "buyer@example.com", enums.UserRoleVendor)
	plenty := createProduct(t, store, "Plenty", 100, 10)
	scarce := createProduct(t, store, "Scarce", 2, 1)

	_, err := store.PlaceOrder(ctx, orderFor(buyer, itemFor(plenty, 10), itemFor(scarce, 3)))
	require.ErrorIs(t, err, storage.ErrInsufficientStock)

	var stockErr *storage.StockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, scarce.ID, stockErr.ProductID)
	assert.Equal(t, 3, stockErr.Requested)
	assert.Equal(t, 2, stockErr.Available)

	assert.Equal(t, 100, available(t, store, plenty.ID))
	assert.Equal(t, 2, available(t, store, scarce.ID))

	orders, err := store.ListOrders(ctx, storage.OrderFilter{})
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func testPlaceOrderAggregates(t *testing.T, store storage.Store) {
	ctx := context.Background()
	buyer := createUser(t, store, "buyer@example.com", enums.UserRoleRetail)
	product := createProduct(t, store, "Sugar", 5, 1)

	_, err := store.PlaceOrder(ctx, orderFor(buyer, itemFor(product, 3), itemFor(product, 3)))
	var stockErr *storage.StockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, 6, stockErr.Requested)
	assert.Equal(t, 5, available(t, store, product.ID))

	order, err := store.PlaceOrder(ctx, orderFor(buyer, itemFor(product, 2), itemFor(product, 3)))
	require.NoError(t, err)
	assert.Len(t, order.Items, 2)
	assert.Equal(t, 0, available(t, store, product.ID))
}

func testPlaceOrderQuantityOverflow(t *testing.T, store storage.Store) {
	ctx := context.Background()
	buyer := createUser(t, store, "buyer@example.com", enums.UserRoleRetail)
	product := createProduct(t, store, "Rice", 10, 1)

	_, err := store.PlaceOrder(ctx, orderFor(buyer, itemFor(product, math.MaxInt), itemFor(product, 2)))
	require.ErrorIs(t, err, storage.ErrQuantityLimit)

	_, err = store.PlaceOrder(ctx, orderFor(buyer, itemFor(product, storage.MaxOrderQuantity), itemFor(product, 1)))
	var qtyErr *storage.QuantityError
	require.True(t, errors.As(err, &qtyErr))
	assert.Equal(t, product.ID, qtyErr.ProductID)
	assert.Equal(t, storage.MaxOrderQuantity+1, qtyErr.Requested)

	assert.Equal(t, 10, available(t, store, product.ID))
	orders, err := store.ListOrders(ctx, storage.OrderFilter{})
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func testConcurrentOrders(t *testing.T, store storage.Store) {
	ctx := context.Background()
	buyer := createUser(t, store, "buyer@example.com", enums.UserRoleRetail)
	product := createProduct(t, store, "Limited", 10, 1)

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.PlaceOrder(ctx, orderFor(buyer, itemFor(product, 3)))
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			if !errors.Is(err, storage.ErrInsufficientStock) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, succeeded)
	assert.Equal(t, 1, available(t, store, product.ID))
}

func testListOrders(t *testing.T, store storage.Store) {
	ctx := context.Background()
	first := createUser(t, store, "first@example.com", enums.UserRoleRetail)
	second := createUser(t, store, "second@example.com", enums.UserRoleVendor)
	product := createProduct(t, store, "Rice", 100, 10)

	a, err := store.PlaceOrder(ctx, orderFor(first, itemFor(product, 1)))
	require.NoError(t, err)
	_, err = store.PlaceOrder(ctx, orderFor(second, itemFor(product, 1)))
	require.NoError(t, err)
	c, err := store.PlaceOrder(ctx, orderFor(first, itemFor(product, 1)))
	require.NoError(t, err)

	all, err := store.ListOrders(ctx, storage.OrderFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i := 1; i < len(all); i++ {
		assert.False(t, all[i].CreatedAt.After(all[i-1].CreatedAt), "orders must be newest first")
	}

	mine, err := store.ListOrders(ctx, storage.OrderFilter{UserID: &first.ID})
	require.NoError(t, err)
	require.Len(t, mine, 2)
	ids := map[uuid.UUID]bool{mine[0].ID: true, mine[1].ID: true}
	assert.True(t, ids[a.ID] && ids[c.ID])
	for _, order := range mine {
		assert.Len(t, order.Items, 1)
	}
}

func testTransitionOrder(t *testing.T, store storage.Store) {
	ctx := context.Background()
	buyer := createUser(t, store, "buyer@example.com", enums.UserRoleRetail)
	product := createProduct(t, store, "Rice", 10, 1)
	order, err := store.PlaceOrder(ctx, orderFor(buyer, itemFor(product, 2)))
	require.NoError(t, err)

	processing, err := store.TransitionOrder(ctx, order.ID, enums.OrderStatusPending, enums.OrderStatusProcessing)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusProcessing, processing.Status)

	_, err = store.TransitionOrder(ctx, order.ID, enums.OrderStatusPending, enums.OrderStatusCancelled)
	require.ErrorIs(t, err, storage.ErrStatusConflict)

	_, err = store.TransitionOrder(ctx, uuid.New(), enums.OrderStatusPending, enums.OrderStatusProcessing)
	require.ErrorIs(t, err, storage.ErrNotFound)

	shipped, err := store.TransitionOrder(ctx, order.ID, enums.OrderStatusProcessing, enums.OrderStatusShipped)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusShipped, shipped.Status)
	assert.Equal(t, 8, available(t, store, product.ID))
}

func testCancelRestocks(t *testing.T, store storage.Store) {
	ctx := context.Background()
	buyer := createUser(t, store, "buyer@example.com", enums.UserRoleRetail)
	product := createProduct(t, store, "Rice", 10, 1)
	order, err := store.PlaceOrder(ctx, orderFor(buyer, itemFor(product, 4)))
	require.NoError(t, err)
	assert.Equal(t, 6, available(t, store, product.ID))

	cancelled, err := store.TransitionOrder(ctx, order.ID, enums.OrderStatusPending, enums.OrderStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, cancelled.Status)

	inv, err := store.GetInventory(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, inv.AvailableQuantity)
	assert.Equal(t, 0, inv.SoldQuantity)
	assert.Equal(t, 4, inv.ReturnedQuantity)

	got, err := store.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.Stock)
}
