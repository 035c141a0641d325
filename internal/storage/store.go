// Package storage defines the persistence surface shared by every backend.
package storage

import (
	"context"

	"github.com/google/uuid"
)

// Store is implemented by the memory, sql and mongo backends.
type Store interface {
	CreateUser(ctx context.Context, in NewUser) (*User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	UpdateUser(ctx context.Context, id uuid.UUID, in UserUpdate) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)

	CreateProduct(ctx context.Context, in NewProduct) (*Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*Product, error)
	ListProducts(ctx context.Context, filter ProductFilter) ([]Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, in ProductUpdate) (*Product, error)
	DeactivateProduct(ctx context.Context, id uuid.UUID) error
	AddVariant(ctx context.Context, productID uuid.UUID, in NewVariant) (*Variant, error)

	GetInventory(ctx context.Context, productID uuid.UUID) (*Inventory, error)
	ListInventory(ctx context.Context) ([]Inventory, error)
	ListLowStock(ctx context.Context) ([]Inventory, error)
	UpdateInventory(ctx context.Context, productID uuid.UUID, in InventoryUpdate) (*Inventory, error)

	// PlaceOrder decrements inventory for every item and inserts the order
	// atomically. On a shortage nothing changes and a *StockError is returned.
	PlaceOrder(ctx context.Context, in NewOrder) (*Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*Order, error)
	ListOrders(ctx context.Context, filter OrderFilter) ([]Order, error)
	// TransitionOrder moves the order from one status to another only if it
	// is still in from. Moving to cancelled restocks the items.
	TransitionOrder(ctx context.Context, id uuid.UUID, from, to OrderStatus) (*Order, error)

	Ping(ctx context.Context) error
	Close() error
}
