// Package memory is the in-process Store used for dev and tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kiranaconnect/kiranaconnect-backend/internal/storage"
	"github.com/kiranaconnect/kiranaconnect-backend/pkg/enums"
)

// Store keeps every collection in maps behind one RWMutex. Multi-record
// operations hold the write lock across check and apply.
type Store struct {
	mu        sync.RWMutex
	now       func() time.Time
	users     map[uuid.UUID]storage.User
	emails    map[string]uuid.UUID
	products  map[uuid.UUID]storage.Product
	inventory map[uuid.UUID]storage.Inventory
	orders    map[uuid.UUID]storage.Order
}

var _ storage.Store = (*Store)(nil)

// Option configures the store.
type Option func(*Store)

// WithClock overrides time.Now for deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func New(opts ...Option) *Store {
	s := &Store{
		now:       time.Now,
		users:     make(map[uuid.UUID]storage.User),
		emails:    make(map[string]uuid.UUID),
		products:  make(map[uuid.UUID]storage.Product),
		inventory: make(map[uuid.UUID]storage.Inventory),
		orders:    make(map[uuid.UUID]storage.Order),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) timestamp() time.Time {
	return s.now().UTC()
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

// Users

func (s *Store) CreateUser(_ context.Context, in storage.NewUser) (*storage.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := storage.NormalizeEmail(in.Email)
	if _, exists := s.emails[email]; exists {
		return nil, storage.ErrDuplicateEmail
	}
	now := s.timestamp()
	user := storage.User{
		ID:           uuid.New(),
		Name:         in.Name,
		Email:        email,
		PasswordHash: in.PasswordHash,
		Phone:        cloneString(in.Phone),
		Role:         in.Role,
		ShopName:     cloneString(in.ShopName),
		Region:       cloneString(in.Region),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.users[user.ID] = user
	s.emails[email] = user.ID
	return copyUser(user), nil
}

func (s *Store) GetUser(_ context.Context, id uuid.UUID) (*storage.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyUser(user), nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*storage.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.emails[storage.NormalizeEmail(email)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyUser(s.users[id]), nil
}

func (s *Store) UpdateUser(_ context.Context, id uuid.UUID, in storage.UserUpdate) (*storage.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if in.Name != nil {
		user.Name = *in.Name
	}
	if in.Phone != nil {
		user.Phone = cloneString(in.Phone)
	}
	if in.ShopName != nil {
		user.ShopName = cloneString(in.ShopName)
	}
	if in.Region != nil {
		user.Region = cloneString(in.Region)
	}
	if in.IsActive != nil {
		user.IsActive = *in.IsActive
	}
	user.UpdatedAt = s.timestamp()
	s.users[id] = user
	return copyUser(user), nil
}

func (s *Store) ListUsers(context.Context) ([]storage.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]storage.User, 0, len(s.users))
	for _, user := range s.users {
		out = append(out, *copyUser(user))
	}
	return out, nil
}

// Products

func (s *Store) CreateProduct(_ context.Context, in storage.NewProduct) (*storage.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.timestamp()
	product := storage.Product{
		ID:          uuid.New(),
		Name:        in.Name,
		Description: cloneString(in.Description),
		ImageURL:    cloneString(in.ImageURL),
		Category:    in.Category,
		IsActive:    true,
		Stock:       in.Stock,
		Tags:        append([]string{}, in.Tags...),
		TargetUsers: append([]enums.UserRole{}, in.TargetUsers...),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, nv := range in.Variants {
		product.Variants = append(product.Variants, newVariant(product.ID, nv))
	}
	s.products[product.ID] = product
	s.inventory[product.ID] = storage.Inventory{
		ProductID:         product.ID,
		AvailableQuantity: in.Stock,
		MinStockLevel:     storage.MinStockOrDefault(in.MinStockLevel),
		UpdatedAt:         now,
	}
	return copyProduct(product), nil
}

func (s *Store) GetProduct(_ context.Context, id uuid.UUID) (*storage.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	product, ok := s.products[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyProduct(product), nil
}

func (s *Store) ListProducts(_ context.Context, filter storage.ProductFilter) ([]storage.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]storage.Product, 0, len(s.products))
	for _, product := range s.products {
		if filter.Matches(product) {
			out = append(out, *copyProduct(product))
		}
	}
	storage.SortProductsByName(out)
	return out, nil
}

func (s *Store) UpdateProduct(_ context.Context, id uuid.UUID, in storage.ProductUpdate) (*storage.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	product, ok := s.products[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	now := s.timestamp()
	if in.Name != nil {
		product.Name = *in.Name
	}
	if in.Description != nil {
		product.Description = cloneString(in.Description)
	}
	if in.ImageURL != nil {
		product.ImageURL = cloneString(in.ImageURL)
	}
	if in.Category != nil {
		product.Category = *in.Category
	}
	if in.Tags != nil {
		product.Tags = append([]string{}, (*in.Tags)...)
	}
	if in.TargetUsers != nil {
		product.TargetUsers = append([]enums.UserRole{}, (*in.TargetUsers)...)
	}
	if in.IsActive != nil {
		product.IsActive = *in.IsActive
	}
	if in.Stock != nil {
		inv := s.inventory[id]
		if *in.Stock > inv.AvailableQuantity {
			restocked := now
			inv.LastRestockDate = &restocked
		}
		inv.AvailableQuantity = *in.Stock
		inv.UpdatedAt = now
		s.inventory[id] = inv
		product.Stock = *in.Stock
	}
	product.UpdatedAt = now
	s.products[id] = product
	return copyProduct(product), nil
}

func (s *Store) DeactivateProduct(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	product, ok := s.products[id]
	if !ok {
		return storage.ErrNotFound
	}
	product.IsActive = false
	product.UpdatedAt = s.timestamp()
	s.products[id] = product
	return nil
}

func (s *Store) AddVariant(_ context.Context, productID uuid.UUID, in storage.NewVariant) (*storage.Variant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	product, ok := s.products[productID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	variant := newVariant(productID, in)
	product.Variants = append(product.Variants, variant)
	product.UpdatedAt = s.timestamp()
	s.products[productID] = product
	return &variant, nil
}

// Inventory

func (s *Store) GetInventory(_ context.Context, productID uuid.UUID) (*storage.Inventory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.inventory[productID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyInventory(inv), nil
}

func (s *Store) ListInventory(context.Context) ([]storage.Inventory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collectInventory(func(storage.Inventory) bool { return true }), nil
}

func (s *Store) ListLowStock(context.Context) ([]storage.Inventory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collectInventory(storage.Inventory.IsLowStock), nil
}

func (s *Store) collectInventory(keep func(storage.Inventory) bool) []storage.Inventory {
	out := make([]storage.Inventory, 0, len(s.inventory))
	for _, inv := range s.inventory {
		if keep(inv) {
			out = append(out, *copyInventory(inv))
		}
	}
	sortInventory(out)
	return out
}

func (s *Store) UpdateInventory(_ context.Context, productID uuid.UUID, in storage.InventoryUpdate) (*storage.Inventory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.inventory[productID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	now := s.timestamp()
	if in.RestockQuantity > 0 {
		inv.AvailableQuantity += in.RestockQuantity
		restocked := now
		inv.LastRestockDate = &restocked
		s.syncProductStock(productID, inv.AvailableQuantity, now)
	}
	if in.MinStockLevel != nil {
		inv.MinStockLevel = *in.MinStockLevel
	}
	inv.UpdatedAt = now
	s.inventory[productID] = inv
	return copyInventory(inv), nil
}

func (s *Store) syncProductStock(productID uuid.UUID, available int, now time.Time) {
	if product, ok := s.products[productID]; ok {
		product.Stock = available
		product.UpdatedAt = now
		s.products[productID] = product
	}
}

// Orders

func (s *Store) PlaceOrder(_ context.Context, in storage.NewOrder) (*storage.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := storage.CheckQuantities(in.Items); err != nil {
		return nil, err
	}
	wanted := storage.AggregateQuantities(in.Items)
	for _, pq := range wanted {
		inv, ok := s.inventory[pq.ProductID]
		if !ok {
			return nil, storage.ErrNotFound
		}
		if inv.AvailableQuantity < pq.Quantity {
			return nil, &storage.StockError{ProductID: pq.ProductID, Requested: pq.Quantity, Available: inv.AvailableQuantity}
		}
	}

	now := s.timestamp()
	for _, pq := range wanted {
		inv := s.inventory[pq.ProductID]
		inv.AvailableQuantity -= pq.Quantity
		inv.SoldQuantity += pq.Quantity
		inv.UpdatedAt = now
		s.inventory[pq.ProductID] = inv
		s.syncProductStock(pq.ProductID, inv.AvailableQuantity, now)
	}

	order := storage.Order{
		ID:          uuid.New(),
		UserID:      in.UserID,
		UserType:    in.UserType,
		TotalAmount: in.TotalAmount,
		Region:      cloneString(in.Region),
		Status:      enums.OrderStatusPending,
		Items:       copyItems(in.Items),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.orders[order.ID] = order
	return copyOrder(order), nil
}

func (s *Store) GetOrder(_ context.Context, id uuid.UUID) (*storage.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	order, ok := s.orders[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyOrder(order), nil
}

func (s *Store) ListOrders(_ context.Context, filter storage.OrderFilter) ([]storage.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]storage.Order, 0, len(s.orders))
	for _, order := range s.orders {
		if filter.UserID != nil && order.UserID != *filter.UserID {
			continue
		}
		out = append(out, *copyOrder(order))
	}
	storage.SortOrdersNewestFirst(out)
	return out, nil
}

func (s *Store) TransitionOrder(_ context.Context, id uuid.UUID, from, to storage.OrderStatus) (*storage.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if order.Status != from {
		return nil, storage.ErrStatusConflict
	}

	now := s.timestamp()
	if to == enums.OrderStatusCancelled {
		for _, pq := range storage.AggregateQuantities(order.Items) {
			inv, ok := s.inventory[pq.ProductID]
			if !ok {
				continue
			}
			inv.AvailableQuantity += pq.Quantity
			inv.SoldQuantity -= pq.Quantity
			inv.ReturnedQuantity += pq.Quantity
			inv.UpdatedAt = now
			s.inventory[pq.ProductID] = inv
			s.syncProductStock(pq.ProductID, inv.AvailableQuantity, now)
		}
	}
	order.Status = to
	order.UpdatedAt = now
	s.orders[id] = order
	return copyOrder(order), nil
}
