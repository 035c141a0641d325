// Package sqlstore implements storage.Store on GORM (Postgres or sqlite).
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kiranaconnect/kiranaconnect-backend/internal/storage"
	"github.com/kiranaconnect/kiranaconnect-backend/pkg/db"
	"github.com/kiranaconnect/kiranaconnect-backend/pkg/db/models"
	"github.com/kiranaconnect/kiranaconnect-backend/pkg/enums"
)

const (
	decrementInventorySQL = `
		UPDATE inventory_items
		SET available_qty = available_qty - ?,
			sold_qty = sold_qty + ?,
			updated_at = ?
		WHERE product_id = ? AND available_qty >= ?`

	restockCancelledSQL = `
		UPDATE inventory_items
		SET available_qty = available_qty + ?,
			sold_qty = sold_qty - ?,
			returned_qty = returned_qty + ?,
			updated_at = ?
		WHERE product_id = ?`

	syncProductStockSQL = `
		UPDATE products
		SET stock = (SELECT available_qty FROM inventory_items WHERE inventory_items.product_id = products.id),
			updated_at = ?
		WHERE id = ?`
)

// Store is the relational backend.
type Store struct {
	client *db.Client
	now    func() time.Time
}

var _ storage.Store = (*Store)(nil)

func New(client *db.Client) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("db client is required")
	}
	return &Store{client: client, now: time.Now}, nil
}

// AutoMigrate creates the schema through GORM; used for sqlite where the goose
// SQL files don't apply.
func (s *Store) AutoMigrate(ctx context.Context) error {
	return s.client.DB().WithContext(ctx).AutoMigrate(models.AllModels()...)
}

func (s *Store) conn(ctx context.Context) *gorm.DB {
	return s.client.DB().WithContext(ctx)
}

func (s *Store) timestamp() time.Time {
	return s.now().UTC()
}

func (s *Store) Ping(ctx context.Context) error { return s.client.Ping(ctx) }

func (s *Store) Close() error { return s.client.Close() }

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return storage.ErrNotFound
	}
	return err
}

// Users

func (s *Store) CreateUser(ctx context.Context, in storage.NewUser) (*storage.User, error) {
	m := models.User{
		Name:         in.Name,
		Email:        storage.NormalizeEmail(in.Email),
		PasswordHash: in.PasswordHash,
		Phone:        in.Phone,
		Role:         string(in.Role),
		ShopName:     in.ShopName,
		Region:       in.Region,
		IsActive:     true,
	}
	if err := s.conn(ctx).Create(&m).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, storage.ErrDuplicateEmail
		}
		return nil, err
	}
	return toUser(m), nil
}

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*storage.User, error) {
	var m models.User
	if err := s.conn(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return toUser(m), nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*storage.User, error) {
	var m models.User
	if err := s.conn(ctx).First(&m, "email = ?", storage.NormalizeEmail(email)).Error; err != nil {
		return nil, notFound(err)
	}
	return toUser(m), nil
}

func (s *Store) UpdateUser(ctx context.Context, id uuid.UUID, in storage.UserUpdate) (*storage.User, error) {
	var out *storage.User
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		var m models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&m, "id = ?", id).Error; err != nil {
			return notFound(err)
		}
		if in.Name != nil {
			m.Name = *in.Name
		}
		if in.Phone != nil {
			m.Phone = in.Phone
		}
		if in.ShopName != nil {
			m.ShopName = in.ShopName
		}
		if in.Region != nil {
			m.Region = in.Region
		}
		if in.IsActive != nil {
			m.IsActive = *in.IsActive
		}
		if err := tx.Save(&m).Error; err != nil {
			return err
		}
		out = toUser(m)
		return nil
	})
	return out, err
}

func (s *Store) ListUsers(ctx context.Context) ([]storage.User, error) {
	var rows []models.User
	if err := s.conn(ctx).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]storage.User, 0, len(rows))
	for _, m := range rows {
		out = append(out, *toUser(m))
	}
	return out, nil
}

// Products

func (s *Store) CreateProduct(ctx context.Context, in storage.NewProduct) (*storage.Product, error) {
	product := models.Product{
		Name:        in.Name,
		Description: in.Description,
		ImageURL:    in.ImageURL,
		Category:    in.Category,
		IsActive:    true,
		Stock:       in.Stock,
		Tags:        append([]string{}, in.Tags...),
		TargetUsers: rolesToList(in.TargetUsers),
	}
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&product).Error; err != nil {
			return err
		}
		for _, nv := range in.Variants {
			variant := toVariantModel(product.ID, nv)
			if err := tx.Create(&variant).Error; err != nil {
				return err
			}
			product.Variants = append(product.Variants, variant)
		}
		inventory := models.InventoryItem{
			ProductID:     product.ID,
			AvailableQty:  in.Stock,
			MinStockLevel: storage.MinStockOrDefault(in.MinStockLevel),
		}
		// Select("*") keeps an explicit zero min_stock_level from falling back to the column default.
		return tx.Select("*").Create(&inventory).Error
	})
	if err != nil {
		return nil, err
	}
	return toProduct(product), nil
}

func (s *Store) loadProduct(tx *gorm.DB, id uuid.UUID) (*models.Product, error) {
	var m models.Product
	if err := tx.Preload("Variants", orderVariants).First(&m, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

func orderVariants(tx *gorm.DB) *gorm.DB {
	return tx.Order("price ASC").Order("label ASC")
}

func (s *Store) GetProduct(ctx context.Context, id uuid.UUID) (*storage.Product, error) {
	m, err := s.loadProduct(s.conn(ctx), id)
	if err != nil {
		return nil, err
	}
	return toProduct(*m), nil
}

func (s *Store) ListProducts(ctx context.Context, filter storage.ProductFilter) ([]storage.Product, error) {
	query := s.conn(ctx).Preload("Variants", orderVariants)
	if !filter.IncludeInactive {
		query = query.Where("is_active = ?", true)
	}
	if category := strings.TrimSpace(filter.Category); category != "" {
		query = query.Where("LOWER(category) = ?", strings.ToLower(category))
	}
	var rows []models.Product
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]storage.Product, 0, len(rows))
	for _, m := range rows {
		product := toProduct(m)
		// Audience lives in a JSON column; filtering here keeps the query portable.
		if filter.Matches(*product) {
			out = append(out, *product)
		}
	}
	storage.SortProductsByName(out)
	return out, nil
}

func (s *Store) UpdateProduct(ctx context.Context, id uuid.UUID, in storage.ProductUpdate) (*storage.Product, error) {
	var out *storage.Product
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		m, err := s.loadProduct(tx, id)
		if err != nil {
			return err
		}
		now := s.timestamp()
		if in.Name != nil {
			m.Name = *in.Name
		}
		if in.Description != nil {
			m.Description = in.Description
		}
		if in.ImageURL != nil {
			m.ImageURL = in.ImageURL
		}
		if in.Category != nil {
			m.Category = *in.Category
		}
		if in.Tags != nil {
			m.Tags = append([]string{}, (*in.Tags)...)
		}
		if in.TargetUsers != nil {
			m.TargetUsers = rolesToList(*in.TargetUsers)
		}
		if in.IsActive != nil {
			m.IsActive = *in.IsActive
		}
		if in.Stock != nil {
			var inv models.InventoryItem
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&inv, "product_id = ?", id).Error; err != nil {
				return notFound(err)
			}
			if *in.Stock > inv.AvailableQty {
				inv.LastRestockDate = &now
			}
			inv.AvailableQty = *in.Stock
			if err := tx.Save(&inv).Error; err != nil {
				return err
			}
			m.Stock = *in.Stock
		}
		if err := tx.Omit(clause.Associations).Save(m).Error; err != nil {
			return err
		}
		out = toProduct(*m)
		return nil
	})
	return out, err
}

func (s *Store) DeactivateProduct(ctx context.Context, id uuid.UUID) error {
	res := s.conn(ctx).Model(&models.Product{}).Where("id = ?", id).Updates(map[string]any{
		"is_active":  false,
		"updated_at": s.timestamp(),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) AddVariant(ctx context.Context, productID uuid.UUID, in storage.NewVariant) (*storage.Variant, error) {
	var out *storage.Variant
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Product{}).Where("id = ?", productID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return storage.ErrNotFound
		}
		variant := toVariantModel(productID, in)
		if err := tx.Create(&variant).Error; err != nil {
			return err
		}
		v := toVariant(variant)
		out = &v
		return nil
	})
	return out, err
}

// Inventory

func (s *Store) GetInventory(ctx context.Context, productID uuid.UUID) (*storage.Inventory, error) {
	var m models.InventoryItem
	if err := s.conn(ctx).First(&m, "product_id = ?", productID).Error; err != nil {
		return nil, notFound(err)
	}
	return toInventory(m), nil
}

func (s *Store) ListInventory(ctx context.Context) ([]storage.Inventory, error) {
	return s.listInventory(s.conn(ctx))
}

func (s *Store) ListLowStock(ctx context.Context) ([]storage.Inventory, error) {
	return s.listInventory(s.conn(ctx).Where("available_qty <= min_stock_level"))
}

func (s *Store) listInventory(query *gorm.DB) ([]storage.Inventory, error) {
	var rows []models.InventoryItem
	if err := query.Order("product_id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]storage.Inventory, 0, len(rows))
	for _, m := range rows {
		out = append(out, *toInventory(m))
	}
	return out, nil
}

func (s *Store) UpdateInventory(ctx context.Context, productID uuid.UUID, in storage.InventoryUpdate) (*storage.Inventory, error) {
	var out *storage.Inventory
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		var m models.InventoryItem
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&m, "product_id = ?", productID).Error; err != nil {
			return notFound(err)
		}
		now := s.timestamp()
		if in.RestockQuantity > 0 {
			m.AvailableQty += in.RestockQuantity
			m.LastRestockDate = &now
		}
		if in.MinStockLevel != nil {
			m.MinStockLevel = *in.MinStockLevel
		}
		if err := tx.Save(&m).Error; err != nil {
			return err
		}
		if in.RestockQuantity > 0 {
			if err := tx.Exec(syncProductStockSQL, now, productID).Error; err != nil {
				return err
			}
		}
		out = toInventory(m)
		return nil
	})
	return out, err
}

// Orders

func (s *Store) PlaceOrder(ctx context.Context, in storage.NewOrder) (*storage.Order, error) {
	if err := storage.CheckQuantities(in.Items); err != nil {
		return nil, err
	}
	order := models.Order{
		UserID:      in.UserID,
		UserType:    string(in.UserType),
		TotalAmount: in.TotalAmount,
		Region:      in.Region,
		Status:      string(enums.OrderStatusPending),
	}
	for _, item := range in.Items {
		order.Items = append(order.Items, toOrderItemModel(item))
	}

	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		now := s.timestamp()
		order.CreatedAt = now
		order.UpdatedAt = now
		for _, pq := range storage.AggregateQuantities(in.Items) {
			res := tx.Exec(decrementInventorySQL, pq.Quantity, pq.Quantity, now, pq.ProductID, pq.Quantity)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return s.shortage(tx, pq)
			}
			if err := tx.Exec(syncProductStockSQL, now, pq.ProductID).Error; err != nil {
				return err
			}
		}
		return tx.Create(&order).Error
	})
	if err != nil {
		return nil, err
	}
	return toOrder(order), nil
}

// shortage explains a guarded decrement that matched no row.
func (s *Store) shortage(tx *gorm.DB, pq storage.ProductQuantity) error {
	var inv models.InventoryItem
	if err := tx.First(&inv, "product_id = ?", pq.ProductID).Error; err != nil {
		return notFound(err)
	}
	return &storage.StockError{ProductID: pq.ProductID, Requested: pq.Quantity, Available: inv.AvailableQty}
}

func (s *Store) GetOrder(ctx context.Context, id uuid.UUID) (*storage.Order, error) {
	var m models.Order
	if err := s.conn(ctx).Preload("Items").First(&m, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return toOrder(m), nil
}

func (s *Store) ListOrders(ctx context.Context, filter storage.OrderFilter) ([]storage.Order, error) {
	query := s.conn(ctx).Preload("Items")
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	var rows []models.Order
	if err := query.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]storage.Order, 0, len(rows))
	for _, m := range rows {
		out = append(out, *toOrder(m))
	}
	storage.SortOrdersNewestFirst(out)
	return out, nil
}

func (s *Store) TransitionOrder(ctx context.Context, id uuid.UUID, from, to storage.OrderStatus) (*storage.Order, error) {
	var out *storage.Order
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		now := s.timestamp()
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", id, string(from)).
			Updates(map[string]any{"status": string(to), "updated_at": now})
		if res.Error != nil {
			return res.Error
		}
		var m models.Order
		if err := tx.Preload("Items").First(&m, "id = ?", id).Error; err != nil {
			return notFound(err)
		}
		if res.RowsAffected == 0 {
			return storage.ErrStatusConflict
		}
		if to == enums.OrderStatusCancelled {
			for _, pq := range storage.AggregateQuantities(toOrder(m).Items) {
				if err := tx.Exec(restockCancelledSQL, pq.Quantity, pq.Quantity, pq.Quantity, now, pq.ProductID).Error; err != nil {
					return err
				}
				if err := tx.Exec(syncProductStockSQL, now, pq.ProductID).Error; err != nil {
					return err
				}
			}
		}
		out = toOrder(m)
		return nil
	})
	return out, err
}
