// Package mongostore implements storage.Store on MongoDB.
//
// Standalone servers have no multi-document transactions, so order placement
// relies on conditional $inc updates and compensates applied decrements when a
// later step fails.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/multierr"

	"github.com/kiranaconnect/kiranaconnect-backend/internal/storage"
	"github.com/kiranaconnect/kiranaconnect-backend/pkg/enums"
	pkgmongo "github.com/kiranaconnect/kiranaconnect-backend/pkg/mongo"
)

const (
	usersCollection     = "users"
	productsCollection  = "products"
	inventoryCollection = "inventory"
	ordersCollection    = "orders"
)

// Store is the document backend.
type Store struct {
	client    *pkgmongo.Client
	users     *mongo.Collection
	products  *mongo.Collection
	inventory *mongo.Collection
	orders    *mongo.Collection
	now       func() time.Time
}

var _ storage.Store = (*Store)(nil)

// New binds the collections and ensures the indexes the store relies on.
func New(ctx context.Context, client *pkgmongo.Client) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("mongo client is required")
	}
	s := &Store{
		client:    client,
		users:     client.Collection(usersCollection),
		products:  client.Collection(productsCollection),
		inventory: client.Collection(inventoryCollection),
		orders:    client.Collection(ordersCollection),
		now:       time.Now,
	}
	if err := s.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)
	indexes := []struct {
		coll  *mongo.Collection
		model mongo.IndexModel
	}{
		{s.users, mongo.IndexModel{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique}},
		{s.inventory, mongo.IndexModel{Keys: bson.D{{Key: "productId", Value: 1}}, Options: unique}},
		{s.orders, mongo.IndexModel{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}}},
		{s.products, mongo.IndexModel{Keys: bson.D{{Key: "category", Value: 1}}}},
	}
	for _, idx := range indexes {
		if _, err := idx.coll.Indexes().CreateOne(ctx, idx.model); err != nil {
			return fmt.Errorf("create index on %s: %w", idx.coll.Name(), err)
		}
	}
	return nil
}

func (s *Store) timestamp() time.Time {
	// BSON dates carry milliseconds.
	return s.now().UTC().Truncate(time.Millisecond)
}

func (s *Store) Ping(ctx context.Context) error { return s.client.Ping(ctx) }

func (s *Store) Close() error { return s.client.Close() }

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return storage.ErrNotFound
	}
	return err
}

// Users

func (s *Store) CreateUser(ctx context.Context, in storage.NewUser) (*storage.User, error) {
	now := s.timestamp()
	doc := userDoc{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Email:        storage.NormalizeEmail(in.Email),
		PasswordHash: in.PasswordHash,
		Phone:        in.Phone,
		Role:         string(in.Role),
		ShopName:     in.ShopName,
		Region:       in.Region,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := s.users.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, storage.ErrDuplicateEmail
		}
		return nil, err
	}
	return doc.toUser()
}

func (s *Store) findUser(ctx context.Context, filter bson.M) (*storage.User, error) {
	var doc userDoc
	if err := s.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, notFound(err)
	}
	return doc.toUser()
}

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*storage.User, error) {
	return s.findUser(ctx, bson.M{"_id": id.String()})
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*storage.User, error) {
	return s.findUser(ctx, bson.M{"email": storage.NormalizeEmail(email)})
}

func (s *Store) UpdateUser(ctx context.Context, id uuid.UUID, in storage.UserUpdate) (*storage.User, error) {
	set := bson.M{"updatedAt": s.timestamp()}
	if in.Name != nil {
		set["name"] = *in.Name
	}
	if in.Phone != nil {
		set["phone"] = *in.Phone
	}
	if in.ShopName != nil {
		set["shopName"] = *in.ShopName
	}
	if in.Region != nil {
		set["region"] = *in.Region
	}
	if in.IsActive != nil {
		set["isActive"] = *in.IsActive
	}
	var doc userDoc
	err := s.users.FindOneAndUpdate(ctx, bson.M{"_id": id.String()}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if err != nil {
		return nil, notFound(err)
	}
	return doc.toUser()
}

func (s *Store) ListUsers(ctx context.Context) ([]storage.User, error) {
	cur, err := s.users.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]storage.User, 0, len(docs))
	for _, doc := range docs {
		user, err := doc.toUser()
		if err != nil {
			return nil, err
		}
		out = append(out, *user)
	}
	return out, nil
}

// Products

func (s *Store) CreateProduct(ctx context.Context, in storage.NewProduct) (*storage.Product, error) {
	now := s.timestamp()
	doc := productDoc{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Description: in.Description,
		ImageURL:    in.ImageURL,
		Category:    in.Category,
		IsActive:    true,
		Stock:       in.Stock,
		Tags:        append([]string{}, in.Tags...),
		TargetUsers: rolesToStrings(in.TargetUsers),
		Variants:    make([]variantDoc, 0, len(in.Variants)),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, nv := range in.Variants {
		doc.Variants = append(doc.Variants, newVariantDoc(nv))
	}
	inventory := inventoryDoc{
		ProductID:         doc.ID,
		AvailableQuantity: in.Stock,
		MinStockLevel:     storage.MinStockOrDefault(in.MinStockLevel),
		UpdatedAt:         now,
	}

	if _, err := s.products.InsertOne(ctx, doc); err != nil {
		return nil, err
	}
	if _, err := s.inventory.InsertOne(ctx, inventory); err != nil {
		_, cleanupErr := s.products.DeleteOne(context.WithoutCancel(ctx), bson.M{"_id": doc.ID})
		return nil, multierr.Append(err, cleanupErr)
	}
	return doc.toProduct()
}

func (s *Store) GetProduct(ctx context.Context, id uuid.UUID) (*storage.Product, error) {
	var doc productDoc
	if err := s.products.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc); err != nil {
		return nil, notFound(err)
	}
	return doc.toProduct()
}

func (s *Store) ListProducts(ctx context.Context, filter storage.ProductFilter) ([]storage.Product, error) {
	query := bson.M{}
	if !filter.IncludeInactive {
		query["isActive"] = true
	}
	cur, err := s.products.Find(ctx, query)
	if err != nil {
		return nil, err
	}
	var docs []productDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]storage.Product, 0, len(docs))
	for _, doc := range docs {
		product, err := doc.toProduct()
		if err != nil {
			return nil, err
		}
		if filter.Matches(*product) {
			out = append(out, *product)
		}
	}
	storage.SortProductsByName(out)
	return out, nil
}

func (s *Store) UpdateProduct(ctx context.Context, id uuid.UUID, in storage.ProductUpdate) (*storage.Product, error) {
	now := s.timestamp()
	set := bson.M{"updatedAt": now}
	if in.Name != nil {
		set["name"] = *in.Name
	}
	if in.Description != nil {
		set["description"] = *in.Description
	}
	if in.ImageURL != nil {
		set["imageUrl"] = *in.ImageURL
	}
	if in.Category != nil {
		set["category"] = *in.Category
	}
	if in.Tags != nil {
		set["tags"] = append([]string{}, (*in.Tags)...)
	}
	if in.TargetUsers != nil {
		set["targetUsers"] = rolesToStrings(*in.TargetUsers)
	}
	if in.IsActive != nil {
		set["isActive"] = *in.IsActive
	}

	if in.Stock != nil {
		var current inventoryDoc
		if err := s.inventory.FindOne(ctx, bson.M{"productId": id.String()}).Decode(&current); err != nil {
			return nil, notFound(err)
		}
		invSet := bson.M{"availableQuantity": *in.Stock, "updatedAt": now}
		if *in.Stock > current.AvailableQuantity {
			invSet["lastRestockDate"] = now
		}
		if _, err := s.inventory.UpdateOne(ctx, bson.M{"productId": id.String()}, bson.M{"$set": invSet}); err != nil {
			return nil, err
		}
		set["stock"] = *in.Stock
	}

	var doc productDoc
	err := s.products.FindOneAndUpdate(ctx, bson.M{"_id": id.String()}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if err != nil {
		return nil, notFound(err)
	}
	return doc.toProduct()
}

func (s *Store) DeactivateProduct(ctx context.Context, id uuid.UUID) error {
	res, err := s.products.UpdateOne(ctx, bson.M{"_id": id.String()},
		bson.M{"$set": bson.M{"isActive": false, "updatedAt": s.timestamp()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) AddVariant(ctx context.Context, productID uuid.UUID, in storage.NewVariant) (*storage.Variant, error) {
	doc := newVariantDoc(in)
	res, err := s.products.UpdateOne(ctx, bson.M{"_id": productID.String()}, bson.M{
		"$push": bson.M{"variants": doc},
		"$set":  bson.M{"updatedAt": s.timestamp()},
	})
	if err != nil {
		return nil, err
	}
	if res.MatchedCount == 0 {
		return nil, storage.ErrNotFound
	}
	variant, err := doc.toVariant(productID)
	if err != nil {
		return nil, err
	}
	return &variant, nil
}

// Inventory

func (s *Store) GetInventory(ctx context.Context, productID uuid.UUID) (*storage.Inventory, error) {
	var doc inventoryDoc
	if err := s.inventory.FindOne(ctx, bson.M{"productId": productID.String()}).Decode(&doc); err != nil {
		return nil, notFound(err)
	}
	return doc.toInventory()
}

func (s *Store) ListInventory(ctx context.Context) ([]storage.Inventory, error) {
	return s.listInventory(ctx, bson.M{})
}

func (s *Store) ListLowStock(ctx context.Context) ([]storage.Inventory, error) {
	return s.listInventory(ctx, bson.M{
		"$expr": bson.M{"$lte": bson.A{"$availableQuantity", "$minStockLevel"}},
	})
}

func (s *Store) listInventory(ctx context.Context, filter bson.M) ([]storage.Inventory, error) {
	cur, err := s.inventory.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "productId", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []inventoryDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]storage.Inventory, 0, len(docs))
	for _, doc := range docs {
		inv, err := doc.toInventory()
		if err != nil {
			return nil, err
		}
		out = append(out, *inv)
	}
	return out, nil
}

func (s *Store) UpdateInventory(ctx context.Context, productID uuid.UUID, in storage.InventoryUpdate) (*storage.Inventory, error) {
	now := s.timestamp()
	set := bson.M{"updatedAt": now}
	update := bson.M{"$set": set}
	if in.RestockQuantity > 0 {
		update["$inc"] = bson.M{"availableQuantity": in.RestockQuantity}
		set["lastRestockDate"] = now
	}
	if in.MinStockLevel != nil {
		set["minStockLevel"] = *in.MinStockLevel
	}

	var doc inventoryDoc
	err := s.inventory.FindOneAndUpdate(ctx, bson.M{"productId": productID.String()}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if err != nil {
		return nil, notFound(err)
	}
	if in.RestockQuantity > 0 {
		if err := s.syncProductStock(ctx, productID.String(), doc.AvailableQuantity, now); err != nil {
			return nil, err
		}
	}
	return doc.toInventory()
}

func (s *Store) syncProductStock(ctx context.Context, productID string, available int, now time.Time) error {
	_, err := s.products.UpdateOne(ctx, bson.M{"_id": productID},
		bson.M{"$set": bson.M{"stock": available, "updatedAt": now}})
	return err
}

// Orders

func (s *Store) PlaceOrder(ctx context.Context, in storage.NewOrder) (*storage.Order, error) {
	if err := storage.CheckQuantities(in.Items); err != nil {
		return nil, err
	}
	now := s.timestamp()
	var applied []storage.ProductQuantity

	fail := func(err error) (*storage.Order, error) {
		return nil, multierr.Append(err, s.compensate(context.WithoutCancel(ctx), applied, now))
	}

	for _, pq := range storage.AggregateQuantities(in.Items) {
		id := pq.ProductID.String()
		res, err := s.inventory.UpdateOne(ctx,
			bson.M{"productId": id, "availableQuantity": bson.M{"$gte": pq.Quantity}},
			bson.M{
				"$inc": bson.M{"availableQuantity": -pq.Quantity, "soldQuantity": pq.Quantity},
				"$set": bson.M{"updatedAt": now},
			})
		if err != nil {
			return fail(err)
		}
		if res.MatchedCount == 0 {
			return fail(s.shortage(ctx, pq))
		}
		applied = append(applied, pq)
		if _, err := s.products.UpdateOne(ctx, bson.M{"_id": id},
			bson.M{"$inc": bson.M{"stock": -pq.Quantity}, "$set": bson.M{"updatedAt": now}}); err != nil {
			return fail(err)
		}
	}

	doc := newOrderDoc(in, now)
	if _, err := s.orders.InsertOne(ctx, doc); err != nil {
		return fail(err)
	}
	return doc.toOrder()
}

// shortage explains a conditional decrement that matched nothing.
func (s *Store) shortage(ctx context.Context, pq storage.ProductQuantity) error {
	var doc inventoryDoc
	if err := s.inventory.FindOne(ctx, bson.M{"productId": pq.ProductID.String()}).Decode(&doc); err != nil {
		return notFound(err)
	}
	return &storage.StockError{ProductID: pq.ProductID, Requested: pq.Quantity, Available: doc.AvailableQuantity}
}

// compensate reverses decrements applied by a failed PlaceOrder.
func (s *Store) compensate(ctx context.Context, applied []storage.ProductQuantity, now time.Time) error {
	var errs error
	for _, pq := range applied {
		id := pq.ProductID.String()
		_, err := s.inventory.UpdateOne(ctx, bson.M{"productId": id}, bson.M{
			"$inc": bson.M{"availableQuantity": pq.Quantity, "soldQuantity": -pq.Quantity},
			"$set": bson.M{"updatedAt": now},
		})
		errs = multierr.Append(errs, err)
		_, err = s.products.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"stock": pq.Quantity}})
		errs = multierr.Append(errs, err)
	}
	return errs
}

func (s *Store) GetOrder(ctx context.Context, id uuid.UUID) (*storage.Order, error) {
	var doc orderDoc
	if err := s.orders.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc); err != nil {
		return nil, notFound(err)
	}
	return doc.toOrder()
}

func (s *Store) ListOrders(ctx context.Context, filter storage.OrderFilter) ([]storage.Order, error) {
	query := bson.M{}
	if filter.UserID != nil {
		query["userId"] = filter.UserID.String()
	}
	cur, err := s.orders.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	var docs []orderDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]storage.Order, 0, len(docs))
	for _, doc := range docs {
		order, err := doc.toOrder()
		if err != nil {
			return nil, err
		}
		out = append(out, *order)
	}
	storage.SortOrdersNewestFirst(out)
	return out, nil
}

func (s *Store) TransitionOrder(ctx context.Context, id uuid.UUID, from, to storage.OrderStatus) (*storage.Order, error) {
	now := s.timestamp()
	var doc orderDoc
	err := s.orders.FindOneAndUpdate(ctx,
		bson.M{"_id": id.String(), "status": string(from)},
		bson.M{"$set": bson.M{"status": string(to), "updatedAt": now}},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		count, countErr := s.orders.CountDocuments(ctx, bson.M{"_id": id.String()})
		if countErr != nil {
			return nil, countErr
		}
		if count == 0 {
			return nil, storage.ErrNotFound
		}
		return nil, storage.ErrStatusConflict
	}
	if err != nil {
		return nil, err
	}

	order, err := doc.toOrder()
	if err != nil {
		return nil, err
	}
	if to == enums.OrderStatusCancelled {
		if err := s.restock(ctx, order.Items, now); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// restock returns cancelled quantities to inventory. The status update wins
// the race first, so each order is restocked at most once.
func (s *Store) restock(ctx context.Context, items []storage.OrderItem, now time.Time) error {
	var errs error
	for _, pq := range storage.AggregateQuantities(items) {
		id := pq.ProductID.String()
		_, err := s.inventory.UpdateOne(ctx, bson.M{"productId": id}, bson.M{
			"$inc": bson.M{
				"availableQuantity": pq.Quantity,
				"soldQuantity":      -pq.Quantity,
				"returnedQuantity":  pq.Quantity,
			},
			"$set": bson.M{"updatedAt": now},
		})
		errs = multierr.Append(errs, err)
		_, err = s.products.UpdateOne(ctx, bson.M{"_id": id},
			bson.M{"$inc": bson.M{"stock": pq.Quantity}, "$set": bson.M{"updatedAt": now}})
		errs = multierr.Append(errs, err)
	}
	return errs
}
