package mongostore

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kiranaconnect/kiranaconnect-backend/internal/storage"
	"github.com/kiranaconnect/kiranaconnect-backend/pkg/enums"
)

// Money is stored as its decimal string so no precision is lost in BSON doubles.

type userDoc struct {
	ID           string    `bson:"_id"`
	Name         string    `bson:"name"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"passwordHash"`
	Phone        *string   `bson:"phone,omitempty"`
	Role         string    `bson:"role"`
	ShopName     *string   `bson:"shopName,omitempty"`
	Region       *string   `bson:"region,omitempty"`
	IsActive     bool      `bson:"isActive"`
	CreatedAt    time.Time `bson:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt"`
}

type variantDoc struct {
	ID              string  `bson:"id"`
	Label           string  `bson:"label"`
	Price           string  `bson:"price"`
	BulkPrice       *string `bson:"bulkPrice,omitempty"`
	MinBulkQuantity int     `bson:"minBulkQuantity"`
	Unit            string  `bson:"unit"`
}

type productDoc struct {
	ID          string       `bson:"_id"`
	Name        string       `bson:"name"`
	Description *string      `bson:"description,omitempty"`
	ImageURL    *string      `bson:"imageUrl,omitempty"`
	Category    string       `bson:"category"`
	IsActive    bool         `bson:"isActive"`
	Stock       int          `bson:"stock"`
	Tags        []string     `bson:"tags"`
	TargetUsers []string     `bson:"targetUsers"`
	Variants    []variantDoc `bson:"variants"`
	CreatedAt   time.Time    `bson:"createdAt"`
	UpdatedAt   time.Time    `bson:"updatedAt"`
}

type inventoryDoc struct {
	ProductID         string     `bson:"productId"`
	AvailableQuantity int        `bson:"availableQuantity"`
	SoldQuantity      int        `bson:"soldQuantity"`
	ReturnedQuantity  int        `bson:"returnedQuantity"`
	MinStockLevel     int        `bson:"minStockLevel"`
	LastRestockDate   *time.Time `bson:"lastRestockDate,omitempty"`
	UpdatedAt         time.Time  `bson:"updatedAt"`
}

type orderItemDoc struct {
	ProductID   string  `bson:"productId"`
	VariantID   *string `bson:"variantId,omitempty"`
	ProductName string  `bson:"productName"`
	Label       string  `bson:"label"`
	Quantity    int     `bson:"quantity"`
	UnitPrice   string  `bson:"unitPrice"`
}

type orderDoc struct {
	ID          string         `bson:"_id"`
	UserID      string         `bson:"userId"`
	UserType    string         `bson:"userType"`
	TotalAmount string         `bson:"totalAmount"`
	Region      *string        `bson:"region,omitempty"`
	Status      string         `bson:"status"`
	Items       []orderItemDoc `bson:"items"`
	CreatedAt   time.Time      `bson:"createdAt"`
	UpdatedAt   time.Time      `bson:"updatedAt"`
}

func parseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("decode id %q: %w", raw, err)
	}
	return id, nil
}

func parseMoney(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("decode amount %q: %w", raw, err)
	}
	return d, nil
}

func (d userDoc) toUser() (*storage.User, error) {
	id, err := parseID(d.ID)
	if err != nil {
		return nil, err
	}
	return &storage.User{
		ID:           id,
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Phone:        d.Phone,
		Role:         enums.UserRole(d.Role),
		ShopName:     d.ShopName,
		Region:       d.Region,
		IsActive:     d.IsActive,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}, nil
}

func newVariantDoc(in storage.NewVariant) variantDoc {
	minBulk := in.MinBulkQuantity
	if minBulk < 1 {
		minBulk = 1
	}
	doc := variantDoc{
		ID:              uuid.NewString(),
		Label:           in.Label,
		Price:           in.Price.String(),
		MinBulkQuantity: minBulk,
		Unit:            in.Unit,
	}
	if in.BulkPrice.Valid {
		bulk := in.BulkPrice.Decimal.String()
		doc.BulkPrice = &bulk
	}
	return doc
}

func (d variantDoc) toVariant(productID uuid.UUID) (storage.Variant, error) {
	id, err := parseID(d.ID)
	if err != nil {
		return storage.Variant{}, err
	}
	price, err := parseMoney(d.Price)
	if err != nil {
		return storage.Variant{}, err
	}
	v := storage.Variant{
		ID:              id,
		ProductID:       productID,
		Label:           d.Label,
		Price:           price,
		MinBulkQuantity: d.MinBulkQuantity,
		Unit:            d.Unit,
	}
	if d.BulkPrice != nil {
		bulk, err := parseMoney(*d.BulkPrice)
		if err != nil {
			return storage.Variant{}, err
		}
		v.BulkPrice = decimal.NewNullDecimal(bulk)
	}
	return v, nil
}

func (d productDoc) toProduct() (*storage.Product, error) {
	id, err := parseID(d.ID)
	if err != nil {
		return nil, err
	}
	variants := make([]storage.Variant, 0, len(d.Variants))
	for _, vd := range d.Variants {
		v, err := vd.toVariant(id)
		if err != nil {
			return nil, err
		}
		variants = append(variants, v)
	}
	targets := make([]enums.UserRole, 0, len(d.TargetUsers))
	for _, role := range d.TargetUsers {
		targets = append(targets, enums.UserRole(role))
	}
	return &storage.Product{
		ID:          id,
		Name:        d.Name,
		Description: d.Description,
		ImageURL:    d.ImageURL,
		Category:    d.Category,
		IsActive:    d.IsActive,
		Stock:       d.Stock,
		Tags:        append([]string{}, d.Tags...),
		TargetUsers: targets,
		Variants:    variants,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}, nil
}

func rolesToStrings(roles []enums.UserRole) []string {
	out := make([]string, 0, len(roles))
	for _, role := range roles {
		out = append(out, string(role))
	}
	return out
}

func (d inventoryDoc) toInventory() (*storage.Inventory, error) {
	id, err := parseID(d.ProductID)
	if err != nil {
		return nil, err
	}
	return &storage.Inventory{
		ProductID:         id,
		AvailableQuantity: d.AvailableQuantity,
		SoldQuantity:      d.SoldQuantity,
		ReturnedQuantity:  d.ReturnedQuantity,
		MinStockLevel:     d.MinStockLevel,
		LastRestockDate:   d.LastRestockDate,
		UpdatedAt:         d.UpdatedAt,
	}, nil
}

func newOrderDoc(in storage.NewOrder, now time.Time) orderDoc {
	items := make([]orderItemDoc, 0, len(in.Items))
	for _, item := range in.Items {
		doc := orderItemDoc{
			ProductID:   item.ProductID.String(),
			ProductName: item.ProductName,
			Label:       item.Label,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice.String(),
		}
		if item.VariantID != nil {
			variantID := item.VariantID.String()
			doc.VariantID = &variantID
		}
		items = append(items, doc)
	}
	return orderDoc{
		ID:          uuid.NewString(),
		UserID:      in.UserID.String(),
		UserType:    string(in.UserType),
		TotalAmount: in.TotalAmount.String(),
		Region:      in.Region,
		Status:      string(enums.OrderStatusPending),
		Items:       items,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (d orderDoc) toOrder() (*storage.Order, error) {
	id, err := parseID(d.ID)
	if err != nil {
		return nil, err
	}
	userID, err := parseID(d.UserID)
	if err != nil {
		return nil, err
	}
	total, err := parseMoney(d.TotalAmount)
	if err != nil {
		return nil, err
	}
	items := make([]storage.OrderItem, 0, len(d.Items))
	for _, doc := range d.Items {
		productID, err := parseID(doc.ProductID)
		if err != nil {
			return nil, err
		}
		unitPrice, err := parseMoney(doc.UnitPrice)
		if err != nil {
			return nil, err
		}
		item := storage.OrderItem{
			ProductID:   productID,
			ProductName: doc.ProductName,
			Label:       doc.Label,
			Quantity:    doc.Quantity,
			UnitPrice:   unitPrice,
		}
		if doc.VariantID != nil {
			variantID, err := parseID(*doc.VariantID)
			if err != nil {
				return nil, err
			}
			item.VariantID = &variantID
		}
		items = append(items, item)
	}
	return &storage.Order{
		ID:          id,
		UserID:      userID,
		UserType:    enums.UserRole(d.UserType),
		TotalAmount: total,
		Region:      d.Region,
		Status:      enums.OrderStatus(d.Status),
		Items:       items,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}, nil
}
