package orders

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kiranaconnect/kiranaconnect-backend/internal/storage"
	"github.com/kiranaconnect/kiranaconnect-backend/internal/users"
	"github.com/kiranaconnect/kiranaconnect-backend/pkg/enums"
)

// Actor is the authenticated caller.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

func (a Actor) IsAdmin() bool {
	return a.Role == enums.UserRoleAdmin
}

// OrderItemRequest is one requested line; the server prices it.
type OrderItemRequest struct {
	ProductID uuid.UUID  `json:"productId" validate:"required"`
	VariantID *uuid.UUID `json:"variantId,omitempty"`
	Quantity  int        `json:"quantity" validate:"gt=0,lte=100000"`
}

// PlaceOrderRequest is the checkout payload. TotalAmount is kept, rounded to cents.
type PlaceOrderRequest struct {
	Items       []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
	TotalAmount decimal.Decimal    `json:"totalAmount"`
	Region      *string            `json:"region,omitempty" validate:"omitempty,max=80"`
}

// UpdateStatusRequest moves an order along its lifecycle.
type UpdateStatusRequest struct {
	Status enums.OrderStatus `json:"status" validate:"required"`
}

// OrderDTO is an order with the server-side subtotal and buyer summary.
type OrderDTO struct {
	storage.Order
	ComputedTotal decimal.Decimal    `json:"computedTotal"`
	Customer      *users.CustomerDTO `json:"customer,omitempty"`
}

func toDTO(order *storage.Order, customer *users.CustomerDTO) *OrderDTO {
	return &OrderDTO{
		Order:         *order,
		ComputedTotal: order.Subtotal(),
		Customer:      customer,
	}
}
