package storage

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("storage: not found")
	ErrDuplicateEmail    = errors.New("storage: duplicate email")
	ErrInsufficientStock = errors.New("storage: insufficient stock")
	ErrStatusConflict    = errors.New("storage: order status changed concurrently")
	ErrQuantityLimit     = errors.New("storage: quantity out of range")
)

// StockError describes the first item that could not be satisfied.
type StockError struct {
	ProductID uuid.UUID `json:"productId"`
	Requested int       `json:"requested"`
	Available int       `json:"available"`
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d", e.ProductID, e.Requested, e.Available)
}

func (e *StockError) Unwrap() error {
	return ErrInsufficientStock
}

// QuantityError reports a line or per-product total outside 1..Limit.
type QuantityError struct {
	ProductID uuid.UUID `json:"productId"`
	Requested int       `json:"requested"`
	Limit     int       `json:"limit"`
}

func (e *QuantityError) Error() string {
	return fmt.Sprintf("quantity for product %s out of range: requested %d, limit %d", e.ProductID, e.Requested, e.Limit)
}

func (e *QuantityError) Unwrap() error {
	return ErrQuantityLimit
}
