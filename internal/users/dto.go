package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/kiranaconnect/kiranaconnect-backend/internal/storage"
	"github.com/kiranaconnect/kiranaconnect-backend/pkg/enums"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID        uuid.UUID      `json:"id"`
	Name      string         `json:"name"`
	Email     string         `json:"email"`
	Phone     *string        `json:"phone"`
	Role      enums.UserRole `json:"role"`
	ShopName  *string        `json:"shopName"`
	Region    *string        `json:"region"`
	IsActive  bool           `json:"isActive"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// CustomerDTO is the buyer summary attached to orders.
type CustomerDTO struct {
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	ShopName *string `json:"shopName"`
}

// ProfileUpdate holds the self-service profile fields.
type ProfileUpdate struct {
	Name     *string `json:"name,omitempty" validate:"omitempty,min=1,max=120"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	ShopName *string `json:"shopName,omitempty" validate:"omitempty,max=120"`
	Region   *string `json:"region,omitempty" validate:"omitempty,max=80"`
}

func FromStorage(u *storage.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Phone:     u.Phone,
		Role:      u.Role,
		ShopName:  u.ShopName,
		Region:    u.Region,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func CustomerFromStorage(u *storage.User) *CustomerDTO {
	if u == nil {
		return nil
	}
	return &CustomerDTO{Name: u.Name, Email: u.Email, ShopName: u.ShopName}
}

func (p ProfileUpdate) toStorage() storage.UserUpdate {
	return storage.UserUpdate{
		Name:     p.Name,
		Phone:    p.Phone,
		ShopName: p.ShopName,
		Region:   p.Region,
	}
}
