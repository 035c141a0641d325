package auth

import (
	"time"

	"github.com/kiranaconnect/kiranaconnect-backend/internal/users"
	"github.com/kiranaconnect/kiranaconnect-backend/pkg/enums"
)

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest contains the payload for self-service signup.
type RegisterRequest struct {
	Name     string         `json:"name" validate:"required,min=1,max=120"`
	Email    string         `json:"email" validate:"required,email"`
	Password string         `json:"password" validate:"required,min=6"`
	Role     enums.UserRole `json:"role,omitempty"`
	Phone    *string        `json:"phone,omitempty" validate:"omitempty,max=32"`
	ShopName *string        `json:"shopName,omitempty" validate:"omitempty,max=120"`
	Region   *string        `json:"region,omitempty" validate:"omitempty,max=80"`
}

// SessionResult is returned by register and login; the token goes into the
// cookie and header, never the body.
type SessionResult struct {
	User      *users.UserDTO
	Token     string
	ExpiresAt time.Time
}

// UserResponse is the `{user}` body shared by register, login and me.
type UserResponse struct {
	User *users.UserDTO `json:"user"`
}
