package auth

import (
	"errors"
	"time"
)

// Account is a login-capable user: an owner (buyer side) or a vendor
// contact bound to a vendor record.
type Account struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	VendorID     int64     `json:"vendor,omitempty"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ErrTokenNotFound indicates an unknown or expired bearer token.
var ErrTokenNotFound = errors.New("auth: token not found")
