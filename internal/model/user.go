package model

import (
	"time"

	"github.com/medtrack/medtrack-go/internal/crypto"
)

// User represents an account in the database. Email is stored lower-cased.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	IsActive     bool
	IsStaff      bool
	IsSuperuser  bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (u *User) String() string {
	return u.Email
}

// CheckPassword reports whether raw matches the stored password hash.
func (u *User) CheckPassword(raw string) bool {
	if u.PasswordHash == "" {
		return false
	}
	ok, err := crypto.VerifyPassword(raw, u.PasswordHash)
	return err == nil && ok
}

// CreateUserRequest represents a user registration request.
type CreateUserRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=5,max=128"`
}

// LoginRequest represents a token request.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// TokenResponse carries a signed bearer token.
type TokenResponse struct {
	Token string `json:"token"`
}

// UserResponse represents user data safe for API responses (no sensitive fields).
type UserResponse struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	IsStaff   bool      `json:"is_staff"`
	CreatedAt time.Time `json:"created_at"`
}

func NewUserResponse(u *User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		IsStaff:   u.IsStaff,
		CreatedAt: u.CreatedAt,
	}
}
