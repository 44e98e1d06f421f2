package dto

import "github.com/quantumlab/labtrack/internal/app/models"

// LoginRequest represents login credentials
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email" example:"admin@lab.local"`
	Password string `json:"password" binding:"required" example:"secret123"`
}

// RegisterRequest represents a public self-registration. The role is always user.
type RegisterRequest struct {
	Name     string  `json:"name" binding:"required,max=255" example:"Ada Lovelace"`
	Email    string  `json:"email" binding:"required,email" example:"ada@lab.local"`
	Password string  `json:"password" binding:"required,labpassword" example:"secret123"`
	Phone    *string `json:"phone,omitempty"`
}

// AuthUser is the identity echoed back after login
type AuthUser struct {
	ID    int64       `json:"id" example:"1"`
	Name  string      `json:"name" example:"Ada Lovelace"`
	Email string      `json:"email" example:"ada@lab.local"`
	Role  models.Role `json:"role" example:"admin"`
}

// LoginResponse represents successful authentication response
type LoginResponse struct {
	Token     string   `json:"token"`
	ExpiresAt int64    `json:"expiresAt" example:"1718086400"`
	User      AuthUser `json:"user"`
}

// NewAuthUser projects a user row onto the login payload
func NewAuthUser(u *models.User) AuthUser {
	return AuthUser{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// MeResponse describes the caller as resolved from the token
type MeResponse struct {
	ID    int64  `json:"id" example:"1"`
	Role  string `json:"role" example:"user"`
	Email string `json:"email" example:"ada@lab.local"`
}
