package dto

import "time"

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CreateUserRequest payload for new staff accounts.
type CreateUserRequest struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Password      string `json:"password"`
	Role          string `json:"role"`
	Region        string `json:"region"`
	ServiceCenter string `json:"service_center"`
}

// UpdateUserRequest carries only the fields to change.
type UpdateUserRequest struct {
	Name          *string `json:"name"`
	Role          *string `json:"role"`
	Region        *string `json:"region"`
	ServiceCenter *string `json:"service_center"`
	Active        *bool   `json:"active"`
}

// ResetPasswordRequest payload.
type ResetPasswordRequest struct {
	Password string `json:"password"`
}

// UserResponse is the public shape of an account. The password hash never leaves the
// service.
type UserResponse struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Role          string     `json:"role"`
	Region        string     `json:"region"`
	ServiceCenter string     `json:"service_center,omitempty"`
	Active        bool       `json:"active"`
	CreatedAt     *time.Time `json:"created_at,omitempty"`
}
