package api

import (
	"time"

	"github.com/memtensor/accounts/pkg/metrics"
	"github.com/memtensor/accounts/pkg/users"
)

// RegisterRequest represents a registration or admin-created account
type RegisterRequest struct {
	FullName string `json:"full_name" example:"Jane Doe"`
	Phone    string `json:"phone" example:"9876543210"`
	Email    string `json:"email" example:"jane@example.com"`
	Username string `json:"username" example:"jane"`
	Password string `json:"password" example:"secret1"`
}

func (r RegisterRequest) payload() users.RegistrationPayload {
	return users.RegistrationPayload{
		FullName: r.FullName,
		Phone:    r.Phone,
		Email:    r.Email,
		Username: r.Username,
		Password: r.Password,
	}
}

// LoginRequest represents a login request
type LoginRequest struct {
	Username string `json:"username" example:"jane"`
	Password string `json:"password" example:"secret1"`
}

// LoginResponse carries an issued bearer token
type LoginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      *users.User `json:"user"`
}

// MessageResponse is the body of operations without data return
type MessageResponse struct {
	Message string `json:"message" example:"User created successfully"`
}

// ErrorResponse represents an error response.
// Authorization failures set Auth to false.
type ErrorResponse struct {
	Message   string `json:"message" example:"Email is not valid"`
	ErrorCode string `json:"error_code,omitempty" example:"INVALID_EMAIL"`
	Status    string `json:"status,omitempty" example:"error"`
	Auth      *bool  `json:"auth,omitempty"`
}

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Version   string            `json:"version"`
	Uptime    string            `json:"uptime"`
	Checks    map[string]string `json:"checks"`
}

// MetricsResponse represents metrics response
type MetricsResponse struct {
	Timestamp string           `json:"timestamp"`
	Uptime    string           `json:"uptime"`
	Metrics   metrics.Snapshot `json:"metrics"`
}
