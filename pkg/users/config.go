package users

import (
	"time"
)

// Config holds the configuration for the user management system
type Config struct {
	// Database configuration
	DatabaseType string `json:"database_type" yaml:"database_type"` // only "sqlite" is supported
	DatabasePath string `json:"database_path" yaml:"database_path"` // SQLite database file path
	MaxOpenConns int    `json:"max_open_conns" yaml:"max_open_conns"`

	// Token configuration
	JWTSecret         string        `json:"jwt_secret" yaml:"jwt_secret"`
	JWTExpirationTime time.Duration `json:"jwt_expiration_time" yaml:"jwt_expiration_time"`
	JWTIssuer         string        `json:"jwt_issuer" yaml:"jwt_issuer"`

	// Password hashing
	BcryptCost int `json:"bcrypt_cost" yaml:"bcrypt_cost"`
}

// DefaultConfig returns a default configuration for the user management system
func DefaultConfig() *Config {
	return &Config{
		DatabaseType:      "sqlite",
		DatabasePath:      "./data/accounts.db",
		MaxOpenConns:      1,
		JWTExpirationTime: 24 * time.Hour,
		JWTIssuer:         "accounts",
		BcryptCost:        10,
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.DatabaseType == "" {
		return NewValidationError("database_type is required")
	}

	if c.DatabaseType != "sqlite" {
		return NewValidationError("unsupported database_type: " + c.DatabaseType)
	}

	if c.DatabasePath == "" {
		return NewValidationError("database_path is required for SQLite")
	}

	if c.JWTSecret == "" {
		return NewValidationError("jwt_secret is required")
	}

	if c.JWTExpirationTime <= 0 {
		return NewValidationError("jwt_expiration_time must be positive")
	}

	if c.BcryptCost != 0 && (c.BcryptCost < 4 || c.BcryptCost > 31) {
		return NewValidationError("bcrypt_cost must be between 4 and 31")
	}

	return nil
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Message string
}

func (e ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a new validation error
func NewValidationError(message string) error {
	return ValidationError{Message: message}
}
