package users

import (
	"context"

	"github.com/memtensor/accounts/pkg/interfaces"
)

// FieldLookup answers point queries on unique columns
type FieldLookup interface {
	// ExistsByField reports whether any user has value in field (exact match)
	ExistsByField(ctx context.Context, field UniqueField, value string) (bool, error)
}

// Store is the persistence contract the core depends on.
// Lookups return (nil, nil) when no record matches.
type Store interface {
	FieldLookup
	interfaces.HealthChecker

	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, userID string) (*User, error)
	GetUserByName(ctx context.Context, username string) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
	PatchUser(ctx context.Context, userID string, fields map[string]interface{}) (*User, error)
	// DeleteUser reports false when no record matched
	DeleteUser(ctx context.Context, userID string) (bool, error)
	CountByRole(ctx context.Context, role Role) (int64, error)
}
