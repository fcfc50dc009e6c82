package users

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Repository is the gorm-backed Store.
// CRUD methods return driver errors unwrapped; their text reaches API callers as-is.
type Repository struct {
	db *gorm.DB
}

var _ Store = (*Repository)(nil)

// NewRepository opens the configured database and migrates the schema
func NewRepository(config *Config) (*Repository, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var db *gorm.DB
	var err error

	switch config.DatabaseType {
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(config.DatabasePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}

		db, err = gorm.Open(sqlite.Open(config.DatabasePath), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
	default:
		return nil, fmt.Errorf("unsupported database type: %s", config.DatabaseType)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if config.MaxOpenConns > 0 {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database instance: %w", err)
		}
		sqlDB.SetMaxOpenConns(config.MaxOpenConns)
	}

	return NewRepositoryFromDB(db)
}

// NewRepositoryFromDB wraps an open connection and migrates the schema
func NewRepositoryFromDB(db *gorm.DB) (*Repository, error) {
	repo := &Repository{db: db}
	if err := repo.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return repo, nil
}

// migrate runs database migrations; the unique indexes on email, username
// and phone are what finally enforce uniqueness
func (r *Repository) migrate() error {
	return r.db.AutoMigrate(&User{})
}

// CreateUser inserts a new user
func (r *Repository) CreateUser(ctx context.Context, user *User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// GetUser retrieves a user by ID
func (r *Repository) GetUser(ctx context.Context, userID string) (*User, error) {
	return r.first(ctx, "id = ?", userID)
}

// GetUserByName retrieves a user by username
func (r *Repository) GetUserByName(ctx context.Context, username string) (*User, error) {
	return r.first(ctx, "username = ?", username)
}

func (r *Repository) first(ctx context.Context, query string, arg interface{}) (*User, error) {
	var user User
	if err := r.db.WithContext(ctx).Where(query, arg).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// ExistsByField reports whether a user with the exact value exists
func (r *Repository) ExistsByField(ctx context.Context, field UniqueField, value string) (bool, error) {
	switch field {
	case FieldEmail, FieldUsername, FieldPhone:
	default:
		return false, fmt.Errorf("unsupported lookup field: %s", field)
	}

	var count int64
	err := r.db.WithContext(ctx).Model(&User{}).
		Where(fmt.Sprintf("%s = ?", field), value).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListUsers returns every user
func (r *Repository) ListUsers(ctx context.Context) ([]User, error) {
	var users []User
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// PatchUser applies column updates and returns the stored result,
// or (nil, nil) when no user has that id
func (r *Repository) PatchUser(ctx context.Context, userID string, fields map[string]interface{}) (*User, error) {
	if len(fields) > 0 {
		err := r.db.WithContext(ctx).Model(&User{}).Where("id = ?", userID).Updates(fields).Error
		if err != nil {
			return nil, err
		}
	}
	return r.GetUser(ctx, userID)
}

// DeleteUser hard deletes a user and reports whether a row matched.
// A missing id is not an error.
func (r *Repository) DeleteUser(ctx context.Context, userID string) (bool, error) {
	result := r.db.WithContext(ctx).Where("id = ?", userID).Delete(&User{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// CountByRole counts users holding exactly role
func (r *Repository) CountByRole(ctx context.Context, role Role) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&User{}).Where("role = ?", role).Count(&count).Error
	return count, err
}

// HealthCheck performs a database health check
func (r *Repository) HealthCheck(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	return nil
}

// Close closes the database connection
func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	return sqlDB.Close()
}
