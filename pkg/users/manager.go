package users

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/memtensor/accounts/pkg/errors"
	"github.com/memtensor/accounts/pkg/interfaces"
	"github.com/memtensor/accounts/pkg/logger"
	"github.com/memtensor/accounts/pkg/metrics"
)

// Lifecycle event names, published under the configured subject prefix
const (
	EventUserRegistered = "user.registered"
	EventUserCreated    = "user.created"
	EventUserUpdated    = "user.updated"
	EventUserDeleted    = "user.deleted"
)

// UserEvent is the payload of a lifecycle event
type UserEvent struct {
	Event     string    `json:"event"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username,omitempty"`
	ActorID   string    `json:"actor_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// LoginResult is returned by a successful login
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      *User     `json:"user"`
}

// Manager is the user management service that coordinates all user operations
type Manager struct {
	store     Store
	registrar *Registrar
	gate      *Gate
	tokens    TokenService
	hasher    Hasher
	events    interfaces.EventPublisher
	logger    interfaces.Logger
	metrics   interfaces.Metrics
}

// ManagerOption configures optional collaborators
type ManagerOption func(*Manager)

// WithLogger sets the logger
func WithLogger(log interfaces.Logger) ManagerOption {
	return func(m *Manager) { m.logger = log }
}

// WithMetrics sets the metrics sink
func WithMetrics(metrics interfaces.Metrics) ManagerOption {
	return func(m *Manager) { m.metrics = metrics }
}

// WithEvents sets the lifecycle event publisher
func WithEvents(events interfaces.EventPublisher) ManagerOption {
	return func(m *Manager) { m.events = events }
}

// NewManager wires the registration pipeline and the gate over shared collaborators
func NewManager(store Store, hasher Hasher, tokens TokenService, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:   store,
		tokens:  tokens,
		hasher:  hasher,
		logger:  logger.NewTestLogger(),
		metrics: metrics.NewNoOpMetrics(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.registrar = NewRegistrar(store, hasher, m.logger, m.metrics)
	m.gate = NewGate(tokens, m.logger, m.metrics)
	return m
}

// Gate returns the manager's auth gate
func (m *Manager) Gate() *Gate {
	return m.gate
}

// Register is the public self-service registration
func (m *Manager) Register(ctx context.Context, payload RegistrationPayload) (*User, error) {
	user, err := m.registrar.Register(ctx, payload, "")
	if err != nil {
		return nil, err
	}
	m.publish(ctx, EventUserRegistered, user, "")
	return user, nil
}

// CreateUser registers an account on behalf of any authenticated caller,
// who is recorded as its creator
func (m *Manager) CreateUser(ctx context.Context, token string, payload RegistrationPayload) (*User, error) {
	caller, err := m.gate.Authorize(ctx, token, OpCreateUser)
	if err != nil {
		return nil, err
	}

	user, err := m.registrar.Register(ctx, payload, caller.ID)
	if err != nil {
		return nil, err
	}
	m.publish(ctx, EventUserCreated, user, caller.ID)
	return user, nil
}

// GetUser fetches a record by id without authentication. A well-formed id
// with no matching record yields (nil, nil).
func (m *Manager) GetUser(ctx context.Context, id string) (*User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("invalid user id: %s", id))
	}

	user, err := m.store.GetUser(ctx, id)
	if err != nil {
		m.logger.Error("Failed to get user", err, map[string]interface{}{"user_id": id})
		return nil, apperrors.NewPersistenceError(err)
	}
	return user, nil
}

// ListUsers returns every account; requires exactly super_admin
func (m *Manager) ListUsers(ctx context.Context, token string) ([]User, error) {
	if _, err := m.gate.Authorize(ctx, token, OpListUsers); err != nil {
		return nil, err
	}

	users, err := m.store.ListUsers(ctx)
	if err != nil {
		m.logger.Error("Failed to list users", err, nil)
		return nil, apperrors.NewPersistenceError(err)
	}
	return users, nil
}

// UpdateUser applies a trusted patch; requires exactly super_admin.
// Patched fields are not re-validated against registration rules, except that
// a password is hashed before storage and a role must belong to the closed set.
func (m *Manager) UpdateUser(ctx context.Context, token, id string, patch map[string]interface{}) (*User, error) {
	caller, err := m.gate.Authorize(ctx, token, OpUpdateUser)
	if err != nil {
		return nil, err
	}

	fields, err := m.patchColumns(patch)
	if err != nil {
		return nil, err
	}

	user, err := m.store.PatchUser(ctx, id, fields)
	if err != nil {
		m.logger.Error("Failed to update user", err, map[string]interface{}{"user_id": id})
		return nil, apperrors.NewPersistenceError(err)
	}

	m.logger.Info("User updated", map[string]interface{}{
		"user_id":   id,
		"caller_id": caller.ID,
		"fields":    len(fields),
	})
	if user != nil {
		m.publish(ctx, EventUserUpdated, user, caller.ID)
	}
	return user, nil
}

// DeleteUser removes an account; requires exactly admin.
// Deleting an id that matches nothing still succeeds.
func (m *Manager) DeleteUser(ctx context.Context, token, id string) error {
	caller, err := m.gate.Authorize(ctx, token, OpDeleteUser)
	if err != nil {
		return err
	}

	deleted, err := m.store.DeleteUser(ctx, id)
	if err != nil {
		m.logger.Error("Failed to delete user", err, map[string]interface{}{"user_id": id})
		return apperrors.NewPersistenceError(err)
	}
	if !deleted {
		m.logger.Debug("Delete matched no user", map[string]interface{}{"user_id": id, "caller_id": caller.ID})
		return nil
	}

	m.logger.Info("User deleted", map[string]interface{}{"user_id": id, "caller_id": caller.ID})
	m.publish(ctx, EventUserDeleted, &User{ID: id}, caller.ID)
	return nil
}

// Login verifies a username and password and issues a bearer token
func (m *Manager) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	if username == "" || password == "" {
		return nil, apperrors.NewMissingFieldError()
	}

	user, err := m.store.GetUserByName(ctx, username)
	if err != nil {
		m.logger.Error("Failed to load user for login", err, map[string]interface{}{"username": username})
		return nil, apperrors.NewPersistenceError(err)
	}
	if user == nil || !m.hasher.VerifyPassword(password, user.Password) {
		m.metrics.Counter("logins_total", 1, map[string]string{"outcome": "rejected"})
		return nil, apperrors.NewInvalidCredentialsError()
	}

	token, expiresAt, err := m.tokens.IssueToken(user)
	if err != nil {
		return nil, apperrors.NewInternalErrorWithCause("failed to issue token", err)
	}

	m.metrics.Counter("logins_total", 1, map[string]string{"outcome": "ok"})
	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// HealthCheck reports store health
func (m *Manager) HealthCheck(ctx context.Context) error {
	return m.store.HealthCheck(ctx)
}

// patchColumns keeps known keys only and prepares values for storage
func (m *Manager) patchColumns(patch map[string]interface{}) (map[string]interface{}, error) {
	fields := make(map[string]interface{}, len(patch))
	for key, value := range patch {
		column, ok := patchableColumns[key]
		if !ok {
			continue
		}

		switch key {
		case "password":
			plain, ok := value.(string)
			if !ok || plain == "" {
				return nil, apperrors.NewInvalidInputError("password must be a non-empty string")
			}
			hash, err := m.hasher.HashPassword(plain)
			if err != nil {
				return nil, apperrors.NewInternalErrorWithCause("failed to hash password", err)
			}
			value = hash
		case "role":
			raw, _ := value.(string)
			role := Role(raw)
			if !role.IsValid() {
				return nil, apperrors.NewInvalidRoleError(raw)
			}
			value = string(role)
		}

		fields[column] = value
	}
	return fields, nil
}

func (m *Manager) publish(ctx context.Context, event string, user *User, actorID string) {
	if m.events == nil {
		return
	}
	payload := UserEvent{
		Event:     event,
		UserID:    user.ID,
		Username:  user.Username,
		ActorID:   actorID,
		Timestamp: time.Now().UTC(),
	}
	if err := m.events.Publish(ctx, event, payload); err != nil {
		m.logger.Warn("Failed to publish user event", map[string]interface{}{
			"event":   event,
			"user_id": user.ID,
			"error":   err.Error(),
		})
	}
}
