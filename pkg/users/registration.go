package users

import (
	"context"

	apperrors "github.com/memtensor/accounts/pkg/errors"
	"github.com/memtensor/accounts/pkg/interfaces"
	"github.com/memtensor/accounts/pkg/logger"
	"github.com/memtensor/accounts/pkg/metrics"
)

// Registrar turns a raw payload into a persisted account
type Registrar struct {
	store      Store
	uniqueness *UniquenessChecker
	hasher     Hasher
	logger     interfaces.Logger
	metrics    interfaces.Metrics
}

// NewRegistrar creates a registration pipeline over store and hasher
func NewRegistrar(store Store, hasher Hasher, log interfaces.Logger, m interfaces.Metrics) *Registrar {
	if log == nil {
		log = logger.NewTestLogger()
	}
	if m == nil {
		m = metrics.NewNoOpMetrics()
	}
	return &Registrar{
		store:      store,
		uniqueness: NewUniquenessChecker(store),
		hasher:     hasher,
		logger:     log,
		metrics:    m,
	}
}

// Register validates, checks uniqueness, hashes and persists a new account.
// invokerID is recorded as created_by when non-empty.
//
// The uniqueness check and the insert are separate steps. Two concurrent
// registrations can both pass the check; the unique indexes on email,
// username and phone reject the second insert, which then surfaces as a
// persistence error rather than a duplicate error.
func (r *Registrar) Register(ctx context.Context, p RegistrationPayload, invokerID string) (*User, error) {
	if err := ValidateFields(p); err != nil {
		r.reject(err, p)
		return nil, err
	}

	if err := r.uniqueness.Check(ctx, p); err != nil {
		r.reject(err, p)
		return nil, err
	}

	hash, err := r.hasher.HashPassword(p.Password)
	if err != nil {
		r.logger.Error("Failed to hash password", err, nil)
		return nil, apperrors.NewInternalErrorWithCause("failed to hash password", err)
	}

	user := newUserRecord(p, hash, invokerID)
	if err := r.store.CreateUser(ctx, user); err != nil {
		r.metrics.Counter("registrations_total", 1, map[string]string{"outcome": string(apperrors.ErrCodePersistence)})
		r.logger.Error("Failed to persist user", err, map[string]interface{}{"username": p.Username})
		return nil, apperrors.NewPersistenceError(err)
	}

	r.metrics.Counter("registrations_total", 1, map[string]string{"outcome": "created"})
	r.logger.Info("User registered", map[string]interface{}{
		"user_id":    user.ID,
		"username":   user.Username,
		"created_by": invokerID,
	})
	return user, nil
}

func (r *Registrar) reject(err error, p RegistrationPayload) {
	code := apperrors.ErrCodeInternal
	if ae := apperrors.GetAccountsError(err); ae != nil {
		code = ae.Code
	}
	r.metrics.Counter("registrations_total", 1, map[string]string{"outcome": string(code)})
	r.logger.Debug("Registration rejected", map[string]interface{}{
		"code":     code,
		"username": p.Username,
	})
}

func newUserRecord(p RegistrationPayload, hash, invokerID string) *User {
	user := &User{
		FullName: p.FullName,
		DP:       DefaultDisplayPicture,
		Title:    DefaultTitle,
		About:    DefaultAbout,
		Phone:    p.Phone,
		Email:    p.Email,
		Username: p.Username,
		Password: hash,
		Language: DefaultLanguage,
		Country:  DefaultCountry,
		Role:     RoleUser,
	}
	if invokerID != "" {
		createdBy := invokerID
		user.CreatedBy = &createdBy
	}
	return user
}
