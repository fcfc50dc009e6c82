package users

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/memtensor/accounts/pkg/errors"
)

// TokenVerifier resolves a bearer credential to the caller's current record
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*User, error)
}

// TokenIssuer mints bearer credentials
type TokenIssuer interface {
	IssueToken(user *User) (string, time.Time, error)
}

// TokenService both issues and verifies credentials
type TokenService interface {
	TokenVerifier
	TokenIssuer
}

// TokenClaims represents JWT token claims
type TokenClaims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	jwt.RegisteredClaims
}

// JWTTokens issues and verifies HS256 tokens. Verification reloads the user
// from the store so role changes and deletions take effect immediately.
type JWTTokens struct {
	secret []byte
	ttl    time.Duration
	issuer string
	store  Store
	now    func() time.Time
}

var _ TokenService = (*JWTTokens)(nil)

// NewJWTTokens creates a token service
func NewJWTTokens(secret string, ttl time.Duration, issuer string, store Store) *JWTTokens {
	return &JWTTokens{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: issuer,
		store:  store,
		now:    time.Now,
	}
}

// IssueToken generates a JWT access token for a user
func (t *JWTTokens) IssueToken(user *User) (string, time.Time, error) {
	now := t.now()
	expiresAt := now.Add(t.ttl)
	claims := &TokenClaims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.EffectiveRole(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Subject:   user.ID,
			Issuer:    t.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// VerifyToken validates a JWT access token and returns the user it names
func (t *JWTTokens) VerifyToken(ctx context.Context, tokenString string) (*User, error) {
	if tokenString == "" {
		return nil, apperrors.NewUnauthenticatedError()
	}

	opts := []jwt.ParserOption{jwt.WithTimeFunc(t.now)}
	if t.issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	}, opts...)
	if err != nil {
		return nil, apperrors.NewUnauthenticatedErrorWithCause(err)
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, apperrors.NewUnauthenticatedError()
	}

	user, err := t.store.GetUser(ctx, claims.UserID)
	if err != nil {
		return nil, apperrors.NewInternalErrorWithCause("failed to load caller", err)
	}
	if user == nil {
		return nil, apperrors.NewUnauthenticatedError()
	}

	return user, nil
}
