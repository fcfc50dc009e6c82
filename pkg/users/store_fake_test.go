package users

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/memtensor/accounts/pkg/errors"
)

// memStore is an in-memory Store that enforces unique columns on insert
type memStore struct {
	mu      sync.Mutex
	users   map[string]*User
	order   []string
	lookups []UniqueField
	writes  int

	failLookup error
	failCreate error
	failList   error
}

func newMemStore() *memStore {
	return &memStore{users: make(map[string]*User)}
}

func (s *memStore) ExistsByField(ctx context.Context, field UniqueField, value string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups = append(s.lookups, field)
	if s.failLookup != nil {
		return false, s.failLookup
	}
	for _, u := range s.users {
		if fieldValue(u, field) == value {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) CreateUser(ctx context.Context, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreate != nil {
		return s.failCreate
	}
	for _, existing := range s.users {
		for _, f := range []UniqueField{FieldEmail, FieldUsername, FieldPhone} {
			if fieldValue(existing, f) == fieldValue(user, f) {
				return fmt.Errorf("UNIQUE constraint failed: users.%s", f)
			}
		}
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now()
	user.CreatedAt, user.UpdatedAt = now, now
	stored := *user
	s.users[user.ID] = &stored
	s.order = append(s.order, user.ID)
	s.writes++
	return nil
}

func (s *memStore) GetUser(ctx context.Context, id string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, nil
}

func (s *memStore) GetUserByName(ctx context.Context, username string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *memStore) ListUsers(ctx context.Context) ([]User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failList != nil {
		return nil, s.failList
	}
	out := make([]User, 0, len(s.order))
	for _, id := range s.order {
		if u, ok := s.users[id]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (s *memStore) PatchUser(ctx context.Context, id string, fields map[string]interface{}) (*User, error) {
	s.mu.Lock()
	u, ok := s.users[id]
	if ok {
		for column, value := range fields {
			str, _ := value.(string)
			switch column {
			case "full_name":
				u.FullName = str
			case "email":
				u.Email = str
			case "username":
				u.Username = str
			case "phone":
				u.Phone = str
			case "password":
				u.Password = str
			case "role":
				u.Role = Role(str)
			case "title":
				u.Title = str
			case "country":
				u.Country = str
			}
		}
	}
	s.mu.Unlock()
	return s.GetUser(ctx, id)
}

func (s *memStore) DeleteUser(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.users[id]
	delete(s.users, id)
	return ok, nil
}

func (s *memStore) CountByRole(ctx context.Context, role Role) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, u := range s.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

func (s *memStore) HealthCheck(ctx context.Context) error {
	return nil
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

func (s *memStore) put(u *User) *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	stored := *u
	s.users[u.ID] = &stored
	s.order = append(s.order, u.ID)
	return u
}

func fieldValue(u *User, f UniqueField) string {
	switch f {
	case FieldEmail:
		return u.Email
	case FieldUsername:
		return u.Username
	case FieldPhone:
		return u.Phone
	}
	return ""
}

var errStoreDown = errors.New("connection refused")

func testHasher() *BcryptHasher {
	return NewBcryptHasher(bcrypt.MinCost)
}

func validPayload() RegistrationPayload {
	return RegistrationPayload{
		FullName: "Test User",
		Phone:    "1234567890",
		Email:    "test@example.com",
		Username: "testuser",
		Password: "secret1",
	}
}

// staticVerifier resolves fixed tokens to users
type staticVerifier map[string]*User

func (v staticVerifier) VerifyToken(ctx context.Context, token string) (*User, error) {
	if u, ok := v[token]; ok {
		return u, nil
	}
	return nil, apperrors.NewUnauthenticatedError()
}
