package users

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/memtensor/accounts/pkg/errors"
)

type recordedEvent struct {
	name    string
	payload UserEvent
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, event string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, recordedEvent{name: event, payload: payload.(UserEvent)})
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type managerFixture struct {
	manager   *Manager
	store     *memStore
	tokens    *JWTTokens
	publisher *recordingPublisher
}

func setupTestManager(t *testing.T) *managerFixture {
	t.Helper()
	store := newMemStore()
	tokens := NewJWTTokens("test-secret", time.Hour, "accounts", store)
	publisher := &recordingPublisher{}
	manager := NewManager(store, testHasher(), tokens, WithEvents(publisher))
	return &managerFixture{manager: manager, store: store, tokens: tokens, publisher: publisher}
}

func (f *managerFixture) tokenFor(t *testing.T, username string, role Role) (string, *User) {
	t.Helper()
	user := f.store.put(&User{
		Username: username,
		Email:    username + "@example.com",
		Phone:    "55500000" + string(rune('0'+len(f.store.order)%10)) + "0",
		Role:     role,
	})
	token, _, err := f.tokens.IssueToken(user)
	require.NoError(t, err)
	return token, user
}

func TestManager_Register(t *testing.T) {
	f := setupTestManager(t)

	user, err := f.manager.Register(context.Background(), validPayload())
	require.NoError(t, err)
	assert.Nil(t, user.CreatedBy)

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, EventUserRegistered, f.publisher.events[0].name)
	assert.Equal(t, user.ID, f.publisher.events[0].payload.UserID)
}

func TestManager_CreateUser(t *testing.T) {
	f := setupTestManager(t)
	ctx := context.Background()
	token, caller := f.tokenFor(t, "plain", RoleUser)

	user, err := f.manager.CreateUser(ctx, token, validPayload())
	require.NoError(t, err)
	require.NotNil(t, user.CreatedBy)
	assert.Equal(t, caller.ID, *user.CreatedBy)

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, EventUserCreated, f.publisher.events[0].name)
	assert.Equal(t, caller.ID, f.publisher.events[0].payload.ActorID)
}

func TestManager_CreateUser_RequiresToken(t *testing.T) {
	f := setupTestManager(t)

	_, err := f.manager.CreateUser(context.Background(), "", validPayload())
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeUnauthenticated))
	assert.Zero(t, f.store.writes)
	assert.Empty(t, f.store.lookups)
}

func TestManager_GetUser(t *testing.T) {
	f := setupTestManager(t)
	ctx := context.Background()
	user, err := f.manager.Register(ctx, validPayload())
	require.NoError(t, err)

	got, err := f.manager.GetUser(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, user.Username, got.Username)

	got, err = f.manager.GetUser(ctx, "00000000-0000-4000-8000-000000000000")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = f.manager.GetUser(ctx, "not-an-id")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidInput))
}

func TestManager_ListUsers(t *testing.T) {
	f := setupTestManager(t)
	ctx := context.Background()
	superToken, _ := f.tokenFor(t, "root", RoleSuperAdmin)
	adminToken, _ := f.tokenFor(t, "admin", RoleAdmin)

	users, err := f.manager.ListUsers(ctx, superToken)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	_, err = f.manager.ListUsers(ctx, adminToken)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInsufficientRole))

	f.store.failList = errors.New("disk I/O error")
	_, err = f.manager.ListUsers(ctx, superToken)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodePersistence))
	assert.Equal(t, "disk I/O error", apperrors.GetAccountsError(err).Message)
}

func TestManager_UpdateUser(t *testing.T) {
	f := setupTestManager(t)
	ctx := context.Background()
	superToken, root := f.tokenFor(t, "root", RoleSuperAdmin)
	target, err := f.manager.Register(ctx, validPayload())
	require.NoError(t, err)

	updated, err := f.manager.UpdateUser(ctx, superToken, target.ID, map[string]interface{}{
		"title":    "Patched",
		"email":    "not-an-email",
		"password": "newsecret",
		"id":       "should-be-ignored",
		"bogus":    true,
	})
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, target.ID, updated.ID)
	assert.Equal(t, "Patched", updated.Title)
	assert.Equal(t, "not-an-email", updated.Email)
	assert.True(t, testHasher().VerifyPassword("newsecret", updated.Password))

	last := f.publisher.events[len(f.publisher.events)-1]
	assert.Equal(t, EventUserUpdated, last.name)
	assert.Equal(t, root.ID, last.payload.ActorID)
}

func TestManager_UpdateUser_Role(t *testing.T) {
	f := setupTestManager(t)
	ctx := context.Background()
	superToken, _ := f.tokenFor(t, "root", RoleSuperAdmin)
	target, err := f.manager.Register(ctx, validPayload())
	require.NoError(t, err)

	updated, err := f.manager.UpdateUser(ctx, superToken, target.ID, map[string]interface{}{"role": "admin"})
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, updated.Role)

	_, err = f.manager.UpdateUser(ctx, superToken, target.ID, map[string]interface{}{"role": "root"})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidRole))
}

func TestManager_UpdateUser_ExactRole(t *testing.T) {
	f := setupTestManager(t)
	adminToken, admin := f.tokenFor(t, "admin", RoleAdmin)

	_, err := f.manager.UpdateUser(context.Background(), adminToken, admin.ID, map[string]interface{}{"role": "super_admin"})
	require.Error(t, err)
	assert.Equal(t, "You Are Not Super Admin", apperrors.GetAccountsError(err).Message)
}

func TestManager_UpdateUser_Missing(t *testing.T) {
	f := setupTestManager(t)
	superToken, _ := f.tokenFor(t, "root", RoleSuperAdmin)

	updated, err := f.manager.UpdateUser(context.Background(), superToken, "00000000-0000-4000-8000-000000000000",
		map[string]interface{}{"title": "x"})
	require.NoError(t, err)
	assert.Nil(t, updated)
}

func TestManager_DeleteUser(t *testing.T) {
	f := setupTestManager(t)
	ctx := context.Background()
	adminToken, _ := f.tokenFor(t, "admin", RoleAdmin)
	superToken, _ := f.tokenFor(t, "root", RoleSuperAdmin)
	target, err := f.manager.Register(ctx, validPayload())
	require.NoError(t, err)

	err = f.manager.DeleteUser(ctx, superToken, target.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInsufficientRole))

	require.NoError(t, f.manager.DeleteUser(ctx, adminToken, target.ID))
	got, err := f.store.GetUser(ctx, target.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.NoError(t, f.manager.DeleteUser(ctx, adminToken, "00000000-0000-4000-8000-000000000000"))
}

func TestManager_DeleteUser_EventsOnlyForRemovedRows(t *testing.T) {
	f := setupTestManager(t)
	ctx := context.Background()
	adminToken, _ := f.tokenFor(t, "admin", RoleAdmin)
	target, err := f.manager.Register(ctx, validPayload())
	require.NoError(t, err)
	f.publisher.events = nil

	require.NoError(t, f.manager.DeleteUser(ctx, adminToken, "00000000-0000-4000-8000-000000000000"))
	assert.Empty(t, f.publisher.events)

	require.NoError(t, f.manager.DeleteUser(ctx, adminToken, target.ID))
	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, EventUserDeleted, f.publisher.events[0].name)
	assert.Equal(t, target.ID, f.publisher.events[0].payload.UserID)
}

func TestManager_Login(t *testing.T) {
	f := setupTestManager(t)
	ctx := context.Background()
	user, err := f.manager.Register(ctx, validPayload())
	require.NoError(t, err)

	result, err := f.manager.Login(ctx, "testuser", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, user.ID, result.User.ID)

	caller, err := f.tokens.VerifyToken(ctx, result.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, caller.ID)

	_, err = f.manager.Login(ctx, "testuser", "secret2")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidCredentials))

	_, err = f.manager.Login(ctx, "nobody", "secret1")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidCredentials))

	_, err = f.manager.Login(ctx, "", "")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeMissingField))
}

func TestManager_PublishFailureIsNotFatal(t *testing.T) {
	f := setupTestManager(t)
	f.publisher.err = errors.New("nats: no responders")

	user, err := f.manager.Register(context.Background(), validPayload())
	require.NoError(t, err)
	assert.NotNil(t, user)
}

func TestManager_EnsureSuperAdmin(t *testing.T) {
	f := setupTestManager(t)
	ctx := context.Background()

	p := validPayload()
	p.Username = "root"
	admin, err := f.manager.EnsureSuperAdmin(ctx, p)
	require.NoError(t, err)
	require.NotNil(t, admin)
	assert.Equal(t, RoleSuperAdmin, admin.Role)

	again, err := f.manager.EnsureSuperAdmin(ctx, p)
	require.NoError(t, err)
	assert.Nil(t, again)
	assert.Equal(t, 1, f.store.count())
}

func TestManager_EnsureSuperAdmin_InvalidPayload(t *testing.T) {
	f := setupTestManager(t)

	p := validPayload()
	p.Password = "short"
	_, err := f.manager.EnsureSuperAdmin(context.Background(), p)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodePasswordTooShort))
}

func TestManager_EnsureSuperAdmin_PromotesExistingAccount(t *testing.T) {
	f := setupTestManager(t)
	ctx := context.Background()

	p := validPayload()
	p.Username = "root"
	admin, err := f.manager.EnsureSuperAdmin(ctx, p)
	require.NoError(t, err)
	require.NotNil(t, admin)

	// A super_admin demotes the bootstrap account, leaving none behind
	token, _, err := f.tokens.IssueToken(admin)
	require.NoError(t, err)
	demoted, err := f.manager.UpdateUser(ctx, token, admin.ID, map[string]interface{}{"role": "user"})
	require.NoError(t, err)
	assert.Equal(t, RoleUser, demoted.Role)

	again, err := f.manager.EnsureSuperAdmin(ctx, p)
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.Equal(t, admin.ID, again.ID)
	assert.Equal(t, RoleSuperAdmin, again.Role)
	assert.Equal(t, 1, f.store.count())
}

func TestManager_EnsureSuperAdmin_PromotesRegisteredUser(t *testing.T) {
	f := setupTestManager(t)
	ctx := context.Background()

	existing, err := f.manager.Register(ctx, validPayload())
	require.NoError(t, err)

	admin, err := f.manager.EnsureSuperAdmin(ctx, validPayload())
	require.NoError(t, err)
	require.NotNil(t, admin)
	assert.Equal(t, existing.ID, admin.ID)
	assert.Equal(t, RoleSuperAdmin, admin.Role)
	assert.Equal(t, 1, f.store.count())
}
