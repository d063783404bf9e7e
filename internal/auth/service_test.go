// AngelaMos | 2026
// service_test.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/carterperez-dev/booking-api/internal/authz"
	"github.com/carterperez-dev/booking-api/internal/core"
)

type mockUsers struct {
	mock.Mock
}

func (m *mockUsers) GetByEmail(ctx context.Context, email string) (*UserInfo, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*UserInfo)
	return u, args.Error(1)
}

func (m *mockUsers) GetByID(ctx context.Context, id string) (*UserInfo, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*UserInfo)
	return u, args.Error(1)
}

func (m *mockUsers) Create(ctx context.Context, u NewUser) (*UserInfo, error) {
	args := m.Called(ctx, u)
	info, _ := args.Get(0).(*UserInfo)
	return info, args.Error(1)
}

func (m *mockUsers) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	return m.Called(ctx, userID, passwordHash).Error(0)
}

func (m *mockUsers) IncrementTokenVersion(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	if fn, ok := args.Get(0).(func(context.Context, string) int); ok {
		return fn(ctx, userID), args.Error(1)
	}
	return args.Int(0), args.Error(1)
}

func newTestRevoker(t *testing.T) (*RevocationStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRevocationStore(client), mr
}

func newTestService(t *testing.T, users UserProvider) (*Service, *miniredis.Miniredis) {
	t.Helper()
	revoker, mr := newTestRevoker(t)
	return NewService(newTestJWT(t), users, revoker, nil), mr
}

func storedUser(t *testing.T, password string) *UserInfo {
	t.Helper()
	hash, err := core.HashPassword(password)
	require.NoError(t, err)
	return &UserInfo{
		ID:           "11111111-1111-1111-1111-111111111111",
		Email:        "a@x.com",
		Name:         "Alice",
		PasswordHash: hash,
		Role:         authz.RoleUser,
		Active:       true,
		CreatedAt:    time.Now(),
	}
}

func TestRegisterNormalizesAndHashes(t *testing.T) {
	users := &mockUsers{}
	svc, _ := newTestService(t, users)

	users.On("Create", mock.Anything, mock.MatchedBy(func(u NewUser) bool {
		ok, err := core.VerifyPassword("secret1", u.PasswordHash)
		return u.Email == "a@x.com" && u.Role == authz.RoleUser && ok && err == nil
	})).Return(&UserInfo{ID: "u1", Email: "a@x.com", Role: authz.RoleUser, Active: true}, nil)

	resp, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "  A@X.com ",
		Password: "secret1",
		Name:     "Alice",
	})
	require.NoError(t, err)
	assert.Equal(t, "u1", resp.ID)
	assert.Equal(t, "user", resp.Role)
	users.AssertExpectations(t)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	users := &mockUsers{}
	svc, _ := newTestService(t, users)

	users.On("Create", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("insert user: %w", core.ErrDuplicateKey))

	_, err := svc.Register(context.Background(), RegisterRequest{
		Email: "a@x.com", Password: "secret1", Name: "Alice",
	})
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestLoginSuccessYieldsVerifiableToken(t *testing.T) {
	users := &mockUsers{}
	svc, _ := newTestService(t, users)
	user := storedUser(t, "secret1")
	users.On("GetByEmail", mock.Anything, "a@x.com").Return(user, nil)

	users.On("GetByID", mock.Anything, user.ID).Return(user, nil)

	resp, err := svc.Login(context.Background(), LoginRequest{Email: "A@x.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, user.ID, resp.User.ID)

	claims, err := svc.VerifyAccessToken(context.Background(), resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.ID)
	assert.Equal(t, authz.RoleUser, claims.Role)
	users.AssertNotCalled(t, "UpdatePassword", mock.Anything, mock.Anything, mock.Anything)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	users := &mockUsers{}
	svc, _ := newTestService(t, users)
	users.On("GetByEmail", mock.Anything, "a@x.com").Return(storedUser(t, "secret1"), nil)
	users.On("GetByEmail", mock.Anything, "ghost@x.com").
		Return(nil, fmt.Errorf("get user: %w", core.ErrNotFound))

	_, wrongPassword := svc.Login(context.Background(), LoginRequest{Email: "a@x.com", Password: "nope123"})
	_, unknownEmail := svc.Login(context.Background(), LoginRequest{Email: "ghost@x.com", Password: "secret1"})

	assert.ErrorIs(t, wrongPassword, ErrInvalidCredentials)
	assert.ErrorIs(t, unknownEmail, ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
}

func TestLoginInactiveAccount(t *testing.T) {
	users := &mockUsers{}
	svc, _ := newTestService(t, users)
	user := storedUser(t, "secret1")
	user.Active = false
	users.On("GetByEmail", mock.Anything, "a@x.com").Return(user, nil)

	_, err := svc.Login(context.Background(), LoginRequest{Email: "a@x.com", Password: "secret1"})
	assert.ErrorIs(t, err, ErrAccountDisabled)

	_, err = svc.Login(context.Background(), LoginRequest{Email: "a@x.com", Password: "wrong12"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginUpgradesBcryptHash(t *testing.T) {
	users := &mockUsers{}
	svc, _ := newTestService(t, users)

	legacy, err := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost)
	require.NoError(t, err)
	user := storedUser(t, "unused")
	user.PasswordHash = string(legacy)

	users.On("GetByEmail", mock.Anything, "a@x.com").Return(user, nil)
	users.On("UpdatePassword", mock.Anything, user.ID, mock.MatchedBy(func(h string) bool {
		ok, err := core.VerifyPassword("secret1", h)
		return ok && err == nil && h[:9] == "$argon2id"
	})).Return(nil)

	_, err = svc.Login(context.Background(), LoginRequest{Email: "a@x.com", Password: "secret1"})
	require.NoError(t, err)
	users.AssertExpectations(t)
}

func TestChangePassword(t *testing.T) {
	users := &mockUsers{}
	svc, _ := newTestService(t, users)
	user := storedUser(t, "secret1")
	users.On("GetByID", mock.Anything, user.ID).Return(user, nil)
	users.On("UpdatePassword", mock.Anything, user.ID, mock.AnythingOfType("string")).Return(nil)
	users.On("IncrementTokenVersion", mock.Anything, user.ID).Return(1, nil)

	_, err := svc.ChangePassword(context.Background(), user.ID, "wrong12", "newsecret")
	assert.ErrorIs(t, err, core.ErrForbidden)
	users.AssertNotCalled(t, "UpdatePassword", mock.Anything, mock.Anything, mock.Anything)
	users.AssertNotCalled(t, "IncrementTokenVersion", mock.Anything, mock.Anything)

	renewed, err := svc.ChangePassword(context.Background(), user.ID, "secret1", "newsecret")
	require.NoError(t, err)
	assert.Equal(t, 1, renewed.TokenVersion)
	assert.Equal(t, user.ID, renewed.ID)
	users.AssertCalled(t, "UpdatePassword", mock.Anything, user.ID, mock.AnythingOfType("string"))
}

func TestChangePasswordUnknownUser(t *testing.T) {
	users := &mockUsers{}
	svc, _ := newTestService(t, users)
	users.On("GetByID", mock.Anything, "missing").
		Return(nil, fmt.Errorf("get user: %w", core.ErrNotFound))

	_, err := svc.ChangePassword(context.Background(), "missing", "a", "bcdefgh")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func activeUser(id string, role authz.Role) *UserInfo {
	return &UserInfo{ID: id, Email: id + "@x.com", Role: role, Active: true}
}

func TestLogoutRevokesToken(t *testing.T) {
	users := &mockUsers{}
	svc, _ := newTestService(t, users)
	users.On("GetByID", mock.Anything, "u1").Return(activeUser("u1", authz.RoleUser), nil)
	users.On("IncrementTokenVersion", mock.Anything, "u1").Return(1, nil)

	token, _, err := svc.jwt.CreateAccessToken(authz.Principal{ID: "u1", Role: authz.RoleUser})
	require.NoError(t, err)

	claims, err := svc.VerifyAccessToken(context.Background(), token)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), claims))

	_, err = svc.VerifyAccessToken(context.Background(), token)
	assert.ErrorIs(t, err, core.ErrTokenRevoked)
}

// versionedUsers serves one account whose token version moves like the
// users table does.
func versionedUsers(u *UserInfo) *mockUsers {
	users := &mockUsers{}
	users.On("GetByID", mock.Anything, u.ID).Return(u, nil)
	users.On("UpdatePassword", mock.Anything, u.ID, mock.AnythingOfType("string")).Return(nil)
	users.On("IncrementTokenVersion", mock.Anything, u.ID).
		Return(func(context.Context, string) int {
			u.TokenVersion++
			return u.TokenVersion
		}, nil)
	return users
}

func TestLogoutEndsEarlierTokensOfTheSession(t *testing.T) {
	user := storedUser(t, "secret1")
	svc, _ := newTestService(t, versionedUsers(user))
	ctx := context.Background()

	loginToken, _, err := svc.jwt.CreateAccessToken(toPrincipal(user))
	require.NoError(t, err)
	rolledToken, _, err := svc.jwt.CreateAccessToken(toPrincipal(user))
	require.NoError(t, err)

	claims, err := svc.VerifyAccessToken(ctx, rolledToken)
	require.NoError(t, err)
	require.NoError(t, svc.Logout(ctx, claims))

	_, err = svc.VerifyAccessToken(ctx, rolledToken)
	assert.ErrorIs(t, err, core.ErrTokenRevoked)
	_, err = svc.VerifyAccessToken(ctx, loginToken)
	assert.ErrorIs(t, err, core.ErrTokenRevoked)
}

func TestChangePasswordEndsOtherSessions(t *testing.T) {
	user := storedUser(t, "secret1")
	svc, _ := newTestService(t, versionedUsers(user))
	ctx := context.Background()

	otherDevice, _, err := svc.jwt.CreateAccessToken(toPrincipal(user))
	require.NoError(t, err)

	renewed, err := svc.ChangePassword(ctx, user.ID, "secret1", "another1")
	require.NoError(t, err)

	_, err = svc.VerifyAccessToken(ctx, otherDevice)
	assert.ErrorIs(t, err, core.ErrTokenRevoked)

	next, _, err := svc.jwt.CreateAccessToken(renewed)
	require.NoError(t, err)
	claims, err := svc.VerifyAccessToken(ctx, next)
	require.NoError(t, err)
	assert.Equal(t, 1, claims.TokenVersion)
}

func TestLogoutOfRemovedAccount(t *testing.T) {
	users := &mockUsers{}
	svc, _ := newTestService(t, users)
	users.On("IncrementTokenVersion", mock.Anything, "u1").
		Return(0, fmt.Errorf("increment token version: %w", core.ErrNotFound))

	claims := &authz.Claims{
		Principal: authz.Principal{ID: "u1", Role: authz.RoleUser},
		TokenID:   "jti-1",
		ExpiresAt: time.Now().Add(time.Minute),
	}
	assert.NoError(t, svc.Logout(context.Background(), claims))
}

func TestVerifyFailsOpenWhenRedisIsDown(t *testing.T) {
	users := &mockUsers{}
	svc, mr := newTestService(t, users)
	users.On("GetByID", mock.Anything, "u1").Return(activeUser("u1", authz.RoleUser), nil)

	token, _, err := svc.jwt.CreateAccessToken(authz.Principal{ID: "u1", Role: authz.RoleUser})
	require.NoError(t, err)

	mr.Close()

	claims, err := svc.VerifyAccessToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.ID)
}

func TestVerifyRejectsChangedAccounts(t *testing.T) {
	users := &mockUsers{}
	svc, _ := newTestService(t, users)

	disabled := activeUser("disabled", authz.RoleUser)
	disabled.Active = false
	users.On("GetByID", mock.Anything, "disabled").Return(disabled, nil)
	users.On("GetByID", mock.Anything, "demoted").Return(activeUser("demoted", authz.RoleUser), nil)
	users.On("GetByID", mock.Anything, "gone").
		Return(nil, fmt.Errorf("get user: %w", core.ErrNotFound))
	users.On("GetByID", mock.Anything, "broken").Return(nil, errors.New("connection reset"))

	cases := []struct {
		principal authz.Principal
		want      error
	}{
		{authz.Principal{ID: "disabled", Role: authz.RoleUser}, core.ErrTokenRevoked},
		{authz.Principal{ID: "demoted", Role: authz.RoleAdmin}, core.ErrTokenRevoked},
		{authz.Principal{ID: "gone", Role: authz.RoleUser}, core.ErrTokenRevoked},
	}
	for _, tc := range cases {
		token, _, err := svc.jwt.CreateAccessToken(tc.principal)
		require.NoError(t, err)

		_, err = svc.VerifyAccessToken(context.Background(), token)
		assert.ErrorIs(t, err, tc.want, tc.principal.ID)
	}

	token, _, err := svc.jwt.CreateAccessToken(authz.Principal{ID: "broken", Role: authz.RoleUser})
	require.NoError(t, err)
	_, err = svc.VerifyAccessToken(context.Background(), token)
	require.Error(t, err)
	_, known := core.ToAppError(err)
	assert.False(t, known)
}

func TestRevocationStoreTTL(t *testing.T) {
	store, mr := newTestRevoker(t)
	ctx := context.Background()

	require.NoError(t, store.Revoke(ctx, "jti-1", time.Now().Add(time.Minute)))
	require.NoError(t, store.Revoke(ctx, "jti-old", time.Now().Add(-time.Minute)))

	revoked, err := store.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = store.IsRevoked(ctx, "jti-old")
	require.NoError(t, err)
	assert.False(t, revoked)

	mr.FastForward(2 * time.Minute)
	revoked, err = store.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestLogoutWithoutClaims(t *testing.T) {
	svc, _ := newTestService(t, &mockUsers{})
	err := svc.Logout(context.Background(), nil)
	assert.True(t, errors.Is(err, core.ErrUnauthorized))
}
