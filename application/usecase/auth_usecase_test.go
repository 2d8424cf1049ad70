package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/fixora/gatekeeper/application/port/inbound"
	"github.com/fixora/gatekeeper/application/port/outbound"
	"github.com/fixora/gatekeeper/application/port/outbound/outboundtest"
	"github.com/fixora/gatekeeper/application/usecase"
	"github.com/fixora/gatekeeper/domain/entity"
	domainerror "github.com/fixora/gatekeeper/domain/error"
	"github.com/fixora/gatekeeper/domain/valueobject"
	"github.com/fixora/gatekeeper/infrastructure/adapter/memory"
	"github.com/fixora/gatekeeper/infrastructure/config"
	"github.com/fixora/gatekeeper/infrastructure/service/jwt"
	"github.com/fixora/gatekeeper/infrastructure/service/logger"
	"github.com/fixora/gatekeeper/infrastructure/service/password"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

type fixture struct {
	clock    *clock
	users    *memory.UserRepository
	tokens   *jwt.JWTService
	auth     *usecase.AuthUseCase
	resolver inbound.IdentityResolver
	user     *entity.Identity
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	c := &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	users := memory.NewUserRepository()
	passwords := password.NewBcryptPasswordService(bcrypt.MinCost)

	tokens, err := jwt.NewJWTService(config.JWTConfig{
		Secret:           "0123456789abcdef0123456789abcdef",
		Issuer:           "gatekeeper",
		AccessTokenTTL:   15 * time.Minute,
		RefreshTokenTTL:  7 * 24 * time.Hour,
		EnforceTokenType: true,
	}, c.Now)
	require.NoError(t, err)

	hash, err := passwords.HashPassword("user123")
	require.NoError(t, err)
	user := entity.NewIdentity("0b6b1c3e-1111-4a5b-9c1d-000000000001", "user", "user@example.com", hash, entity.NewRoleSet(entity.RoleUser), c.Now())
	require.NoError(t, users.Save(context.Background(), user))

	return &fixture{
		clock:    c,
		users:    users,
		tokens:   tokens,
		auth:     usecase.NewAuthUseCase(users, tokens, passwords, logger.NewNopLogger(), c.Now),
		resolver: usecase.NewIdentityResolver(users, tokens),
		user:     user,
	}
}

func TestLoginSeededUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.auth.Login(ctx, inbound.LoginRequest{Email: "user@example.com", Password: "user123"})
	require.NoError(t, err)

	assert.Equal(t, []string{"USER"}, resp.Roles)
	assert.Equal(t, f.user.ID, resp.ID)
	assert.Equal(t, "user", resp.Username)
	assert.Equal(t, 15*time.Minute, resp.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, resp.RefreshTTL)

	sub, err := f.tokens.ExtractSubject(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, f.user.ID, sub)

	principal, err := f.resolver.Resolve(ctx, resp.AccessToken)
	require.NoError(t, err)
	assert.True(t, principal.HasRole(entity.RoleUser))
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, wrongPassword := f.auth.Login(ctx, inbound.LoginRequest{Email: "user@example.com", Password: "nope"})
	_, unknownEmail := f.auth.Login(ctx, inbound.LoginRequest{Email: "ghost@example.com", Password: "nope"})

	require.Error(t, wrongPassword)
	require.Error(t, unknownEmail)
	assert.ErrorIs(t, wrongPassword, domainerror.ErrInvalidCredentials)
	assert.ErrorIs(t, unknownEmail, domainerror.ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
}

func TestLoginEmailIsCaseInsensitive(t *testing.T) {
	f := newFixture(t)
	_, err := f.auth.Login(context.Background(), inbound.LoginRequest{Email: " User@Example.com ", Password: "user123"})
	assert.NoError(t, err)
}

func TestLogoutRevokesEarlierTokens(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	logoutAt := time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC)

	f.clock.Set(logoutAt.Add(-time.Second))
	before, err := f.auth.Login(ctx, inbound.LoginRequest{Email: "user@example.com", Password: "user123"})
	require.NoError(t, err)
	principal, err := f.resolver.Resolve(ctx, before.AccessToken)
	require.NoError(t, err)

	f.clock.Set(logoutAt)
	require.NoError(t, f.auth.Logout(ctx, principal))
	atLogout, err := f.auth.Login(ctx, inbound.LoginRequest{Email: "user@example.com", Password: "user123"})
	require.NoError(t, err)

	f.clock.Set(logoutAt.Add(time.Second))
	after, err := f.auth.Login(ctx, inbound.LoginRequest{Email: "user@example.com", Password: "user123"})
	require.NoError(t, err)

	_, err = f.resolver.Resolve(ctx, before.AccessToken)
	assert.ErrorIs(t, err, domainerror.ErrTokenRevoked, "access token issued before logout")

	_, err = f.auth.Refresh(ctx, inbound.RefreshRequest{RefreshToken: before.RefreshToken})
	assert.ErrorIs(t, err, domainerror.ErrTokenRevoked, "refresh token issued before logout")

	_, err = f.resolver.Resolve(ctx, atLogout.AccessToken)
	assert.NoError(t, err, "token issued at the logout instant survives")

	_, err = f.resolver.Resolve(ctx, after.AccessToken)
	assert.NoError(t, err, "token issued after logout is valid")
}

func TestLogoutAndLoginWithinOneSecond(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC)

	f.clock.Set(base.Add(100 * time.Millisecond))
	old, err := f.auth.Login(ctx, inbound.LoginRequest{Email: "user@example.com", Password: "user123"})
	require.NoError(t, err)
	principal, err := f.resolver.Resolve(ctx, old.AccessToken)
	require.NoError(t, err)

	f.clock.Set(base.Add(400 * time.Millisecond))
	require.NoError(t, f.auth.Logout(ctx, principal))

	f.clock.Set(base.Add(700 * time.Millisecond))
	fresh, err := f.auth.Login(ctx, inbound.LoginRequest{Email: "user@example.com", Password: "user123"})
	require.NoError(t, err)

	_, err = f.resolver.Resolve(ctx, old.AccessToken)
	assert.ErrorIs(t, err, domainerror.ErrTokenRevoked)
	_, err = f.resolver.Resolve(ctx, fresh.AccessToken)
	assert.NoError(t, err)
}

// racingRepository commits a password change the first time logout touches
// the store, standing in for a request that lands in between.
type racingRepository struct {
	*memory.UserRepository
	once  sync.Once
	write func()
}

func (r *racingRepository) FindByID(ctx context.Context, id string) (*entity.Identity, error) {
	r.once.Do(r.write)
	return r.UserRepository.FindByID(ctx, id)
}

func (r *racingRepository) RevokeBefore(ctx context.Context, id string, at time.Time) error {
	r.once.Do(r.write)
	return r.UserRepository.RevokeBefore(ctx, id, at)
}

func TestLogoutKeepsConcurrentPasswordChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	changedAt := f.clock.Now().Add(time.Second)

	repo := &racingRepository{UserRepository: f.users}
	repo.write = func() {
		current, err := f.users.FindByID(ctx, f.user.ID)
		require.NoError(t, err)
		require.NoError(t, f.users.Save(ctx, current.WithPasswordHash("NEW-HASH", changedAt)))
	}

	f.clock.Set(changedAt.Add(time.Second))
	auth := usecase.NewAuthUseCase(repo, f.tokens, password.NewBcryptPasswordService(bcrypt.MinCost), logger.NewNopLogger(), f.clock.Now)
	require.NoError(t, auth.Logout(ctx, &entity.Principal{Identity: f.user}))

	stored, err := f.users.FindByID(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, "NEW-HASH", stored.PasswordHash)
	require.NotNil(t, stored.RevokedBefore)
	assert.True(t, stored.RevokedBefore.Equal(f.clock.Now()))
}

func TestRefresh(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	login, err := f.auth.Login(ctx, inbound.LoginRequest{Email: "user@example.com", Password: "user123"})
	require.NoError(t, err)

	f.clock.Set(f.clock.Now().Add(time.Minute))
	rotated, err := f.auth.Refresh(ctx, inbound.RefreshRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.AccessToken, rotated.AccessToken)
	assert.NotEqual(t, login.RefreshToken, rotated.RefreshToken)
	assert.Equal(t, []string{"USER"}, rotated.Roles)

	t.Run("access token is not a refresh token", func(t *testing.T) {
		_, err := f.auth.Refresh(ctx, inbound.RefreshRequest{RefreshToken: login.AccessToken})
		assert.ErrorIs(t, err, domainerror.ErrTokenInvalid)
	})

	t.Run("refresh token is not an access token", func(t *testing.T) {
		_, err := f.resolver.Resolve(ctx, login.RefreshToken)
		assert.ErrorIs(t, err, domainerror.ErrTokenInvalid)
	})

	t.Run("missing token", func(t *testing.T) {
		_, err := f.auth.Refresh(ctx, inbound.RefreshRequest{})
		assert.ErrorIs(t, err, domainerror.ErrUnauthenticated)
	})

	t.Run("expired refresh token", func(t *testing.T) {
		f.clock.Set(f.clock.Now().Add(8 * 24 * time.Hour))
		_, err := f.auth.Refresh(ctx, inbound.RefreshRequest{RefreshToken: rotated.RefreshToken})
		assert.ErrorIs(t, err, domainerror.ErrTokenInvalid)
		assert.Equal(t, "expired", usecase.AuditReason(err))
	})
}

func TestResolverSubjectIgnoresExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	login, err := f.auth.Login(ctx, inbound.LoginRequest{Email: "user@example.com", Password: "user123"})
	require.NoError(t, err)

	f.clock.Set(f.clock.Now().Add(time.Hour))
	_, err = f.resolver.Resolve(ctx, login.AccessToken)
	require.ErrorIs(t, err, domainerror.ErrTokenInvalid)
	assert.Equal(t, f.user.ID, f.resolver.Subject(login.AccessToken))
	assert.Empty(t, f.resolver.Subject("not.a.token"))
}

func TestResolverUnknownSubject(t *testing.T) {
	f := newFixture(t)
	issued, err := f.tokens.IssueAccess("deleted-identity")
	require.NoError(t, err)

	_, err = f.resolver.Resolve(context.Background(), issued.Value)
	assert.ErrorIs(t, err, domainerror.ErrIdentityNotFound)
	assert.Equal(t, "unknown_subject", usecase.AuditReason(err))
}

func TestMeAndLogoutRequirePrincipal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.auth.Me(ctx, nil)
	assert.ErrorIs(t, err, domainerror.ErrUnauthenticated)
	assert.ErrorIs(t, f.auth.Logout(ctx, nil), domainerror.ErrUnauthenticated)

	me, err := f.auth.Me(ctx, &entity.Principal{Identity: f.user})
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", me.Email)
}

func TestLoginWithMocks(t *testing.T) {
	ctx := context.Background()
	now := func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	t.Run("unknown email still runs a password comparison", func(t *testing.T) {
		users := new(outboundtest.MockUserRepository)
		passwords := new(outboundtest.MockPasswordService)
		tokens := new(outboundtest.MockTokenService)

		users.On("FindByEmail", ctx, "ghost@example.com").Return(nil, outbound.ErrUserNotFound)
		passwords.On("HashPassword", mock.Anything).Return("$2a$04$dummy", nil).Once()
		passwords.On("ComparePassword", "$2a$04$dummy", "secret").Return(errors.New("mismatch")).Once()

		uc := usecase.NewAuthUseCase(users, tokens, passwords, logger.NewNopLogger(), now)
		_, err := uc.Login(ctx, inbound.LoginRequest{Email: "ghost@example.com", Password: "secret"})

		assert.ErrorIs(t, err, domainerror.ErrInvalidCredentials)
		passwords.AssertExpectations(t)
		tokens.AssertNotCalled(t, "IssueAccess", mock.Anything)
	})

	t.Run("store failure is internal, not invalid credentials", func(t *testing.T) {
		users := new(outboundtest.MockUserRepository)
		passwords := new(outboundtest.MockPasswordService)
		tokens := new(outboundtest.MockTokenService)

		users.On("FindByEmail", ctx, "user@example.com").Return(nil, errors.New("connection refused"))

		uc := usecase.NewAuthUseCase(users, tokens, passwords, logger.NewNopLogger(), now)
		_, err := uc.Login(ctx, inbound.LoginRequest{Email: "user@example.com", Password: "secret"})

		assert.Equal(t, domainerror.ErrCodeInternalServerError, domainerror.Code(err))
		assert.NotErrorIs(t, err, domainerror.ErrInvalidCredentials)
	})

	t.Run("token issue failure", func(t *testing.T) {
		users := new(outboundtest.MockUserRepository)
		passwords := new(outboundtest.MockPasswordService)
		tokens := new(outboundtest.MockTokenService)
		user := entity.NewIdentity("id-1", "user", "user@example.com", "hash", entity.NewRoleSet(entity.RoleUser), now())

		users.On("FindByEmail", ctx, "user@example.com").Return(user, nil)
		passwords.On("ComparePassword", "hash", "secret").Return(nil)
		tokens.On("IssueAccess", "id-1").Return(valueobject.IssuedToken{}, errors.New("sign failed"))

		uc := usecase.NewAuthUseCase(users, tokens, passwords, logger.NewNopLogger(), now)
		_, err := uc.Login(ctx, inbound.LoginRequest{Email: "user@example.com", Password: "secret"})

		assert.Equal(t, domainerror.ErrCodeInternalServerError, domainerror.Code(err))
	})

	t.Run("logout store failure", func(t *testing.T) {
		users := new(outboundtest.MockUserRepository)
		user := entity.NewIdentity("id-1", "user", "user@example.com", "hash", entity.NewRoleSet(entity.RoleUser), now())

		users.On("RevokeBefore", ctx, "id-1", mock.MatchedBy(func(at time.Time) bool {
			return at.Equal(now())
		})).Return(errors.New("disk full"))

		uc := usecase.NewAuthUseCase(users, new(outboundtest.MockTokenService), new(outboundtest.MockPasswordService), logger.NewNopLogger(), now)
		err := uc.Logout(ctx, &entity.Principal{Identity: user})

		assert.Equal(t, domainerror.ErrCodeInternalServerError, domainerror.Code(err))
		users.AssertExpectations(t)
	})
}
