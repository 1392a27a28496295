package application

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/localborga/milling-orders/internal/domains/operators/adapters/memory"
	"github.com/localborga/milling-orders/internal/domains/operators/domain"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func newTestService(t *testing.T) (*Service, *memory.SessionStore, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Now().UTC()}
	store := memory.NewSessionStore()
	svc := NewService(Config{AdminPassword: "millstone", SigningSecret: "test-secret"},
		WithSessionStore(store), WithClock(clock.Now))
	return svc, store, clock
}

func TestLogin_IssuesAdminToken(t *testing.T) {
	svc, _, clock := newTestService(t)

	token, err := svc.Login(context.Background(), "millstone")
	require.NoError(t, err)
	require.NotEmpty(t, token.Value)
	require.WithinDuration(t, clock.now.Add(DefaultTokenTTL), token.ExpiresAt, time.Second)

	principal, err := svc.Authenticate(context.Background(), token.Value)
	require.NoError(t, err)
	require.Equal(t, domain.RoleAdmin, principal.Role)
	require.NotEmpty(t, principal.SessionID)
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Login(context.Background(), "millstones")
	require.ErrorIs(t, err, ErrAuthentication)
}

func TestLogin_Misconfigured(t *testing.T) {
	svc := NewService(Config{SigningSecret: "secret"})
	_, err := svc.Login(context.Background(), "")
	require.ErrorIs(t, err, ErrMisconfigured)

	svc = NewService(Config{AdminPassword: "pw"})
	_, err = svc.Login(context.Background(), "pw")
	require.ErrorIs(t, err, ErrMisconfigured)
	_, err = svc.Authenticate(context.Background(), "anything")
	require.ErrorIs(t, err, ErrMisconfigured)
}

func TestAuthenticate_RejectsExpiredToken(t *testing.T) {
	svc, _, clock := newTestService(t)
	token, err := svc.Login(context.Background(), "millstone")
	require.NoError(t, err)

	clock.now = clock.now.Add(DefaultTokenTTL + time.Minute)
	_, err = svc.Authenticate(context.Background(), token.Value)
	require.ErrorIs(t, err, ErrAuthentication)
}

func TestAuthenticate_RejectsForeignSignature(t *testing.T) {
	svc, _, _ := newTestService(t)
	other := NewService(Config{AdminPassword: "millstone", SigningSecret: "other-secret"})
	token, err := other.Login(context.Background(), "millstone")
	require.NoError(t, err)

	_, err = svc.Authenticate(context.Background(), token.Value)
	require.ErrorIs(t, err, ErrAuthentication)
}

func TestAuthenticate_RejectsNonAdminRole(t *testing.T) {
	svc, _, clock := newTestService(t)
	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "s-1",
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(clock.now.Add(time.Hour)),
		},
		Role: "customer",
	})
	raw, err := forged.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = svc.Authenticate(context.Background(), raw)
	require.ErrorIs(t, err, ErrAuthentication)
}

func TestLogout_RevokesSession(t *testing.T) {
	svc, store, clock := newTestService(t)
	ctx := context.Background()
	token, err := svc.Login(ctx, "millstone")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, token.Value))
	_, err = svc.Authenticate(ctx, token.Value)
	require.ErrorIs(t, err, ErrAuthentication)

	purged, err := store.PurgeExpired(ctx, clock.now.Add(24*time.Hour))
	require.NoError(t, err)
	require.Zero(t, purged)
}

func TestAuthenticate_StatelessWithoutStore(t *testing.T) {
	svc := NewService(Config{AdminPassword: "millstone", SigningSecret: "s", TokenTTL: time.Minute})
	token, err := svc.Login(context.Background(), "millstone")
	require.NoError(t, err)

	principal, err := svc.Authenticate(context.Background(), token.Value)
	require.NoError(t, err)
	require.Equal(t, domain.RoleAdmin, principal.Role)
	require.NoError(t, svc.Logout(context.Background(), token.Value))
}
