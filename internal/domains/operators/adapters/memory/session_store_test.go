package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/localborga/milling-orders/internal/domains/operators/domain"
	"github.com/localborga/milling-orders/internal/domains/operators/ports"
)

func TestSessionStore_PurgeExpired(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Save(ctx, domain.Session{ID: "old", Role: domain.RoleAdmin, ExpiresAt: now.Add(-time.Minute)}))
	require.NoError(t, store.Save(ctx, domain.Session{ID: "live", Role: domain.RoleAdmin, ExpiresAt: now.Add(time.Hour)}))

	purged, err := store.PurgeExpired(ctx, now)
	require.NoError(t, err)
	require.EqualValues(t, 1, purged)

	_, err = store.Get(ctx, "old")
	require.ErrorIs(t, err, ports.ErrSessionNotFound)
	live, err := store.Get(ctx, "live")
	require.NoError(t, err)
	require.Equal(t, domain.RoleAdmin, live.Role)

	require.NoError(t, store.Delete(ctx, "live"))
	require.NoError(t, store.Delete(ctx, "live"))
	_, err = store.Get(ctx, "live")
	require.ErrorIs(t, err, ports.ErrSessionNotFound)
}
