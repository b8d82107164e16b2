package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/healthify/internal/healthify/session"
	"github.com/aussiebroadwan/healthify/internal/healthify/store"
	"github.com/aussiebroadwan/healthify/internal/healthify/store/drivers/sqlite"
	"github.com/aussiebroadwan/healthify/pkg/authsdk"
	"github.com/aussiebroadwan/healthify/pkg/cryptox"
)

func newKV(t *testing.T) store.KV {
	t.Helper()
	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())
	return s.KV()
}

func newSecure(t *testing.T, kv store.KV) *store.SecureKV {
	t.Helper()
	master, err := cryptox.GenerateToken(32)
	require.NoError(t, err)
	sec, err := store.NewSecureKV(kv, []byte(master))
	require.NoError(t, err)
	return sec
}

func TestSecureKV(t *testing.T) {
	ctx := context.Background()
	raw := newKV(t)
	sec := newSecure(t, raw)

	require.NoError(t, sec.Put(ctx, "greeting", []byte("hello")))

	got, err := sec.Get(ctx, "greeting")
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), got)

	sealed, err := raw.Get(ctx, "greeting")
	require.NoError(t, err)
	require.NotContains(t, string(sealed), "hello")

	t.Run("value moved to another key fails to open", func(t *testing.T) {
		require.NoError(t, raw.Put(ctx, "other", sealed))
		_, err := sec.Get(ctx, "other")
		require.ErrorIs(t, err, cryptox.ErrCiphertext)
	})

	t.Run("missing key", func(t *testing.T) {
		_, err := sec.Get(ctx, "nope")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("wrong master key", func(t *testing.T) {
		other := newSecure(t, raw)
		_, err := other.Get(ctx, "greeting")
		require.ErrorIs(t, err, cryptox.ErrCiphertext)
	})
}

func TestSessionCache(t *testing.T) {
	ctx := context.Background()
	cache := store.NewSessionCache(newSecure(t, newKV(t)))

	u, err := cache.Snapshot(ctx)
	require.NoError(t, err)
	require.Nil(t, u)

	require.NoError(t, cache.Put(ctx, session.CacheKey, []byte(`{"id":"u1","username":"alice"}`)))
	u, err = cache.Snapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, "u1", u.ID)

	require.NoError(t, cache.Remove(ctx, session.CacheKey))
	require.NoError(t, cache.Remove(ctx, session.CacheKey))
	u, err = cache.Snapshot(ctx)
	require.NoError(t, err)
	require.Nil(t, u)
}

func TestTokenStorage(t *testing.T) {
	ctx := context.Background()
	ts := store.NewTokenStorage(newSecure(t, newKV(t)))

	_, err := ts.LoadToken(ctx)
	require.ErrorIs(t, err, authsdk.ErrNoToken)

	want := &authsdk.StoredToken{ClientID: "healthify", RefreshToken: "rt", Scope: "profile:read"}
	require.NoError(t, ts.SaveToken(ctx, want))

	got, err := ts.LoadToken(ctx)
	require.NoError(t, err)
	require.Equal(t, want, got)

	require.NoError(t, ts.DeleteToken(ctx))
	_, err = ts.LoadToken(ctx)
	require.ErrorIs(t, err, authsdk.ErrNoToken)
}
