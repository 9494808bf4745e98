package cache

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-stock-ledger/internal/ledger"
)

func exercise(t *testing.T, store SessionStore) {
	t.Helper()
	ctx := context.Background()

	fresh, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", fresh.ID)
	assert.Empty(t, fresh.Lines)

	s := ledger.NewSession("s1", "2024-03-01")
	s.Lines["PMI001|B1"] = ledger.PendingLine{NewTotalQty: decimal.RequireFromString("12.5"), Note: "rak 2"}
	require.NoError(t, store.Save(ctx, s))

	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", loaded.DefaultRefDate)
	line := loaded.Lines["PMI001|B1"]
	assert.True(t, decimal.RequireFromString("12.5").Equal(line.NewTotalQty))
	assert.Equal(t, "rak 2", line.Note)

	// Mutating a loaded copy must not leak into the store.
	delete(loaded.Lines, "PMI001|B1")
	again, _ := store.Load(ctx, "s1")
	assert.Len(t, again.Lines, 1)

	require.NoError(t, store.Delete(ctx, "s1"))
	gone, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, gone.Lines)
}

func TestMemorySessionStore(t *testing.T) {
	exercise(t, NewMemorySessionStore())
}

func TestRedisSessionStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisSessionStore(client, time.Hour)
	require.NoError(t, store.Ping(context.Background()))
	exercise(t, store)
}

func TestRedisSessionExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := NewRedisSessionStore(client, time.Minute)
	ctx := context.Background()

	s := ledger.NewSession("s2", "")
	s.Lines["k"] = ledger.PendingLine{NewTotalQty: decimal.NewFromInt(1)}
	require.NoError(t, store.Save(ctx, s))

	mr.FastForward(2 * time.Minute)
	loaded, err := store.Load(ctx, "s2")
	require.NoError(t, err)
	assert.Empty(t, loaded.Lines)
}
