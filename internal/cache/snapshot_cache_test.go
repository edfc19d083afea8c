package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/voucher-ledger-system/internal/model"
)

func newTestCache(t *testing.T) (*SnapshotCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, 5*time.Minute), mr
}

func testSnapshot() *model.VoucherSnapshot {
	return &model.VoucherSnapshot{
		ID:             uuid.New(),
		Number:         "VCH-CACHE0000001",
		Status:         model.StatusActive,
		RemainingValue: decimal.RequireFromString("30.00"),
		Currency:       "USD",
	}
}

func TestSnapshotCache_SetAndGet(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()
	snap := testSnapshot()

	require.NoError(t, cache.Set(ctx, snap))

	got, err := cache.Get(ctx, snap.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, snap.ID, got.ID)
	assert.Equal(t, snap.Number, got.Number)
	assert.Equal(t, model.StatusActive, got.Status)
	assert.True(t, got.RemainingValue.Equal(snap.RemainingValue))
}

func TestSnapshotCache_Get_Miss(t *testing.T) {
	cache, _ := newTestCache(t)

	got, err := cache.Get(context.Background(), uuid.New())
	require.NoError(t, err, "a miss is not an error")
	assert.Nil(t, got)
}

func TestSnapshotCache_Set_AppliesTTL(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()
	snap := testSnapshot()

	require.NoError(t, cache.Set(ctx, snap))

	// The TTL backstops invalidation; past it the entry is gone.
	mr.FastForward(6 * time.Minute)
	got, err := cache.Get(ctx, snap.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSnapshotCache_Invalidate(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()
	snap := testSnapshot()

	require.NoError(t, cache.Set(ctx, snap))
	require.NoError(t, cache.Invalidate(ctx, snap.ID))

	got, err := cache.Get(ctx, snap.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestInvalidator_AfterMutation(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()
	snap := testSnapshot()
	require.NoError(t, cache.Set(ctx, snap))

	inv := NewInvalidator(cache)
	inv.AfterMutation(ctx, &model.Voucher{ID: snap.ID})

	got, err := cache.Get(ctx, snap.ID)
	require.NoError(t, err)
	assert.Nil(t, got, "a committed mutation drops the stale snapshot")
}

func TestConnect_Unreachable(t *testing.T) {
	_, err := Connect(context.Background(), "127.0.0.1:1", "", 0)
	assert.Error(t, err)
}
