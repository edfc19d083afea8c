package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/voucher-ledger-system/internal/model"
)

// Connect creates a Redis client and verifies the connection.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	log.Info().Str("addr", addr).Msg("redis connection established")
	return client, nil
}

// SnapshotCache is a read-through cache for voucher snapshots. The database
// row stays the source of truth; entries are invalidated after every
// committed mutation through the observer below, with the TTL as a backstop.
type SnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates a SnapshotCache.
func New(client *redis.Client, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{client: client, ttl: ttl}
}

func snapshotKey(id uuid.UUID) string {
	return "voucher:snapshot:" + id.String()
}

// Get returns the cached snapshot, or nil, nil on a miss.
func (c *SnapshotCache) Get(ctx context.Context, id uuid.UUID) (*model.VoucherSnapshot, error) {
	data, err := c.client.Get(ctx, snapshotKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("cache get: %w", err)
	}

	var snap model.VoucherSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal cached snapshot: %w", err)
	}
	return &snap, nil
}

// Set stores a snapshot with the configured TTL.
func (c *SnapshotCache) Set(ctx context.Context, snap *model.VoucherSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := c.client.Set(ctx, snapshotKey(snap.ID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Invalidate drops the cached snapshot for a voucher.
func (c *SnapshotCache) Invalidate(ctx context.Context, id uuid.UUID) error {
	if err := c.client.Del(ctx, snapshotKey(id)).Err(); err != nil {
		return fmt.Errorf("cache invalidate: %w", err)
	}
	return nil
}

// Invalidator drops stale snapshots after committed mutations.
// Implements service.RedemptionObserver.
type Invalidator struct {
	cache *SnapshotCache
}

// NewInvalidator creates an Invalidator over the given cache.
func NewInvalidator(cache *SnapshotCache) *Invalidator {
	return &Invalidator{cache: cache}
}

// AfterMutation invalidates the snapshot; a cache failure is logged only and
// never affects the mutation that triggered it.
func (i *Invalidator) AfterMutation(ctx context.Context, v *model.Voucher) {
	if err := i.cache.Invalidate(ctx, v.ID); err != nil {
		log.Warn().Err(err).Str("voucher_id", v.ID.String()).Msg("snapshot cache invalidation failed")
	}
}
