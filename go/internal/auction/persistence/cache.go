package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mcdev12/auctionroom/go/internal/auction/protocol"
	"github.com/mcdev12/auctionroom/go/internal/auction/scoring"
	"github.com/redis/go-redis/v9"
)

// SnapshotCache keeps the latest snapshot and the final results of each room
// in Redis so state survives the room being closed.
type SnapshotCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewSnapshotCache(client *redis.Client, prefix string, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *SnapshotCache) snapshotKey(roomCode string) string { return c.prefix + "room:" + roomCode }

func (c *SnapshotCache) resultsKey(roomCode string) string { return c.prefix + "results:" + roomCode }

func (c *SnapshotCache) SaveRoomSnapshot(ctx context.Context, roomCode string, snapshot protocol.RoomSnapshot) error {
	return c.set(ctx, c.snapshotKey(roomCode), snapshot)
}

// RecordPurchase is a no-op: purchases are part of the next snapshot
func (c *SnapshotCache) RecordPurchase(context.Context, PurchaseRecord) error { return nil }

func (c *SnapshotCache) SaveFinalResults(ctx context.Context, roomCode string, results []scoring.TeamResult) error {
	return c.set(ctx, c.resultsKey(roomCode), results)
}

// Snapshot returns the cached snapshot for a room
func (c *SnapshotCache) Snapshot(ctx context.Context, roomCode string) (protocol.RoomSnapshot, error) {
	var snap protocol.RoomSnapshot
	err := c.get(ctx, c.snapshotKey(roomCode), &snap)
	return snap, err
}

// Results returns the cached final standings for a room
func (c *SnapshotCache) Results(ctx context.Context, roomCode string) ([]scoring.TeamResult, error) {
	var results []scoring.TeamResult
	err := c.get(ctx, c.resultsKey(roomCode), &results)
	return results, err
}

func (c *SnapshotCache) set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal error: %w", err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set error: %w", err)
	}
	return nil
}

func (c *SnapshotCache) get(ctx context.Context, key string, dest any) error {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("cache get error: %w", err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("cache unmarshal error: %w", err)
	}
	return nil
}
