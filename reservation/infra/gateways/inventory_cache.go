package gateways

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/shelfmark/shelfmark/reservation/protocols"
)

const (
	cacheKeyPrefix = "inventory:item:"
	cacheTTL       = 30 * time.Second
)

// InventoryDirectoryCache is a redis read-through decorator for Lookup.
// A stale cached copy count is harmless: the stock check happens inside
// the directory's atomic AdjustCopies, never against the cached snapshot.
type InventoryDirectoryCache struct {
	inner  protocols.InventoryDirectory
	client *redis.Client
	logger *zap.Logger
}

func NewInventoryDirectoryCache(inner protocols.InventoryDirectory, client *redis.Client, logger *zap.Logger) *InventoryDirectoryCache {
	return &InventoryDirectoryCache{inner: inner, client: client, logger: logger}
}

func (c *InventoryDirectoryCache) Lookup(ctx context.Context, invID string) (*protocols.InventoryItem, error) {
	key := cacheKeyPrefix + invID
	data, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var it protocols.InventoryItem
		if unmarshalErr := json.Unmarshal(data, &it); unmarshalErr == nil {
			return &it, nil
		}
		// Corrupt entry: drop it and fall through to the origin.
		_ = c.client.Del(ctx, key).Err()
	} else if err != redis.Nil {
		c.logger.Warn("inventory cache read failed", zap.String("inv_id", invID), zap.Error(err))
	}

	it, err := c.inner.Lookup(ctx, invID)
	if err != nil {
		return nil, err
	}
	if raw, marshalErr := json.Marshal(it); marshalErr == nil {
		if setErr := c.client.Set(ctx, key, raw, cacheTTL).Err(); setErr != nil {
			c.logger.Warn("inventory cache write failed", zap.String("inv_id", invID), zap.Error(setErr))
		}
	}
	return it, nil
}

func (c *InventoryDirectoryCache) ListAll(ctx context.Context) ([]protocols.InventoryItem, error) {
	return c.inner.ListAll(ctx)
}

func (c *InventoryDirectoryCache) AdjustCopies(ctx context.Context, invID string, delta int) error {
	if err := c.inner.AdjustCopies(ctx, invID, delta); err != nil {
		return err
	}
	// Invalidate so the next lookup sees the new count promptly.
	_ = c.client.Del(ctx, cacheKeyPrefix+invID).Err()
	return nil
}
