package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dukerupert/freyja-cart/internal/service"
	"github.com/redis/go-redis/v9"
)

// PriceOverrides implements service.PriceOverrideCache with one Redis hash
// per cart. The hash expires with the cart: every Set and every cart save
// (through Touch) pushes the expiry forward.
type PriceOverrides struct {
	client *redis.Client
	ttl    time.Duration
}

// Compile-time check that PriceOverrides implements service.PriceOverrideCache.
var _ service.PriceOverrideCache = (*PriceOverrides)(nil)

// NewPriceOverrides creates a Redis-backed price override cache.
func NewPriceOverrides(client *redis.Client, ttl time.Duration) *PriceOverrides {
	return &PriceOverrides{client: client, ttl: ttl}
}

func (o *PriceOverrides) Set(ctx context.Context, cartKey, itemKey string, priceCents int64) error {
	key := overridesKey(cartKey)
	pipe := o.client.TxPipeline()
	pipe.HSet(ctx, key, itemKey, priceCents)
	if o.ttl > 0 {
		pipe.Expire(ctx, key, o.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis set override failed: %w", err)
	}
	return nil
}

func (o *PriceOverrides) Get(ctx context.Context, cartKey, itemKey string) (int64, bool, error) {
	price, err := o.client.HGet(ctx, overridesKey(cartKey), itemKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("redis get override failed: %w", err)
	}
	return price, true, nil
}

func (o *PriceOverrides) Delete(ctx context.Context, cartKey string, itemKeys ...string) error {
	if len(itemKeys) == 0 {
		return nil
	}
	if err := o.client.HDel(ctx, overridesKey(cartKey), itemKeys...).Err(); err != nil {
		return fmt.Errorf("redis delete override failed: %w", err)
	}
	return nil
}

func (o *PriceOverrides) Touch(ctx context.Context, cartKey string) error {
	if o.ttl <= 0 {
		return nil
	}
	// Expire on a missing key is a no-op.
	if err := o.client.Expire(ctx, overridesKey(cartKey), o.ttl).Err(); err != nil {
		return fmt.Errorf("redis touch overrides failed: %w", err)
	}
	return nil
}

func overridesKey(cartKey string) string {
	return fmt.Sprintf("cart:overrides:%s", cartKey)
}
