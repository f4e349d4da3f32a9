// Package cache puts Redis in front of the cart session store and holds
// per-cart price overrides in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/dukerupert/freyja-cart/internal/domain"
	"github.com/dukerupert/freyja-cart/internal/service"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// DefaultSessionTTL is used when a SessionCache is created without a TTL.
const DefaultSessionTTL = 15 * time.Minute

// SessionCache is a read-through Redis cache over a service.SessionStore.
// The wrapped store stays authoritative: saves go to it first and its
// version check decides conflicts. A stale cached copy can only cause a
// conflict, never a lost write.
type SessionCache struct {
	next    service.SessionStore
	client  *redis.Client
	baseTTL time.Duration
	logger  zerolog.Logger
	sfg     singleflight.Group // Prevents cache stampede
}

// Compile-time check that SessionCache implements service.SessionStore.
var _ service.SessionStore = (*SessionCache)(nil)

// NewSessionCache wraps next with a Redis cache.
func NewSessionCache(next service.SessionStore, client *redis.Client, ttl time.Duration, logger zerolog.Logger) *SessionCache {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionCache{
		next:    next,
		client:  client,
		baseTTL: ttl,
		logger:  logger.With().Str("component", "session_cache").Logger(),
	}
}

// Load returns the cached cart, falling back to the wrapped store on a miss
// or a Redis failure. Concurrent misses for one key share a single store
// read; every caller gets its own decoded copy.
func (c *SessionCache) Load(ctx context.Context, key string) (*domain.Cart, error) {
	v, err, _ := c.sfg.Do(key, func() (interface{}, error) {
		// The read is shared; one caller giving up must not fail the others.
		ctx := context.WithoutCancel(ctx)
		data, err := c.client.Get(ctx, cacheKey(key)).Bytes()
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn().Err(err).Str("cart_key", key).Msg("cache get failed")
		}

		cart, err := c.next.Load(ctx, key)
		if err != nil {
			return nil, err
		}
		data, err = json.Marshal(cart)
		if err != nil {
			return nil, fmt.Errorf("failed to encode cart: %w", err)
		}
		c.set(ctx, key, data)
		return data, nil
	})
	if err != nil {
		return nil, err
	}

	var cart domain.Cart
	if err := json.Unmarshal(v.([]byte), &cart); err != nil {
		// A corrupt entry must not pin the cart; drop it and read through.
		c.invalidate(ctx, key)
		return c.next.Load(ctx, key)
	}
	return &cart, nil
}

// Save writes through to the wrapped store and refreshes the cached copy.
// A conflict evicts the cached copy so the retry reads the winner's write.
func (c *SessionCache) Save(ctx context.Context, cart *domain.Cart) error {
	if err := c.next.Save(ctx, cart); err != nil {
		if errors.Is(err, domain.ErrVersionConflict) {
			c.invalidate(ctx, cart.Key)
		}
		return err
	}

	data, err := json.Marshal(cart)
	if err != nil {
		c.invalidate(ctx, cart.Key)
		return nil
	}
	c.set(ctx, cart.Key, data)
	return nil
}

// Invalidate evicts the cached copy of a cart.
func (c *SessionCache) Invalidate(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, cacheKey(key)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (c *SessionCache) set(ctx context.Context, key string, data []byte) {
	jitter := time.Duration(rand.Int64N(int64(c.baseTTL/10) + 1))
	if err := c.client.Set(ctx, cacheKey(key), data, c.baseTTL+jitter).Err(); err != nil {
		c.logger.Warn().Err(err).Str("cart_key", key).Msg("cache set failed")
		c.invalidate(ctx, key)
	}
}

func (c *SessionCache) invalidate(ctx context.Context, key string) {
	if err := c.Invalidate(ctx, key); err != nil {
		c.logger.Warn().Err(err).Str("cart_key", key).Msg("cache delete failed")
	}
}

func cacheKey(cartKey string) string {
	return fmt.Sprintf("cart:session:%s", cartKey)
}
