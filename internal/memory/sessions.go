package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dukerupert/freyja-cart/internal/domain"
)

type storedCart struct {
	data      []byte
	version   int64
	expiresAt time.Time
}

// SessionStore keeps serialized carts in memory. Every Load returns a fresh
// copy, so callers never share state through it.
type SessionStore struct {
	mu    sync.Mutex
	carts map[string]storedCart
	ttl   time.Duration
	now   func() time.Time
}

// NewSessionStore creates a store whose carts expire ttl after their last
// save. A zero ttl never expires.
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		carts: make(map[string]storedCart),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Load implements service.SessionStore.
func (s *SessionStore) Load(ctx context.Context, key string) (*domain.Cart, error) {
	s.mu.Lock()
	stored, ok := s.carts[key]
	s.mu.Unlock()

	if !ok || s.expired(stored) {
		return nil, domain.ErrCartNotFound
	}

	var cart domain.Cart
	if err := json.Unmarshal(stored.data, &cart); err != nil {
		return nil, fmt.Errorf("failed to decode cart %s: %w", key, err)
	}
	cart.Version = stored.version
	return &cart, nil
}

// Save implements service.SessionStore.
func (s *SessionStore) Save(ctx context.Context, cart *domain.Cart) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("failed to encode cart %s: %w", cart.Key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var current int64
	if stored, ok := s.carts[cart.Key]; ok && !s.expired(stored) {
		current = stored.version
	}
	if current != cart.Version {
		return domain.ErrVersionConflict
	}

	stored := storedCart{data: data, version: current + 1}
	if s.ttl > 0 {
		stored.expiresAt = s.now().Add(s.ttl)
	}
	s.carts[cart.Key] = stored
	cart.Version = stored.version
	return nil
}

// Delete removes a cart.
func (s *SessionStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, key)
	return nil
}

// DeleteExpiredCarts removes carts that expired before now.
func (s *SessionStore) DeleteExpiredCarts(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for key, stored := range s.carts {
		if !stored.expiresAt.IsZero() && !stored.expiresAt.After(now) {
			delete(s.carts, key)
			n++
		}
	}
	return n, nil
}

func (s *SessionStore) expired(stored storedCart) bool {
	return !stored.expiresAt.IsZero() && !stored.expiresAt.After(s.now())
}
