package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/dukerupert/freyja-cart/internal/domain"
	"github.com/dukerupert/freyja-cart/internal/repository"
	"github.com/dukerupert/freyja-cart/internal/service"
)

// DefaultCartTTL is used when a SessionStore is created without a TTL.
const DefaultCartTTL = 48 * time.Hour

// SessionStore implements service.SessionStore using PostgreSQL. Carts are
// stored as JSONB rows guarded by a version column; every save pushes the
// expiry ttl into the future.
type SessionStore struct {
	repo repository.Querier
	ttl  time.Duration
	now  func() time.Time
}

// Compile-time check that SessionStore implements service.SessionStore.
var _ service.SessionStore = (*SessionStore)(nil)

// NewSessionStore creates a new PostgreSQL-backed session store.
func NewSessionStore(repo repository.Querier, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultCartTTL
	}
	return &SessionStore{
		repo: repo,
		ttl:  ttl,
		now:  time.Now,
	}
}

// Load returns the live cart saved under key.
func (s *SessionStore) Load(ctx context.Context, key string) (*domain.Cart, error) {
	row, err := s.repo.GetCart(ctx, repository.GetCartParams{
		Key: key,
		Now: pgTimestamptz(s.now()),
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCartNotFound
		}
		return nil, domain.Internal(err, "session.load", "failed to load cart")
	}

	var cart domain.Cart
	if err := json.Unmarshal(row.Data, &cart); err != nil {
		return nil, domain.Internal(err, "session.load", "failed to decode cart")
	}
	cart.Key = row.Key
	cart.Version = row.Version
	return &cart, nil
}

// Save inserts a new cart (version 0) or updates the stored row if its
// version still matches. Zero affected rows means another writer got there
// first.
func (s *SessionStore) Save(ctx context.Context, cart *domain.Cart) error {
	const op = "session.save"

	data, err := json.Marshal(cart)
	if err != nil {
		return domain.Internal(err, op, "failed to encode cart")
	}

	now := s.now()
	var n int64
	if cart.Version == 0 {
		n, err = s.repo.InsertCart(ctx, repository.InsertCartParams{
			Key:       cart.Key,
			Data:      data,
			UpdatedAt: pgTimestamptz(now),
			ExpiresAt: pgTimestamptz(now.Add(s.ttl)),
		})
	} else {
		n, err = s.repo.UpdateCart(ctx, repository.UpdateCartParams{
			Key:       cart.Key,
			Data:      data,
			Version:   cart.Version,
			UpdatedAt: pgTimestamptz(now),
			ExpiresAt: pgTimestamptz(now.Add(s.ttl)),
		})
	}
	if err != nil {
		return domain.Internal(err, op, "failed to save cart")
	}
	if n == 0 {
		return domain.ErrVersionConflict
	}

	cart.Version++
	return nil
}

// Delete removes a cart.
func (s *SessionStore) Delete(ctx context.Context, key string) error {
	if err := s.repo.DeleteCart(ctx, key); err != nil {
		return domain.Internal(err, "session.delete", "failed to delete cart")
	}
	return nil
}

// DeleteExpiredCarts removes carts whose expiry is not after now.
func (s *SessionStore) DeleteExpiredCarts(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.repo.DeleteExpiredCarts(ctx, pgTimestamptz(now))
	if err != nil {
		return 0, domain.Internal(err, "session.delete_expired", "failed to delete expired carts")
	}
	return n, nil
}
