package postgres

import (
	"context"
	"time"

	"github.com/dukerupert/freyja-cart/internal/domain"
	"github.com/dukerupert/freyja-cart/internal/repository"
	"github.com/dukerupert/freyja-cart/internal/service"
)

// ReservationLedger implements service.StockReservationLedger using
// PostgreSQL. Checkout reserves stock per cart key; lapsed reservations are
// ignored until the cleanup worker deletes them.
type ReservationLedger struct {
	repo repository.Querier
	now  func() time.Time
}

// Compile-time check that ReservationLedger implements service.StockReservationLedger.
var _ service.StockReservationLedger = (*ReservationLedger)(nil)

// NewReservationLedger creates a new PostgreSQL-backed reservation ledger.
func NewReservationLedger(repo repository.Querier) *ReservationLedger {
	return &ReservationLedger{repo: repo, now: time.Now}
}

// ReservedQuantity sums live reservations of productID held by other carts.
func (l *ReservationLedger) ReservedQuantity(ctx context.Context, productID int64, excludeCartKey string) (int64, error) {
	n, err := l.repo.SumReservedQuantity(ctx, repository.SumReservedQuantityParams{
		ProductID: productID,
		CartKey:   excludeCartKey,
		Now:       pgTimestamptz(l.now()),
	})
	if err != nil {
		return 0, domain.Internal(err, "reservation.sum", "failed to sum reserved quantity")
	}
	return n, nil
}

// Reserve records quantity of productID as held by cartKey until expiresAt,
// replacing any earlier reservation by the same cart.
func (l *ReservationLedger) Reserve(ctx context.Context, productID int64, cartKey string, quantity int64, expiresAt time.Time) error {
	if quantity <= 0 {
		return l.Release(ctx, productID, cartKey)
	}
	err := l.repo.UpsertReservation(ctx, repository.UpsertReservationParams{
		ProductID: productID,
		CartKey:   cartKey,
		Quantity:  quantity,
		ExpiresAt: pgTimestamptz(expiresAt),
	})
	if err != nil {
		return domain.Internal(err, "reservation.reserve", "failed to reserve stock")
	}
	return nil
}

// Release drops cartKey's reservation of productID.
func (l *ReservationLedger) Release(ctx context.Context, productID int64, cartKey string) error {
	err := l.repo.DeleteReservation(ctx, repository.DeleteReservationParams{
		ProductID: productID,
		CartKey:   cartKey,
	})
	if err != nil {
		return domain.Internal(err, "reservation.release", "failed to release stock")
	}
	return nil
}

// DeleteExpiredReservations removes reservations whose expiry is not after now.
func (l *ReservationLedger) DeleteExpiredReservations(ctx context.Context, now time.Time) (int64, error) {
	n, err := l.repo.DeleteExpiredReservations(ctx, pgTimestamptz(now))
	if err != nil {
		return 0, domain.Internal(err, "reservation.delete_expired", "failed to delete expired reservations")
	}
	return n, nil
}
