package memory

import (
	"context"
	"strconv"
	"sync"
	"time"
)

type reservation struct {
	quantity  int64
	expiresAt time.Time
}

// Ledger is an in-memory stock reservation ledger. Checkouts reserve stock
// per cart key; reservations lapse at their expiry.
type Ledger struct {
	mu           sync.RWMutex
	reservations map[int64]map[string]reservation // product id -> cart key -> reservation
	now          func() time.Time
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		reservations: make(map[int64]map[string]reservation),
		now:          time.Now,
	}
}

// Reserve records quantity of productID as held by cartKey until expiresAt,
// replacing any earlier reservation by the same cart.
func (l *Ledger) Reserve(productID int64, cartKey string, quantity int64, expiresAt time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	byCart, ok := l.reservations[productID]
	if !ok {
		byCart = make(map[string]reservation)
		l.reservations[productID] = byCart
	}
	byCart[cartKey] = reservation{quantity: quantity, expiresAt: expiresAt}
}

// Release drops cartKey's reservation of productID.
func (l *Ledger) Release(productID int64, cartKey string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.reservations[productID], cartKey)
}

// ReservedQuantity implements service.StockReservationLedger.
func (l *Ledger) ReservedQuantity(ctx context.Context, productID int64, excludeCartKey string) (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	now := l.now()
	var total int64
	for cartKey, r := range l.reservations[productID] {
		if cartKey == excludeCartKey || !r.expiresAt.After(now) {
			continue
		}
		total += r.quantity
	}
	return total, nil
}

// DeleteExpiredReservations removes reservations that expired before now.
func (l *Ledger) DeleteExpiredReservations(ctx context.Context, now time.Time) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var n int64
	for productID, byCart := range l.reservations {
		for cartKey, r := range byCart {
			if !r.expiresAt.After(now) {
				delete(byCart, cartKey)
				n++
			}
		}
		if len(byCart) == 0 {
			delete(l.reservations, productID)
		}
	}
	return n, nil
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
