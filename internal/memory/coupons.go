package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/dukerupert/freyja-cart/internal/domain"
)

// Coupons is an in-memory service.CouponRepository. Codes are case
// insensitive.
type Coupons struct {
	mu      sync.RWMutex
	coupons map[string]domain.Coupon
}

// NewCoupons creates a repository holding the given coupons.
func NewCoupons(coupons ...domain.Coupon) *Coupons {
	c := &Coupons{coupons: make(map[string]domain.Coupon)}
	for _, coupon := range coupons {
		c.Put(coupon)
	}
	return c
}

// Put adds or replaces a coupon.
func (c *Coupons) Put(coupon domain.Coupon) {
	c.mu.Lock()
	defer c.mu.Unlock()
	coupon.Code = strings.ToLower(coupon.Code)
	c.coupons[coupon.Code] = coupon
}

func (c *Coupons) GetCoupon(ctx context.Context, code string) (*domain.Coupon, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	coupon, ok := c.coupons[strings.ToLower(code)]
	if !ok {
		return nil, domain.NotFound("coupons.get", "coupon", code)
	}
	return &coupon, nil
}
