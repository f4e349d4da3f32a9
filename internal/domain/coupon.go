package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CouponType selects how a coupon's discount is computed.
type CouponType string

const (
	CouponTypeFixedCart CouponType = "fixed_cart"
	CouponTypePercent   CouponType = "percent"
)

// Coupon is a discount code resolved from the coupon repository.
type Coupon struct {
	Code             string
	Type             CouponType
	AmountCents      int64
	Percent          decimal.Decimal // 12.5 means 12.5%
	MinSubtotalCents int64
	MaxDiscountCents int64 // 0 = no cap
	ExpiresAt        *time.Time
	Active           bool
}

// Usable reports whether the coupon can be applied to a cart with the given
// item subtotal at time now. The returned reason is user-facing.
func (c *Coupon) Usable(subtotal int64, now time.Time) (bool, string) {
	if !c.Active {
		return false, "This coupon is no longer active"
	}
	if c.ExpiresAt != nil && !now.Before(*c.ExpiresAt) {
		return false, "This coupon has expired"
	}
	if c.MinSubtotalCents > 0 && subtotal < c.MinSubtotalCents {
		return false, "The cart subtotal is below this coupon's minimum"
	}
	return true, ""
}

// Discount returns the discount this coupon grants on subtotal, never more
// than subtotal.
func (c *Coupon) Discount(subtotal int64) int64 {
	if subtotal <= 0 {
		return 0
	}

	var d int64
	switch c.Type {
	case CouponTypePercent:
		d = decimal.NewFromInt(subtotal).
			Mul(c.Percent).
			Div(decimal.NewFromInt(100)).
			Round(0).
			IntPart()
	default:
		d = c.AmountCents
	}

	if c.MaxDiscountCents > 0 && d > c.MaxDiscountCents {
		d = c.MaxDiscountCents
	}
	if d > subtotal {
		d = subtotal
	}
	if d < 0 {
		d = 0
	}
	return d
}

// Allocate splits amount across weights in proportion, rounding each share
// half away from zero and giving the rounding remainder to the last
// non-zero weight. The shares sum to amount when any weight is positive.
func Allocate(amount int64, weights []int64) []int64 {
	shares := make([]int64, len(weights))

	var total int64
	last := -1
	for i, w := range weights {
		if w > 0 {
			total += w
			last = i
		}
	}
	if total == 0 || amount == 0 {
		return shares
	}

	amt := decimal.NewFromInt(amount)
	den := decimal.NewFromInt(total)
	var given int64
	for i, w := range weights {
		if w <= 0 || i == last {
			continue
		}
		shares[i] = amt.Mul(decimal.NewFromInt(w)).Div(den).Round(0).IntPart()
		given += shares[i]
	}
	shares[last] = amount - given
	return shares
}
