package service

import (
	"context"

	"github.com/dukerupert/freyja-cart/internal/domain"
)

// SmallOrderFee charges a flat fee while the item subtotal of a non-empty
// cart is below a threshold.
type SmallOrderFee struct {
	FeeName        string
	AmountCents    int64
	ThresholdCents int64
	Taxable        bool
}

// Name implements FeeSource.
func (f SmallOrderFee) Name() string {
	return "small_order"
}

// Fees implements FeeSource.
func (f SmallOrderFee) Fees(ctx context.Context, cart *domain.Cart, itemSubtotal int64) ([]domain.Fee, error) {
	if f.AmountCents <= 0 || cart.IsEmpty() || itemSubtotal >= f.ThresholdCents {
		return nil, nil
	}
	name := f.FeeName
	if name == "" {
		name = "Small order fee"
	}
	return []domain.Fee{{Name: name, AmountCents: f.AmountCents, Taxable: f.Taxable}}, nil
}
