package service

import (
	"context"

	"github.com/dukerupert/freyja-cart/internal/domain"
)

// ProductCatalog resolves catalog entries. Lookups of absent products return
// an error with code domain.ENOTFOUND; any other error is an infrastructure
// failure.
type ProductCatalog interface {
	GetProduct(ctx context.Context, id int64) (*domain.ProductSnapshot, error)
	GetProductBySKU(ctx context.Context, sku string) (*domain.ProductSnapshot, error)

	// FindVariation returns the id of the variation of productID matching
	// attrs (keyed by normalized attribute name), or 0 when none matches.
	// Variations with an empty value for an attribute accept any value.
	FindVariation(ctx context.Context, productID int64, attrs map[string]string) (int64, error)

	// GetVariationAttributes returns a variation's own attribute values in
	// declaration order. Empty values mean "any".
	GetVariationAttributes(ctx context.Context, variationID int64) (domain.Variation, error)
}

// StockReservationLedger reports stock claimed by in-flight checkouts.
type StockReservationLedger interface {
	// ReservedQuantity returns the quantity of productID reserved by carts
	// other than excludeCartKey.
	ReservedQuantity(ctx context.Context, productID int64, excludeCartKey string) (int64, error)
}

// SessionStore persists whole cart aggregates.
//
// Load returns domain.ErrCartNotFound when nothing has been saved for key.
// Save writes the aggregate only if the stored version still equals
// cart.Version, returning domain.ErrVersionConflict otherwise; on success it
// increments cart.Version.
type SessionStore interface {
	Load(ctx context.Context, key string) (*domain.Cart, error)
	Save(ctx context.Context, cart *domain.Cart) error
}

// PriceOverrideCache holds caller-forced unit prices per cart line.
type PriceOverrideCache interface {
	Set(ctx context.Context, cartKey, itemKey string, priceCents int64) error
	Get(ctx context.Context, cartKey, itemKey string) (int64, bool, error)
	Delete(ctx context.Context, cartKey string, itemKeys ...string) error
	// Touch extends the lifetime of a cart's overrides to match the cart's.
	Touch(ctx context.Context, cartKey string) error
}

// CouponRepository looks up coupon definitions. Unknown codes return an error
// with code domain.ENOTFOUND.
type CouponRepository interface {
	GetCoupon(ctx context.Context, code string) (*domain.Coupon, error)
}

// EventPublisher receives committed cart mutations.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.CartEvent) error
}

// ItemValidator is an extension check run after the built-in validation
// stages, before a line is committed.
type ItemValidator interface {
	ValidateItem(ctx context.Context, cart *domain.Cart, item *domain.CartItem) error
}

// ItemValidatorFunc adapts a function to ItemValidator.
type ItemValidatorFunc func(ctx context.Context, cart *domain.Cart, item *domain.CartItem) error

// ValidateItem calls f.
func (f ItemValidatorFunc) ValidateItem(ctx context.Context, cart *domain.Cart, item *domain.CartItem) error {
	return f(ctx, cart, item)
}

// FeeSource computes strategy fees during the fee stage of a recompute.
type FeeSource interface {
	// Name is stored as the Source of the fees it returns.
	Name() string
	Fees(ctx context.Context, cart *domain.Cart, itemSubtotal int64) ([]domain.Fee, error)
}

// Metrics receives operation outcomes.
type Metrics interface {
	ObserveOperation(op string, err error)
	ObserveCartValue(totalCents int64)
}

// ErrorReporter receives backend failures.
type ErrorReporter interface {
	CaptureError(ctx context.Context, err error, tags map[string]string)
}
