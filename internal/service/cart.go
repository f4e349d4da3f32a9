package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/freyja-cart/internal/address"
	"github.com/dukerupert/freyja-cart/internal/domain"
	"github.com/rs/zerolog"
)

// CartService provides the cart operations exposed to the transport layer.
// Every mutation runs load, validate, mutate, recompute and save for one cart
// key while holding that key's lock, and retries the whole sequence when the
// save loses an optimistic version race.
type CartService interface {
	GetCart(ctx context.Context, cartKey string) (*domain.Cart, error)
	GetTotals(ctx context.Context, cartKey string) (domain.Totals, error)
	CheckItems(ctx context.Context, cartKey string) ([]ItemProblem, error)

	AddItem(ctx context.Context, cartKey string, params AddItemParams) (*domain.Cart, *domain.CartItem, error)
	// UpdateItem sets an active line's quantity. Zero removes the line.
	UpdateItem(ctx context.Context, cartKey, itemKey string, quantity int64) (*domain.Cart, *domain.CartItem, error)
	RemoveItem(ctx context.Context, cartKey, itemKey string) (*domain.Cart, *domain.CartItem, error)
	RestoreItem(ctx context.Context, cartKey, itemKey string) (*domain.Cart, *domain.CartItem, error)
	Clear(ctx context.Context, cartKey string, keepRemoved bool) (*domain.Cart, error)

	ApplyCoupon(ctx context.Context, cartKey, code string) (*domain.Cart, error)
	RemoveCoupon(ctx context.Context, cartKey, code string) (*domain.Cart, error)
	AddFee(ctx context.Context, cartKey, name string, amountCents int64, taxable bool) (*domain.Cart, error)
	RemoveFee(ctx context.Context, cartKey, name string) (*domain.Cart, error)
	SetShippingAddress(ctx context.Context, cartKey string, addr domain.Address) (*domain.Cart, error)
	SelectShippingRate(ctx context.Context, cartKey, rateID string) (*domain.Cart, error)
	SetPriceOverride(ctx context.Context, cartKey, itemKey string, priceCents int64) (*domain.Cart, error)
}

// ItemProblem is a reason an active line could not be bought as it stands.
type ItemProblem struct {
	ItemKey string         `json:"item_key"`
	Kind    domain.Kind    `json:"kind"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

// CartServiceConfig wires a CartService. Sessions, Catalog, Ledger and Totals
// are required.
type CartServiceConfig struct {
	Sessions   SessionStore
	Catalog    ProductCatalog
	Ledger     StockReservationLedger
	Totals     *TotalsCalculator
	Overrides  PriceOverrideCache
	Coupons    CouponRepository
	Events     EventPublisher
	Metrics    Metrics
	Reporter   ErrorReporter
	Validators []ItemValidator
	Logger     zerolog.Logger

	// Addresses normalizes shipping addresses. Nil stores them as given.
	Addresses address.Validator

	// MaxAttempts bounds the saves tried per mutation. Defaults to 3.
	MaxAttempts int
	Now         func() time.Time
}

type cartService struct {
	sessions  SessionStore
	catalog   ProductCatalog
	pipeline  *ValidationPipeline
	totals    *TotalsCalculator
	overrides PriceOverrideCache
	coupons   CouponRepository
	events    EventPublisher
	metrics   Metrics
	reporter  ErrorReporter
	addresses address.Validator
	logger    zerolog.Logger
	locks     *keyLock
	attempts  int
	now       func() time.Time
}

// NewCartService creates a new CartService instance
func NewCartService(cfg CartServiceConfig) (CartService, error) {
	switch {
	case cfg.Sessions == nil:
		return nil, fmt.Errorf("cart service: session store is required")
	case cfg.Catalog == nil:
		return nil, fmt.Errorf("cart service: product catalog is required")
	case cfg.Ledger == nil:
		return nil, fmt.Errorf("cart service: reservation ledger is required")
	case cfg.Totals == nil:
		return nil, fmt.Errorf("cart service: totals calculator is required")
	}

	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &cartService{
		sessions:  cfg.Sessions,
		catalog:   cfg.Catalog,
		pipeline:  NewValidationPipeline(cfg.Catalog, cfg.Ledger, cfg.Validators...),
		totals:    cfg.Totals,
		overrides: cfg.Overrides,
		coupons:   cfg.Coupons,
		events:    cfg.Events,
		metrics:   cfg.Metrics,
		reporter:  cfg.Reporter,
		addresses: cfg.Addresses,
		logger:    cfg.Logger.With().Str("component", "cart").Logger(),
		locks:     newKeyLock(),
		attempts:  attempts,
		now:       now,
	}, nil
}

// outcome describes what a committed mutation did.
type outcome struct {
	item      *domain.CartItem
	event     domain.CartEventType
	coupon    string
	overrides pendingOverrides
}

type mutateFunc func(ctx context.Context, cart *domain.Cart) (*outcome, error)

// =============================================================================
// Reads
// =============================================================================

// GetCart returns the cart for key, recomputing totals first when they are
// stale. An unknown key yields an empty cart.
func (s *cartService) GetCart(ctx context.Context, cartKey string) (cart *domain.Cart, err error) {
	const op = "cart.get"
	defer func() { s.observe(ctx, op, cartKey, err) }()

	cart, err = s.load(ctx, op, cartKey)
	if err != nil {
		return nil, err
	}
	if cart.TotalsValid {
		return cart, nil
	}

	if _, err := s.totals.Recompute(ctx, cart); err != nil {
		return nil, err
	}
	if cart.Version > 0 {
		// Best effort: a concurrent writer will have saved fresher totals.
		snapshot := cart.Clone()
		if err := s.sessions.Save(ctx, snapshot); err != nil {
			s.logger.Debug().Err(err).Str("cart_key", cartKey).Msg("skipped saving recomputed totals")
		} else {
			cart = snapshot
		}
	}
	return cart, nil
}

// GetTotals returns the cart's totals.
func (s *cartService) GetTotals(ctx context.Context, cartKey string) (domain.Totals, error) {
	cart, err := s.GetCart(ctx, cartKey)
	if err != nil {
		return domain.Totals{}, err
	}
	return cart.Totals, nil
}

// CheckItems re-validates every active line against the current catalog and
// ledger without changing the cart.
func (s *cartService) CheckItems(ctx context.Context, cartKey string) (problems []ItemProblem, err error) {
	const op = "cart.check_items"
	defer func() { s.observe(ctx, op, cartKey, err) }()

	cart, err := s.load(ctx, op, cartKey)
	if err != nil {
		return nil, err
	}

	problems = []ItemProblem{}
	for _, item := range cart.Items.Values() {
		_, verr := s.pipeline.ValidateUpdate(ctx, cart, item, item.Quantity)
		if verr == nil {
			continue
		}
		if isBackendError(verr) {
			return nil, verr
		}
		problems = append(problems, ItemProblem{
			ItemKey: item.Key,
			Kind:    domain.ErrorKind(verr),
			Message: domain.ErrorMessage(verr),
			Data:    domain.ErrorData(verr),
		})
	}
	return problems, nil
}

// =============================================================================
// Item mutations
// =============================================================================

// AddItem validates a line and merges it into the cart.
func (s *cartService) AddItem(ctx context.Context, cartKey string, params AddItemParams) (*domain.Cart, *domain.CartItem, error) {
	cart, out, err := s.mutate(ctx, "cart.add_item", cartKey, func(ctx context.Context, cart *domain.Cart) (*outcome, error) {
		validated, err := s.pipeline.ValidateAdd(ctx, cart, params)
		if err != nil {
			return nil, err
		}
		out := &outcome{event: domain.EventItemAdded}
		// Adding over a tombstone discards it along with its override.
		if !cart.Items.Has(validated.Key) && cart.RemovedItems.Has(validated.Key) {
			out.overrides.deleted = []string{validated.Key}
		}
		out.item = cart.AddItem(*validated)
		return out, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return cart, out.item, nil
}

// UpdateItem sets the quantity of an active line.
func (s *cartService) UpdateItem(ctx context.Context, cartKey, itemKey string, quantity int64) (*domain.Cart, *domain.CartItem, error) {
	cart, out, err := s.mutate(ctx, "cart.update_item", cartKey, func(ctx context.Context, cart *domain.Cart) (*outcome, error) {
		if quantity == 0 {
			removed, err := cart.RemoveItem(itemKey)
			if err != nil {
				return nil, err
			}
			return &outcome{item: removed, event: domain.EventItemRemoved}, nil
		}

		item, ok := cart.Items.Get(itemKey)
		if !ok {
			// SetQuantity reports whether the key is a tombstone or unknown.
			_, err := cart.SetQuantity(itemKey, quantity)
			return nil, err
		}
		validated, err := s.pipeline.ValidateUpdate(ctx, cart, item, quantity)
		if err != nil {
			return nil, err
		}
		updated, err := cart.SetQuantity(itemKey, validated.Quantity)
		if err != nil {
			return nil, err
		}
		updated.Product = validated.Product
		return &outcome{item: updated, event: domain.EventItemUpdated}, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return cart, out.item, nil
}

// RemoveItem moves an active line to the removed set.
func (s *cartService) RemoveItem(ctx context.Context, cartKey, itemKey string) (*domain.Cart, *domain.CartItem, error) {
	cart, out, err := s.mutate(ctx, "cart.remove_item", cartKey, func(ctx context.Context, cart *domain.Cart) (*outcome, error) {
		removed, err := cart.RemoveItem(itemKey)
		if err != nil {
			return nil, err
		}
		return &outcome{item: removed, event: domain.EventItemRemoved}, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return cart, out.item, nil
}

// RestoreItem moves a removed line back to the active set.
func (s *cartService) RestoreItem(ctx context.Context, cartKey, itemKey string) (*domain.Cart, *domain.CartItem, error) {
	cart, out, err := s.mutate(ctx, "cart.restore_item", cartKey, func(ctx context.Context, cart *domain.Cart) (*outcome, error) {
		// The stock may have gone to other lines since the removal.
		if removed, ok := cart.RemovedItems.Get(itemKey); ok {
			if _, err := s.pipeline.ValidateRestore(ctx, cart, removed); err != nil {
				return nil, err
			}
		}
		restored, err := cart.RestoreItem(itemKey)
		if err != nil {
			return nil, err
		}
		return &outcome{item: restored, event: domain.EventItemRestored}, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return cart, out.item, nil
}

// Clear empties the cart. Price overrides of permanently deleted lines are
// dropped once the cart is saved.
func (s *cartService) Clear(ctx context.Context, cartKey string, keepRemoved bool) (*domain.Cart, error) {
	cart, _, err := s.mutate(ctx, "cart.clear", cartKey, func(ctx context.Context, cart *domain.Cart) (*outcome, error) {
		deleted := cart.Clear(keepRemoved)
		return &outcome{overrides: pendingOverrides{deleted: deleted}, event: domain.EventCartCleared}, nil
	})
	return cart, err
}

// =============================================================================
// Coupons, fees, shipping and price overrides
// =============================================================================

// ApplyCoupon applies a coupon code. Applying a code twice is a no-op.
func (s *cartService) ApplyCoupon(ctx context.Context, cartKey, code string) (*domain.Cart, error) {
	const op = "cart.apply_coupon"
	code = normalizeCouponCode(code)

	cart, _, err := s.mutate(ctx, op, cartKey, func(ctx context.Context, cart *domain.Cart) (*outcome, error) {
		if s.coupons == nil {
			return nil, couponNotFound(op, code)
		}
		if cart.HasCoupon(code) {
			return &outcome{}, nil
		}

		coupon, err := s.coupons.GetCoupon(ctx, code)
		if err != nil {
			if domain.IsCode(err, domain.ENOTFOUND) {
				return nil, couponNotFound(op, code)
			}
			return nil, domain.BackendUnavailable(err, op)
		}

		if !cart.TotalsValid {
			if _, err := s.totals.Recompute(ctx, cart); err != nil {
				return nil, err
			}
		}
		if ok, reason := coupon.Usable(cart.Totals.Subtotal, s.now()); !ok {
			return nil, domain.KindErrorf(domain.KindCouponNotApplicable, op,
				map[string]any{"coupon": code, "reason": reason},
				"Coupon %s cannot be applied: %s", code, reason)
		}

		cart.ApplyCoupon(code)
		return &outcome{event: domain.EventCouponApplied, coupon: code}, nil
	})
	return cart, err
}

// RemoveCoupon removes an applied coupon code.
func (s *cartService) RemoveCoupon(ctx context.Context, cartKey, code string) (*domain.Cart, error) {
	const op = "cart.remove_coupon"
	code = normalizeCouponCode(code)

	cart, _, err := s.mutate(ctx, op, cartKey, func(ctx context.Context, cart *domain.Cart) (*outcome, error) {
		if !cart.RemoveCoupon(code) {
			return nil, couponNotFound(op, code)
		}
		return &outcome{event: domain.EventCouponRemoved, coupon: code}, nil
	})
	return cart, err
}

// AddFee adds a manual fee, replacing the amount of a manual fee with the
// same name.
func (s *cartService) AddFee(ctx context.Context, cartKey, name string, amountCents int64, taxable bool) (*domain.Cart, error) {
	const op = "cart.add_fee"
	name = strings.TrimSpace(name)

	cart, _, err := s.mutate(ctx, op, cartKey, func(ctx context.Context, cart *domain.Cart) (*outcome, error) {
		if name == "" {
			return nil, feeInvalid(op, name, "Fee name is required")
		}
		if amountCents == 0 {
			return nil, feeInvalid(op, name, "Fee amount must not be zero")
		}
		for _, f := range cart.Fees {
			if f.Name == name && f.Source != domain.FeeSourceManual {
				return nil, feeInvalid(op, name, "Fee name is reserved: "+name)
			}
		}
		cart.SetFee(domain.Fee{Name: name, AmountCents: amountCents, Taxable: taxable, Source: domain.FeeSourceManual})
		return &outcome{}, nil
	})
	return cart, err
}

// RemoveFee removes a manual fee by name.
func (s *cartService) RemoveFee(ctx context.Context, cartKey, name string) (*domain.Cart, error) {
	const op = "cart.remove_fee"
	name = strings.TrimSpace(name)

	cart, _, err := s.mutate(ctx, op, cartKey, func(ctx context.Context, cart *domain.Cart) (*outcome, error) {
		manual := false
		for _, f := range cart.ManualFees() {
			if f.Name == name {
				manual = true
				break
			}
		}
		if !manual || !cart.RemoveFee(name) {
			return nil, feeInvalid(op, name, "No fee named "+name)
		}
		return &outcome{}, nil
	})
	return cart, err
}

// SetShippingAddress replaces the shipping destination.
func (s *cartService) SetShippingAddress(ctx context.Context, cartKey string, addr domain.Address) (*domain.Cart, error) {
	const op = "cart.set_shipping_address"

	if s.addresses != nil {
		result, err := s.addresses.Validate(ctx, addr)
		if err != nil {
			err = domain.Internal(err, op, "failed to validate address")
			s.observe(ctx, op, cartKey, err)
			return nil, err
		}
		if !result.IsValid {
			err = domain.KindErrorf(domain.KindAddressInvalid, op,
				map[string]any{"fields": result.Fields()}, "Shipping address is not valid")
			s.observe(ctx, op, cartKey, err)
			return nil, err
		}
		if result.NormalizedAddress != nil {
			addr = *result.NormalizedAddress
		}
	}

	cart, _, err := s.mutate(ctx, op, cartKey, func(ctx context.Context, cart *domain.Cart) (*outcome, error) {
		cart.SetShippingAddress(addr)
		return &outcome{}, nil
	})
	return cart, err
}

// SelectShippingRate selects one of the rates currently offered for the cart.
func (s *cartService) SelectShippingRate(ctx context.Context, cartKey, rateID string) (*domain.Cart, error) {
	const op = "cart.select_shipping_rate"

	cart, _, err := s.mutate(ctx, op, cartKey, func(ctx context.Context, cart *domain.Cart) (*outcome, error) {
		if !cart.TotalsValid {
			if _, err := s.totals.Recompute(ctx, cart); err != nil {
				return nil, err
			}
		}
		rates, err := s.totals.ShippingRates(ctx, cart)
		if err != nil {
			return nil, err
		}
		for _, r := range rates {
			if r.RateID == rateID {
				cart.SelectShippingRate(rateID)
				return &outcome{}, nil
			}
		}
		return nil, domain.KindErrorf(domain.KindShippingRateNotFound, op,
			map[string]any{"rate_id": rateID},
			"Shipping rate %s is not available for this cart", rateID)
	})
	return cart, err
}

// SetPriceOverride forces the unit price of a line. The line may be active
// or removed; the override follows it through restore. The override is only
// in effect once the cart carrying it is saved.
func (s *cartService) SetPriceOverride(ctx context.Context, cartKey, itemKey string, priceCents int64) (*domain.Cart, error) {
	const op = "cart.set_price_override"

	cart, _, err := s.mutate(ctx, op, cartKey, func(ctx context.Context, cart *domain.Cart) (*outcome, error) {
		if s.overrides == nil {
			return nil, domain.Forbidden(op, "Price overrides are disabled")
		}
		if priceCents < 0 {
			return nil, domain.Invalid(op, "Price must not be negative")
		}
		if !cart.Items.Has(itemKey) && !cart.RemovedItems.Has(itemKey) {
			return nil, domain.ItemNotFound(op, itemKey)
		}
		cart.Invalidate()
		return &outcome{overrides: pendingOverrides{set: map[string]int64{itemKey: priceCents}}}, nil
	})
	return cart, err
}

// =============================================================================
// Engine
// =============================================================================

// mutate runs fn against a private copy of the stored cart, recomputes
// totals and saves. A lost version race reloads and runs fn again.
func (s *cartService) mutate(ctx context.Context, op, cartKey string, fn mutateFunc) (cart *domain.Cart, out *outcome, err error) {
	defer func() {
		s.observe(ctx, op, cartKey, err)
		if err == nil && s.metrics != nil {
			s.metrics.ObserveCartValue(cart.Totals.Total)
		}
	}()

	release, err := s.locks.Lock(ctx, cartKey)
	if err != nil {
		return nil, nil, domain.BackendUnavailable(err, op)
	}
	defer release()

	for attempt := 1; attempt <= s.attempts; attempt++ {
		current, err := s.load(ctx, op, cartKey)
		if err != nil {
			return nil, nil, err
		}

		next := current.Clone()
		out, err := fn(ctx, next)
		if err != nil {
			return nil, nil, err
		}

		if _, err := s.totals.recompute(ctx, next, out.overrides); err != nil {
			return nil, nil, err
		}
		next.UpdatedAt = s.now()

		undo, err := s.applyOverrides(ctx, op, cartKey, out.overrides.set)
		if err != nil {
			return nil, nil, err
		}
		if err := s.sessions.Save(ctx, next); err != nil {
			undo(ctx)
			if errors.Is(err, domain.ErrVersionConflict) {
				s.logger.Debug().
					Str("op", op).
					Str("cart_key", cartKey).
					Int("attempt", attempt).
					Msg("cart version conflict, retrying")
				continue
			}
			return nil, nil, domain.BackendUnavailable(err, op)
		}

		s.afterCommit(ctx, next, out)
		return next, out, nil
	}

	return nil, nil, domain.BackendUnavailable(
		fmt.Errorf("gave up after %d attempts: %w", s.attempts, domain.ErrVersionConflict), op)
}

// applyOverrides writes staged price overrides ahead of the save that makes
// them visible. The returned func puts back the previous values if that save
// does not happen.
func (s *cartService) applyOverrides(ctx context.Context, op, cartKey string, set map[string]int64) (func(context.Context), error) {
	if len(set) == 0 || s.overrides == nil {
		return func(context.Context) {}, nil
	}

	type previous struct {
		price int64
		found bool
	}
	written := make(map[string]previous, len(set))
	undo := func(ctx context.Context) {
		for itemKey, prev := range written {
			var err error
			if prev.found {
				err = s.overrides.Set(ctx, cartKey, itemKey, prev.price)
			} else {
				err = s.overrides.Delete(ctx, cartKey, itemKey)
			}
			if err != nil {
				s.logger.Warn().Err(err).
					Str("cart_key", cartKey).
					Str("item_key", itemKey).
					Msg("failed to roll back price override")
			}
		}
	}

	for itemKey, price := range set {
		old, found, err := s.overrides.Get(ctx, cartKey, itemKey)
		if err != nil {
			undo(ctx)
			return nil, domain.BackendUnavailable(err, op)
		}
		if err := s.overrides.Set(ctx, cartKey, itemKey, price); err != nil {
			undo(ctx)
			return nil, domain.BackendUnavailable(err, op)
		}
		written[itemKey] = previous{price: old, found: found}
	}
	return undo, nil
}

// load returns the stored cart, or a fresh one when none exists.
func (s *cartService) load(ctx context.Context, op, cartKey string) (*domain.Cart, error) {
	cart, err := s.sessions.Load(ctx, cartKey)
	if err != nil {
		if errors.Is(err, domain.ErrCartNotFound) {
			return domain.NewCart(cartKey, s.now()), nil
		}
		return nil, domain.BackendUnavailable(err, op)
	}
	return cart, nil
}

// afterCommit drops overrides of deleted lines, keeps the remaining
// overrides alive as long as the cart and publishes the event. None of these
// can fail the mutation.
func (s *cartService) afterCommit(ctx context.Context, cart *domain.Cart, out *outcome) {
	if s.overrides != nil {
		if deleted := out.overrides.deleted; len(deleted) > 0 {
			if err := s.overrides.Delete(ctx, cart.Key, deleted...); err != nil {
				s.logger.Warn().Err(err).Str("cart_key", cart.Key).Msg("failed to delete price overrides")
			}
		}
		if err := s.overrides.Touch(ctx, cart.Key); err != nil {
			s.logger.Warn().Err(err).Str("cart_key", cart.Key).Msg("failed to refresh price override expiry")
		}
	}

	if out.event == "" || s.events == nil {
		return
	}
	event := domain.CartEvent{
		Type:       out.event,
		CartKey:    cart.Key,
		Coupon:     out.coupon,
		TotalCents: cart.Totals.Total,
		Version:    cart.Version,
		OccurredAt: s.now(),
	}
	if out.item != nil {
		event.ItemKey = out.item.Key
		event.ProductID = out.item.ProductID
		event.Quantity = out.item.Quantity
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn().Err(err).
			Str("cart_key", cart.Key).
			Str("event", string(out.event)).
			Msg("failed to publish cart event")
	}
}

// observe records the outcome of an operation. Backend failures are logged
// at error and reported; expected failures are logged at debug.
func (s *cartService) observe(ctx context.Context, op, cartKey string, err error) {
	if s.metrics != nil {
		s.metrics.ObserveOperation(op, err)
	}
	if err == nil {
		return
	}

	if isBackendError(err) {
		s.logger.Error().Err(err).Str("op", op).Str("cart_key", cartKey).Msg("cart operation failed")
		if s.reporter != nil {
			s.reporter.CaptureError(ctx, err, map[string]string{"op": op, "cart_key": cartKey})
		}
		return
	}
	s.logger.Debug().
		Str("op", op).
		Str("cart_key", cartKey).
		Str("kind", string(domain.ErrorKind(err))).
		Str("message", domain.ErrorMessage(err)).
		Msg("cart operation rejected")
}

func isBackendError(err error) bool {
	switch domain.ErrorCode(err) {
	case domain.EUNAVAILABLE, domain.EINTERNAL:
		return true
	}
	return false
}

func normalizeCouponCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

func couponNotFound(op, code string) error {
	return domain.KindErrorf(domain.KindCouponNotFound, op, map[string]any{"coupon": code},
		"Coupon not found: %s", code)
}

func feeInvalid(op, name, message string) error {
	return domain.KindErrorf(domain.KindFeeInvalid, op, map[string]any{"fee": name}, "%s", message)
}
