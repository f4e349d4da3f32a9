package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dukerupert/freyja-cart/internal/domain"
	"github.com/dukerupert/freyja-cart/internal/shipping"
	"github.com/dukerupert/freyja-cart/internal/tax"
	"github.com/shopspring/decimal"
)

// TotalsConfig wires the calculator's collaborators. Coupons, Overrides and
// FeeSources are optional.
type TotalsConfig struct {
	Tax        tax.Calculator
	Shipping   shipping.Provider
	Coupons    CouponRepository
	Overrides  PriceOverrideCache
	FeeSources []FeeSource
	Currency   string
	Now        func() time.Time
}

// TotalsCalculator recomputes a cart's line and aggregate totals. It prices
// lines, then runs the fee stage, then the shipping stage, then tax and
// grand totals. Running it twice without a mutation in between gives the
// same result.
type TotalsCalculator struct {
	tax       tax.Calculator
	shipping  shipping.Provider
	coupons   CouponRepository
	overrides PriceOverrideCache
	fees      []FeeSource
	currency  string
	now       func() time.Time
}

// NewTotalsCalculator creates a calculator.
func NewTotalsCalculator(cfg TotalsConfig) (*TotalsCalculator, error) {
	if cfg.Tax == nil {
		return nil, fmt.Errorf("totals: tax calculator is required")
	}
	if cfg.Shipping == nil {
		return nil, fmt.Errorf("totals: shipping provider is required")
	}
	currency := cfg.Currency
	if currency == "" {
		currency = "usd"
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &TotalsCalculator{
		tax:       cfg.Tax,
		shipping:  cfg.Shipping,
		coupons:   cfg.Coupons,
		overrides: cfg.Overrides,
		fees:      cfg.FeeSources,
		currency:  currency,
		now:       now,
	}, nil
}

// pendingOverrides are price override changes a mutation has made but not
// yet written to the cache. They win over the cache when pricing.
type pendingOverrides struct {
	set     map[string]int64
	deleted []string
}

func (p pendingOverrides) lookup(itemKey string) (price int64, set, deleted bool) {
	if price, ok := p.set[itemKey]; ok {
		return price, true, false
	}
	return 0, false, slices.Contains(p.deleted, itemKey)
}

// Recompute writes line totals, fees, the selected shipping rate and the
// aggregate totals onto cart and marks them valid.
func (c *TotalsCalculator) Recompute(ctx context.Context, cart *domain.Cart) (domain.Totals, error) {
	return c.recompute(ctx, cart, pendingOverrides{})
}

func (c *TotalsCalculator) recompute(ctx context.Context, cart *domain.Cart, pending pendingOverrides) (domain.Totals, error) {
	const op = "cart.recompute"

	items := cart.Items.Values()

	// Line pricing.
	subtotals := make([]int64, len(items))
	var itemSubtotal int64
	for i, item := range items {
		unit, err := c.unitPrice(ctx, cart.Key, item, pending)
		if err != nil {
			return domain.Totals{}, domain.BackendUnavailable(err, op)
		}
		item.Totals = domain.LineTotals{UnitPrice: unit, Subtotal: unit * item.Quantity}
		subtotals[i] = item.Totals.Subtotal
		itemSubtotal += item.Totals.Subtotal
	}

	discount, err := c.discount(ctx, cart, itemSubtotal)
	if err != nil {
		return domain.Totals{}, err
	}
	for i, share := range domain.Allocate(discount, subtotals) {
		items[i].Totals.Total = items[i].Totals.Subtotal - share
	}

	// Fee stage.
	if err := c.applyFees(ctx, cart, itemSubtotal); err != nil {
		return domain.Totals{}, err
	}

	// Shipping stage.
	shippingCost, err := c.applyShipping(ctx, cart)
	if err != nil {
		return domain.Totals{}, err
	}

	// Tax and grand totals.
	totals, err := c.applyTax(ctx, cart, items, shippingCost)
	if err != nil {
		return domain.Totals{}, err
	}
	totals.Discount = discount

	for _, item := range items {
		totals.Subtotal += item.Totals.Subtotal
		totals.SubtotalTax += item.Totals.SubtotalTax
	}
	for _, fee := range cart.Fees {
		totals.Fees += fee.AmountCents
	}
	totals.Shipping = shippingCost
	totals.Total = max(totals.Subtotal-totals.Discount+totals.Fees+totals.Shipping+totals.Tax, 0)
	totals.Currency = c.currency

	cart.Totals = totals
	cart.TotalsValid = true
	return totals, nil
}

func (c *TotalsCalculator) unitPrice(ctx context.Context, cartKey string, item *domain.CartItem, pending pendingOverrides) (int64, error) {
	price, set, deleted := pending.lookup(item.Key)
	if set {
		return price, nil
	}
	if !deleted && c.overrides != nil {
		price, ok, err := c.overrides.Get(ctx, cartKey, item.Key)
		if err != nil {
			return 0, fmt.Errorf("failed to read price override: %w", err)
		}
		if ok {
			return price, nil
		}
	}
	return item.Product.PriceCents, nil
}

// discount sums applied coupons, each taken from what the previous ones
// left. Coupons that no longer resolve or apply contribute nothing.
func (c *TotalsCalculator) discount(ctx context.Context, cart *domain.Cart, subtotal int64) (int64, error) {
	if c.coupons == nil || len(cart.Coupons) == 0 {
		return 0, nil
	}

	now := c.now()
	remaining := subtotal
	var total int64
	for _, code := range cart.Coupons {
		coupon, err := c.coupons.GetCoupon(ctx, code)
		if err != nil {
			if domain.IsCode(err, domain.ENOTFOUND) {
				continue
			}
			return 0, domain.BackendUnavailable(err, "cart.recompute")
		}
		if ok, _ := coupon.Usable(subtotal, now); !ok {
			continue
		}
		d := coupon.Discount(remaining)
		total += d
		remaining -= d
	}
	return total, nil
}

func (c *TotalsCalculator) applyFees(ctx context.Context, cart *domain.Cart, itemSubtotal int64) error {
	fees := cart.ManualFees()
	for _, source := range c.fees {
		computed, err := source.Fees(ctx, cart, itemSubtotal)
		if err != nil {
			return domain.Internal(err, "cart.recompute", "failed to compute fees")
		}
		for _, f := range computed {
			f.Source = source.Name()
			fees = append(fees, f)
		}
	}
	if fees == nil {
		fees = []domain.Fee{}
	}
	cart.Fees = fees
	return nil
}

// ShippingRates returns the rates the provider offers for cart's shippable
// lines, or nil when nothing in the cart ships or the destination has no
// rates.
func (c *TotalsCalculator) ShippingRates(ctx context.Context, cart *domain.Cart) ([]shipping.Rate, error) {
	var pkg shipping.Package
	var subtotal int64
	for _, item := range cart.Items.Values() {
		subtotal += item.Totals.Total
		if item.Product.Virtual {
			continue
		}
		pkg.WeightGrams += item.Product.WeightGrams * item.Quantity
		pkg.ItemCount += item.Quantity
	}
	if pkg.ItemCount == 0 {
		return nil, nil
	}

	rates, err := c.shipping.GetRates(ctx, shipping.RateParams{
		DestinationAddress: toShippingAddress(cart.ShippingAddress),
		Packages:           []shipping.Package{pkg},
		SubtotalCents:      subtotal,
	})
	if errors.Is(err, shipping.ErrNoRates) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.Internal(err, "cart.shipping_rates", "failed to fetch shipping rates")
	}
	return rates, nil
}

// applyShipping packs every non-virtual line into one package, keeps the
// selected rate when it is still offered, and otherwise selects the
// cheapest. Line totals must already be discounted.
func (c *TotalsCalculator) applyShipping(ctx context.Context, cart *domain.Cart) (int64, error) {
	rates, err := c.ShippingRates(ctx, cart)
	if err != nil {
		return 0, err
	}

	rate, ok := shipping.Find(rates, cart.ShippingRate)
	if !ok {
		rate, ok = shipping.Cheapest(rates)
	}
	if !ok {
		cart.ShippingRate = ""
		return 0, nil
	}
	cart.ShippingRate = rate.RateID
	return rate.CostCents, nil
}

func (c *TotalsCalculator) applyTax(ctx context.Context, cart *domain.Cart, items []*domain.CartItem, shippingCost int64) (domain.Totals, error) {
	var taxableFees []domain.Fee
	for _, f := range cart.Fees {
		if f.Taxable && f.AmountCents > 0 {
			taxableFees = append(taxableFees, f)
		}
	}

	if len(items) == 0 && len(taxableFees) == 0 && shippingCost == 0 {
		return domain.Totals{}, nil
	}

	lines := make([]tax.LineItem, 0, len(items)+len(taxableFees))
	for _, item := range items {
		lines = append(lines, tax.LineItem{
			Reference:   item.Key,
			Description: item.Product.Name,
			Quantity:    item.Quantity,
			UnitPrice:   item.Totals.UnitPrice,
			TotalPrice:  item.Totals.Total,
			TaxCategory: item.Product.TaxCategory,
		})
	}
	for _, f := range taxableFees {
		lines = append(lines, tax.LineItem{
			Reference:   "fee:" + f.Name,
			Description: f.Name,
			Quantity:    1,
			UnitPrice:   f.AmountCents,
			TotalPrice:  f.AmountCents,
		})
	}

	result, err := c.tax.CalculateTax(ctx, tax.TaxParams{
		Currency:        c.currency,
		ShippingAddress: toTaxAddress(cart.ShippingAddress),
		LineItems:       lines,
		ShippingCents:   shippingCost,
	})
	if err != nil {
		return domain.Totals{}, domain.Internal(
			fmt.Errorf("%w: %w", tax.ErrProviderFailed, err), "cart.recompute", "failed to calculate tax")
	}

	lineTax := result.LineTaxCents
	shippingTax := result.ShippingTaxCents
	if len(lineTax) != len(lines) {
		// Provider reported only a total: apportion it by amount.
		weights := make([]int64, 0, len(lines)+1)
		for _, l := range lines {
			weights = append(weights, l.TotalPrice)
		}
		weights = append(weights, shippingCost)
		shares := domain.Allocate(result.TotalTaxCents, weights)
		lineTax = shares[:len(lines)]
		shippingTax = shares[len(lines)]
	}

	var totals domain.Totals
	for i, item := range items {
		item.Totals.Tax = lineTax[i]
		item.Totals.SubtotalTax = scaleTax(lineTax[i], item.Totals.Subtotal, item.Totals.Total)
		totals.Tax += lineTax[i]
	}
	for i := range taxableFees {
		totals.FeeTax += lineTax[len(items)+i]
	}
	totals.ShippingTax = shippingTax
	totals.Tax += totals.FeeTax + shippingTax
	return totals, nil
}

// scaleTax estimates the tax on a line's undiscounted subtotal from the tax
// on its discounted total.
func scaleTax(lineTax, subtotal, total int64) int64 {
	if subtotal == total || lineTax == 0 {
		return lineTax
	}
	if total <= 0 {
		return 0
	}
	return decimal.NewFromInt(lineTax).
		Mul(decimal.NewFromInt(subtotal)).
		Div(decimal.NewFromInt(total)).
		Round(0).
		IntPart()
}

func toShippingAddress(a *domain.Address) shipping.ShippingAddress {
	if a == nil {
		return shipping.ShippingAddress{}
	}
	return shipping.ShippingAddress{
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}

func toTaxAddress(a *domain.Address) tax.Address {
	if a == nil {
		return tax.Address{}
	}
	return tax.Address{
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}
