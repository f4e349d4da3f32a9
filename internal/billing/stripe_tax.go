package billing

import (
	"context"
	"fmt"

	"github.com/dukerupert/freyja-cart/internal/tax"
	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/tax/calculation"
)

// StripeTaxCalculator computes cart tax with the Stripe Tax Calculation API.
//
// Each call creates a calculation; its id is returned in
// TaxResult.ProviderTxID so a later checkout can reference it. Requires
// Stripe Tax to be enabled on the account.
type StripeTaxCalculator struct {
	currency string
	create   func(params *stripe.TaxCalculationParams) (*stripe.TaxCalculation, error)
}

// NewStripeTaxCalculator creates a tax calculator backed by Stripe Tax.
func NewStripeTaxCalculator(cfg StripeConfig) (tax.Calculator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAPIKey, err)
	}

	stripe.Key = cfg.APIKey

	currency := cfg.Currency
	if currency == "" {
		currency = "usd"
	}

	return &StripeTaxCalculator{
		currency: currency,
		create:   calculation.New,
	}, nil
}

// CalculateTax calls the Stripe Tax Calculation API.
//
// Stripe reports a total for the calculation; per-line amounts are left to
// the caller to apportion.
func (c *StripeTaxCalculator) CalculateTax(ctx context.Context, params tax.TaxParams) (*tax.TaxResult, error) {
	lineItems := buildStripeTaxLineItems(params)
	if len(lineItems) == 0 {
		return &tax.TaxResult{Breakdown: []tax.TaxBreakdown{}}, nil
	}

	currency := params.Currency
	if currency == "" {
		currency = c.currency
	}

	calcParams := &stripe.TaxCalculationParams{
		Currency: stripe.String(currency),
		CustomerDetails: &stripe.TaxCalculationCustomerDetailsParams{
			Address: &stripe.AddressParams{
				Line1:      stripe.String(params.ShippingAddress.Line1),
				Line2:      stripe.String(params.ShippingAddress.Line2),
				City:       stripe.String(params.ShippingAddress.City),
				State:      stripe.String(params.ShippingAddress.State),
				PostalCode: stripe.String(params.ShippingAddress.PostalCode),
				Country:    stripe.String(params.ShippingAddress.Country),
			},
			AddressSource: stripe.String("shipping"),
		},
		LineItems: lineItems,
	}
	calcParams.Context = ctx

	if params.TaxExemptionID != "" {
		calcParams.CustomerDetails.TaxIDs = []*stripe.TaxCalculationCustomerDetailsTaxIDParams{
			{
				Type:  stripe.String("us_ein"),
				Value: stripe.String(params.TaxExemptionID),
			},
		}
	}

	calc, err := c.create(calcParams)
	if err != nil {
		return nil, wrapStripeError(err)
	}

	return &tax.TaxResult{
		TotalTaxCents: calc.TaxAmountExclusive,
		Breakdown:     buildTaxBreakdown(calc),
		ProviderTxID:  calc.ID,
		IsEstimate:    false,
	}, nil
}

// buildStripeTaxLineItems converts our line items to Stripe's format.
// Stripe rejects zero-amount calculations, so empty lines are skipped.
func buildStripeTaxLineItems(params tax.TaxParams) []*stripe.TaxCalculationLineItemParams {
	lineItems := make([]*stripe.TaxCalculationLineItemParams, 0, len(params.LineItems)+1)

	for _, item := range params.LineItems {
		if item.TotalPrice <= 0 {
			continue
		}

		taxCode := "txcd_99999999" // general merchandise
		if item.TaxCategory == "food" {
			taxCode = "txcd_30011000" // food/beverages
		}

		lineItems = append(lineItems, &stripe.TaxCalculationLineItemParams{
			Amount:    stripe.Int64(item.TotalPrice),
			Quantity:  stripe.Int64(max(item.Quantity, 1)),
			Reference: stripe.String(item.Reference),
			TaxCode:   stripe.String(taxCode),
		})
	}

	if params.ShippingCents > 0 {
		lineItems = append(lineItems, &stripe.TaxCalculationLineItemParams{
			Amount:    stripe.Int64(params.ShippingCents),
			Reference: stripe.String("shipping"),
			TaxCode:   stripe.String("txcd_92010001"), // shipping tax code
		})
	}

	return lineItems
}

// buildTaxBreakdown groups Stripe's breakdown by jurisdiction and tax type.
func buildTaxBreakdown(calc *stripe.TaxCalculation) []tax.TaxBreakdown {
	jurisdictionMap := make(map[string]*tax.TaxBreakdown)
	var order []string

	for _, item := range calc.TaxBreakdown {
		if item == nil || item.TaxRateDetails == nil {
			continue
		}

		state := item.TaxRateDetails.State
		country := item.TaxRateDetails.Country
		taxType := string(item.TaxRateDetails.TaxType)

		var jurisdictionName, jurisdictionLevel string
		switch {
		case state != "":
			jurisdictionName = state
			jurisdictionLevel = "state"
		case country != "":
			jurisdictionName = country
			jurisdictionLevel = "country"
		default:
			continue
		}

		key := fmt.Sprintf("%s|%s|%s", jurisdictionLevel, jurisdictionName, taxType)

		// "8.5" -> 0.085
		var rate float64
		if item.TaxRateDetails.PercentageDecimal != "" {
			_, _ = fmt.Sscanf(item.TaxRateDetails.PercentageDecimal, "%f", &rate)
			rate = rate / 100.0
		}

		if existing, ok := jurisdictionMap[key]; ok {
			existing.AmountCents += item.Amount
			continue
		}
		jurisdictionMap[key] = &tax.TaxBreakdown{
			Jurisdiction: jurisdictionLevel,
			Name:         jurisdictionName,
			Rate:         rate,
			AmountCents:  item.Amount,
		}
		order = append(order, key)
	}

	breakdown := make([]tax.TaxBreakdown, 0, len(order))
	for _, key := range order {
		breakdown = append(breakdown, *jurisdictionMap[key])
	}
	return breakdown
}
