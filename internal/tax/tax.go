package tax

import (
	"context"
)

// Calculator defines the interface for tax calculation.
// Implementations: PercentageCalculator, StripeTaxCalculator, NoTaxCalculator
type Calculator interface {
	// CalculateTax computes tax for cart line items, taxable fees and shipping.
	// Amounts are in cents.
	CalculateTax(ctx context.Context, params TaxParams) (*TaxResult, error)
}

// TaxParams contains all information needed for tax calculation.
type TaxParams struct {
	Currency        string
	ShippingAddress Address
	LineItems       []LineItem
	ShippingCents   int64
	TaxExemptionID  string // Optional exemption certificate
}

// Address represents a physical address for tax purposes.
type Address struct {
	Line1      string
	Line2      string
	City       string
	State      string
	PostalCode string
	Country    string
}

// LineItem represents a single amount being taxed.
type LineItem struct {
	Reference   string // item key, or "fee:<name>"
	Description string
	Quantity    int64
	UnitPrice   int64
	TotalPrice  int64 // after discounts
	TaxCategory string // "food", "general_merchandise", etc.
}

// TaxResult contains the calculated tax amount and breakdown.
type TaxResult struct {
	TotalTaxCents int64

	// LineTaxCents is aligned with TaxParams.LineItems. Providers that only
	// report a total leave it nil and the caller apportions the total.
	LineTaxCents     []int64
	ShippingTaxCents int64

	Breakdown    []TaxBreakdown
	ProviderTxID string // For audit trail
	IsEstimate   bool
}

// TaxBreakdown represents tax for a single jurisdiction.
type TaxBreakdown struct {
	Jurisdiction string  // "state", "county", "city"
	Name         string  // e.g., "Washington State"
	Rate         float64 // e.g., 0.065 for 6.5%
	AmountCents  int64
}
