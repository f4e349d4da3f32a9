package tax

import "context"

// NoTaxCalculator returns zero tax for all calculations.
// Used when the store does not collect tax.
type NoTaxCalculator struct{}

// NewNoTaxCalculator creates a new no-tax calculator.
func NewNoTaxCalculator() Calculator {
	return &NoTaxCalculator{}
}

// CalculateTax always returns zero tax.
func (c *NoTaxCalculator) CalculateTax(ctx context.Context, params TaxParams) (*TaxResult, error) {
	return &TaxResult{
		TotalTaxCents: 0,
		LineTaxCents:  make([]int64, len(params.LineItems)),
		Breakdown:     []TaxBreakdown{},
		IsEstimate:    false,
	}, nil
}
