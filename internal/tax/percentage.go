package tax

import (
	"context"

	"github.com/shopspring/decimal"
)

// PercentageCalculator calculates tax using a simple percentage rate.
// Each line and the shipping charge are rounded separately, half away from
// zero, and the total is their sum.
type PercentageCalculator struct {
	defaultRate float64 // e.g., 0.08 for 8%
	rate        decimal.Decimal
}

// NewPercentageCalculator creates a new percentage-based tax calculator.
func NewPercentageCalculator(rate float64) Calculator {
	return &PercentageCalculator{
		defaultRate: rate,
		rate:        decimal.NewFromFloat(rate),
	}
}

// CalculateTax computes tax on line totals + shipping using the configured rate.
func (c *PercentageCalculator) CalculateTax(ctx context.Context, params TaxParams) (*TaxResult, error) {
	if c.defaultRate < 0 || c.defaultRate > 1 {
		return nil, ErrInvalidTaxRate
	}

	lineTax := make([]int64, len(params.LineItems))
	var total int64
	for i, item := range params.LineItems {
		lineTax[i] = c.apply(item.TotalPrice)
		total += lineTax[i]
	}

	shippingTax := c.apply(params.ShippingCents)
	total += shippingTax

	return &TaxResult{
		TotalTaxCents:    total,
		LineTaxCents:     lineTax,
		ShippingTaxCents: shippingTax,
		Breakdown: []TaxBreakdown{
			{
				Jurisdiction: "state",
				Name:         "Default Sales Tax",
				Rate:         c.defaultRate,
				AmountCents:  total,
			},
		},
		IsEstimate: false,
	}, nil
}

func (c *PercentageCalculator) apply(cents int64) int64 {
	if cents <= 0 {
		return 0
	}
	return decimal.NewFromInt(cents).Mul(c.rate).Round(0).IntPart()
}
