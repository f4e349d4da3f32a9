package tax_test

import (
	"context"
	"testing"

	"github.com/dukerupert/freyja-cart/internal/tax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoTaxCalculator_CalculateTax_ReturnsZeroTax(t *testing.T) {
	calc := tax.NewNoTaxCalculator()

	params := tax.TaxParams{
		ShippingAddress: tax.Address{
			Line1:      "123 Main St",
			City:       "Seattle",
			State:      "WA",
			PostalCode: "98101",
			Country:    "US",
		},
		LineItems: []tax.LineItem{
			{Reference: "k1", Description: "Ethiopian Yirgacheffe - 12oz", Quantity: 2, UnitPrice: 1800, TotalPrice: 3600, TaxCategory: "food"},
			{Reference: "k2", Description: "Colombian Supremo - 1lb", Quantity: 1, UnitPrice: 2200, TotalPrice: 2200, TaxCategory: "food"},
		},
		ShippingCents:  500,
		TaxExemptionID: "EX-12345",
	}

	result, err := calc.CalculateTax(context.Background(), params)

	require.NoError(t, err)
	assert.Equal(t, int64(0), result.TotalTaxCents, "NoTaxCalculator should always return zero tax")
	assert.Equal(t, []int64{0, 0}, result.LineTaxCents)
	assert.Empty(t, result.Breakdown)
	assert.False(t, result.IsEstimate)
}

func TestMockCalculator_RecordsCalls(t *testing.T) {
	m := tax.NewMockCalculator()

	_, err := m.CalculateTax(context.Background(), tax.TaxParams{Currency: "usd"})
	require.NoError(t, err)

	m.CalculateTaxFunc = func(ctx context.Context, p tax.TaxParams) (*tax.TaxResult, error) {
		return &tax.TaxResult{TotalTaxCents: 7}, nil
	}
	res, err := m.CalculateTax(context.Background(), tax.TaxParams{})
	require.NoError(t, err)

	assert.Equal(t, int64(7), res.TotalTaxCents)
	assert.Len(t, m.Calls, 2)
	assert.Equal(t, "usd", m.Calls[0].Currency)
}
