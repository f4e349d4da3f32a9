package shipping

import (
	"context"
	"time"
)

// FlatRateProvider returns predefined flat-rate shipping options.
type FlatRateProvider struct {
	rates []FlatRate
	now   func() time.Time
}

// FlatRate defines a single flat-rate shipping option.
type FlatRate struct {
	ServiceName string
	ServiceCode string
	CostCents   int64
	DaysMin     int
	DaysMax     int

	// FreeAboveCents makes the rate free once the subtotal reaches it.
	// Zero disables.
	FreeAboveCents int64
}

// NewFlatRateProvider creates a new flat-rate shipping provider.
func NewFlatRateProvider(rates []FlatRate) Provider {
	return &FlatRateProvider{rates: rates, now: time.Now}
}

// GetRates converts flat rates to Rate objects.
func (p *FlatRateProvider) GetRates(ctx context.Context, params RateParams) ([]Rate, error) {
	if len(params.Packages) == 0 {
		return nil, ErrNoPackages
	}
	if len(p.rates) == 0 {
		return nil, ErrNoRates
	}

	result := make([]Rate, len(p.rates))
	for i, fr := range p.rates {
		cost := fr.CostCents
		if fr.FreeAboveCents > 0 && params.SubtotalCents >= fr.FreeAboveCents {
			cost = 0
		}
		result[i] = Rate{
			RateID:                fr.ServiceCode,
			Carrier:               "Flat Rate",
			ServiceName:           fr.ServiceName,
			ServiceCode:           fr.ServiceCode,
			CostCents:             cost,
			EstimatedDaysMin:      fr.DaysMin,
			EstimatedDaysMax:      fr.DaysMax,
			EstimatedDeliveryDate: p.now().AddDate(0, 0, fr.DaysMax),
		}
	}
	return result, nil
}
