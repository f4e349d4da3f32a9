package shipping

import (
	"context"
	"time"
)

// Provider defines the interface for shipping rate lookup.
// Implementations can integrate with carriers like FedEx, UPS, USPS, etc.
type Provider interface {
	// GetRates returns available shipping options for a shipment.
	GetRates(ctx context.Context, params RateParams) ([]Rate, error)
}

// RateParams contains parameters for calculating shipping rates.
type RateParams struct {
	DestinationAddress ShippingAddress
	Packages           []Package

	// SubtotalCents is the discounted item subtotal, for providers that
	// waive a rate above a threshold.
	SubtotalCents int64
}

// ShippingAddress represents a complete shipping address.
type ShippingAddress struct {
	Line1      string
	Line2      string
	City       string
	State      string
	PostalCode string
	Country    string
}

// Package represents a physical package to be shipped.
type Package struct {
	WeightGrams int64
	ItemCount   int64
}

// Rate represents a shipping rate option.
type Rate struct {
	RateID                string
	Carrier               string
	ServiceName           string
	ServiceCode           string
	CostCents             int64
	EstimatedDaysMin      int
	EstimatedDaysMax      int
	EstimatedDeliveryDate time.Time
}

// Cheapest returns the lowest-cost rate. Ties keep the earlier rate.
func Cheapest(rates []Rate) (Rate, bool) {
	if len(rates) == 0 {
		return Rate{}, false
	}
	best := rates[0]
	for _, r := range rates[1:] {
		if r.CostCents < best.CostCents {
			best = r
		}
	}
	return best, true
}

// Find returns the rate with the given id.
func Find(rates []Rate, rateID string) (Rate, bool) {
	for _, r := range rates {
		if r.RateID == rateID {
			return r, true
		}
	}
	return Rate{}, false
}
