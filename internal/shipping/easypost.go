package shipping

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/EasyPost/easypost-go/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const gramsToOzRatio = 0.035274

// shipmentCreator is the part of the EasyPost client the provider uses.
type shipmentCreator interface {
	CreateShipment(in *easypost.Shipment) (*easypost.Shipment, error)
}

// EasyPostProvider quotes live carrier rates through EasyPost.
type EasyPostProvider struct {
	client shipmentCreator
	origin ShippingAddress
	logger zerolog.Logger
}

// EasyPostConfig contains configuration for the EasyPost provider.
type EasyPostConfig struct {
	APIKey string
	Origin ShippingAddress
	Logger zerolog.Logger
}

// NewEasyPostProvider creates a new EasyPost shipping provider.
func NewEasyPostProvider(cfg EasyPostConfig) (*EasyPostProvider, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	return newEasyPostProvider(easypost.New(cfg.APIKey), cfg.Origin, cfg.Logger)
}

func newEasyPostProvider(client shipmentCreator, origin ShippingAddress, logger zerolog.Logger) (*EasyPostProvider, error) {
	if origin.Line1 == "" || origin.PostalCode == "" {
		return nil, ErrOriginRequired
	}
	return &EasyPostProvider{
		client: client,
		origin: origin,
		logger: logger.With().Str("component", "easypost").Logger(),
	}, nil
}

// GetRates quotes every package as one parcel. A cart without a destination
// postal code gets no rates rather than an error.
//
// Rate IDs are "carrier:service" so a selection survives the fresh shipment
// each quote creates.
func (p *EasyPostProvider) GetRates(ctx context.Context, params RateParams) ([]Rate, error) {
	if len(params.Packages) == 0 {
		return nil, ErrNoPackages
	}
	dest := params.DestinationAddress
	if dest.PostalCode == "" || dest.Country == "" {
		return nil, nil
	}

	var weight int64
	for _, pkg := range params.Packages {
		weight += pkg.WeightGrams
	}

	logger := p.logger.With().
		Str("destination_country", dest.Country).
		Str("destination_postal_code", dest.PostalCode).
		Logger()

	shipment, err := p.client.CreateShipment(&easypost.Shipment{
		FromAddress: toEasyPostAddress(p.origin),
		ToAddress:   toEasyPostAddress(dest),
		Parcel:      &easypost.Parcel{Weight: gramsToOunces(weight)},
	})
	if err != nil {
		logger.Error().Err(err).Msg("failed to create shipment")
		return nil, fmt.Errorf("failed to get rates: %w", err)
	}
	if len(shipment.Rates) == 0 {
		logger.Warn().Msg("no rates available for shipment")
		return nil, ErrNoRates
	}

	rates := make([]Rate, 0, len(shipment.Rates))
	for _, r := range shipment.Rates {
		rate, err := fromEasyPostRate(r)
		if err != nil {
			logger.Warn().Err(err).Str("carrier", r.Carrier).Msg("failed to parse rate")
			continue
		}
		rates = append(rates, rate)
	}
	if len(rates) == 0 {
		return nil, ErrNoRates
	}

	logger.Debug().Int("rate_count", len(rates)).Str("shipment_id", shipment.ID).Msg("rates fetched")
	return rates, nil
}

func toEasyPostAddress(addr ShippingAddress) *easypost.Address {
	return &easypost.Address{
		Street1: addr.Line1,
		Street2: addr.Line2,
		City:    addr.City,
		State:   addr.State,
		Zip:     addr.PostalCode,
		Country: addr.Country,
	}
}

func fromEasyPostRate(r *easypost.Rate) (Rate, error) {
	costCents, err := dollarsToCents(r.Rate)
	if err != nil {
		return Rate{}, err
	}

	daysMin, daysMax := 1, 5
	if r.DeliveryDays > 0 {
		daysMin, daysMax = r.DeliveryDays, r.DeliveryDays
	}
	var delivery time.Time
	if r.DeliveryDate != nil {
		delivery = r.DeliveryDate.AsTime()
	}
	if delivery.IsZero() {
		delivery = time.Now().AddDate(0, 0, daysMax)
	}

	return Rate{
		RateID:                r.Carrier + ":" + r.Service,
		Carrier:               r.Carrier,
		ServiceName:           r.Service,
		ServiceCode:           r.Service,
		CostCents:             costCents,
		EstimatedDaysMin:      daysMin,
		EstimatedDaysMax:      daysMax,
		EstimatedDeliveryDate: delivery,
	}, nil
}

func gramsToOunces(grams int64) float64 {
	return float64(grams) * gramsToOzRatio
}

// dollarsToCents converts a dollar amount string such as "5.25" to cents,
// rounding half up.
func dollarsToCents(dollars string) (int64, error) {
	dollars = strings.TrimSpace(dollars)
	if dollars == "" {
		return 0, ErrInvalidAmount(dollars, nil)
	}
	amount, err := decimal.NewFromString(dollars)
	if err != nil {
		return 0, ErrInvalidAmount(dollars, err)
	}
	return amount.Shift(2).Round(0).IntPart(), nil
}
