package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dukerupert/freyja-cart/internal/address"
	"github.com/dukerupert/freyja-cart/internal/domain"
	"github.com/dukerupert/freyja-cart/internal/memory"
	"github.com/dukerupert/freyja-cart/internal/shipping"
	"github.com/dukerupert/freyja-cart/internal/tax"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

const (
	productMug       int64 = 10 // simple, stock 5
	productShirt     int64 = 20 // variable: color x size
	variationRedM    int64 = 42
	variationBlueAny int64 = 43
	productGiftCard  int64 = 30 // sold individually, virtual
	productPoster    int64 = 40 // unmanaged stock
	productTrashed   int64 = 50
	productDraftOnly int64 = 60 // not purchasable
	productSoldOut   int64 = 70
)

func seedCatalog() *memory.Catalog {
	c := memory.NewCatalog()
	c.Put(domain.ProductSnapshot{
		ID: productMug, Type: domain.ProductTypeSimple, Name: "Mug", SKU: "MUG-1",
		Status: domain.ProductStatusPublish, Purchasable: true, PriceCents: 1200,
		ManageStock: true, StockQuantity: 5, StockStatus: domain.StockStatusInStock,
		WeightGrams: 400,
	})
	c.Put(domain.ProductSnapshot{
		ID: productShirt, Type: domain.ProductTypeVariable, Name: "Shirt",
		Status: domain.ProductStatusPublish, Purchasable: true,
		StockStatus: domain.StockStatusInStock,
		VariationAttributes: []domain.AttributeDefinition{
			{Name: "color", Options: []string{"red", "blue"}},
			{Name: "size", Options: []string{"S", "M", "L"}},
		},
	})
	c.PutVariation(domain.ProductSnapshot{
		ID: variationRedM, ParentID: productShirt, Name: "Shirt - red, M",
		Status: domain.ProductStatusPublish, Purchasable: true, PriceCents: 2500,
		ManageStock: true, StockQuantity: 10, StockStatus: domain.StockStatusInStock,
		WeightGrams: 200,
	}, domain.Variation{{Name: "color", Value: "red"}, {Name: "size", Value: "M"}})
	c.PutVariation(domain.ProductSnapshot{
		ID: variationBlueAny, ParentID: productShirt, Name: "Shirt - blue",
		Status: domain.ProductStatusPublish, Purchasable: true, PriceCents: 2400,
		StockStatus: domain.StockStatusInStock, WeightGrams: 200,
	}, domain.Variation{{Name: "color", Value: "blue"}, {Name: "size", Value: ""}})
	c.Put(domain.ProductSnapshot{
		ID: productGiftCard, Type: domain.ProductTypeSimple, Name: "Gift card",
		Status: domain.ProductStatusPublish, Purchasable: true, PriceCents: 5000,
		StockStatus: domain.StockStatusInStock, SoldIndividually: true, Virtual: true,
	})
	c.Put(domain.ProductSnapshot{
		ID: productPoster, Type: domain.ProductTypeSimple, Name: "Poster",
		Status: domain.ProductStatusPublish, Purchasable: true, PriceCents: 800,
		StockStatus: domain.StockStatusInStock, MinPurchaseQuantity: 2, MaxPurchaseQuantity: 6,
		WeightGrams: 100,
	})
	c.Put(domain.ProductSnapshot{
		ID: productTrashed, Type: domain.ProductTypeSimple, Name: "Old mug",
		Status: domain.ProductStatusTrash, Purchasable: true, PriceCents: 900,
		StockStatus: domain.StockStatusInStock,
	})
	c.Put(domain.ProductSnapshot{
		ID: productDraftOnly, Type: domain.ProductTypeSimple, Name: "Sample",
		Status: domain.ProductStatusDraft, Purchasable: false,
		StockStatus: domain.StockStatusInStock,
	})
	c.Put(domain.ProductSnapshot{
		ID: productSoldOut, Type: domain.ProductTypeSimple, Name: "Kettle",
		Status: domain.ProductStatusPublish, Purchasable: true, PriceCents: 4000,
		StockStatus: domain.StockStatusOutOfStock,
	})
	return c
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.CartEvent
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, event domain.CartEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) types() []domain.CartEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.CartEventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type recordingMetrics struct {
	mu   sync.Mutex
	ops  map[string]int
	errs map[string]int
}

func (m *recordingMetrics) ObserveOperation(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ops == nil {
		m.ops = map[string]int{}
		m.errs = map[string]int{}
	}
	m.ops[op]++
	if err != nil {
		m.errs[op]++
	}
}

func (m *recordingMetrics) ObserveCartValue(int64) {}

type recordingReporter struct {
	mu   sync.Mutex
	errs []error
}

func (r *recordingReporter) CaptureError(ctx context.Context, err error, tags map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

// conflictingStore fails the first n saves with a version conflict.
type conflictingStore struct {
	SessionStore
	mu        sync.Mutex
	conflicts int
	saves     int
}

func (s *conflictingStore) Save(ctx context.Context, cart *domain.Cart) error {
	s.mu.Lock()
	s.saves++
	fail := s.conflicts > 0
	if fail {
		s.conflicts--
	}
	s.mu.Unlock()
	if fail {
		return domain.ErrVersionConflict
	}
	return s.SessionStore.Save(ctx, cart)
}

// flakyStore fails saves with err while it is set.
type flakyStore struct {
	SessionStore
	mu  sync.Mutex
	err error
}

func (s *flakyStore) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *flakyStore) Save(ctx context.Context, cart *domain.Cart) error {
	s.mu.Lock()
	err := s.err
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.SessionStore.Save(ctx, cart)
}

// failingStore fails every call.
type failingStore struct{ err error }

func (s failingStore) Load(ctx context.Context, key string) (*domain.Cart, error) { return nil, s.err }
func (s failingStore) Save(ctx context.Context, cart *domain.Cart) error { return s.err }

type fixture struct {
	svc       CartService
	catalog   *memory.Catalog
	ledger    *memory.Ledger
	sessions  *memory.SessionStore
	overrides *memory.PriceOverrides
	coupons   *memory.Coupons
	events    *recordingPublisher
	metrics   *recordingMetrics
	reporter  *recordingReporter
	tax       *tax.MockCalculator
}

type fixtureOption func(*CartServiceConfig, *TotalsConfig)

func withSessions(s SessionStore) fixtureOption {
	return func(c *CartServiceConfig, _ *TotalsConfig) { c.Sessions = s }
}

func withValidators(v ...ItemValidator) fixtureOption {
	return func(c *CartServiceConfig, _ *TotalsConfig) { c.Validators = v }
}

func withAddresses(v address.Validator) fixtureOption {
	return func(c *CartServiceConfig, _ *TotalsConfig) { c.Addresses = v }
}

func withShipping(p shipping.Provider) fixtureOption {
	return func(_ *CartServiceConfig, t *TotalsConfig) { t.Shipping = p }
}

func withFeeSources(f ...FeeSource) fixtureOption {
	return func(_ *CartServiceConfig, t *TotalsConfig) { t.FeeSources = f }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()

	f := &fixture{
		catalog:   seedCatalog(),
		ledger:    memory.NewLedger(),
		sessions:  memory.NewSessionStore(48 * time.Hour),
		overrides: memory.NewPriceOverrides(),
		coupons:   memory.NewCoupons(),
		events:    &recordingPublisher{},
		metrics:   &recordingMetrics{},
		reporter:  &recordingReporter{},
		tax:       tax.NewMockCalculator(),
	}

	totalsCfg := TotalsConfig{
		Tax: f.tax,
		Shipping: shipping.NewFlatRateProvider([]shipping.FlatRate{
			{ServiceName: "Standard", ServiceCode: "standard", CostCents: 500, DaysMin: 3, DaysMax: 5},
			{ServiceName: "Express", ServiceCode: "express", CostCents: 1500, DaysMin: 1, DaysMax: 2},
		}),
		Coupons:   f.coupons,
		Overrides: f.overrides,
		Currency:  "usd",
		Now:       func() time.Time { return testNow },
	}
	cfg := CartServiceConfig{
		Sessions:  f.sessions,
		Catalog:   f.catalog,
		Ledger:    f.ledger,
		Overrides: f.overrides,
		Coupons:   f.coupons,
		Events:    f.events,
		Metrics:   f.metrics,
		Reporter:  f.reporter,
		Logger:    zerolog.Nop(),
		Now:       func() time.Time { return testNow },
	}
	for _, opt := range opts {
		opt(&cfg, &totalsCfg)
	}

	totals, err := NewTotalsCalculator(totalsCfg)
	require.NoError(t, err)
	cfg.Totals = totals

	svc, err := NewCartService(cfg)
	require.NoError(t, err)
	f.svc = svc
	return f
}
