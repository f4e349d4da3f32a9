package memory

import (
	"context"
	"sync"
)

// PriceOverrides is an in-memory service.PriceOverrideCache.
type PriceOverrides struct {
	mu     sync.RWMutex
	prices map[string]map[string]int64 // cart key -> item key -> cents
}

// NewPriceOverrides creates an empty cache.
func NewPriceOverrides() *PriceOverrides {
	return &PriceOverrides{prices: make(map[string]map[string]int64)}
}

func (o *PriceOverrides) Set(ctx context.Context, cartKey, itemKey string, priceCents int64) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	byItem, ok := o.prices[cartKey]
	if !ok {
		byItem = make(map[string]int64)
		o.prices[cartKey] = byItem
	}
	byItem[itemKey] = priceCents
	return nil
}

func (o *PriceOverrides) Get(ctx context.Context, cartKey, itemKey string) (int64, bool, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	price, ok := o.prices[cartKey][itemKey]
	return price, ok, nil
}

func (o *PriceOverrides) Delete(ctx context.Context, cartKey string, itemKeys ...string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	byItem := o.prices[cartKey]
	for _, k := range itemKeys {
		delete(byItem, k)
	}
	if len(byItem) == 0 {
		delete(o.prices, cartKey)
	}
	return nil
}

// Touch is a no-op: in-memory overrides live as long as the process.
func (o *PriceOverrides) Touch(ctx context.Context, cartKey string) error {
	return nil
}
