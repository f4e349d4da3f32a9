// Package memory holds in-process implementations of the cart collaborators.
// They back tests and single-node development runs.
package memory

import (
	"context"
	"sync"

	"github.com/dukerupert/freyja-cart/internal/domain"
)

// Catalog is an in-memory product catalog.
type Catalog struct {
	mu         sync.RWMutex
	products   map[int64]domain.ProductSnapshot
	skus       map[string]int64
	attributes map[int64]domain.Variation // variation id -> own attribute values
	variations map[int64][]int64          // parent id -> variation ids in insertion order
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		products:   make(map[int64]domain.ProductSnapshot),
		skus:       make(map[string]int64),
		attributes: make(map[int64]domain.Variation),
		variations: make(map[int64][]int64),
	}
}

// Put adds or replaces a simple or variable product.
func (c *Catalog) Put(p domain.ProductSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.put(p)
}

// PutVariation adds or replaces a variation of p.ParentID with its own
// attribute values. Empty values accept any choice.
func (c *Catalog) PutVariation(p domain.ProductSnapshot, attrs domain.Variation) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p.Type = domain.ProductTypeVariation
	if _, exists := c.attributes[p.ID]; !exists {
		c.variations[p.ParentID] = append(c.variations[p.ParentID], p.ID)
	}
	c.attributes[p.ID] = attrs
	c.put(p)
}

func (c *Catalog) put(p domain.ProductSnapshot) {
	if old, ok := c.products[p.ID]; ok && old.SKU != "" {
		delete(c.skus, old.SKU)
	}
	c.products[p.ID] = p
	if p.SKU != "" {
		c.skus[p.SKU] = p.ID
	}
}

// GetProduct implements service.ProductCatalog.
func (c *Catalog) GetProduct(ctx context.Context, id int64) (*domain.ProductSnapshot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.products[id]
	if !ok {
		return nil, domain.NotFound("catalog.get_product", "product", formatID(id))
	}
	return cloneProduct(p), nil
}

// GetProductBySKU implements service.ProductCatalog.
func (c *Catalog) GetProductBySKU(ctx context.Context, sku string) (*domain.ProductSnapshot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	id, ok := c.skus[sku]
	if !ok {
		return nil, domain.NotFound("catalog.get_product_by_sku", "product", sku)
	}
	return cloneProduct(c.products[id]), nil
}

// FindVariation implements service.ProductCatalog. The first variation in
// insertion order whose values all match wins.
func (c *Catalog) FindVariation(ctx context.Context, productID int64, attrs map[string]string) (int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, id := range c.variations[productID] {
		if p := c.products[id]; p.IsTrashed() {
			continue
		}
		if c.attributes[id].Accepts(attrs) {
			return id, nil
		}
	}
	return 0, nil
}

// GetVariationAttributes implements service.ProductCatalog.
func (c *Catalog) GetVariationAttributes(ctx context.Context, variationID int64) (domain.Variation, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	attrs, ok := c.attributes[variationID]
	if !ok {
		return nil, domain.NotFound("catalog.get_variation_attributes", "variation", formatID(variationID))
	}
	return append(domain.Variation(nil), attrs...), nil
}

func cloneProduct(p domain.ProductSnapshot) *domain.ProductSnapshot {
	out := p
	if p.VariationAttributes != nil {
		out.VariationAttributes = make([]domain.AttributeDefinition, len(p.VariationAttributes))
		for i, a := range p.VariationAttributes {
			out.VariationAttributes[i] = domain.AttributeDefinition{
				Name:    a.Name,
				Options: append([]string(nil), a.Options...),
			}
		}
	}
	return &out
}
