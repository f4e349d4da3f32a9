// Package postgres implements the cart collaborators on PostgreSQL through
// the sqlc-generated repository.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"github.com/dukerupert/freyja-cart/internal/domain"
	"github.com/dukerupert/freyja-cart/internal/repository"
	"github.com/dukerupert/freyja-cart/internal/service"
)

// Catalog implements service.ProductCatalog using PostgreSQL.
type Catalog struct {
	repo repository.Querier
}

// Compile-time check that Catalog implements service.ProductCatalog.
var _ service.ProductCatalog = (*Catalog)(nil)

// NewCatalog creates a new PostgreSQL-backed catalog.
func NewCatalog(repo repository.Querier) *Catalog {
	return &Catalog{repo: repo}
}

// GetProduct returns a product or variation by id.
func (c *Catalog) GetProduct(ctx context.Context, id int64) (*domain.ProductSnapshot, error) {
	const op = "catalog.get_product"

	row, err := c.repo.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "product", strconv.FormatInt(id, 10))
		}
		return nil, domain.Internal(err, op, "failed to get product")
	}
	return c.snapshot(ctx, op, row)
}

// GetProductBySKU returns a product or variation by SKU.
func (c *Catalog) GetProductBySKU(ctx context.Context, sku string) (*domain.ProductSnapshot, error) {
	const op = "catalog.get_product_by_sku"

	row, err := c.repo.GetProductBySKU(ctx, pgText(sku))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "product", sku)
		}
		return nil, domain.Internal(err, op, "failed to get product by sku")
	}
	return c.snapshot(ctx, op, row)
}

// FindVariation returns the first live variation of productID, in sort
// order, whose own attribute values accept attrs.
func (c *Catalog) FindVariation(ctx context.Context, productID int64, attrs map[string]string) (int64, error) {
	rows, err := c.repo.ListVariationsWithAttributes(ctx, pgInt8(productID))
	if err != nil {
		return 0, domain.Internal(err, "catalog.find_variation", "failed to list variations")
	}

	var (
		current int64
		own     domain.Variation
	)
	for i, row := range rows {
		if row.VariationID != current {
			current = row.VariationID
			own = own[:0]
		}
		if row.Name.Valid {
			own = append(own, domain.Attribute{Name: row.Name.String, Value: row.Value.String})
		}
		last := i == len(rows)-1 || rows[i+1].VariationID != current
		if last && own.Accepts(attrs) {
			return current, nil
		}
	}
	return 0, nil
}

// GetVariationAttributes returns a variation's own attribute values in
// position order.
func (c *Catalog) GetVariationAttributes(ctx context.Context, variationID int64) (domain.Variation, error) {
	const op = "catalog.get_variation_attributes"

	rows, err := c.repo.ListVariationAttributes(ctx, variationID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list variation attributes")
	}
	if len(rows) == 0 {
		// A variation may declare no attributes; anything else is unknown.
		product, err := c.repo.GetProduct(ctx, variationID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, domain.NotFound(op, "variation", strconv.FormatInt(variationID, 10))
			}
			return nil, domain.Internal(err, op, "failed to get variation")
		}
		if domain.ProductType(product.Type) != domain.ProductTypeVariation {
			return nil, domain.NotFound(op, "variation", strconv.FormatInt(variationID, 10))
		}
		return domain.Variation{}, nil
	}

	attrs := make(domain.Variation, len(rows))
	for i, row := range rows {
		attrs[i] = domain.Attribute{Name: row.Name, Value: row.Value}
	}
	return attrs, nil
}

func (c *Catalog) snapshot(ctx context.Context, op string, row repository.Product) (*domain.ProductSnapshot, error) {
	p := mapRepoProductToDomain(row)
	if !p.IsVariable() {
		return &p, nil
	}

	attrs, err := c.repo.ListProductAttributes(ctx, row.ID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list product attributes")
	}
	p.VariationAttributes = make([]domain.AttributeDefinition, len(attrs))
	for i, a := range attrs {
		p.VariationAttributes[i] = domain.AttributeDefinition{Name: a.Name, Options: a.Options}
	}
	return &p, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func mapRepoProductToDomain(p repository.Product) domain.ProductSnapshot {
	return domain.ProductSnapshot{
		ID:                  p.ID,
		ParentID:            p.ParentID.Int64,
		Type:                domain.ProductType(p.Type),
		Name:                p.Name,
		SKU:                 p.Sku.String,
		Status:              domain.ProductStatus(p.Status),
		Purchasable:         p.Purchasable,
		PriceCents:          p.PriceCents,
		ManageStock:         p.ManageStock,
		StockProductID:      p.StockProductID.Int64,
		StockQuantity:       p.StockQuantity,
		StockStatus:         domain.StockStatus(p.StockStatus),
		BackordersAllowed:   p.BackordersAllowed,
		MinPurchaseQuantity: p.MinPurchaseQuantity,
		MaxPurchaseQuantity: p.MaxPurchaseQuantity,
		SoldIndividually:    p.SoldIndividually,
		Virtual:             p.Virtual,
		WeightGrams:         p.WeightGrams,
		TaxCategory:         p.TaxCategory,
	}
}
