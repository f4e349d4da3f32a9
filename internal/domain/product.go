package domain

import "strings"

// =============================================================================
// PRODUCT DOMAIN TYPES
// =============================================================================

// ProductType distinguishes simple products from variable product families.
type ProductType string

const (
	ProductTypeSimple    ProductType = "simple"
	ProductTypeVariable  ProductType = "variable"
	ProductTypeVariation ProductType = "variation"
)

// ProductStatus represents the catalog lifecycle state of a product.
type ProductStatus string

const (
	ProductStatusPublish ProductStatus = "publish"
	ProductStatusDraft   ProductStatus = "draft"
	ProductStatusPrivate ProductStatus = "private"
	ProductStatusTrash   ProductStatus = "trash"
)

// StockStatus is the catalog's coarse availability flag.
type StockStatus string

const (
	StockStatusInStock     StockStatus = "instock"
	StockStatusOutOfStock  StockStatus = "outofstock"
	StockStatusOnBackorder StockStatus = "onbackorder"
)

// AttributeDefinition is a variation attribute declared on a variable product,
// with the options a shopper may choose from.
type AttributeDefinition struct {
	Name    string   `json:"name"`
	Options []string `json:"options,omitempty"`
}

// ProductSnapshot is the catalog data a cart line was validated against.
// It is cached on the item and may go stale; stock fields must be re-read
// from the catalog before they are trusted.
type ProductSnapshot struct {
	ID                  int64                 `json:"id"`
	ParentID            int64                 `json:"parent_id,omitempty"`
	Type                ProductType           `json:"type"`
	Name                string                `json:"name"`
	SKU                 string                `json:"sku,omitempty"`
	Status              ProductStatus         `json:"status"`
	Purchasable         bool                  `json:"purchasable"`
	PriceCents          int64                 `json:"price_cents"`
	ManageStock         bool                  `json:"manage_stock"`
	StockProductID      int64                 `json:"stock_product_id,omitempty"`
	StockQuantity       int64                 `json:"stock_quantity"`
	StockStatus         StockStatus           `json:"stock_status"`
	BackordersAllowed   bool                  `json:"backorders_allowed"`
	MinPurchaseQuantity int64                 `json:"min_purchase_quantity,omitempty"`
	MaxPurchaseQuantity int64                 `json:"max_purchase_quantity,omitempty"`
	SoldIndividually    bool                  `json:"sold_individually"`
	Virtual             bool                  `json:"virtual"`
	WeightGrams         int64                 `json:"weight_grams,omitempty"`
	TaxCategory         string                `json:"tax_category,omitempty"`
	VariationAttributes []AttributeDefinition `json:"variation_attributes,omitempty"`
}

// IsVariable reports whether the product is a family that must be narrowed to
// a variation before it can be added.
func (p *ProductSnapshot) IsVariable() bool {
	return p.Type == ProductTypeVariable
}

// IsVariation reports whether the product is a concrete variation.
func (p *ProductSnapshot) IsVariation() bool {
	return p.Type == ProductTypeVariation
}

// IsTrashed reports whether the product is deleted from the catalog.
func (p *ProductSnapshot) IsTrashed() bool {
	return p.Status == ProductStatusTrash
}

// IsInStock reports coarse availability. Backorderable products count as
// in stock.
func (p *ProductSnapshot) IsInStock() bool {
	return p.StockStatus != StockStatusOutOfStock
}

// StockID returns the product whose stock count this product draws on.
// Variations without their own stock management share the parent's.
func (p *ProductSnapshot) StockID() int64 {
	if p.StockProductID != 0 {
		return p.StockProductID
	}
	return p.ID
}

// MinQuantity returns the minimum purchase quantity, defaulting to 1.
func (p *ProductSnapshot) MinQuantity() int64 {
	if p.MinPurchaseQuantity < 1 {
		return 1
	}
	return p.MinPurchaseQuantity
}

// MaxQuantity returns the maximum purchase quantity, or 0 when uncapped.
// Sold-individually products are capped at 1.
func (p *ProductSnapshot) MaxQuantity() int64 {
	if p.SoldIndividually {
		return 1
	}
	if p.MaxPurchaseQuantity < 0 {
		return 0
	}
	return p.MaxPurchaseQuantity
}

// Attribute returns the declared variation attribute with the given
// normalized name.
func (p *ProductSnapshot) Attribute(name string) (AttributeDefinition, bool) {
	name = NormalizeAttributeName(name)
	for _, a := range p.VariationAttributes {
		if NormalizeAttributeName(a.Name) == name {
			return a, true
		}
	}
	return AttributeDefinition{}, false
}

// NormalizeAttributeName lowercases an attribute name and strips the
// "attribute_" prefix some clients send.
func NormalizeAttributeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.TrimPrefix(name, "attribute_")
}
