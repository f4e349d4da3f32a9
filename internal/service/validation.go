package service

import (
	"context"
	"slices"
	"strconv"
	"strings"

	"github.com/dukerupert/freyja-cart/internal/domain"
)

// AddItemParams describes a requested cart line.
type AddItemParams struct {
	// ProductID or SKU identifies the product. ProductID wins when both are set.
	ProductID int64
	SKU       string

	// VariationID selects a variation directly. When zero and the product is
	// variable, Variation is matched against the product's variations.
	VariationID int64
	Variation   domain.Variation

	// ExtraData is caller data that distinguishes otherwise identical lines.
	ExtraData map[string]any

	Quantity int64
}

type validationMode int

const (
	modeAdd validationMode = iota
	modeUpdate
)

// candidate is the line being validated as it moves through the stages.
type candidate struct {
	op     string
	mode   validationMode
	params AddItemParams

	// product is the simple product or the variable parent; purchased is
	// what is actually bought (the variation for variable products).
	product   *domain.ProductSnapshot
	purchased *domain.ProductSnapshot

	variationID int64
	variation   domain.Variation
	quantity    int64
	key         string

	// existing is the line being updated; nil when adding.
	existing *domain.CartItem
}

type stage struct {
	name string
	run  func(ctx context.Context, cart *domain.Cart, c *candidate) error
}

// ValidationPipeline runs the ordered checks a line must pass before the cart
// accepts it. The first failing stage aborts validation.
type ValidationPipeline struct {
	catalog    ProductCatalog
	ledger     StockReservationLedger
	validators []ItemValidator
	stages     []stage
}

// NewValidationPipeline builds the pipeline. Extension validators run after
// the built-in stages, in the order given.
func NewValidationPipeline(catalog ProductCatalog, ledger StockReservationLedger, validators ...ItemValidator) *ValidationPipeline {
	p := &ValidationPipeline{
		catalog:    catalog,
		ledger:     ledger,
		validators: validators,
	}
	p.stages = []stage{
		{"existence", p.checkExistence},
		{"eligibility", p.checkEligibility},
		{"variation", p.resolveVariation},
		{"quantity", p.checkQuantity},
		{"sold_individually", p.checkSoldIndividually},
		{"purchasable", p.checkPurchasable},
		{"stock", p.checkStock},
	}
	return p
}

// ValidateAdd validates a new line against cart. The returned line has its
// key and snapshot set and the effective quantity to add.
func (p *ValidationPipeline) ValidateAdd(ctx context.Context, cart *domain.Cart, params AddItemParams) (*domain.CartItem, error) {
	return p.run(ctx, cart, &candidate{
		op:       "cart.add_item",
		mode:     modeAdd,
		params:   params,
		quantity: params.Quantity,
	})
}

// ValidateUpdate validates setting an active line to quantity. The returned
// line carries the refreshed snapshot and the new quantity.
func (p *ValidationPipeline) ValidateUpdate(ctx context.Context, cart *domain.Cart, item *domain.CartItem, quantity int64) (*domain.CartItem, error) {
	return p.validateExisting(ctx, cart, "cart.update_item", item, quantity)
}

// ValidateRestore validates moving a removed line back into the cart at its
// stored quantity, against current catalog data and the other active lines.
func (p *ValidationPipeline) ValidateRestore(ctx context.Context, cart *domain.Cart, item *domain.CartItem) (*domain.CartItem, error) {
	return p.validateExisting(ctx, cart, "cart.restore_item", item, item.Quantity)
}

func (p *ValidationPipeline) validateExisting(ctx context.Context, cart *domain.Cart, op string, item *domain.CartItem, quantity int64) (*domain.CartItem, error) {
	return p.run(ctx, cart, &candidate{
		op:   op,
		mode: modeUpdate,
		params: AddItemParams{
			ProductID:   item.ProductID,
			VariationID: item.VariationID,
			Variation:   item.Variation,
			ExtraData:   item.ExtraData,
			Quantity:    quantity,
		},
		quantity: quantity,
		key:      item.Key,
		existing: item,
	})
}

func (p *ValidationPipeline) run(ctx context.Context, cart *domain.Cart, c *candidate) (*domain.CartItem, error) {
	for _, s := range p.stages {
		if err := s.run(ctx, cart, c); err != nil {
			return nil, err
		}
	}

	item := &domain.CartItem{
		Key:         c.key,
		ProductID:   c.product.ID,
		VariationID: c.variationID,
		Variation:   c.variation,
		ExtraData:   c.params.ExtraData,
		Quantity:    c.quantity,
		Product:     *c.purchased,
	}

	for _, v := range p.validators {
		if err := v.ValidateItem(ctx, cart, item); err != nil {
			return nil, err
		}
	}
	return item, nil
}

// lookupError turns a catalog failure into either the given not-found error
// or a backend failure.
func lookupError(err error, op string, notFound error) error {
	if domain.IsCode(err, domain.ENOTFOUND) {
		return notFound
	}
	return domain.BackendUnavailable(err, op)
}

// =============================================================================
// Stages
// =============================================================================

func (p *ValidationPipeline) checkExistence(ctx context.Context, cart *domain.Cart, c *candidate) error {
	var (
		product *domain.ProductSnapshot
		err     error
		ident   string
	)

	switch {
	case c.params.ProductID != 0:
		ident = formatID(c.params.ProductID)
		product, err = p.catalog.GetProduct(ctx, c.params.ProductID)
	case c.params.SKU != "":
		ident = c.params.SKU
		product, err = p.catalog.GetProductBySKU(ctx, c.params.SKU)
	default:
		return domain.KindErrorf(domain.KindProductNotFound, c.op, nil, "A product id or SKU is required")
	}

	notFound := domain.KindErrorf(domain.KindProductNotFound, c.op,
		map[string]any{"product": ident}, "No product found with identifier %s", ident)
	if err != nil {
		return lookupError(err, c.op, notFound)
	}
	if product == nil {
		return notFound
	}

	c.product = product
	return nil
}

func (p *ValidationPipeline) checkEligibility(ctx context.Context, cart *domain.Cart, c *candidate) error {
	if c.product.IsTrashed() {
		return notEligible(c.op, c.product)
	}
	return nil
}

func notEligible(op string, product *domain.ProductSnapshot) error {
	return domain.KindErrorf(domain.KindProductNotEligible, op,
		map[string]any{"product_id": product.ID},
		"%q can no longer be added to the cart", product.Name)
}

func (p *ValidationPipeline) resolveVariation(ctx context.Context, cart *domain.Cart, c *candidate) error {
	if c.mode == modeUpdate {
		return p.reloadVariation(ctx, c)
	}

	// A variation id passed as the product: treat it as its parent plus
	// that variation.
	if c.product.IsVariation() {
		variation := c.product
		parent, err := p.catalog.GetProduct(ctx, variation.ParentID)
		if err != nil {
			return lookupError(err, c.op, variationNotFound(c.op, variation.ParentID, "This variation no longer belongs to a product"))
		}
		if parent.IsTrashed() {
			return notEligible(c.op, parent)
		}
		c.product = parent
		c.params.VariationID = variation.ID
	}

	if !c.product.IsVariable() {
		c.purchased = c.product
		c.variationID = 0
		c.variation = nil
		return p.deriveKey(c)
	}

	supplied := suppliedAttributes(c.params.Variation)

	variationID := c.params.VariationID
	if variationID == 0 {
		var missing []string
		for _, attr := range c.product.VariationAttributes {
			if supplied[domain.NormalizeAttributeName(attr.Name)] == "" {
				missing = append(missing, attr.Name)
			}
		}
		if len(missing) > 0 {
			return missingAttributes(c.op, c.product, missing)
		}

		matchOn := make(map[string]string, len(c.product.VariationAttributes))
		for _, attr := range c.product.VariationAttributes {
			name := domain.NormalizeAttributeName(attr.Name)
			matchOn[name] = supplied[name]
		}

		id, err := p.catalog.FindVariation(ctx, c.product.ID, matchOn)
		if err != nil {
			return domain.BackendUnavailable(err, c.op)
		}
		if id == 0 {
			return variationNotFound(c.op, c.product.ID,
				"No variation of %q matches the selected options", c.product.Name)
		}
		variationID = id
	}

	purchased, err := p.catalog.GetProduct(ctx, variationID)
	if err != nil {
		return lookupError(err, c.op, variationNotFound(c.op, c.product.ID,
			"Variation %d of %q does not exist", variationID, c.product.Name))
	}
	if !purchased.IsVariation() || purchased.ParentID != c.product.ID {
		return variationNotFound(c.op, c.product.ID,
			"Variation %d does not belong to %q", variationID, c.product.Name)
	}
	if purchased.IsTrashed() {
		return notEligible(c.op, purchased)
	}

	own, err := p.catalog.GetVariationAttributes(ctx, variationID)
	if err != nil {
		return lookupError(err, c.op, variationNotFound(c.op, c.product.ID,
			"Variation %d of %q does not exist", variationID, c.product.Name))
	}

	selection, err := buildSelection(c.op, c.product, own, supplied)
	if err != nil {
		return err
	}

	c.purchased = purchased
	c.variationID = variationID
	c.variation = selection
	return p.deriveKey(c)
}

// reloadVariation refreshes the snapshots of a line being updated. Its
// identity never changes.
func (p *ValidationPipeline) reloadVariation(ctx context.Context, c *candidate) error {
	c.variation = c.existing.Variation
	c.variationID = c.existing.VariationID
	if c.variationID == 0 {
		c.purchased = c.product
		return nil
	}

	purchased, err := p.catalog.GetProduct(ctx, c.variationID)
	if err != nil {
		return lookupError(err, c.op, domain.KindErrorf(domain.KindProductNotFound, c.op,
			map[string]any{"product": formatID(c.variationID)},
			"No product found with identifier %d", c.variationID))
	}
	if purchased.IsTrashed() {
		return notEligible(c.op, purchased)
	}
	c.purchased = purchased
	return nil
}

// buildSelection merges a variation's fixed attribute values with the
// shopper's choices for its "any" attributes, in the parent's declared order.
func buildSelection(op string, parent *domain.ProductSnapshot, own domain.Variation, supplied map[string]string) (domain.Variation, error) {
	fixed := own.Map()
	selection := make(domain.Variation, 0, len(parent.VariationAttributes))
	var missing []string

	for _, attr := range parent.VariationAttributes {
		name := domain.NormalizeAttributeName(attr.Name)
		chosen := supplied[name]
		value := fixed[name]

		switch {
		case value != "":
			if chosen != "" && !strings.EqualFold(chosen, value) {
				return nil, variationNotFound(op, parent.ID,
					"Selected %s %q does not match this variation", attr.Name, chosen)
			}
		case chosen == "":
			missing = append(missing, attr.Name)
			continue
		default:
			if len(attr.Options) > 0 && !containsFold(attr.Options, chosen) {
				return nil, variationNotFound(op, parent.ID,
					"Invalid value %q for %s", chosen, attr.Name)
			}
			value = chosen
		}
		selection = append(selection, domain.Attribute{Name: attr.Name, Value: value})
	}

	if len(missing) > 0 {
		return nil, missingAttributes(op, parent, missing)
	}
	return selection, nil
}

func (p *ValidationPipeline) deriveKey(c *candidate) error {
	key, err := domain.DeriveItemKey(c.product.ID, c.variationID, c.variation, c.params.ExtraData)
	if err != nil {
		return domain.Invalid(c.op, "Item data could not be encoded")
	}
	c.key = key
	return nil
}

func (p *ValidationPipeline) checkQuantity(ctx context.Context, cart *domain.Cart, c *candidate) error {
	if c.quantity <= 0 {
		return quantityInvalid(c.op, c.purchased, "min", c.purchased.MinQuantity(),
			"Quantity must be at least %d", c.purchased.MinQuantity())
	}

	if c.purchased.SoldIndividually && c.mode == modeAdd {
		c.quantity = 1
		return nil
	}

	if minQty := c.purchased.MinQuantity(); c.quantity < minQty {
		return quantityInvalid(c.op, c.purchased, "min", minQty,
			"The minimum quantity of %q is %d", c.purchased.Name, minQty)
	}

	maxQty := c.purchased.MaxQuantity()
	if maxQty == 0 {
		return nil
	}
	if c.quantity > maxQty {
		return quantityInvalid(c.op, c.purchased, "max", maxQty,
			"The maximum quantity of %q is %d", c.purchased.Name, maxQty)
	}

	if c.mode == modeAdd {
		if existing, ok := cart.Items.Get(c.key); ok && existing.Quantity+c.quantity > maxQty {
			return quantityInvalid(c.op, c.purchased, "max", maxQty,
				"The maximum quantity of %q is %d and the cart already has %d",
				c.purchased.Name, maxQty, existing.Quantity)
		}
	}
	return nil
}

func (p *ValidationPipeline) checkSoldIndividually(ctx context.Context, cart *domain.Cart, c *candidate) error {
	if c.mode != modeAdd || !c.purchased.SoldIndividually {
		return nil
	}
	if existing, ok := cart.Items.Get(c.key); ok && existing.Quantity > 0 {
		return domain.KindErrorf(domain.KindAlreadyInCart, c.op,
			map[string]any{"item_key": c.key, "product_id": c.purchased.ID},
			"You cannot add another %q to your cart", c.purchased.Name)
	}
	return nil
}

func (p *ValidationPipeline) checkPurchasable(ctx context.Context, cart *domain.Cart, c *candidate) error {
	if !c.purchased.Purchasable {
		return domain.KindErrorf(domain.KindNotPurchasable, c.op,
			map[string]any{"product_id": c.purchased.ID},
			"%q cannot be purchased", c.purchased.Name)
	}
	return nil
}

func (p *ValidationPipeline) checkStock(ctx context.Context, cart *domain.Cart, c *candidate) error {
	product := c.purchased

	if !product.IsInStock() {
		return domain.KindErrorf(domain.KindInsufficientStock, c.op,
			map[string]any{"product_id": product.ID, "remaining": int64(0), "requested": c.quantity},
			"%q is out of stock", product.Name)
	}
	if !product.ManageStock || product.BackordersAllowed {
		return nil
	}

	stockID := product.StockID()
	reserved, err := p.ledger.ReservedQuantity(ctx, stockID, cart.Key)
	if err != nil {
		return domain.BackendUnavailable(err, c.op)
	}
	remaining := product.StockQuantity - reserved

	exclude := ""
	if c.mode == modeUpdate {
		exclude = c.key
	}
	inCart := cart.QuantityForStock(stockID, exclude)
	required := c.quantity + inCart

	if required > remaining {
		available := max(remaining-inCart, 0)
		return domain.KindErrorf(domain.KindInsufficientStock, c.op,
			map[string]any{
				"product_id": product.ID,
				"remaining":  max(remaining, 0),
				"requested":  c.quantity,
				"in_cart":    inCart,
			},
			"Not enough stock for %q: %d more can be added, %d requested",
			product.Name, available, c.quantity)
	}
	return nil
}

// =============================================================================
// Helpers
// =============================================================================

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func suppliedAttributes(v domain.Variation) map[string]string {
	m := make(map[string]string, len(v))
	for _, a := range v {
		m[domain.NormalizeAttributeName(a.Name)] = strings.TrimSpace(a.Value)
	}
	return m
}

func missingAttributes(op string, product *domain.ProductSnapshot, missing []string) error {
	return domain.KindErrorf(domain.KindVariationAttributesMissing, op,
		map[string]any{"product_id": product.ID, "missing_attributes": missing},
		"Missing variation data for %q: %s", product.Name, strings.Join(missing, ", "))
}

func variationNotFound(op string, productID int64, format string, args ...any) error {
	return domain.KindErrorf(domain.KindVariationNotFound, op,
		map[string]any{"product_id": productID}, format, args...)
}

func quantityInvalid(op string, product *domain.ProductSnapshot, bound string, limit int64, format string, args ...any) error {
	return domain.KindErrorf(domain.KindQuantityInvalid, op,
		map[string]any{"product_id": product.ID, "bound": bound, "limit": limit}, format, args...)
}

func containsFold(options []string, v string) bool {
	return slices.ContainsFunc(options, func(o string) bool { return strings.EqualFold(o, v) })
}
