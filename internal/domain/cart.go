// Package domain holds the cart aggregate, its catalog snapshots and the
// errors every layer returns.
package domain

import (
	"encoding/json"
	"errors"
	"slices"
	"time"
)

// =============================================================================
// CART DOMAIN ERRORS
// =============================================================================

var (
	// ErrCartNotFound is returned by session stores when no aggregate has
	// been saved for a cart key.
	ErrCartNotFound = &Error{Code: ENOTFOUND, Message: "Cart not found"}

	// ErrVersionConflict is returned by session stores when the aggregate
	// was saved by someone else since it was loaded.
	ErrVersionConflict = &Error{Code: ECONFLICT, Message: "Cart was modified concurrently"}
)

// =============================================================================
// CART TYPES
// =============================================================================

// LineTotals are the computed amounts for one cart line, in minor units.
// Only the totals calculator writes them.
type LineTotals struct {
	UnitPrice   int64 `json:"unit_price"`
	Subtotal    int64 `json:"subtotal"`
	SubtotalTax int64 `json:"subtotal_tax"`
	Total       int64 `json:"total"`
	Tax         int64 `json:"tax"`
}

// CartItem is one line in the cart.
type CartItem struct {
	Key         string          `json:"key"`
	ProductID   int64           `json:"product_id"`
	VariationID int64           `json:"variation_id"`
	Variation   Variation       `json:"variation"`
	ExtraData   map[string]any  `json:"extra_data,omitempty"`
	Quantity    int64           `json:"quantity"`
	Product     ProductSnapshot `json:"product"`
	Totals      LineTotals      `json:"totals"`
}

// PurchasableID is the catalog id of the concrete thing being bought.
func (i *CartItem) PurchasableID() int64 {
	if i.VariationID != 0 {
		return i.VariationID
	}
	return i.ProductID
}

func (i *CartItem) clone() *CartItem {
	c := *i
	c.Variation = slices.Clone(i.Variation)
	if i.ExtraData != nil {
		c.ExtraData = make(map[string]any, len(i.ExtraData))
		for k, v := range i.ExtraData {
			c.ExtraData[k] = v
		}
	}
	return &c
}

// Fee is a named charge on the cart.
type Fee struct {
	Name        string `json:"name"`
	AmountCents int64  `json:"amount"`
	Taxable     bool   `json:"taxable"`
	Source      string `json:"source"`
}

// FeeSourceManual marks fees added through the fee operations. Fees from any
// other source are owned by a fee strategy and replaced on every recompute.
const FeeSourceManual = "manual"

// Address is a shipping destination.
type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// Totals are the aggregate amounts from the last recompute, in minor units.
type Totals struct {
	Subtotal    int64  `json:"subtotal"`
	SubtotalTax int64  `json:"subtotal_tax"`
	Discount    int64  `json:"discount"`
	Shipping    int64  `json:"shipping"`
	ShippingTax int64  `json:"shipping_tax"`
	Fees        int64  `json:"fees"`
	FeeTax      int64  `json:"fee_tax"`
	Tax         int64  `json:"tax"`
	Total       int64  `json:"total"`
	Currency    string `json:"currency"`
}

// =============================================================================
// ITEM SET
// =============================================================================

// ItemSet is a map of item key to cart line that remembers insertion order.
// It serializes as a JSON array.
type ItemSet struct {
	order []string
	items map[string]*CartItem
}

// Len returns the number of lines.
func (s *ItemSet) Len() int {
	return len(s.order)
}

// Get returns the line with the given key.
func (s *ItemSet) Get(key string) (*CartItem, bool) {
	item, ok := s.items[key]
	return item, ok
}

// Has reports whether the key is present.
func (s *ItemSet) Has(key string) bool {
	_, ok := s.items[key]
	return ok
}

// Values returns the lines in insertion order.
func (s *ItemSet) Values() []*CartItem {
	out := make([]*CartItem, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, s.items[k])
	}
	return out
}

// Keys returns the item keys in insertion order.
func (s *ItemSet) Keys() []string {
	return slices.Clone(s.order)
}

func (s *ItemSet) put(item *CartItem) {
	if s.items == nil {
		s.items = make(map[string]*CartItem)
	}
	if _, ok := s.items[item.Key]; !ok {
		s.order = append(s.order, item.Key)
	}
	s.items[item.Key] = item
}

func (s *ItemSet) delete(key string) (*CartItem, bool) {
	item, ok := s.items[key]
	if !ok {
		return nil, false
	}
	delete(s.items, key)
	s.order = slices.DeleteFunc(s.order, func(k string) bool { return k == key })
	return item, true
}

func (s *ItemSet) clone() ItemSet {
	var c ItemSet
	for _, item := range s.Values() {
		c.put(item.clone())
	}
	return c
}

// MarshalJSON writes the lines as an array in insertion order.
func (s ItemSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Values())
}

// UnmarshalJSON reads lines written by MarshalJSON.
func (s *ItemSet) UnmarshalJSON(b []byte) error {
	var items []*CartItem
	if err := json.Unmarshal(b, &items); err != nil {
		return err
	}
	*s = ItemSet{}
	for _, item := range items {
		if item == nil || item.Key == "" {
			return errors.New("cart item without key")
		}
		s.put(item)
	}
	return nil
}

// =============================================================================
// CART AGGREGATE
// =============================================================================

// Cart is the aggregate persisted per cart key: active lines, removed
// (restorable) lines, coupons, fees and the totals from the last recompute.
// An item key is never in Items and RemovedItems at the same time.
type Cart struct {
	Key             string    `json:"key"`
	Items           ItemSet   `json:"items"`
	RemovedItems    ItemSet   `json:"removed_items"`
	Coupons         []string  `json:"coupons"`
	Fees            []Fee     `json:"fees"`
	ShippingAddress *Address  `json:"shipping_address,omitempty"`
	ShippingRate    string    `json:"shipping_rate,omitempty"`
	Totals          Totals    `json:"totals"`
	TotalsValid     bool      `json:"totals_valid"`
	Version         int64     `json:"version"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NewCart returns an empty aggregate for a cart key.
func NewCart(key string, now time.Time) *Cart {
	return &Cart{
		Key:       key,
		Coupons:   []string{},
		Fees:      []Fee{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Invalidate marks the totals stale.
func (c *Cart) Invalidate() {
	c.TotalsValid = false
}

// IsEmpty reports whether the cart has no active lines.
func (c *Cart) IsEmpty() bool {
	return c.Items.Len() == 0
}

// ItemCount returns the total quantity across active lines.
func (c *Cart) ItemCount() int64 {
	var n int64
	for _, item := range c.Items.Values() {
		n += item.Quantity
	}
	return n
}

// QuantityForStock sums active quantities that draw on the given stock
// product, skipping the line with excludeKey.
func (c *Cart) QuantityForStock(stockID int64, excludeKey string) int64 {
	var n int64
	for _, item := range c.Items.Values() {
		if item.Key == excludeKey {
			continue
		}
		if item.Product.StockID() == stockID {
			n += item.Quantity
		}
	}
	return n
}

// AddItem inserts a validated line, or merges its quantity into the active
// line with the same key. A tombstone with the same key is discarded. Returns
// the resulting active line.
func (c *Cart) AddItem(item CartItem) *CartItem {
	defer c.Invalidate()

	if existing, ok := c.Items.Get(item.Key); ok {
		existing.Quantity += item.Quantity
		existing.Product = item.Product
		return existing
	}

	c.RemovedItems.delete(item.Key)
	added := item.clone()
	added.Totals = LineTotals{}
	c.Items.put(added)
	return added
}

// SetQuantity replaces the quantity of an active line.
func (c *Cart) SetQuantity(key string, quantity int64) (*CartItem, error) {
	const op = "cart.update_item"

	item, ok := c.Items.Get(key)
	if !ok {
		if c.RemovedItems.Has(key) {
			return nil, KindErrorf(KindAlreadyRemoved, op, map[string]any{"item_key": key},
				"Cart item %s has been removed; restore it first", key)
		}
		return nil, ItemNotFound(op, key)
	}

	item.Quantity = quantity
	c.Invalidate()
	return item, nil
}

// RemoveItem moves an active line to the removed set unchanged.
func (c *Cart) RemoveItem(key string) (*CartItem, error) {
	const op = "cart.remove_item"

	item, ok := c.Items.delete(key)
	if !ok {
		if c.RemovedItems.Has(key) {
			return nil, KindErrorf(KindAlreadyRemoved, op, map[string]any{"item_key": key},
				"Cart item %s is already removed", key)
		}
		return nil, ItemNotFound(op, key)
	}

	c.RemovedItems.put(item)
	c.Invalidate()
	return item, nil
}

// RestoreItem moves a removed line back to the active set unchanged.
func (c *Cart) RestoreItem(key string) (*CartItem, error) {
	const op = "cart.restore_item"

	item, ok := c.RemovedItems.delete(key)
	if !ok {
		if c.Items.Has(key) {
			return nil, KindErrorf(KindAlreadyRestored, op, map[string]any{"item_key": key},
				"Cart item %s is already in the cart", key)
		}
		return nil, ItemNotFound(op, key)
	}

	c.Items.put(item)
	c.Invalidate()
	return item, nil
}

// Clear empties the cart and resets coupons, fees, shipping choice and
// totals. Removed lines survive when keepRemoved is set. Returns the keys that
// no longer exist anywhere in the cart.
func (c *Cart) Clear(keepRemoved bool) []string {
	deleted := c.Items.Keys()
	c.Items = ItemSet{}
	if !keepRemoved {
		deleted = append(deleted, c.RemovedItems.Keys()...)
		c.RemovedItems = ItemSet{}
	}

	c.Coupons = []string{}
	c.Fees = []Fee{}
	c.ShippingRate = ""
	c.Totals = Totals{Currency: c.Totals.Currency}
	c.Invalidate()
	return deleted
}

// HasCoupon reports whether a coupon code is applied.
func (c *Cart) HasCoupon(code string) bool {
	return slices.Contains(c.Coupons, code)
}

// ApplyCoupon adds a coupon code. Returns false when it was already applied.
func (c *Cart) ApplyCoupon(code string) bool {
	if c.HasCoupon(code) {
		return false
	}
	c.Coupons = append(c.Coupons, code)
	c.Invalidate()
	return true
}

// RemoveCoupon drops a coupon code. Returns false when it was not applied.
func (c *Cart) RemoveCoupon(code string) bool {
	if !c.HasCoupon(code) {
		return false
	}
	c.Coupons = slices.DeleteFunc(c.Coupons, func(s string) bool { return s == code })
	c.Invalidate()
	return true
}

// SetFee adds a fee or replaces the amount of the fee with the same name.
func (c *Cart) SetFee(fee Fee) {
	defer c.Invalidate()
	for i := range c.Fees {
		if c.Fees[i].Name == fee.Name {
			c.Fees[i] = fee
			return
		}
	}
	c.Fees = append(c.Fees, fee)
}

// RemoveFee drops a fee by name. Returns false when no such fee exists.
func (c *Cart) RemoveFee(name string) bool {
	n := len(c.Fees)
	c.Fees = slices.DeleteFunc(c.Fees, func(f Fee) bool { return f.Name == name })
	if len(c.Fees) == n {
		return false
	}
	c.Invalidate()
	return true
}

// ManualFees returns the fees added through the fee operations.
func (c *Cart) ManualFees() []Fee {
	var out []Fee
	for _, f := range c.Fees {
		if f.Source == FeeSourceManual {
			out = append(out, f)
		}
	}
	return out
}

// SetShippingAddress replaces the shipping destination.
func (c *Cart) SetShippingAddress(addr Address) {
	c.ShippingAddress = &addr
	c.Invalidate()
}

// SelectShippingRate records the chosen shipping rate id.
func (c *Cart) SelectShippingRate(rateID string) {
	c.ShippingRate = rateID
	c.Invalidate()
}

// Clone returns a deep copy suitable for mutating without touching the
// original.
func (c *Cart) Clone() *Cart {
	clone := *c
	clone.Items = c.Items.clone()
	clone.RemovedItems = c.RemovedItems.clone()
	clone.Coupons = slices.Clone(c.Coupons)
	clone.Fees = slices.Clone(c.Fees)
	if c.ShippingAddress != nil {
		addr := *c.ShippingAddress
		clone.ShippingAddress = &addr
	}
	return &clone
}
