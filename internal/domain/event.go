package domain

import "time"

// CartEventType names a committed cart mutation.
type CartEventType string

const (
	EventItemAdded     CartEventType = "item_added"
	EventItemUpdated   CartEventType = "item_updated"
	EventItemRemoved   CartEventType = "item_removed"
	EventItemRestored  CartEventType = "item_restored"
	EventCartCleared   CartEventType = "cart_cleared"
	EventCouponApplied CartEventType = "coupon_applied"
	EventCouponRemoved CartEventType = "coupon_removed"
)

// CartEvent is published after a mutation has been persisted.
type CartEvent struct {
	Type       CartEventType `json:"type"`
	CartKey    string        `json:"cart_key"`
	ItemKey    string        `json:"item_key,omitempty"`
	ProductID  int64         `json:"product_id,omitempty"`
	Quantity   int64         `json:"quantity,omitempty"`
	Coupon     string        `json:"coupon,omitempty"`
	TotalCents int64         `json:"total_cents"`
	Version    int64         `json:"version"`
	OccurredAt time.Time     `json:"occurred_at"`
}
