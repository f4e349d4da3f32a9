package domain

import (
	"errors"
	"fmt"
)

// Application error codes.
// These map to HTTP status codes and determine user-facing messages.
const (
	ECONFLICT    = "conflict"    // 409 - State conflict (already in cart, already removed)
	EINTERNAL    = "internal"    // 500 - Internal server error (hide details)
	EINVALID     = "invalid"     // 400 - Validation error (bad input)
	ENOTFOUND    = "not_found"   // 404 - Resource not found
	EFORBIDDEN   = "forbidden"   // 403 - Caller not permitted
	EUNAVAILABLE = "unavailable" // 503 - Backing store unreachable
)

// Kind identifies a cart failure in a machine-readable way. Several kinds share
// one Code; the kind is what callers branch on.
type Kind string

const (
	KindProductNotFound            Kind = "product_not_found"
	KindProductNotEligible         Kind = "product_not_eligible"
	KindVariationNotFound          Kind = "variation_not_found"
	KindVariationAttributesMissing Kind = "variation_attributes_missing"
	KindQuantityInvalid            Kind = "quantity_invalid"
	KindAlreadyInCart              Kind = "already_in_cart"
	KindNotPurchasable             Kind = "not_purchasable"
	KindInsufficientStock          Kind = "insufficient_stock"
	KindItemNotFound               Kind = "item_not_found"
	KindAlreadyRemoved             Kind = "already_removed"
	KindAlreadyRestored            Kind = "already_restored"
	KindCartBackendUnavailable     Kind = "cart_backend_unavailable"

	KindCouponNotFound       Kind = "coupon_not_found"
	KindCouponNotApplicable  Kind = "coupon_not_applicable"
	KindShippingRateNotFound Kind = "shipping_rate_not_found"
	KindFeeInvalid           Kind = "fee_invalid"
	KindAddressInvalid       Kind = "address_invalid"
)

// kindCodes maps each kind to its transport class.
var kindCodes = map[Kind]string{
	KindProductNotFound:            ENOTFOUND,
	KindProductNotEligible:         EINVALID,
	KindVariationNotFound:          EINVALID,
	KindVariationAttributesMissing: EINVALID,
	KindQuantityInvalid:            EINVALID,
	KindAlreadyInCart:              ECONFLICT,
	KindNotPurchasable:             EINVALID,
	KindInsufficientStock:          ECONFLICT,
	KindItemNotFound:               ENOTFOUND,
	KindAlreadyRemoved:             ECONFLICT,
	KindAlreadyRestored:            ECONFLICT,
	KindCartBackendUnavailable:     EUNAVAILABLE,
	KindCouponNotFound:             ENOTFOUND,
	KindCouponNotApplicable:        EINVALID,
	KindShippingRateNotFound:       EINVALID,
	KindFeeInvalid:                 EINVALID,
	KindAddressInvalid:             EINVALID,
}

// Error represents an application error with a code and message.
// It implements the error interface and supports error wrapping.
type Error struct {
	// Code is a machine-readable error code (e.g., EINVALID, ENOTFOUND).
	Code string

	// Kind narrows Code to a specific cart failure. Empty for generic errors.
	Kind Kind

	// Message is a human-readable error message safe to show to users.
	Message string

	// Op is the operation where the error occurred (e.g., "cart.add_item").
	// Used for debugging and logging, not shown to users.
	Op string

	// Data carries the structured payload of a kind: the violated bound,
	// remaining and requested stock, the missing attribute names.
	Data map[string]any

	// Err is the underlying error, if any. Used for error wrapping.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		if e.Op != "" {
			return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

// Unwrap implements error unwrapping for errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// ErrorCode extracts the error code from an error.
// Returns EINTERNAL for nil or non-domain errors.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}

	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return EINTERNAL
}

// ErrorKind extracts the cart error kind, or "" when err carries none.
func ErrorKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// ErrorData extracts the kind payload from an error.
func ErrorData(err error) map[string]any {
	var e *Error
	if errors.As(err, &e) {
		return e.Data
	}
	return nil
}

// ErrorMessage extracts a user-facing message from an error.
// For internal errors, returns a generic message to avoid leaking details.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	var e *Error
	if errors.As(err, &e) {
		// For internal errors, hide details from users
		if e.Code == EINTERNAL {
			return "An internal error occurred. Please try again later."
		}
		return e.Message
	}

	// Unknown error type - hide details
	return "An internal error occurred. Please try again later."
}

// ErrorOp extracts the operation from an error (for logging).
func ErrorOp(err error) string {
	if err == nil {
		return ""
	}

	var e *Error
	if errors.As(err, &e) {
		return e.Op
	}

	return ""
}

// Errorf creates a new domain error with formatted message.
// Example: domain.Errorf(domain.EINVALID, "cart.add_item", "invalid sku: %s", sku)
func Errorf(code, op, format string, args ...interface{}) error {
	return &Error{
		Code:    code,
		Op:      op,
		Message: fmt.Sprintf(format, args...),
	}
}

// KindErrorf creates a cart error of the given kind. The code is derived from
// the kind.
func KindErrorf(kind Kind, op string, data map[string]any, format string, args ...interface{}) error {
	return &Error{
		Code:    CodeForKind(kind),
		Kind:    kind,
		Op:      op,
		Message: fmt.Sprintf(format, args...),
		Data:    data,
	}
}

// CodeForKind returns the transport class of a kind.
func CodeForKind(kind Kind) string {
	if code, ok := kindCodes[kind]; ok {
		return code
	}
	return EINTERNAL
}

// WrapError wraps an existing error with a domain error code and operation.
// Preserves the underlying error for logging while providing structure.
// Returns nil if err is nil.
// Example: domain.WrapError(err, domain.EINTERNAL, "cart.save", "failed to save cart")
func WrapError(err error, code, op, message string) error {
	if err == nil {
		return nil
	}

	return &Error{
		Code:    code,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// IsCode returns true if err has the given error code.
func IsCode(err error, code string) bool {
	return ErrorCode(err) == code
}

// IsKind returns true if err carries the given cart error kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && ErrorKind(err) == kind
}

// =============================================================================
// Cart errors
// =============================================================================

// BackendUnavailable wraps a storage or collaborator failure. It is the one
// non-recoverable cart error; the underlying cause is kept for logging.
func BackendUnavailable(err error, op string) error {
	if err == nil {
		return nil
	}
	// Already classified further down the stack.
	if IsKind(err, KindCartBackendUnavailable) {
		return err
	}
	return &Error{
		Code:    EUNAVAILABLE,
		Kind:    KindCartBackendUnavailable,
		Op:      op,
		Message: "The cart is temporarily unavailable. Please try again.",
		Err:     err,
	}
}

// ItemNotFound reports an item key that is in neither the active nor the
// removed set.
func ItemNotFound(op, itemKey string) error {
	return KindErrorf(KindItemNotFound, op, map[string]any{"item_key": itemKey},
		"Cart item not found: %s", itemKey)
}

// =============================================================================
// Common errors (convenience)
// =============================================================================

// NotFound creates a not found error for a resource.
// Example: domain.NotFound("catalog.get_product", "product", "42")
func NotFound(op, resource, identifier string) error {
	return &Error{
		Code:    ENOTFOUND,
		Op:      op,
		Message: fmt.Sprintf("%s not found: %s", resource, identifier),
	}
}

// Forbidden creates a forbidden error.
// Example: domain.Forbidden("cart.set_price", "invalid override secret")
func Forbidden(op, message string) error {
	return &Error{
		Code:    EFORBIDDEN,
		Op:      op,
		Message: message,
	}
}

// Invalid creates a validation error for a single issue.
// Example: domain.Invalid("cart.add_item", "product id or sku is required")
func Invalid(op, message string) error {
	return &Error{
		Code:    EINVALID,
		Op:      op,
		Message: message,
	}
}

// Conflict creates a conflict error.
func Conflict(op, message string) error {
	return &Error{
		Code:    ECONFLICT,
		Op:      op,
		Message: message,
	}
}

// Internal creates an internal error (wraps underlying error).
// The message shown to users will be generic; the underlying error is for logging.
// Example: domain.Internal(err, "cart.recompute", "failed to compute totals")
func Internal(err error, op, message string) error {
	return &Error{
		Code:    EINTERNAL,
		Op:      op,
		Message: message,
		Err:     err,
	}
}
