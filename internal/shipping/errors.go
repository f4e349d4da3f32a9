package shipping

import "fmt"

// ============================================================================
// SHIPPING ERROR CODES
// ============================================================================
// These constants mirror domain error codes to avoid circular imports.
// The handler layer maps these to HTTP status codes.

const (
	codeInvalid     = "invalid"
	codeUnavailable = "unavailable" // For service-level errors like no rates
)

// ============================================================================
// SHIPPING ERROR TYPE
// ============================================================================

// ShippingError represents a shipping-specific error with a code and message.
type ShippingError struct {
	Code    string
	Message string
}

func (e *ShippingError) Error() string {
	return e.Message
}

// ErrorCode returns the error code for HTTP status mapping.
func (e *ShippingError) ErrorCode() string {
	return e.Code
}

// ErrorMessage returns the user-facing message.
func (e *ShippingError) ErrorMessage() string {
	return e.Message
}

// newShippingError creates a new shipping error.
func newShippingError(code, message string) *ShippingError {
	return &ShippingError{Code: code, Message: message}
}

// ============================================================================
// SHIPPING DOMAIN ERRORS
// ============================================================================

var (
	// ErrNoPackages is returned when no packages are provided.
	ErrNoPackages = newShippingError(codeInvalid, "At least one package is required")

	// ErrNoRates is returned when no shipping rates are available.
	ErrNoRates = newShippingError(codeUnavailable, "No shipping rates available")

	// ErrMissingAPIKey is returned when a carrier API key is not configured.
	ErrMissingAPIKey = newShippingError(codeInvalid, "Shipping provider API key is required")

	// ErrOriginRequired is returned when no ship-from address is configured.
	ErrOriginRequired = newShippingError(codeInvalid, "Origin address is required")
)

// ErrInvalidAmount reports a rate amount that could not be parsed.
func ErrInvalidAmount(amount string, err error) error {
	if err != nil {
		return fmt.Errorf("invalid rate amount %q: %w", amount, err)
	}
	return fmt.Errorf("invalid rate amount %q", amount)
}
