// Package address validates and normalizes shipping destinations before
// they are stored on a cart.
package address

import (
	"context"

	"github.com/dukerupert/freyja-cart/internal/domain"
)

// Validator defines the interface for address validation.
// Implementations can use external APIs like Google, USPS, Lob, SmartyStreets, etc.
type Validator interface {
	// Validate checks if an address is usable for shipping and tax estimates.
	// Even if IsValid is false, NormalizedAddress may contain corrections.
	Validate(ctx context.Context, addr domain.Address) (*ValidationResult, error)
}

// ValidationResult contains the outcome of address validation.
type ValidationResult struct {
	IsValid           bool
	NormalizedAddress *domain.Address
	Errors            []ValidationError
	Warnings          []string
}

// ValidationError represents a specific validation error.
type ValidationError struct {
	Field   string
	Message string
}

// Fields returns the errors keyed by field, for error payloads.
func (r *ValidationResult) Fields() map[string]any {
	fields := make(map[string]any, len(r.Errors))
	for _, e := range r.Errors {
		fields[e.Field] = e.Message
	}
	return fields
}
