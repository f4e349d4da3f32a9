package address

import (
	"context"
	"regexp"
	"strings"

	"github.com/dukerupert/freyja-cart/internal/domain"
)

var postalFormats = map[string]*regexp.Regexp{
	"US": regexp.MustCompile(`^\d{5}(-\d{4})?$`),
	"CA": regexp.MustCompile(`^[A-Z]\d[A-Z] ?\d[A-Z]\d$`),
	"GB": regexp.MustCompile(`^[A-Z]{1,2}\d[A-Z\d]? ?\d[A-Z]{2}$`),
	"DE": regexp.MustCompile(`^\d{5}$`),
	"AU": regexp.MustCompile(`^\d{4}$`),
}

// BasicValidator performs basic format validation without external API calls.
// A country is required; a partial address is accepted so rates and tax can
// be estimated before checkout.
type BasicValidator struct{}

// NewBasicValidator creates a new basic address validator.
func NewBasicValidator() Validator {
	return &BasicValidator{}
}

// Validate trims every field, upper-cases country, state and postal code,
// and checks the postal code format for countries it knows.
func (v *BasicValidator) Validate(ctx context.Context, addr domain.Address) (*ValidationResult, error) {
	normalized := domain.Address{
		Line1:      strings.TrimSpace(addr.Line1),
		Line2:      strings.TrimSpace(addr.Line2),
		City:       strings.TrimSpace(addr.City),
		State:      strings.ToUpper(strings.TrimSpace(addr.State)),
		PostalCode: strings.ToUpper(strings.TrimSpace(addr.PostalCode)),
		Country:    strings.ToUpper(strings.TrimSpace(addr.Country)),
	}

	result := &ValidationResult{NormalizedAddress: &normalized}

	switch {
	case normalized.Country == "":
		result.Errors = append(result.Errors, ValidationError{Field: "country", Message: "country is required"})
	case len(normalized.Country) != 2:
		result.Errors = append(result.Errors, ValidationError{Field: "country", Message: "country must be a two-letter ISO code"})
	}

	if normalized.PostalCode != "" {
		if re, ok := postalFormats[normalized.Country]; ok && !re.MatchString(normalized.PostalCode) {
			result.Errors = append(result.Errors, ValidationError{Field: "postal_code", Message: "postal code format is invalid for " + normalized.Country})
		}
	} else if normalized.Line1 != "" {
		result.Warnings = append(result.Warnings, "postal code missing; tax may be estimated at the country level")
	}

	result.IsValid = len(result.Errors) == 0
	return result, nil
}
