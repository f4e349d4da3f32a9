package tax

// Codes match the domain error codes without importing domain.
const (
	codeInternal = "internal"
	codeInvalid  = "invalid"
)

// TaxError is a calculator failure with a domain error code.
type TaxError struct {
	Code    string
	Message string
}

func (e *TaxError) Error() string {
	return e.Message
}

// ErrorCode returns the domain error code.
func (e *TaxError) ErrorCode() string {
	return e.Code
}

// ErrorMessage returns the user-facing message.
func (e *TaxError) ErrorMessage() string {
	return e.Message
}

var (
	// ErrInvalidTaxRate rejects a percentage rate outside [0, 1].
	ErrInvalidTaxRate = &TaxError{Code: codeInvalid, Message: "Tax rate must be between 0 and 1"}

	// ErrProviderFailed wraps every error a Calculator returns while a cart
	// is being totalled.
	ErrProviderFailed = &TaxError{Code: codeInternal, Message: "Tax provider request failed"}
)
