// Package handler exposes the cart operations over HTTP.
package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/dukerupert/freyja-cart/internal/domain"
	"github.com/dukerupert/freyja-cart/internal/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// ErrorCodeToHTTPStatus maps domain error codes to HTTP status codes.
func ErrorCodeToHTTPStatus(code string) int {
	switch code {
	case domain.EINVALID:
		return http.StatusBadRequest
	case domain.EFORBIDDEN:
		return http.StatusForbidden
	case domain.ENOTFOUND:
		return http.StatusNotFound
	case domain.ECONFLICT:
		return http.StatusConflict
	case domain.EUNAVAILABLE:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string         `json:"code"`
	Kind    domain.Kind    `json:"kind,omitempty"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

// ErrorResponse writes err as a JSON error body with the status for its code.
// Internal errors are reported with a generic message.
func ErrorResponse(c echo.Context, err error) error {
	code := domain.ErrorCode(err)
	body := errorBody{Error: errorDetail{
		Code:    code,
		Kind:    domain.ErrorKind(err),
		Message: domain.ErrorMessage(err),
	}}
	if code != domain.EINTERNAL {
		body.Error.Data = domain.ErrorData(err)
	}
	return c.JSON(ErrorCodeToHTTPStatus(code), body)
}

// HTTPErrorHandler renders errors returned by handlers and middleware. echo
// errors (unknown route, oversized body) keep their status; everything else
// goes through ErrorResponse.
func HTTPErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		log := middleware.GetLogger(c.Request().Context(), logger)

		var he *echo.HTTPError
		if errors.As(err, &he) {
			message := http.StatusText(he.Code)
			if m, ok := he.Message.(string); ok {
				message = m
			}
			if he.Code >= http.StatusInternalServerError {
				log.Error().Err(err).Msg("request failed")
			}
			if werr := c.JSON(he.Code, errorBody{Error: errorDetail{
				Code:    statusToErrorCode(he.Code),
				Message: message,
			}}); werr != nil {
				log.Error().Err(werr).Msg("failed to write error response")
			}
			return
		}

		if domain.ErrorCode(err) == domain.EINTERNAL {
			log.Error().Err(err).Str("op", domain.ErrorOp(err)).Msg("request failed")
		}
		if werr := ErrorResponse(c, err); werr != nil {
			log.Error().Err(werr).Msg("failed to write error response")
		}
	}
}

func statusToErrorCode(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge, http.StatusUnsupportedMediaType:
		return domain.EINVALID
	case http.StatusForbidden, http.StatusUnauthorized:
		return domain.EFORBIDDEN
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return domain.ENOTFOUND
	case http.StatusConflict:
		return domain.ECONFLICT
	case http.StatusServiceUnavailable:
		return domain.EUNAVAILABLE
	default:
		return domain.EINTERNAL
	}
}

// RequestValidator adapts go-playground/validator to echo.
type RequestValidator struct {
	validate *validator.Validate
}

// NewRequestValidator creates a validator for request bodies.
func NewRequestValidator() *RequestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &RequestValidator{validate: v}
}

// Validate implements echo.Validator. Field failures become an invalid
// error whose data names each field and the rule it broke.
func (v *RequestValidator) Validate(i interface{}) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domain.Invalid("request.validate", err.Error())
	}

	fields := make(map[string]any, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	return &domain.Error{
		Code:    domain.EINVALID,
		Message: "Request body failed validation",
		Op:      "request.validate",
		Data:    map[string]any{"fields": fields},
	}
}
