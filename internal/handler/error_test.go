package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dukerupert/freyja-cart/internal/domain"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func TestErrorCodeToHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{domain.EINVALID, http.StatusBadRequest},
		{domain.EFORBIDDEN, http.StatusForbidden},
		{domain.ENOTFOUND, http.StatusNotFound},
		{domain.ECONFLICT, http.StatusConflict},
		{domain.EUNAVAILABLE, http.StatusServiceUnavailable},
		{domain.EINTERNAL, http.StatusInternalServerError},
		{"unknown_code", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if got := ErrorCodeToHTTPStatus(tt.code); got != tt.expected {
				t.Errorf("ErrorCodeToHTTPStatus(%q) = %d, want %d", tt.code, got, tt.expected)
			}
		})
	}
}

type errorResponse struct {
	Error struct {
		Code    string         `json:"code"`
		Kind    string         `json:"kind"`
		Message string         `json:"message"`
		Data    map[string]any `json:"data"`
	} `json:"error"`
}

func renderError(t *testing.T, err error) (*httptest.ResponseRecorder, errorResponse) {
	t.Helper()

	e := echo.New()
	e.HTTPErrorHandler = HTTPErrorHandler(zerolog.Nop())
	e.GET("/test", func(c echo.Context) error { return err })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))

	var response errorResponse
	if derr := json.NewDecoder(rec.Body).Decode(&response); derr != nil {
		t.Fatalf("failed to decode response: %v", derr)
	}
	return rec, response
}

func TestErrorResponse_JSON(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedCode   string
		expectedKind   string
	}{
		{
			name:           "not found error",
			err:            domain.NotFound("cart.get", "product", "42"),
			expectedStatus: http.StatusNotFound,
			expectedCode:   domain.ENOTFOUND,
		},
		{
			name:           "validation error",
			err:            domain.Invalid("cart.add_fee", "fee name is required"),
			expectedStatus: http.StatusBadRequest,
			expectedCode:   domain.EINVALID,
		},
		{
			name:           "forbidden error",
			err:            domain.Forbidden("cart.set_price_override", "not authorized"),
			expectedStatus: http.StatusForbidden,
			expectedCode:   domain.EFORBIDDEN,
		},
		{
			name:           "stock conflict carries kind",
			err:            domain.KindErrorf(domain.KindInsufficientStock, "cart.add_item", map[string]any{"remaining": 2}, "Only %d left", 2),
			expectedStatus: http.StatusConflict,
			expectedCode:   domain.ECONFLICT,
			expectedKind:   string(domain.KindInsufficientStock),
		},
		{
			name:           "backend unavailable",
			err:            domain.BackendUnavailable(errors.New("dial tcp: refused"), "cart.get"),
			expectedStatus: http.StatusServiceUnavailable,
			expectedCode:   domain.EUNAVAILABLE,
			expectedKind:   string(domain.KindCartBackendUnavailable),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, response := renderError(t, tt.err)

			if rec.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.expectedStatus)
			}
			if response.Error.Code != tt.expectedCode {
				t.Errorf("error.code = %q, want %q", response.Error.Code, tt.expectedCode)
			}
			if response.Error.Kind != tt.expectedKind {
				t.Errorf("error.kind = %q, want %q", response.Error.Kind, tt.expectedKind)
			}
		})
	}
}

func TestErrorResponse_KindData(t *testing.T) {
	err := domain.KindErrorf(domain.KindInsufficientStock, "cart.add_item", map[string]any{"remaining": 2, "requested": 5}, "Only 2 left")
	_, response := renderError(t, err)

	if got := response.Error.Data["remaining"]; got != float64(2) {
		t.Errorf("data.remaining = %v, want 2", got)
	}
	if got := response.Error.Data["requested"]; got != float64(5) {
		t.Errorf("data.requested = %v, want 5", got)
	}
}

func TestErrorResponse_InternalHidesDetails(t *testing.T) {
	err := domain.Internal(nil, "db.query", "failed to connect to database at 192.168.1.100:5432")
	rec, response := renderError(t, err)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}

	// Should show generic message, not internal details
	expected := "An internal error occurred. Please try again later."
	if response.Error.Message != expected {
		t.Errorf("message = %q, want %q", response.Error.Message, expected)
	}
}

func TestErrorResponse_PlainErrorIsInternal(t *testing.T) {
	rec, response := renderError(t, errors.New("pq: connection reset"))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
	if response.Error.Code != domain.EINTERNAL {
		t.Errorf("error.code = %q, want %q", response.Error.Code, domain.EINTERNAL)
	}
}

func TestHTTPErrorHandler_EchoErrors(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		expectedCode string
		status       int
	}{
		{"not found", echo.ErrNotFound, domain.ENOTFOUND, http.StatusNotFound},
		{"body too large", echo.NewHTTPError(http.StatusRequestEntityTooLarge, "Request body too large"), domain.EINVALID, http.StatusRequestEntityTooLarge},
		{"panic recovered", echo.NewHTTPError(http.StatusInternalServerError), domain.EINTERNAL, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, response := renderError(t, tt.err)

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			if response.Error.Code != tt.expectedCode {
				t.Errorf("error.code = %q, want %q", response.Error.Code, tt.expectedCode)
			}
			if response.Error.Message == "" {
				t.Error("error.message should not be empty")
			}
		})
	}
}

func TestRequestValidator_FieldData(t *testing.T) {
	v := NewRequestValidator()

	err := v.Validate(&couponRequest{})
	if domain.ErrorCode(err) != domain.EINVALID {
		t.Fatalf("ErrorCode = %q, want %q", domain.ErrorCode(err), domain.EINVALID)
	}

	fields, ok := domain.ErrorData(err)["fields"].(map[string]any)
	if !ok {
		t.Fatalf("expected fields map in error data, got %#v", domain.ErrorData(err))
	}
	if fields["code"] != "required" {
		t.Errorf("fields[code] = %v, want required", fields["code"])
	}
}
