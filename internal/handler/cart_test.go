package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dukerupert/freyja-cart/internal/cookie"
	"github.com/dukerupert/freyja-cart/internal/domain"
	"github.com/dukerupert/freyja-cart/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockCartService implements service.CartService for testing
type mockCartService struct {
	getCartFunc            func(ctx context.Context, cartKey string) (*domain.Cart, error)
	getTotalsFunc          func(ctx context.Context, cartKey string) (domain.Totals, error)
	checkItemsFunc         func(ctx context.Context, cartKey string) ([]service.ItemProblem, error)
	addItemFunc            func(ctx context.Context, cartKey string, params service.AddItemParams) (*domain.Cart, *domain.CartItem, error)
	updateItemFunc         func(ctx context.Context, cartKey, itemKey string, quantity int64) (*domain.Cart, *domain.CartItem, error)
	removeItemFunc         func(ctx context.Context, cartKey, itemKey string) (*domain.Cart, *domain.CartItem, error)
	restoreItemFunc        func(ctx context.Context, cartKey, itemKey string) (*domain.Cart, *domain.CartItem, error)
	clearFunc              func(ctx context.Context, cartKey string, keepRemoved bool) (*domain.Cart, error)
	applyCouponFunc        func(ctx context.Context, cartKey, code string) (*domain.Cart, error)
	removeCouponFunc       func(ctx context.Context, cartKey, code string) (*domain.Cart, error)
	addFeeFunc             func(ctx context.Context, cartKey, name string, amountCents int64, taxable bool) (*domain.Cart, error)
	removeFeeFunc          func(ctx context.Context, cartKey, name string) (*domain.Cart, error)
	setShippingAddressFunc func(ctx context.Context, cartKey string, addr domain.Address) (*domain.Cart, error)
	selectShippingRateFunc func(ctx context.Context, cartKey, rateID string) (*domain.Cart, error)
	setPriceOverrideFunc   func(ctx context.Context, cartKey, itemKey string, priceCents int64) (*domain.Cart, error)
}

func emptyCart(key string) *domain.Cart {
	return &domain.Cart{Key: key, Coupons: []string{}, Fees: []domain.Fee{}}
}

func (m *mockCartService) GetCart(ctx context.Context, cartKey string) (*domain.Cart, error) {
	if m.getCartFunc != nil {
		return m.getCartFunc(ctx, cartKey)
	}
	return emptyCart(cartKey), nil
}

func (m *mockCartService) GetTotals(ctx context.Context, cartKey string) (domain.Totals, error) {
	if m.getTotalsFunc != nil {
		return m.getTotalsFunc(ctx, cartKey)
	}
	return domain.Totals{}, nil
}

func (m *mockCartService) CheckItems(ctx context.Context, cartKey string) ([]service.ItemProblem, error) {
	if m.checkItemsFunc != nil {
		return m.checkItemsFunc(ctx, cartKey)
	}
	return []service.ItemProblem{}, nil
}

func (m *mockCartService) AddItem(ctx context.Context, cartKey string, params service.AddItemParams) (*domain.Cart, *domain.CartItem, error) {
	if m.addItemFunc != nil {
		return m.addItemFunc(ctx, cartKey, params)
	}
	return emptyCart(cartKey), &domain.CartItem{}, nil
}

func (m *mockCartService) UpdateItem(ctx context.Context, cartKey, itemKey string, quantity int64) (*domain.Cart, *domain.CartItem, error) {
	if m.updateItemFunc != nil {
		return m.updateItemFunc(ctx, cartKey, itemKey, quantity)
	}
	return emptyCart(cartKey), &domain.CartItem{Key: itemKey}, nil
}

func (m *mockCartService) RemoveItem(ctx context.Context, cartKey, itemKey string) (*domain.Cart, *domain.CartItem, error) {
	if m.removeItemFunc != nil {
		return m.removeItemFunc(ctx, cartKey, itemKey)
	}
	return emptyCart(cartKey), &domain.CartItem{Key: itemKey}, nil
}

func (m *mockCartService) RestoreItem(ctx context.Context, cartKey, itemKey string) (*domain.Cart, *domain.CartItem, error) {
	if m.restoreItemFunc != nil {
		return m.restoreItemFunc(ctx, cartKey, itemKey)
	}
	return emptyCart(cartKey), &domain.CartItem{Key: itemKey}, nil
}

func (m *mockCartService) Clear(ctx context.Context, cartKey string, keepRemoved bool) (*domain.Cart, error) {
	if m.clearFunc != nil {
		return m.clearFunc(ctx, cartKey, keepRemoved)
	}
	return emptyCart(cartKey), nil
}

func (m *mockCartService) ApplyCoupon(ctx context.Context, cartKey, code string) (*domain.Cart, error) {
	if m.applyCouponFunc != nil {
		return m.applyCouponFunc(ctx, cartKey, code)
	}
	return emptyCart(cartKey), nil
}

func (m *mockCartService) RemoveCoupon(ctx context.Context, cartKey, code string) (*domain.Cart, error) {
	if m.removeCouponFunc != nil {
		return m.removeCouponFunc(ctx, cartKey, code)
	}
	return emptyCart(cartKey), nil
}

func (m *mockCartService) AddFee(ctx context.Context, cartKey, name string, amountCents int64, taxable bool) (*domain.Cart, error) {
	if m.addFeeFunc != nil {
		return m.addFeeFunc(ctx, cartKey, name, amountCents, taxable)
	}
	return emptyCart(cartKey), nil
}

func (m *mockCartService) RemoveFee(ctx context.Context, cartKey, name string) (*domain.Cart, error) {
	if m.removeFeeFunc != nil {
		return m.removeFeeFunc(ctx, cartKey, name)
	}
	return emptyCart(cartKey), nil
}

func (m *mockCartService) SetShippingAddress(ctx context.Context, cartKey string, addr domain.Address) (*domain.Cart, error) {
	if m.setShippingAddressFunc != nil {
		return m.setShippingAddressFunc(ctx, cartKey, addr)
	}
	return emptyCart(cartKey), nil
}

func (m *mockCartService) SelectShippingRate(ctx context.Context, cartKey, rateID string) (*domain.Cart, error) {
	if m.selectShippingRateFunc != nil {
		return m.selectShippingRateFunc(ctx, cartKey, rateID)
	}
	return emptyCart(cartKey), nil
}

func (m *mockCartService) SetPriceOverride(ctx context.Context, cartKey, itemKey string, priceCents int64) (*domain.Cart, error) {
	if m.setPriceOverrideFunc != nil {
		return m.setPriceOverrideFunc(ctx, cartKey, itemKey, priceCents)
	}
	return emptyCart(cartKey), nil
}

var _ service.CartService = (*mockCartService)(nil)

func newTestServer(svc service.CartService, secret string) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = HTTPErrorHandler(zerolog.Nop())
	e.Validator = NewRequestValidator()
	NewCartHandler(svc, secret).Register(e.Group("/cart"))
	return e
}

func do(e *echo.Echo, method, path, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set(CartTokenHeader, token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestCartHandler_Get(t *testing.T) {
	var gotKey string
	svc := &mockCartService{
		getCartFunc: func(ctx context.Context, cartKey string) (*domain.Cart, error) {
			gotKey = cartKey
			cart := emptyCart(cartKey)
			cart.Totals = domain.Totals{Total: 1200, Currency: "usd"}
			return cart, nil
		},
	}
	e := newTestServer(svc, "")

	t.Run("uses token", func(t *testing.T) {
		rec := do(e, http.MethodGet, "/cart", "tok-1", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "tok-1", gotKey)

		var cart domain.Cart
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cart))
		assert.Equal(t, int64(1200), cart.Totals.Total)
	})

	t.Run("read without token does not mint one", func(t *testing.T) {
		rec := do(e, http.MethodGet, "/cart", "", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, gotKey)
		assert.Empty(t, rec.Header().Get(CartTokenHeader))
	})
}

func TestCartHandler_TotalsAndCheck(t *testing.T) {
	svc := &mockCartService{
		getTotalsFunc: func(ctx context.Context, cartKey string) (domain.Totals, error) {
			return domain.Totals{Subtotal: 500, Total: 540, Currency: "usd"}, nil
		},
		checkItemsFunc: func(ctx context.Context, cartKey string) ([]service.ItemProblem, error) {
			return []service.ItemProblem{{ItemKey: "abc", Kind: domain.KindInsufficientStock, Message: "Only 1 left"}}, nil
		},
	}
	e := newTestServer(svc, "")

	rec := do(e, http.MethodGet, "/cart/totals", "tok", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"subtotal":500,"subtotal_tax":0,"discount":0,"shipping":0,"shipping_tax":0,"fees":0,"fee_tax":0,"tax":0,"total":540,"currency":"usd"}`, rec.Body.String())

	rec = do(e, http.MethodGet, "/cart/check", "tok", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp checkResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Problems, 1)
	assert.Equal(t, domain.KindInsufficientStock, resp.Problems[0].Kind)
}

func TestCartHandler_AddItem(t *testing.T) {
	tests := []struct {
		name           string
		token          string
		body           string
		expectedStatus int
		checkParams    func(t *testing.T, params service.AddItemParams)
	}{
		{
			name:           "by id with default quantity",
			token:          "tok",
			body:           `{"id": 42}`,
			expectedStatus: http.StatusCreated,
			checkParams: func(t *testing.T, params service.AddItemParams) {
				assert.Equal(t, int64(42), params.ProductID)
				assert.Equal(t, int64(1), params.Quantity)
			},
		},
		{
			name:           "by sku with variation",
			token:          "tok",
			body:           `{"sku": "MUG-1", "quantity": 3, "variation": [{"attribute": "Color", "value": "Blue"}], "extra_data": {"engraving": "hi"}}`,
			expectedStatus: http.StatusCreated,
			checkParams: func(t *testing.T, params service.AddItemParams) {
				assert.Equal(t, "MUG-1", params.SKU)
				assert.Equal(t, int64(3), params.Quantity)
				assert.Equal(t, domain.Variation{{Name: "Color", Value: "Blue"}}, params.Variation)
				assert.Equal(t, "hi", params.ExtraData["engraving"])
			},
		},
		{
			name:           "zero quantity passes through to the service",
			token:          "tok",
			body:           `{"id": 42, "quantity": 0}`,
			expectedStatus: http.StatusCreated,
			checkParams: func(t *testing.T, params service.AddItemParams) {
				assert.Equal(t, int64(0), params.Quantity)
			},
		},
		{
			name:           "neither id nor sku",
			token:          "tok",
			body:           `{"quantity": 1}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "malformed json",
			token:          "tok",
			body:           `{"id": `,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *service.AddItemParams
			svc := &mockCartService{
				addItemFunc: func(ctx context.Context, cartKey string, params service.AddItemParams) (*domain.Cart, *domain.CartItem, error) {
					got = &params
					return emptyCart(cartKey), &domain.CartItem{Key: "k1", Quantity: params.Quantity}, nil
				},
			}
			e := newTestServer(svc, "")

			rec := do(e, http.MethodPost, "/cart/items", tt.token, tt.body)
			assert.Equal(t, tt.expectedStatus, rec.Code, rec.Body.String())

			if tt.checkParams != nil {
				require.NotNil(t, got)
				tt.checkParams(t, *got)
			} else {
				assert.Nil(t, got)
			}
		})
	}
}

func TestCartHandler_MutationMintsToken(t *testing.T) {
	var gotKey string
	svc := &mockCartService{
		addItemFunc: func(ctx context.Context, cartKey string, params service.AddItemParams) (*domain.Cart, *domain.CartItem, error) {
			gotKey = cartKey
			return emptyCart(cartKey), &domain.CartItem{}, nil
		},
	}
	e := newTestServer(svc, "")

	rec := do(e, http.MethodPost, "/cart/items", "", `{"id": 1}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotEmpty(t, gotKey)
	assert.Equal(t, gotKey, rec.Header().Get(CartTokenHeader))

	rec = do(e, http.MethodPost, "/cart/items", "existing", `{"id": 1}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "existing", gotKey)
	assert.Equal(t, "existing", rec.Header().Get(CartTokenHeader))
}

func TestCartHandler_ItemRoutes(t *testing.T) {
	var calls []string
	svc := &mockCartService{
		updateItemFunc: func(ctx context.Context, cartKey, itemKey string, quantity int64) (*domain.Cart, *domain.CartItem, error) {
			calls = append(calls, "update:"+itemKey)
			assert.Equal(t, int64(0), quantity)
			return emptyCart(cartKey), &domain.CartItem{Key: itemKey}, nil
		},
		removeItemFunc: func(ctx context.Context, cartKey, itemKey string) (*domain.Cart, *domain.CartItem, error) {
			calls = append(calls, "remove:"+itemKey)
			return emptyCart(cartKey), &domain.CartItem{Key: itemKey}, nil
		},
		restoreItemFunc: func(ctx context.Context, cartKey, itemKey string) (*domain.Cart, *domain.CartItem, error) {
			calls = append(calls, "restore:"+itemKey)
			return emptyCart(cartKey), &domain.CartItem{Key: itemKey}, nil
		},
		clearFunc: func(ctx context.Context, cartKey string, keepRemoved bool) (*domain.Cart, error) {
			if keepRemoved {
				calls = append(calls, "clear:keep")
			} else {
				calls = append(calls, "clear")
			}
			return emptyCart(cartKey), nil
		},
	}
	e := newTestServer(svc, "")

	assert.Equal(t, http.StatusOK, do(e, http.MethodPatch, "/cart/items/abc", "tok", `{"quantity": 0}`).Code)
	assert.Equal(t, http.StatusOK, do(e, http.MethodDelete, "/cart/items/abc", "tok", "").Code)
	assert.Equal(t, http.StatusOK, do(e, http.MethodPost, "/cart/items/abc/restore", "tok", "").Code)
	assert.Equal(t, http.StatusOK, do(e, http.MethodDelete, "/cart?keep_removed=true", "tok", "").Code)
	assert.Equal(t, http.StatusOK, do(e, http.MethodDelete, "/cart", "tok", "").Code)

	assert.Equal(t, []string{"update:abc", "remove:abc", "restore:abc", "clear:keep", "clear"}, calls)

	// quantity is required on update
	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodPatch, "/cart/items/abc", "tok", `{}`).Code)
}

func TestCartHandler_ServiceErrors(t *testing.T) {
	svc := &mockCartService{
		removeItemFunc: func(ctx context.Context, cartKey, itemKey string) (*domain.Cart, *domain.CartItem, error) {
			return nil, nil, domain.KindErrorf(domain.KindAlreadyRemoved, "cart.remove_item", nil, "Item is already removed")
		},
		restoreItemFunc: func(ctx context.Context, cartKey, itemKey string) (*domain.Cart, *domain.CartItem, error) {
			return nil, nil, domain.ItemNotFound("cart.restore_item", itemKey)
		},
	}
	e := newTestServer(svc, "")

	rec := do(e, http.MethodDelete, "/cart/items/abc", "tok", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), string(domain.KindAlreadyRemoved))

	rec = do(e, http.MethodPost, "/cart/items/abc/restore", "tok", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), string(domain.KindItemNotFound))
}

func TestCartHandler_SetPrice(t *testing.T) {
	tests := []struct {
		name           string
		configured     string
		given          string
		body           string
		expectedStatus int
		expectCall     bool
	}{
		{"disabled when no secret configured", "", "anything", `{"price": 100}`, http.StatusForbidden, false},
		{"wrong secret", "s3cret", "guess", `{"price": 100}`, http.StatusForbidden, false},
		{"missing secret", "s3cret", "", `{"price": 100}`, http.StatusForbidden, false},
		{"negative price", "s3cret", "s3cret", `{"price": -1}`, http.StatusBadRequest, false},
		{"accepted", "s3cret", "s3cret", `{"price": 750}`, http.StatusOK, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			svc := &mockCartService{
				setPriceOverrideFunc: func(ctx context.Context, cartKey, itemKey string, priceCents int64) (*domain.Cart, error) {
					called = true
					assert.Equal(t, "abc", itemKey)
					assert.Equal(t, int64(750), priceCents)
					return emptyCart(cartKey), nil
				},
			}
			e := newTestServer(svc, tt.configured)

			req := httptest.NewRequest(http.MethodPut, "/cart/items/abc/price", strings.NewReader(tt.body))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			req.Header.Set(CartTokenHeader, "tok")
			if tt.given != "" {
				req.Header.Set(PriceOverrideSecretHeader, tt.given)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Equal(t, tt.expectCall, called)
		})
	}
}

func TestCartHandler_CouponsFeesShipping(t *testing.T) {
	var calls []string
	svc := &mockCartService{
		applyCouponFunc: func(ctx context.Context, cartKey, code string) (*domain.Cart, error) {
			calls = append(calls, "apply:"+code)
			return emptyCart(cartKey), nil
		},
		removeCouponFunc: func(ctx context.Context, cartKey, code string) (*domain.Cart, error) {
			calls = append(calls, "unapply:"+code)
			return emptyCart(cartKey), nil
		},
		addFeeFunc: func(ctx context.Context, cartKey, name string, amountCents int64, taxable bool) (*domain.Cart, error) {
			calls = append(calls, "fee:"+name)
			assert.Equal(t, int64(250), amountCents)
			assert.True(t, taxable)
			return emptyCart(cartKey), nil
		},
		removeFeeFunc: func(ctx context.Context, cartKey, name string) (*domain.Cart, error) {
			calls = append(calls, "unfee:"+name)
			return emptyCart(cartKey), nil
		},
		setShippingAddressFunc: func(ctx context.Context, cartKey string, addr domain.Address) (*domain.Cart, error) {
			calls = append(calls, "address:"+addr.Country)
			assert.Equal(t, "Portland", addr.City)
			return emptyCart(cartKey), nil
		},
		selectShippingRateFunc: func(ctx context.Context, cartKey, rateID string) (*domain.Cart, error) {
			calls = append(calls, "rate:"+rateID)
			return emptyCart(cartKey), nil
		},
	}
	e := newTestServer(svc, "")

	assert.Equal(t, http.StatusOK, do(e, http.MethodPost, "/cart/coupons", "tok", `{"code": "SAVE10"}`).Code)
	assert.Equal(t, http.StatusOK, do(e, http.MethodDelete, "/cart/coupons/SAVE10", "tok", "").Code)
	assert.Equal(t, http.StatusOK, do(e, http.MethodPost, "/cart/fees", "tok", `{"name": "Gift wrap", "amount": 250, "taxable": true}`).Code)
	assert.Equal(t, http.StatusOK, do(e, http.MethodDelete, "/cart/fees/Gift%20wrap", "tok", "").Code)
	assert.Equal(t, http.StatusOK, do(e, http.MethodPut, "/cart/shipping-address", "tok", `{"line1": "1 Main St", "city": "Portland", "state": "OR", "postal_code": "97201", "country": "US"}`).Code)
	assert.Equal(t, http.StatusOK, do(e, http.MethodPut, "/cart/shipping-rate", "tok", `{"rate_id": "flat_express"}`).Code)

	assert.Equal(t, []string{
		"apply:SAVE10", "unapply:SAVE10", "fee:Gift wrap", "unfee:Gift wrap", "address:US", "rate:flat_express",
	}, calls)

	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodPost, "/cart/coupons", "tok", `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodPut, "/cart/shipping-address", "tok", `{"country": "USA"}`).Code)
}

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name           string
		checks         map[string]Pinger
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "all healthy",
			checks:         map[string]Pinger{"postgres": PingFunc(func(ctx context.Context) error { return nil })},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"status":"ok","checks":{"postgres":"ok"}}`,
		},
		{
			name: "redis down",
			checks: map[string]Pinger{
				"postgres": PingFunc(func(ctx context.Context) error { return nil }),
				"redis":    PingFunc(func(ctx context.Context) error { return domain.Internal(nil, "ping", "refused") }),
			},
			expectedStatus: http.StatusServiceUnavailable,
			expectedBody:   `{"status":"degraded","checks":{"postgres":"ok","redis":"ping: refused"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			e.GET("/healthz", NewHealthHandler(tt.checks).Health)

			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.JSONEq(t, tt.expectedBody, rec.Body.String())
		})
	}
}

func TestCartHandler_CookieToken(t *testing.T) {
	var gotKey string
	svc := &mockCartService{
		getCartFunc: func(ctx context.Context, cartKey string) (*domain.Cart, error) {
			gotKey = cartKey
			return emptyCart(cartKey), nil
		},
		addItemFunc: func(ctx context.Context, cartKey string, params service.AddItemParams) (*domain.Cart, *domain.CartItem, error) {
			gotKey = cartKey
			return emptyCart(cartKey), &domain.CartItem{}, nil
		},
	}

	e := echo.New()
	e.HTTPErrorHandler = HTTPErrorHandler(zerolog.Nop())
	e.Validator = NewRequestValidator()
	NewCartHandler(svc, "").
		WithCookies(cookie.NewConfig("", false, time.Hour)).
		Register(e.Group("/cart"))

	// A mutation without any token mints one and sets the cookie.
	rec := do(e, http.MethodPost, "/cart/items", "", `{"id": 1}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, cookie.CartCookieName, cookies[0].Name)
	assert.Equal(t, gotKey, cookies[0].Value)

	// The cookie alone identifies the cart on reads.
	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.AddCookie(&http.Cookie{Name: cookie.CartCookieName, Value: "from-cookie"})
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "from-cookie", gotKey)

	// The header wins over the cookie.
	req = httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.AddCookie(&http.Cookie{Name: cookie.CartCookieName, Value: "from-cookie"})
	req.Header.Set(CartTokenHeader, "from-header")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, "from-header", gotKey)
}
