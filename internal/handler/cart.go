package handler

import (
	"crypto/subtle"
	"net/http"
	"strconv"

	"github.com/dukerupert/freyja-cart/internal/cookie"
	"github.com/dukerupert/freyja-cart/internal/domain"
	"github.com/dukerupert/freyja-cart/internal/service"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	// CartTokenHeader carries the cart key in both directions.
	CartTokenHeader = "Cart-Token"

	// PriceOverrideSecretHeader authorizes price overrides.
	PriceOverrideSecretHeader = "X-Price-Override-Secret"
)

// CartHandler handles all cart routes
type CartHandler struct {
	cartService    service.CartService
	overrideSecret string
	cookies        *cookie.Config
}

// NewCartHandler creates a new cart handler. An empty overrideSecret
// disables the price override route.
func NewCartHandler(cartService service.CartService, overrideSecret string) *CartHandler {
	return &CartHandler{
		cartService:    cartService,
		overrideSecret: overrideSecret,
	}
}

// WithCookies makes the handler also read and write the cart key as a
// cookie. The header still wins when both are sent.
func (h *CartHandler) WithCookies(cfg *cookie.Config) *CartHandler {
	h.cookies = cfg
	return h
}

// Register mounts the cart routes on g.
func (h *CartHandler) Register(g *echo.Group) {
	g.GET("", h.Get)
	g.GET("/totals", h.Totals)
	g.GET("/check", h.Check)
	g.DELETE("", h.Clear)

	g.POST("/items", h.AddItem)
	g.PATCH("/items/:key", h.UpdateItem)
	g.DELETE("/items/:key", h.RemoveItem)
	g.POST("/items/:key/restore", h.RestoreItem)
	g.PUT("/items/:key/price", h.SetPrice)

	g.POST("/coupons", h.ApplyCoupon)
	g.DELETE("/coupons/:code", h.RemoveCoupon)

	g.POST("/fees", h.AddFee)
	g.DELETE("/fees/:name", h.RemoveFee)

	g.PUT("/shipping-address", h.SetShippingAddress)
	g.PUT("/shipping-rate", h.SelectShippingRate)
}

// =============================================================================
// Request and response bodies
// =============================================================================

type addItemRequest struct {
	ID          int64            `json:"id" validate:"required_without=SKU,gte=0"`
	SKU         string           `json:"sku" validate:"required_without=ID"`
	Quantity    *int64           `json:"quantity"`
	VariationID int64            `json:"variation_id" validate:"gte=0"`
	Variation   domain.Variation `json:"variation" validate:"dive"`
	ExtraData   map[string]any   `json:"extra_data"`
}

type updateItemRequest struct {
	Quantity *int64 `json:"quantity" validate:"required"`
}

type priceRequest struct {
	Price *int64 `json:"price" validate:"required,gte=0"`
}

type couponRequest struct {
	Code string `json:"code" validate:"required"`
}

type feeRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Amount  int64  `json:"amount"`
	Taxable bool   `json:"taxable"`
}

type addressRequest struct {
	Line1      string `json:"line1" validate:"max=200"`
	Line2      string `json:"line2" validate:"max=200"`
	City       string `json:"city" validate:"max=100"`
	State      string `json:"state" validate:"max=100"`
	PostalCode string `json:"postal_code" validate:"max=20"`
	Country    string `json:"country" validate:"required,len=2"`
}

type shippingRateRequest struct {
	RateID string `json:"rate_id" validate:"required"`
}

type itemResponse struct {
	Cart *domain.Cart     `json:"cart"`
	Item *domain.CartItem `json:"item"`
}

type checkResponse struct {
	Problems []service.ItemProblem `json:"problems"`
}

// =============================================================================
// Reads
// =============================================================================

// Get handles GET /cart
func (h *CartHandler) Get(c echo.Context) error {
	cart, err := h.cartService.GetCart(c.Request().Context(), h.readToken(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cart)
}

// Totals handles GET /cart/totals
func (h *CartHandler) Totals(c echo.Context) error {
	totals, err := h.cartService.GetTotals(c.Request().Context(), h.readToken(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, totals)
}

// Check handles GET /cart/check
func (h *CartHandler) Check(c echo.Context) error {
	problems, err := h.cartService.CheckItems(c.Request().Context(), h.readToken(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, checkResponse{Problems: problems})
}

// =============================================================================
// Item mutations
// =============================================================================

// AddItem handles POST /cart/items
func (h *CartHandler) AddItem(c echo.Context) error {
	var req addItemRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	quantity := int64(1)
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	cart, item, err := h.cartService.AddItem(c.Request().Context(), h.mutationToken(c), service.AddItemParams{
		ProductID:   req.ID,
		SKU:         req.SKU,
		VariationID: req.VariationID,
		Variation:   req.Variation,
		ExtraData:   req.ExtraData,
		Quantity:    quantity,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, itemResponse{Cart: cart, Item: item})
}

// UpdateItem handles PATCH /cart/items/:key
func (h *CartHandler) UpdateItem(c echo.Context) error {
	var req updateItemRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	cart, item, err := h.cartService.UpdateItem(c.Request().Context(), h.mutationToken(c), c.Param("key"), *req.Quantity)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, itemResponse{Cart: cart, Item: item})
}

// RemoveItem handles DELETE /cart/items/:key
func (h *CartHandler) RemoveItem(c echo.Context) error {
	cart, item, err := h.cartService.RemoveItem(c.Request().Context(), h.mutationToken(c), c.Param("key"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, itemResponse{Cart: cart, Item: item})
}

// RestoreItem handles POST /cart/items/:key/restore
func (h *CartHandler) RestoreItem(c echo.Context) error {
	cart, item, err := h.cartService.RestoreItem(c.Request().Context(), h.mutationToken(c), c.Param("key"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, itemResponse{Cart: cart, Item: item})
}

// SetPrice handles PUT /cart/items/:key/price
func (h *CartHandler) SetPrice(c echo.Context) error {
	if !h.overrideAllowed(c) {
		return domain.Forbidden("cart.set_price_override", "Price overrides are not permitted")
	}

	var req priceRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	cart, err := h.cartService.SetPriceOverride(c.Request().Context(), h.mutationToken(c), c.Param("key"), *req.Price)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cart)
}

// Clear handles DELETE /cart
func (h *CartHandler) Clear(c echo.Context) error {
	keepRemoved, _ := strconv.ParseBool(c.QueryParam("keep_removed"))

	cart, err := h.cartService.Clear(c.Request().Context(), h.mutationToken(c), keepRemoved)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cart)
}

// =============================================================================
// Coupons, fees and shipping
// =============================================================================

// ApplyCoupon handles POST /cart/coupons
func (h *CartHandler) ApplyCoupon(c echo.Context) error {
	var req couponRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	cart, err := h.cartService.ApplyCoupon(c.Request().Context(), h.mutationToken(c), req.Code)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cart)
}

// RemoveCoupon handles DELETE /cart/coupons/:code
func (h *CartHandler) RemoveCoupon(c echo.Context) error {
	cart, err := h.cartService.RemoveCoupon(c.Request().Context(), h.mutationToken(c), c.Param("code"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cart)
}

// AddFee handles POST /cart/fees
func (h *CartHandler) AddFee(c echo.Context) error {
	var req feeRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	cart, err := h.cartService.AddFee(c.Request().Context(), h.mutationToken(c), req.Name, req.Amount, req.Taxable)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cart)
}

// RemoveFee handles DELETE /cart/fees/:name
func (h *CartHandler) RemoveFee(c echo.Context) error {
	cart, err := h.cartService.RemoveFee(c.Request().Context(), h.mutationToken(c), c.Param("name"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cart)
}

// SetShippingAddress handles PUT /cart/shipping-address
func (h *CartHandler) SetShippingAddress(c echo.Context) error {
	var req addressRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	cart, err := h.cartService.SetShippingAddress(c.Request().Context(), h.mutationToken(c), domain.Address{
		Line1:      req.Line1,
		Line2:      req.Line2,
		City:       req.City,
		State:      req.State,
		PostalCode: req.PostalCode,
		Country:    req.Country,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cart)
}

// SelectShippingRate handles PUT /cart/shipping-rate
func (h *CartHandler) SelectShippingRate(c echo.Context) error {
	var req shippingRateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	cart, err := h.cartService.SelectShippingRate(c.Request().Context(), h.mutationToken(c), req.RateID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cart)
}

// =============================================================================
// Helpers
// =============================================================================

// readToken returns the caller's cart key. Reads never mint one: an unknown
// or missing key reads as an empty cart.
func (h *CartHandler) readToken(c echo.Context) string {
	if token := c.Request().Header.Get(CartTokenHeader); token != "" {
		return token
	}
	if h.cookies != nil {
		return cookie.Get(c.Request(), cookie.CartCookieName)
	}
	return ""
}

// mutationToken returns the caller's cart key, minting one when absent, and
// echoes it back in the response.
func (h *CartHandler) mutationToken(c echo.Context) string {
	token := h.readToken(c)
	if token == "" {
		token = uuid.New().String()
	}
	c.Response().Header().Set(CartTokenHeader, token)
	if h.cookies != nil {
		h.cookies.SetCart(c.Response(), token)
	}
	return token
}

func (h *CartHandler) overrideAllowed(c echo.Context) bool {
	if h.overrideSecret == "" {
		return false
	}
	given := c.Request().Header.Get(PriceOverrideSecretHeader)
	return subtle.ConstantTimeCompare([]byte(given), []byte(h.overrideSecret)) == 1
}

func bindAndValidate(c echo.Context, req any) error {
	if err := (&echo.DefaultBinder{}).BindBody(c, req); err != nil {
		return domain.Invalid("request.bind", "Request body is not valid JSON")
	}
	return c.Validate(req)
}
