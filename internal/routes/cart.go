package routes

import (
	"net/http"

	"github.com/dukerupert/freyja-cart/internal/handler"
	"github.com/labstack/echo/v4"
)

// CartDeps contains dependencies for the cart API and ops routes
type CartDeps struct {
	CartHandler   *handler.CartHandler
	HealthHandler *handler.HealthHandler

	// MetricsHandler serves the Prometheus exposition. Nil leaves /metrics
	// unrouted.
	MetricsHandler http.Handler
}

// RegisterCartRoutes registers the cart API under /cart.
// Callers identify their cart with the Cart-Token header; there is no
// authentication middleware.
func RegisterCartRoutes(e *echo.Echo, deps CartDeps) {
	deps.CartHandler.Register(e.Group("/cart"))
}

// RegisterOpsRoutes registers health and metrics endpoints.
func RegisterOpsRoutes(e *echo.Echo, deps CartDeps) {
	if deps.HealthHandler != nil {
		e.GET("/healthz", deps.HealthHandler.Health)
	}
	if deps.MetricsHandler != nil {
		e.GET("/metrics", echo.WrapHandler(deps.MetricsHandler))
	}
}
