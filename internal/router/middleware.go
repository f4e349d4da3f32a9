package router

import (
	"net/http"

	"github.com/dukerupert/freyja-cart/internal/handler"
	"github.com/dukerupert/freyja-cart/internal/middleware"
	"github.com/dukerupert/freyja-cart/internal/telemetry"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// Chain returns the global middleware in execution order. Panic recovery
// sits inside the request logger so recovered panics are logged as 500s.
func Chain(cfg Config) []echo.MiddlewareFunc {
	chain := []echo.MiddlewareFunc{
		middleware.RequestID(),
		middleware.RequestLogger(cfg.Logger),
	}
	if cfg.Metrics != nil {
		chain = append(chain, cfg.Metrics.Middleware())
	}
	chain = append(chain, telemetry.SentryMiddleware())

	if len(cfg.AllowedOrigins) > 0 {
		chain = append(chain, CORS(cfg.AllowedOrigins))
	}

	if cfg.MaxBodyBytes > 0 {
		chain = append(chain, middleware.MaxBodySize(cfg.MaxBodyBytes))
	} else {
		chain = append(chain, middleware.MaxBodySize())
	}
	if cfg.Timeout > 0 {
		chain = append(chain, middleware.Timeout(cfg.Timeout))
	} else {
		chain = append(chain, middleware.Timeout())
	}
	return chain
}

// CORS allows browser clients on the given origins to send and read the
// cart token.
func CORS(allowedOrigins []string) echo.MiddlewareFunc {
	return echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: allowedOrigins,
		AllowMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowHeaders: []string{
			echo.HeaderContentType,
			handler.CartTokenHeader,
			handler.PriceOverrideSecretHeader,
			echo.HeaderXRequestID,
		},
		ExposeHeaders: []string{handler.CartTokenHeader, echo.HeaderXRequestID},
	})
}
