// Package router builds the echo instance the cart API is served from.
package router

import (
	"time"

	"github.com/dukerupert/freyja-cart/internal/handler"
	"github.com/dukerupert/freyja-cart/internal/middleware"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Config holds the settings for the global middleware chain.
type Config struct {
	Logger  zerolog.Logger
	Metrics *middleware.Metrics // nil disables HTTP metrics

	AllowedOrigins []string // empty disables CORS
	MaxBodyBytes   int64
	Timeout        time.Duration
}

// New creates an echo instance with the error handler, request validator
// and global middleware installed.
func New(cfg Config) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.HTTPErrorHandler(cfg.Logger)
	e.Validator = handler.NewRequestValidator()

	e.Use(Chain(cfg)...)
	return e
}
