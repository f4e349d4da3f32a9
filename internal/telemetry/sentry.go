package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dukerupert/freyja-cart/internal/domain"
	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// SentryConfig holds configuration for Sentry error tracking
type SentryConfig struct {
	// DSN is the Sentry Data Source Name (required if Enabled is true)
	DSN string

	// Enabled controls whether Sentry is active
	Enabled bool

	// Environment identifies the deployment environment (dev, prod)
	Environment string

	// Release is the application version/release identifier
	Release string

	// SampleRate controls the percentage of errors to capture (0.0 to 1.0)
	// Default: 1.0 (capture all errors)
	SampleRate float64

	// Debug enables Sentry SDK debug logging
	Debug bool
}

// InitSentry initializes the global Sentry client.
// Returns a cleanup function that should be called on application shutdown
func InitSentry(cfg SentryConfig, logger zerolog.Logger) (func(), error) {
	if !cfg.Enabled {
		logger.Info().Msg("Sentry disabled (SENTRY_ENABLED=false)")
		return func() {}, nil
	}

	if cfg.DSN == "" {
		logger.Warn().Msg("Sentry DSN not configured, disabling error tracking")
		return func() {}, nil
	}

	sampleRate := cfg.SampleRate
	if sampleRate == 0 {
		sampleRate = 1.0
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		Release:     cfg.Release,
		SampleRate:  sampleRate,
		Debug:       cfg.Debug,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Sentry: %w", err)
	}

	logger.Info().
		Str("environment", cfg.Environment).
		Str("release", cfg.Release).
		Float64("sample_rate", sampleRate).
		Msg("Sentry initialized")

	return func() {
		sentry.Flush(2 * time.Second)
	}, nil
}

// Reporter sends backend failures to Sentry. It implements
// service.ErrorReporter and is safe to use when Sentry is disabled.
type Reporter struct {
	hub *sentry.Hub
}

// NewReporter creates a reporter. A nil hub uses the hub on the request
// context, then the global hub.
func NewReporter(hub *sentry.Hub) *Reporter {
	return &Reporter{hub: hub}
}

// CaptureError captures err with tags. The cart error kind, when present,
// is added as the error_kind tag.
func (r *Reporter) CaptureError(ctx context.Context, err error, tags map[string]string) {
	if err == nil {
		return
	}

	hub := r.hub
	if hub == nil {
		hub = sentry.GetHubFromContext(ctx)
	}
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	if hub.Client() == nil {
		return
	}

	hub.WithScope(func(scope *sentry.Scope) {
		for key, value := range tags {
			scope.SetTag(key, value)
		}
		if kind := domain.ErrorKind(err); kind != "" {
			scope.SetTag("error_kind", string(kind))
		}
		hub.CaptureException(err)
	})
}

// RecoverWithSentry reports a panic to Sentry and re-panics.
// Use: defer telemetry.RecoverWithSentry()
func RecoverWithSentry() {
	if r := recover(); r != nil {
		if sentry.CurrentHub().Client() != nil {
			sentry.CurrentHub().Recover(r)
			sentry.Flush(2 * time.Second)
		}
		panic(r)
	}
}

// SentryMiddleware puts a per-request hub carrying the request on the
// context and turns handler panics into 500 responses, captured when Sentry
// is enabled.
func SentryMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			r := c.Request()
			ctx := r.Context()

			var hub *sentry.Hub
			if sentry.CurrentHub().Client() != nil {
				hub = sentry.GetHubFromContext(ctx)
				if hub == nil {
					hub = sentry.CurrentHub().Clone()
				}
				hub.Scope().SetRequest(r)
				ctx = sentry.SetHubOnContext(ctx, hub)
				c.SetRequest(r.WithContext(ctx))
			}

			defer func() {
				if rec := recover(); rec != nil {
					if hub != nil {
						hub.RecoverWithContext(ctx, rec)
					}
					err = echo.NewHTTPError(http.StatusInternalServerError, "Internal Server Error")
				}
			}()

			return next(c)
		}
	}
}
