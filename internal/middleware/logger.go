package middleware

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// RequestLogger injects a request-scoped logger into the context and logs
// one line per request. It should be placed after RequestID.
func RequestLogger(baseLogger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			r := c.Request()

			// Build logger with request context
			lc := baseLogger.With().
				Str("method", r.Method).
				Str("path", r.URL.Path)
			if requestID := GetRequestID(r.Context()); requestID != "" {
				lc = lc.Str("request_id", requestID)
			}
			requestLogger := lc.Logger()
			c.SetRequest(r.WithContext(requestLogger.WithContext(r.Context())))

			if err := next(c); err != nil {
				// Let the error handler write the response so the status is final.
				c.Error(err)
			}

			status := c.Response().Status
			event := requestLogger.Info()
			if status >= 500 {
				event = requestLogger.Error()
			}
			event.
				Str("route", c.Path()).
				Int("status", status).
				Dur("latency", time.Since(start)).
				Int64("bytes", c.Response().Size).
				Msg("request")
			return nil
		}
	}
}

// GetLogger retrieves the request-scoped logger from the context.
// If no logger is found, returns the provided fallback logger, or a
// disabled logger when none is given.
func GetLogger(ctx context.Context, fallback ...zerolog.Logger) *zerolog.Logger {
	if logger := zerolog.Ctx(ctx); logger.GetLevel() != zerolog.Disabled {
		return logger
	}
	if len(fallback) > 0 {
		return &fallback[0]
	}
	return zerolog.Ctx(ctx)
}
