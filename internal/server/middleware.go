package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// slowRequestThreshold is the duration above which requests are logged at WARN level.
const slowRequestThreshold = 1 * time.Second

// requestLogger returns middleware that logs all requests with timing,
// tagged with the ID set by the RequestID middleware. Slow requests and
// server errors are raised to WARN and ERROR.
func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			duration := time.Since(start)
			status := c.Response().Status

			attrs := []any{
				"method", c.Request().Method,
				"uri", c.Request().RequestURI,
				"status", status,
				"duration_ms", duration.Milliseconds(),
				"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
			}

			switch {
			case status >= http.StatusInternalServerError:
				logger.Error("request failed", attrs...)
			case duration > slowRequestThreshold:
				logger.Warn("slow request", attrs...)
			default:
				logger.Info("request completed", attrs...)
			}

			return nil
		}
	}
}
