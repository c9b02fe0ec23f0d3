package echoapi

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/grupka/grupka/core"
)

var errRateLimited = core.NewError(core.CodeRateLimited, "too many requests")

// rateLimiter throttles sensitive endpoints per client IP.
func rateLimiter(limit float64, burst int) echo.MiddlewareFunc {
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(limit),
		Burst:     burst,
		ExpiresIn: 3 * time.Minute,
	})
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(ctx echo.Context) (string, error) {
			return ctx.RealIP(), nil
		},
		ErrorHandler: func(ctx echo.Context, err error) error {
			return errRateLimited
		},
		DenyHandler: func(ctx echo.Context, identifier string, err error) error {
			return errRateLimited
		},
	})
}

// requestLogger logs one line per request through the app logger.
func requestLogger(logger core.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogValuesFunc: func(ctx echo.Context, v middleware.RequestLoggerValues) error {
			fields := map[string]interface{}{
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency_ms": v.Latency.Milliseconds(),
				"remote_ip":  v.RemoteIP,
			}
			if usr := contextUser(ctx); usr.ID != "" {
				logger.Info("request", fields, usr)
				return nil
			}
			logger.Info("request", fields)
			return nil
		},
	})
}
