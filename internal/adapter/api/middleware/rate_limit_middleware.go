package middleware

import (
	"math"
	"strconv"

	"github.com/labstack/echo/v4"

	"nearbuy/internal/infrastructure/ratelimit"
	"nearbuy/pkg/errors"
	"nearbuy/pkg/logger"
	"nearbuy/pkg/response"
)

// RateLimit admits requests per client address against the limiter's bucket for action.
func RateLimit(limiter *ratelimit.RateLimiter, action string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()

			allowed, retryAfter := limiter.Allow(ip, action)
			if !allowed {
				seconds := int(math.Ceil(retryAfter.Seconds()))
				if seconds < 1 {
					seconds = 1
				}
				logger.Warn("Rate limit hit for %s on %s", ip, action)
				c.Response().Header().Set("Retry-After", strconv.Itoa(seconds))
				return response.Error(c, errors.TooManyRequests("Rate limit exceeded").
					WithDetails(map[string]int{"retry_after": seconds}))
			}

			return next(c)
		}
	}
}
