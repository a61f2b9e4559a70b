package serverutils

import (
	"github.com/gofiber/fiber/v2"

	"pdf-qa-be/internal/pkg/logger"
	"pdf-qa-be/internal/ratelimit"
)

// RateLimitMiddleware applies admission control to an HTTP route, keyed by
// the client's network origin. The same limiter backing store is consulted
// by the websocket path.
func RateLimitMiddleware(limiter ratelimit.Limiter, log logger.ILogger) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		ok, retryAfter, err := limiter.Allow(ctx.Context(), ctx.IP(), 1)
		if err != nil {
			// Admission store unreachable: fail open rather than refuse all
			// traffic, but say so in the logs.
			log.Error("RateLimit", "Rate limiter unavailable", map[string]interface{}{
				"path":  ctx.Path(),
				"error": err.Error(),
			})
			return ctx.Next()
		}
		if !ok {
			return NewRateLimitError(retryAfter)
		}
		return ctx.Next()
	}
}
