package serverutils

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware translates domain errors into HTTP responses so
// controllers can just return them.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var validationErr *ValidationError
		if errors.As(err, &validationErr) {
			return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": validationErr.Message,
				"errors":  validationErr.Files,
			})
		}

		var notFoundErr *NotFoundError
		if errors.As(err, &notFoundErr) {
			return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": notFoundErr.Error(),
			})
		}

		var rateLimitErr *RateLimitError
		if errors.As(err, &rateLimitErr) {
			ctx.Set("Retry-After", fmt.Sprintf("%d", int(rateLimitErr.RetryAfter.Seconds())))
			return ctx.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"message":     "Too many requests",
				"retry_after": int(rateLimitErr.RetryAfter.Seconds()),
			})
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return ctx.Status(fiberErr.Code).JSON(fiber.Map{"message": fiberErr.Message})
		}

		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "An internal server error occurred",
		})
	}
}
