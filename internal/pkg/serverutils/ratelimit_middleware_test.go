package serverutils

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-qa-be/internal/pkg/logger"
)

type stubLimiter struct {
	deny       bool
	retryAfter time.Duration
	err        error
}

func (l *stubLimiter) Allow(ctx context.Context, identity string, cost int) (bool, time.Duration, error) {
	if l.err != nil {
		return false, 0, l.err
	}
	if l.deny {
		return false, l.retryAfter, nil
	}
	return true, 0, nil
}

func newLimitedApp(l *stubLimiter) *fiber.App {
	app := fiber.New()
	app.Use(ErrorHandlerMiddleware())
	app.Post("/upload", RateLimitMiddleware(l, logger.NewNopLogger()), func(ctx *fiber.Ctx) error {
		return ctx.SendStatus(fiber.StatusCreated)
	})
	return app
}

func TestRateLimitMiddlewareAdmits(t *testing.T) {
	app := newLimitedApp(&stubLimiter{})

	resp, err := app.Test(httptest.NewRequest("POST", "/upload", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
}

func TestRateLimitMiddlewareRefuses(t *testing.T) {
	app := newLimitedApp(&stubLimiter{deny: true, retryAfter: 15 * time.Second})

	resp, err := app.Test(httptest.NewRequest("POST", "/upload", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "15", resp.Header.Get("Retry-After"))
}

func TestRateLimitMiddlewareFailsOpen(t *testing.T) {
	app := newLimitedApp(&stubLimiter{err: errors.New("redis unreachable")})

	resp, err := app.Test(httptest.NewRequest("POST", "/upload", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
}
