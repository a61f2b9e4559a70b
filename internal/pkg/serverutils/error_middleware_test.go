package serverutils

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(handler fiber.Handler) *fiber.App {
	app := fiber.New()
	app.Use(ErrorHandlerMiddleware())
	app.Get("/test", handler)
	return app
}

func doRequest(t *testing.T, app *fiber.App) (int, map[string]interface{}, http.Header) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", "/test", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &body))
	return resp.StatusCode, body, resp.Header
}

func TestErrorHandlerValidationError(t *testing.T) {
	app := newTestApp(func(ctx *fiber.Ctx) error {
		return NewValidationError("No files were successfully uploaded", []FileError{
			{Filename: "bad.txt", Error: "Invalid file type"},
		})
	})

	status, body, _ := doRequest(t, app)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "No files were successfully uploaded", body["message"])
	require.Len(t, body["errors"], 1)
}

func TestErrorHandlerNotFoundError(t *testing.T) {
	app := newTestApp(func(ctx *fiber.Ctx) error {
		return NewNotFoundError("session", "abc-123")
	})

	status, body, _ := doRequest(t, app)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "session not found: abc-123", body["message"])
}

func TestErrorHandlerRateLimitError(t *testing.T) {
	app := newTestApp(func(ctx *fiber.Ctx) error {
		return NewRateLimitError(42 * time.Second)
	})

	status, body, headers := doRequest(t, app)
	assert.Equal(t, fiber.StatusTooManyRequests, status)
	assert.Equal(t, "Too many requests", body["message"])
	assert.Equal(t, float64(42), body["retry_after"])
	assert.Equal(t, "42", headers.Get("Retry-After"))
}

func TestErrorHandlerUnknownError(t *testing.T) {
	app := newTestApp(func(ctx *fiber.Ctx) error {
		return errors.New("database exploded")
	})

	status, body, _ := doRequest(t, app)
	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Equal(t, "An internal server error occurred", body["message"])
	assert.NotContains(t, body["message"], "exploded", "internal details must not leak")
}

func TestErrorHandlerPassesThroughSuccess(t *testing.T) {
	app := newTestApp(func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusCreated).JSON(SuccessResponse("Success create session", fiber.Map{"session_id": "abc"}))
	})

	status, body, _ := doRequest(t, app)
	assert.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, "Success create session", body["message"])
}
