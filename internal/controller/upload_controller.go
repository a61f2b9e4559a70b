package controller

import (
	"github.com/gofiber/fiber/v2"

	"pdf-qa-be/internal/pkg/logger"
	"pdf-qa-be/internal/pkg/serverutils"
	"pdf-qa-be/internal/ratelimit"
	"pdf-qa-be/internal/service"
)

type IUploadController interface {
	RegisterRoutes(r fiber.Router)
	Create(ctx *fiber.Ctx) error
	Status(ctx *fiber.Ctx) error
}

type uploadController struct {
	uploadService service.IUploadService
	limiter       ratelimit.Limiter
	logger        logger.ILogger
}

func NewUploadController(uploadService service.IUploadService, limiter ratelimit.Limiter, log logger.ILogger) IUploadController {
	return &uploadController{
		uploadService: uploadService,
		limiter:       limiter,
		logger:        log,
	}
}

func (c *uploadController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/upload/v1")
	h.Post("", serverutils.RateLimitMiddleware(c.limiter, c.logger), c.Create)
	h.Get(":session_id/status", c.Status)
}

func (c *uploadController) Create(ctx *fiber.Ctx) error {
	form, err := ctx.MultipartForm()
	if err != nil {
		return serverutils.NewValidationError("Expected multipart form upload", nil)
	}

	files := form.File["files"]
	res, err := c.uploadService.CreateSession(ctx.Context(), files)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success create session", res))
}

func (c *uploadController) Status(ctx *fiber.Ctx) error {
	sessionId := ctx.Params("session_id")

	res, err := c.uploadService.GetStatus(ctx.Context(), sessionId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success show session status", res))
}
