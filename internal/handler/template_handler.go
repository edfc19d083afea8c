package handler

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/fairyhunter13/voucher-ledger-system/internal/model"
)

// TemplateServiceInterface defines the template operations exposed over HTTP.
type TemplateServiceInterface interface {
	CreateTemplate(ctx context.Context, req *model.CreateTemplateRequest) (*model.Template, error)
	GetTemplate(ctx context.Context, id uuid.UUID) (*model.Template, error)
}

// TemplateHandler handles HTTP requests for voucher templates.
type TemplateHandler struct {
	service   TemplateServiceInterface
	validator *validator.Validate
}

// NewTemplateHandler creates a new TemplateHandler.
func NewTemplateHandler(svc TemplateServiceInterface, v *validator.Validate) *TemplateHandler {
	return &TemplateHandler{service: svc, validator: v}
}

// Create handles POST /api/templates.
func (h *TemplateHandler) Create(c *fiber.Ctx) error {
	var req model.CreateTemplateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	t, err := h.service.CreateTemplate(c.Context(), &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(t)
}

// Get handles GET /api/templates/:id.
func (h *TemplateHandler) Get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: id is not a valid id"})
	}

	t, err := h.service.GetTemplate(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(t)
}
