package handler

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/voucher-ledger-system/internal/model"
	"github.com/fairyhunter13/voucher-ledger-system/internal/service"
)

// VoucherServiceInterface defines the voucher lifecycle operations exposed
// over HTTP.
type VoucherServiceInterface interface {
	Issue(ctx context.Context, req *model.IssueVoucherRequest) (*model.Voucher, error)
	Get(ctx context.Context, id uuid.UUID) (*model.VoucherSnapshot, error)
	Redeem(ctx context.Context, id uuid.UUID, req *model.RedeemVoucherRequest, rc service.RenderContext) (*model.RedemptionResponse, error)
	SetRedemptions(ctx context.Context, id uuid.UUID, req *model.SetRedemptionsRequest) (*model.VoucherSnapshot, error)
	Void(ctx context.Context, id uuid.UUID, reason, userID string) (*model.VoucherSnapshot, error)
	Restore(ctx context.Context, id uuid.UUID) (*model.VoucherSnapshot, error)
	Activate(ctx context.Context, id uuid.UUID) (*model.VoucherSnapshot, error)
	RecalculateTax(ctx context.Context, id uuid.UUID) (*model.VoucherSnapshot, error)
}

// VoucherHandler handles HTTP requests for voucher operations.
type VoucherHandler struct {
	service   VoucherServiceInterface
	validator *validator.Validate
}

// NewVoucherHandler creates a new VoucherHandler.
func NewVoucherHandler(svc VoucherServiceInterface, v *validator.Validate) *VoucherHandler {
	return &VoucherHandler{service: svc, validator: v}
}

func parseVoucherID(c *fiber.Ctx) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// Issue handles POST /api/vouchers.
func (h *VoucherHandler) Issue(c *fiber.Ctx) error {
	var req model.IssueVoucherRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	v, err := h.service.Issue(c.Context(), &req)
	if err != nil {
		return respondError(c, err)
	}

	log.Info().
		Str("voucher_number", v.Number).
		Str("template_id", v.TemplateID.String()).
		Str("face_value", v.FaceValue.String()).
		Msg("voucher issued")
	return c.Status(fiber.StatusCreated).JSON(v.Snapshot())
}

// Get handles GET /api/vouchers/:id.
func (h *VoucherHandler) Get(c *fiber.Ctx) error {
	id, ok := parseVoucherID(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: id is not a valid id"})
	}
	snap, err := h.service.Get(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(snap)
}

// Redeem handles POST /api/vouchers/:id/redeem. The render context comes
// from the caller (context=email for redemption confirmations sent by mail).
func (h *VoucherHandler) Redeem(c *fiber.Ctx) error {
	id, ok := parseVoucherID(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: id is not a valid id"})
	}

	var req model.RedeemVoucherRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	rc := service.RenderContext{IsEmail: c.Query("context") == "email"}
	resp, err := h.service.Redeem(c.Context(), id, &req, rc)
	if err != nil {
		return respondError(c, err)
	}

	log.Info().
		Str("voucher_id", id.String()).
		Str("remaining_value", resp.RemainingValue.String()).
		Msg("voucher redeemed")
	return c.JSON(resp)
}

// SetRedemptions handles PUT /api/vouchers/:id/redemptions, the whole-ledger
// replacement surface used for corrections.
func (h *VoucherHandler) SetRedemptions(c *fiber.Ctx) error {
	id, ok := parseVoucherID(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: id is not a valid id"})
	}

	var req model.SetRedemptionsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	snap, err := h.service.SetRedemptions(c.Context(), id, &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(snap)
}

// Void handles POST /api/vouchers/:id/void.
func (h *VoucherHandler) Void(c *fiber.Ctx) error {
	id, ok := parseVoucherID(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: id is not a valid id"})
	}

	var req model.VoidVoucherRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	snap, err := h.service.Void(c.Context(), id, req.Reason, req.UserID)
	if err != nil {
		return respondError(c, err)
	}

	log.Info().
		Str("voucher_id", id.String()).
		Str("user_id", req.UserID).
		Msg("voucher voided")
	return c.JSON(snap)
}

// Restore handles POST /api/vouchers/:id/restore.
func (h *VoucherHandler) Restore(c *fiber.Ctx) error {
	id, ok := parseVoucherID(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: id is not a valid id"})
	}
	snap, err := h.service.Restore(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(snap)
}

// Activate handles POST /api/vouchers/:id/activate.
func (h *VoucherHandler) Activate(c *fiber.Ctx) error {
	id, ok := parseVoucherID(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: id is not a valid id"})
	}
	snap, err := h.service.Activate(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(snap)
}

// RecalculateTax handles POST /api/vouchers/:id/recalculate-tax.
func (h *VoucherHandler) RecalculateTax(c *fiber.Ctx) error {
	id, ok := parseVoucherID(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: id is not a valid id"})
	}
	snap, err := h.service.RecalculateTax(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(snap)
}
