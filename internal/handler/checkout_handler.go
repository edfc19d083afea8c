package handler

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/voucher-ledger-system/internal/model"
)

// CheckoutServiceInterface defines the coupon bridge operations exposed to
// the checkout system.
type CheckoutServiceInterface interface {
	CouponForCode(ctx context.Context, code, orderCurrency string, orderTotal decimal.Decimal) (*model.CouponProjection, error)
	OnOrderStatusChanged(ctx context.Context, orderID string, req *model.OrderStatusRequest) error
}

// CheckoutHandler handles HTTP requests from the checkout/coupon system.
type CheckoutHandler struct {
	service   CheckoutServiceInterface
	validator *validator.Validate
}

// NewCheckoutHandler creates a new CheckoutHandler.
func NewCheckoutHandler(svc CheckoutServiceInterface, v *validator.Validate) *CheckoutHandler {
	return &CheckoutHandler{service: svc, validator: v}
}

// GetCoupon handles GET /api/checkout/coupons/:code. The order currency and
// total come as query parameters so the projection can cap a multi-purpose
// discount at the order total.
func (h *CheckoutHandler) GetCoupon(c *fiber.Ctx) error {
	code := c.Params("code")
	if code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: code is required"})
	}

	orderTotal := decimal.Zero
	if raw := c.Query("total"); raw != "" {
		var err error
		orderTotal, err = decimal.NewFromString(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: total is invalid"})
		}
	}

	coupon, err := h.service.CouponForCode(c.Context(), code, c.Query("currency"), orderTotal)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(coupon)
}

// OrderStatus handles POST /api/orders/:id/status, the order system's
// status-change webhook.
func (h *CheckoutHandler) OrderStatus(c *fiber.Ctx) error {
	orderID := c.Params("id")
	if orderID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: order id is required"})
	}

	var req model.OrderStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	if err := h.service.OnOrderStatusChanged(c.Context(), orderID, &req); err != nil {
		return respondError(c, err)
	}

	log.Info().
		Str("order_id", orderID).
		Str("status", req.Status).
		Int("lines", len(req.Lines)).
		Msg("order status processed")
	return c.Status(fiber.StatusOK).Send(nil)
}
