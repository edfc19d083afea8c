package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/voucher-ledger-system/internal/model"
	"github.com/fairyhunter13/voucher-ledger-system/internal/service"
)

// validationErrors are the caller-correctable ledger errors. Their messages
// are part of the observable contract and are returned verbatim.
var validationErrors = []error{
	model.ErrInvalidAmount,
	model.ErrNoRemainingValue,
	model.ErrAmountExceedsRemaining,
	model.ErrQuantityExceedsRemaining,
	model.ErrAmountNotMultipleOfUnitPrice,
	model.ErrCurrencyMismatch,
	model.ErrNotRedeemable,
	model.ErrInvalidTransition,
}

// respondError maps service and ledger errors onto HTTP responses. Typed
// results never reach a generic handler: each gets its specific message.
func respondError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrVoucherNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "voucher not found"})
	case errors.Is(err, service.ErrTemplateNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "template not found"})
	case errors.Is(err, service.ErrVoucherExists):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "voucher already exists"})
	case errors.Is(err, service.ErrTemplateExists):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "template already exists"})
	case errors.Is(err, service.ErrVersionConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, model.ErrNotEditable):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": model.ErrNotEditable.Error()})
	case errors.Is(err, service.ErrInvalidRequest):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	case errors.Is(err, service.ErrDependencyUnavailable):
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	}

	for _, sentinel := range validationErrors {
		if errors.Is(err, sentinel) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": sentinel.Error()})
		}
	}

	log.Error().
		Err(err).
		Str("request_id", c.GetRespHeader("X-Request-ID")).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Msg("request failed")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
}

// formatValidationError converts validator errors into request-level messages.
func formatValidationError(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			field := fe.Field()
			switch fe.Tag() {
			case "required":
				return "invalid request: " + field + " is required"
			case "notblank":
				return "invalid request: " + field + " cannot be blank"
			case "max":
				return "invalid request: " + field + " exceeds maximum length"
			case "gte", "gt":
				return "invalid request: " + field + " is out of range"
			case "oneof":
				return "invalid request: " + field + " has an unsupported value"
			case "uuid4":
				return "invalid request: " + field + " is not a valid id"
			case "len":
				return "invalid request: " + field + " has an invalid length"
			default:
				return "invalid request: " + field + " is invalid"
			}
		}
	}
	return "invalid request"
}
