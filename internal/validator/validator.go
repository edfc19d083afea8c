package validator

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// New creates a validator instance with custom validations registered.
// The same instance is shared by the application and its tests.
func New() *validator.Validate {
	v := validator.New()

	// "notblank" rejects whitespace-only strings. Voucher numbers, template
	// names and void reasons must carry meaningful content.
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		str, ok := fl.Field().Interface().(string)
		if !ok {
			return true // Not a string, let other validators handle it
		}
		return strings.TrimSpace(str) != ""
	})

	return v
}
