package serverutils

import (
	"fmt"
	"strings"

	"sheetpulse/internal/apperr"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var structValidator = validator.New()

// BindAndValidate parses the request body into dst and runs struct-tag
// validation over it, collapsing either failure into one KindValidation
// error so handlers have a single error path for a malformed request.
func BindAndValidate(c *fiber.Ctx, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		return apperr.New(apperr.KindValidation, "invalid request body")
	}
	if err := structValidator.Struct(dst); err != nil {
		return apperr.New(apperr.KindValidation, validationMessage(err))
	}
	return nil
}

func validationMessage(err error) string {
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		parts = append(parts, fmt.Sprintf("%s failed %q validation", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
