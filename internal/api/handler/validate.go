package handler

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/facecam/internal/domain"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// required accepts "   "; labels and filenames must carry something printable
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// parseBody decodes a JSON body into dst. An empty body leaves dst zeroed so
// that field validation reports the missing values.
func parseBody(c *fiber.Ctx, dst interface{}) error {
	body := c.Body()
	if len(body) == 0 {
		return nil
	}

	var err error
	if len(c.Request().Header.ContentType()) > 0 {
		err = c.BodyParser(dst)
	} else {
		err = c.App().Config().JSONDecoder(body, dst)
	}
	if err != nil {
		return domain.ErrInvalidRequest.WithError(err)
	}
	return nil
}

// validateRequest runs struct validation and maps the first failing field to
// its client-facing error. Fields without a mapping get fallback.
func validateRequest(req interface{}, fallback *domain.AppError, byField map[string]*domain.AppError) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		if mapped, ok := byField[verrs[0].Field()]; ok {
			return mapped.WithError(err)
		}
	}
	return fallback.WithError(err)
}
