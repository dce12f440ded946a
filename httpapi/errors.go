package httpapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-accounts"
	goerrors "github.com/goliatone/go-errors"
)

const TextCodeValidationFailed = "VALIDATION_FAILED"

func statusFor(richErr *goerrors.Error) int {
	if richErr.Code != 0 {
		return richErr.Code
	}
	switch richErr.Category {
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		return fiber.StatusBadRequest
	case goerrors.CategoryConflict:
		return fiber.StatusConflict
	case goerrors.CategoryNotFound:
		return fiber.StatusNotFound
	case goerrors.CategoryAuth:
		return fiber.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return fiber.StatusForbidden
	case goerrors.CategoryOperation:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorResponse writes err as {"error", "code"} using the HTTP status the
// error carries. Internal failures are logged and their message hidden.
func ErrorResponse(logger accounts.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		if fe, ok := err.(*fiber.Error); ok {
			return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
		}

		var richErr *goerrors.Error
		if !goerrors.As(err, &richErr) {
			richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "internal server error")
		}

		status := statusFor(richErr)

		message := richErr.Message
		if status >= fiber.StatusInternalServerError {
			logger.Error("request failed",
				"method", c.Method(),
				"path", c.Path(),
				"error", err,
			)
			message = "internal server error"
		}

		body := fiber.Map{"error": message}
		if richErr.TextCode != "" {
			body["code"] = richErr.TextCode
		}
		return c.Status(status).JSON(body)
	}
}

func validationFailed(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error":      "validation failed",
		"code":       TextCodeValidationFailed,
		"validation": FormatValidationErrorToMap(err),
	})
}
