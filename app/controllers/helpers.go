package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/yolotrainer/portal/internal/pkg/validation"
)

const (
	msgInvalidBody   = "Invalid request body"
	msgValidation    = "Validation failed"
	msgInternalError = "Something went wrong. Please try again later."
	msgUnauthorized  = "Unauthorized"
)

func errorJSON(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"error": msg})
}

// validationJSON reports err as a 400 with field messages when it is a
// validation error. ok is false for any other error.
func validationJSON(c *fiber.Ctx, err error) (bool, error) {
	var verr *validation.Error
	if !errors.As(err, &verr) {
		return false, nil
	}
	return true, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error":  msgValidation,
		"fields": verr.Fields,
	})
}

// internalError logs err with the route and answers with a generic 500.
func internalError(c *fiber.Ctx, log *zap.Logger, msg string, err error) error {
	log.Error(msg,
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Error(err),
	)
	return errorJSON(c, fiber.StatusInternalServerError, msgInternalError)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
