// Package flash hands one-shot messages to the site across a redirect.
package flash

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"
)

// RedirectError stores an error message for the next page and redirects there with 303.
func RedirectError(c *fiber.Ctx, to, message string) error {
	fm := fiber.Map{
		"type":    "error",
		"message": message,
	}
	return flash.WithError(c, fm).Redirect(to, fiber.StatusSeeOther)
}

// RedirectSuccess is RedirectError for confirmations.
func RedirectSuccess(c *fiber.Ctx, to, message string) error {
	fm := fiber.Map{
		"type":    "success",
		"message": message,
	}
	return flash.WithSuccess(c, fm).Redirect(to, fiber.StatusSeeOther)
}
