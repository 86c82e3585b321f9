package flash

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedirects(t *testing.T) {
	app := fiber.New()
	app.Get("/fail", func(c *fiber.Ctx) error {
		return RedirectError(c, "https://yolotrainer.com/login", "nope")
	})
	app.Get("/ok", func(c *fiber.Ctx) error {
		return RedirectSuccess(c, "https://yolotrainer.com/billing", "done")
	})

	for path, want := range map[string]string{
		"/fail": "https://yolotrainer.com/login",
		"/ok":   "https://yolotrainer.com/billing",
	} {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, path, nil), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode, path)
		assert.Equal(t, want, resp.Header.Get("Location"), path)
		assert.NotEmpty(t, resp.Header.Values("Set-Cookie"), path)
	}
}
