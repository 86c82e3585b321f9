// Package oauth registers the federated sign-in providers with goth.
package oauth

import (
	"time"

	"github.com/gofiber/fiber/v2/middleware/session"
	redisstorage "github.com/gofiber/storage/redis"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/github"
	"github.com/markbates/goth/providers/google"
	gothfiber "github.com/shareed2k/goth_fiber"

	"github.com/yolotrainer/portal/internal/pkg/cache"
	"github.com/yolotrainer/portal/internal/pkg/config"
)

// CallbackURL is where provider redirects land.
func CallbackURL(publicURL, provider string) string {
	return publicURL + "/auth/oauth/" + provider + "/callback"
}

// Setup registers every provider that has credentials configured and returns
// their names. OAuth state lives in Redis when a cache is configured.
func Setup(cfg *config.Config) []string {
	var (
		providers []goth.Provider
		names     []string
	)
	if cfg.OAuth.GoogleClientID != "" {
		providers = append(providers, google.New(
			cfg.OAuth.GoogleClientID,
			cfg.OAuth.GoogleClientSecret,
			CallbackURL(cfg.PublicURL, "google"),
			"email", "profile",
		))
		names = append(names, "google")
	}
	if cfg.OAuth.GitHubClientID != "" {
		providers = append(providers, github.New(
			cfg.OAuth.GitHubClientID,
			cfg.OAuth.GitHubClientSecret,
			CallbackURL(cfg.PublicURL, "github"),
			"read:user", "user:email",
		))
		names = append(names, "github")
	}
	goth.ClearProviders()
	goth.UseProviders(providers...)

	sc := session.Config{
		KeyLookup:      "cookie:" + gothic.SessionName,
		CookieHTTPOnly: true,
		CookieSameSite: "Lax",
		CookieSecure:   !cfg.IsDev(),
		Expiration:     10 * time.Minute,
	}
	if cfg.Cache.Enabled() {
		sc.Storage = redisstorage.New(redisstorage.Config{
			Host:     cfg.Cache.Host,
			Port:     cfg.Cache.Port,
			Password: cfg.Cache.Password,
			Database: cache.DBOAuth,
			Reset:    false,
		})
	}
	gothfiber.SessionStore = session.New(sc)

	return names
}
