package oauth

import (
	"testing"

	"github.com/markbates/goth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yolotrainer/portal/internal/pkg/config"
)

func TestSetupRegistersConfiguredProviders(t *testing.T) {
	cfg := &config.Config{Env: "dev", PublicURL: "http://localhost:4000"}
	cfg.OAuth.GitHubClientID = "gh-id"
	cfg.OAuth.GitHubClientSecret = "gh-secret"

	names := Setup(cfg)
	assert.Equal(t, []string{"github"}, names)

	p, err := goth.GetProvider("github")
	require.NoError(t, err)
	assert.Equal(t, "github", p.Name())

	_, err = goth.GetProvider("google")
	assert.Error(t, err)
}

func TestCallbackURL(t *testing.T) {
	assert.Equal(t, "https://api.yolotrainer.com/auth/oauth/google/callback",
		CallbackURL("https://api.yolotrainer.com", "google"))
}
