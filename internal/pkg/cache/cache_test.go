package cache

import (
	"context"
	"strconv"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yolotrainer/portal/internal/pkg/config"
)

func TestNewClient(t *testing.T) {
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	client, err := NewClient(config.Cache{Host: mr.Host(), Port: port}, DBRateLimit, zap.NewNop())
	require.NoError(t, err)
	defer client.Close()

	assert.NoError(t, Ping(context.Background(), client))
}

func TestNewClientUnreachable(t *testing.T) {
	client, err := NewClient(config.Cache{Host: "127.0.0.1", Port: 1}, DBRateLimit, zap.NewNop())
	require.NotNil(t, client)
	defer client.Close()
	assert.Error(t, err)
}
