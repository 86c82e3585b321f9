package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yolotrainer/portal/internal/pkg/config"
)

func TestDialectorFor(t *testing.T) {
	d, err := dialectorFor(config.Database{Driver: "mysql", Host: "db", Port: 3306, User: "u", Name: "n"})
	require.NoError(t, err)
	assert.Equal(t, "mysql", d.Name())

	d, err = dialectorFor(config.Database{Driver: "postgres", Host: "db", Port: 5432})
	require.NoError(t, err)
	assert.Equal(t, "postgres", d.Name())

	_, err = dialectorFor(config.Database{Driver: "oracle"})
	assert.Error(t, err)
}
