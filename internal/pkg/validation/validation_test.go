package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Name            string `json:"name" validate:"required,min=2,max=50"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

func TestStructReportsJSONFieldNames(t *testing.T) {
	err := Struct(signup{Name: "A", Email: "nope", Password: "12345678", ConfirmPassword: "87654321"})

	var verr *Error
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, map[string]string{
		"name":            "Must be at least 2 characters",
		"email":           "Please enter a valid email address",
		"confirmPassword": "Passwords do not match",
	}, verr.Fields)
}

func TestStructValid(t *testing.T) {
	assert.NoError(t, Struct(signup{Name: "Ann", Email: "a@x.com", Password: "12345678", ConfirmPassword: "12345678"}))
}
