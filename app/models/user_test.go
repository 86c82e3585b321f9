package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserCheckPassword(t *testing.T) {
	hash, err := HashPassword("12345678")
	require.NoError(t, err)

	u := &User{PasswordHash: &hash}
	assert.True(t, u.HasPassword())
	assert.True(t, u.CheckPassword("12345678"))
	assert.False(t, u.CheckPassword("87654321"))
}

func TestUserWithoutPasswordFailsClosed(t *testing.T) {
	u := &User{Email: "fed@example.com"}
	assert.False(t, u.HasPassword())
	assert.False(t, u.CheckPassword(""))

	empty := ""
	u.PasswordHash = &empty
	assert.False(t, u.CheckPassword(""))
}

func TestUserCustomerID(t *testing.T) {
	u := &User{}
	assert.Equal(t, "", u.CustomerID())
	id := "cus_123"
	u.PaymentCustomerID = &id
	assert.Equal(t, "cus_123", u.CustomerID())
}

func TestSubscriptionIsLive(t *testing.T) {
	cases := map[string]bool{
		SubscriptionStatusActive:   true,
		SubscriptionStatusTrialing: true,
		SubscriptionStatusPastDue:  false,
		SubscriptionStatusCanceled: false,
		"incomplete_expired":       false,
	}
	for status, want := range cases {
		s := &Subscription{Status: status}
		assert.Equal(t, want, s.IsLive(), status)
	}
}
