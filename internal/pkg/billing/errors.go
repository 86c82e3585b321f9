package billing

import "errors"

var (
	// ErrPriceNotAllowed rejects checkout for a price outside the configured allow-list.
	ErrPriceNotAllowed = errors.New("price not allowed")
	// ErrNoCustomer means the user has never started a checkout.
	ErrNoCustomer = errors.New("no billing customer")
	// ErrInvalidSignature covers missing, malformed, stale and wrong webhook signatures.
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrWebhookSecretMissing means the server cannot verify webhooks at all.
	ErrWebhookSecretMissing = errors.New("webhook secret not configured")
	// ErrProviderNotConfigured means no API key is set for the billing provider.
	ErrProviderNotConfigured = errors.New("billing provider not configured")
	// ErrMalformedEvent is returned for payloads that verify but cannot be decoded.
	ErrMalformedEvent = errors.New("malformed webhook event")
)
