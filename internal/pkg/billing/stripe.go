package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/yolotrainer/portal/internal/pkg/config"
)

const (
	defaultStripeAPIBase = "https://api.stripe.com"
	stripeAPIVersion     = "2024-06-20"
)

// Provider is the outbound surface of the billing provider used by the bridge.
type Provider interface {
	CreateCustomer(ctx context.Context, p CustomerParams) (string, error)
	CreateCheckoutSession(ctx context.Context, p CheckoutParams) (string, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
}

type CustomerParams struct {
	Email  string
	Name   string
	UserID string
}

type CheckoutParams struct {
	CustomerID string
	PriceID    string
	UserID     string
	TrialDays  int
	SuccessURL string
	CancelURL  string
}

// StripeClient talks to the Stripe REST API with form-encoded requests.
type StripeClient struct {
	SecretKey  string
	APIBase    string
	HTTPClient *http.Client
}

func NewStripeClient(cfg config.Billing) *StripeClient {
	base := strings.TrimRight(strings.TrimSpace(cfg.APIBase), "/")
	if base == "" {
		base = defaultStripeAPIBase
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &StripeClient{
		SecretKey: strings.TrimSpace(cfg.SecretKey),
		APIBase:   base,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type stripeObject struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type stripeErrorBody struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// StripeError is a non-2xx answer from the API. Message is for logs only.
type StripeError struct {
	Status  int
	Type    string
	Code    string
	Message string
}

func (e *StripeError) Error() string {
	return fmt.Sprintf("stripe: status=%d type=%s code=%s: %s", e.Status, e.Type, e.Code, e.Message)
}

func (c *StripeClient) CreateCustomer(ctx context.Context, p CustomerParams) (string, error) {
	form := url.Values{}
	form.Set("email", p.Email)
	if p.Name != "" {
		form.Set("name", p.Name)
	}
	form.Set("metadata[userId]", p.UserID)

	var out stripeObject
	if err := c.post(ctx, "/v1/customers", form, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("stripe: customer response without id")
	}
	return out.ID, nil
}

func (c *StripeClient) CreateCheckoutSession(ctx context.Context, p CheckoutParams) (string, error) {
	form := url.Values{}
	form.Set("customer", p.CustomerID)
	form.Set("mode", "subscription")
	form.Set("payment_method_types[0]", "card")
	form.Set("line_items[0][price]", p.PriceID)
	form.Set("line_items[0][quantity]", "1")
	form.Set("success_url", p.SuccessURL)
	form.Set("cancel_url", p.CancelURL)
	form.Set("metadata[userId]", p.UserID)
	form.Set("subscription_data[metadata][userId]", p.UserID)
	if p.TrialDays > 0 {
		form.Set("subscription_data[trial_period_days]", strconv.Itoa(p.TrialDays))
	}

	var out stripeObject
	if err := c.post(ctx, "/v1/checkout/sessions", form, &out); err != nil {
		return "", err
	}
	if out.URL == "" {
		return "", fmt.Errorf("stripe: checkout session without url")
	}
	return out.URL, nil
}

func (c *StripeClient) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	form := url.Values{}
	form.Set("customer", customerID)
	form.Set("return_url", returnURL)

	var out stripeObject
	if err := c.post(ctx, "/v1/billing_portal/sessions", form, &out); err != nil {
		return "", err
	}
	if out.URL == "" {
		return "", fmt.Errorf("stripe: portal session without url")
	}
	return out.URL, nil
}

func (c *StripeClient) post(ctx context.Context, path string, form url.Values, out interface{}) error {
	if c.SecretKey == "" {
		return ErrProviderNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIBase+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Stripe-Version", stripeAPIVersion)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("stripe %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var eb stripeErrorBody
		_ = json.Unmarshal(body, &eb)
		return &StripeError{
			Status:  resp.StatusCode,
			Type:    eb.Error.Type,
			Code:    eb.Error.Code,
			Message: eb.Error.Message,
		}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("stripe %s: decode: %w", path, err)
	}
	return nil
}
