package billing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/yolotrainer/portal/internal/pkg/config"
)

func TestStripeClientCheckoutForm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/checkout/sessions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk_test" {
			t.Errorf("unexpected auth header %q", got)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		want := map[string]string{
			"customer":                             "cus_1",
			"mode":                                 "subscription",
			"line_items[0][price]":                 "price_pro_123",
			"line_items[0][quantity]":              "1",
			"subscription_data[trial_period_days]": "14",
			"metadata[userId]":                     "user-1",
		}
		for k, v := range want {
			if got := r.PostForm.Get(k); got != v {
				t.Errorf("form[%s] = %q, want %q", k, got, v)
			}
		}
		_, _ = w.Write([]byte(`{"id":"cs_1","url":"https://checkout.stripe.com/c/cs_1"}`))
	}))
	defer srv.Close()

	c := NewStripeClient(config.Billing{SecretKey: "sk_test", APIBase: srv.URL})
	url, err := c.CreateCheckoutSession(context.Background(), CheckoutParams{
		CustomerID: "cus_1", PriceID: "price_pro_123", UserID: "user-1", TrialDays: 14,
		SuccessURL: "https://x/billing?success=true", CancelURL: "https://x/billing?canceled=true",
	})
	if err != nil {
		t.Fatalf("CreateCheckoutSession: %v", err)
	}
	if url != "https://checkout.stripe.com/c/cs_1" {
		t.Fatalf("unexpected url %q", url)
	}
}

func TestStripeClientErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","code":"resource_missing","message":"No such customer"}}`))
	}))
	defer srv.Close()

	c := NewStripeClient(config.Billing{SecretKey: "sk_test", APIBase: srv.URL})
	_, err := c.CreatePortalSession(context.Background(), "cus_missing", "https://x/billing")

	var se *StripeError
	if !errors.As(err, &se) {
		t.Fatalf("expected StripeError, got %v", err)
	}
	if se.Status != http.StatusBadRequest || se.Code != "resource_missing" {
		t.Fatalf("unexpected error fields: %+v", se)
	}
}

func TestStripeClientTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewStripeClient(config.Billing{SecretKey: "sk_test", APIBase: srv.URL, Timeout: 20 * time.Millisecond})
	if _, err := c.CreateCustomer(context.Background(), CustomerParams{Email: "a@x.com", UserID: "u"}); err == nil {
		t.Fatalf("expected timeout error")
	}
}

func TestStripeClientNotConfigured(t *testing.T) {
	c := NewStripeClient(config.Billing{})
	if _, err := c.CreateCustomer(context.Background(), CustomerParams{}); !errors.Is(err, ErrProviderNotConfigured) {
		t.Fatalf("expected ErrProviderNotConfigured, got %v", err)
	}
}
