package ratelimit

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Action names used as rate limit buckets.
const (
	ActionRegister           = "register"
	ActionLogin              = "login"
	ActionForgotPassword     = "forgot-password"
	ActionResetPassword      = "reset-password"
	ActionVerifyEmail        = "verify-email"
	ActionResendVerification = "resend-verification"
	ActionContact            = "contact"
	ActionNewsletter         = "newsletter"
	ActionCheckout           = "checkout"
	ActionPortal             = "portal"
	ActionSubscription       = "subscription"
	ActionSession            = "session"
	ActionWebhook            = "webhook"
)

// Policy is a budget of Points requests per Window for one (action, client) pair.
type Policy struct {
	Points int
	Window time.Duration
}

type Policies map[string]Policy

// DefaultPolicies returns the built-in budgets.
func DefaultPolicies() Policies {
	return Policies{
		ActionRegister:           {Points: 5, Window: 15 * time.Minute},
		ActionLogin:              {Points: 10, Window: 15 * time.Minute},
		ActionForgotPassword:     {Points: 3, Window: time.Hour},
		ActionResetPassword:      {Points: 5, Window: 15 * time.Minute},
		ActionVerifyEmail:        {Points: 10, Window: 15 * time.Minute},
		ActionResendVerification: {Points: 3, Window: time.Hour},
		ActionContact:            {Points: 3, Window: time.Hour},
		ActionNewsletter:         {Points: 5, Window: time.Hour},
		ActionCheckout:           {Points: 10, Window: time.Hour},
		ActionPortal:             {Points: 10, Window: time.Hour},
		ActionSubscription:       {Points: 30, Window: time.Minute},
		ActionSession:            {Points: 30, Window: time.Minute},
		ActionWebhook:            {Points: 100, Window: time.Minute},
	}
}

type policyFile struct {
	Actions map[string]struct {
		Points        int `yaml:"points"`
		WindowSeconds int `yaml:"window_seconds"`
	} `yaml:"actions"`
}

// LoadPolicies returns the defaults overridden by the YAML file at path, if any.
//
//	actions:
//	  register: {points: 5, window_seconds: 900}
func LoadPolicies(path string) (Policies, error) {
	policies := DefaultPolicies()
	if path == "" {
		return policies, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rate limit policy: %w", err)
	}
	return policies.Merge(raw)
}

// Merge applies YAML overrides on top of p and returns the result.
func (p Policies) Merge(raw []byte) (Policies, error) {
	var f policyFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse rate limit policy: %w", err)
	}
	out := make(Policies, len(p))
	for k, v := range p {
		out[k] = v
	}
	for action, o := range f.Actions {
		if o.Points <= 0 || o.WindowSeconds <= 0 {
			return nil, fmt.Errorf("rate limit policy %q: points and window_seconds must be positive", action)
		}
		out[action] = Policy{Points: o.Points, Window: time.Duration(o.WindowSeconds) * time.Second}
	}
	return out, nil
}
