// Package config collects every runtime setting into one value built at start-up.
package config

import (
	"strings"
	"time"

	"github.com/yolotrainer/portal/internal/pkg/env"
)

type Database struct {
	Driver      string // mysql | postgres
	Host        string
	Port        int
	User        string
	Password    string
	Name        string
	AutoMigrate bool
}

type Cache struct {
	Host     string
	Port     int
	Password string
}

// Enabled reports whether a shared cache was configured at all.
func (c Cache) Enabled() bool { return c.Host != "" }

type Billing struct {
	SecretKey        string
	WebhookSecret    string
	APIBase          string
	ProPrices        []string
	EnterprisePrices []string
	TrialDays        int
	Timeout          time.Duration
}

type Mail struct {
	Driver       string // smtp | log
	Host         string
	Port         int
	Username     string
	Password     string
	TLSMode      string
	From         string
	ContactInbox string
	Timeout      time.Duration
}

type OAuth struct {
	GoogleClientID     string
	GoogleClientSecret string
	GitHubClientID     string
	GitHubClientSecret string
}

type Archive struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	PathStyle       bool
}

// Enabled reports whether webhook payloads should be archived.
func (a Archive) Enabled() bool { return a.Bucket != "" }

type Config struct {
	Env     string
	Port    string
	SiteURL string
	// PublicURL is where this server is reachable; used for OAuth callbacks.
	PublicURL string
	Version   string

	LogLevel string

	Database Database
	Cache    Cache

	SessionTTL       time.Duration
	RateLimitBackend string
	RateLimitPolicy  string

	Billing Billing
	Mail    Mail
	OAuth   OAuth
	Archive Archive

	JWTSecret      string
	HCaptchaSecret string

	MetricsUser     string
	MetricsPassword string
}

// IsDev mirrors env.IsDev for code that only holds a Config.
func (c *Config) IsDev() bool { return c.Env == "dev" }

// Load reads the configuration from the environment (and .env if present).
func Load() *Config {
	return &Config{
		Env:     env.GetEnv("APP_ENV", "prod"),
		Port:    env.GetEnv("APP_PORT", "4000"),
		SiteURL: strings.TrimRight(env.GetEnv("SITE_URL", "http://localhost:3000"), "/"),
		PublicURL: strings.TrimRight(
			env.GetEnv("PUBLIC_DOMAIN", "http://localhost:"+env.GetEnv("APP_PORT", "4000")), "/"),
		Version:  env.GetEnv("APP_VERSION", "dev"),
		LogLevel: env.GetEnv("LOG_LEVEL", "info"),
		Database: Database{
			Driver:      env.GetEnv("DB_DRIVER", "mysql"),
			Host:        env.GetEnv("DB_HOST", "127.0.0.1"),
			Port:        env.GetInt("DB_PORT", 3306),
			User:        env.GetEnv("DB_USER", ""),
			Password:    env.GetEnv("DB_PASSWORD", ""),
			Name:        env.GetEnv("DB_DATABASE", "yolotrainer"),
			AutoMigrate: env.GetBool("DB_AUTO_MIGRATE", false),
		},
		Cache: Cache{
			Host:     env.GetEnv("CACHE_HOST", ""),
			Port:     env.GetInt("CACHE_PORT", 6379),
			Password: env.GetEnv("CACHE_PASSWORD", ""),
		},
		SessionTTL:       env.GetDuration("SESSION_TTL", 24*time.Hour),
		RateLimitBackend: env.GetEnv("RATE_LIMIT_BACKEND", "memory"),
		RateLimitPolicy:  env.GetEnv("RATE_LIMIT_POLICY_FILE", ""),
		Billing: Billing{
			SecretKey:        env.GetEnv("STRIPE_SECRET_KEY", ""),
			WebhookSecret:    env.GetEnv("STRIPE_WEBHOOK_SECRET", ""),
			APIBase:          env.GetEnv("STRIPE_API_BASE", "https://api.stripe.com"),
			ProPrices:        env.GetList("PRICE_PRO"),
			EnterprisePrices: env.GetList("PRICE_ENTERPRISE"),
			TrialDays:        env.GetInt("BILLING_TRIAL_DAYS", 14),
			Timeout:          env.GetDuration("STRIPE_TIMEOUT", 15*time.Second),
		},
		Mail: Mail{
			Driver:       env.GetEnv("MAIL_DRIVER", "smtp"),
			Host:         env.GetEnv("SMTP_HOST", ""),
			Port:         env.GetInt("SMTP_PORT", 587),
			Username:     env.GetEnv("SMTP_USERNAME", ""),
			Password:     env.GetEnv("SMTP_PASSWORD", ""),
			TLSMode:      env.GetEnv("SMTP_TLS", "auto"),
			From:         env.GetEnv("MAIL_FROM", "YOLO Trainer <noreply@yolotrainer.com>"),
			ContactInbox: env.GetEnv("CONTACT_INBOX", ""),
			Timeout:      env.GetDuration("SMTP_TIMEOUT", 10*time.Second),
		},
		OAuth: OAuth{
			GoogleClientID:     env.GetEnv("GOOGLE_CLIENT_ID", ""),
			GoogleClientSecret: env.GetEnv("GOOGLE_CLIENT_SECRET", ""),
			GitHubClientID:     env.GetEnv("GITHUB_CLIENT_ID", ""),
			GitHubClientSecret: env.GetEnv("GITHUB_CLIENT_SECRET", ""),
		},
		Archive: Archive{
			Endpoint:        env.GetEnv("ARCHIVE_S3_ENDPOINT", ""),
			Region:          env.GetEnv("ARCHIVE_S3_REGION", "us-east-1"),
			Bucket:          env.GetEnv("ARCHIVE_S3_BUCKET", ""),
			AccessKeyID:     env.GetEnv("ARCHIVE_S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: env.GetEnv("ARCHIVE_S3_SECRET_ACCESS_KEY", ""),
			PathStyle:       env.GetBool("ARCHIVE_S3_PATH_STYLE", true),
		},
		JWTSecret:       env.GetEnv("JWT_SECRET", ""),
		HCaptchaSecret:  env.GetEnv("HCAPTCHA_SECRET", ""),
		MetricsUser:     env.GetEnv("METRICS_USER", ""),
		MetricsPassword: env.GetEnv("METRICS_PASSWORD", ""),
	}
}
