package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yolotrainer/portal/app/controllers"
	"github.com/yolotrainer/portal/app/repository"
	"github.com/yolotrainer/portal/internal/pkg/account"
	"github.com/yolotrainer/portal/internal/pkg/apidocs"
	"github.com/yolotrainer/portal/internal/pkg/billing"
	"github.com/yolotrainer/portal/internal/pkg/cache"
	"github.com/yolotrainer/portal/internal/pkg/config"
	"github.com/yolotrainer/portal/internal/pkg/database"
	"github.com/yolotrainer/portal/internal/pkg/entitlements"
	"github.com/yolotrainer/portal/internal/pkg/env"
	"github.com/yolotrainer/portal/internal/pkg/hcaptcha"
	"github.com/yolotrainer/portal/internal/pkg/logger"
	"github.com/yolotrainer/portal/internal/pkg/mail"
	"github.com/yolotrainer/portal/internal/pkg/metrics"
	"github.com/yolotrainer/portal/internal/pkg/oauth"
	"github.com/yolotrainer/portal/internal/pkg/ratelimit"
	"github.com/yolotrainer/portal/internal/pkg/router"
	"github.com/yolotrainer/portal/internal/pkg/s3archive"
	"github.com/yolotrainer/portal/internal/pkg/security"
	"github.com/yolotrainer/portal/internal/pkg/session"
	"github.com/yolotrainer/portal/internal/pkg/tokens"
)

const shutdownTimeout = 10 * time.Second

func main() {
	env.SetupEnvFile()
	cfg := config.Load()

	log := logger.New(logger.Config{Env: cfg.Env, Level: cfg.LogLevel, ServiceName: "portal", Version: cfg.Version})
	zap.ReplaceGlobals(log)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := NewApplication(ctx, cfg, log)
	if err != nil {
		log.Fatal("startup failed", zap.Error(err))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "0.0.0.0"), cfg.Port)
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		return app.Listen(addr)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
}

// NewApplication wires every component from cfg and returns the ready app.
func NewApplication(ctx context.Context, cfg *config.Config, log *zap.Logger) (*fiber.App, error) {
	db, err := database.Open(cfg.Database, log)
	if err != nil {
		return nil, err
	}
	factory := repository.NewFactory(db)
	repos := factory.GetRepositories()

	var cacheClient *redis.Client
	if cfg.Cache.Enabled() {
		// A down cache is reported by /healthz; the limiter fails open meanwhile.
		cacheClient, err = cache.NewClient(cfg.Cache, cache.DBRateLimit, log)
		if err != nil {
			log.Warn("cache unavailable at start-up", zap.Error(err))
		}
	}

	policies, err := ratelimit.LoadPolicies(cfg.RateLimitPolicy)
	if err != nil {
		return nil, fmt.Errorf("rate limit policies: %w", err)
	}
	var store ratelimit.Store = ratelimit.NewMemoryStore()
	if cfg.RateLimitBackend == "redis" {
		if cacheClient == nil {
			return nil, errors.New("RATE_LIMIT_BACKEND=redis requires CACHE_HOST")
		}
		store = ratelimit.NewRedisStore(cacheClient)
	}
	limiter := ratelimit.New(store, policies)

	var sender mail.Sender
	if cfg.Mail.Driver == "log" || cfg.Mail.Host == "" {
		log.Warn("mail delivery disabled, messages are logged only")
		sender = mail.NewLogSender(log)
	} else {
		m := cfg.Mail
		sender = mail.NewSMTPSender(m.Host, m.Port, m.From, m.Username, m.Password, m.TLSMode, m.Timeout, log)
	}
	notifier := mail.NewNotifier(sender, cfg.SiteURL, cfg.Mail.Timeout, log)

	prices := entitlements.NewPriceMap(cfg.Billing.ProPrices, cfg.Billing.EnterprisePrices)
	reconciler := billing.NewReconciler(repos.User, repos.Subscription, prices, log)
	bridge := billing.NewBridge(repos.User, billing.NewStripeClient(cfg.Billing), prices, cfg.SiteURL, cfg.Billing.TrialDays, log)
	webhooks := billing.NewWebhookProcessor(reconciler, repos.WebhookEvent, cfg.Billing.WebhookSecret, log)
	if cfg.Billing.WebhookSecret == "" {
		log.Warn("STRIPE_WEBHOOK_SECRET is not set, webhooks will be rejected")
	}
	if cfg.Archive.Enabled() {
		archiver, err := s3archive.New(ctx, cfg.Archive, log)
		if err != nil {
			return nil, fmt.Errorf("webhook archive: %w", err)
		}
		webhooks.WithArchiver(archiver)
	}

	accounts := account.NewService(repos.User, repos.ProviderAccount, tokens.NewIssuer(repos.User), notifier, reconciler, log)
	sessions := session.NewManager(cfg)
	providers := oauth.Setup(cfg)
	log.Info("oauth providers registered", zap.Strings("providers", providers))

	accessTokens := security.NewAccessTokens(cfg.JWTSecret, security.DefaultAccessTokenTTL)
	if !accessTokens.Enabled() {
		log.Warn("JWT_SECRET is not set, access tokens are disabled")
	}
	captcha := hcaptcha.NewVerifier(cfg.HCaptchaSecret)

	docsPath, err := apidocs.Locate()
	if err != nil {
		log.Warn("api docs not found, /docs/api disabled", zap.Error(err))
	} else if _, err := apidocs.Load(ctx, docsPath); err != nil {
		return nil, fmt.Errorf("api docs: %w", err)
	}

	app := fiber.New(fiber.Config{
		AppName:      "yolotrainer-portal",
		BodyLimit:    1 << 20,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorHandler: errorHandler(log),
	})
	app.Use(recover.New(), fiberlogger.New(), metrics.Middleware())
	// The site calls the API from its own origin with the session cookie.
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.SiteURL,
		AllowCredentials: true,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
	}))

	router.InstallRouter(app, &router.Dependencies{
		Auth:            controllers.NewAuthController(accounts, sessions, accessTokens, captcha, log),
		OAuth:           controllers.NewOAuthController(accounts, sessions, providers, cfg.SiteURL, log),
		Billing:         controllers.NewBillingController(bridge, webhooks, reconciler, log),
		Site:            controllers.NewSiteController(repos.Contact, repos.Newsletter, notifier, cfg.Mail.ContactInbox, captcha, log),
		Health:          controllers.NewHealthController(factory.DB(), cacheClient, cfg.Version, log),
		Sessions:        sessions,
		Tokens:          accessTokens,
		Limiter:         limiter,
		MetricsUser:     cfg.MetricsUser,
		MetricsPassword: cfg.MetricsPassword,
		DocsPath:        docsPath,
		Log:             log,
	})

	// Mail queued by password reset and resend is delivered before exit.
	app.Hooks().OnShutdown(func() error {
		accounts.Drain()
		return nil
	})

	return app, nil
}

// errorHandler keeps fiber errors as-is and hides everything else behind a generic 500.
func errorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
		}
		log.Error("unhandled error", zap.String("path", c.Path()), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Something went wrong. Please try again later."})
	}
}
