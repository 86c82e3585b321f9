package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/yolotrainer/portal/app/models"
	"github.com/yolotrainer/portal/app/repository"
	"github.com/yolotrainer/portal/internal/pkg/metrics"
)

// PayloadArchiver keeps a copy of verified raw payloads.
type PayloadArchiver interface {
	ArchiveWebhook(ctx context.Context, eventID string, receivedAt time.Time, payload []byte) error
}

// WebhookOutcome tells the transport what happened to a verified delivery.
type WebhookOutcome struct {
	EventID   string
	EventType string
	Duplicate bool
	Ignored   bool
}

// WebhookProcessor verifies, records and applies provider deliveries.
type WebhookProcessor struct {
	reconciler *Reconciler
	events     repository.WebhookEventRepository
	archiver   PayloadArchiver
	secret     string
	tolerance  time.Duration
	now        func() time.Time
	log        *zap.Logger
}

func NewWebhookProcessor(reconciler *Reconciler, events repository.WebhookEventRepository, secret string, log *zap.Logger) *WebhookProcessor {
	return &WebhookProcessor{
		reconciler: reconciler,
		events:     events,
		secret:     secret,
		tolerance:  DefaultSignatureTolerance,
		now:        time.Now,
		log:        log,
	}
}

// WithArchiver enables payload archiving.
func (p *WebhookProcessor) WithArchiver(a PayloadArchiver) *WebhookProcessor {
	p.archiver = a
	return p
}

// WithClock replaces the time source used for signature freshness.
func (p *WebhookProcessor) WithClock(now func() time.Time) *WebhookProcessor {
	p.now = now
	return p
}

// Handle processes one delivery. Signature problems return ErrInvalidSignature
// or ErrWebhookSecretMissing; any other error means the provider should retry.
func (p *WebhookProcessor) Handle(ctx context.Context, payload []byte, signature string) (WebhookOutcome, error) {
	if err := VerifyStripeSignature(payload, signature, p.secret, p.tolerance, p.now()); err != nil {
		metrics.WebhookEvents.WithLabelValues("unknown", "rejected").Inc()
		return WebhookOutcome{}, err
	}

	evt, err := ParseEvent(payload)
	if err != nil {
		metrics.WebhookEvents.WithLabelValues("unknown", "malformed").Inc()
		return WebhookOutcome{}, err
	}
	out := WebhookOutcome{EventID: evt.ID, EventType: evt.Type}

	created, stored, err := p.events.CreateIfNotExists(ctx, &models.BillingWebhookEvent{
		Provider:        ProviderStripe,
		ProviderEventID: evt.ID,
		EventType:       evt.Type,
		PayloadJSON:     string(payload),
	})
	if err != nil {
		return out, fmt.Errorf("record webhook event: %w", err)
	}
	if !created && stored.Processed() {
		out.Duplicate = true
		metrics.WebhookEvents.WithLabelValues(evt.Type, "duplicate").Inc()
		return out, nil
	}

	if created && p.archiver != nil {
		if err := p.archiver.ArchiveWebhook(ctx, evt.ID, p.now(), payload); err != nil {
			p.log.Warn("webhook payload archive failed", zap.String("event_id", evt.ID), zap.Error(err))
		}
	}

	applyErr := p.apply(ctx, evt, &out)
	errMsg := ""
	if applyErr != nil {
		errMsg = applyErr.Error()
	}
	if err := p.events.MarkProcessed(ctx, stored.ID, errMsg); err != nil {
		p.log.Error("mark webhook processed failed", zap.String("event_id", evt.ID), zap.Error(err))
	}

	if applyErr != nil {
		metrics.WebhookEvents.WithLabelValues(evt.Type, "failed").Inc()
		p.log.Error("webhook processing failed",
			zap.String("event_id", evt.ID),
			zap.String("type", evt.Type),
			zap.Error(applyErr),
		)
		// Malformed objects will never succeed; acknowledge them.
		if errors.Is(applyErr, ErrMalformedEvent) {
			return out, nil
		}
		return out, applyErr
	}

	outcome := "applied"
	if out.Ignored {
		outcome = "ignored"
	}
	metrics.WebhookEvents.WithLabelValues(evt.Type, outcome).Inc()
	return out, nil
}

func (p *WebhookProcessor) apply(ctx context.Context, evt *Event, out *WebhookOutcome) error {
	if !evt.IsSubscriptionEvent() {
		out.Ignored = true
		return nil
	}

	sub, err := evt.Subscription()
	if err != nil {
		return err
	}

	switch evt.Type {
	case EventSubscriptionDeleted:
		return p.reconciler.MarkCanceled(ctx, sub.SubscriptionID)
	default:
		return p.reconciler.Upsert(ctx, sub)
	}
}
