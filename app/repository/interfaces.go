package repository

import (
	"context"
	"errors"
	"time"

	"github.com/yolotrainer/portal/app/models"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when no row matches, including a conditional update that matched nothing.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint rejects an insert.
	ErrDuplicate = errors.New("duplicate record")
)

// UserRepository defines the credential store operations.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByCustomerID(ctx context.Context, customerID string) (*models.User, error)
	SetToken(ctx context.Context, userID string, kind models.TokenKind, token string, expiry time.Time) error
	FindByLiveToken(ctx context.Context, kind models.TokenKind, token string, now time.Time) (*models.User, error)
	ConsumeToken(ctx context.Context, userID string, kind models.TokenKind, token string, now time.Time, effect map[string]interface{}) error
	LinkCustomer(ctx context.Context, userID, customerID string) (bool, error)
	UpdateProfile(ctx context.Context, userID, name, avatarURL string) error
	TouchLastLogin(ctx context.Context, userID string, at time.Time) error
}

// SubscriptionRepository defines the subscription table operations.
type SubscriptionRepository interface {
	Upsert(ctx context.Context, sub *models.Subscription) error
	MarkCanceled(ctx context.Context, providerSubscriptionID string) (bool, error)
	GetByProviderID(ctx context.Context, providerSubscriptionID string) (*models.Subscription, error)
	ListByUser(ctx context.Context, userID string) ([]models.Subscription, error)
}

// WebhookEventRepository stores provider deliveries for deduplication.
type WebhookEventRepository interface {
	CreateIfNotExists(ctx context.Context, event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error)
	MarkProcessed(ctx context.Context, id uint, processingError string) error
}

// ProviderAccountRepository links federated identities to users.
type ProviderAccountRepository interface {
	Upsert(ctx context.Context, account *models.ProviderAccount) error
	ListByUser(ctx context.Context, userID string) ([]models.ProviderAccount, error)
}

type ContactRepository interface {
	Create(ctx context.Context, submission *models.ContactSubmission) error
}

type NewsletterRepository interface {
	Subscribe(ctx context.Context, email string, at time.Time) error
	GetByEmail(ctx context.Context, email string) (*models.NewsletterSubscriber, error)
}

// Repositories holds all repository instances
type Repositories struct {
	User            UserRepository
	Subscription    SubscriptionRepository
	WebhookEvent    WebhookEventRepository
	ProviderAccount ProviderAccountRepository
	Contact         ContactRepository
	Newsletter      NewsletterRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:            NewUserRepository(db),
		Subscription:    NewSubscriptionRepository(db),
		WebhookEvent:    NewWebhookEventRepository(db),
		ProviderAccount: NewProviderAccountRepository(db),
		Contact:         NewContactRepository(db),
		Newsletter:      NewNewsletterRepository(db),
	}
}

// translate maps driver level errors onto the package sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}
