package repository

import (
	"context"

	"github.com/yolotrainer/portal/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type subscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository creates a subscription repository backed by GORM.
func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

// Upsert inserts the row or overwrites every mutable column of the row with the
// same provider subscription id. On return sub reflects the stored row.
func (r *subscriptionRepository) Upsert(ctx context.Context, sub *models.Subscription) error {
	db := r.db.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider_subscription_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"user_id",
			"provider_price_id",
			"status",
			"current_period_start",
			"current_period_end",
			"cancel_at_period_end",
		}),
	}).Create(sub).Error; err != nil {
		return err
	}

	// The generated id is discarded on conflict; reload the stored row.
	return translate(db.Where("provider_subscription_id = ?", sub.ProviderSubscriptionID).First(sub).Error)
}

// MarkCanceled forces status to canceled. Reports false when no row exists.
func (r *subscriptionRepository) MarkCanceled(ctx context.Context, providerSubscriptionID string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("provider_subscription_id = ?", providerSubscriptionID).
		Update("status", models.SubscriptionStatusCanceled)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *subscriptionRepository) GetByProviderID(ctx context.Context, providerSubscriptionID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.WithContext(ctx).Where("provider_subscription_id = ?", providerSubscriptionID).First(&sub).Error
	if err != nil {
		return nil, translate(err)
	}
	return &sub, nil
}

// ListByUser returns every subscription row of a user, newest first.
func (r *subscriptionRepository) ListByUser(ctx context.Context, userID string) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&subs).Error
	return subs, err
}
