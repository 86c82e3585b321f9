package repository

import (
	"context"
	"time"

	"github.com/yolotrainer/portal/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type newsletterRepository struct {
	db *gorm.DB
}

func NewNewsletterRepository(db *gorm.DB) NewsletterRepository {
	return &newsletterRepository{db: db}
}

// Subscribe inserts the address or re-activates it if it had unsubscribed.
func (r *newsletterRepository) Subscribe(ctx context.Context, email string, at time.Time) error {
	sub := &models.NewsletterSubscriber{Email: email, SubscribedAt: at}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"unsubscribed_at": nil}),
	}).Create(sub).Error
}

func (r *newsletterRepository) GetByEmail(ctx context.Context, email string) (*models.NewsletterSubscriber, error) {
	var sub models.NewsletterSubscriber
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&sub).Error; err != nil {
		return nil, translate(err)
	}
	return &sub, nil
}
