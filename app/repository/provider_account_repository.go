package repository

import (
	"context"

	"github.com/yolotrainer/portal/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type providerAccountRepository struct {
	db *gorm.DB
}

func NewProviderAccountRepository(db *gorm.DB) ProviderAccountRepository {
	return &providerAccountRepository{db: db}
}

// Upsert links (provider, provider user id) to the given user, moving the link if it existed.
func (r *providerAccountRepository) Upsert(ctx context.Context, account *models.ProviderAccount) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_user_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "email", "updated_at"}),
	}).Create(account).Error
}

func (r *providerAccountRepository) ListByUser(ctx context.Context, userID string) ([]models.ProviderAccount, error) {
	var accounts []models.ProviderAccount
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("provider").Find(&accounts).Error
	return accounts, err
}
