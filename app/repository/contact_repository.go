package repository

import (
	"context"

	"github.com/yolotrainer/portal/app/models"
	"gorm.io/gorm"
)

type contactRepository struct {
	db *gorm.DB
}

func NewContactRepository(db *gorm.DB) ContactRepository {
	return &contactRepository{db: db}
}

func (r *contactRepository) Create(ctx context.Context, submission *models.ContactSubmission) error {
	if submission.Status == "" {
		submission.Status = models.ContactStatusNew
	}
	return r.db.WithContext(ctx).Create(submission).Error
}
