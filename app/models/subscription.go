package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Known provider statuses. The set is open; anything else is stored verbatim.
const (
	SubscriptionStatusActive     = "active"
	SubscriptionStatusTrialing   = "trialing"
	SubscriptionStatusPastDue    = "past_due"
	SubscriptionStatusCanceled   = "canceled"
	SubscriptionStatusIncomplete = "incomplete"
	SubscriptionStatusUnpaid     = "unpaid"
)

// Subscription mirrors one provider subscription. The tier is never stored here.
type Subscription struct {
	ID                     string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID                 string     `gorm:"type:varchar(36);not null;index" json:"user_id"`
	ProviderSubscriptionID string     `gorm:"type:varchar(191);not null;uniqueIndex" json:"provider_subscription_id"`
	ProviderPriceID        string     `gorm:"type:varchar(191);not null" json:"provider_price_id"`
	Status                 string     `gorm:"type:varchar(32);not null;index" json:"status"`
	CurrentPeriodStart     *time.Time `gorm:"default:null" json:"current_period_start,omitempty"`
	CurrentPeriodEnd       *time.Time `gorm:"default:null" json:"current_period_end,omitempty"`
	CancelAtPeriodEnd      bool       `gorm:"not null;default:false" json:"cancel_at_period_end"`
	CreatedAt              time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (s *Subscription) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// PeriodEnd is the current period end, zero when the provider sent none.
func (s *Subscription) PeriodEnd() time.Time {
	if s.CurrentPeriodEnd == nil {
		return time.Time{}
	}
	return *s.CurrentPeriodEnd
}

// IsLive reports whether the status grants a paid tier.
func (s *Subscription) IsLive() bool {
	return IsLiveSubscriptionStatus(s.Status)
}

func IsLiveSubscriptionStatus(status string) bool {
	return status == SubscriptionStatusActive || status == SubscriptionStatusTrialing
}
