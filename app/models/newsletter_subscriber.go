package models

import "time"

type NewsletterSubscriber struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	Email          string     `gorm:"type:varchar(254);not null;uniqueIndex" json:"email"`
	SubscribedAt   time.Time  `json:"subscribed_at"`
	UnsubscribedAt *time.Time `gorm:"default:null" json:"unsubscribed_at,omitempty"`
}

func (n *NewsletterSubscriber) Active() bool {
	return n.UnsubscribedAt == nil
}
