package models

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// PasswordCost is the bcrypt cost used for stored credentials.
const PasswordCost = 12

// User is the credential store record. Token fields are nullable and cleared on consumption.
type User struct {
	ID                      string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Email                   string     `gorm:"uniqueIndex;type:varchar(254);not null" json:"email"`
	Name                    string     `gorm:"type:varchar(100)" json:"name"`
	AvatarURL               string     `gorm:"type:varchar(512)" json:"avatar_url"`
	PasswordHash            *string    `gorm:"type:varchar(100)" json:"-"`
	EmailVerified           bool       `gorm:"not null;default:false" json:"email_verified"`
	VerificationToken       *string    `gorm:"type:varchar(128);index" json:"-"`
	VerificationTokenExpiry *time.Time `gorm:"default:null" json:"-"`
	ResetToken              *string    `gorm:"type:varchar(128);index" json:"-"`
	ResetTokenExpiry        *time.Time `gorm:"default:null" json:"-"`
	PaymentCustomerID       *string    `gorm:"type:varchar(191);uniqueIndex" json:"-"`
	LastLoginAt             *time.Time `gorm:"default:null" json:"last_login_at,omitempty"`
	CreatedAt               time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt               time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// HasPassword is false for federation-only accounts.
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// CheckPassword fails closed when no hash is stored.
func (u *User) CheckPassword(password string) bool {
	if !u.HasPassword() {
		return false
	}
	return CheckPasswordHash(password, *u.PasswordHash)
}

// CustomerID returns the linked billing customer id or "".
func (u *User) CustomerID() string {
	if u.PaymentCustomerID == nil {
		return ""
	}
	return *u.PaymentCustomerID
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)

	return string(bytes), err
}

// CheckPasswordHash compares the given password with the stored hash.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))

	return err == nil
}
