package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/yolotrainer/portal/app/models"
	"gorm.io/gorm"
)

// userRepository implements the UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository instance
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create inserts a new user. A taken email yields ErrDuplicate.
func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return translate(r.db.WithContext(ctx).Create(user).Error)
}

// GetByID retrieves a user by their ID
func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// GetByEmail retrieves a user by their email address, exactly as stored.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// GetByCustomerID resolves a billing provider customer to its user.
func (r *userRepository) GetByCustomerID(ctx context.Context, customerID string) (*models.User, error) {
	if customerID == "" {
		return nil, ErrNotFound
	}
	var user models.User
	if err := r.db.WithContext(ctx).Where("payment_customer_id = ?", customerID).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// SetToken stores a token of the given kind, overwriting any previous one.
func (r *userRepository) SetToken(ctx context.Context, userID string, kind models.TokenKind, token string, expiry time.Time) error {
	if !kind.Valid() {
		return fmt.Errorf("unknown token kind %q", kind)
	}
	tokenCol, expiryCol := kind.Columns()
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			tokenCol:  token,
			expiryCol: expiry,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// FindByLiveToken looks up the user holding token whose expiry is strictly after now.
func (r *userRepository) FindByLiveToken(ctx context.Context, kind models.TokenKind, token string, now time.Time) (*models.User, error) {
	if !kind.Valid() || token == "" {
		return nil, ErrNotFound
	}
	tokenCol, expiryCol := kind.Columns()
	var user models.User
	err := r.db.WithContext(ctx).
		Where(tokenCol+" = ? AND "+expiryCol+" > ?", token, now).
		First(&user).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// ConsumeToken clears the token and applies effect in one conditional update.
// The row must still hold the same live token, otherwise ErrNotFound is returned
// and nothing is written.
func (r *userRepository) ConsumeToken(ctx context.Context, userID string, kind models.TokenKind, token string, now time.Time, effect map[string]interface{}) error {
	if !kind.Valid() || token == "" {
		return ErrNotFound
	}
	tokenCol, expiryCol := kind.Columns()

	updates := make(map[string]interface{}, len(effect)+2)
	for k, v := range effect {
		updates[k] = v
	}
	updates[tokenCol] = nil
	updates[expiryCol] = nil

	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND "+tokenCol+" = ? AND "+expiryCol+" > ?", userID, token, now).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// LinkCustomer sets the billing customer id only if none is linked yet.
// It reports false when another request linked a customer first.
func (r *userRepository) LinkCustomer(ctx context.Context, userID, customerID string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND payment_customer_id IS NULL", userID).
		Update("payment_customer_id", customerID)
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected == 1, nil
}

// UpdateProfile refreshes display fields; empty values leave columns untouched.
func (r *userRepository) UpdateProfile(ctx context.Context, userID, name, avatarURL string) error {
	updates := map[string]interface{}{}
	if name != "" {
		updates["name"] = name
	}
	if avatarURL != "" {
		updates["avatar_url"] = avatarURL
	}
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(updates).Error
}

// TouchLastLogin records the time of the latest successful sign-in.
func (r *userRepository) TouchLastLogin(ctx context.Context, userID string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("last_login_at", at).Error
}
