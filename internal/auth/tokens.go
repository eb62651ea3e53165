package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gosha22008/orders-backend/pkg/db/models"
)

// TokenRepository persists e-mail confirmation and password reset keys.
type TokenRepository struct {
	db *gorm.DB
}

func NewTokenRepository(db *gorm.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// CreateConfirmToken replaces any previous confirmation key of the user.
func (r *TokenRepository) CreateConfirmToken(ctx context.Context, userID uuid.UUID, key string) (*models.ConfirmEmailToken, error) {
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.ConfirmEmailToken{}).Error; err != nil {
		return nil, err
	}
	token := &models.ConfirmEmailToken{UserID: userID, Key: key}
	if err := r.db.WithContext(ctx).Create(token).Error; err != nil {
		return nil, err
	}
	return token, nil
}

// FindConfirmToken matches the key against the user's e-mail.
func (r *TokenRepository) FindConfirmToken(ctx context.Context, email, key string) (*models.ConfirmEmailToken, error) {
	var token models.ConfirmEmailToken
	err := r.db.WithContext(ctx).
		Preload("User").
		Joins("JOIN users ON users.id = confirm_email_tokens.user_id").
		Where("users.email = ? AND confirm_email_tokens.key = ?", email, key).
		First(&token).Error
	if err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *TokenRepository) FindConfirmTokenForUser(ctx context.Context, userID uuid.UUID) (*models.ConfirmEmailToken, error) {
	var token models.ConfirmEmailToken
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&token).Error; err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *TokenRepository) DeleteConfirmToken(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Delete(&models.ConfirmEmailToken{}, id).Error
}

func (r *TokenRepository) CreateResetToken(ctx context.Context, userID uuid.UUID, key string, expiresAt time.Time) (*models.PasswordResetToken, error) {
	token := &models.PasswordResetToken{UserID: userID, Key: key, ExpiresAt: expiresAt}
	if err := r.db.WithContext(ctx).Create(token).Error; err != nil {
		return nil, err
	}
	return token, nil
}

func (r *TokenRepository) FindResetToken(ctx context.Context, key string) (*models.PasswordResetToken, error) {
	var token models.PasswordResetToken
	if err := r.db.WithContext(ctx).Where("key = ?", key).First(&token).Error; err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *TokenRepository) FindResetTokenByID(ctx context.Context, id uint64) (*models.PasswordResetToken, error) {
	var token models.PasswordResetToken
	if err := r.db.WithContext(ctx).First(&token, id).Error; err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *TokenRepository) DeleteResetTokens(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.PasswordResetToken{}).Error
}

// DeleteExpiredResetTokens removes reset keys that expired before now.
func (r *TokenRepository) DeleteExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&models.PasswordResetToken{})
	return res.RowsAffected, res.Error
}
