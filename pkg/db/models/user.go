package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/gosha22008/orders-backend/pkg/enums"
)

// User is an account of any type. Shops and buyers differ only by AccountType.
type User struct {
	UUIDKey
	Email        string            `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash string            `gorm:"column:password_hash;not null"`
	FirstName    string            `gorm:"column:first_name;not null;default:''"`
	LastName     string            `gorm:"column:last_name;not null;default:''"`
	Company      string            `gorm:"column:company;not null;default:''"`
	Position     string            `gorm:"column:position;not null;default:''"`
	AccountType  enums.AccountType `gorm:"column:account_type;type:account_type;not null;default:'buyer'"`
	IsActive     bool              `gorm:"column:is_active;not null;default:false"`
	LastLoginAt  *time.Time        `gorm:"column:last_login_at"`
	CreatedAt    time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// ConfirmEmailToken is the single live e-mail confirmation key of a user.
type ConfirmEmailToken struct {
	ID        uint64    `gorm:"column:id;primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	Key       string    `gorm:"column:key;not null;uniqueIndex"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	User      *User     `gorm:"foreignKey:UserID"`
}

// PasswordResetToken carries a short lived reset key.
type PasswordResetToken struct {
	ID        uint64    `gorm:"column:id;primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	Key       string    `gorm:"column:key;not null;uniqueIndex"`
	ExpiresAt time.Time `gorm:"column:expires_at;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// Expired reports whether the token can no longer be used at now.
func (t PasswordResetToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
