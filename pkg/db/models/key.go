package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UUIDKey is the primary key shared by rows that are referenced across
// services. The id is assigned client side so callers can log it before
// the insert returns.
type UUIDKey struct {
	ID uuid.UUID `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()"`
}

func (k *UUIDKey) BeforeCreate(*gorm.DB) error {
	if k.ID == uuid.Nil {
		k.ID = uuid.New()
	}
	return nil
}
