package contacts

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gosha22008/orders-backend/pkg/db/models"
)

// Repository persists delivery contacts. Every lookup is scoped to the owner.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to contact operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ListForUser returns the user's contacts in creation order.
func (r *Repository) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Contact, error) {
	var contacts []models.Contact
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&contacts).Error; err != nil {
		return nil, err
	}
	return contacts, nil
}

// FindForUser loads one contact owned by userID.
func (r *Repository) FindForUser(ctx context.Context, userID uuid.UUID, id uint64) (*models.Contact, error) {
	var contact models.Contact
	if err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&contact).Error; err != nil {
		return nil, err
	}
	return &contact, nil
}

func (r *Repository) Create(ctx context.Context, contact *models.Contact) error {
	return r.db.WithContext(ctx).Create(contact).Error
}

func (r *Repository) Update(ctx context.Context, contact *models.Contact) error {
	return r.db.WithContext(ctx).Save(contact).Error
}

// Delete removes the contact when it belongs to userID and reports whether a
// row was removed.
func (r *Repository) Delete(ctx context.Context, userID uuid.UUID, id uint64) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.Contact{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
