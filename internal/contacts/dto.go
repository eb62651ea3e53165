package contacts

import (
	"github.com/gosha22008/orders-backend/pkg/db/models"
)

// ContactDTO is the transport shape of a delivery contact.
type ContactDTO struct {
	ID        uint64  `json:"id"`
	Phone     string  `json:"phone"`
	City      string  `json:"city"`
	Street    string  `json:"street"`
	House     string  `json:"house"`
	Structure *string `json:"structure,omitempty"`
	Building  *string `json:"building,omitempty"`
	Apartment *string `json:"apartment,omitempty"`
}

// CreateContactRequest carries a new contact. Phone, city, street and house
// are required.
type CreateContactRequest struct {
	Phone     string  `json:"phone" validate:"required,max=20"`
	City      string  `json:"city" validate:"required,max=50"`
	Street    string  `json:"street" validate:"required,max=100"`
	House     string  `json:"house" validate:"required,max=15"`
	Structure *string `json:"structure,omitempty" validate:"omitempty,max=15"`
	Building  *string `json:"building,omitempty" validate:"omitempty,max=15"`
	Apartment *string `json:"apartment,omitempty" validate:"omitempty,max=15"`
}

// UpdateContactRequest is a partial update; nil fields are left unchanged.
type UpdateContactRequest struct {
	Phone     *string `json:"phone,omitempty" validate:"omitempty,min=1,max=20"`
	City      *string `json:"city,omitempty" validate:"omitempty,min=1,max=50"`
	Street    *string `json:"street,omitempty" validate:"omitempty,min=1,max=100"`
	House     *string `json:"house,omitempty" validate:"omitempty,min=1,max=15"`
	Structure *string `json:"structure,omitempty" validate:"omitempty,max=15"`
	Building  *string `json:"building,omitempty" validate:"omitempty,max=15"`
	Apartment *string `json:"apartment,omitempty" validate:"omitempty,max=15"`
}

func FromModel(c *models.Contact) *ContactDTO {
	if c == nil {
		return nil
	}
	return &ContactDTO{
		ID:        c.ID,
		Phone:     c.Phone,
		City:      c.City,
		Street:    c.Street,
		House:     c.House,
		Structure: c.Structure,
		Building:  c.Building,
		Apartment: c.Apartment,
	}
}
