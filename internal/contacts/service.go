package contacts

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/gosha22008/orders-backend/pkg/db"
	"github.com/gosha22008/orders-backend/pkg/db/models"
	pkgerrors "github.com/gosha22008/orders-backend/pkg/errors"
)

type contactRepository interface {
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Contact, error)
	FindForUser(ctx context.Context, userID uuid.UUID, id uint64) (*models.Contact, error)
	Create(ctx context.Context, contact *models.Contact) error
	Update(ctx context.Context, contact *models.Contact) error
	Delete(ctx context.Context, userID uuid.UUID, id uint64) (bool, error)
}

// Service manages a user's address book.
type Service interface {
	List(ctx context.Context, userID uuid.UUID) ([]ContactDTO, error)
	Create(ctx context.Context, userID uuid.UUID, req CreateContactRequest) (*ContactDTO, error)
	Update(ctx context.Context, userID uuid.UUID, contactID uint64, req UpdateContactRequest) (*ContactDTO, error)
	Delete(ctx context.Context, userID uuid.UUID, contactID uint64) error
	ContactOf(ctx context.Context, userID uuid.UUID, contactID uint64) (*ContactDTO, error)
}

type service struct {
	repo contactRepository
}

func NewService(repo contactRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("contacts repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]ContactDTO, error) {
	rows, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list contacts")
	}
	out := make([]ContactDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, req CreateContactRequest) (*ContactDTO, error) {
	contact := &models.Contact{
		UserID:    userID,
		Phone:     strings.TrimSpace(req.Phone),
		City:      strings.TrimSpace(req.City),
		Street:    strings.TrimSpace(req.Street),
		House:     strings.TrimSpace(req.House),
		Structure: trimmed(req.Structure),
		Building:  trimmed(req.Building),
		Apartment: trimmed(req.Apartment),
	}
	if missing := missingFields(contact); len(missing) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "missing contact fields").
			WithDetails(map[string]any{"fields": missing})
	}
	if err := s.repo.Create(ctx, contact); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create contact")
	}
	return FromModel(contact), nil
}

func (s *service) Update(ctx context.Context, userID uuid.UUID, contactID uint64, req UpdateContactRequest) (*ContactDTO, error) {
	contact, err := s.load(ctx, userID, contactID)
	if err != nil {
		return nil, err
	}
	if req.Phone != nil {
		contact.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.City != nil {
		contact.City = strings.TrimSpace(*req.City)
	}
	if req.Street != nil {
		contact.Street = strings.TrimSpace(*req.Street)
	}
	if req.House != nil {
		contact.House = strings.TrimSpace(*req.House)
	}
	if req.Structure != nil {
		contact.Structure = trimmed(req.Structure)
	}
	if req.Building != nil {
		contact.Building = trimmed(req.Building)
	}
	if req.Apartment != nil {
		contact.Apartment = trimmed(req.Apartment)
	}
	if missing := missingFields(contact); len(missing) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "contact fields cannot be blank").
			WithDetails(map[string]any{"fields": missing})
	}
	if err := s.repo.Update(ctx, contact); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update contact")
	}
	return FromModel(contact), nil
}

func (s *service) Delete(ctx context.Context, userID uuid.UUID, contactID uint64) error {
	deleted, err := s.repo.Delete(ctx, userID, contactID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete contact")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "contact not found")
	}
	return nil
}

// ContactOf returns the contact when it belongs to userID.
func (s *service) ContactOf(ctx context.Context, userID uuid.UUID, contactID uint64) (*ContactDTO, error) {
	contact, err := s.load(ctx, userID, contactID)
	if err != nil {
		return nil, err
	}
	return FromModel(contact), nil
}

func (s *service) load(ctx context.Context, userID uuid.UUID, contactID uint64) (*models.Contact, error) {
	contact, err := s.repo.FindForUser(ctx, userID, contactID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "contact not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load contact")
	}
	return contact, nil
}

func missingFields(c *models.Contact) []string {
	var missing []string
	for _, field := range []struct{ name, value string }{
		{"phone", c.Phone},
		{"city", c.City},
		{"street", c.Street},
		{"house", c.House},
	} {
		if field.value == "" {
			missing = append(missing, field.name)
		}
	}
	return missing
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}
