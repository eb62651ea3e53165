package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/gosha22008/orders-backend/pkg/config"
	"github.com/gosha22008/orders-backend/pkg/db"
	"github.com/gosha22008/orders-backend/pkg/db/models"
	pkgerrors "github.com/gosha22008/orders-backend/pkg/errors"
	"github.com/gosha22008/orders-backend/pkg/security"
)

type userRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error
}

// Service exposes the account endpoints of an authenticated user.
type Service interface {
	GetAccount(ctx context.Context, userID uuid.UUID) (*UserDTO, error)
	UpdateAccount(ctx context.Context, userID uuid.UUID, req UpdateAccountRequest) (*UserDTO, error)
}

type service struct {
	repo        userRepository
	passwordCfg config.PasswordConfig
}

func NewService(repo userRepository, passwordCfg config.PasswordConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	return &service{repo: repo, passwordCfg: passwordCfg}, nil
}

func (s *service) GetAccount(ctx context.Context, userID uuid.UUID) (*UserDTO, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return FromModel(user), nil
}

// UpdateAccount applies the patch. A new password must pass the strength
// rules and is stored re-hashed.
func (s *service) UpdateAccount(ctx context.Context, userID uuid.UUID, req UpdateAccountRequest) (*UserDTO, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if req.FirstName != nil {
		fields["first_name"] = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		fields["last_name"] = strings.TrimSpace(*req.LastName)
	}
	if req.Company != nil {
		fields["company"] = strings.TrimSpace(*req.Company)
	}
	if req.Position != nil {
		fields["position"] = strings.TrimSpace(*req.Position)
	}
	if req.Password != nil {
		if problems := security.PasswordProblems(*req.Password, user.Email); len(problems) > 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "password is too weak").
				WithDetails(map[string]any{"password": problems})
		}
		hash, err := security.HashPassword(*req.Password, s.passwordCfg)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
		}
		fields["password_hash"] = hash
	}

	if err := s.repo.UpdateFields(ctx, userID, fields); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update account")
	}
	return s.GetAccount(ctx, userID)
}

func (s *service) load(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return user, nil
}
