package auth

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/gosha22008/orders-backend/internal/users"
	"github.com/gosha22008/orders-backend/pkg/config"
	"github.com/gosha22008/orders-backend/pkg/db"
	"github.com/gosha22008/orders-backend/pkg/enums"
	pkgerrors "github.com/gosha22008/orders-backend/pkg/errors"
	"github.com/gosha22008/orders-backend/pkg/outbox"
	"github.com/gosha22008/orders-backend/pkg/outbox/payloads"
	"github.com/gosha22008/orders-backend/pkg/security"
)

const confirmKeyBytes = 24

// RegisterRequest contains the payload required to open an account.
type RegisterRequest struct {
	FirstName string `json:"first_name" validate:"required,max=150"`
	LastName  string `json:"last_name" validate:"required,max=150"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	Company   string `json:"company" validate:"max=40"`
	Position  string `json:"position" validate:"max=40"`
	Type      string `json:"type,omitempty"`
}

// RegisterService handles the sign-up transaction.
type RegisterService interface {
	Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error)
}

// RegisterServiceParams packages the dependencies for the registration flow.
type RegisterServiceParams struct {
	DB             txRunner
	Outbox         outbox.Emitter
	PasswordConfig config.PasswordConfig
}

type registerService struct {
	db          txRunner
	outbox      outbox.Emitter
	passwordCfg config.PasswordConfig
}

// NewRegisterService builds a registration service with the provided dependencies.
func NewRegisterService(params RegisterServiceParams) (RegisterService, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "database client required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outbox emitter required")
	}
	return &registerService{
		db:          params.DB,
		outbox:      params.Outbox,
		passwordCfg: params.PasswordConfig,
	}, nil
}

// Register creates an inactive account and queues the confirmation e-mail.
func (s *registerService) Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error) {
	email := normalizeEmail(req.Email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	accountType := enums.AccountTypeBuyer
	if raw := strings.TrimSpace(req.Type); raw != "" {
		parsed, err := enums.ParseAccountType(raw)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid account type")
		}
		accountType = parsed
	}
	if problems := security.PasswordProblems(req.Password, email); len(problems) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password is too weak").
			WithDetails(map[string]any{"password": problems})
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	key, err := security.GenerateKey(confirmKeyBytes)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate confirmation key")
	}

	var created *users.UserDTO
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		userRepo := users.NewRepository(tx)
		tokenRepo := NewTokenRepository(tx)

		if _, err := userRepo.FindByEmail(ctx, email); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		} else if !db.IsNotFound(err) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check user email")
		}

		inactive := false
		user, err := userRepo.Create(ctx, users.CreateUserDTO{
			Email:        email,
			PasswordHash: passwordHash,
			FirstName:    strings.TrimSpace(req.FirstName),
			LastName:     strings.TrimSpace(req.LastName),
			Company:      strings.TrimSpace(req.Company),
			Position:     strings.TrimSpace(req.Position),
			AccountType:  accountType,
			IsActive:     &inactive,
		})
		if err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
		}

		if _, err := tokenRepo.CreateConfirmToken(ctx, user.ID, key); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create confirmation token")
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventUserRegistered,
			AggregateType: enums.AggregateUser,
			AggregateID:   user.ID.String(),
			Actor:         &outbox.ActorRef{UserID: user.ID, AccountType: user.AccountType},
			Data:          payloads.UserRegisteredEvent{UserID: user.ID, Email: user.Email},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit user registered")
		}

		created = users.FromModel(user)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
