package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gosha22008/orders-backend/internal/users"
	pkgAuth "github.com/gosha22008/orders-backend/pkg/auth"
	"github.com/gosha22008/orders-backend/pkg/auth/session"
	"github.com/gosha22008/orders-backend/pkg/config"
	"github.com/gosha22008/orders-backend/pkg/db"
	"github.com/gosha22008/orders-backend/pkg/db/models"
	"github.com/gosha22008/orders-backend/pkg/enums"
	pkgerrors "github.com/gosha22008/orders-backend/pkg/errors"
	"github.com/gosha22008/orders-backend/pkg/logger"
	"github.com/gosha22008/orders-backend/pkg/outbox"
	"github.com/gosha22008/orders-backend/pkg/outbox/payloads"
	"github.com/gosha22008/orders-backend/pkg/security"
)

const (
	invalidCredentialsMessage = "invalid credentials"
	invalidTokenMessage       = "invalid token or email"
	resetKeyBytes             = 24
)

// Service defines the behavior needed by the auth controllers.
type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	Refresh(ctx context.Context, accessToken, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, accessID string) error
	ConfirmEmail(ctx context.Context, req ConfirmEmailRequest) (*users.UserDTO, error)
	RequestPasswordReset(ctx context.Context, req PasswordResetRequest) error
	ResetPassword(ctx context.Context, req ResetPasswordRequest) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type userRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

type sessionManager interface {
	Generate(ctx context.Context, accessID string, userID uuid.UUID) (string, error)
	Rotate(ctx context.Context, oldAccessID string, userID uuid.UUID, provided string) (string, string, error)
	Revoke(ctx context.Context, accessID string) error
}

type service struct {
	db          txRunner
	users       userRepository
	session     sessionManager
	outbox      outbox.Emitter
	jwtCfg      config.JWTConfig
	passwordCfg config.PasswordConfig
	logg        *logger.Logger
	now         func() time.Time
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	DB             txRunner
	UserRepo       userRepository
	SessionManager sessionManager
	Outbox         outbox.Emitter
	JWTConfig      config.JWTConfig
	PasswordConfig config.PasswordConfig
	Logger         *logger.Logger
}

// NewService constructs the auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.SessionManager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		db:          params.DB,
		users:       params.UserRepo,
		session:     params.SessionManager,
		outbox:      params.Outbox,
		jwtCfg:      params.JWTConfig,
		passwordCfg: params.PasswordConfig,
		logg:        logg,
		now:         time.Now,
	}, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	user, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
	}
	user.LastLoginAt = &now

	accessID := session.NewAccessID()
	accessToken, err := pkgAuth.MintAccessToken(s.jwtCfg, now, pkgAuth.AccessTokenPayload{
		UserID:      user.ID,
		AccountType: user.AccountType,
		JTI:         accessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	refreshToken, err := s.session.Generate(ctx, accessID, user.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store refresh token")
	}

	return &LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         users.FromModel(user),
	}, nil
}

// Refresh rotates the session behind a possibly expired access token.
func (s *service) Refresh(ctx context.Context, accessToken, refreshToken string) (*TokenPair, error) {
	claims, err := pkgAuth.ParseAccessTokenAllowExpired(s.jwtCfg, accessToken)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if claims.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}

	newAccessID, newRefresh, err := s.session.Rotate(ctx, claims.ID, claims.UserID, refreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rotate session")
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil || !user.IsActive {
		_ = s.session.Revoke(ctx, newAccessID)
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	signed, err := pkgAuth.MintAccessToken(s.jwtCfg, s.now().UTC(), pkgAuth.AccessTokenPayload{
		UserID:      user.ID,
		AccountType: user.AccountType,
		JTI:         newAccessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	return &TokenPair{AccessToken: signed, RefreshToken: newRefresh}, nil
}

func (s *service) Logout(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}
	if err := s.session.Revoke(ctx, accessID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	return nil
}

// ConfirmEmail activates the account owning the key and consumes the key.
func (s *service) ConfirmEmail(ctx context.Context, req ConfirmEmailRequest) (*users.UserDTO, error) {
	email := normalizeEmail(req.Email)
	key := strings.TrimSpace(req.Token)
	if email == "" || key == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, invalidTokenMessage)
	}

	var confirmed *users.UserDTO
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		tokens := NewTokenRepository(tx)
		userRepo := users.NewRepository(tx)

		token, err := tokens.FindConfirmToken(ctx, email, key)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeValidation, invalidTokenMessage)
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load confirmation token")
		}
		if err := userRepo.Activate(ctx, token.UserID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "activate user")
		}
		if err := tokens.DeleteConfirmToken(ctx, token.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete confirmation token")
		}
		user, err := userRepo.FindByID(ctx, token.UserID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload user")
		}
		confirmed = users.FromModel(user)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return confirmed, nil
}

// RequestPasswordReset issues a reset key for a known address. Unknown
// addresses succeed silently.
func (s *service) RequestPasswordReset(ctx context.Context, req PasswordResetRequest) error {
	email := normalizeEmail(req.Email)
	if email == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	key, err := security.GenerateKey(resetKeyBytes)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate reset key")
	}

	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		user, err := users.NewRepository(tx).FindByEmail(ctx, email)
		if err != nil {
			if db.IsNotFound(err) {
				s.logg.Info(ctx, "password reset requested for unknown email")
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
		}

		now := s.now().UTC()
		token, err := NewTokenRepository(tx).CreateResetToken(ctx, user.ID, key, now.Add(s.resetTTL()))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create reset token")
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPasswordResetRequested,
			AggregateType: enums.AggregateUser,
			AggregateID:   user.ID.String(),
			Actor:         &outbox.ActorRef{UserID: user.ID, AccountType: user.AccountType},
			OccurredAt:    now,
			Data:          payloads.PasswordResetRequestedEvent{UserID: user.ID, TokenID: token.ID},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit password reset")
		}
		return nil
	})
}

// ResetPassword sets a new password from a live reset key and revokes every
// outstanding key of the user.
func (s *service) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	key := strings.TrimSpace(req.Token)
	if key == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, invalidTokenMessage)
	}

	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		tokens := NewTokenRepository(tx)
		userRepo := users.NewRepository(tx)

		token, err := tokens.FindResetToken(ctx, key)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeValidation, invalidTokenMessage)
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reset token")
		}
		if token.Expired(s.now().UTC()) {
			return pkgerrors.New(pkgerrors.CodeValidation, "reset token expired")
		}
		user, err := userRepo.FindByID(ctx, token.UserID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
		}
		if email := normalizeEmail(req.Email); email != "" && email != user.Email {
			return pkgerrors.New(pkgerrors.CodeValidation, invalidTokenMessage)
		}
		if problems := security.PasswordProblems(req.Password, user.Email); len(problems) > 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "password is too weak").
				WithDetails(map[string]any{"password": problems})
		}
		hash, err := security.HashPassword(req.Password, s.passwordCfg)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
		}
		if err := userRepo.UpdateFields(ctx, user.ID, map[string]any{"password_hash": hash}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update password")
		}
		if err := tokens.DeleteResetTokens(ctx, user.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete reset tokens")
		}
		return nil
	})
}

func (s *service) authenticate(ctx context.Context, email, password string) (*models.User, error) {
	input := normalizeEmail(email)
	if input == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	user, err := s.users.FindByEmail(ctx, input)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	valid, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid || !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return user, nil
}

func (s *service) resetTTL() time.Duration {
	if s.passwordCfg.ResetTokenTTL > 0 {
		return s.passwordCfg.ResetTokenTTL
	}
	return 24 * time.Hour
}
