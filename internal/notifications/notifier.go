package notifications

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/gosha22008/orders-backend/pkg/db"
	"github.com/gosha22008/orders-backend/pkg/db/models"
	pkgerrors "github.com/gosha22008/orders-backend/pkg/errors"
	"github.com/gosha22008/orders-backend/pkg/mailer"
)

const (
	orderPlacedSubject = "Order status update"
	orderPlacedBody    = "Order placed, thank you for your order!"
)

type userLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type tokenLookup interface {
	FindConfirmTokenForUser(ctx context.Context, userID uuid.UUID) (*models.ConfirmEmailToken, error)
	FindResetTokenByID(ctx context.Context, id uint64) (*models.PasswordResetToken, error)
}

// Notifier renders and sends the transactional e-mails.
type Notifier struct {
	users  userLookup
	tokens tokenLookup
	mail   mailer.Mailer
}

func NewNotifier(users userLookup, tokens tokenLookup, mail mailer.Mailer) (*Notifier, error) {
	if users == nil {
		return nil, fmt.Errorf("user lookup required")
	}
	if tokens == nil {
		return nil, fmt.Errorf("token lookup required")
	}
	if mail == nil {
		return nil, fmt.Errorf("mailer required")
	}
	return &Notifier{users: users, tokens: tokens, mail: mail}, nil
}

func (n *Notifier) SendOrderPlacedEmail(ctx context.Context, userID uuid.UUID, orderID uint64) error {
	user, err := n.user(ctx, userID)
	if err != nil {
		return err
	}
	return n.mail.Send(ctx, mailer.Message{
		To:      user.Email,
		Subject: orderPlacedSubject,
		Body:    fmt.Sprintf("%s\nOrder #%d", orderPlacedBody, orderID),
	})
}

// SendRegistrationEmail mails the current confirmation key. Accounts that
// were confirmed in the meantime have no key and are skipped.
func (n *Notifier) SendRegistrationEmail(ctx context.Context, userID uuid.UUID) error {
	user, err := n.user(ctx, userID)
	if err != nil {
		return err
	}
	token, err := n.tokens.FindConfirmTokenForUser(ctx, userID)
	if err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "confirmation token not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load confirmation token")
	}
	return n.mail.Send(ctx, mailer.Message{
		To:      user.Email,
		Subject: fmt.Sprintf("Email confirmation for %s", user.Email),
		Body:    token.Key,
	})
}

func (n *Notifier) SendPasswordResetEmail(ctx context.Context, userID uuid.UUID, tokenID uint64) error {
	user, err := n.user(ctx, userID)
	if err != nil {
		return err
	}
	token, err := n.tokens.FindResetTokenByID(ctx, tokenID)
	if err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "reset token not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reset token")
	}
	if token.UserID != userID {
		return pkgerrors.New(pkgerrors.CodeNotFound, "reset token not found")
	}
	return n.mail.Send(ctx, mailer.Message{
		To:      user.Email,
		Subject: fmt.Sprintf("Password reset token for %s", user.Email),
		Body:    token.Key,
	})
}

func (n *Notifier) user(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := n.users.FindByID(ctx, userID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return user, nil
}
