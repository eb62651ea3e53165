package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/gosha22008/orders-backend/pkg/enums"
)

// Principal is the authenticated caller, set by Auth.
type Principal struct {
	UserID      string
	AccountType enums.AccountType
	// AccessID is the jti of the access token and keys the session.
	AccessID string
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

func principal(ctx context.Context) Principal {
	p, _ := PrincipalFromContext(ctx)
	return p
}

func UserIDFromContext(ctx context.Context) string { return principal(ctx).UserID }

// UserUUIDFromContext is uuid.Nil for anonymous requests.
func UserUUIDFromContext(ctx context.Context) uuid.UUID {
	id, err := uuid.Parse(principal(ctx).UserID)
	if err != nil {
		return uuid.Nil
	}
	return id
}

func AccountTypeFromContext(ctx context.Context) enums.AccountType { return principal(ctx).AccountType }

func AccessIDFromContext(ctx context.Context) string { return principal(ctx).AccessID }

// WithUserID and WithAccountType amend the principal already in ctx.
func WithUserID(ctx context.Context, userID string) context.Context {
	p := principal(ctx)
	p.UserID = userID
	return WithPrincipal(ctx, p)
}

func WithAccountType(ctx context.Context, accountType enums.AccountType) context.Context {
	p := principal(ctx)
	p.AccountType = accountType
	return WithPrincipal(ctx, p)
}
