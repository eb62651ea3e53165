package middleware

import (
	"net/http"
	"strings"

	"github.com/gosha22008/orders-backend/api/responses"
	pkgAuth "github.com/gosha22008/orders-backend/pkg/auth"
	"github.com/gosha22008/orders-backend/pkg/auth/session"
	"github.com/gosha22008/orders-backend/pkg/config"
	pkgerrors "github.com/gosha22008/orders-backend/pkg/errors"
	"github.com/gosha22008/orders-backend/pkg/logger"
)

// bearerToken accepts "Bearer <tok>" in any case, or a bare token.
func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	scheme, rest, _ := strings.Cut(header, " ")
	if strings.EqualFold(scheme, "bearer") {
		return strings.TrimSpace(rest)
	}
	return header
}

// Auth rejects requests without a valid access token whose session is still
// live, and stores the Principal for the handlers below it.
func Auth(cfg config.JWTConfig, sessions session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			deny := func(err error) { responses.WriteError(ctx, logg, w, err) }

			token := bearerToken(r.Header.Get("Authorization"))
			if token == "" {
				deny(pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}
			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				deny(pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}
			if claims.ID == "" {
				deny(pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id"))
				return
			}

			// A logged-out session must not keep working until the token expires.
			if sessions != nil {
				live, err := sessions.HasSession(ctx, claims.ID)
				switch {
				case err != nil:
					deny(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session"))
					return
				case !live:
					deny(pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable"))
					return
				}
			}

			ctx = WithPrincipal(ctx, Principal{
				UserID:      claims.UserID.String(),
				AccountType: claims.AccountType,
				AccessID:    claims.ID,
			})
			if logg != nil {
				ctx = logg.WithUserID(ctx, claims.UserID.String())
				ctx = logg.WithAccountType(ctx, claims.AccountType.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
