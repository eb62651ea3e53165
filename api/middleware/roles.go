package middleware

import (
	"net/http"

	"github.com/gosha22008/orders-backend/api/responses"
	"github.com/gosha22008/orders-backend/pkg/enums"
	pkgerrors "github.com/gosha22008/orders-backend/pkg/errors"
	"github.com/gosha22008/orders-backend/pkg/logger"
)

// RequireAccountType admits callers whose token carries one of the allowed
// account types. Mount it behind Auth.
func RequireAccountType(logg *logger.Logger, allowed ...enums.AccountType) func(http.Handler) http.Handler {
	permitted := make(map[enums.AccountType]struct{}, len(allowed))
	for _, t := range allowed {
		permitted[t] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if UserIDFromContext(ctx) == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
				return
			}
			if _, ok := permitted[AccountTypeFromContext(ctx)]; !ok {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "account type may not access this resource"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
