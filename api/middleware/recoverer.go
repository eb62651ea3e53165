package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gosha22008/orders-backend/api/responses"
	pkgerrors "github.com/gosha22008/orders-backend/pkg/errors"
	"github.com/gosha22008/orders-backend/pkg/logger"
)

// Recoverer answers a handler panic with the 500 envelope.
// http.ErrAbortHandler is re-raised for net/http to drop the connection.
func Recoverer(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if v := recover(); v != nil {
					onPanic(logg, w, r, v)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func onPanic(logg *logger.Logger, w http.ResponseWriter, r *http.Request, v any) {
	if err, ok := v.(error); ok && errors.Is(err, http.ErrAbortHandler) {
		panic(v)
	}
	ctx := r.Context()
	if logg != nil {
		ctx = logg.WithField(ctx, "stack", string(debug.Stack()))
	}
	responses.WriteError(ctx, logg, w,
		pkgerrors.Wrap(pkgerrors.CodeInternal, fmt.Errorf("panic: %v", v), "panic recovered"))
}
