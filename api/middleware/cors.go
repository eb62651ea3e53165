package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/cors"
)

var (
	corsMethods = []string{
		http.MethodGet, http.MethodPost, http.MethodPut,
		http.MethodPatch, http.MethodDelete, http.MethodOptions,
	}
	corsHeaders = []string{
		"Accept", "Authorization", "Content-Type",
		"Idempotency-Key", "X-Request-Id", "X-Requested-With",
	}
)

// CORS takes a comma-separated origin list. An empty list means "*", and a
// wildcard turns credentials off since browsers reject that combination.
func CORS(origins string) func(http.Handler) http.Handler {
	allowed := originList(origins)
	return cors.Handler(cors.Options{
		AllowedOrigins:   allowed,
		AllowedMethods:   corsMethods,
		AllowedHeaders:   corsHeaders,
		ExposedHeaders:   []string{"X-Request-Id", "Idempotent-Replayed", "Retry-After"},
		AllowCredentials: !slices.Contains(allowed, "*"),
		MaxAge:           300,
	})
}

func originList(raw string) []string {
	var out []string
	for origin := range strings.SplitSeq(raw, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			out = append(out, origin)
		}
	}
	if len(out) == 0 {
		out = []string{"*"}
	}
	return out
}
