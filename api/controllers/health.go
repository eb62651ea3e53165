package controllers

import (
	"context"
	"maps"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/gosha22008/orders-backend/api/responses"
	"github.com/gosha22008/orders-backend/pkg/config"
	pkgerrors "github.com/gosha22008/orders-backend/pkg/errors"
	"github.com/gosha22008/orders-backend/pkg/logger"
)

const readinessTimeout = 2 * time.Second

// Pinger is a dependency checked by the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Orders-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every dependency at once and fails when any is down.
// Nil pingers are skipped.
func HealthReady(cfg *config.Config, deps map[string]Pinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Orders-Env", cfg.App.Env)

		down, err := pingAll(r.Context(), deps)
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeDependency, err, strings.Join(down, ", ")+" unavailable"))
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}

// pingAll returns the sorted names of failed dependencies and their errors.
func pingAll(ctx context.Context, deps map[string]Pinger) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, readinessTimeout)
	defer cancel()

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed = map[string]error{}
	)
	for name, dep := range deps {
		if dep == nil {
			continue
		}
		wg.Go(func() {
			if err := dep.Ping(ctx); err != nil {
				mu.Lock()
				failed[name] = err
				mu.Unlock()
			}
		})
	}
	wg.Wait()

	names := slices.Sorted(maps.Keys(failed))
	var errs error
	for _, name := range names {
		errs = multierr.Append(errs, failed[name])
	}
	return names, errs
}
