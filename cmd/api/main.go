package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/gosha22008/orders-backend/api/routes"
	"github.com/gosha22008/orders-backend/pkg/auth/session"
	"github.com/gosha22008/orders-backend/pkg/bootstrap"
	"github.com/gosha22008/orders-backend/pkg/db"
	"github.com/gosha22008/orders-backend/pkg/migrate"
	"github.com/gosha22008/orders-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	svc := bootstrap.Load("api")
	ctx, stop := svc.Context()
	defer stop()

	svc.Exit(ctx, run(ctx, svc))
}

func run(ctx context.Context, svc *bootstrap.Service) error {
	cfg, logg := svc.Config, svc.Logger

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer svc.CloseQuietly("database", dbClient.Close)

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("bootstrap redis: %w", err)
	}
	defer svc.CloseQuietly("redis", redisClient.Close)

	sessions, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return fmt.Errorf("session manager: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	deps, err := buildDependencies(cfg, logg, dbClient, redisClient, sessions, registry)
	if err != nil {
		return fmt.Errorf("wire services: %w", err)
	}

	// PORT wins so the platform router can assign one.
	port := cmp.Or(os.Getenv("PORT"), cfg.App.Port)
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           routes.NewRouter(cfg, logg, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}
	logg.Info(logg.WithField(ctx, "addr", server.Addr), "starting api server")

	served := make(chan error, 1)
	go func() { served <- server.ListenAndServe() }()

	select {
	case err := <-served:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}
