package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gosha22008/orders-backend/pkg/bootstrap"
	"github.com/gosha22008/orders-backend/pkg/db"
	"github.com/gosha22008/orders-backend/pkg/metrics"
	"github.com/gosha22008/orders-backend/pkg/migrate"
	"github.com/gosha22008/orders-backend/pkg/outbox"
	"github.com/gosha22008/orders-backend/pkg/outbox/registry"
	"github.com/gosha22008/orders-backend/pkg/pubsub"
)

const serviceKind = "outbox-publisher"

func main() {
	svc := bootstrap.Load(serviceKind)
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

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return fmt.Errorf("bootstrap pubsub: %w", err)
	}
	defer svc.CloseQuietly("pubsub", pubsubClient.Close)

	events, err := registry.NewEventRegistry(cfg.PubSub)
	if err != nil {
		return fmt.Errorf("build event registry: %w", err)
	}

	relay, err := NewRelay(RelayParams{
		Config:   cfg.Outbox,
		Logger:   logg,
		DB:       dbClient,
		PubSub:   pubsubClient,
		Events:   outbox.NewRepository(dbClient.DB()),
		DLQ:      outbox.NewDLQRepository(dbClient.DB()),
		Registry: events,
		Metrics:  metrics.NewOutboxMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		return fmt.Errorf("create relay: %w", err)
	}

	metricsServer := metrics.Serve(ctx, logg, ":"+cfg.App.Port)
	defer svc.CloseQuietly("metrics server", metricsServer.Close)

	logg.Info(ctx, "starting outbox publisher")
	return relay.Run(ctx)
}
