package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gosha22008/orders-backend/internal/auth"
	"github.com/gosha22008/orders-backend/internal/importer"
	"github.com/gosha22008/orders-backend/internal/notifications"
	"github.com/gosha22008/orders-backend/internal/users"
	"github.com/gosha22008/orders-backend/pkg/bootstrap"
	"github.com/gosha22008/orders-backend/pkg/config"
	"github.com/gosha22008/orders-backend/pkg/db"
	"github.com/gosha22008/orders-backend/pkg/lock"
	"github.com/gosha22008/orders-backend/pkg/logger"
	"github.com/gosha22008/orders-backend/pkg/mailer"
	"github.com/gosha22008/orders-backend/pkg/metrics"
	"github.com/gosha22008/orders-backend/pkg/migrate"
	"github.com/gosha22008/orders-backend/pkg/outbox"
	"github.com/gosha22008/orders-backend/pkg/outbox/idempotency"
	"github.com/gosha22008/orders-backend/pkg/pubsub"
	"github.com/gosha22008/orders-backend/pkg/redis"
)

func main() {
	svc := bootstrap.Load("worker")
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

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return fmt.Errorf("bootstrap pubsub: %w", err)
	}
	defer svc.CloseQuietly("pubsub", pubsubClient.Close)

	consumers, err := buildConsumers(cfg, logg, dbClient, redisClient, pubsubClient)
	if err != nil {
		return err
	}

	service, err := NewService(ServiceParams{
		Logger: logg,
		Dependencies: map[string]pinger{
			"database": dbClient,
			"redis":    redisClient,
			"pubsub":   pubsubClient,
		},
		Consumers: consumers,
	})
	if err != nil {
		return fmt.Errorf("worker service: %w", err)
	}

	metricsServer := metrics.Serve(ctx, logg, ":"+cfg.App.Port)
	defer svc.CloseQuietly("metrics server", metricsServer.Close)

	logg.Info(ctx, "starting worker")
	return service.Run(ctx)
}

func buildConsumers(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, pubsubClient *pubsub.Client) (map[string]consumer, error) {
	conn := dbClient.DB()

	processed, err := idempotency.NewManager(redisClient, cfg.Eventing.OutboxIdempotencyTTL)
	if err != nil {
		return nil, fmt.Errorf("idempotency manager: %w", err)
	}
	locks, err := lock.NewFactory(redisClient, cfg.Import.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("import locks: %w", err)
	}

	imports, err := importer.NewService(importer.ServiceParams{
		DB:      dbClient,
		Jobs:    importer.NewJobRepository(conn),
		Outbox:  outbox.NewWriter(outbox.NewRepository(conn), logg),
		Locks:   locks,
		Keys:    redisClient,
		Metrics: metrics.NewImportMetrics(prometheus.DefaultRegisterer),
		Config:  cfg.Import,
		Logger:  logg,
	})
	if err != nil {
		return nil, fmt.Errorf("import service: %w", err)
	}
	importConsumer, err := importer.NewConsumer(imports, pubsubClient.CatalogSubscription(), processed, logg)
	if err != nil {
		return nil, fmt.Errorf("import consumer: %w", err)
	}

	mail, err := mailer.New(cfg.Sendgrid, logg)
	if err != nil {
		return nil, fmt.Errorf("mailer: %w", err)
	}
	notifier, err := notifications.NewNotifier(users.NewRepository(conn), auth.NewTokenRepository(conn), mail)
	if err != nil {
		return nil, fmt.Errorf("notifier: %w", err)
	}
	notificationConsumer, err := notifications.NewConsumer(notifier, pubsubClient.NotificationSubscription(), processed, logg)
	if err != nil {
		return nil, fmt.Errorf("notification consumer: %w", err)
	}

	return map[string]consumer{
		"catalog-import": importConsumer,
		"notifications":  notificationConsumer,
	}, nil
}
