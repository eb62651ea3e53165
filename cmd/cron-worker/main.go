package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gosha22008/orders-backend/internal/auth"
	"github.com/gosha22008/orders-backend/internal/cron"
	"github.com/gosha22008/orders-backend/internal/importer"
	"github.com/gosha22008/orders-backend/pkg/bootstrap"
	"github.com/gosha22008/orders-backend/pkg/config"
	"github.com/gosha22008/orders-backend/pkg/db"
	"github.com/gosha22008/orders-backend/pkg/lock"
	"github.com/gosha22008/orders-backend/pkg/logger"
	"github.com/gosha22008/orders-backend/pkg/metrics"
	"github.com/gosha22008/orders-backend/pkg/migrate"
	"github.com/gosha22008/orders-backend/pkg/outbox"
	"github.com/gosha22008/orders-backend/pkg/redis"
)

func main() {
	once := flag.String("job", "", "run the named job once and exit")
	flag.Parse()

	svc := bootstrap.Load("cron-worker")
	ctx, stop := svc.Context()
	defer stop()

	svc.Exit(ctx, run(ctx, svc, *once))
}

func run(ctx context.Context, svc *bootstrap.Service, once string) error {
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

	jobs, err := buildRegistry(cfg, logg, dbClient)
	if err != nil {
		return fmt.Errorf("register cron jobs: %w", err)
	}

	// TTL zero keeps the lock's default; one scheduler per environment.
	schedulerLock, err := lock.NewRedisLock(redisClient, redisClient.LockKey("cron-worker", cfg.App.Env), 0)
	if err != nil {
		return fmt.Errorf("scheduler lock: %w", err)
	}

	scheduler, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: jobs,
		Lock:     schedulerLock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		return fmt.Errorf("cron service: %w", err)
	}

	if once != "" {
		ctx = logg.WithField(ctx, "job", once)
		logg.Info(ctx, "running cron job once")
		return scheduler.RunJob(ctx, once)
	}
	logg.Info(ctx, "starting cron worker")
	return scheduler.Run(ctx)
}

func buildRegistry(cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (*cron.Registry, error) {
	conn := dbClient.DB()

	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: outbox.NewRepository(conn),
		DLQ:        outbox.NewDLQRepository(conn),
		Retention:  cfg.Cron.OutboxRetentionDays,
	})
	if err != nil {
		return nil, err
	}
	reaper, err := cron.NewImportReaperJob(cron.ImportReaperJobParams{
		Logger:     logg,
		Repository: importer.NewJobRepository(conn),
		StaleAfter: cfg.Import.StaleAfter,
	})
	if err != nil {
		return nil, err
	}
	tokens, err := cron.NewTokenCleanupJob(cron.TokenCleanupJobParams{
		Logger:     logg,
		Repository: auth.NewTokenRepository(conn),
	})
	if err != nil {
		return nil, err
	}
	return cron.NewRegistry(retention, reaper, tokens)
}
