package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gosha22008/orders-backend/api/routes"
	"github.com/gosha22008/orders-backend/internal/auth"
	"github.com/gosha22008/orders-backend/internal/basket"
	"github.com/gosha22008/orders-backend/internal/catalog"
	"github.com/gosha22008/orders-backend/internal/contacts"
	"github.com/gosha22008/orders-backend/internal/importer"
	"github.com/gosha22008/orders-backend/internal/orders"
	"github.com/gosha22008/orders-backend/internal/users"
	"github.com/gosha22008/orders-backend/pkg/auth/session"
	"github.com/gosha22008/orders-backend/pkg/config"
	"github.com/gosha22008/orders-backend/pkg/db"
	"github.com/gosha22008/orders-backend/pkg/lock"
	"github.com/gosha22008/orders-backend/pkg/logger"
	"github.com/gosha22008/orders-backend/pkg/metrics"
	"github.com/gosha22008/orders-backend/pkg/outbox"
	"github.com/gosha22008/orders-backend/pkg/redis"
)

func buildDependencies(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, sessions *session.Manager, registry *prometheus.Registry) (routes.Dependencies, error) {
	conn := dbClient.DB()
	emitter := outbox.NewWriter(outbox.NewRepository(conn), logg)
	userRepo := users.NewRepository(conn)
	catalogRepo := catalog.NewRepository(conn)

	authService, err := auth.NewService(auth.ServiceParams{
		DB:             dbClient,
		UserRepo:       userRepo,
		SessionManager: sessions,
		Outbox:         emitter,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	})
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("auth service: %w", err)
	}
	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		DB:             dbClient,
		Outbox:         emitter,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("register service: %w", err)
	}
	userService, err := users.NewService(userRepo, cfg.Password)
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("user service: %w", err)
	}
	contactService, err := contacts.NewService(contacts.NewRepository(conn))
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("contacts service: %w", err)
	}
	catalogService, err := catalog.NewService(catalogRepo)
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("catalog service: %w", err)
	}
	basketService, err := basket.NewService(basket.NewRepository(conn), logg)
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("basket service: %w", err)
	}
	orderService, err := orders.NewService(orders.NewRepository(conn), dbClient, emitter, catalogRepo, logg)
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("orders service: %w", err)
	}

	locks, err := lock.NewFactory(redisClient, cfg.Import.LockTTL)
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("import locks: %w", err)
	}
	importService, err := importer.NewService(importer.ServiceParams{
		DB:      dbClient,
		Jobs:    importer.NewJobRepository(conn),
		Outbox:  emitter,
		Locks:   locks,
		Keys:    redisClient,
		Metrics: metrics.NewImportMetrics(registry),
		Config:  cfg.Import,
		Logger:  logg,
	})
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("import service: %w", err)
	}

	return routes.Dependencies{
		DB:       dbClient,
		Redis:    redisClient,
		Sessions: sessions,
		Gatherer: registry,
		Auth:     authService,
		Register: registerService,
		Users:    userService,
		Contacts: contactService,
		Catalog:  catalogService,
		Basket:   basketService,
		Orders:   orderService,
		Imports:  importService,
	}, nil
}
