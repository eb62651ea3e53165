// Package bootstrap holds the start-up steps every binary under cmd/ shares:
// reading .env, loading config and building the service logger.
package bootstrap

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/gosha22008/orders-backend/pkg/config"
	"github.com/gosha22008/orders-backend/pkg/instance"
	"github.com/gosha22008/orders-backend/pkg/logger"
)

// Service is a loaded binary: its config, logger and root context.
type Service struct {
	Kind   string
	Config *config.Config
	Logger *logger.Logger
}

// Load reads .env when present, loads config, stamps the service kind and
// returns a logger configured from it. Failures are logged and exit the
// process since nothing can run without config.
func Load(kind string) *Service {
	boot := logger.New(logger.Options{ServiceName: kind})
	if err := godotenv.Load(); err != nil {
		boot.Warn(context.Background(), ".env file not found, relying on environment")
	}
	cfg, err := config.Load()
	if err != nil {
		boot.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = kind
	return &Service{Kind: kind, Config: cfg, Logger: NewLogger(kind, cfg.App)}
}

// NewLogger builds the logger for kind from the app settings.
func NewLogger(kind string, app config.AppConfig) *logger.Logger {
	return logger.New(logger.Options{
		ServiceName: kind,
		Level:       logger.ParseLevel(app.LogLevel),
		WarnStack:   app.LogWarnStack,
		Format:      app.LogFormat,
	})
}

// Context returns a context canceled on SIGINT or SIGTERM that carries the
// service identity fields.
func (s *Service) Context() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return s.Fields(ctx), stop
}

// Fields stamps env, serviceKind and instance onto ctx.
func (s *Service) Fields(ctx context.Context) context.Context {
	return s.Logger.WithFields(ctx, map[string]any{
		"env":         s.Config.App.Env,
		"serviceKind": s.Kind,
		"instance":    instance.GetID(),
	})
}

// Exit logs err and exits non-zero unless it is nil or a shutdown cancel.
func (s *Service) Exit(ctx context.Context, err error) {
	if err == nil || errors.Is(err, context.Canceled) {
		s.Logger.Info(ctx, s.Kind+" shut down")
		return
	}
	s.Logger.Error(ctx, s.Kind+" stopped unexpectedly", err)
	os.Exit(1)
}

// CloseQuietly runs closeFn and logs a failure. Meant for defers.
func (s *Service) CloseQuietly(what string, closeFn func() error) {
	if err := closeFn(); err != nil {
		s.Logger.Error(context.Background(), "error closing "+what, err)
	}
}
