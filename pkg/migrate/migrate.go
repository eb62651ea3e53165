// Package migrate runs the goose SQL migrations that own the orders schema.
// The migrations ship inside the binary; a directory on disk can replace
// them for local work.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/pressly/goose/v3"

	"github.com/gosha22008/orders-backend/pkg/config"
	"github.com/gosha22008/orders-backend/pkg/db"
	"github.com/gosha22008/orders-backend/pkg/logger"
)

// DefaultDir is where new migrations are written and validated.
const DefaultDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// Commands accepted by Migrator.Exec.
const (
	CmdUp      = "up"
	CmdDown    = "down"
	CmdRedo    = "redo"
	CmdStatus  = "status"
	CmdVersion = "version"
)

var errUnknownCommand = errors.New("unknown migration command")

// Source returns the migrations in dir, or the embedded set when dir is empty.
func Source(dir string) fs.FS {
	if dir == "" {
		sub, _ := fs.Sub(embedded, "migrations")
		return sub
	}
	return os.DirFS(dir)
}

// Migrator applies migrations from one source to one database.
type Migrator struct {
	provider *goose.Provider
	logg     *logger.Logger
}

func New(sqlDB *sql.DB, source fs.FS, logg *logger.Logger) (*Migrator, error) {
	if sqlDB == nil {
		return nil, errors.New("migrate: db is required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, sqlDB, source)
	if err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Migrator{provider: provider, logg: logg}, nil
}

// Exec runs command. target is only read by CmdVersion and is a
// YYYYMMDDHHMMSS version.
func (m *Migrator) Exec(ctx context.Context, command, target string) error {
	switch command {
	case CmdUp:
		results, err := m.provider.Up(ctx)
		m.report(ctx, results...)
		return wrap(command, err)
	case CmdDown:
		result, err := m.provider.Down(ctx)
		m.report(ctx, result)
		return wrap(command, err)
	case CmdRedo:
		down, err := m.provider.Down(ctx)
		m.report(ctx, down)
		if err != nil {
			return wrap(command, err)
		}
		up, err := m.provider.UpByOne(ctx)
		m.report(ctx, up)
		return wrap(command, err)
	case CmdStatus:
		return wrap(command, m.status(ctx))
	case CmdVersion:
		return wrap(command, m.moveTo(ctx, target))
	}
	return fmt.Errorf("%w %q", errUnknownCommand, command)
}

func (m *Migrator) moveTo(ctx context.Context, target string) error {
	version, err := parseVersion(target)
	if err != nil {
		return err
	}
	current, err := m.provider.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("read db version: %w", err)
	}
	var results []*goose.MigrationResult
	switch {
	case current < version:
		results, err = m.provider.UpTo(ctx, version)
	case current > version:
		results, err = m.provider.DownTo(ctx, version)
	}
	m.report(ctx, results...)
	if err != nil {
		return fmt.Errorf("%d -> %d: %w", current, version, err)
	}
	return nil
}

func (m *Migrator) status(ctx context.Context) error {
	states, err := m.provider.Status(ctx)
	if err != nil {
		return err
	}
	for _, st := range states {
		fields := map[string]any{"version": st.Source.Version, "path": st.Source.Path, "state": string(st.State)}
		if !st.AppliedAt.IsZero() {
			fields["applied_at"] = st.AppliedAt
		}
		m.logg.Info(m.logg.WithFields(ctx, fields), "migration status")
	}
	return nil
}

func (m *Migrator) report(ctx context.Context, results ...*goose.MigrationResult) {
	for _, r := range results {
		if r == nil || r.Source == nil {
			continue
		}
		logCtx := m.logg.WithFields(ctx, map[string]any{
			"version":     r.Source.Version,
			"path":        r.Source.Path,
			"direction":   r.Direction,
			"duration_ms": r.Duration.Milliseconds(),
		})
		if r.Error != nil {
			m.logg.Error(logCtx, "migration failed", r.Error)
			continue
		}
		m.logg.Info(logCtx, "migration applied")
	}
}

func parseVersion(raw string) (int64, error) {
	if len(raw) != len(versionLayout) {
		return 0, fmt.Errorf("invalid version %q: expected YYYYMMDDHHMMSS", raw)
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid version %q: %w", raw, err)
	}
	return v, nil
}

func wrap(command string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("goose %s: %w", command, err)
}

// MaybeRunDev applies pending migrations on start-up in the dev environment
// when ORDERS_AUTO_MIGRATE is set. Every other environment migrates through
// cmd/migrate.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	m, err := New(sqlDB, Source(""), logg)
	if err != nil {
		return err
	}
	logg.Info(logg.WithField(ctx, "env", cfg.App.Env), "applying migrations on start-up")
	return m.Exec(ctx, CmdUp, "")
}
