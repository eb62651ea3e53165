package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"os"

	"github.com/gosha22008/orders-backend/pkg/bootstrap"
	"github.com/gosha22008/orders-backend/pkg/db"
	"github.com/gosha22008/orders-backend/pkg/migrate"
)

type options struct {
	cmd     string
	dir     string
	name    string
	version string
	// embedded applies the migrations compiled into the binary instead of dir.
	embedded bool
}

func main() {
	var opts options
	flag.StringVar(&opts.cmd, "cmd", migrate.CmdUp, "up|down|redo|status|version|create|validate")
	flag.StringVar(&opts.dir, "dir", migrate.DefaultDir, "migrations directory")
	flag.StringVar(&opts.name, "name", "", "migration name for -cmd=create")
	flag.StringVar(&opts.version, "version", "", "target YYYYMMDDHHMMSS for -cmd=version")
	flag.BoolVar(&opts.embedded, "embedded", false, "use the migrations built into the binary")
	flag.Parse()

	// create and validate never touch the database.
	switch opts.cmd {
	case "create":
		path, err := migrate.CreateSQLMigration(opts.dir, opts.name)
		exitOn(err)
		fmt.Println("created migration:", path)
		return
	case "validate":
		exitOn(migrate.Validate(opts.source()))
		fmt.Println("migration validation passed")
		return
	}

	svc := bootstrap.Load("migrate")
	ctx := svc.Logger.WithFields(svc.Fields(context.Background()), map[string]any{
		"cmd": opts.cmd,
		"dir": opts.dir,
	})
	if err := apply(ctx, svc, opts); err != nil {
		svc.Logger.Error(ctx, "migration failed", err)
		os.Exit(1)
	}
	svc.Logger.Info(ctx, "migration finished")
}

func (o options) source() fs.FS {
	if o.embedded {
		return migrate.Source("")
	}
	return migrate.Source(o.dir)
}

func apply(ctx context.Context, svc *bootstrap.Service, opts options) error {
	if opts.cmd == migrate.CmdVersion && opts.version == "" {
		return fmt.Errorf("-version is required for -cmd=version")
	}
	dbClient, err := db.New(ctx, svc.Config.DB, svc.Logger)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer svc.CloseQuietly("database", dbClient.Close)

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		return err
	}
	m, err := migrate.New(sqlDB, opts.source(), svc.Logger)
	if err != nil {
		return err
	}
	return m.Exec(ctx, opts.cmd, opts.version)
}

func exitOn(err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
