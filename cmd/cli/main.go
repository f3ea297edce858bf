package main

import (
	"io/fs"
	"os"

	"github.com/nimasrn/debt-tracker/internal/bootstrap"
	"github.com/nimasrn/debt-tracker/internal/config"
	"github.com/nimasrn/debt-tracker/migrations"
	"github.com/nimasrn/debt-tracker/pkg/logger"
	"github.com/nimasrn/debt-tracker/pkg/store"
)

// main.go [--env=.env] [--dir=./migrations] [--status]
func main() {
	err := config.Load(bootstrap.EnvPath(os.Args))
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Get()
	if cfg.DBDriver != store.DriverPostgres {
		logger.Error("migration: goose manages postgres only, use DB_AUTO_MIGRATE for other drivers", "driver", cfg.DBDriver)
		os.Exit(1)
	}

	var fsys fs.FS = migrations.FS
	if d := bootstrap.ArgValue(os.Args, "dir"); d != "" {
		if _, err := os.Stat(d); err != nil {
			logger.Error("failed to open the migration directory", "dir", d, "error", err)
			os.Exit(1)
		}
		fsys = os.DirFS(d)
	}

	if bootstrap.HasFlag(os.Args, "status") {
		err = store.MigrationStatus(cfg.WriteDB(), fsys, ".")
	} else {
		err = store.Migrate(cfg.WriteDB(), fsys, ".")
	}
	if err != nil {
		logger.Error("migration: error running migrations", "error", err)
		os.Exit(1)
	}
	logger.Info("migration: done")
}
