package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nimasrn/debt-tracker/internal/bootstrap"
	"github.com/nimasrn/debt-tracker/internal/config"
	"github.com/nimasrn/debt-tracker/internal/reconciler"
	"github.com/nimasrn/debt-tracker/internal/repository"
	"github.com/nimasrn/debt-tracker/pkg/logger"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const shutdownTimeout = 30 * time.Second

// main.go [--env=.env] [--sweep] [--sweep-only]
func main() {
	err := config.Load(bootstrap.EnvPath(os.Args))
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}
	cfg := config.Get()
	logger.Info("starting reconciler", "version", version, "commit", commit, "date", date, "repair", cfg.ReconcilerRepair)

	db, err := bootstrap.OpenStore(cfg)
	if err != nil {
		logger.Error("failed connecting to database", "error", err)
		return
	}
	defer db.Close()

	bootstrap.StartMetrics(cfg)

	rec := reconciler.New(
		repository.NewCustomerRepository(db),
		repository.NewTransactionRepository(db),
		cfg.ReconcilerRepair,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if bootstrap.HasFlag(os.Args, "sweep") || bootstrap.HasFlag(os.Args, "sweep-only") {
		if _, err := rec.Sweep(ctx); err != nil {
			logger.Error("sweep failed", "error", err)
			return
		}
		if bootstrap.HasFlag(os.Args, "sweep-only") {
			return
		}
	}

	if !cfg.EventsEnabled {
		logger.Error("EVENTS_ENABLED must be true to follow the ledger stream")
		return
	}
	redisAdap, err := bootstrap.OpenRedis(cfg)
	if err != nil {
		logger.Error("failed connecting to redis", "error", err)
		return
	}
	q, err := bootstrap.EventQueue(cfg, redisAdap, "")
	if err != nil {
		logger.Error("failed creating event queue", "error", err)
		return
	}

	service := reconciler.NewService(q, rec, cfg.ReconcilerWorkers)
	if err := service.Start(); err != nil {
		logger.Error("failed to start reconciler", "error", err)
		return
	}

	<-ctx.Done()
	service.Stop(shutdownTimeout)
}
