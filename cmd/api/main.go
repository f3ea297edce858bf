package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nimasrn/debt-tracker/internal/bootstrap"
	"github.com/nimasrn/debt-tracker/internal/config"
	"github.com/nimasrn/debt-tracker/internal/handlers"
	"github.com/nimasrn/debt-tracker/internal/idempotency"
	"github.com/nimasrn/debt-tracker/internal/queue"
	"github.com/nimasrn/debt-tracker/internal/report"
	"github.com/nimasrn/debt-tracker/internal/repository"
	"github.com/nimasrn/debt-tracker/internal/services"
	xhttp "github.com/nimasrn/debt-tracker/pkg/http"
	"github.com/nimasrn/debt-tracker/pkg/logger"
	"github.com/nimasrn/debt-tracker/pkg/redis"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	err := config.Load(bootstrap.EnvPath(os.Args))
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}
	cfg := config.Get()
	logger.Info("starting api", "version", version, "commit", commit, "date", date, "env", cfg.AppEnv)

	db, err := bootstrap.OpenStore(cfg)
	if err != nil {
		logger.Error("failed connecting to database", "error", err)
		return
	}
	defer db.Close()

	checks := map[string]handlers.HealthCheck{"db": db.Ping}

	var (
		redisAdap redis.RedisAdapter
		txnOpts   = []services.TransactionServiceOption{
			services.WithTouchCustomerCreatedAt(cfg.LedgerTouchCustomerCreatedAt),
		}
		idem handlers.IdempotencyStore
	)
	if cfg.EventsEnabled || cfg.IdempotencyEnabled {
		redisAdap, err = bootstrap.OpenRedis(cfg)
		if err != nil {
			logger.Error("failed connecting to redis", "error", err)
			return
		}
		checks["redis"] = redisAdap.Ping
	}
	if cfg.EventsEnabled {
		q, err := bootstrap.EventQueue(cfg, redisAdap, "")
		if err != nil {
			logger.Error("failed creating event queue", "error", err)
			return
		}
		txnOpts = append(txnOpts, services.WithEventPublisher(queue.NewEventPublisher(q)))
	}
	if cfg.IdempotencyEnabled {
		idem = idempotency.NewService(redisAdap, idempotency.Config{
			LockTTL:     cfg.IdempotencyLockTTL,
			ResponseTTL: cfg.IdempotencyTTL,
			KeyPrefix:   "idem:",
		})
	}

	bootstrap.StartMetrics(cfg)

	// repositories
	customerRepo := repository.NewCustomerRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)

	// services
	customerService := services.NewCustomerService(customerRepo)
	transactionService := services.NewTransactionService(customerRepo, transactionRepo, txnOpts...)
	renderer := report.NewExcel()
	reportService := services.NewReportService(customerRepo, transactionService, renderer)

	// transport
	s := xhttp.CreateServer()
	s.Server.ReadBufferSize = 1024 * 16
	s.Server.WriteBufferSize = 1024 * 16
	s.Use(xhttp.RecoverMiddleware)
	s.Use(xhttp.RequestIDMiddleware)
	s.Use(xhttp.RequestLoggerMiddleware)
	s.Use(xhttp.TimeoutMiddleware(time.Second * 10))
	s.Use(xhttp.CompressMiddleware(6))

	// v1 handlers
	g := s.Group(cfg.HttpBaseRequestUrl)
	handlers.RegisterHealthRoutes(g, handlers.NewHealthHandler(checks))
	handlers.RegisterCustomerRoutes(g, handlers.NewCustomerHandler(customerService))
	handlers.RegisterTransactionRoutes(g, handlers.NewTransactionHandler(transactionService, idem))
	handlers.RegisterReportRoutes(g, handlers.NewReportHandler(reportService, renderer))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := s.ListenAndServe(cfg.HttpListenAddr); err != nil {
			logger.Error("error in running http-server", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	s.Shutdown()
}
