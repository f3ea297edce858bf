// Package bootstrap wires the infrastructure shared by the binaries under cmd/.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/nimasrn/debt-tracker/internal/config"
	"github.com/nimasrn/debt-tracker/internal/queue"
	"github.com/nimasrn/debt-tracker/internal/repository"
	"github.com/nimasrn/debt-tracker/pkg/logger"
	"github.com/nimasrn/debt-tracker/pkg/prom"
	"github.com/nimasrn/debt-tracker/pkg/redis"
	"github.com/nimasrn/debt-tracker/pkg/store"
)

// ArgValue returns the value of a --name=value argument, or "".
func ArgValue(args []string, name string) string {
	prefix := "--" + name + "="
	for _, v := range args {
		if strings.HasPrefix(v, prefix) {
			return strings.TrimPrefix(v, prefix)
		}
	}
	return ""
}

// HasFlag reports whether --name was passed.
func HasFlag(args []string, name string) bool {
	for _, v := range args {
		if v == "--"+name || v == "--"+name+"=true" {
			return true
		}
	}
	return false
}

// EnvPath returns the --env= file if it exists, falling back to .env when
// present.
func EnvPath(args []string) string {
	if p := ArgValue(args, "env"); p != "" {
		if _, err := os.Stat(p); err != nil {
			logger.Error("failed to open the passed env file", "path", p, "error", err)
			return ""
		}
		return p
	}
	if _, err := os.Stat(".env"); err == nil {
		return ".env"
	}
	return ""
}

// OpenStore connects the read and write databases and, when configured, runs
// gorm AutoMigrate.
func OpenStore(cfg *config.Config) (*store.DB, error) {
	debug := cfg.AppEnv == "dev" && cfg.AppDebug
	db, err := store.CreateReadWrite(cfg.ReadDB(), cfg.WriteDB(), debug)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if cfg.DBAutoMigrate {
		logger.Info("running auto migration", "driver", cfg.DBDriver)
		if err := repository.AutoMigrate(db.Write(context.Background())); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("auto migrate: %w", err)
		}
	}
	return db, nil
}

func OpenRedis(cfg *config.Config) (redis.RedisAdapter, error) {
	return redis.NewRedisAdapter("default", cfg.RedisUniversalKeyPrefix, &redis.Options{
		Addrs:      []string{cfg.RedisAddr},
		ClientName: cfg.AppName,
		DB:         cfg.RedisDatabase,
		Username:   cfg.RedisUsername,
		Password:   cfg.RedisPassword,
	})
}

// EventQueue opens the ledger event stream. consumer overrides the configured
// consumer name when not empty.
func EventQueue(cfg *config.Config, adapter redis.RedisAdapter, consumer string) (*queue.Queue, error) {
	if consumer == "" {
		consumer = cfg.EventsConsumer
	}
	return queue.NewQueue(adapter, queue.QueueConfig{
		Name:              cfg.EventsStream,
		ConsumerGroup:     cfg.EventsGroup,
		ConsumerName:      consumer,
		MaxRetries:        cfg.EventsMaxRetries,
		VisibilityTimeout: cfg.EventsVisibility,
		PollInterval:      cfg.EventsPollInterval,
		BatchSize:         cfg.EventsBatchSize,
		MaxLen:            cfg.EventsMaxLen,
		EnableDLQ:         true,
	})
}

// StartMetrics registers the collectors and serves them when a debug metrics
// address is configured.
func StartMetrics(cfg *config.Config) {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	if err := prom.Create(hostname, cfg.AppEnv, cfg.PromNamespace); err != nil {
		logger.Error("failed to create prometheus metrics", "error", err)
		return
	}
	if cfg.AppDebugMetricsAddr == "" {
		return
	}
	go prom.ListenAndServer(cfg.AppDebugMetricsAddr, cfg.AppDebugMetricsURI)
}
