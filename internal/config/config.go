package config

import (
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/nimasrn/debt-tracker/pkg/logger"
	"github.com/nimasrn/debt-tracker/pkg/store"
	"github.com/pkg/errors"
)

var config *Config

// Config holds every setting of the api, cli and reconciler binaries. Nothing
// else in the repository reads the environment directly.
type Config struct {
	AppEnv              string `env:"APP_ENV,default=dev"`
	AppName             string `env:"APP_NAME,default=debt_tracker"`
	AppDebug            bool   `env:"APP_DEBUG,default=false"`
	AppDebugMetricsAddr string `env:"APP_DEBUG_METRIC_ADDR"`
	AppDebugMetricsURI  string `env:"APP_DEBUG_METRIC_URI,default=/metrics"`

	HttpListenAddr     string `env:"HTTP_LISTEN_ADDR,default=:8080"`
	HttpBaseRequestUrl string `env:"HTTP_BASE_REQUEST_URI,default=/api/v1"`

	DBDriver          string        `env:"DB_DRIVER,default=postgres"`
	DBAutoMigrate     bool          `env:"DB_AUTO_MIGRATE,default=false"`
	DBMaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS,default=20"`
	DBMaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS,default=5"`
	DBConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME,default=30m"`
	SQLitePath        string        `env:"SQLITE_PATH,default=debt_tracker.db"`

	DBReadHost     string `env:"DB_READ_HOST"`
	DBReadPort     string `env:"DB_READ_PORT"`
	DBReadUser     string `env:"DB_READ_USER"`
	DBReadPassword string `env:"DB_READ_PASSWORD"`
	DBReadDatabase string `env:"DB_READ_DBNAME"`

	DBWriteHost     string `env:"DB_WRITE_HOST"`
	DBWritePort     string `env:"DB_WRITE_PORT"`
	DBWriteUser     string `env:"DB_WRITE_USER"`
	DBWritePassword string `env:"DB_WRITE_PASSWORD"`
	DBWriteDatabase string `env:"DB_WRITE_DBNAME"`

	RedisAddr               string `env:"REDIS_ADDR"`
	RedisUsername           string `env:"REDIS_USER"`
	RedisPassword           string `env:"REDIS_PASS"`
	RedisDatabase           int    `env:"REDIS_DATABASE,default=0"`
	RedisUniversalKeyPrefix string `env:"REDIS_UNIVERSAL_KEY_PREFIX,default=debt:"`

	PromNamespace string `env:"PROM_NAMESPACE,default=debt_tracker"`

	EventsEnabled      bool          `env:"EVENTS_ENABLED,default=false"`
	EventsStream       string        `env:"EVENTS_STREAM,default=ledger-events"`
	EventsGroup        string        `env:"EVENTS_CONSUMER_GROUP,default=reconciler"`
	EventsConsumer     string        `env:"EVENTS_CONSUMER_NAME,default=reconciler-1"`
	EventsMaxRetries   int           `env:"EVENTS_MAX_RETRIES,default=3"`
	EventsVisibility   time.Duration `env:"EVENTS_VISIBILITY_TIMEOUT,default=30s"`
	EventsPollInterval time.Duration `env:"EVENTS_POLL_INTERVAL,default=500ms"`
	EventsBatchSize    int64         `env:"EVENTS_BATCH_SIZE,default=50"`
	EventsMaxLen       int64         `env:"EVENTS_MAX_LEN,default=100000"`

	IdempotencyEnabled bool          `env:"IDEMPOTENCY_ENABLED,default=false"`
	IdempotencyTTL     time.Duration `env:"IDEMPOTENCY_TTL,default=24h"`
	IdempotencyLockTTL time.Duration `env:"IDEMPOTENCY_LOCK_TTL,default=30s"`

	ReconcilerWorkers int  `env:"RECONCILER_WORKERS,default=4"`
	ReconcilerRepair  bool `env:"RECONCILER_REPAIR,default=false"`

	LedgerTouchCustomerCreatedAt bool `env:"LEDGER_TOUCH_CUSTOMER_CREATED_AT,default=false"`
}

func Load(path string) error {
	logger.Info("loading configs..", "path", path)
	c := &Config{}
	if path != "" {
		logger.Info("loading env from file", "path", path)
		if err := godotenv.Load(path); err != nil {
			return errors.Wrapf(err, "failed to load configuration file %s", path)
		}
	}

	if _, err := env.UnmarshalFromEnviron(c); err != nil {
		return errors.Wrap(err, "failed to map env variables to Config")
	}
	if err := c.validate(); err != nil {
		return err
	}

	config = c
	return nil
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case store.DriverPostgres, store.DriverMySQL:
		if c.DBWriteHost == "" {
			return errors.Errorf("DB_WRITE_HOST is required for driver %s", c.DBDriver)
		}
	case store.DriverSQLite:
	default:
		return errors.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if (c.EventsEnabled || c.IdempotencyEnabled) && c.RedisAddr == "" {
		return errors.New("REDIS_ADDR is required when events or idempotency are enabled")
	}
	return nil
}

func Get() *Config {
	if config == nil {
		logger.Panic("Config is not initialized")
	}
	return config
}

// WriteDB is the store configuration of the primary database.
func (c *Config) WriteDB() store.Config {
	return store.Config{
		Driver:          c.DBDriver,
		Host:            c.DBWriteHost,
		Port:            c.DBWritePort,
		User:            c.DBWriteUser,
		Password:        c.DBWritePassword,
		Database:        c.DBWriteDatabase,
		Path:            c.SQLitePath,
		MaxOpenConns:    c.DBMaxOpenConns,
		MaxIdleConns:    c.DBMaxIdleConns,
		ConnMaxLifetime: c.DBConnMaxLifetime,
	}
}

// ReadDB falls back to the primary when no replica host is configured.
func (c *Config) ReadDB() store.Config {
	if c.DBReadHost == "" {
		return c.WriteDB()
	}
	rc := c.WriteDB()
	rc.Host = c.DBReadHost
	rc.Port = c.DBReadPort
	rc.User = c.DBReadUser
	rc.Password = c.DBReadPassword
	rc.Database = c.DBReadDatabase
	return rc
}
