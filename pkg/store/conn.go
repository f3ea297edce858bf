package store

import (
	"database/sql"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Driver   string
	User     string
	Host     string
	Port     string
	Password string
	Database string
	// Path is the sqlite file, ":memory:" works for throwaway databases.
	Path string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func (c Config) driver() string {
	if c.Driver == "" {
		return DriverPostgres
	}
	return c.Driver
}

func (c Config) postgresDSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable", c.Host, c.User, c.Password, c.Database, c.Port)
}

func (c Config) mysqlDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC", c.User, c.Password, c.Host, c.Port, c.Database)
}

func (c Config) dialector() (gorm.Dialector, error) {
	switch c.driver() {
	case DriverPostgres:
		return postgres.Open(c.postgresDSN()), nil
	case DriverMySQL:
		return mysql.Open(c.mysqlDSN()), nil
	case DriverSQLite:
		if c.Path == "" {
			return nil, fmt.Errorf("sqlite driver requires a path")
		}
		return sqlite.Open(c.Path), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", c.Driver)
}

func (c Config) applyPool(db *sql.DB) {
	if c.MaxOpenConns > 0 {
		db.SetMaxOpenConns(c.MaxOpenConns)
	}
	if c.MaxIdleConns > 0 {
		db.SetMaxIdleConns(c.MaxIdleConns)
	}
	if c.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(c.ConnMaxLifetime)
	}
}

func newSqlConnection(config Config) (*sql.DB, error) {
	if config.driver() != DriverPostgres {
		return nil, fmt.Errorf("sql migrations only run against postgres, got %q", config.Driver)
	}
	return sql.Open("postgres", config.postgresDSN())
}
