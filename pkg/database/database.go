package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	_ "modernc.org/sqlite"
)

var ErrUnsupportedDSN = errors.New("unsupported database dsn")

type Config struct {
	DSN             string        `envconfig:"DSN" default:"file:hospital.db?_pragma=busy_timeout(5000)"`
	MaxOpenConns    int           `split_words:"true" default:"25"`
	MaxIdleConns    int           `split_words:"true" default:"5"`
	ConnMaxLifetime time.Duration `split_words:"true" default:"5m"`
	PingAttempts    int           `split_words:"true" default:"10"`
	PingInterval    time.Duration `split_words:"true" default:"2s"`
	Seed            bool          `default:"true"`
}

type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// DialectFor picks the SQL dialect from the DSN scheme.
func DialectFor(dsn string) (Dialect, error) {
	dsn = strings.TrimSpace(dsn)
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return DialectPostgres, nil
	case strings.HasPrefix(dsn, "file:"), dsn == ":memory:":
		return DialectSQLite, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedDSN, dsn)
	}
}

// Open returns a pooled bun handle. The caller owns it and must Close it.
func Open(ctx context.Context, cfg Config) (*bun.DB, error) {
	dialect, err := DialectFor(cfg.DSN)
	if err != nil {
		return nil, err
	}

	var db *bun.DB
	switch dialect {
	case DialectPostgres:
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN)))
		applyPool(sqldb, cfg)
		db = bun.NewDB(sqldb, pgdialect.New())
	case DialectSQLite:
		sqldb, err := sql.Open("sqlite", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		// SQLite allows a single writer; one connection also keeps
		// in-memory databases alive for the handle's lifetime.
		sqldb.SetMaxOpenConns(1)
		sqldb.SetMaxIdleConns(1)
		sqldb.SetConnMaxLifetime(0)
		db = bun.NewDB(sqldb, sqlitedialect.New())
	}

	if err := ping(ctx, db, cfg); err != nil {
		_ = db.Close()
		return nil, err
	}

	log.Info().Str("dialect", string(dialect)).Msg("database connected")
	return db, nil
}

func applyPool(sqldb *sql.DB, cfg Config) {
	if cfg.MaxOpenConns > 0 {
		sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqldb.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
}

func ping(ctx context.Context, db *bun.DB, cfg Config) error {
	attempts := cfg.PingAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		log.Warn().Err(err).Int("attempt", i+1).Int("max_attempts", attempts).Msg("database ping failed")
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("ping database: %w", ctx.Err())
		case <-time.After(cfg.PingInterval):
		}
	}
	return fmt.Errorf("ping database after %d attempts: %w", attempts, err)
}
