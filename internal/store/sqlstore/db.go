// Package sqlstore is the gorm record store backend used for local runs,
// on SQLite (modernc.org/sqlite) or Postgres (pgx).
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"github.com/kluster66/invoice-extractor/internal/common"
)

type Config struct {
	Backend         string // common.BackendSQLite or common.BackendPostgres
	DSN             string
	TableName       string
	MaxConns        int32
	MaxConnLifetime time.Duration
	DialTimeout     time.Duration
}

// Open connects to the configured backend. Postgres goes through a pgx pool wrapped
// as *sql.DB; SQLite uses the pure-Go driver. Both are handed to gorm as an existing
// connection.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*gorm.DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	logger.Info("store.db.connect", "backend", cfg.Backend)

	var dialector gorm.Dialector
	var conn *sql.DB
	switch cfg.Backend {
	case common.BackendPostgres:
		pc, err := pgxpool.ParseConfig(cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("%w: parse dsn: %w", common.ErrConfig, err)
		}
		if cfg.MaxConns > 0 {
			pc.MaxConns = cfg.MaxConns
		}
		if cfg.MaxConnLifetime > 0 {
			pc.MaxConnLifetime = cfg.MaxConnLifetime
		}
		pc.ConnConfig.RuntimeParams["application_name"] = "invoice-extractor"

		dctx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
		pool, err := pgxpool.NewWithConfig(dctx, pc)
		if err != nil {
			logger.Error("store.db.connect_failed", "backend", cfg.Backend, "error", err)
			return nil, fmt.Errorf("%w: connect: %w", common.ErrDatabase, err)
		}
		conn = stdlib.OpenDBFromPool(pool)
		dialector = postgres.New(postgres.Config{Conn: conn})

	case common.BackendSQLite:
		db, err := sql.Open("sqlite", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("%w: open sqlite: %w", common.ErrDatabase, err)
		}
		// single writer
		db.SetMaxOpenConns(1)
		conn = db
		dialector = sqlite.New(sqlite.Config{DriverName: "sqlite", Conn: db})

	default:
		return nil, fmt.Errorf("%w: unsupported sql backend %q", common.ErrConfig, cfg.Backend)
	}

	pctx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	if err := conn.PingContext(pctx); err != nil {
		_ = conn.Close()
		logger.Error("store.db.ping_failed", "backend", cfg.Backend, "error", err)
		return nil, fmt.Errorf("%w: ping: %w", common.ErrDatabase, err)
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: open gorm: %w", common.ErrDatabase, err)
	}
	return gdb, nil
}

// Close releases the connection behind db.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}
