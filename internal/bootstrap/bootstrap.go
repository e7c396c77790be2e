// Package bootstrap holds the wiring shared by the cmd binaries: logger
// construction and store selection. No business logic belongs here.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/pkordes/travelwatch/internal/config"
	"github.com/pkordes/travelwatch/internal/repo"
	"github.com/pkordes/travelwatch/migrations"
)

// NewLogger returns a JSON slog.Logger writing to w at the given level.
// An unrecognised level falls back to info.
func NewLogger(w io.Writer, level string) *slog.Logger {
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(level)); err != nil {
		logLevel = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: logLevel}))
}

// Store is an open TravelerRepo plus the means to release it.
type Store struct {
	Repo  repo.TravelerRepo
	Close func()
}

// OpenStore opens the backend selected by cfg.StoreDriver, verifies it is
// reachable and, where configured, applies pending migrations.
func OpenStore(ctx context.Context, cfg config.Config, log *slog.Logger) (Store, error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		db, err := repo.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return Store{}, fmt.Errorf("bootstrap.OpenStore: %w", err)
		}
		log.InfoContext(ctx, "sqlite store opened", "path", cfg.SQLitePath)
		return Store{Repo: repo.NewSQLiteTravelerRepo(db), Close: func() { _ = db.Close() }}, nil

	case config.DriverPostgres:
		// pgxpool.New does not open connections immediately; the ping does.
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return Store{}, fmt.Errorf("bootstrap.OpenStore: create pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return Store{}, fmt.Errorf("bootstrap.OpenStore: connect: %w", err)
		}
		log.InfoContext(ctx, "database connection established")

		if cfg.MigrateOnStart {
			sqlDB := stdlib.OpenDBFromPool(pool)
			n, err := migrations.Up(ctx, goose.DialectPostgres, sqlDB, migrations.Postgres)
			_ = sqlDB.Close()
			if err != nil {
				pool.Close()
				return Store{}, fmt.Errorf("bootstrap.OpenStore: %w", err)
			}
			log.InfoContext(ctx, "migrations applied", "count", n)
		}
		return Store{Repo: repo.NewTravelerRepo(pool), Close: pool.Close}, nil

	default:
		return Store{}, fmt.Errorf("bootstrap.OpenStore: unknown store driver %q", cfg.StoreDriver)
	}
}
