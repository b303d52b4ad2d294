package persistence

import (
	"context"
	"fmt"

	"github.com/wfunc/sololeveling/config"
)

// Open builds the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.DatabaseConfig) (Database, error) {
	opts := Options{
		MaxIdleConns: cfg.MaxIdleConns,
		MaxOpenConns: cfg.MaxOpenConns,
		TxTimeout:    cfg.TxTimeout,
	}
	switch cfg.Driver {
	case "postgres":
		return NewGormPostgreSQL(ctx, cfg.Postgres.DSN(), opts)
	case "sqlite":
		return NewSQLite(cfg.SQLite.Path, opts)
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}
