package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewGormPostgreSQL connects through lib/pq, verifies the connection, and
// hands the pool to GORM.
func NewGormPostgreSQL(ctx context.Context, dsn string, opts Options) (*GormDatabase, error) {
	opts = opts.withDefaults()

	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), newGormConfig())
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("gorm postgres: %w", err)
	}
	g, err := newGormDatabase(db, opts)
	if err != nil {
		sqlDB.Close()
		return nil, err
	}
	return g, nil
}
