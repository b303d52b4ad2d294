package persistence

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

// NewSQLite opens a file-backed store. A single connection serializes all
// transactions.
func NewSQLite(path string, opts Options) (*GormDatabase, error) {
	opts = opts.withDefaults()

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"
	db, err := gorm.Open(sqlite.Open(dsn), newGormConfig())
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	g, err := newGormDatabase(db, opts)
	if err != nil {
		sqlDB.Close()
		return nil, err
	}
	return g, nil
}
