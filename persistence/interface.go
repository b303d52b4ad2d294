// Package persistence opens the relational store and runs work inside
// bounded transactions. Callers receive a Database and own its lifetime.
package persistence

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// Database is the store handed to every service.
type Database interface {
	// WithContext returns a session bound to ctx for single statements.
	WithContext(ctx context.Context) *gorm.DB
	// Transaction runs fn in one transaction, bounded by the configured
	// timeout. fn must only use the tx it is given.
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
	Ping(ctx context.Context) error
	Dialect() string
	Close() error
}

type Options struct {
	MaxIdleConns int
	MaxOpenConns int
	TxTimeout    time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxIdleConns <= 0 {
		o.MaxIdleConns = 10
	}
	if o.MaxOpenConns <= 0 {
		o.MaxOpenConns = 100
	}
	if o.TxTimeout <= 0 {
		o.TxTimeout = 5 * time.Second
	}
	return o
}

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrDuplicateKey   = errors.New("duplicate key")
)
