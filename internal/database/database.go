// Package database holds the relational store for per-user economy and
// leveling records. It uses gorm over sqlite.
package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const opTimeout = 10 * time.Second

var sqlitePragmas = []string{
	"pragma journal_mode=WAL;",
	"pragma synchronous = normal;",
	"pragma temp_store = memory;",
	"pragma busy_timeout = 5000;",
}

// DB wraps the gorm connection.
type DB struct {
	db        *gorm.DB
	closeOnce sync.Once
	closeErr  error
}

// Open opens (creating if needed) the sqlite database at path and migrates the schema.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:  newGormLogger(log.Logger),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	for _, p := range sqlitePragmas {
		if err := gdb.Exec(p).Error; err != nil {
			return nil, fmt.Errorf("exec %q: %w", p, err)
		}
	}

	if err := gdb.AutoMigrate(&Account{}, &Level{}, &Business{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &DB{db: gdb}, nil
}

// Close closes the underlying connection. Safe to call more than once.
func (d *DB) Close() error {
	d.closeOnce.Do(func() {
		sqlDB, err := d.db.DB()
		if err != nil {
			d.closeErr = err
			return
		}
		d.closeErr = sqlDB.Close()
		log.Info().Msg("database connection closed")
	})
	return d.closeErr
}

// transaction runs fn in a transaction bounded by opTimeout unless ctx already has a deadline.
func (d *DB) transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opTimeout)
		defer cancel()
	}
	return d.db.WithContext(ctx).Transaction(fn)
}

func (d *DB) withContext(ctx context.Context) (*gorm.DB, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return d.db.WithContext(ctx), func() {}
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	return d.db.WithContext(ctx), cancel
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
