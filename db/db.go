// Package db owns the gorm connection used by the MySQL store adapter:
// configuration, connection pool setup and a zap-backed gorm logger.
package db

import (
	"context"

	"gorm.io/gorm"
)

// Database is a pooled gorm connection
type Database interface {
	// DB returns the gorm handle, or ErrConnectionNotEstablished after Close
	DB() (*gorm.DB, error)
	// Migrate creates or alters table to hold model
	Migrate(ctx context.Context, table string, model any) error
	Ping(ctx context.Context) error
	Close() error
}
