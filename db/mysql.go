package db

import (
	"context"
	"sync"

	"github.com/dailyyoga/cachedkv/logger"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

type gormDatabase struct {
	logger logger.Logger
	mu     sync.RWMutex
	db     *gorm.DB
}

// NewMySQL opens a pooled MySQL connection and verifies it with a ping
func NewMySQL(log logger.Logger, cfg *Config) (Database, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	} else {
		cfg = cfg.MergeDefaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log = logger.OrNop(log)
	gdb, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{
		Logger: &gormLogger{
			logger:        log,
			level:         parseLogLevel(cfg.LogLevel),
			slowThreshold: cfg.SlowThreshold,
		},
		PrepareStmt:                              true,
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, ErrConnection(err)
	}
	sqldb, err := gdb.DB()
	if err != nil {
		return nil, ErrConnection(err)
	}

	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqldb.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqldb.Ping(); err != nil {
		sqldb.Close()
		return nil, ErrConnection(err)
	}

	log.Info("database connection established",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database),
		zap.Int("max_open_conns", cfg.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.MaxIdleConns),
	)

	return &gormDatabase{logger: log, db: gdb}, nil
}

// Wrap adopts an already open gorm handle, whatever its dialect. Close
// closes the underlying pool.
func Wrap(log logger.Logger, gdb *gorm.DB) Database {
	return &gormDatabase{logger: logger.OrNop(log), db: gdb}
}

func (m *gormDatabase) DB() (*gorm.DB, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.db == nil {
		return nil, ErrConnectionNotEstablished
	}
	return m.db, nil
}

func (m *gormDatabase) Migrate(ctx context.Context, table string, model any) error {
	gdb, err := m.DB()
	if err != nil {
		return err
	}
	if err := gdb.WithContext(ctx).Table(table).AutoMigrate(model); err != nil {
		return ErrMigrate(table, err)
	}
	m.logger.Debug("table migrated", zap.String("table", table))
	return nil
}

func (m *gormDatabase) Ping(ctx context.Context) error {
	gdb, err := m.DB()
	if err != nil {
		return err
	}
	sqldb, err := gdb.DB()
	if err != nil {
		return ErrConnection(err)
	}
	return sqldb.PingContext(ctx)
}

// Close closes the pool. Later calls return ErrConnectionNotEstablished.
func (m *gormDatabase) Close() error {
	m.mu.Lock()
	gdb := m.db
	m.db = nil
	m.mu.Unlock()
	if gdb == nil {
		return ErrConnectionNotEstablished
	}
	sqldb, err := gdb.DB()
	if err != nil {
		return ErrConnection(err)
	}
	return sqldb.Close()
}
