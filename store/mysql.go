package store

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/dailyyoga/cachedkv/db"
	"github.com/dailyyoga/cachedkv/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// mysqlEntry is one row of the key-value table
type mysqlEntry struct {
	Key       string     `gorm:"column:k;primaryKey;size:255"`
	Value     []byte     `gorm:"column:v;type:longblob;not null"`
	ExpiresAt *time.Time `gorm:"column:expires_at;index"`
}

type mysqlStore struct {
	*Emitter

	logger   logger.Logger
	database db.Database
	gdb      *gorm.DB
	table    string
	ttl      time.Duration
	closed   atomic.Bool
}

// NewMySQL opens a MySQL connection and returns a store that owns it
func NewMySQL(log logger.Logger, cfg *MySQLConfig) (Store, error) {
	if cfg == nil {
		return nil, ErrInvalidConfig("mysql config is required")
	}
	cfg = cfg.MergeDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	database, err := db.NewMySQL(log, &cfg.Config)
	if err != nil {
		return nil, err
	}
	s, err := NewMySQLWithDatabase(log, database, cfg.Table, cfg.TTL)
	if err != nil {
		database.Close()
		return nil, err
	}
	return s, nil
}

// NewMySQLWithDatabase builds the store on an existing connection and creates
// the table when missing. Close closes the connection.
func NewMySQLWithDatabase(log logger.Logger, database db.Database, table string, ttl time.Duration) (Store, error) {
	if table == "" {
		return nil, ErrInvalidConfig("mysql table is required")
	}
	if ttl < 0 {
		return nil, ErrInvalidTTL(ttl)
	}
	if err := database.Migrate(context.Background(), table, &mysqlEntry{}); err != nil {
		return nil, ErrConnection("mysql", err)
	}
	gdb, err := database.DB()
	if err != nil {
		return nil, err
	}

	log = logger.OrNop(log)
	log.Info("mysql store ready", zap.String("table", table))

	return &mysqlStore{
		Emitter:  NewEmitter(log, "mysql"),
		logger:   log,
		database: database,
		gdb:      gdb,
		table:    table,
		ttl:      ttl,
	}, nil
}

func (s *mysqlStore) query(ctx context.Context) *gorm.DB {
	return s.gdb.WithContext(ctx).Table(s.table)
}

func (s *mysqlStore) Get(ctx context.Context, key string) (any, bool, error) {
	if s.closed.Load() {
		return nil, false, ErrClosed
	}
	var row mysqlEntry
	err := s.query(ctx).
		Where("k = ?", key).
		Where("expires_at IS NULL OR expires_at > ?", time.Now()).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	value, err := decodeValue(key, row.Value)
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (s *mysqlStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if ttl < 0 {
		return ErrInvalidTTL(ttl)
	}
	if ttl == 0 {
		ttl = s.ttl
	}
	data, err := encodeValue(key, value)
	if err != nil {
		return err
	}
	row := mysqlEntry{Key: key, Value: data}
	if ttl > 0 {
		expiresAt := time.Now().Add(ttl)
		row.ExpiresAt = &expiresAt
	}
	return s.query(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&row).Error
}

func (s *mysqlStore) Delete(ctx context.Context, key string) error {
	if s.closed.Load() {
		return ErrClosed
	}
	return s.query(ctx).Where("k = ?", key).Delete(&mysqlEntry{}).Error
}

func (s *mysqlStore) Clear(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	res := s.query(ctx).Where("1 = 1").Delete(&mysqlEntry{})
	if res.Error != nil {
		return res.Error
	}
	s.logger.Debug("mysql table cleared",
		zap.String("table", s.table),
		zap.Int64("deleted", res.RowsAffected),
	)
	s.Emit(EventClear, Event{})
	return nil
}

func (s *mysqlStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := s.database.Close()
	s.Emit(EventClose, Event{Err: err})
	return err
}
