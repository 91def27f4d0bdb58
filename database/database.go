package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kbukum/relaygate/logger"
	"github.com/kbukum/relaygate/resilience"
)

// DB wraps a GORM SQLite handle with the service logger.
type DB struct {
	GormDB *gorm.DB
	log    *logger.Logger
	cfg    Config
	closed bool
	mu     sync.Mutex
}

// Open opens the SQLite database described by cfg, retrying transient
// failures, and verifies it with a ping.
func Open(ctx context.Context, cfg Config, log *logger.Logger) (*DB, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return NewWithContext(ctx, sqlite.Open(cfg.DSN()), cfg, log)
}

// NewWithContext opens a database through an arbitrary dialector.
func NewWithContext(ctx context.Context, dialector gorm.Dialector, cfg Config, log *logger.Logger) (*DB, error) {
	cfg.ApplyDefaults()

	gormCfg := &gorm.Config{
		Logger: newGormLogger(log, cfg.SlowQueryThreshold, parseLogLevel(cfg.LogLevel)),
	}

	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = cfg.MaxRetries
	retry.OnRetry = func(attempt int, err error, backoff time.Duration) {
		log.Warn("Retrying database open", map[string]interface{}{
			"attempt": attempt,
			"backoff": backoff.String(),
			"error":   err.Error(),
		})
	}

	var gdb *gorm.DB
	err := resilience.RetryFunc(ctx, retry, func() error {
		db, err := gorm.Open(dialector, gormCfg)
		if err != nil {
			return err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			_ = sqlDB.Close()
			return err
		}
		gdb = db
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("open database after %d attempts: %w", cfg.MaxRetries, err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	maxOpen := cfg.MaxOpenConns
	if cfg.inMemory() {
		maxOpen = 1
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxOpen)
	if !cfg.inMemory() {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	log.Info("Database connected", map[string]interface{}{
		"path":         cfg.Path,
		"journal_mode": cfg.JournalMode,
	})

	return &DB{GormDB: gdb, log: log, cfg: cfg}, nil
}

// WithContext returns a GORM session bound to ctx.
func (d *DB) WithContext(ctx context.Context) *gorm.DB {
	return d.GormDB.WithContext(ctx)
}

// AutoMigrate creates or updates tables for the given models.
func (d *DB) AutoMigrate(models ...interface{}) error {
	return d.GormDB.AutoMigrate(models...)
}

// Transaction runs fn in a transaction, retrying the whole unit while the
// database file is locked by another writer.
func (d *DB) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	cfg := resilience.DefaultRetryConfig()
	cfg.MaxAttempts = 5
	cfg.InitialBackoff = 20 * time.Millisecond
	cfg.RetryIf = IsBusyError
	return resilience.RetryFunc(ctx, cfg, func() error {
		return d.GormDB.WithContext(ctx).Transaction(fn)
	})
}

// PingContext verifies the connection is alive.
func (d *DB) PingContext(ctx context.Context) error {
	sqlDB, err := d.GormDB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the underlying connection pool. It is safe to call twice.
func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	sqlDB, err := d.GormDB.DB()
	if err != nil {
		return err
	}
	d.log.Info("Closing database connection")
	return sqlDB.Close()
}
