package database

import (
	"fmt"
	"strings"
	"time"
)

// Config holds the SQLite settings for the registry's SQL backend.
type Config struct {
	// Path is the database file. ":memory:" opens a private in-memory database.
	Path string `yaml:"path" mapstructure:"path"`
	// BusyTimeout is how long a writer waits on a locked database file.
	BusyTimeout time.Duration `yaml:"busy_timeout" mapstructure:"busy_timeout"`
	// JournalMode is the SQLite journal mode. WAL lets readers run beside the writer.
	JournalMode string `yaml:"journal_mode" mapstructure:"journal_mode"`

	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`

	// MaxRetries bounds open attempts at startup.
	MaxRetries         int           `yaml:"max_retries" mapstructure:"max_retries"`
	LogLevel           string        `yaml:"log_level" mapstructure:"log_level"`
	SlowQueryThreshold time.Duration `yaml:"slow_query_threshold" mapstructure:"slow_query_threshold"`
}

// ApplyDefaults fills zero fields.
func (c *Config) ApplyDefaults() {
	if c.Path == "" {
		c.Path = "registry.db"
	}
	if c.BusyTimeout <= 0 {
		c.BusyTimeout = 5 * time.Second
	}
	if c.JournalMode == "" {
		c.JournalMode = "WAL"
	}
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = 4
	}
	if c.ConnMaxLifetime <= 0 {
		c.ConnMaxLifetime = time.Hour
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.LogLevel == "" {
		c.LogLevel = "warn"
	}
	if c.SlowQueryThreshold <= 0 {
		c.SlowQueryThreshold = 200 * time.Millisecond
	}
}

// Validate checks the configuration after defaults are applied.
func (c *Config) Validate() error {
	switch strings.ToUpper(c.JournalMode) {
	case "WAL", "DELETE", "TRUNCATE", "MEMORY":
	default:
		return fmt.Errorf("database.journal_mode: unsupported mode %q", c.JournalMode)
	}
	switch strings.ToLower(c.LogLevel) {
	case "silent", "error", "warn", "info":
	default:
		return fmt.Errorf("database.log_level: unsupported level %q", c.LogLevel)
	}
	return nil
}

// DSN renders the go-sqlite3 connection string. Transactions take the write
// lock at BEGIN so read-modify-write sequences never interleave across processes.
func (c *Config) DSN() string {
	sep := "?"
	if strings.Contains(c.Path, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_busy_timeout=%d&_journal_mode=%s&_txlock=immediate",
		c.Path, sep, c.BusyTimeout.Milliseconds(), strings.ToUpper(c.JournalMode))
}

// inMemory reports whether Path names a private in-memory database, which
// exists once per connection and so must be pinned to a single one.
func (c *Config) inMemory() bool {
	return c.Path == ":memory:" || strings.HasPrefix(c.Path, "file::memory:")
}
