package redis

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kbukum/relaygate/logger"
	"github.com/kbukum/relaygate/resilience"
)

// Client is a go-redis client bound to a key namespace. It embeds the
// go-redis client, so it can be handed to anything that takes one.
type Client struct {
	goredis.UniversalClient
	prefix string
	log    *logger.Logger

	closeOnce sync.Once
	closeErr  error
}

// Connect creates a client and pings it, retrying while the server is not
// yet reachable.
func Connect(ctx context.Context, cfg Config, log *logger.Logger) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("redis config: %w", err)
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	log = log.WithComponent("redis")

	rdb := goredis.NewUniversalClient(&goredis.UniversalOptions{
		Addrs:        []string{cfg.Addr},
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.OpTimeout,
		WriteTimeout: cfg.OpTimeout,
	})

	err := resilience.RetryFunc(ctx, resilience.RetryConfig{
		MaxAttempts:    cfg.ConnectAttempts,
		InitialBackoff: 200 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
		BackoffFactor:  2,
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			log.Warn("Redis not reachable, retrying", logger.Fields(
				"attempt", attempt,
				"backoff", backoff.String(),
				"error", err.Error(),
			))
		},
	}, func() error {
		return rdb.Ping(ctx).Err()
	})
	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}

	log.Info("Redis connected", logger.Fields("addr", cfg.Addr, "db", cfg.DB, "prefix", cfg.KeyPrefix))
	return &Client{UniversalClient: rdb, prefix: cfg.KeyPrefix, log: log}, nil
}

// Prefix returns the key namespace.
func (c *Client) Prefix() string { return c.prefix }

// Key joins parts under the namespace with ':'.
func (c *Client) Key(parts ...string) string {
	return c.prefix + ":" + strings.Join(parts, ":")
}

// Close closes the pool once; later calls return the first result.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.log.Info("Closing Redis connection")
		c.closeErr = c.UniversalClient.Close()
	})
	return c.closeErr
}
