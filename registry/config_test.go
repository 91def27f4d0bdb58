package registry

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/relaygate/component"
	"github.com/kbukum/relaygate/database"
	"github.com/kbukum/relaygate/logger"
	"github.com/kbukum/relaygate/redis"
)

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	assert.Equal(t, BackendSQLite, cfg.Backend)
	assert.Equal(t, StrategyFirstMatch, cfg.Strategy)
	assert.Equal(t, DefaultStaleAfter, cfg.StaleAfter)
	require.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{Backend: "etcd"}
	cfg.ApplyDefaults()
	assert.ErrorContains(t, cfg.Validate(), "backend")

	cfg = Config{Strategy: "least_conn"}
	cfg.ApplyDefaults()
	assert.ErrorContains(t, cfg.Validate(), "strategy")

	cfg = Config{Backend: BackendRedis}
	cfg.ApplyDefaults()
	assert.ErrorContains(t, cfg.Validate(), "redis.addr")
}

func TestOpenBackends(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	configs := map[string]Config{
		"memory": {Backend: BackendMemory},
		"sqlite": {Backend: BackendSQLite, SQLite: database.Config{Path: filepath.Join(t.TempDir(), "r.db")}},
		"redis":  {Backend: BackendRedis, Redis: redis.Config{Addr: mr.Addr()}},
	}
	for name, cfg := range configs {
		t.Run(name, func(t *testing.T) {
			store, err := Open(ctx, cfg, logger.Nop())
			require.NoError(t, err)
			require.NoError(t, store.Register(ctx, "svc", "http://a"))
			all, err := store.List(ctx)
			require.NoError(t, err)
			assert.Len(t, all, 1)
			require.NoError(t, store.Close())
		})
	}
}

func TestSQLStoreMigratesOnOpen(t *testing.T) {
	db, err := database.Open(context.Background(), database.Config{Path: filepath.Join(t.TempDir(), "fresh.db")}, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.False(t, db.GormDB.Migrator().HasTable(&instanceRecord{}))

	_, err = NewSQLStore(db, Options{})
	require.NoError(t, err)
	assert.True(t, db.GormDB.Migrator().HasTable(&instanceRecord{}))
}

func TestStoreComponent(t *testing.T) {
	ctx := context.Background()
	c := NewStoreComponent(Config{Backend: BackendMemory}, logger.Nop())
	assert.Equal(t, component.StatusUnhealthy, c.Health(ctx).Status)
	require.NoError(t, c.Start(ctx))
	assert.NotNil(t, c.Store())
	assert.Equal(t, component.StatusHealthy, c.Health(ctx).Status)
	require.NoError(t, c.Stop(ctx))
}
