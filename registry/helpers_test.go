package registry

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/relaygate/database"
	"github.com/kbukum/relaygate/logger"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// backend opens stores. peer returns a second handle on the same data,
// as another process sharing the backend would hold.
type backend struct {
	name string
	open func(t *testing.T, opts Options) Store
	peer func(t *testing.T, first Store, opts Options) Store
}

func backends(t *testing.T) []backend {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "registry.db")
	mr := miniredis.RunT(t)

	openSQL := func(t *testing.T, opts Options) Store {
		db, err := database.Open(context.Background(), database.Config{Path: dbPath}, logger.Nop())
		require.NoError(t, err)
		t.Cleanup(func() { _ = db.Close() })
		store, err := NewSQLStore(db, opts)
		require.NoError(t, err)
		return store
	}
	openRedis := func(t *testing.T, opts Options) Store {
		rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = rdb.Close() })
		return NewRedisStore(rdb, "test", opts)
	}

	return []backend{
		{
			name: "memory",
			open: func(_ *testing.T, opts Options) Store { return NewMemoryStore(opts) },
			peer: func(_ *testing.T, first Store, _ Options) Store { return first },
		},
		{
			name: "sqlite",
			open: openSQL,
			peer: func(t *testing.T, _ Store, opts Options) Store { return openSQL(t, opts) },
		},
		{
			name: "redis",
			open: openRedis,
			peer: func(t *testing.T, _ Store, opts Options) Store { return openRedis(t, opts) },
		},
	}
}

// faultyStore wraps a MemoryStore and injects failures.
type faultyStore struct {
	*MemoryStore
	listErr    error
	cleanupErr error
	panicOn    string
}

var errStoreDown = errors.New("store down")

func (f *faultyStore) List(ctx context.Context) ([]ServiceInstance, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.MemoryStore.List(ctx)
}

func (f *faultyStore) UpdateStatus(ctx context.Context, name, address string, status Status) error {
	if f.panicOn == address {
		panic("boom")
	}
	return f.MemoryStore.UpdateStatus(ctx, name, address, status)
}

func (f *faultyStore) Cleanup(ctx context.Context) (int, error) {
	if f.cleanupErr != nil {
		return 0, f.cleanupErr
	}
	return f.MemoryStore.Cleanup(ctx)
}

func find(t *testing.T, s Store, name, address string) (ServiceInstance, bool) {
	t.Helper()
	all, err := s.List(context.Background())
	require.NoError(t, err)
	for _, inst := range all {
		if inst.Name == name && inst.Address == address {
			return inst, true
		}
	}
	return ServiceInstance{}, false
}
