package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/relaygate/auth"
	"github.com/kbukum/relaygate/auth/jwt"
	"github.com/kbukum/relaygate/logger"
	"github.com/kbukum/relaygate/registry"
	"github.com/kbukum/relaygate/resilience"
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

// countingStore records how often the request path consulted the registry.
type countingStore struct {
	registry.Store
	resolves atomic.Int32
}

func (s *countingStore) Resolve(ctx context.Context, name string) (string, error) {
	s.resolves.Add(1)
	return s.Store.Resolve(ctx, name)
}

func newStore(clock *fakeClock) *countingStore {
	return &countingStore{Store: registry.NewMemoryStore(registry.Options{Now: clock.Now})}
}

func registerUp(t *testing.T, store registry.Store, name, address string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.Register(ctx, name, address))
	require.NoError(t, store.UpdateStatus(ctx, name, address, registry.StatusUp))
}

func newBackend(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

type harness struct {
	clock   *fakeClock
	store   *countingStore
	gateway *Gateway
	engine  *gin.Engine
	tokens  *jwt.Service[*Claims]
}

func newHarness(t *testing.T, mutate ...func(*Config)) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	clock := newFakeClock()
	store := newStore(clock)

	cfg := Config{
		ForwardTimeout: 2 * time.Second,
		Breaker:        resilience.BreakerConfig{Threshold: 3, Cooldown: time.Minute, Now: clock.Now},
	}
	cfg.Auth.JWT.Now = clock.Now
	for _, m := range mutate {
		m(&cfg)
	}

	prober, err := registry.NewProber(store, registry.ProberConfig{Timeout: time.Second}, logger.Nop())
	require.NoError(t, err)

	gw, err := New("api-gateway", cfg, store, prober, logger.Nop(), WithClock(clock.Now))
	require.NoError(t, err)

	jwtCfg := jwt.Config{Secret: auth.DefaultSecret, Now: clock.Now}
	tokens, err := jwt.NewService(&jwtCfg, NewClaims)
	require.NoError(t, err)

	engine := gin.New()
	gw.Register(engine)
	return &harness{clock: clock, store: store, gateway: gw, engine: engine, tokens: tokens}
}

func (h *harness) token(t *testing.T) string {
	t.Helper()
	tok, err := h.tokens.GenerateAccess(&Claims{ID: "u-1", Email: "ana@example.com"})
	require.NoError(t, err)
	return tok
}

func (h *harness) do(method, target, token string, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, http.NoBody)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.engine.ServeHTTP(rr, req)
	return rr
}
