package gateway

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/relaygate/auth"
)

type envelope struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, body string) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal([]byte(body), &env), body)
	return env
}

func TestRouterUnknownRouteTouchesNothing(t *testing.T) {
	h := newHarness(t)

	rr := h.do(http.MethodGet, "/api/unknown", "", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "ROUTE_NOT_FOUND", decodeEnvelope(t, rr.Body.String()).Error.Code)
	assert.Zero(t, h.store.resolves.Load())
	assert.Empty(t, h.gateway.Breakers().Snapshot())
}

func TestRouterAuthGate(t *testing.T) {
	h := newHarness(t)

	rr := h.do(http.MethodGet, "/api/lists", "", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "UNAUTHORIZED", decodeEnvelope(t, rr.Body.String()).Error.Code)

	rr = h.do(http.MethodGet, "/api/lists", "not-a-jwt", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "INVALID_TOKEN", decodeEnvelope(t, rr.Body.String()).Error.Code)

	tok := h.token(t)
	h.clock.Advance(25 * time.Hour)
	rr = h.do(http.MethodGet, "/api/lists", tok, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "TOKEN_EXPIRED", decodeEnvelope(t, rr.Body.String()).Error.Code)

	assert.Zero(t, h.store.resolves.Load())
}

func TestRouterPublicRouteSkipsAuth(t *testing.T) {
	h := newHarness(t)
	backend := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/login", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"token":"t"}`)
	})
	registerUp(t, h.store, UserService, backend.URL)

	rr := h.do(http.MethodPost, "/api/auth/login", "", `{"email":"a@b.c"}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"token":"t"}`, rr.Body.String())
}

func TestRouterForwardsAndRelays(t *testing.T) {
	h := newHarness(t)
	backend := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/items/42", r.URL.Path)
		assert.Equal(t, "expand=true", r.URL.RawQuery)
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":"42"}`)
	})
	registerUp(t, h.store, ItemService, backend.URL)

	rr := h.do(http.MethodGet, "/api/items/42?expand=true", "", "")
	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "application/json; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"id":"42"}`, rr.Body.String())
	assert.EqualValues(t, 1, h.store.resolves.Load())
}

func TestRouterRelaysDownstreamErrorVerbatim(t *testing.T) {
	h := newHarness(t)
	backend := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"name":""}`, string(body))
		assert.Equal(t, "Bearer", strings.Fields(r.Header.Get("Authorization"))[0])
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = io.WriteString(w, `{"message":"name required"}`)
	})
	registerUp(t, h.store, ListService, backend.URL)

	rr := h.do(http.MethodPost, "/api/lists", h.token(t), `{"name":""}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.JSONEq(t, `{"message":"name required"}`, rr.Body.String())
	assert.Equal(t, 0, h.gateway.Breakers().Failures(ListService))
}

func TestRouterNoInstance(t *testing.T) {
	h := newHarness(t)

	rr := h.do(http.MethodGet, "/api/items", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	env := decodeEnvelope(t, rr.Body.String())
	assert.Equal(t, "NO_HEALTHY_INSTANCE", env.Error.Code)
	assert.Equal(t, ItemService, env.Error.Details["service"])
}

func TestRouterAuthOnByDefault(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.Auth = auth.Config{} })
	backend := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	registerUp(t, h.store, ListService, backend.URL)

	for _, tc := range []struct{ method, target string }{
		{http.MethodDelete, "/api/lists/l1"},
		{http.MethodGet, "/api/search?q=x"},
		{http.MethodGet, "/api/dashboard"},
	} {
		rr := h.do(tc.method, tc.target, "", "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code, tc.target)
	}
}

func TestRouterAuthDisabled(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.Auth.Disabled = true })
	backend := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	registerUp(t, h.store, ListService, backend.URL)

	rr := h.do(http.MethodDelete, "/api/lists/l1", "", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
}
