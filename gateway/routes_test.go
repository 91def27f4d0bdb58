package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRoutesAreValid(t *testing.T) {
	table, err := NewRouteTable(DefaultRoutes())
	require.NoError(t, err)
	assert.Len(t, table.Rules(), len(DefaultRoutes()))
}

func TestMatchStaticBeatsParam(t *testing.T) {
	for _, rules := range [][]RouteRule{
		{
			{Method: "GET", Pattern: "/api/items/:id", Destination: ItemService, Rewrite: "/items/:id"},
			{Method: "GET", Pattern: "/api/items/search", Destination: ItemService, Rewrite: "/search"},
		},
		{
			{Method: "GET", Pattern: "/api/items/search", Destination: ItemService, Rewrite: "/search"},
			{Method: "GET", Pattern: "/api/items/:id", Destination: ItemService, Rewrite: "/items/:id"},
		},
	} {
		table := MustRouteTable(rules)

		m, ok := table.Match("GET", "/api/items/search")
		require.True(t, ok)
		assert.Equal(t, "/search", m.Path)

		m, ok = table.Match("GET", "/api/items/42")
		require.True(t, ok)
		assert.Equal(t, "/items/42", m.Path)
		assert.Equal(t, map[string]string{"id": "42"}, m.Params)
	}
}

func TestMatchRewrite(t *testing.T) {
	table := MustRouteTable(DefaultRoutes())

	tests := []struct {
		method, path string
		dest, target string
		auth         bool
	}{
		{"POST", "/api/auth/login", UserService, "/auth/login", false},
		{"GET", "/api/users/7", UserService, "/users/7", true},
		{"GET", "/api/items", ItemService, "/items", false},
		{"GET", "/api/items/categories", ItemService, "/categories", false},
		{"PUT", "/api/lists/l1/items/i2", ListService, "/lists/l1/items/i2", true},
		{"GET", "/api/lists/l1/summary", ListService, "/lists/l1/summary", true},
		{"GET", "/api/items/", ItemService, "/items", false},
		{"POST", "/api/media/upload", MediaService, "/upload", true},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			m, ok := table.Match(tt.method, tt.path)
			require.True(t, ok)
			assert.Equal(t, tt.dest, m.Rule.Destination)
			assert.Equal(t, tt.target, m.Path)
			assert.Equal(t, tt.auth, m.Rule.AuthRequired)
		})
	}
}

func TestMatchEscapesCapturedValues(t *testing.T) {
	table := MustRouteTable(DefaultRoutes())
	m, ok := table.Match("GET", "/api/items/a b")
	require.True(t, ok)
	assert.Equal(t, "a b", m.Params["id"])
	assert.Equal(t, "/items/a%20b", m.Path)
}

func TestMatchMisses(t *testing.T) {
	table := MustRouteTable(DefaultRoutes())
	for _, tc := range [][2]string{
		{"GET", "/api/unknown"},
		{"PATCH", "/api/items/1"},
		{"GET", "/api/lists/1/items/2/extra"},
		{"GET", "/"},
	} {
		_, ok := table.Match(tc[0], tc[1])
		assert.False(t, ok, "%s %s", tc[0], tc[1])
	}
}

func TestPassthroughWithoutRewrite(t *testing.T) {
	table := MustRouteTable([]RouteRule{{Method: "GET", Pattern: "/status/:svc", Destination: "ops"}})
	m, ok := table.Match("GET", "/status/db")
	require.True(t, ok)
	assert.Equal(t, "/status/db", m.Path)
}

func TestNewRouteTableRejects(t *testing.T) {
	valid := RouteRule{Method: "GET", Pattern: "/a/:id", Destination: "svc", Rewrite: "/b/:id"}
	tests := []struct {
		name  string
		rules []RouteRule
		msg   string
	}{
		{"empty", nil, "routes"},
		{"bad method", []RouteRule{{Method: "FETCH", Pattern: "/a", Destination: "svc"}}, "routes[0].method"},
		{"relative pattern", []RouteRule{{Method: "GET", Pattern: "a/b", Destination: "svc"}}, "routes[0].pattern"},
		{"missing destination", []RouteRule{{Method: "GET", Pattern: "/a"}}, "routes[0].destination"},
		{"unknown rewrite param", []RouteRule{{Method: "GET", Pattern: "/a/:id", Destination: "svc", Rewrite: "/b/:other"}}, ":other"},
		{"repeated param", []RouteRule{{Method: "GET", Pattern: "/a/:id/:id", Destination: "svc"}}, "repeats"},
		{"duplicate shape", []RouteRule{valid, {Method: "get", Pattern: "/a/:key", Destination: "other"}}, "conflicts"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRouteTable(tt.rules)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestMethodIsNormalized(t *testing.T) {
	table := MustRouteTable([]RouteRule{{Method: " post ", Pattern: "/x", Destination: "svc"}})
	_, ok := table.Match("POST", "/x")
	assert.True(t, ok)
}
