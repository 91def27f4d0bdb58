package middleware_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/relaygate/auth"
	"github.com/kbukum/relaygate/auth/authctx"
	"github.com/kbukum/relaygate/server/middleware"
)

func TestAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	validator := auth.NewValidator(func(token string) (any, error) {
		if token == "good" {
			return "user-1", nil
		}
		return nil, errors.New("bad signature")
	})

	engine := gin.New()
	engine.GET("/private", middleware.Auth(validator), func(c *gin.Context) {
		fromGin, _ := c.Get(middleware.ClaimsKey)
		fromCtx, _ := authctx.Get[string](c.Request.Context())
		c.String(http.StatusOK, "%v|%s", fromGin, fromCtx)
	})

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"missing", "", http.StatusUnauthorized, ""},
		{"invalid", "Bearer nope", http.StatusUnauthorized, ""},
		{"valid", "Bearer good", http.StatusOK, "user-1|user-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/private", http.NoBody)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			engine.ServeHTTP(rr, req)
			if rr.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rr.Code)
			}
			if tt.body != "" && rr.Body.String() != tt.body {
				t.Errorf("expected body %q, got %q", tt.body, rr.Body.String())
			}
		})
	}
}
