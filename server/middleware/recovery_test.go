package middleware_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/kbukum/relaygate/logger"
	"github.com/kbukum/relaygate/server/middleware"
)

func TestRecovery(t *testing.T) {
	var logs bytes.Buffer
	log := logger.NewWithWriter(&logger.Config{Level: "info", Format: logger.FormatJSON}, "api-gateway", &logs)

	t.Run("passes through", func(t *testing.T) {
		rr := serve(middleware.Recovery(log)(okHandler), get("/"))
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
	})

	t.Run("panic becomes internal error", func(t *testing.T) {
		h := middleware.Recovery(log)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("route table corrupted")
		}))
		rr := serve(h, get("/api/items"))
		if rr.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rr.Code)
		}
		var body struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
			t.Fatalf("invalid envelope: %v", err)
		}
		if body.Error.Code != "INTERNAL_ERROR" {
			t.Errorf("unexpected code %q", body.Error.Code)
		}
		if !strings.Contains(logs.String(), "route table corrupted") {
			t.Errorf("panic not logged: %s", logs.String())
		}
	})

	t.Run("abort handler is re-raised", func(t *testing.T) {
		h := middleware.Recovery(log)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic(http.ErrAbortHandler)
		}))
		defer func() {
			if rec := recover(); rec != http.ErrAbortHandler {
				t.Errorf("expected ErrAbortHandler, got %v", rec)
			}
		}()
		serve(h, get("/"))
	})
}
