package middleware_test

import (
	"bytes"
	"net/http"
	"strings"
	"testing"

	"github.com/kbukum/relaygate/logger"
	"github.com/kbukum/relaygate/server/middleware"
)

func TestRequestID(t *testing.T) {
	var seen string
	h := middleware.RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get(middleware.HeaderRequestID)
		w.WriteHeader(http.StatusOK)
	}))

	rr := serve(h, get("/"))
	if seen == "" || rr.Header().Get(middleware.HeaderRequestID) != seen {
		t.Errorf("generated id not shared: request %q, response %q", seen, rr.Header().Get(middleware.HeaderRequestID))
	}

	req := get("/")
	req.Header.Set(middleware.HeaderRequestID, "req-abc")
	rr = serve(h, req)
	if seen != "req-abc" || rr.Header().Get(middleware.HeaderRequestID) != "req-abc" {
		t.Errorf("inbound id not kept: %q", rr.Header().Get(middleware.HeaderRequestID))
	}
}

func TestRequestIDReachesLogs(t *testing.T) {
	var logs bytes.Buffer
	log := logger.NewWithWriter(&logger.Config{Level: "info", Format: logger.FormatJSON}, "api-gateway", &logs)
	h := middleware.RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.WithContext(r.Context()).Info("handled")
	}))

	req := get("/")
	req.Header.Set(middleware.HeaderRequestID, "req-log")
	serve(h, req)
	if !strings.Contains(logs.String(), `"request_id":"req-log"`) {
		t.Errorf("request id missing from log line: %s", logs.String())
	}
}
