package middleware_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kbukum/relaygate/logger"
	"github.com/kbukum/relaygate/server/middleware"
)

func captureLogger(level string) (*logger.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return logger.NewWithWriter(&logger.Config{Level: level, Format: logger.FormatJSON}, "api-gateway", &buf), &buf
}

func TestRequestLoggerLevelFollowsStatus(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{http.StatusOK, "debug"},
		{http.StatusNotFound, "warn"},
		{http.StatusServiceUnavailable, "error"},
	}
	for _, tt := range tests {
		log, buf := captureLogger("debug")
		h := middleware.RequestLogger(log)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tt.status)
			_, _ = w.Write([]byte("body"))
		}))
		serve(h, httptest.NewRequest(http.MethodPost, "/api/lists", http.NoBody))

		var line map[string]interface{}
		if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
			t.Fatalf("status %d: bad log line %q: %v", tt.status, buf.String(), err)
		}
		if line["level"] != tt.level {
			t.Errorf("status %d: level %v, want %s", tt.status, line["level"], tt.level)
		}
		if line["path"] != "/api/lists" || line["status"] != float64(tt.status) || line["bytes"] != float64(4) {
			t.Errorf("status %d: unexpected fields %v", tt.status, line)
		}
	}
}

func TestRequestLoggerSkipsProbes(t *testing.T) {
	log, buf := captureLogger("debug")
	h := middleware.RequestLogger(log)(okHandler)
	for _, p := range []string{"/health", "/ready", "/metrics"} {
		if rr := serve(h, get(p)); rr.Code != http.StatusOK {
			t.Fatalf("%s: handler not reached", p)
		}
	}
	if buf.Len() != 0 {
		t.Errorf("probe paths should not be logged: %s", buf.String())
	}
}

type flushRecorder struct {
	*httptest.ResponseRecorder
	flushed bool
}

func (f *flushRecorder) Flush() { f.flushed = true }

func TestRequestLoggerKeepsFlusher(t *testing.T) {
	log, _ := captureLogger("info")
	h := middleware.RequestLogger(log)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}))
	fr := &flushRecorder{ResponseRecorder: httptest.NewRecorder()}
	h.ServeHTTP(fr, get("/api/media/upload"))
	if !fr.flushed {
		t.Error("Flush not delegated to the underlying writer")
	}
}
