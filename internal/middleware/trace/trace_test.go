package trace

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fintrack/internal/log"
)

func TestMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Level: slog.LevelDebug, Component: log.ComponentHTTP, Output: &buf})
	m := NewMiddleware(logger, func(*http.Request) string { return "198.51.100.1" })

	var seenID string
	var ctxLogger *log.Logger
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = GetRequestID(r.Context())
		ctxLogger = log.FromContext(r.Context())
		if r.URL.Path == "/boom" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("ok"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?account_id=2", nil))

	if !strings.HasPrefix(seenID, "req_") || rec.Header().Get(HeaderRequestID) != seenID {
		t.Fatalf("request id not propagated: ctx=%q header=%q", seenID, rec.Header().Get(HeaderRequestID))
	}
	if ctxLogger == nil || ctxLogger.Component() != log.ComponentHTTP {
		t.Fatal("request logger missing from context")
	}
	out := buf.String()
	for _, want := range []string{"HTTP request completed", "status_code=200", "client_ip=198.51.100.1", "request_id=" + seenID, `query="account_id=2"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q: %s", want, out)
		}
	}

	buf.Reset()
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))
	if !strings.Contains(buf.String(), "level=ERROR") || !strings.Contains(buf.String(), "status_code=500") {
		t.Errorf("expected error level for 500: %s", buf.String())
	}

	if got := m.GetMetrics(); got.TotalRequests != 2 || got.ServerErrors != 1 {
		t.Fatalf("unexpected metrics: %+v", got)
	}
}

func TestGenerateRequestIDUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := GenerateRequestID()
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
	if GetRequestID(httptest.NewRequest(http.MethodGet, "/", nil).Context()) != "" {
		t.Fatal("expected empty id without middleware")
	}
}
