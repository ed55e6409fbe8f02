package middleware_test

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/JaimeStill/licita/pkg/middleware"
)

func ok(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestChainOrder(t *testing.T) {
	var order []string
	tag := func(name string) middleware.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	var chain middleware.Chain
	chain.Use(tag("outer"), tag("inner"))
	h := chain.Then(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	if want := []string{"outer", "inner", "handler"}; !slices.Equal(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestCorrelation(t *testing.T) {
	var seen string
	h := middleware.Correlation()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = middleware.CorrelationID(r.Context())
	}))

	t.Run("assigns", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
		got := rec.Header().Get(middleware.CorrelationHeader)
		if len(got) != 26 {
			t.Errorf("generated id %q is not a ULID", got)
		}
		if seen != got {
			t.Errorf("context id %q, header %q", seen, got)
		}
	})

	t.Run("reuses", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set(middleware.CorrelationHeader, "abc")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Header().Get(middleware.CorrelationHeader) != "abc" || seen != "abc" {
			t.Errorf("inbound id not reused")
		}
	})
}

func TestCORS(t *testing.T) {
	cfg := &middleware.CORSConfig{Enabled: true, Origins: []string{"http://desk.local"}}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatal(err)
	}
	h := middleware.CORS(cfg)(http.HandlerFunc(ok))

	tests := []struct {
		name   string
		method string
		origin string
		status int
		allow  string
	}{
		{"allowed origin", "GET", "http://desk.local", http.StatusOK, "http://desk.local"},
		{"other origin", "GET", "http://evil.local", http.StatusOK, ""},
		{"preflight", "OPTIONS", "http://desk.local", http.StatusNoContent, "http://desk.local"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.allow {
				t.Errorf("allow origin = %q, want %q", got, tt.allow)
			}
		})
	}
}

func TestCORSDisabled(t *testing.T) {
	h := middleware.CORS(&middleware.CORSConfig{Origins: []string{"http://desk.local"}})(http.HandlerFunc(ok))
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Origin", "http://desk.local")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("headers set while disabled")
	}
}

func TestCORSEnv(t *testing.T) {
	t.Setenv("TEST_CORS_ORIGINS", "http://a.local, http://b.local,")
	t.Setenv("TEST_CORS_MAX_AGE", "60")

	var cfg middleware.CORSConfig
	if err := cfg.Finalize(&middleware.CORSEnv{Origins: "TEST_CORS_ORIGINS", MaxAge: "TEST_CORS_MAX_AGE"}); err != nil {
		t.Fatal(err)
	}
	if want := []string{"http://a.local", "http://b.local"}; !slices.Equal(cfg.Origins, want) {
		t.Errorf("origins = %v, want %v", cfg.Origins, want)
	}
	if cfg.MaxAge != 60 {
		t.Errorf("max age = %d, want 60", cfg.MaxAge)
	}
}

func TestLoggerStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	h := middleware.Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/workspaces?x=1", nil))

	out := buf.String()
	for _, want := range []string{"level=ERROR", "status=502", "uri=\"/workspaces?x=1\""} {
		if !strings.Contains(out, want) {
			t.Errorf("log %q missing %q", out, want)
		}
	}
}

func TestMetricsInstrument(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := middleware.NewMetrics(reg)
	h := m.Instrument()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	for range 3 {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	}

	if got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "404")); got != 3 {
		t.Errorf("requests = %v, want 3", got)
	}
}
