package module_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JaimeStill/licita/pkg/module"
)

func echoPath(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte(r.URL.Path))
}

func TestNewPrefix(t *testing.T) {
	tests := []struct {
		prefix string
		want   string
		err    bool
	}{
		{"/api", "/api", false},
		{"/api/v1/", "/api/v1", false},
		{"api", "", true},
		{"", "", true},
		{"/api//v1", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			m, err := module.New(tt.prefix, http.HandlerFunc(echoPath))
			if tt.err {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if m.Prefix() != tt.want {
				t.Errorf("prefix = %q, want %q", m.Prefix(), tt.want)
			}
		})
	}
}

func TestRouterDispatch(t *testing.T) {
	api, _ := module.New("/api", http.HandlerFunc(echoPath))
	v2, _ := module.New("/api/v2", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("v2:" + r.URL.Path))
	}))

	api.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Module", "api")
			next.ServeHTTP(w, r)
		})
	})

	router := module.NewRouter()
	router.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("healthy"))
	})
	if err := router.Mount(api); err != nil {
		t.Fatal(err)
	}
	if err := router.Mount(v2); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		path   string
		body   string
		module string
	}{
		{"/api/workspaces/1", "/workspaces/1", "api"},
		{"/api/workspaces/", "/workspaces", "api"},
		{"/api", "/", "api"},
		{"/api/v2/reindex", "v2:/reindex", ""},
		{"/apiary", "404 page not found\n", ""},
		{"/healthz", "healthy", ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest("GET", tt.path, nil))
			if rec.Body.String() != tt.body {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.body)
			}
			if got := rec.Header().Get("X-Module"); got != tt.module {
				t.Errorf("module header = %q, want %q", got, tt.module)
			}
		})
	}
}

func TestMountDuplicate(t *testing.T) {
	a, _ := module.New("/api", http.NotFoundHandler())
	b, _ := module.New("/api/", http.NotFoundHandler())

	router := module.NewRouter()
	if err := router.Mount(a); err != nil {
		t.Fatal(err)
	}
	if err := router.Mount(b); err == nil {
		t.Error("expected duplicate prefix error")
	}
}
