package main

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JaimeStill/licita/internal/api"
	"github.com/JaimeStill/licita/internal/config"
	"github.com/JaimeStill/licita/internal/infrastructure"
	"github.com/JaimeStill/licita/pkg/module"
)

// Modules holds the mounted HTTP modules.
type Modules struct {
	API *module.Module
}

// NewModules builds every module from the shared infrastructure.
func NewModules(infra *infrastructure.Infrastructure, cfg *config.Config) (*Modules, error) {
	apiModule, err := api.NewModule(cfg, infra)
	if err != nil {
		return nil, err
	}
	return &Modules{API: apiModule}, nil
}

// Mount registers every module on router.
func (m *Modules) Mount(router *module.Router) error {
	return router.Mount(m.API)
}

func buildRouter(infra *infrastructure.Infrastructure) *module.Router {
	router := module.NewRouter()

	router.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusOK, map[string]any{"status": "healthy", "service": "licita-records"})
	})

	router.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		body := map[string]any{"status": "ready", "systems": infra.Lifecycle.Readiness()}
		if !infra.Lifecycle.Ready() {
			body["status"] = "not ready"
			respond(w, http.StatusServiceUnavailable, body)
			return
		}
		respond(w, http.StatusOK, body)
	})

	metrics := promhttp.HandlerFor(infra.Registry, promhttp.HandlerOpts{Registry: infra.Registry})
	router.HandleFunc("GET /metrics", metrics.ServeHTTP)

	return router
}

func respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
