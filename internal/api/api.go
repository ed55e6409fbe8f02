// Package api assembles the record store API module: workspace records and
// workspace files behind CORS, correlation, logging, and request metrics.
package api

import (
	"net/http"

	"github.com/JaimeStill/licita/internal/config"
	"github.com/JaimeStill/licita/internal/infrastructure"
	"github.com/JaimeStill/licita/pkg/middleware"
	"github.com/JaimeStill/licita/pkg/module"
)

// NewModule creates the API module with all domain handlers and middleware.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, error) {
	runtime := NewRuntime(cfg, infra)
	domain := NewDomain(runtime)

	mux := http.NewServeMux()
	registerRoutes(mux, domain, cfg)

	metrics := middleware.NewMetrics(infra.Registry)

	m, err := module.New(cfg.API.BasePath, mux)
	if err != nil {
		return nil, err
	}
	m.Use(
		middleware.Correlation(),
		middleware.CORS(&cfg.API.CORS),
		middleware.Logger(runtime.Logger),
		metrics.Instrument(),
	)

	return m, nil
}
