package api

import (
	"net/http"

	"github.com/JaimeStill/licita/internal/config"
	"github.com/JaimeStill/licita/pkg/routes"
)

func registerRoutes(mux *http.ServeMux, domain *Domain, cfg *config.Config) {
	routes.Register(
		mux,
		domain.Records.Handler().Routes(),
		domain.Registry.Handler().Routes(),
		domain.Files.Handler(cfg.API.MaxUploadSizeBytes()).Routes(),
	)
}
