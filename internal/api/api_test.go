package api_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JaimeStill/licita/internal/api"
	"github.com/JaimeStill/licita/internal/config"
	"github.com/JaimeStill/licita/internal/infrastructure"
	"github.com/JaimeStill/licita/pkg/database"
	"github.com/JaimeStill/licita/pkg/middleware"
	"github.com/JaimeStill/licita/pkg/module"
	"github.com/JaimeStill/licita/pkg/pagination"
	"github.com/JaimeStill/licita/pkg/storage"
)

const azuriteConnString = "DefaultEndpointsProtocol=http;AccountName=devstoreaccount1;AccountKey=Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw==;BlobEndpoint=http://127.0.0.1:10000/devstoreaccount1;"

func validConfig() *config.Config {
	return &config.Config{
		Database: database.Config{
			Host:            "localhost",
			Port:            5432,
			Name:            "licita",
			User:            "licita",
			Password:        "licita",
			SSLMode:         "disable",
			MaxOpenConns:    5,
			MaxIdleConns:    1,
			ConnMaxLifetime: "15m",
			ConnTimeout:     "5s",
		},
		Storage: storage.Config{
			ContainerName:    "workspaces",
			ConnectionString: azuriteConnString,
			MaxListSize:      100,
		},
		API: config.APIConfig{
			BasePath:      "/api",
			MaxUploadSize: "1MB",
			Pagination:    pagination.Config{DefaultPageSize: 25, MaxPageSize: 200},
		},
	}
}

func TestNewModule(t *testing.T) {
	cfg := validConfig()
	infra, err := infrastructure.New(cfg)
	if err != nil {
		t.Fatalf("infrastructure.New: %v", err)
	}

	m, err := api.NewModule(cfg, infra)
	if err != nil {
		t.Fatalf("NewModule: %v", err)
	}
	if m.Prefix() != "/api" {
		t.Errorf("Prefix() = %q, want /api", m.Prefix())
	}

	router := module.NewRouter()
	if err := router.Mount(m); err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/unknown", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown route status = %d, want 404", rec.Code)
	}
	if rec.Header().Get(middleware.CorrelationHeader) == "" {
		t.Error("response is missing the correlation header")
	}
}
