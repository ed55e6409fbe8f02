package storage_test

import (
	"net/http"
	"testing"

	"github.com/JaimeStill/licita/pkg/storage"
)

func TestConfigFinalize(t *testing.T) {
	tests := []struct {
		name       string
		cfg        storage.Config
		wantErr    bool
		credential bool
	}{
		{"connection string", storage.Config{ConnectionString: "UseDevelopmentStorage=true"}, false, false},
		{"service url", storage.Config{ServiceURL: "https://acct.blob.core.windows.net"}, false, true},
		{"neither", storage.Config{}, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Finalize(nil)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Finalize() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if tt.cfg.ContainerName != "workspaces" {
				t.Errorf("container = %q, want workspaces", tt.cfg.ContainerName)
			}
			if tt.cfg.UsesCredential() != tt.credential {
				t.Errorf("UsesCredential() = %v, want %v", tt.cfg.UsesCredential(), tt.credential)
			}
		})
	}
}

func TestConfigEnv(t *testing.T) {
	t.Setenv("TEST_STORAGE_CONTAINER", "bids")
	t.Setenv("TEST_STORAGE_CONN", "UseDevelopmentStorage=true")

	var cfg storage.Config
	err := cfg.Finalize(&storage.Env{ContainerName: "TEST_STORAGE_CONTAINER", ConnectionString: "TEST_STORAGE_CONN"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ContainerName != "bids" {
		t.Errorf("container = %q, want bids", cfg.ContainerName)
	}
}

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{storage.ErrNotFound, http.StatusNotFound},
		{storage.ErrEmptyKey, http.StatusBadRequest},
		{storage.ErrInvalidKey, http.StatusBadRequest},
		{http.ErrBodyNotAllowed, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := storage.MapHTTPStatus(tt.err); got != tt.want {
			t.Errorf("MapHTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
