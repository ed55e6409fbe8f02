package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JaimeStill/licita/internal/classifier"
	"github.com/JaimeStill/licita/internal/compliance"
	"github.com/JaimeStill/licita/internal/config"
	"github.com/JaimeStill/licita/internal/desk"
	"github.com/JaimeStill/licita/internal/extraction"
	"github.com/JaimeStill/licita/internal/ingest"
	"github.com/JaimeStill/licita/internal/recordstore"
	"github.com/JaimeStill/licita/pkg/httpclient"
)

// app carries the global flags and the desk built from them.
type app struct {
	configPath string
	verbose    bool
	metricsOut string

	out    io.Writer
	errOut io.Writer

	logger   *slog.Logger
	registry *prometheus.Registry
	store    *recordstore.HTTPClient
	desk     *desk.Desk
	unsub    func()
}

// open builds the desk from configuration and reconciles it with the
// record store.
func (a *app) open(ctx context.Context) (*desk.Desk, error) {
	if a.desk != nil {
		return a.desk, nil
	}

	level := slog.LevelWarn
	if a.verbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(a.errOut, &slog.HandlerOptions{Level: level}))

	cfg, err := config.LoadDesk(a.configPath)
	if err != nil {
		return nil, err
	}

	rules, err := classifier.Load(cfg.RulesPath)
	if err != nil {
		return nil, fmt.Errorf("load classification rules: %w", err)
	}

	client := &http.Client{Timeout: cfg.RequestTimeoutDuration()}
	retries := httpclient.WithRetries(cfg.Retries)

	a.registry = prometheus.NewRegistry()
	a.store = recordstore.NewHTTPClient(cfg.RecordStoreURL, client, retries)
	a.desk = desk.New(desk.Config{
		Store:      a.store,
		Registry:   a.store,
		Extraction: extraction.NewHTTPBackend(cfg.ExtractionURL, client, a.logger, retries),
		Compliance: compliance.NewHTTPBackend(cfg.ComplianceURL, client, retries),
		CachePath:  cfg.CachePath,
		Classifier: rules,
		Metrics:    ingest.NewMetrics(a.registry),
	}, a.logger)

	a.unsub = a.desk.Subscribe(newPrinter(a.out, a.errOut, a.verbose).handle)

	if _, err := a.desk.Load(ctx); err != nil {
		return nil, err
	}
	return a.desk, nil
}

// close drains background work and writes the metrics textfile when one
// was requested.
func (a *app) close() error {
	if a.desk == nil {
		return nil
	}
	a.desk.Wait()
	a.unsub()
	if a.metricsOut != "" {
		if err := prometheus.WriteToTextfile(a.metricsOut, a.registry); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}
