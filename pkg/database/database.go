// Package database owns the record store's PostgreSQL pool and ties its
// readiness to the lifecycle coordinator.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/JaimeStill/licita/pkg/lifecycle"
)

// ErrNotReady is logged when the startup ping fails.
var ErrNotReady = errors.New("database not ready")

// System is the database as seen by the rest of the service.
type System interface {
	// Connection returns the pool. It is usable before Start; queries
	// simply fail until the server is reachable.
	Connection() *sql.DB
	// Start pings on startup and closes the pool on shutdown.
	Start(lc *lifecycle.Coordinator) error
	// Ready reports whether the startup ping succeeded.
	Ready() bool
}

type pool struct {
	db          *sql.DB
	logger      *slog.Logger
	pingTimeout time.Duration
	ready       atomic.Bool
}

// New opens the pool for cfg without connecting.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	db, err := sql.Open("pgx", cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetimeDuration())

	return &pool{
		db:          db,
		logger:      logger.With("system", "database"),
		pingTimeout: cfg.ConnTimeoutDuration(),
	}, nil
}

func (p *pool) Connection() *sql.DB { return p.db }

func (p *pool) Ready() bool { return p.ready.Load() }

func (p *pool) Start(lc *lifecycle.Coordinator) error {
	lc.Register("database", p)
	lc.OnStartup(func() { p.ping(lc.Context()) })
	lc.OnShutdown(func() {
		<-lc.Context().Done()
		p.close()
	})
	return nil
}

func (p *pool) ping(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.pingTimeout)
	defer cancel()

	if err := p.db.PingContext(ctx); err != nil {
		p.logger.Error("ping failed", "error", fmt.Errorf("%w: %w", ErrNotReady, err))
		return
	}
	p.ready.Store(true)
	p.logger.Info("connected")
}

func (p *pool) close() {
	p.ready.Store(false)
	if err := p.db.Close(); err != nil {
		p.logger.Error("close failed", "error", err)
		return
	}
	p.logger.Info("closed")
}
