// Package reconcile keeps the local workspace cache consistent with the
// record store and with its persisted copy on disk.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/JaimeStill/licita/internal/cache"
	"github.com/JaimeStill/licita/internal/dedupe"
	"github.com/JaimeStill/licita/internal/recordstore"
	"github.com/JaimeStill/licita/internal/workspace"
)

// Config wires an Engine.
type Config struct {
	Cache    *cache.Cache
	Buffers  *cache.Buffers
	File     *cache.File
	Store    recordstore.Client
	Classify func(filename string) workspace.Route
}

// LoadResult summarises a reconciliation.
type LoadResult struct {
	// Count is the number of workspaces after reconciliation.
	Count int
	// Discarded is set when the persisted cache was corrupt and dropped.
	Discarded bool
	// Collapsed lists the ids removed as duplicates.
	Collapsed []string
	// Invalid lists the ids of remote records that only partially decoded.
	Invalid []string
}

// DeleteResult reports a workspace deletion.
type DeleteResult struct {
	Workspace workspace.Workspace
	// RemoteErr is the record store failure, if any. The local removal
	// happened regardless.
	RemoteErr error
}

// Engine reconciles local and remote workspace state.
type Engine struct {
	cfg    Config
	logger *slog.Logger
}

// New creates an Engine.
func New(cfg Config, logger *slog.Logger) *Engine {
	return &Engine{cfg: cfg, logger: logger.With("system", "reconcile")}
}

// Restore loads the persisted cache without contacting the record store.
// A corrupt file is discarded and reported through the result.
func (e *Engine) Restore() (LoadResult, error) {
	local, err := e.cfg.File.Load()
	if err != nil {
		if !errors.Is(err, cache.ErrCorrupt) {
			return LoadResult{}, err
		}
		e.logger.Warn("discarding corrupt workspace cache", "path", e.cfg.File.Path(), "error", err)
		if err := e.cfg.File.Discard(); err != nil {
			return LoadResult{}, err
		}
		e.cfg.Cache.Replace(nil)
		return LoadResult{Discarded: true}, nil
	}

	e.cfg.Cache.Replace(local)
	return LoadResult{Count: e.cfg.Cache.Len()}, nil
}

// Load restores the persisted cache, then replaces it with the full remote
// list merged with local-only state. An empty remote list empties the cache.
// When the record store is unreachable the restored cache is kept and the
// error wraps ErrRemote.
func (e *Engine) Load(ctx context.Context) (LoadResult, error) {
	result, err := e.Restore()
	if err != nil {
		return result, err
	}

	records, err := e.cfg.Store.List(ctx)
	if err != nil {
		e.logger.Warn("record store unavailable, using cached workspaces", "error", err)
		return result, fmt.Errorf("%w: %w", ErrRemote, err)
	}

	local := make(map[string]workspace.Workspace, e.cfg.Cache.Len())
	for _, w := range e.cfg.Cache.List() {
		local[w.ID] = w
	}

	merged := make([]workspace.Workspace, 0, len(records))
	for _, rec := range records {
		remote, err := workspace.FromRecord(rec, e.cfg.Classify)
		if err != nil {
			e.logger.Warn("record partially decoded", "id", rec.ID, "error", err)
			result.Invalid = append(result.Invalid, remote.ID)
		}
		var match *workspace.Workspace
		if w, ok := local[remote.ID]; ok {
			match = &w
		}
		merged = append(merged, Merge(remote, match))
	}

	result.Collapsed = dedupe.Losers(merged)
	e.cfg.Cache.Replace(merged)
	result.Count = e.cfg.Cache.Len()

	if len(result.Collapsed) > 0 {
		e.logger.Info("collapsed duplicate workspaces", "ids", result.Collapsed)
	}
	if err := e.save(); err != nil {
		return result, err
	}

	e.logger.Info("workspaces reconciled", "remote", len(records), "local", len(local), "count", result.Count)
	return result, nil
}

// Delete removes a workspace locally and, best-effort, from the record
// store. The buffers of its sources are dropped.
func (e *Engine) Delete(ctx context.Context, id string) (DeleteResult, error) {
	var result DeleteResult
	if err := e.cfg.Store.Delete(ctx, id); err != nil && !errors.Is(err, recordstore.ErrNotFound) {
		e.logger.Warn("remote delete failed", "id", id, "error", err)
		result.RemoteErr = fmt.Errorf("%w: %w", ErrRemote, err)
	}

	w, err := e.cfg.Cache.Delete(id)
	if err != nil {
		return result, err
	}
	result.Workspace = w

	ids := make([]string, 0, len(w.Sources))
	for _, s := range w.Sources {
		ids = append(ids, s.ID)
	}
	e.cfg.Buffers.Drop(ids...)

	return result, e.save()
}

// Commit persists the full local state. When open is set the workspace's
// serializable fields are also pushed to the record store; a failed push
// wraps ErrRemote and leaves the local write in place.
func (e *Engine) Commit(ctx context.Context, id string, open bool) error {
	if err := e.save(); err != nil {
		return err
	}
	if !open {
		return nil
	}

	w, err := e.cfg.Cache.Get(id)
	if err != nil {
		return err
	}
	rec, err := w.Record()
	if err != nil {
		return err
	}
	if err := e.cfg.Store.Sync(ctx, rec); err != nil {
		e.logger.Warn("workspace sync failed", "id", id, "error", err)
		return fmt.Errorf("%w: %w", ErrRemote, err)
	}
	return nil
}

// Reindex asks the record store to rebuild its records from stored
// artifacts, then reconciles. It returns the number of recovered records.
func (e *Engine) Reindex(ctx context.Context) (int, LoadResult, error) {
	res, err := e.cfg.Store.Reindex(ctx)
	if err != nil {
		return 0, LoadResult{}, fmt.Errorf("%w: %w", ErrRemote, err)
	}
	e.logger.Info("record store reindexed", "inserted", res.Inserted)

	result, err := e.Load(ctx)
	return res.Inserted, result, err
}

func (e *Engine) save() error {
	if err := e.cfg.File.Save(e.cfg.Cache.List()); err != nil {
		return fmt.Errorf("persist workspace cache: %w", err)
	}
	return nil
}
