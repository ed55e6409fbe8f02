// Package compliance builds a workspace's compliance checklist and refines
// the rendering of its critical points against canonical rules and the
// extracted text.
package compliance

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/JaimeStill/licita/internal/cache"
	"github.com/JaimeStill/licita/internal/workspace"
)

// RecordStore reads and writes workspace records in the record store.
type RecordStore interface {
	Get(ctx context.Context, id string) (workspace.Record, error)
	Sync(ctx context.Context, r workspace.Record) error
}

// Committer persists a workspace after a durable change.
type Committer interface {
	Commit(ctx context.Context, workspaceID string) error
}

// Config wires a Refiner.
type Config struct {
	Backend   Backend
	Store     RecordStore
	Cache     *cache.Cache
	Committer Committer
	Classify  func(filename string) workspace.Route
	// OnRender receives every successful render.
	OnRender func(View)
}

// Refiner runs the checklist and critical point phases for a workspace.
type Refiner struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a Refiner.
func New(cfg Config, logger *slog.Logger) *Refiner {
	return &Refiner{cfg: cfg, logger: logger.With("system", "compliance")}
}

// Run applies the checklist when the workspace has none, then refines its
// critical points. A checklist failure does not prevent refinement.
func (r *Refiner) Run(ctx context.Context, workspaceID string) error {
	if err := r.Apply(ctx, workspaceID); err != nil {
		r.logger.Warn("checklist build failed", "workspace", workspaceID, "error", err)
	}
	return r.Refine(ctx, workspaceID)
}

// Apply builds the compliance checklist of a workspace whose analysis has
// none, then replaces the local analysis with the stored one. The local
// record is pushed first so the service builds on the current analysis.
func (r *Refiner) Apply(ctx context.Context, workspaceID string) error {
	w, err := r.cfg.Cache.Get(workspaceID)
	if err != nil {
		return err
	}
	if w.Analysis == nil {
		return ErrNoAnalysis
	}
	if w.Analysis.HasChecklist() {
		return nil
	}

	local, err := w.Record()
	if err != nil {
		return err
	}
	if err := r.cfg.Store.Sync(ctx, local); err != nil {
		return fmt.Errorf("push workspace %s: %w", workspaceID, err)
	}

	result, err := r.cfg.Backend.ApplyChecklist(ctx, workspaceID, w.Analysis.EntityType.Trim())
	if err != nil {
		return err
	}

	rec, err := r.cfg.Store.Get(ctx, workspaceID)
	if err != nil {
		return fmt.Errorf("reload workspace %s: %w", workspaceID, err)
	}
	stored, err := workspace.FromRecord(rec, r.cfg.Classify)
	if err != nil {
		r.logger.Warn("stored record partially decoded", "workspace", workspaceID, "error", err)
	}
	if stored.Analysis == nil {
		return fmt.Errorf("reload workspace %s: %w", workspaceID, ErrNoAnalysis)
	}

	if !r.cfg.Cache.Update(workspaceID, func(w *workspace.Workspace) {
		w.Analysis = stored.Analysis
	}) {
		r.logger.Debug("dropping checklist for removed workspace", "workspace", workspaceID)
		return nil
	}

	r.logger.Info("checklist applied", "workspace", workspaceID, "items", result.ChecklistCount, "entity", result.Entity)
	r.commit(ctx, workspaceID)
	return nil
}

// Refine renders the critical points as extracted, then canonically
// recomputed, then annotated with textual evidence. A failing phase stops
// the sequence and leaves the previous render in place.
func (r *Refiner) Refine(ctx context.Context, workspaceID string) error {
	w, err := r.cfg.Cache.Get(workspaceID)
	if err != nil {
		return err
	}
	if w.Analysis == nil || !w.Analysis.Critical.Present() {
		return nil
	}

	portal, _ := strconv.ParseBool(w.Analysis.Portal.Trim())
	critical := w.Analysis.Critical
	r.render(Render(workspaceID, StageInitial, portal, critical, nil))

	canon, err := r.cfg.Backend.Recompute(ctx, workspaceID)
	if err != nil {
		return fmt.Errorf("recompute critical points: %w", err)
	}
	if !canon.Critical.Present() {
		return fmt.Errorf("recompute critical points: %w", ErrEmptyReply)
	}
	critical = &canon.Critical
	if !r.cfg.Cache.Update(workspaceID, func(w *workspace.Workspace) {
		if w.Analysis == nil {
			return
		}
		cp := canon.Critical
		w.Analysis.Critical = &cp
		w.Analysis.Portal = workspace.Text(strconv.FormatBool(canon.Portal))
	}) {
		return nil
	}
	r.commit(ctx, workspaceID)
	r.render(Render(workspaceID, StageCanonical, canon.Portal, critical, nil))

	report, err := r.cfg.Backend.Evidence(ctx, workspaceID)
	if err != nil {
		return fmt.Errorf("critical point evidence: %w", err)
	}
	if !r.cfg.Cache.Has(workspaceID) {
		return nil
	}
	r.render(Render(workspaceID, StageAnnotated, canon.Portal, critical, &report))
	return nil
}

func (r *Refiner) render(v View) {
	if r.cfg.OnRender != nil {
		r.cfg.OnRender(v)
	}
}

func (r *Refiner) commit(ctx context.Context, workspaceID string) {
	if r.cfg.Committer == nil {
		return
	}
	if err := r.cfg.Committer.Commit(ctx, workspaceID); err != nil {
		r.logger.Warn("commit failed", "workspace", workspaceID, "error", err)
	}
}
