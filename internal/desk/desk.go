// Package desk is the owned state of a licita session: the workspace cache,
// the source byte buffers, and the open workspace, with every user operation
// on them and a single subscription point for the resulting events.
package desk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/JaimeStill/licita/internal/cache"
	"github.com/JaimeStill/licita/internal/classifier"
	"github.com/JaimeStill/licita/internal/compliance"
	"github.com/JaimeStill/licita/internal/extraction"
	"github.com/JaimeStill/licita/internal/ingest"
	"github.com/JaimeStill/licita/internal/reconcile"
	"github.com/JaimeStill/licita/internal/recordstore"
	"github.com/JaimeStill/licita/internal/workspace"
)

// Config wires a Desk to its collaborators.
type Config struct {
	Store      recordstore.Client
	Extraction extraction.Backend
	Compliance compliance.Backend
	// Registry receives the bids and companies found in processed sources.
	// Nil disables registration.
	Registry recordstore.Registry
	// CachePath is the persisted workspace cache file.
	CachePath  string
	Classifier *classifier.Classifier
	Metrics    *ingest.Metrics
}

// Desk owns the session state.
type Desk struct {
	store      recordstore.Client
	registry   recordstore.Registry
	classifier *classifier.Classifier
	cache      *cache.Cache
	buffers    *cache.Buffers
	engine     *reconcile.Engine
	pipeline   *ingest.Pipeline
	refiner    *compliance.Refiner
	logger     *slog.Logger

	mu     sync.Mutex
	active string

	subMu   sync.RWMutex
	subs    []subscriber
	nextSub int

	background sync.WaitGroup
}

// New creates a Desk. Call Load before use to populate the cache.
func New(cfg Config, logger *slog.Logger) *Desk {
	if cfg.Classifier == nil {
		cfg.Classifier = classifier.Default()
	}

	d := &Desk{
		store:      cfg.Store,
		registry:   cfg.Registry,
		classifier: cfg.Classifier,
		cache:      cache.New(nil),
		buffers:    cache.NewBuffers(),
		logger:     logger.With("system", "desk"),
	}

	d.engine = reconcile.New(reconcile.Config{
		Cache:    d.cache,
		Buffers:  d.buffers,
		File:     cache.NewFile(cfg.CachePath),
		Store:    cfg.Store,
		Classify: cfg.Classifier.Classify,
	}, logger)

	d.refiner = compliance.New(compliance.Config{
		Backend:   cfg.Compliance,
		Store:     cfg.Store,
		Cache:     d.cache,
		Committer: d,
		Classify:  cfg.Classifier.Classify,
		OnRender: func(v compliance.View) {
			d.publish(Event{Kind: EventComplianceRendered, WorkspaceID: v.WorkspaceID, View: &v})
		},
	}, logger)

	d.pipeline = ingest.New(ingest.Config{
		Cache:      d.cache,
		Buffers:    d.buffers,
		Store:      cfg.Store,
		Backend:    cfg.Extraction,
		Classifier: cfg.Classifier,
		Committer:  d,
		Metrics:    cfg.Metrics,
		Hooks: ingest.Hooks{
			OnNotice: func(n ingest.Notice) {
				d.publish(Event{Kind: EventNotice, WorkspaceID: n.WorkspaceID, SourceID: n.SourceID, Level: n.Level, Message: n.Message})
			},
			OnProgress: func(p ingest.Progress) {
				d.publish(Event{Kind: EventProgress, WorkspaceID: p.WorkspaceID, SourceID: p.SourceID, Progress: p.Value, Message: p.Message})
			},
			OnChange:   d.changed,
			OnAnalysis: d.refineAsync,
			OnComplete: d.register,
		},
	}, logger)

	return d
}

// Load reconciles the persisted cache with the record store. With the store
// unreachable the persisted cache is used and a warning notice is raised.
func (d *Desk) Load(ctx context.Context) (reconcile.LoadResult, error) {
	result, err := d.engine.Load(ctx)
	if result.Discarded {
		d.notify("", ingest.LevelWarning, "local workspace cache was corrupt and has been rebuilt")
	}
	if err != nil {
		if errors.Is(err, reconcile.ErrRemote) {
			d.notify("", ingest.LevelWarning, "record store unavailable; showing cached workspaces")
			return result, nil
		}
		return result, err
	}
	return result, nil
}

// List returns every workspace.
func (d *Desk) List() []workspace.Workspace {
	return d.cache.List()
}

// Get returns a workspace by id.
func (d *Desk) Get(id string) (workspace.Workspace, error) {
	return d.cache.Get(id)
}

// Active returns the open workspace.
func (d *Desk) Active() (workspace.Workspace, bool) {
	d.mu.Lock()
	id := d.active
	d.mu.Unlock()
	if id == "" {
		return workspace.Workspace{}, false
	}
	w, err := d.cache.Get(id)
	return w, err == nil
}

func (d *Desk) isActive(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active == id
}

// Open makes id the open workspace and starts its compliance refinement in
// the background when it has an analysis.
func (d *Desk) Open(ctx context.Context, id string) (workspace.Workspace, error) {
	w, err := d.cache.Get(id)
	if err != nil {
		return workspace.Workspace{}, err
	}

	d.mu.Lock()
	d.active = id
	d.mu.Unlock()

	d.changed(id)
	if w.Analysis != nil {
		d.refineAsync(ctx, id)
	}
	return w, nil
}

// focus makes id the open workspace without refining it. Every operation
// that changes a workspace focuses it, so its changes reach the record
// store even when it was not opened in this session.
func (d *Desk) focus(id string) {
	if !d.cache.Has(id) {
		return
	}
	d.mu.Lock()
	d.active = id
	d.mu.Unlock()
}

// Close clears the open workspace.
func (d *Desk) Close() {
	d.mu.Lock()
	d.active = ""
	d.mu.Unlock()
}

// Create adds a new workspace, opens it, and pushes it to the record store.
func (d *Desk) Create(ctx context.Context, name string) (workspace.Workspace, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return workspace.Workspace{}, ErrEmptyName
	}

	w := workspace.New(name)
	if err := d.cache.Create(w); err != nil {
		return workspace.Workspace{}, err
	}

	d.mu.Lock()
	d.active = w.ID
	d.mu.Unlock()

	if err := d.Commit(ctx, w.ID); err != nil {
		return w, err
	}
	d.logger.Info("workspace created", "id", w.ID, "name", name)
	d.changed(w.ID)
	return w, nil
}

// Rename changes a workspace's name.
func (d *Desk) Rename(ctx context.Context, id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	if !d.cache.Update(id, func(w *workspace.Workspace) { w.Name = name }) {
		return cache.ErrNotFound
	}
	d.focus(id)
	if err := d.Commit(ctx, id); err != nil {
		return err
	}
	d.changed(id)
	return nil
}

// Delete removes a workspace locally and, best-effort, remotely.
func (d *Desk) Delete(ctx context.Context, id string) error {
	result, err := d.engine.Delete(ctx, id)
	if result.RemoteErr != nil {
		d.notify(id, ingest.LevelWarning, fmt.Sprintf("remote delete failed: %v", result.RemoteErr))
	}
	if err != nil {
		return err
	}

	d.pipeline.Forget(id)
	d.mu.Lock()
	if d.active == id {
		d.active = ""
	}
	d.mu.Unlock()

	d.logger.Info("workspace deleted", "id", id, "name", result.Workspace.Name)
	d.changed(id)
	return nil
}

// AddFile adds a source to a workspace, buffering its bytes and uploading
// them to the record store. A file whose name is already present replaces
// that source's bytes and is queued again, unless it is being processed.
func (d *Desk) AddFile(ctx context.Context, id, filename string, data []byte) (workspace.Source, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return workspace.Source{}, fmt.Errorf("%w: empty filename", workspace.ErrInvalidRecord)
	}

	route := d.classifier.Classify(filename)
	var added workspace.Source
	var busy bool
	if !d.cache.Update(id, func(w *workspace.Workspace) {
		if existing := w.SourceByName(filename); existing != nil {
			if existing.Status == workspace.StatusLoading {
				busy = true
				return
			}
			existing.Route = route
			existing.Label = route.Label()
			existing.Error = ""
			existing.Status = workspace.StatusPending
			if route == workspace.RouteRaw {
				existing.Status = workspace.StatusDone
			}
			added = *existing
			return
		}
		added = workspace.NewSource(filename, route)
		w.Sources = append(w.Sources, added)
	}) {
		return workspace.Source{}, cache.ErrNotFound
	}
	if busy {
		return workspace.Source{}, fmt.Errorf("%w: %s", ErrSourceBusy, filename)
	}
	d.focus(id)

	d.buffers.Put(added.ID, data)

	if err := d.store.Upload(ctx, id, filename, data); err != nil {
		d.logger.Warn("source upload failed", "workspace", id, "source", filename, "error", err)
		d.notify(id, ingest.LevelWarning, fmt.Sprintf("%s kept locally only: %v", filename, err))
	}

	if err := d.Commit(ctx, id); err != nil {
		return added, err
	}
	d.changed(id)
	return added, nil
}

// RemoveSource deletes a source, its buffered bytes, and, best-effort, its
// stored file.
func (d *Desk) RemoveSource(ctx context.Context, id, sourceID string) error {
	var removed workspace.Source
	var found bool
	if !d.cache.Update(id, func(w *workspace.Workspace) {
		removed, found = w.RemoveSource(sourceID)
	}) {
		return cache.ErrNotFound
	}
	if !found {
		return fmt.Errorf("%w: %s", workspace.ErrSourceNotFound, sourceID)
	}
	d.focus(id)

	d.buffers.Drop(sourceID)
	if err := d.store.DeleteFile(ctx, id, removed.Name); err != nil && !errors.Is(err, recordstore.ErrNotFound) {
		d.logger.Warn("remote file delete failed", "workspace", id, "source", removed.Name, "error", err)
		d.notify(id, ingest.LevelWarning, fmt.Sprintf("remote delete of %s failed: %v", removed.Name, err))
	}

	if err := d.Commit(ctx, id); err != nil {
		return err
	}
	d.changed(id)
	return nil
}

// Process runs one source through the ingestion pipeline.
func (d *Desk) Process(ctx context.Context, id, sourceID string) error {
	d.focus(id)
	return d.pipeline.Run(ctx, id, sourceID)
}

// ProcessAll runs every pending source of a workspace in order. With force
// set, processed and failed sources are run again as well.
func (d *Desk) ProcessAll(ctx context.Context, id string, force bool) error {
	d.focus(id)
	if !force {
		return d.pipeline.RunPending(ctx, id)
	}

	w, err := d.cache.Get(id)
	if err != nil {
		return err
	}
	var errs []error
	for _, s := range w.Sources {
		if s.Route == workspace.RouteRaw {
			continue
		}
		if err := d.pipeline.Run(ctx, id, s.ID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ToggleChecklist flips the audit state of a checklist item, referenced by
// its 1-based position or by its text, and returns the new state.
func (d *Desk) ToggleChecklist(ctx context.Context, id, item string) (bool, error) {
	w, err := d.cache.Get(id)
	if err != nil {
		return false, err
	}
	if w.Analysis == nil || !w.Analysis.HasChecklist() {
		return false, ErrNoChecklist
	}

	key, ok := checklistKey(w.Analysis.Checklist, item)
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrChecklistItem, item)
	}

	var state bool
	if !d.cache.Update(id, func(w *workspace.Workspace) {
		if w.AuditChecklist == nil {
			w.AuditChecklist = make(map[string]bool)
		}
		state = !w.AuditChecklist[key]
		w.AuditChecklist[key] = state
	}) {
		return false, cache.ErrNotFound
	}
	d.focus(id)

	if err := d.Commit(ctx, id); err != nil {
		return state, err
	}
	d.changed(id)
	return state, nil
}

// Reindex rebuilds the record store from its artifacts and reloads.
func (d *Desk) Reindex(ctx context.Context) (int, error) {
	inserted, result, err := d.engine.Reindex(ctx)
	if result.Discarded {
		d.notify("", ingest.LevelWarning, "local workspace cache was corrupt and has been rebuilt")
	}
	if err != nil {
		return inserted, err
	}
	d.changed("")
	return inserted, nil
}

// Files lists the stored files of a workspace.
func (d *Desk) Files(ctx context.Context, id string) ([]recordstore.File, error) {
	return d.store.ListFiles(ctx, id)
}

// Download returns a stored file of a workspace.
func (d *Desk) Download(ctx context.Context, id, filename string) ([]byte, error) {
	return d.store.Download(ctx, id, filename)
}

// Document returns the price document generated for a workspace in this
// session.
func (d *Desk) Document(id string) (ingest.Document, bool) {
	return d.pipeline.Document(id)
}

// Commit persists the cache and syncs id to the record store when it is
// the open or most recently changed workspace. A failed sync raises a warning notice; only local
// persistence failures are returned.
func (d *Desk) Commit(ctx context.Context, id string) error {
	err := d.engine.Commit(ctx, id, d.isActive(id))
	if errors.Is(err, reconcile.ErrRemote) {
		d.notify(id, ingest.LevelWarning, fmt.Sprintf("workspace not synced: %v", err))
		return nil
	}
	return err
}

// Wait blocks until background compliance runs finish.
func (d *Desk) Wait() {
	d.background.Wait()
}

func (d *Desk) refineAsync(ctx context.Context, id string) {
	ctx = context.WithoutCancel(ctx)
	d.background.Go(func() {
		if err := d.refiner.Run(ctx, id); err != nil {
			d.logger.Warn("compliance refinement failed", "workspace", id, "error", err)
			d.notify(id, ingest.LevelWarning, fmt.Sprintf("compliance refinement failed: %v", err))
			return
		}
		d.changed(id)
	})
}

// register records the tender of an analysed base document, or the company
// of a fiscal certificate, in the record store's registry. It runs in the
// background and a company already registered is not an error.
func (d *Desk) register(ctx context.Context, id string, src workspace.Source) {
	if d.registry == nil {
		return
	}
	w, err := d.cache.Get(id)
	if err != nil {
		return
	}

	var op func(context.Context) error
	switch src.Route {
	case workspace.RouteAnalyzeBase:
		a := w.Analysis
		if a == nil || a.TenderNumber.Empty() {
			return
		}
		bid := recordstore.Bid{
			TenderNumber: a.TenderNumber.Trim(),
			Issuer:       a.Issuer.Trim(),
			Subject:      a.Subject.Trim(),
			Bonds:        a.ExtraText("fianzas_requeridas"),
		}
		op = func(ctx context.Context) error { return d.registry.RegisterBid(ctx, bid) }
	case workspace.RouteFiscal:
		t := w.TaxIdentity
		if t.Empty() || t.RFC.Empty() || t.LegalName.Empty() {
			return
		}
		company := recordstore.Company{
			RFC:            t.RFC.Trim(),
			LegalName:      t.LegalName.Trim(),
			Representative: t.Representative.Trim(),
			Role:           t.Role.Trim(),
			Address:        t.Address.Trim(),
		}
		op = func(ctx context.Context) error { return d.registry.RegisterCompany(ctx, company) }
	default:
		return
	}

	ctx = context.WithoutCancel(ctx)
	d.background.Go(func() {
		if err := op(ctx); err != nil && !errors.Is(err, recordstore.ErrConflict) {
			d.logger.Warn("registry update failed", "workspace", id, "source", src.Name, "error", err)
		}
	})
}

func checklistKey(items []workspace.ChecklistItem, ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if n, err := strconv.Atoi(ref); err == nil {
		if n >= 1 && n <= len(items) {
			return items[n-1].Key(), true
		}
		return "", false
	}

	want := workspace.ChecklistItem{Point: workspace.Text(ref)}.Key()
	for _, item := range items {
		if item.Key() == want {
			return item.Key(), true
		}
	}
	return "", false
}
