// Package ingest drives sources through classification, extraction, and the
// per-route merge of extracted data into their workspace.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/JaimeStill/licita/internal/cache"
	"github.com/JaimeStill/licita/internal/classifier"
	"github.com/JaimeStill/licita/internal/extraction"
	"github.com/JaimeStill/licita/internal/workspace"
)

var tracer = otel.Tracer("github.com/JaimeStill/licita/internal/ingest")

// Level grades a notice.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is a user-facing message raised while processing a source.
type Notice struct {
	WorkspaceID string
	SourceID    string
	Level       Level
	Message     string
}

// Progress reports a progress chunk of a running extraction.
type Progress struct {
	WorkspaceID string
	SourceID    string
	Value       float64
	Message     string
}

// Downloader fetches stored source bytes.
type Downloader interface {
	Download(ctx context.Context, workspaceID, filename string) ([]byte, error)
}

// Committer persists a workspace after a durable change.
type Committer interface {
	Commit(ctx context.Context, workspaceID string) error
}

// Hooks receive pipeline events. Any hook may be nil.
type Hooks struct {
	OnNotice   func(Notice)
	OnProgress func(Progress)
	// OnChange fires after every state change of a workspace.
	OnChange func(workspaceID string)
	// OnAnalysis fires after an analysis is merged into a workspace that
	// has no compliance checklist yet.
	OnAnalysis func(ctx context.Context, workspaceID string)
	// OnComplete fires after a source's result is merged and committed.
	OnComplete func(ctx context.Context, workspaceID string, src workspace.Source)
}

// Config wires a Pipeline to the rest of the desk.
type Config struct {
	Cache      *cache.Cache
	Buffers    *cache.Buffers
	Store      Downloader
	Backend    extraction.Backend
	Classifier *classifier.Classifier
	Committer  Committer
	Hooks      Hooks
	Metrics    *Metrics
}

// Document is a generated price document retained for retrieval.
type Document struct {
	Filename string
	Data     []byte
}

// Pipeline processes workspace sources.
type Pipeline struct {
	cfg    Config
	logger *slog.Logger

	runMu sync.Mutex

	docMu     sync.RWMutex
	documents map[string]Document
}

// New creates a Pipeline. A nil Classifier uses the default rules.
func New(cfg Config, logger *slog.Logger) *Pipeline {
	if cfg.Classifier == nil {
		cfg.Classifier = classifier.Default()
	}
	return &Pipeline{
		cfg:       cfg,
		logger:    logger.With("system", "ingest"),
		documents: make(map[string]Document),
	}
}

// Document returns the latest generated price document of a workspace.
func (p *Pipeline) Document(workspaceID string) (Document, bool) {
	p.docMu.RLock()
	defer p.docMu.RUnlock()
	doc, ok := p.documents[workspaceID]
	return doc, ok
}

// Forget drops retained documents of a removed workspace.
func (p *Pipeline) Forget(workspaceID string) {
	p.docMu.Lock()
	defer p.docMu.Unlock()
	delete(p.documents, workspaceID)
}

// RunPending processes every pending source of a workspace, one after the
// other. A failing source does not stop the rest; the failures are joined.
func (p *Pipeline) RunPending(ctx context.Context, workspaceID string) error {
	p.runMu.Lock()
	defer p.runMu.Unlock()

	w, err := p.cfg.Cache.Get(workspaceID)
	if err != nil {
		return err
	}

	var errs []error
	for _, sourceID := range w.Pending() {
		if err := p.run(ctx, workspaceID, sourceID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Run processes one source. The returned error is also recorded on the
// source as its error message.
func (p *Pipeline) Run(ctx context.Context, workspaceID, sourceID string) error {
	p.runMu.Lock()
	defer p.runMu.Unlock()
	return p.run(ctx, workspaceID, sourceID)
}

func (p *Pipeline) run(ctx context.Context, workspaceID, sourceID string) error {
	w, err := p.cfg.Cache.Get(workspaceID)
	if err != nil {
		return err
	}
	src := w.Source(sourceID)
	if src == nil {
		return fmt.Errorf("%w: %s", workspace.ErrSourceNotFound, sourceID)
	}

	if p.reclassify(ctx, workspaceID, *src) {
		w, err = p.cfg.Cache.Get(workspaceID)
		if err != nil {
			return err
		}
		if src = w.Source(sourceID); src == nil {
			return fmt.Errorf("%w: %s", workspace.ErrSourceNotFound, sourceID)
		}
	}

	if src.Route == workspace.RouteRaw {
		p.notice(workspaceID, sourceID, LevelInfo, fmt.Sprintf("%s stored without processing", src.Name))
		return nil
	}

	ctx, span := tracer.Start(ctx, "ingest.Run", trace.WithAttributes(
		attribute.String("licita.workspace.id", workspaceID),
		attribute.String("licita.source.route", string(src.Route)),
	))
	defer span.End()

	start := time.Now()
	err = p.attempt(ctx, workspaceID, *src)

	status := "done"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	p.cfg.Metrics.observeRun(string(src.Route), status, time.Since(start).Seconds())
	return err
}

func (p *Pipeline) reclassify(ctx context.Context, workspaceID string, src workspace.Source) bool {
	if !p.cfg.Classifier.Reclassify(&src) {
		return false
	}

	alive := p.cfg.Cache.UpdateSource(workspaceID, src.ID, func(_ *workspace.Workspace, s *workspace.Source) {
		s.Route = src.Route
		s.Label = src.Label
		s.Status = src.Status
		s.Error = src.Error
	})
	if !alive {
		return false
	}

	p.logger.Info("source reclassified", "workspace", workspaceID, "source", src.Name, "route", src.Route)
	p.commit(ctx, workspaceID)
	return true
}

func (p *Pipeline) attempt(ctx context.Context, workspaceID string, src workspace.Source) error {
	force := src.Status == workspace.StatusDone

	var transitionErr error
	if !p.cfg.Cache.UpdateSource(workspaceID, src.ID, func(_ *workspace.Workspace, s *workspace.Source) {
		transitionErr = s.Transition(workspace.StatusLoading)
	}) {
		return p.gone(workspaceID, src)
	}
	if transitionErr != nil {
		return transitionErr
	}
	p.changed(workspaceID)

	payload, err := p.extract(ctx, workspaceID, src, force)
	if err != nil {
		p.fail(ctx, workspaceID, src, err)
		return err
	}

	var analysisMerged, needsChecklist bool
	alive := p.cfg.Cache.UpdateSource(workspaceID, src.ID, func(w *workspace.Workspace, s *workspace.Source) {
		if transitionErr = s.Transition(workspace.StatusDone); transitionErr != nil {
			return
		}
		analysisMerged = p.merge(w, payload)
		needsChecklist = analysisMerged && !w.Analysis.HasChecklist()
	})
	if !alive {
		return p.gone(workspaceID, src)
	}
	if transitionErr != nil {
		p.logger.Warn("discarding stale result", "workspace", workspaceID, "source", src.Name, "error", transitionErr)
		return fmt.Errorf("complete %s: %w", src.Name, transitionErr)
	}

	p.logger.Info("source processed", "workspace", workspaceID, "source", src.Name, "route", src.Route)
	p.commit(ctx, workspaceID)
	p.changed(workspaceID)

	if p.cfg.Hooks.OnComplete != nil {
		p.cfg.Hooks.OnComplete(ctx, workspaceID, src)
	}
	if needsChecklist && p.cfg.Hooks.OnAnalysis != nil {
		p.cfg.Hooks.OnAnalysis(ctx, workspaceID)
	}
	return nil
}

func (p *Pipeline) extract(ctx context.Context, workspaceID string, src workspace.Source, force bool) (extraction.Payload, error) {
	data, err := p.bytes(ctx, workspaceID, src)
	if err != nil {
		return nil, err
	}

	stream, err := p.cfg.Backend.Submit(ctx, extraction.Submission{
		WorkspaceID: workspaceID,
		Route:       src.Route,
		Filename:    src.Name,
		Data:        data,
		Force:       force,
	})
	if err != nil {
		return nil, err
	}
	defer stream.Close()
	defer func() { p.cfg.Metrics.observeMalformed(stream.Skipped()) }()

	for chunk, err := range stream.All() {
		if err != nil {
			return nil, fmt.Errorf("read extraction stream: %w", err)
		}
		p.cfg.Metrics.observeChunk(string(chunk.Status))

		switch chunk.Status {
		case extraction.StatusInfo:
			p.notice(workspaceID, src.ID, LevelInfo, chunk.Msg)
		case extraction.StatusWarning:
			p.notice(workspaceID, src.ID, LevelWarning, chunk.Msg)
		case extraction.StatusProgress:
			if p.cfg.Hooks.OnProgress != nil {
				p.cfg.Hooks.OnProgress(Progress{
					WorkspaceID: workspaceID,
					SourceID:    src.ID,
					Value:       chunk.Val,
					Message:     chunk.Msg,
				})
			}
		case extraction.StatusError:
			msg := chunk.Msg
			if msg == "" {
				msg = "unknown extraction error"
			}
			return nil, fmt.Errorf("%w: %s", ErrExtraction, msg)
		case extraction.StatusComplete, extraction.StatusSuccess:
			return chunk.Decode(src.Route)
		default:
			p.logger.Debug("ignoring chunk", "status", chunk.Status, "source", src.Name)
		}
	}

	return nil, ErrIncompleteStream
}

func (p *Pipeline) bytes(ctx context.Context, workspaceID string, src workspace.Source) ([]byte, error) {
	if data, ok := p.cfg.Buffers.Get(src.ID); ok {
		return data, nil
	}
	if p.cfg.Store != nil {
		data, err := p.cfg.Store.Download(ctx, workspaceID, src.Name)
		if err == nil {
			p.cfg.Buffers.Put(src.ID, data)
			return data, nil
		}
		p.logger.Warn("source download failed", "workspace", workspaceID, "source", src.Name, "error", err)
		return nil, fmt.Errorf("%w: %s: %w", ErrUnretrievable, src.Name, err)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnretrievable, src.Name)
}

// merge applies payload to w and reports whether an analysis was merged.
func (p *Pipeline) merge(w *workspace.Workspace, payload extraction.Payload) bool {
	switch pl := payload.(type) {
	case extraction.AnalysisPayload:
		MergeAnalysis(w, pl.Analysis, pl.Profile)
		return true
	case extraction.FiscalPayload:
		MergeFiscal(w, pl.Identity)
	case extraction.CorporateActPayload:
		MergeCorporateAct(w, pl.Act)
	case extraction.LogoPayload:
		if pl.Filename != "" {
			w.LogoAsset = pl.Filename
		}
	case extraction.SpreadsheetPayload:
		w.ExcelProcessed = true
		p.docMu.Lock()
		p.documents[w.ID] = Document{Filename: pl.Filename, Data: pl.Document}
		p.docMu.Unlock()
	}
	return false
}

func (p *Pipeline) fail(ctx context.Context, workspaceID string, src workspace.Source, cause error) {
	p.logger.Error("source processing failed", "workspace", workspaceID, "source", src.Name, "error", cause)

	alive := p.cfg.Cache.UpdateSource(workspaceID, src.ID, func(_ *workspace.Workspace, s *workspace.Source) {
		s.Fail(cause.Error())
	})
	if !alive {
		p.gone(workspaceID, src)
		return
	}

	p.notice(workspaceID, src.ID, LevelError, fmt.Sprintf("%s: %v", src.Name, cause))
	p.commit(ctx, workspaceID)
	p.changed(workspaceID)
}

func (p *Pipeline) gone(workspaceID string, src workspace.Source) error {
	p.logger.Debug("dropping late result", "workspace", workspaceID, "source", src.Name)
	return nil
}

func (p *Pipeline) commit(ctx context.Context, workspaceID string) {
	if p.cfg.Committer == nil {
		return
	}
	if err := p.cfg.Committer.Commit(ctx, workspaceID); err != nil {
		p.logger.Warn("commit failed", "workspace", workspaceID, "error", err)
	}
}

func (p *Pipeline) notice(workspaceID, sourceID string, level Level, msg string) {
	if msg == "" || p.cfg.Hooks.OnNotice == nil {
		return
	}
	p.cfg.Hooks.OnNotice(Notice{WorkspaceID: workspaceID, SourceID: sourceID, Level: level, Message: msg})
}

func (p *Pipeline) changed(workspaceID string) {
	if p.cfg.Hooks.OnChange != nil {
		p.cfg.Hooks.OnChange(workspaceID)
	}
}
