package ingest_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/JaimeStill/licita/internal/cache"
	"github.com/JaimeStill/licita/internal/extraction"
	"github.com/JaimeStill/licita/internal/ingest"
	"github.com/JaimeStill/licita/internal/workspace"
)

type fakeBackend struct {
	submit func(ctx context.Context, sub extraction.Submission) (*extraction.Stream, error)
	calls  []extraction.Submission
}

func (f *fakeBackend) Submit(ctx context.Context, sub extraction.Submission) (*extraction.Stream, error) {
	f.calls = append(f.calls, sub)
	return f.submit(ctx, sub)
}

type fakeStore struct {
	download func(ctx context.Context, id, filename string) ([]byte, error)
}

func (f *fakeStore) Download(ctx context.Context, id, filename string) ([]byte, error) {
	return f.download(ctx, id, filename)
}

type recordingCommitter struct {
	mu  sync.Mutex
	ids []string
}

func (c *recordingCommitter) Commit(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids = append(c.ids, id)
	return nil
}

type fixture struct {
	cache     *cache.Cache
	buffers   *cache.Buffers
	backend   *fakeBackend
	store     *fakeStore
	committer *recordingCommitter
	notices   []ingest.Notice
	analyses  []string
	completed []workspace.Route
	metrics   *ingest.Metrics
	pipeline  *ingest.Pipeline
}

func newFixture(t *testing.T, w workspace.Workspace) *fixture {
	t.Helper()
	f := &fixture{
		cache:     cache.New([]workspace.Workspace{w}),
		buffers:   cache.NewBuffers(),
		backend:   &fakeBackend{},
		store:     &fakeStore{download: func(context.Context, string, string) ([]byte, error) { return nil, errors.New("offline") }},
		committer: &recordingCommitter{},
		metrics:   ingest.NewMetrics(prometheus.NewRegistry()),
	}
	f.pipeline = ingest.New(ingest.Config{
		Cache:     f.cache,
		Buffers:   f.buffers,
		Store:     f.store,
		Backend:   f.backend,
		Committer: f.committer,
		Metrics:   f.metrics,
		Hooks: ingest.Hooks{
			OnNotice:   func(n ingest.Notice) { f.notices = append(f.notices, n) },
			OnAnalysis: func(_ context.Context, id string) { f.analyses = append(f.analyses, id) },
			OnComplete: func(_ context.Context, _ string, s workspace.Source) { f.completed = append(f.completed, s.Route) },
		},
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return f
}

func (f *fixture) source(t *testing.T, wsID, srcID string) workspace.Source {
	t.Helper()
	w, err := f.cache.Get(wsID)
	if err != nil {
		t.Fatalf("Get(%s) error = %v", wsID, err)
	}
	s := w.Source(srcID)
	if s == nil {
		t.Fatalf("source %s missing", srcID)
	}
	return *s
}

func TestRunAnalyzeBaseEndToEnd(t *testing.T) {
	w := workspace.New("Licitación LA-001")
	src := workspace.NewSource("bases.pdf", workspace.RouteAnalyzeBase)
	w.Sources = append(w.Sources, src)

	f := newFixture(t, w)
	f.buffers.Put(src.ID, []byte("%PDF-1.7"))
	f.backend.submit = func(_ context.Context, sub extraction.Submission) (*extraction.Stream, error) {
		return extraction.Chunks(
			extraction.Chunk{Status: extraction.StatusInfo, Msg: "Analizando bases"},
			extraction.Chunk{Status: extraction.StatusProgress, Val: 0.5},
			extraction.Chunk{
				Status:   extraction.StatusComplete,
				Analysis: json.RawMessage(`{"numero_licitacion":"LA-001","objeto":"Suministro"}`),
				Profile:  json.RawMessage(`{"licitante":{"rfc":"ABC010101AAA"}}`),
			},
		), nil
	}

	if err := f.pipeline.Run(t.Context(), w.ID, src.ID); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	got := f.source(t, w.ID, src.ID)
	if got.Status != workspace.StatusDone {
		t.Errorf("status = %s, want done", got.Status)
	}

	updated, _ := f.cache.Get(w.ID)
	if updated.Analysis == nil || updated.Analysis.TenderNumber != "LA-001" {
		t.Fatalf("analysis = %+v", updated.Analysis)
	}
	if updated.TaxIdentity == nil || updated.TaxIdentity.RFC != "ABC010101AAA" {
		t.Errorf("identity = %+v", updated.TaxIdentity)
	}

	if len(f.analyses) != 1 || f.analyses[0] != w.ID {
		t.Errorf("OnAnalysis calls = %v, want exactly [%s]", f.analyses, w.ID)
	}
	if len(f.completed) != 1 || f.completed[0] != workspace.RouteAnalyzeBase {
		t.Errorf("OnComplete calls = %v", f.completed)
	}
	if len(f.backend.calls) != 1 || f.backend.calls[0].Force {
		t.Errorf("submissions = %+v, want one non-forced", f.backend.calls)
	}
	if len(f.notices) != 1 || f.notices[0].Message != "Analizando bases" {
		t.Errorf("notices = %+v", f.notices)
	}
	if len(f.committer.ids) == 0 {
		t.Error("workspace was not committed")
	}
	if n := testutil.ToFloat64(f.metrics.RunsTotal.WithLabelValues(string(workspace.RouteAnalyzeBase), "done")); n != 1 {
		t.Errorf("runs_total = %v, want 1", n)
	}
}

func TestRunReprocessForcesAndSkipsChecklistHook(t *testing.T) {
	w := workspace.New("Obra")
	src := workspace.NewSource("bases.pdf", workspace.RouteAnalyzeBase)
	src.Status = workspace.StatusDone
	w.Sources = append(w.Sources, src)

	f := newFixture(t, w)
	f.buffers.Put(src.ID, []byte("%PDF"))
	f.backend.submit = func(context.Context, extraction.Submission) (*extraction.Stream, error) {
		return extraction.Chunks(extraction.Chunk{
			Status:   extraction.StatusComplete,
			Analysis: json.RawMessage(`{"checklist_cumplimiento":[{"punto":"Firma autógrafa","detectado":true,"sugerido":true}]}`),
		}), nil
	}

	if err := f.pipeline.Run(t.Context(), w.ID, src.ID); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !f.backend.calls[0].Force {
		t.Error("reprocessing a done source must force")
	}
	if len(f.analyses) != 0 {
		t.Errorf("OnAnalysis fired with an existing checklist: %v", f.analyses)
	}
}

func TestRunErrorChunkKeepsMergedState(t *testing.T) {
	w := workspace.New("Obra")
	w.TaxIdentity = &workspace.TaxIdentity{RFC: "ABC010101AAA"}
	src := workspace.NewSource("cif.pdf", workspace.RouteFiscal)
	w.Sources = append(w.Sources, src)

	f := newFixture(t, w)
	f.buffers.Put(src.ID, []byte("%PDF"))
	f.backend.submit = func(context.Context, extraction.Submission) (*extraction.Stream, error) {
		return extraction.Chunks(extraction.Chunk{Status: extraction.StatusError, Msg: "OCR falló"}), nil
	}

	err := f.pipeline.Run(t.Context(), w.ID, src.ID)
	if !errors.Is(err, ingest.ErrExtraction) {
		t.Fatalf("err = %v, want ErrExtraction", err)
	}

	got := f.source(t, w.ID, src.ID)
	if got.Status != workspace.StatusError || got.Error == "" {
		t.Errorf("source = %+v, want error with message", got)
	}
	updated, _ := f.cache.Get(w.ID)
	if updated.TaxIdentity.RFC != "ABC010101AAA" {
		t.Errorf("identity changed: %+v", updated.TaxIdentity)
	}
}

func TestRunIncompleteStream(t *testing.T) {
	w := workspace.New("Obra")
	src := workspace.NewSource("bases.pdf", workspace.RouteAnalyzeBase)
	w.Sources = append(w.Sources, src)

	f := newFixture(t, w)
	f.buffers.Put(src.ID, []byte("%PDF"))
	f.backend.submit = func(context.Context, extraction.Submission) (*extraction.Stream, error) {
		return extraction.Chunks(extraction.Chunk{Status: extraction.StatusInfo, Msg: "..."}), nil
	}

	if err := f.pipeline.Run(t.Context(), w.ID, src.ID); !errors.Is(err, ingest.ErrIncompleteStream) {
		t.Fatalf("err = %v, want ErrIncompleteStream", err)
	}
	if got := f.source(t, w.ID, src.ID); got.Status != workspace.StatusError {
		t.Errorf("status = %s, want error", got.Status)
	}
}

func TestRunBytesFromStore(t *testing.T) {
	w := workspace.New("Obra")
	src := workspace.NewSource("logo.png", workspace.RouteLogo)
	w.Sources = append(w.Sources, src)

	f := newFixture(t, w)
	var downloaded string
	f.store.download = func(_ context.Context, id, filename string) ([]byte, error) {
		downloaded = id + "/" + filename
		return []byte("PNG"), nil
	}
	f.backend.submit = func(_ context.Context, sub extraction.Submission) (*extraction.Stream, error) {
		if string(sub.Data) != "PNG" {
			t.Errorf("data = %q", sub.Data)
		}
		return extraction.Chunks(extraction.Chunk{Status: extraction.StatusSuccess, LogoFilename: "logo.png"}), nil
	}

	if err := f.pipeline.Run(t.Context(), w.ID, src.ID); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if downloaded != w.ID+"/logo.png" {
		t.Errorf("downloaded = %q", downloaded)
	}
	if _, ok := f.buffers.Get(src.ID); !ok {
		t.Error("downloaded bytes not buffered")
	}
	updated, _ := f.cache.Get(w.ID)
	if updated.LogoAsset != "logo.png" {
		t.Errorf("LogoAsset = %q", updated.LogoAsset)
	}
}

func TestRunUnretrievable(t *testing.T) {
	w := workspace.New("Obra")
	src := workspace.NewSource("acta.pdf", workspace.RouteCorporateAct)
	w.Sources = append(w.Sources, src)

	f := newFixture(t, w)
	f.backend.submit = func(context.Context, extraction.Submission) (*extraction.Stream, error) {
		t.Error("backend called without bytes")
		return nil, nil
	}

	if err := f.pipeline.Run(t.Context(), w.ID, src.ID); !errors.Is(err, ingest.ErrUnretrievable) {
		t.Fatalf("err = %v, want ErrUnretrievable", err)
	}
	if got := f.source(t, w.ID, src.ID); got.Status != workspace.StatusError {
		t.Errorf("status = %s, want error", got.Status)
	}
}

func TestRunRawEmitsNotice(t *testing.T) {
	w := workspace.New("Obra")
	src := workspace.NewSource("notas.zip", workspace.RouteRaw)
	w.Sources = append(w.Sources, src)

	f := newFixture(t, w)
	if err := f.pipeline.Run(t.Context(), w.ID, src.ID); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(f.backend.calls) != 0 {
		t.Error("raw source submitted")
	}
	if len(f.notices) != 1 || f.notices[0].Level != ingest.LevelInfo {
		t.Errorf("notices = %+v", f.notices)
	}
}

func TestRunSpreadsheetRetainsDocument(t *testing.T) {
	w := workspace.New("Obra")
	src := workspace.NewSource("precios.xlsx", workspace.RouteSpreadsheet)
	w.Sources = append(w.Sources, src)

	f := newFixture(t, w)
	f.buffers.Put(src.ID, []byte("xlsx"))
	f.backend.submit = func(context.Context, extraction.Submission) (*extraction.Stream, error) {
		return extraction.Chunks(extraction.Chunk{Status: extraction.StatusComplete}), nil
	}

	if err := f.pipeline.Run(t.Context(), w.ID, src.ID); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	updated, _ := f.cache.Get(w.ID)
	if !updated.ExcelProcessed {
		t.Error("ExcelProcessed not set")
	}
	if _, ok := f.pipeline.Document(w.ID); !ok {
		t.Error("document not retained")
	}
}

func TestRunDeletedWorkspaceDropsResult(t *testing.T) {
	w := workspace.New("Obra")
	src := workspace.NewSource("cif.pdf", workspace.RouteFiscal)
	w.Sources = append(w.Sources, src)

	f := newFixture(t, w)
	f.buffers.Put(src.ID, []byte("%PDF"))
	f.backend.submit = func(context.Context, extraction.Submission) (*extraction.Stream, error) {
		if _, err := f.cache.Delete(w.ID); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		return extraction.Chunks(extraction.Chunk{Status: extraction.StatusSuccess, Data: json.RawMessage(`{"rfc":"ABC010101AAA"}`)}), nil
	}

	if err := f.pipeline.Run(t.Context(), w.ID, src.ID); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if f.cache.Has(w.ID) {
		t.Error("deleted workspace resurrected")
	}
}

func TestRunPendingIsSequentialAndContinues(t *testing.T) {
	w := workspace.New("Obra")
	first := workspace.NewSource("cif.pdf", workspace.RouteFiscal)
	second := workspace.NewSource("acta.pdf", workspace.RouteCorporateAct)
	w.Sources = append(w.Sources, first, second)

	f := newFixture(t, w)
	f.buffers.Put(first.ID, []byte("a"))
	f.buffers.Put(second.ID, []byte("b"))

	f.backend.submit = func(_ context.Context, sub extraction.Submission) (*extraction.Stream, error) {
		if sub.Route == workspace.RouteFiscal {
			return nil, errors.New("backend down")
		}
		return extraction.Chunks(extraction.Chunk{Status: extraction.StatusSuccess, Data: json.RawMessage(`{"representante":"Ana"}`)}), nil
	}

	err := f.pipeline.RunPending(t.Context(), w.ID)
	if err == nil {
		t.Fatal("RunPending() error = nil, want the first failure")
	}
	if len(f.backend.calls) != 2 || f.backend.calls[0].Filename != "cif.pdf" {
		t.Errorf("calls = %+v", f.backend.calls)
	}
	if got := f.source(t, w.ID, second.ID); got.Status != workspace.StatusDone {
		t.Errorf("second status = %s, want done", got.Status)
	}
}

func TestRunReclassifiesBeforeSubmitting(t *testing.T) {
	w := workspace.New("Obra")
	src := workspace.NewSource("bases_cif.pdf", workspace.RouteRaw)
	src.Status = workspace.StatusDone
	w.Sources = append(w.Sources, src)

	f := newFixture(t, w)
	f.buffers.Put(src.ID, []byte("%PDF"))
	f.backend.submit = func(_ context.Context, sub extraction.Submission) (*extraction.Stream, error) {
		if sub.Route != workspace.RouteFiscal {
			t.Errorf("submitted route = %s, want %s", sub.Route, workspace.RouteFiscal)
		}
		if sub.Force {
			t.Error("rerouted source submitted as a reprocess")
		}
		if len(f.committer.ids) == 0 {
			t.Error("new route not committed before submit")
		}
		return nil, errors.New("connection refused")
	}

	if err := f.pipeline.Run(t.Context(), w.ID, src.ID); err == nil {
		t.Fatal("Run() error = nil, want backend failure")
	}

	got := f.source(t, w.ID, src.ID)
	if got.Route != workspace.RouteFiscal || got.Label != workspace.RouteFiscal.Label() {
		t.Errorf("source = %+v, want rerouted to %s", got, workspace.RouteFiscal)
	}
	if got.Status != workspace.StatusError {
		t.Errorf("status = %s, want error", got.Status)
	}
	if len(f.backend.calls) != 1 {
		t.Errorf("submissions = %d, want 1", len(f.backend.calls))
	}
}

func TestRunDiscardsResultForResetSource(t *testing.T) {
	w := workspace.New("Obra")
	src := workspace.NewSource("bases.pdf", workspace.RouteAnalyzeBase)
	w.Sources = append(w.Sources, src)

	f := newFixture(t, w)
	f.buffers.Put(src.ID, []byte("%PDF"))
	f.backend.submit = func(context.Context, extraction.Submission) (*extraction.Stream, error) {
		f.cache.UpdateSource(w.ID, src.ID, func(_ *workspace.Workspace, s *workspace.Source) {
			s.Status = workspace.StatusPending
		})
		return extraction.Chunks(extraction.Chunk{
			Status:   extraction.StatusComplete,
			Analysis: json.RawMessage(`{"numero_licitacion":"LA-001"}`),
		}), nil
	}

	err := f.pipeline.Run(t.Context(), w.ID, src.ID)
	if !errors.Is(err, workspace.ErrIllegalTransition) {
		t.Fatalf("err = %v, want ErrIllegalTransition", err)
	}

	updated, _ := f.cache.Get(w.ID)
	if updated.Analysis != nil {
		t.Errorf("stale analysis merged: %+v", updated.Analysis)
	}
	if len(f.analyses) != 0 || len(f.completed) != 0 {
		t.Errorf("hooks fired for a discarded result: analyses=%v completed=%v", f.analyses, f.completed)
	}
}
