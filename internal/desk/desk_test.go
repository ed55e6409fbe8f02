package desk_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/JaimeStill/licita/internal/compliance"
	"github.com/JaimeStill/licita/internal/desk"
	"github.com/JaimeStill/licita/internal/extraction"
	"github.com/JaimeStill/licita/internal/recordstore"
	"github.com/JaimeStill/licita/internal/workspace"
)

type memoryStore struct {
	mu      sync.Mutex
	records map[string]workspace.Record
	files   map[string][]byte
	deleted []string
	failAll error

	bids      []recordstore.Bid
	companies []recordstore.Company
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: map[string]workspace.Record{}, files: map[string][]byte{}}
}

func (m *memoryStore) List(context.Context) ([]workspace.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return nil, m.failAll
	}
	out := make([]workspace.Record, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, r)
	}
	return out, nil
}

func (m *memoryStore) Get(_ context.Context, id string) (workspace.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return workspace.Record{}, recordstore.ErrNotFound
	}
	return r, nil
}

func (m *memoryStore) Sync(_ context.Context, r workspace.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return m.failAll
	}
	m.records[r.ID] = r
	return nil
}

func (m *memoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return m.failAll
	}
	delete(m.records, id)
	return nil
}

func (m *memoryStore) ListFiles(_ context.Context, id string) ([]recordstore.File, error) {
	return nil, nil
}

func (m *memoryStore) Download(_ context.Context, id, filename string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[id+"/"+filename]
	if !ok {
		return nil, recordstore.ErrNotFound
	}
	return data, nil
}

func (m *memoryStore) Upload(_ context.Context, id, filename string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return m.failAll
	}
	m.files[id+"/"+filename] = data
	return nil
}

func (m *memoryStore) DeleteFile(_ context.Context, id, filename string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, id+"/"+filename)
	delete(m.files, id+"/"+filename)
	return nil
}

func (m *memoryStore) Reindex(context.Context) (recordstore.ReindexResult, error) {
	return recordstore.ReindexResult{Status: "ok", Inserted: len(m.records)}, nil
}

func (m *memoryStore) RegisterBid(_ context.Context, b recordstore.Bid) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bids = append(m.bids, b)
	return nil
}

func (m *memoryStore) RegisterCompany(_ context.Context, c recordstore.Company) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.companies {
		if existing.RFC == c.RFC {
			return recordstore.ErrConflict
		}
	}
	m.companies = append(m.companies, c)
	return nil
}

type fakeExtraction struct {
	submit func(ctx context.Context, sub extraction.Submission) (*extraction.Stream, error)
}

func (f *fakeExtraction) Submit(ctx context.Context, sub extraction.Submission) (*extraction.Stream, error) {
	return f.submit(ctx, sub)
}

type fakeCompliance struct {
	mu         sync.Mutex
	applyCalls int
	store      *memoryStore
}

func (f *fakeCompliance) ApplyChecklist(ctx context.Context, id, _ string) (compliance.ApplyResult, error) {
	f.mu.Lock()
	f.applyCalls++
	f.mu.Unlock()

	rec, err := f.store.Get(ctx, id)
	if err != nil {
		return compliance.ApplyResult{}, err
	}
	analysis := map[string]any{}
	json.Unmarshal([]byte(rec.Analysis), &analysis)
	analysis["checklist_cumplimiento"] = []map[string]any{
		{"punto": "Firmar todas las fojas y el sobre.", "detectado": false, "sugerido": true},
		{"punto": "Propuesta en idioma español.", "detectado": false, "sugerido": true},
	}
	data, _ := json.Marshal(analysis)
	rec.Analysis = string(data)
	f.store.Sync(ctx, rec)
	return compliance.ApplyResult{ChecklistCount: 2, Entity: "federal"}, nil
}

func (f *fakeCompliance) Recompute(context.Context, string) (compliance.Recomputed, error) {
	return compliance.Recomputed{}, nil
}

func (f *fakeCompliance) Evidence(context.Context, string) (compliance.EvidenceReport, error) {
	return compliance.EvidenceReport{}, nil
}

func (f *fakeCompliance) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.applyCalls
}

type harness struct {
	store      *memoryStore
	extraction *fakeExtraction
	compliance *fakeCompliance
	desk       *desk.Desk

	mu     sync.Mutex
	events []desk.Event
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := newMemoryStore()
	h := &harness{
		store:      store,
		extraction: &fakeExtraction{},
		compliance: &fakeCompliance{store: store},
	}
	h.desk = desk.New(desk.Config{
		Store:      store,
		Extraction: h.extraction,
		Compliance: h.compliance,
		Registry:   store,
		CachePath:  filepath.Join(t.TempDir(), "workspaces.json"),
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	h.desk.Subscribe(func(e desk.Event) {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.events = append(h.events, e)
	})
	if _, err := h.desk.Load(t.Context()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return h
}

func (h *harness) count(kind desk.EventKind) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, e := range h.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func TestAddAndProcessBaseDocument(t *testing.T) {
	h := newHarness(t)
	h.extraction.submit = func(_ context.Context, sub extraction.Submission) (*extraction.Stream, error) {
		if sub.Route != workspace.RouteAnalyzeBase {
			t.Errorf("route = %s, want analyze-base", sub.Route)
		}
		return extraction.Chunks(
			extraction.Chunk{Status: extraction.StatusProgress, Val: 0.4},
			extraction.Chunk{Status: extraction.StatusComplete, Analysis: json.RawMessage(`{"numero_licitacion":"LA-001"}`)},
		), nil
	}

	w, err := h.desk.Create(t.Context(), "Licitación LA-001")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	src, err := h.desk.AddFile(t.Context(), w.ID, "SAT_32D.pdf", []byte("%PDF-1.7"))
	if err != nil {
		t.Fatalf("AddFile() error = %v", err)
	}
	if src.Route != workspace.RouteAnalyzeBase || src.Status != workspace.StatusPending {
		t.Fatalf("source = %+v", src)
	}

	if err := h.desk.ProcessAll(t.Context(), w.ID, false); err != nil {
		t.Fatalf("ProcessAll() error = %v", err)
	}
	h.desk.Wait()

	got, err := h.desk.Get(w.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Analysis == nil || got.Analysis.TenderNumber != "LA-001" {
		t.Fatalf("analysis = %+v", got.Analysis)
	}
	if n := h.compliance.calls(); n != 1 {
		t.Errorf("ApplyChecklist calls = %d, want 1", n)
	}
	if !got.Analysis.HasChecklist() {
		t.Error("checklist not loaded back from the record store")
	}
	if _, ok := h.store.files[w.ID+"/SAT_32D.pdf"]; !ok {
		t.Error("source not uploaded")
	}
	if len(h.store.bids) != 1 || h.store.bids[0].TenderNumber != "LA-001" {
		t.Errorf("registered bids = %+v", h.store.bids)
	}
	if h.count(desk.EventProgress) != 1 {
		t.Errorf("progress events = %d, want 1", h.count(desk.EventProgress))
	}
	if h.count(desk.EventWorkspaceChanged) == 0 {
		t.Error("no workspace change events")
	}
}

func TestLaterSessionSyncsChangesBeforeChecklist(t *testing.T) {
	h := newHarness(t)
	h.extraction.submit = func(context.Context, extraction.Submission) (*extraction.Stream, error) {
		return extraction.Chunks(extraction.Chunk{
			Status:   extraction.StatusComplete,
			Analysis: json.RawMessage(`{"numero_licitacion":"LA-001"}`),
		}), nil
	}

	w, err := h.desk.Create(t.Context(), "Licitación LA-001")
	if err != nil {
		t.Fatal(err)
	}
	h.desk.Close()

	if _, err := h.desk.AddFile(t.Context(), w.ID, "SAT_32D.pdf", []byte("%PDF-1.7")); err != nil {
		t.Fatalf("AddFile() error = %v", err)
	}
	if err := h.desk.ProcessAll(t.Context(), w.ID, false); err != nil {
		t.Fatalf("ProcessAll() error = %v", err)
	}
	h.desk.Wait()

	got, _ := h.desk.Get(w.ID)
	if got.Analysis == nil || got.Analysis.TenderNumber != "LA-001" {
		t.Fatalf("local analysis = %+v, want tender LA-001", got.Analysis)
	}
	if !got.Analysis.HasChecklist() {
		t.Error("checklist not applied")
	}

	rec, err := h.store.Get(t.Context(), w.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(rec.Analysis, `"numero_licitacion":"LA-001"`) || !strings.Contains(rec.Analysis, "checklist_cumplimiento") {
		t.Errorf("remote analysis = %s", rec.Analysis)
	}
	if !strings.Contains(rec.Sources, "SAT_32D.pdf") {
		t.Errorf("remote sources = %s", rec.Sources)
	}
}

func TestReAddWhileProcessingIsRefused(t *testing.T) {
	h := newHarness(t)
	w, _ := h.desk.Create(t.Context(), "Obra")

	var readdErr error
	h.extraction.submit = func(ctx context.Context, _ extraction.Submission) (*extraction.Stream, error) {
		_, readdErr = h.desk.AddFile(ctx, w.ID, "bases.pdf", []byte("%PDF-2"))
		return extraction.Chunks(extraction.Chunk{
			Status:   extraction.StatusComplete,
			Analysis: json.RawMessage(`{"numero_licitacion":"LA-002"}`),
		}), nil
	}

	src, err := h.desk.AddFile(t.Context(), w.ID, "bases.pdf", []byte("%PDF-1"))
	if err != nil {
		t.Fatal(err)
	}
	if err := h.desk.Process(t.Context(), w.ID, src.ID); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	h.desk.Wait()

	if !errors.Is(readdErr, desk.ErrSourceBusy) {
		t.Errorf("re-add err = %v, want ErrSourceBusy", readdErr)
	}
	got, _ := h.desk.Get(w.ID)
	if len(got.Sources) != 1 || got.Sources[0].Status != workspace.StatusDone {
		t.Errorf("sources = %+v", got.Sources)
	}
}

func TestFiscalSourceRegistersCompanyOnce(t *testing.T) {
	h := newHarness(t)
	h.extraction.submit = func(context.Context, extraction.Submission) (*extraction.Stream, error) {
		return extraction.Chunks(extraction.Chunk{
			Status: extraction.StatusSuccess,
			Data:   json.RawMessage(`{"rfc":"ABC010101AAA","razon_social":"Constructora del Norte","representante_legal":"Ana Pérez"}`),
		}), nil
	}

	w, _ := h.desk.Create(t.Context(), "Obra")
	src, err := h.desk.AddFile(t.Context(), w.ID, "constancia_cif.pdf", []byte("%PDF"))
	if err != nil {
		t.Fatal(err)
	}
	for range 2 {
		if err := h.desk.Process(t.Context(), w.ID, src.ID); err != nil {
			t.Fatalf("Process() error = %v", err)
		}
		h.desk.Wait()
	}

	if len(h.store.companies) != 1 {
		t.Fatalf("registered companies = %+v", h.store.companies)
	}
	c := h.store.companies[0]
	if c.RFC != "ABC010101AAA" || c.LegalName != "Constructora del Norte" || c.Representative != "Ana Pérez" {
		t.Errorf("company = %+v", c)
	}
	if h.count(desk.EventNotice) != 0 {
		t.Errorf("notices = %d, want none for an already registered company", h.count(desk.EventNotice))
	}
}

func TestToggleChecklist(t *testing.T) {
	h := newHarness(t)
	w, err := h.desk.Create(t.Context(), "Obra")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := h.desk.ToggleChecklist(t.Context(), w.ID, "1"); !errors.Is(err, desk.ErrNoChecklist) {
		t.Fatalf("err = %v, want ErrNoChecklist", err)
	}

	h.extraction.submit = func(context.Context, extraction.Submission) (*extraction.Stream, error) {
		return extraction.Chunks(extraction.Chunk{
			Status:   extraction.StatusComplete,
			Analysis: json.RawMessage(`{"checklist_cumplimiento":[{"punto":"Firmar todas las fojas y el sobre."},{"punto":"Propuesta en idioma español."}]}`),
		}), nil
	}
	if _, err := h.desk.AddFile(t.Context(), w.ID, "bases.pdf", []byte("%PDF")); err != nil {
		t.Fatal(err)
	}
	if err := h.desk.ProcessAll(t.Context(), w.ID, false); err != nil {
		t.Fatal(err)
	}
	h.desk.Wait()

	tests := []struct {
		ref  string
		want bool
	}{
		{"2", true},
		{"propuesta en idioma  ESPAÑOL.", false},
		{"Firmar todas las fojas y el sobre.", true},
	}
	for _, tt := range tests {
		got, err := h.desk.ToggleChecklist(t.Context(), w.ID, tt.ref)
		if err != nil {
			t.Fatalf("ToggleChecklist(%q) error = %v", tt.ref, err)
		}
		if got != tt.want {
			t.Errorf("ToggleChecklist(%q) = %v, want %v", tt.ref, got, tt.want)
		}
	}

	if _, err := h.desk.ToggleChecklist(t.Context(), w.ID, "9"); !errors.Is(err, desk.ErrChecklistItem) {
		t.Errorf("err = %v, want ErrChecklistItem", err)
	}
}

func TestRemoveSourceIssuesRemoteDelete(t *testing.T) {
	h := newHarness(t)
	w, _ := h.desk.Create(t.Context(), "Obra")
	src, err := h.desk.AddFile(t.Context(), w.ID, "notas.zip", []byte("zip"))
	if err != nil {
		t.Fatal(err)
	}
	if src.Status != workspace.StatusDone {
		t.Errorf("raw source status = %s, want done", src.Status)
	}

	if err := h.desk.RemoveSource(t.Context(), w.ID, src.ID); err != nil {
		t.Fatalf("RemoveSource() error = %v", err)
	}
	got, _ := h.desk.Get(w.ID)
	if len(got.Sources) != 0 {
		t.Errorf("sources = %+v", got.Sources)
	}
	if len(h.store.deleted) != 1 || h.store.deleted[0] != w.ID+"/notas.zip" {
		t.Errorf("remote deletes = %v", h.store.deleted)
	}
}

func TestDeleteWhileOfflineStillRemovesLocally(t *testing.T) {
	h := newHarness(t)
	w, _ := h.desk.Create(t.Context(), "Obra")
	h.store.failAll = recordstore.ErrUnavailable

	if err := h.desk.Delete(t.Context(), w.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := h.desk.Get(w.ID); err == nil {
		t.Error("workspace still cached")
	}
	if _, ok := h.desk.Active(); ok {
		t.Error("deleted workspace still open")
	}
	if h.count(desk.EventNotice) == 0 {
		t.Error("remote failure not surfaced as a notice")
	}
}

func TestLoadOfflineUsesCache(t *testing.T) {
	h := newHarness(t)
	w, _ := h.desk.Create(t.Context(), "Obra")
	h.store.failAll = recordstore.ErrUnavailable

	if _, err := h.desk.Load(t.Context()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, err := h.desk.Get(w.ID); err != nil {
		t.Errorf("cached workspace lost: %v", err)
	}
}

func TestCreateRejectsBlankName(t *testing.T) {
	h := newHarness(t)
	if _, err := h.desk.Create(t.Context(), "   "); !errors.Is(err, desk.ErrEmptyName) {
		t.Errorf("err = %v, want ErrEmptyName", err)
	}
}

func TestUnsubscribe(t *testing.T) {
	h := newHarness(t)
	var n int
	unsubscribe := h.desk.Subscribe(func(desk.Event) { n++ })
	h.desk.Create(t.Context(), "Uno")
	unsubscribe()
	before := n
	h.desk.Create(t.Context(), "Dos")
	if n != before || before == 0 {
		t.Errorf("events after unsubscribe: before=%d after=%d", before, n)
	}
}
