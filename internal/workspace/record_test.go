package workspace_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/JaimeStill/licita/internal/workspace"
)

func classifyStub(name string) workspace.Route {
	if strings.HasSuffix(name, ".pdf") {
		return workspace.RouteAnalyzeBase
	}
	return workspace.RouteRaw
}

func TestRecordRoundTrip(t *testing.T) {
	w := workspace.New("Licitación IMSS")
	w.Sources = append(w.Sources, workspace.NewSource("bases.pdf", workspace.RouteAnalyzeBase))
	w.Analysis = &workspace.Analysis{TenderNumber: "LA-001"}
	w.TaxIdentity = &workspace.TaxIdentity{RFC: "ABC010101AAA"}
	w.LogoAsset = "logo.png"
	w.AuditChecklist = map[string]bool{"firmar": true}
	w.ExcelProcessed = true

	r, err := w.Record()
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if r.Status != workspace.RecordReady {
		t.Errorf("status: got %q, want ready", r.Status)
	}
	if r.ActaData != "" {
		t.Errorf("empty corporate act serialized: %q", r.ActaData)
	}

	back, err := workspace.FromRecord(r, classifyStub)
	if err != nil {
		t.Fatalf("FromRecord: %v", err)
	}
	if back.Analysis == nil || back.Analysis.TenderNumber != "LA-001" {
		t.Errorf("analysis lost: %+v", back.Analysis)
	}
	if back.TaxIdentity == nil || back.TaxIdentity.RFC != "ABC010101AAA" {
		t.Errorf("tax identity lost: %+v", back.TaxIdentity)
	}
	if len(back.Sources) != 1 || back.Sources[0].ID != w.Sources[0].ID {
		t.Errorf("sources lost: %+v", back.Sources)
	}
	if back.AuditChecklist != nil || back.ExcelProcessed {
		t.Error("local-only fields must not travel in the record")
	}
}

func TestFromRecordReindexSources(t *testing.T) {
	r := workspace.Record{
		ID:       "1700000000000",
		Name:     "Reindexado",
		LogoPath: "/app/data/workspaces/1700000000000/logo_empresa.png",
		Sources:  `[{"filename":"bases.pdf","uploaded":true},{"name":"extra.bin"}]`,
	}

	w, err := workspace.FromRecord(r, classifyStub)
	if err != nil {
		t.Fatalf("FromRecord: %v", err)
	}
	if w.LogoAsset != "logo_empresa.png" {
		t.Errorf("logo asset: got %q", w.LogoAsset)
	}
	if len(w.Sources) != 2 {
		t.Fatalf("sources: got %d, want 2", len(w.Sources))
	}

	base := w.Sources[0]
	if base.Name != "bases.pdf" || base.ID == "" {
		t.Errorf("filename source not adopted: %+v", base)
	}
	if base.Route != workspace.RouteAnalyzeBase || base.Status != workspace.StatusPending {
		t.Errorf("route/status: %s/%s", base.Route, base.Status)
	}
	if w.Sources[1].Status != workspace.StatusDone {
		t.Errorf("raw source status: got %s, want done", w.Sources[1].Status)
	}
}

func TestFromRecordInterruptedRunBecomesError(t *testing.T) {
	r := workspace.Record{ID: "1", Name: "x", Sources: `[{"id":"s1","name":"a.pdf","route":"analyze-base","status":"loading"}]`}

	w, err := workspace.FromRecord(r, classifyStub)
	if err != nil {
		t.Fatal(err)
	}
	if w.Sources[0].Status != workspace.StatusError {
		t.Errorf("status: got %s, want error", w.Sources[0].Status)
	}
}

func TestFromRecordInvalidFieldIsPartial(t *testing.T) {
	r := workspace.Record{ID: "1", Name: "x", Analysis: `{broken`, CIFData: `{"rfc":"ABC010101AAA"}`}

	w, err := workspace.FromRecord(r, classifyStub)
	if !errors.Is(err, workspace.ErrInvalidRecord) {
		t.Fatalf("expected ErrInvalidRecord, got %v", err)
	}
	if w.Analysis != nil {
		t.Error("broken analysis decoded")
	}
	if w.TaxIdentity == nil {
		t.Error("valid field dropped alongside broken one")
	}
}

func TestBlank(t *testing.T) {
	for _, v := range []string{"", " ", "{}", "[]", "null"} {
		if !workspace.Blank(v) {
			t.Errorf("%q should be blank", v)
		}
	}
	if workspace.Blank(`{"rfc":"X"}`) {
		t.Error("non-empty object reported blank")
	}
}
