package workspace

import (
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Record statuses written by the client.
const (
	RecordDraft = "draft"
	RecordReady = "ready"
)

// Record is the wire form of a workspace in the record store. Structured
// fields travel as serialized JSON strings; an empty string means absent.
type Record struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	LogoPath   string     `json:"logo_path,omitempty"`
	CIFData    string     `json:"cif_data,omitempty"`
	ActaData   string     `json:"acta_data,omitempty"`
	PricesData string     `json:"prices_data,omitempty"`
	Sources    string     `json:"sources,omitempty"`
	Analysis   string     `json:"analysis,omitempty"`
	Status     string     `json:"status,omitempty"`
	Date       *time.Time `json:"date,omitempty"`
}

// wireSource accepts both the client's source shape and the
// {"filename", "uploaded"} shape produced by a store reindex.
type wireSource struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Filename string `json:"filename"`
	Route    Route  `json:"route"`
	Status   Status `json:"status"`
	Label    string `json:"label"`
	Error    string `json:"error"`
}

// Record returns the serializable projection of w. Local-only state (audit
// checklist, spreadsheet flag) is not part of it.
func (w Workspace) Record() (Record, error) {
	r := Record{
		ID:       w.ID,
		Name:     w.Name,
		LogoPath: w.LogoAsset,
		Status:   RecordDraft,
	}
	if w.Analysis != nil {
		r.Status = RecordReady
	}
	if !w.CreatedAt.IsZero() {
		created := w.CreatedAt
		r.Date = &created
	}

	var err error
	if r.Sources, err = encode(w.Sources); err != nil {
		return Record{}, fmt.Errorf("encode sources: %w", err)
	}
	if w.Analysis != nil {
		if r.Analysis, err = encode(w.Analysis); err != nil {
			return Record{}, fmt.Errorf("encode analysis: %w", err)
		}
	}
	if !w.TaxIdentity.Empty() {
		if r.CIFData, err = encode(w.TaxIdentity); err != nil {
			return Record{}, fmt.Errorf("encode cif_data: %w", err)
		}
	}
	if !w.CorporateAct.Empty() {
		if r.ActaData, err = encode(w.CorporateAct); err != nil {
			return Record{}, fmt.Errorf("encode acta_data: %w", err)
		}
	}
	return r, nil
}

// FromRecord decodes a record into a workspace. Fields that fail to decode
// are left unset and reported in the returned error (wrapping
// ErrInvalidRecord); the workspace is usable either way. classify supplies
// the route of sources stored without one.
func FromRecord(r Record, classify func(filename string) Route) (Workspace, error) {
	w := Workspace{
		ID:        r.ID,
		Name:      r.Name,
		Sources:   []Source{},
		LogoAsset: LogoAssetName(r.LogoPath),
	}
	if r.Date != nil {
		w.CreatedAt = *r.Date
	}

	var errs []error
	if present(r.Sources) {
		var wire []wireSource
		if err := json.Unmarshal([]byte(r.Sources), &wire); err != nil {
			errs = append(errs, fmt.Errorf("sources: %w", err))
		}
		for _, ws := range wire {
			w.Sources = append(w.Sources, ws.source(classify))
		}
	}
	if present(r.Analysis) {
		var a Analysis
		if err := json.Unmarshal([]byte(r.Analysis), &a); err != nil {
			errs = append(errs, fmt.Errorf("analysis: %w", err))
		} else {
			w.Analysis = &a
		}
	}
	if present(r.CIFData) {
		var t TaxIdentity
		if err := json.Unmarshal([]byte(r.CIFData), &t); err != nil {
			errs = append(errs, fmt.Errorf("cif_data: %w", err))
		} else if !t.Empty() {
			w.TaxIdentity = &t
		}
	}
	if present(r.ActaData) {
		var c CorporateAct
		if err := json.Unmarshal([]byte(r.ActaData), &c); err != nil {
			errs = append(errs, fmt.Errorf("acta_data: %w", err))
		} else if !c.Empty() {
			w.CorporateAct = &c
		}
	}

	if len(errs) > 0 {
		return w, fmt.Errorf("%w %s: %w", ErrInvalidRecord, r.ID, errors.Join(errs...))
	}
	return w, nil
}

func (ws wireSource) source(classify func(string) Route) Source {
	name := ws.Name
	if name == "" {
		name = ws.Filename
	}
	s := Source{
		ID:     ws.ID,
		Name:   name,
		Route:  ws.Route,
		Status: ws.Status,
		Label:  ws.Label,
		Error:  ws.Error,
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Route == "" && classify != nil {
		s.Route = classify(name)
	}
	if s.Route == "" {
		s.Route = RouteRaw
	}
	if s.Label == "" {
		s.Label = s.Route.Label()
	}
	switch s.Status {
	case StatusPending, StatusDone, StatusError:
	case StatusLoading:
		// a run interrupted mid-flight never completed
		s.Status = StatusError
		if s.Error == "" {
			s.Error = "processing interrupted"
		}
	default:
		s.Status = StatusPending
		if s.Route == RouteRaw {
			s.Status = StatusDone
		}
	}
	return s
}

// LogoAssetName reduces a stored logo path to its file name.
func LogoAssetName(logoPath string) string {
	logoPath = strings.TrimSpace(strings.ReplaceAll(logoPath, `\`, "/"))
	if logoPath == "" {
		return ""
	}
	return path.Base(logoPath)
}

// Blank reports whether a serialized JSON field carries no data: empty,
// "{}", "[]", or "null".
func Blank(v string) bool {
	switch strings.TrimSpace(v) {
	case "", "{}", "[]", "null":
		return true
	}
	return false
}

func present(v string) bool {
	return !Blank(v)
}

func encode(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
