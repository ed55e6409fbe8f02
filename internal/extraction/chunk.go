package extraction

import (
	"encoding/json"
	"fmt"

	"github.com/JaimeStill/licita/internal/workspace"
)

// ChunkStatus tags a progress chunk.
type ChunkStatus string

const (
	StatusInfo     ChunkStatus = "info"
	StatusWarning  ChunkStatus = "warning"
	StatusProgress ChunkStatus = "progress"
	StatusComplete ChunkStatus = "complete"
	StatusError    ChunkStatus = "error"
	// StatusSuccess is how single-object context replies report completion.
	StatusSuccess ChunkStatus = "success"
)

// Chunk is one message of an extraction response.
type Chunk struct {
	Status        ChunkStatus     `json:"status"`
	Msg           string          `json:"msg,omitempty"`
	Val           float64         `json:"val,omitempty"`
	Analysis      json.RawMessage `json:"analysis,omitempty"`
	Profile       json.RawMessage `json:"profile,omitempty"`
	Data          json.RawMessage `json:"data,omitempty"`
	LogoFilename  string          `json:"logo_filename,omitempty"`
	GeneratedDocs json.RawMessage `json:"generated_docs,omitempty"`

	document []byte
	filename string
}

// Terminal reports whether the chunk ends the stream.
func (c Chunk) Terminal() bool {
	switch c.Status {
	case StatusComplete, StatusSuccess, StatusError:
		return true
	}
	return false
}

// Completed reports whether the chunk is a successful completion.
func (c Chunk) Completed() bool {
	return c.Status == StatusComplete || c.Status == StatusSuccess
}

// Payload is the typed result carried by a completion. The set of payload
// types is closed; consumers switch over it exhaustively.
type Payload interface {
	payload()
}

// AnalysisPayload completes the analyze-base route.
type AnalysisPayload struct {
	Analysis workspace.Analysis
	Profile  *workspace.Profile
}

// FiscalPayload completes the cif context route.
type FiscalPayload struct {
	Identity workspace.TaxIdentity
}

// CorporateActPayload completes the acta context route.
type CorporateActPayload struct {
	Act workspace.CorporateAct
}

// LogoPayload completes the logo context route.
type LogoPayload struct {
	Filename string
}

// SpreadsheetPayload completes the spreadsheet route with a generated document.
type SpreadsheetPayload struct {
	Document []byte
	Filename string
}

func (AnalysisPayload) payload()     {}
func (FiscalPayload) payload()       {}
func (CorporateActPayload) payload() {}
func (LogoPayload) payload()         {}
func (SpreadsheetPayload) payload()  {}

// Decode interprets a completion chunk for route.
func (c Chunk) Decode(route workspace.Route) (Payload, error) {
	if !c.Completed() {
		return nil, fmt.Errorf("%w: chunk status %q", ErrNotComplete, c.Status)
	}

	switch route {
	case workspace.RouteAnalyzeBase:
		var p AnalysisPayload
		if !present(c.Analysis) {
			return nil, fmt.Errorf("%w: completion without analysis", ErrMalformedPayload)
		}
		if err := json.Unmarshal(c.Analysis, &p.Analysis); err != nil {
			return nil, fmt.Errorf("%w: analysis: %w", ErrMalformedPayload, err)
		}
		if present(c.Profile) {
			var profile workspace.Profile
			if err := json.Unmarshal(c.Profile, &profile); err == nil {
				p.Profile = &profile
			}
		}
		return p, nil

	case workspace.RouteFiscal:
		var p FiscalPayload
		if present(c.Data) {
			if err := json.Unmarshal(c.Data, &p.Identity); err != nil {
				return nil, fmt.Errorf("%w: cif data: %w", ErrMalformedPayload, err)
			}
		}
		return p, nil

	case workspace.RouteCorporateAct:
		var p CorporateActPayload
		if present(c.Data) {
			if err := json.Unmarshal(c.Data, &p.Act); err != nil {
				return nil, fmt.Errorf("%w: acta data: %w", ErrMalformedPayload, err)
			}
		}
		return p, nil

	case workspace.RouteLogo:
		return LogoPayload{Filename: c.LogoFilename}, nil

	case workspace.RouteSpreadsheet:
		return SpreadsheetPayload{Document: c.document, Filename: c.filename}, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnsupportedRoute, route)
}

func present(raw json.RawMessage) bool {
	return len(raw) > 0 && !workspace.Blank(string(raw))
}
