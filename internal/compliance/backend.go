package compliance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/JaimeStill/licita/internal/workspace"
	"github.com/JaimeStill/licita/pkg/httpclient"
)

// ApplyResult is the reply of a checklist build.
type ApplyResult struct {
	ChecklistCount int    `json:"checklist_count"`
	Entity         string `json:"entidad"`
}

// Recomputed is the canonical form of a tender's critical points.
type Recomputed struct {
	Portal   bool                     `json:"portal_electronico"`
	Critical workspace.CriticalPoints `json:"puntos_criticos"`
}

// Evidence locates a value in the extracted text of a workspace.
type Evidence struct {
	File    string `json:"file"`
	Snippet string `json:"snippet"`
}

// FieldEvidence reports whether a critical point was found in the text.
type FieldEvidence struct {
	Found    bool      `json:"found"`
	Evidence *Evidence `json:"evidence,omitempty"`
}

// WarningEvidence reports evidence for one warning, keyed by its text.
type WarningEvidence struct {
	Text     workspace.Text `json:"text"`
	Found    bool           `json:"found"`
	Evidence *Evidence      `json:"evidence,omitempty"`
}

// EvidenceReport is the evidence found for every critical point.
type EvidenceReport struct {
	AddressedTo       *FieldEvidence    `json:"dirigido_a"`
	SignatureRequired *FieldEvidence    `json:"firma_requerida"`
	DeliveryPlace     *FieldEvidence    `json:"lugar_entrega"`
	Warnings          []WarningEvidence `json:"advertencias"`
}

// Backend is the compliance service.
type Backend interface {
	// ApplyChecklist builds and stores the compliance checklist of a
	// workspace. An empty entity lets the service choose.
	ApplyChecklist(ctx context.Context, workspaceID, entity string) (ApplyResult, error)
	Recompute(ctx context.Context, workspaceID string) (Recomputed, error)
	Evidence(ctx context.Context, workspaceID string) (EvidenceReport, error)
}

// HTTPBackend implements Backend against the compliance HTTP API.
type HTTPBackend struct {
	http *httpclient.Client
}

// NewHTTPBackend creates a backend for the API rooted at baseURL.
func NewHTTPBackend(baseURL string, httpClient *http.Client, opts ...httpclient.Option) *HTTPBackend {
	return &HTTPBackend{http: httpclient.New(baseURL, httpClient, opts...)}
}

type envelope struct {
	Status string          `json:"status"`
	Msg    string          `json:"msg"`
	Data   json.RawMessage `json:"data"`
}

func (b *HTTPBackend) ApplyChecklist(ctx context.Context, workspaceID, entity string) (ApplyResult, error) {
	body := map[string]string{"workspace_id": workspaceID}
	if entity != "" {
		body["entidad"] = entity
	}
	var out ApplyResult
	_, err := b.call(ctx, "/compliance/apply", body, &out)
	return out, err
}

func (b *HTTPBackend) Recompute(ctx context.Context, workspaceID string) (Recomputed, error) {
	var out Recomputed
	found, err := b.call(ctx, "/critical-rules/recompute", map[string]string{"workspace_id": workspaceID}, &out)
	if err == nil && !found {
		err = fmt.Errorf("%w: /critical-rules/recompute", ErrEmptyReply)
	}
	return out, err
}

func (b *HTTPBackend) Evidence(ctx context.Context, workspaceID string) (EvidenceReport, error) {
	var out EvidenceReport
	_, err := b.call(ctx, "/critical-rules/evidence", map[string]string{"workspace_id": workspaceID}, &out)
	return out, err
}

// call posts body to path and decodes the envelope data into out. It reports
// whether the reply carried any data.
func (b *HTTPBackend) call(ctx context.Context, path string, body, out any) (bool, error) {
	var env envelope
	if err := b.http.DoJSON(ctx, http.MethodPost, path, nil, body, &env); err != nil {
		return false, fmt.Errorf("%s: %w", path, err)
	}
	if env.Status != "success" {
		msg := env.Msg
		if msg == "" {
			msg = "status " + env.Status
		}
		return false, fmt.Errorf("%w: %s: %s", ErrRejected, path, msg)
	}
	if len(env.Data) == 0 || workspace.Blank(string(env.Data)) {
		return false, nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return false, fmt.Errorf("%s: decode data: %w", path, err)
	}
	return true, nil
}
