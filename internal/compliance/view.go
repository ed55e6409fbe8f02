package compliance

import "github.com/JaimeStill/licita/internal/workspace"

// Stage marks how far a render has been refined.
type Stage string

const (
	// StageInitial renders the critical points as extracted.
	StageInitial Stage = "initial"
	// StageCanonical renders the recomputed critical points.
	StageCanonical Stage = "canonical"
	// StageAnnotated adds textual evidence to every field.
	StageAnnotated Stage = "annotated"
)

// EvidenceState is the evidence status of one rendered field.
type EvidenceState string

const (
	EvidenceUnchecked EvidenceState = "unchecked"
	EvidenceFound     EvidenceState = "found"
	EvidenceMissing   EvidenceState = "missing"
)

// NoEvidence is the note shown for a field without textual evidence.
const NoEvidence = "no textual evidence"

// Field is one rendered critical point.
type Field struct {
	Key      string        `json:"key"`
	Label    string        `json:"label"`
	Value    string        `json:"value"`
	State    EvidenceState `json:"state"`
	Evidence *Evidence     `json:"evidence,omitempty"`
	Note     string        `json:"note,omitempty"`
}

// View is a rendering of a workspace's critical points.
type View struct {
	WorkspaceID string  `json:"workspace_id"`
	Stage       Stage   `json:"stage"`
	Portal      bool    `json:"portal_electronico"`
	Fields      []Field `json:"fields"`
	Warnings    []Field `json:"warnings"`
}

// Render builds a view of cp. A nil report leaves every field unchecked.
// Only fields with a value are rendered.
func Render(workspaceID string, stage Stage, portal bool, cp *workspace.CriticalPoints, report *EvidenceReport) View {
	v := View{WorkspaceID: workspaceID, Stage: stage, Portal: portal, Fields: []Field{}, Warnings: []Field{}}
	if cp == nil {
		return v
	}

	var addressed, signature, delivery *FieldEvidence
	if report != nil {
		addressed, signature, delivery = report.AddressedTo, report.SignatureRequired, report.DeliveryPlace
	}

	for _, f := range []struct {
		key, label string
		value      workspace.Text
		ev         *FieldEvidence
	}{
		{"dirigido_a", "Addressed to", cp.AddressedTo, addressed},
		{"firma_requerida", "Signature required", cp.SignatureRequired, signature},
		{"lugar_entrega", "Delivery place", cp.DeliveryPlace, delivery},
	} {
		if f.value.Empty() {
			continue
		}
		v.Fields = append(v.Fields, annotate(Field{Key: f.key, Label: f.label, Value: f.value.Trim()}, report != nil, f.ev))
	}

	for _, w := range cp.Warnings {
		if w.Empty() {
			continue
		}
		field := Field{Key: "advertencia", Label: "Warning", Value: w.String()}
		var ev *FieldEvidence
		if report != nil {
			ev = matchWarning(report.Warnings, w)
		}
		v.Warnings = append(v.Warnings, annotate(field, report != nil, ev))
	}

	return v
}

func annotate(f Field, checked bool, ev *FieldEvidence) Field {
	if !checked {
		f.State = EvidenceUnchecked
		return f
	}
	if ev != nil && ev.Found {
		f.State = EvidenceFound
		f.Evidence = ev.Evidence
		return f
	}
	f.State = EvidenceMissing
	f.Note = NoEvidence
	return f
}

// matchWarning finds the evidence entry whose text equals warning exactly.
func matchWarning(entries []WarningEvidence, warning workspace.Text) *FieldEvidence {
	for _, e := range entries {
		if e.Text == warning {
			return &FieldEvidence{Found: e.Found, Evidence: e.Evidence}
		}
	}
	return nil
}
