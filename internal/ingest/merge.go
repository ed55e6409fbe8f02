package ingest

import (
	"strings"

	"github.com/JaimeStill/licita/internal/workspace"
)

var placeholders = map[string]struct{}{
	"":                    {},
	"n/d":                 {},
	"none":                {},
	"xaxx010101000":       {},
	"empresa s.a.":        {},
	"representante legal": {},
	"error":               {},
}

// Placeholder reports whether v is a known stand-in value that must never
// overwrite a real one.
func Placeholder(v workspace.Text) bool {
	_, ok := placeholders[strings.ToLower(v.Trim())]
	return ok
}

// keep assigns incoming to *dst unless incoming is a placeholder.
func keep(dst *workspace.Text, incoming workspace.Text) {
	if !Placeholder(incoming) {
		*dst = workspace.Text(incoming.Trim())
	}
}

// overwrite assigns incoming to *dst when it is non-empty.
func overwrite(dst *workspace.Text, incoming workspace.Text) {
	if !incoming.Empty() {
		*dst = incoming
	}
}

// MergeAnalysis replaces the workspace analysis and folds the bidder
// profile into the tax identity without letting placeholders win.
func MergeAnalysis(w *workspace.Workspace, analysis workspace.Analysis, profile *workspace.Profile) {
	w.Analysis = &analysis
	if profile == nil {
		return
	}

	id := identity(w)
	bidder := profile.Bidder
	keep(&id.LegalName, bidder.Company)
	keep(&id.RFC, bidder.RFC)
	keep(&id.Address, bidder.Address)
	keep(&id.Representative, bidder.Representative)
	keep(&id.Role, bidder.Role)
	settle(w)
}

// MergeFiscal shallow-merges an extracted fiscal identity: every non-empty
// incoming field wins.
func MergeFiscal(w *workspace.Workspace, in workspace.TaxIdentity) {
	id := identity(w)
	overwrite(&id.RFC, in.RFC)
	overwrite(&id.LegalName, in.LegalName)
	overwrite(&id.Representative, in.Representative)
	overwrite(&id.Address, in.Address)
	overwrite(&id.PersonType, in.PersonType)
	overwrite(&id.TaxRegime, in.TaxRegime)
	overwrite(&id.Role, in.Role)
	settle(w)
}

// MergeCorporateAct stores the act and propagates its representative and
// role to the tax identity when present.
func MergeCorporateAct(w *workspace.Workspace, act workspace.CorporateAct) {
	w.CorporateAct = &act

	rep := act.RepresentativeName()
	if rep.Empty() && act.Role.Empty() {
		return
	}
	id := identity(w)
	keep(&id.Representative, rep)
	keep(&id.Role, act.Role)
	settle(w)
}

func identity(w *workspace.Workspace) *workspace.TaxIdentity {
	if w.TaxIdentity == nil {
		w.TaxIdentity = &workspace.TaxIdentity{}
	}
	return w.TaxIdentity
}

func settle(w *workspace.Workspace) {
	if w.TaxIdentity.Empty() {
		w.TaxIdentity = nil
	}
}
