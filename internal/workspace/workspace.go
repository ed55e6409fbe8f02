// Package workspace defines the workspace data model: sources and their
// ingestion state machine, the accumulated analysis, the bidder identity
// records, and the wire form exchanged with the record store.
package workspace

import (
	"maps"
	"slices"
	"strconv"
	"sync"
	"time"
)

// Workspace groups the documents of one tender bid and everything extracted
// from them.
type Workspace struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Sources        []Source        `json:"sources"`
	Analysis       *Analysis       `json:"analysis,omitempty"`
	TaxIdentity    *TaxIdentity    `json:"tax_identity,omitempty"`
	CorporateAct   *CorporateAct   `json:"corporate_act,omitempty"`
	LogoAsset      string          `json:"logo_asset,omitempty"`
	AuditChecklist map[string]bool `json:"audit_checklist,omitempty"`
	ExcelProcessed bool            `json:"excel_processed,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

var (
	idMu   sync.Mutex
	lastID int64
)

// NewID returns a new workspace id: the current Unix time in milliseconds,
// bumped when needed so ids are strictly increasing within the process.
func NewID() string {
	idMu.Lock()
	defer idMu.Unlock()
	id := time.Now().UnixMilli()
	if id <= lastID {
		id = lastID + 1
	}
	lastID = id
	return strconv.FormatInt(id, 10)
}

// New creates an empty workspace.
func New(name string) Workspace {
	return Workspace{
		ID:        NewID(),
		Name:      name,
		Sources:   []Source{},
		CreatedAt: time.Now().UTC(),
	}
}

// Source returns a pointer to the source with id, or nil.
func (w *Workspace) Source(id string) *Source {
	for i := range w.Sources {
		if w.Sources[i].ID == id {
			return &w.Sources[i]
		}
	}
	return nil
}

// SourceByName returns a pointer to the first source named name, or nil.
func (w *Workspace) SourceByName(name string) *Source {
	for i := range w.Sources {
		if w.Sources[i].Name == name {
			return &w.Sources[i]
		}
	}
	return nil
}

// RemoveSource deletes the source with id and reports whether it existed.
func (w *Workspace) RemoveSource(id string) (Source, bool) {
	for i, s := range w.Sources {
		if s.ID == id {
			w.Sources = slices.Delete(w.Sources, i, i+1)
			return s, true
		}
	}
	return Source{}, false
}

// Pending returns the ids of sources awaiting processing, in order.
func (w *Workspace) Pending() []string {
	var ids []string
	for _, s := range w.Sources {
		if s.Status == StatusPending {
			ids = append(ids, s.ID)
		}
	}
	return ids
}

// Clone returns a deep copy that shares no mutable state with w.
func (w Workspace) Clone() Workspace {
	c := w
	c.Sources = slices.Clone(w.Sources)
	if c.Sources == nil {
		c.Sources = []Source{}
	}
	c.Analysis = w.Analysis.Clone()
	if w.TaxIdentity != nil {
		tax := *w.TaxIdentity
		c.TaxIdentity = &tax
	}
	if w.CorporateAct != nil {
		act := *w.CorporateAct
		c.CorporateAct = &act
	}
	c.AuditChecklist = maps.Clone(w.AuditChecklist)
	return c
}
