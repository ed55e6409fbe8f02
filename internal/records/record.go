package records

import "time"

// Record statuses.
const (
	StatusDraft = "draft"
	StatusReady = "ready"
)

// Record is a stored workspace. Structured fields are serialized JSON kept
// as text; nil means the field was never written.
type Record struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	LogoPath   *string   `json:"logo_path"`
	CIFData    *string   `json:"cif_data"`
	ActaData   *string   `json:"acta_data"`
	PricesData *string   `json:"prices_data"`
	Sources    *string   `json:"sources"`
	Analysis   *string   `json:"analysis"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"date"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// SyncCommand is the body of an upsert. Empty values never overwrite
// stored ones.
type SyncCommand struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	LogoPath   string     `json:"logo_path"`
	CIFData    string     `json:"cif_data"`
	ActaData   string     `json:"acta_data"`
	PricesData string     `json:"prices_data"`
	Sources    string     `json:"sources"`
	Analysis   string     `json:"analysis"`
	Status     string     `json:"status"`
	Date       *time.Time `json:"date,omitempty"`
}

// SyncResult reports whether a sync created or updated the record.
type SyncResult struct {
	Status string `json:"status"`
	Record Record `json:"record"`
}

// Sync result statuses.
const (
	SyncCreated = "success"
	SyncUpdated = "updated"
)

// ReindexResult is the reply of a rebuild.
type ReindexResult struct {
	Status   string `json:"status"`
	Inserted int    `json:"inserted"`
}

// Filters narrows a search.
type Filters struct {
	Status *string `json:"status,omitempty"`
}
