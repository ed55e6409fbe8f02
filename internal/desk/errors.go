package desk

import "errors"

var (
	// ErrEmptyName indicates a workspace name that is blank.
	ErrEmptyName = errors.New("workspace name must not be empty")
	// ErrChecklistItem indicates a checklist reference that matches no item.
	ErrChecklistItem = errors.New("checklist item not found")
	// ErrNoChecklist indicates the workspace has no compliance checklist.
	ErrNoChecklist = errors.New("workspace has no compliance checklist")
	// ErrSourceBusy indicates a source that is being processed.
	ErrSourceBusy = errors.New("source is being processed")
)
