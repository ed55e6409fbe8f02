package desk

import (
	"slices"

	"github.com/JaimeStill/licita/internal/compliance"
	"github.com/JaimeStill/licita/internal/ingest"
)

// EventKind classifies a desk event.
type EventKind string

const (
	// EventNotice carries a user-facing message.
	EventNotice EventKind = "notice"
	// EventProgress carries extraction progress of a source.
	EventProgress EventKind = "progress"
	// EventWorkspaceChanged signals that a workspace must be re-rendered.
	EventWorkspaceChanged EventKind = "workspace_changed"
	// EventComplianceRendered carries a critical point rendering.
	EventComplianceRendered EventKind = "compliance_rendered"
)

type subscriber struct {
	id int
	fn func(Event)
}

// Event is delivered to every subscriber.
type Event struct {
	Kind        EventKind
	WorkspaceID string
	SourceID    string
	Level       ingest.Level
	Message     string
	Progress    float64
	View        *compliance.View
}

// Subscribe registers fn for every event and returns a function that
// removes it. fn runs on the goroutine that raised the event.
func (d *Desk) Subscribe(fn func(Event)) func() {
	d.subMu.Lock()
	defer d.subMu.Unlock()
	id := d.nextSub
	d.nextSub++
	d.subs = append(d.subs, subscriber{id: id, fn: fn})
	return func() {
		d.subMu.Lock()
		defer d.subMu.Unlock()
		d.subs = slices.DeleteFunc(d.subs, func(s subscriber) bool { return s.id == id })
	}
}

func (d *Desk) publish(e Event) {
	d.subMu.RLock()
	subs := slices.Clone(d.subs)
	d.subMu.RUnlock()

	for _, s := range subs {
		s.fn(e)
	}
}

func (d *Desk) notify(workspaceID string, level ingest.Level, msg string) {
	d.publish(Event{Kind: EventNotice, WorkspaceID: workspaceID, Level: level, Message: msg})
}

func (d *Desk) changed(workspaceID string) {
	d.publish(Event{Kind: EventWorkspaceChanged, WorkspaceID: workspaceID})
}
