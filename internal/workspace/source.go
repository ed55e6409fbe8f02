package workspace

import (
	"fmt"

	"github.com/google/uuid"
)

// Route names the processing pipeline a source is sent through.
type Route string

const (
	RouteSpreadsheet  Route = "process-spreadsheet"
	RouteFiscal       Route = "process-context:cif"
	RouteCorporateAct Route = "process-context:acta"
	RouteLogo         Route = "process-context:logo"
	RouteAnalyzeBase  Route = "analyze-base"
	RouteRaw          Route = "raw"
)

// Label is the short human-readable tag shown next to a source.
func (r Route) Label() string {
	switch r {
	case RouteSpreadsheet:
		return "Prices"
	case RouteFiscal:
		return "CIF"
	case RouteCorporateAct:
		return "Acta"
	case RouteLogo:
		return "Logo"
	case RouteAnalyzeBase:
		return "Base"
	default:
		return "File"
	}
}

// Context returns the process-context type ("cif", "acta", "logo") and
// whether r is a context route.
func (r Route) Context() (string, bool) {
	switch r {
	case RouteFiscal:
		return "cif", true
	case RouteCorporateAct:
		return "acta", true
	case RouteLogo:
		return "logo", true
	}
	return "", false
}

// Status is a source's position in the ingestion state machine.
type Status string

const (
	StatusPending Status = "pending"
	StatusLoading Status = "loading"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

var transitions = map[Status][]Status{
	StatusPending: {StatusLoading},
	StatusLoading: {StatusDone, StatusError},
	StatusDone:    {StatusLoading},
	StatusError:   {StatusLoading},
}

// CanTransition reports whether from → to is an edge of the state machine.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Source is one uploaded file within a workspace.
type Source struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Route  Route  `json:"route"`
	Status Status `json:"status"`
	Label  string `json:"label,omitempty"`
	Error  string `json:"error,omitempty"`
}

// NewSource creates a source for filename on route. Raw sources need no
// processing and start done; everything else starts pending.
func NewSource(filename string, route Route) Source {
	status := StatusPending
	if route == RouteRaw {
		status = StatusDone
	}
	return Source{
		ID:     uuid.NewString(),
		Name:   filename,
		Route:  route,
		Status: status,
		Label:  route.Label(),
	}
}

// Transition moves the source to status, clearing the error message unless
// the new status is error.
func (s *Source) Transition(to Status) error {
	if !CanTransition(s.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, s.Status, to)
	}
	s.Status = to
	if to != StatusError {
		s.Error = ""
	}
	return nil
}

// Fail moves a loading source to error with msg retained.
func (s *Source) Fail(msg string) error {
	if err := s.Transition(StatusError); err != nil {
		return err
	}
	s.Error = msg
	return nil
}

// Reroute assigns a new route. A changed route resets the source to pending
// so it is processed on the new pipeline; the result reports whether anything
// changed.
func (s *Source) Reroute(route Route) bool {
	if route == s.Route {
		return false
	}
	s.Route = route
	s.Label = route.Label()
	s.Error = ""
	if route == RouteRaw {
		s.Status = StatusDone
	} else {
		s.Status = StatusPending
	}
	return true
}
