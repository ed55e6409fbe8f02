// Package routes declares HTTP routes as nested groups and registers them
// on a ServeMux.
package routes

import "net/http"

// Route binds a method and path pattern to a handler.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
}

// String returns the ServeMux pattern, "METHOD /path".
func (r Route) String() string {
	return r.Method + " " + r.Pattern
}

// Group is a set of routes sharing a path prefix. Children nest under the
// group's prefix.
type Group struct {
	Prefix   string
	Routes   []Route
	Children []Group
}

// Flatten returns every route of g and its children with the full prefix
// applied, parents first.
func (g Group) Flatten() []Route {
	return g.flatten("")
}

func (g Group) flatten(parent string) []Route {
	prefix := parent + g.Prefix
	out := make([]Route, 0, len(g.Routes))
	for _, r := range g.Routes {
		r.Pattern = prefix + r.Pattern
		out = append(out, r)
	}
	for _, child := range g.Children {
		out = append(out, child.flatten(prefix)...)
	}
	return out
}

// Register adds the routes of every group to mux. Conflicting patterns
// panic, as they do for ServeMux.
func Register(mux *http.ServeMux, groups ...Group) {
	for _, g := range groups {
		for _, r := range g.Flatten() {
			mux.HandleFunc(r.String(), r.Handler)
		}
	}
}
