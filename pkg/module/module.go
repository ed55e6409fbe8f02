// Package module mounts prefixed HTTP modules, each with its own
// middleware chain, on a single router.
package module

import (
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/JaimeStill/licita/pkg/middleware"
)

// Module serves a handler below a path prefix. The prefix is stripped
// before the handler sees the request.
type Module struct {
	prefix  string
	handler http.Handler
	chain   middleware.Chain
}

// New creates a module for prefix, such as "/api" or "/api/v1".
func New(prefix string, handler http.Handler) (*Module, error) {
	prefix = strings.TrimSuffix(prefix, "/")
	if !strings.HasPrefix(prefix, "/") {
		return nil, fmt.Errorf("module prefix must start with /: %q", prefix)
	}
	if strings.Contains(prefix, "//") {
		return nil, fmt.Errorf("module prefix has an empty segment: %q", prefix)
	}
	return &Module{prefix: prefix, handler: handler}, nil
}

// Prefix returns the mount prefix.
func (m *Module) Prefix() string {
	return m.prefix
}

// Use appends middleware. It must be called before the module is mounted.
func (m *Module) Use(mw ...middleware.Middleware) {
	m.chain.Use(mw...)
}

// Handler returns the module handler wrapped in its middleware chain; it
// expects prefix-stripped paths.
func (m *Module) Handler() http.Handler {
	return m.chain.Then(m.handler)
}

func (m *Module) matches(path string) bool {
	return path == m.prefix || strings.HasPrefix(path, m.prefix+"/")
}

// Router dispatches to mounted modules by the longest matching prefix and
// falls back to its own ServeMux.
type Router struct {
	mounted  []mount
	fallback *http.ServeMux
}

type mount struct {
	module  *Module
	handler http.Handler
}

// NewRouter creates a router with no modules.
func NewRouter() *Router {
	return &Router{fallback: http.NewServeMux()}
}

// HandleFunc registers a handler for paths outside every module.
func (r *Router) HandleFunc(pattern string, handler http.HandlerFunc) {
	r.fallback.HandleFunc(pattern, handler)
}

// Mount adds m. Two modules may not share a prefix.
func (r *Router) Mount(m *Module) error {
	for _, existing := range r.mounted {
		if existing.module.prefix == m.prefix {
			return fmt.Errorf("module prefix %s already mounted", m.prefix)
		}
	}
	r.mounted = append(r.mounted, mount{module: m, handler: m.Handler()})
	sort.Slice(r.mounted, func(i, j int) bool {
		return len(r.mounted[i].module.prefix) > len(r.mounted[j].module.prefix)
	})
	return nil
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	path := req.URL.Path
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}

	for _, mt := range r.mounted {
		if mt.module.matches(path) {
			mt.handler.ServeHTTP(w, strip(req, path, mt.module.prefix))
			return
		}
	}
	r.fallback.ServeHTTP(w, req)
}

func strip(req *http.Request, path, prefix string) *http.Request {
	rest := strings.TrimPrefix(path, prefix)
	if rest == "" {
		rest = "/"
	}
	out := req.Clone(req.Context())
	out.URL = new(url.URL)
	*out.URL = *req.URL
	out.URL.Path = rest
	out.URL.RawPath = ""
	return out
}
