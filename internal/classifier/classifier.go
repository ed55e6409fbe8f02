// Package classifier routes uploaded files to a processing pipeline by file
// name alone. Classification is a pure function of the name and the rule
// table; the default table is embedded and may be replaced from a file.
package classifier

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/JaimeStill/licita/internal/workspace"
)

//go:embed rules.yaml
var defaultRules []byte

// ErrInvalidRules indicates a rule table that cannot be used.
var ErrInvalidRules = errors.New("invalid classification rules")

// Rule maps a file name pattern to a route.
type Rule struct {
	Route      workspace.Route `yaml:"route"`
	Extensions []string        `yaml:"extensions"`
	Keywords   []string        `yaml:"keywords"`
}

// Table is an ordered rule list with a fallback route.
type Table struct {
	Rules    []Rule          `yaml:"rules"`
	Fallback workspace.Route `yaml:"fallback"`
}

// Classifier applies a Table to file names.
type Classifier struct {
	table Table
}

// Default returns a Classifier over the embedded rule table.
func Default() *Classifier {
	c, err := Parse(defaultRules)
	if err != nil {
		panic(fmt.Sprintf("embedded rules: %v", err))
	}
	return c
}

// Load reads a rule table from path. An empty path yields Default.
func Load(path string) (*Classifier, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML rule table.
func Parse(data []byte) (*Classifier, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRules, err)
	}
	if err := t.normalize(); err != nil {
		return nil, err
	}
	return &Classifier{table: t}, nil
}

func (t *Table) normalize() error {
	if len(t.Rules) == 0 {
		return fmt.Errorf("%w: no rules", ErrInvalidRules)
	}
	if t.Fallback == "" {
		t.Fallback = workspace.RouteRaw
	}
	for i := range t.Rules {
		r := &t.Rules[i]
		if r.Route == "" {
			return fmt.Errorf("%w: rule %d has no route", ErrInvalidRules, i)
		}
		if len(r.Extensions) == 0 && len(r.Keywords) == 0 {
			return fmt.Errorf("%w: rule %d matches everything", ErrInvalidRules, i)
		}
		for j, ext := range r.Extensions {
			ext = strings.ToLower(strings.TrimSpace(ext))
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			r.Extensions[j] = ext
		}
		for j, kw := range r.Keywords {
			r.Keywords[j] = strings.ToLower(kw)
		}
	}
	return nil
}

// Classify returns the route for filename. It is total: names that match no
// rule get the fallback route.
func (c *Classifier) Classify(filename string) workspace.Route {
	name := strings.ToLower(filepath.Base(filename))
	ext := filepath.Ext(name)

	for _, r := range c.table.Rules {
		if r.matches(name, ext) {
			return r.Route
		}
	}
	return c.table.Fallback
}

func (r Rule) matches(name, ext string) bool {
	if len(r.Extensions) > 0 && !slices.Contains(r.Extensions, ext) {
		return false
	}
	if len(r.Keywords) == 0 {
		return true
	}
	for _, kw := range r.Keywords {
		if strings.Contains(name, kw) {
			return true
		}
	}
	return false
}

// Reclassify re-evaluates the route of a source left on a generic route (raw
// or analyze-base) and reroutes it when the result differs. Sources on a
// specific route are never touched. It reports whether the source changed.
func (c *Classifier) Reclassify(s *workspace.Source) bool {
	if s.Route != workspace.RouteRaw && s.Route != workspace.RouteAnalyzeBase {
		return false
	}
	return s.Reroute(c.Classify(s.Name))
}
