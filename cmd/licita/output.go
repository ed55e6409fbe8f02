package main

import (
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/JaimeStill/licita/internal/compliance"
	"github.com/JaimeStill/licita/internal/desk"
	"github.com/JaimeStill/licita/internal/workspace"
)

// printer writes desk events as they arrive. Events may be published from
// background goroutines.
type printer struct {
	mu      sync.Mutex
	out     io.Writer
	errOut  io.Writer
	verbose bool
}

func newPrinter(out, errOut io.Writer, verbose bool) *printer {
	return &printer{out: out, errOut: errOut, verbose: verbose}
}

func (p *printer) handle(e desk.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch e.Kind {
	case desk.EventNotice:
		fmt.Fprintf(p.errOut, "%s: %s\n", e.Level, e.Message)
	case desk.EventProgress:
		if p.verbose {
			fmt.Fprintf(p.errOut, "  %3.0f%% %s\n", e.Progress, e.Message)
		}
	case desk.EventComplianceRendered:
		if e.View != nil && (p.verbose || e.View.Stage == compliance.StageAnnotated) {
			printView(p.out, *e.View)
		}
	}
}

func printWorkspace(w io.Writer, ws workspace.Workspace) {
	fmt.Fprintf(w, "%s  %s\n", ws.ID, ws.Name)
	if ws.TaxIdentity != nil {
		fmt.Fprintf(w, "bidder: %s\n", ws.TaxIdentity.LegalName.Trim())
	}

	fmt.Fprintln(w, "sources:")
	if len(ws.Sources) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, s := range ws.Sources {
		line := fmt.Sprintf("  [%s] %s (%s)", s.Status, s.Name, s.Label)
		if s.Error != "" {
			line += ": " + s.Error
		}
		fmt.Fprintln(w, line)
	}

	a := ws.Analysis
	if a == nil {
		return
	}
	fmt.Fprintln(w, "analysis:")
	for _, f := range []struct {
		label string
		value workspace.Text
	}{
		{"tender", a.TenderNumber},
		{"issuer", a.Issuer},
		{"subject", a.Subject},
		{"published", a.PublishedOn},
		{"entity", a.EntityType},
	} {
		if !f.value.Empty() {
			fmt.Fprintf(w, "  %-10s %s\n", f.label, f.value.Trim())
		}
	}

	if len(a.Checklist) > 0 {
		fmt.Fprintln(w, "checklist:")
	}
	for i, item := range a.Checklist {
		mark := " "
		if ws.AuditChecklist[item.Key()] {
			mark = "x"
		}
		fmt.Fprintf(w, "  %2d [%s] %s\n", i+1, mark, item.Point.Trim())
	}
}

func printView(w io.Writer, v compliance.View) {
	fmt.Fprintf(w, "compliance (%s):\n", v.Stage)
	if v.Portal {
		fmt.Fprintln(w, "  submitted through the electronic portal")
	}
	for _, f := range slices.Concat(v.Fields, v.Warnings) {
		fmt.Fprintf(w, "  %-18s %s [%s]\n", f.Label, f.Value, f.State)
		if f.Evidence != nil {
			fmt.Fprintf(w, "  %-18s %s: %q\n", "", f.Evidence.File, f.Evidence.Snippet)
		} else if f.Note != "" {
			fmt.Fprintf(w, "  %-18s %s\n", "", f.Note)
		}
	}
}
