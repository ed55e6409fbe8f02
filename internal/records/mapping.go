package records

import (
	"regexp"
	"strings"

	"github.com/JaimeStill/licita/pkg/query"
	"github.com/JaimeStill/licita/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "workspaces", "w").
	Project("id", "ID").
	Project("name", "Name").
	Project("logo_path", "LogoPath").
	Project("cif_data", "CIFData").
	Project("acta_data", "ActaData").
	Project("prices_data", "PricesData").
	Project("sources", "Sources").
	Project("analysis", "Analysis").
	Project("status", "Status").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.WhereEquals("Status", f.Status)
}

func scanRecord(s repository.Scanner) (Record, error) {
	var r Record
	err := s.Scan(
		&r.ID,
		&r.Name,
		&r.LogoPath,
		&r.CIFData,
		&r.ActaData,
		&r.PricesData,
		&r.Sources,
		&r.Analysis,
		&r.Status,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	return r, err
}

// leakedID matches a name that is really a numeric identifier.
var leakedID = regexp.MustCompile(`^\d{10,}$`)

// NullIfBlank returns nil for values that carry no data ("", "{}", "[]",
// "null") so an upsert keeps what is already stored.
func NullIfBlank(v string) *string {
	switch strings.TrimSpace(v) {
	case "", "{}", "[]", "null":
		return nil
	}
	return &v
}

// ReplacementName returns the name an update may write, or nil when the
// incoming name is blank or a bare 10+ digit number.
func ReplacementName(name string) *string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || leakedID.MatchString(trimmed) {
		return nil
	}
	return &name
}
