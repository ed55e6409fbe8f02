package registry

import (
	"errors"
	"fmt"
	"strings"

	"github.com/JaimeStill/licita/pkg/query"
	"github.com/JaimeStill/licita/pkg/repository"
)

var companyProjection = query.
	NewProjectionMap("public", "companies", "c").
	Project("id", "ID").
	Project("rfc", "RFC").
	Project("razon_social", "LegalName").
	Project("representante", "Representative").
	Project("cargo", "Role").
	Project("domicilio", "Address").
	Project("created_at", "CreatedAt")

var bidProjection = query.
	NewProjectionMap("public", "bids", "b").
	Project("id", "ID").
	Project("numero_licitacion", "TenderNumber").
	Project("convocante", "Issuer").
	Project("objeto", "Subject").
	Project("presupuesto_estimado", "Budget").
	Project("fianzas_requeridas", "Bonds").
	Project("certificaciones", "Certifications").
	Project("fecha_apertura", "OpeningDate").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var recentFirst = query.SortField{
	Field:      "UpdatedAt",
	Descending: true,
}

func scanCompany(s repository.Scanner) (Company, error) {
	var c Company
	err := s.Scan(
		&c.ID,
		&c.RFC,
		&c.LegalName,
		&c.Representative,
		&c.Role,
		&c.Address,
		&c.CreatedAt,
	)
	return c, err
}

func scanBid(s repository.Scanner) (Bid, error) {
	var b Bid
	err := s.Scan(
		&b.ID,
		&b.TenderNumber,
		&b.Issuer,
		&b.Subject,
		&b.Budget,
		&b.Bonds,
		&b.Certifications,
		&b.OpeningDate,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	return b, err
}

// NormalizeRFC trims and upper-cases an RFC.
func NormalizeRFC(rfc string) string {
	return strings.ToUpper(strings.TrimSpace(rfc))
}

// Validate normalizes the command and reports missing required fields.
func (c *CompanyCommand) Validate() error {
	c.RFC = NormalizeRFC(c.RFC)
	c.LegalName = strings.TrimSpace(c.LegalName)

	var errs []error
	if c.RFC == "" {
		errs = append(errs, errors.New("rfc is required"))
	}
	if c.LegalName == "" {
		errs = append(errs, errors.New("razon_social is required"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidInput, errors.Join(errs...))
	}
	return nil
}

// Validate normalizes the command and reports a missing tender number.
func (c *BidCommand) Validate() error {
	c.TenderNumber = strings.TrimSpace(c.TenderNumber)
	if c.TenderNumber == "" {
		return fmt.Errorf("%w: numero_licitacion is required", ErrInvalidInput)
	}
	return nil
}

func optional(v string) *string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return &v
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
