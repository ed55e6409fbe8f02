// Package registry is the record store's directory of bidder companies,
// keyed by RFC, and of analysed tenders, keyed by tender number.
package registry

import (
	"context"
	"time"

	"github.com/JaimeStill/licita/pkg/pagination"
)

// ActivityLimit is the number of tenders Activity reports by default.
const ActivityLimit = 5

// System defines the registry operations.
type System interface {
	Handler() *Handler

	RegisterCompany(ctx context.Context, cmd CompanyCommand) (*Company, error)
	Company(ctx context.Context, rfc string) (*Company, error)
	RegisterBid(ctx context.Context, cmd BidCommand) (*BidResult, error)
	SearchBids(ctx context.Context, page pagination.PageRequest) (*pagination.PageResult[Bid], error)
	Stats(ctx context.Context) (*Stats, error)
	Activity(ctx context.Context, limit int) ([]Activity, error)
}

// Company is a registered bidder.
type Company struct {
	ID             int64     `json:"id"`
	RFC            string    `json:"rfc"`
	LegalName      string    `json:"razon_social"`
	Representative *string   `json:"representante"`
	Role           *string   `json:"cargo"`
	Address        *string   `json:"domicilio"`
	CreatedAt      time.Time `json:"created_at"`
}

// CompanyCommand is the body of a company registration.
type CompanyCommand struct {
	RFC            string `json:"rfc"`
	LegalName      string `json:"razon_social"`
	Representative string `json:"representante"`
	Role           string `json:"cargo"`
	Address        string `json:"domicilio"`
}

// Bid is an analysed tender.
type Bid struct {
	ID             int64     `json:"id"`
	TenderNumber   string    `json:"numero_licitacion"`
	Issuer         *string   `json:"convocante"`
	Subject        *string   `json:"objeto"`
	Budget         *string   `json:"presupuesto_estimado"`
	Bonds          *string   `json:"fianzas_requeridas"`
	Certifications *string   `json:"certificaciones"`
	OpeningDate    *string   `json:"fecha_apertura"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// BidCommand is the body of a bid upsert. Blank values keep what is
// stored.
type BidCommand struct {
	TenderNumber   string `json:"numero_licitacion"`
	Issuer         string `json:"convocante"`
	Subject        string `json:"objeto"`
	Budget         string `json:"presupuesto_estimado"`
	Bonds          string `json:"fianzas_requeridas"`
	Certifications string `json:"certificaciones"`
	OpeningDate    string `json:"fecha_apertura"`
}

// BidResult reports whether an upsert created or updated the bid.
type BidResult struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

// Bid upsert statuses.
const (
	BidCreated = "success"
	BidUpdated = "updated"
)

// Stats counts the store's contents.
type Stats struct {
	Companies  int `json:"companies"`
	Bids       int `json:"bids"`
	Workspaces int `json:"workspaces"`
}

// Activity is one recently analysed tender.
type Activity struct {
	TenderNumber string    `json:"numero_licitacion"`
	Issuer       string    `json:"convocante"`
	Subject      string    `json:"objeto"`
	UpdatedAt    time.Time `json:"updated_at"`
}
