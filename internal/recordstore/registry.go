package recordstore

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Company is a bidder registered by RFC.
type Company struct {
	RFC            string `json:"rfc"`
	LegalName      string `json:"razon_social"`
	Representative string `json:"representante,omitempty"`
	Role           string `json:"cargo,omitempty"`
	Address        string `json:"domicilio,omitempty"`
}

// Bid is an analysed tender registered by tender number.
type Bid struct {
	TenderNumber string `json:"numero_licitacion"`
	Issuer       string `json:"convocante,omitempty"`
	Subject      string `json:"objeto,omitempty"`
	Bonds        string `json:"fianzas_requeridas,omitempty"`
}

// Stats counts the record store's contents.
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

// Registry is the company and bid directory of the record store.
type Registry interface {
	RegisterCompany(ctx context.Context, c Company) error
	RegisterBid(ctx context.Context, b Bid) error
}

// RegisterCompany adds a company. An RFC already registered yields
// ErrConflict.
func (c *HTTPClient) RegisterCompany(ctx context.Context, company Company) error {
	if err := c.http.DoJSON(ctx, http.MethodPost, "/companies", nil, company, nil); err != nil {
		return mapError("register company "+company.RFC, err)
	}
	return nil
}

// Company returns the company registered under rfc.
func (c *HTTPClient) Company(ctx context.Context, rfc string) (Company, error) {
	var out Company
	if err := c.http.DoJSON(ctx, http.MethodGet, "/companies/"+url.PathEscape(rfc), nil, nil, &out); err != nil {
		return Company{}, mapError("get company "+rfc, err)
	}
	return out, nil
}

// RegisterBid creates or refreshes the bid of a tender number.
func (c *HTTPClient) RegisterBid(ctx context.Context, b Bid) error {
	if err := c.http.DoJSON(ctx, http.MethodPost, "/bids", nil, b, nil); err != nil {
		return mapError("register bid "+b.TenderNumber, err)
	}
	return nil
}

// Stats returns the store counts.
func (c *HTTPClient) Stats(ctx context.Context) (Stats, error) {
	var out Stats
	if err := c.http.DoJSON(ctx, http.MethodGet, "/stats", nil, nil, &out); err != nil {
		return Stats{}, mapError("stats", err)
	}
	return out, nil
}

// Activity returns up to limit recently analysed tenders; limit 0 uses the
// store's default.
func (c *HTTPClient) Activity(ctx context.Context, limit int) ([]Activity, error) {
	var q url.Values
	if limit > 0 {
		q = url.Values{"limit": {strconv.Itoa(limit)}}
	}
	var out []Activity
	if err := c.http.DoJSON(ctx, http.MethodGet, "/activity", q, nil, &out); err != nil {
		return nil, mapError("activity", err)
	}
	return out, nil
}
