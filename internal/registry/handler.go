package registry

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/JaimeStill/licita/pkg/handlers"
	"github.com/JaimeStill/licita/pkg/pagination"
	"github.com/JaimeStill/licita/pkg/routes"
)

// Handler provides HTTP endpoints for the company and bid registry.
type Handler struct {
	sys        System
	logger     *slog.Logger
	pagination pagination.Config
}

// NewHandler creates a Handler.
func NewHandler(sys System, logger *slog.Logger, pagination pagination.Config) *Handler {
	return &Handler{
		sys:        sys,
		logger:     logger.With("handler", "registry"),
		pagination: pagination,
	}
}

// Routes returns the registry endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Routes: []routes.Route{
			{Method: "POST", Pattern: "/companies", Handler: h.RegisterCompany},
			{Method: "GET", Pattern: "/companies/{rfc}", Handler: h.Company},
			{Method: "POST", Pattern: "/bids", Handler: h.RegisterBid},
			{Method: "POST", Pattern: "/bids/search", Handler: h.SearchBids},
			{Method: "GET", Pattern: "/stats", Handler: h.Stats},
			{Method: "GET", Pattern: "/activity", Handler: h.Activity},
		},
	}
}

// RegisterCompany creates a company. An already registered RFC is a
// conflict.
func (h *Handler) RegisterCompany(w http.ResponseWriter, r *http.Request) {
	var cmd CompanyCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidInput)
		return
	}

	c, err := h.sys.RegisterCompany(r.Context(), cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusCreated, c)
}

// Company returns a company by RFC.
func (h *Handler) Company(w http.ResponseWriter, r *http.Request) {
	c, err := h.sys.Company(r.Context(), r.PathValue("rfc"))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, c)
}

// RegisterBid upserts a bid by tender number. Responds 201 when the bid
// was created.
func (h *Handler) RegisterBid(w http.ResponseWriter, r *http.Request) {
	var cmd BidCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidInput)
		return
	}

	result, err := h.sys.RegisterBid(r.Context(), cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	status := http.StatusOK
	if result.Status == BidCreated {
		status = http.StatusCreated
	}
	handlers.RespondJSON(w, status, result)
}

// SearchBids accepts a JSON body with pagination criteria.
func (h *Handler) SearchBids(w http.ResponseWriter, r *http.Request) {
	var page pagination.PageRequest
	if err := json.NewDecoder(r.Body).Decode(&page); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidInput)
		return
	}

	page.Normalize(h.pagination)

	result, err := h.sys.SearchBids(r.Context(), page)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, result)
}

// Stats returns the registry and workspace counts.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	s, err := h.sys.Stats(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, s)
}

// Activity returns the most recently analysed tenders. The optional limit
// query parameter caps the count.
func (h *Handler) Activity(w http.ResponseWriter, r *http.Request) {
	limit := ActivityLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > h.pagination.MaxPageSize {
			handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidInput)
			return
		}
		limit = n
	}

	items, err := h.sys.Activity(r.Context(), limit)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, items)
}
