package records

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/JaimeStill/licita/pkg/handlers"
	"github.com/JaimeStill/licita/pkg/pagination"
	"github.com/JaimeStill/licita/pkg/routes"
)

// Handler provides HTTP endpoints for workspace records.
type Handler struct {
	sys        System
	logger     *slog.Logger
	pagination pagination.Config
}

// SearchRequest combines pagination and filter criteria for the search endpoint.
type SearchRequest struct {
	pagination.PageRequest
	Filters
}

// NewHandler creates a Handler.
func NewHandler(sys System, logger *slog.Logger, pagination pagination.Config) *Handler {
	return &Handler{
		sys:        sys,
		logger:     logger.With("handler", "records"),
		pagination: pagination,
	}
}

// Routes returns the record endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/workspaces", Handler: h.List},
			{Method: "POST", Pattern: "/workspaces", Handler: h.Sync},
			{Method: "POST", Pattern: "/workspaces/search", Handler: h.Search},
			{Method: "GET", Pattern: "/workspaces/{id}", Handler: h.Get},
			{Method: "DELETE", Pattern: "/workspaces/{id}", Handler: h.Delete},
			{Method: "POST", Pattern: "/reindex", Handler: h.Reindex},
		},
	}
}

// List returns every record, newest first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	recs, err := h.sys.All(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, recs)
}

// Search accepts a JSON body with pagination and filter criteria.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidInput)
		return
	}

	req.PageRequest.Normalize(h.pagination)

	result, err := h.sys.Search(r.Context(), req.PageRequest, req.Filters)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, result)
}

// Get returns one record by id.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.sys.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, rec)
}

// Sync upserts a record. Responds 201 when the record was created.
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	var cmd SyncCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidInput)
		return
	}

	result, err := h.sys.Sync(r.Context(), cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	status := http.StatusOK
	if result.Status == SyncCreated {
		status = http.StatusCreated
	}
	handlers.RespondJSON(w, status, result)
}

// Delete removes a record and its files.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.sys.Delete(r.Context(), r.PathValue("id")); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Reindex rebuilds every record from blob storage.
func (h *Handler) Reindex(w http.ResponseWriter, r *http.Request) {
	result, err := h.sys.Reindex(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, result)
}
