package records_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JaimeStill/licita/internal/records"
	"github.com/JaimeStill/licita/pkg/pagination"
	"github.com/JaimeStill/licita/pkg/routes"
)

type mockSystem struct {
	allFn     func(ctx context.Context) ([]records.Record, error)
	searchFn  func(ctx context.Context, page pagination.PageRequest, filters records.Filters) (*pagination.PageResult[records.Record], error)
	getFn     func(ctx context.Context, id string) (*records.Record, error)
	syncFn    func(ctx context.Context, cmd records.SyncCommand) (*records.SyncResult, error)
	deleteFn  func(ctx context.Context, id string) error
	reindexFn func(ctx context.Context) (*records.ReindexResult, error)
}

func (m *mockSystem) Handler() *records.Handler { return newTestHandler(m) }

func (m *mockSystem) All(ctx context.Context) ([]records.Record, error) { return m.allFn(ctx) }

func (m *mockSystem) Search(ctx context.Context, page pagination.PageRequest, filters records.Filters) (*pagination.PageResult[records.Record], error) {
	return m.searchFn(ctx, page, filters)
}

func (m *mockSystem) Get(ctx context.Context, id string) (*records.Record, error) {
	return m.getFn(ctx, id)
}

func (m *mockSystem) Sync(ctx context.Context, cmd records.SyncCommand) (*records.SyncResult, error) {
	return m.syncFn(ctx, cmd)
}

func (m *mockSystem) Delete(ctx context.Context, id string) error { return m.deleteFn(ctx, id) }

func (m *mockSystem) Reindex(ctx context.Context) (*records.ReindexResult, error) {
	return m.reindexFn(ctx)
}

func newTestHandler(sys records.System) *records.Handler {
	return records.NewHandler(
		sys,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		pagination.Config{DefaultPageSize: 25, MaxPageSize: 200},
	)
}

func setupMux(sys *mockSystem) *http.ServeMux {
	mux := http.NewServeMux()
	routes.Register(mux, newTestHandler(sys).Routes())
	return mux
}

func ptr(s string) *string { return &s }

func TestListReturnsArray(t *testing.T) {
	mux := setupMux(&mockSystem{
		allFn: func(context.Context) ([]records.Record, error) {
			return []records.Record{{ID: "ws-1", Name: "Junta", Analysis: ptr(`{"objeto":"x"}`), Status: records.StatusReady}}, nil
		},
	})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/workspaces", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got []map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0]["id"] != "ws-1" || got[0]["analysis"] != `{"objeto":"x"}` {
		t.Errorf("body = %v", got)
	}
	if _, ok := got[0]["date"]; !ok {
		t.Error("record is missing the date field")
	}
}

func TestSyncStatus(t *testing.T) {
	tests := []struct {
		name   string
		result string
		want   int
	}{
		{"created", records.SyncCreated, http.StatusCreated},
		{"updated", records.SyncUpdated, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got records.SyncCommand
			mux := setupMux(&mockSystem{
				syncFn: func(_ context.Context, cmd records.SyncCommand) (*records.SyncResult, error) {
					got = cmd
					return &records.SyncResult{Status: tt.result, Record: records.Record{ID: cmd.ID}}, nil
				},
			})

			body := `{"id":"ws-1","name":"Junta","sources":"[]","analysis":"{\"objeto\":\"x\"}","status":"ready"}`
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/workspaces", bytes.NewBufferString(body)))

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if got.ID != "ws-1" || got.Sources != "[]" || got.Analysis != `{"objeto":"x"}` {
				t.Errorf("command = %+v", got)
			}
		})
	}
}

func TestSyncRejectsMalformedBody(t *testing.T) {
	mux := setupMux(&mockSystem{})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/workspaces", bytes.NewBufferString("{")))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestGetMapsErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"found", nil, http.StatusOK},
		{"missing", records.ErrNotFound, http.StatusNotFound},
		{"invalid", records.ErrInvalidInput, http.StatusBadRequest},
		{"failure", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := setupMux(&mockSystem{
				getFn: func(_ context.Context, id string) (*records.Record, error) {
					if tt.err != nil {
						return nil, tt.err
					}
					return &records.Record{ID: id}, nil
				},
			})
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/workspaces/ws-1", nil))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestSearchNormalizesPage(t *testing.T) {
	var got pagination.PageRequest
	var filters records.Filters
	mux := setupMux(&mockSystem{
		searchFn: func(_ context.Context, page pagination.PageRequest, f records.Filters) (*pagination.PageResult[records.Record], error) {
			got, filters = page, f
			result := pagination.NewPageResult([]records.Record{}, 0, page.Page, page.PageSize)
			return &result, nil
		},
	})

	body := `{"page":0,"page_size":1000,"search":"junta","status":"ready","sort":"-Name"}`
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/workspaces/search", bytes.NewBufferString(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got.Page != 1 || got.PageSize != 200 || got.Search == nil || *got.Search != "junta" {
		t.Errorf("page = %+v", got)
	}
	if filters.Status == nil || *filters.Status != "ready" {
		t.Errorf("filters = %+v", filters)
	}
	if len(got.Sort) != 1 || !got.Sort[0].Descending {
		t.Errorf("sort = %v", got.Sort)
	}
}

func TestDeleteAndReindex(t *testing.T) {
	var deleted string
	mux := setupMux(&mockSystem{
		deleteFn: func(_ context.Context, id string) error {
			deleted = id
			return nil
		},
		reindexFn: func(context.Context) (*records.ReindexResult, error) {
			return &records.ReindexResult{Status: "ok", Inserted: 3}, nil
		},
	})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/workspaces/ws-9", nil))
	if rec.Code != http.StatusNoContent || deleted != "ws-9" {
		t.Errorf("delete status = %d, id = %q", rec.Code, deleted)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/reindex", nil))
	var result records.ReindexResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Status != "ok" || result.Inserted != 3 {
		t.Errorf("result = %+v", result)
	}
}
