package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/JaimeStill/licita/pkg/pagination"
	"github.com/JaimeStill/licita/pkg/query"
	"github.com/JaimeStill/licita/pkg/repository"
	"github.com/JaimeStill/licita/pkg/storage"
)

var tracer = otel.Tracer("github.com/JaimeStill/licita/internal/records")

const returning = `RETURNING id, name, logo_path, cif_data, acta_data, prices_data, sources, analysis, status, created_at, updated_at`

// The upsert inserts new ids as given and, for existing ids, only
// overwrites columns whose incoming value is not NULL. (xmax = 0) is true
// for a freshly inserted row.
const upsertSQL = `
	INSERT INTO workspaces(id, name, logo_path, cif_data, acta_data, prices_data, sources, analysis, status, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, COALESCE($9, 'draft'), COALESCE($10, now()))
	ON CONFLICT (id) DO UPDATE SET
		name        = COALESCE($11, workspaces.name),
		logo_path   = COALESCE(EXCLUDED.logo_path, workspaces.logo_path),
		cif_data    = COALESCE(EXCLUDED.cif_data, workspaces.cif_data),
		acta_data   = COALESCE(EXCLUDED.acta_data, workspaces.acta_data),
		prices_data = COALESCE(EXCLUDED.prices_data, workspaces.prices_data),
		sources     = COALESCE(EXCLUDED.sources, workspaces.sources),
		analysis    = COALESCE(EXCLUDED.analysis, workspaces.analysis),
		status      = COALESCE($9, workspaces.status),
		updated_at  = now()
	` + returning + `, (xmax = 0)`

const insertEntrySQL = `
	INSERT INTO workspaces(id, name, logo_path, cif_data, sources, analysis, status)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`

type repo struct {
	db         *sql.DB
	storage    storage.System
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates the record repository implementing System.
func New(
	db *sql.DB,
	store storage.System,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		storage:    store,
		logger:     logger.With("system", "records"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) All(ctx context.Context) ([]Record, error) {
	ctx, span := startSpan(ctx, "records.All", "SELECT")
	defer span.End()

	q, args := query.NewBuilder(projection, defaultSort).Build()
	recs, err := repository.QueryMany(ctx, r.db, q, args, scanRecord)
	if err != nil {
		return nil, fail(span, fmt.Errorf("query workspaces: %w", err))
	}
	return recs, nil
}

func (r *repo) Search(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Record], error) {
	ctx, span := startSpan(ctx, "records.Search", "SELECT")
	defer span.End()

	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Name", "ID")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fail(span, fmt.Errorf("count workspaces: %w", err))
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	recs, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanRecord)
	if err != nil {
		return nil, fail(span, fmt.Errorf("query workspaces: %w", err))
	}

	result := pagination.NewPageResult(recs, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Get(ctx context.Context, id string) (*Record, error) {
	ctx, span := startSpan(ctx, "records.Get", "SELECT")
	defer span.End()

	q, args := query.NewBuilder(projection).BuildSingle("ID", id)
	rec, err := repository.QueryOne(ctx, r.db, q, args, scanRecord)
	if err != nil {
		return nil, mapError(span, err)
	}
	return &rec, nil
}

func (r *repo) Sync(ctx context.Context, cmd SyncCommand) (*SyncResult, error) {
	ctx, span := startSpan(ctx, "records.Sync", "INSERT")
	defer span.End()

	cmd.ID = strings.TrimSpace(cmd.ID)
	if cmd.ID == "" {
		return nil, fail(span, fmt.Errorf("%w: id is required", ErrInvalidInput))
	}

	name := cmd.Name
	if strings.TrimSpace(name) == "" {
		name = cmd.ID
	}

	args := []any{
		cmd.ID,
		name,
		NullIfBlank(cmd.LogoPath),
		NullIfBlank(cmd.CIFData),
		NullIfBlank(cmd.ActaData),
		NullIfBlank(cmd.PricesData),
		NullIfBlank(cmd.Sources),
		NullIfBlank(cmd.Analysis),
		NullIfBlank(cmd.Status),
		cmd.Date,
		ReplacementName(cmd.Name),
	}

	var created bool
	rec, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Record, error) {
		return repository.QueryOne(ctx, tx, upsertSQL, args, func(s repository.Scanner) (Record, error) {
			var rec Record
			err := s.Scan(
				&rec.ID, &rec.Name, &rec.LogoPath, &rec.CIFData, &rec.ActaData, &rec.PricesData,
				&rec.Sources, &rec.Analysis, &rec.Status, &rec.CreatedAt, &rec.UpdatedAt,
				&created,
			)
			return rec, err
		})
	})
	if err != nil {
		return nil, mapError(span, err)
	}

	result := &SyncResult{Status: SyncUpdated, Record: rec}
	if created {
		result.Status = SyncCreated
	}
	r.logger.Info("workspace synced", "workspace_id", rec.ID, "status", result.Status)
	return result, nil
}

func (r *repo) Delete(ctx context.Context, id string) error {
	ctx, span := startSpan(ctx, "records.Delete", "DELETE")
	defer span.End()

	err := repository.ExecExpectOne(ctx, r.db, "DELETE FROM workspaces WHERE id = $1", id)
	if err != nil {
		return mapError(span, err)
	}

	prefix := Prefix + id + "/"
	objects, err := r.storage.List(ctx, prefix)
	if err != nil {
		r.logger.Warn("blob listing failed after DB delete", "prefix", prefix, "error", err)
	}
	for _, obj := range objects {
		if delErr := r.storage.Delete(ctx, obj.Key); delErr != nil && !errors.Is(delErr, storage.ErrNotFound) {
			r.logger.Warn("blob delete failed after DB delete", "key", obj.Key, "error", delErr)
		}
	}

	r.logger.Info("workspace deleted", "workspace_id", id, "blobs", len(objects))
	return nil
}

func (r *repo) Reindex(ctx context.Context) (*ReindexResult, error) {
	ctx, span := startSpan(ctx, "records.Reindex", "INSERT")
	defer span.End()

	entries, err := Scan(ctx, r.storage, r.logger)
	if err != nil {
		return nil, fail(span, err)
	}

	inserted, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (int, error) {
		if _, err := tx.ExecContext(ctx, "DELETE FROM workspaces"); err != nil {
			return 0, fmt.Errorf("clear workspaces: %w", err)
		}
		for _, e := range entries {
			if _, err := tx.ExecContext(ctx, insertEntrySQL,
				e.ID, e.Name, e.LogoPath, e.CIFData, e.Sources, e.Analysis, StatusReady,
			); err != nil {
				return 0, fmt.Errorf("insert workspace %s: %w", e.ID, err)
			}
		}
		return len(entries), nil
	})
	if err != nil {
		return nil, fail(span, err)
	}

	span.SetAttributes(attribute.Int("licita.reindex.inserted", inserted))
	r.logger.Info("workspaces reindexed", "inserted", inserted)
	return &ReindexResult{Status: "ok", Inserted: inserted}, nil
}

func startSpan(ctx context.Context, name, operation string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", operation),
	))
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

var dbErrors = repository.Errors{
	NotFound:  ErrNotFound,
	Duplicate: ErrDuplicate,
	Invalid:   ErrInvalidInput,
}

func mapError(span trace.Span, err error) error {
	mapped := dbErrors.Map(err)
	if errors.Is(mapped, ErrNotFound) {
		return mapped
	}
	return fail(span, mapped)
}
