package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/JaimeStill/licita/pkg/pagination"
	"github.com/JaimeStill/licita/pkg/query"
	"github.com/JaimeStill/licita/pkg/repository"
)

var tracer = otel.Tracer("github.com/JaimeStill/licita/internal/registry")

const insertCompanySQL = `
	INSERT INTO companies(rfc, razon_social, representante, cargo, domicilio)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING id, rfc, razon_social, representante, cargo, domicilio, created_at`

// A second analysis of the same tender refreshes the stored columns it
// carries values for. (xmax = 0) is true for a freshly inserted row.
const upsertBidSQL = `
	INSERT INTO bids(numero_licitacion, convocante, objeto, presupuesto_estimado, fianzas_requeridas, certificaciones, fecha_apertura)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (numero_licitacion) DO UPDATE SET
		convocante           = COALESCE(EXCLUDED.convocante, bids.convocante),
		objeto               = COALESCE(EXCLUDED.objeto, bids.objeto),
		presupuesto_estimado = COALESCE(EXCLUDED.presupuesto_estimado, bids.presupuesto_estimado),
		fianzas_requeridas   = COALESCE(EXCLUDED.fianzas_requeridas, bids.fianzas_requeridas),
		certificaciones      = COALESCE(EXCLUDED.certificaciones, bids.certificaciones),
		fecha_apertura       = COALESCE(EXCLUDED.fecha_apertura, bids.fecha_apertura),
		updated_at           = now()
	RETURNING id, (xmax = 0)`

const statsSQL = `
	SELECT
		(SELECT COUNT(*) FROM companies),
		(SELECT COUNT(*) FROM bids),
		(SELECT COUNT(*) FROM workspaces)`

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates the registry repository implementing System.
func New(db *sql.DB, logger *slog.Logger, pagination pagination.Config) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "registry"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) RegisterCompany(ctx context.Context, cmd CompanyCommand) (*Company, error) {
	ctx, span := startSpan(ctx, "registry.RegisterCompany", "INSERT")
	defer span.End()

	if err := cmd.Validate(); err != nil {
		return nil, fail(span, err)
	}

	args := []any{
		cmd.RFC,
		cmd.LegalName,
		optional(cmd.Representative),
		optional(cmd.Role),
		optional(cmd.Address),
	}
	c, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Company, error) {
		return repository.QueryOne(ctx, tx, insertCompanySQL, args, scanCompany)
	})
	if err != nil {
		return nil, mapError(span, err)
	}

	r.logger.Info("company registered", "rfc", c.RFC, "id", c.ID)
	return &c, nil
}

func (r *repo) Company(ctx context.Context, rfc string) (*Company, error) {
	ctx, span := startSpan(ctx, "registry.Company", "SELECT")
	defer span.End()

	q, args := query.NewBuilder(companyProjection).BuildSingle("RFC", NormalizeRFC(rfc))
	c, err := repository.QueryOne(ctx, r.db, q, args, scanCompany)
	if err != nil {
		return nil, mapError(span, err)
	}
	return &c, nil
}

func (r *repo) RegisterBid(ctx context.Context, cmd BidCommand) (*BidResult, error) {
	ctx, span := startSpan(ctx, "registry.RegisterBid", "INSERT")
	defer span.End()

	if err := cmd.Validate(); err != nil {
		return nil, fail(span, err)
	}

	args := []any{
		cmd.TenderNumber,
		optional(cmd.Issuer),
		optional(cmd.Subject),
		optional(cmd.Budget),
		optional(cmd.Bonds),
		optional(cmd.Certifications),
		optional(cmd.OpeningDate),
	}

	var created bool
	id, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (int64, error) {
		return repository.QueryOne(ctx, tx, upsertBidSQL, args, func(s repository.Scanner) (int64, error) {
			var id int64
			err := s.Scan(&id, &created)
			return id, err
		})
	})
	if err != nil {
		return nil, mapError(span, err)
	}

	result := &BidResult{ID: id, Status: BidUpdated}
	if created {
		result.Status = BidCreated
	}
	r.logger.Info("bid registered", "tender", cmd.TenderNumber, "status", result.Status)
	return result, nil
}

func (r *repo) SearchBids(ctx context.Context, page pagination.PageRequest) (*pagination.PageResult[Bid], error) {
	ctx, span := startSpan(ctx, "registry.SearchBids", "SELECT")
	defer span.End()

	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(bidProjection, recentFirst).
		WhereSearch(page.Search, "TenderNumber", "Issuer", "Subject")

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fail(span, fmt.Errorf("count bids: %w", err))
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	bids, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanBid)
	if err != nil {
		return nil, fail(span, fmt.Errorf("query bids: %w", err))
	}

	result := pagination.NewPageResult(bids, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Stats(ctx context.Context) (*Stats, error) {
	ctx, span := startSpan(ctx, "registry.Stats", "SELECT")
	defer span.End()

	var s Stats
	if err := r.db.QueryRowContext(ctx, statsSQL).Scan(&s.Companies, &s.Bids, &s.Workspaces); err != nil {
		return nil, fail(span, fmt.Errorf("count registry: %w", err))
	}
	return &s, nil
}

func (r *repo) Activity(ctx context.Context, limit int) ([]Activity, error) {
	ctx, span := startSpan(ctx, "registry.Activity", "SELECT")
	defer span.End()

	if limit <= 0 {
		limit = ActivityLimit
	}

	q, args := query.NewBuilder(bidProjection, recentFirst).BuildPage(1, limit)
	bids, err := repository.QueryMany(ctx, r.db, q, args, scanBid)
	if err != nil {
		return nil, fail(span, fmt.Errorf("query bids: %w", err))
	}

	out := make([]Activity, len(bids))
	for i, b := range bids {
		out[i] = Activity{
			TenderNumber: b.TenderNumber,
			Issuer:       deref(b.Issuer),
			Subject:      deref(b.Subject),
			UpdatedAt:    b.UpdatedAt,
		}
	}
	return out, nil
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
