// Package records is the record store service: workspace records in
// PostgreSQL, rebuilt on demand from the files kept in blob storage.
package records

import (
	"context"

	"github.com/JaimeStill/licita/pkg/pagination"
)

// System defines the workspace record operations.
type System interface {
	Handler() *Handler

	All(ctx context.Context) ([]Record, error)
	Search(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Record], error)
	Get(ctx context.Context, id string) (*Record, error)
	Sync(ctx context.Context, cmd SyncCommand) (*SyncResult, error)
	Delete(ctx context.Context, id string) error
	Reindex(ctx context.Context) (*ReindexResult, error)
}
