// Package files serves the files uploaded to each workspace, kept in blob
// storage under workspaces/{id}/.
package files

import (
	"context"
	"io"
)

// System defines the workspace file operations.
type System interface {
	Handler(maxUploadSize int64) *Handler

	List(ctx context.Context, workspaceID string) ([]File, error)
	Upload(ctx context.Context, cmd UploadCommand) (*File, error)
	Open(ctx context.Context, workspaceID, name string) (io.ReadCloser, error)
	Delete(ctx context.Context, workspaceID, name string) error
}
