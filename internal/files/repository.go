package files

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strconv"
	"strings"

	"github.com/JaimeStill/licita/internal/records"
	"github.com/JaimeStill/licita/pkg/storage"
)

type repo struct {
	storage storage.System
	logger  *slog.Logger
}

// New creates the blob-backed file system.
func New(store storage.System, logger *slog.Logger) System {
	return &repo{
		storage: store,
		logger:  logger.With("system", "files"),
	}
}

func (r *repo) Handler(maxUploadSize int64) *Handler {
	return NewHandler(r, r.logger, maxUploadSize)
}

func (r *repo) List(ctx context.Context, workspaceID string) ([]File, error) {
	prefix := records.BlobKey(workspaceID, "")
	objects, err := r.storage.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list files %s: %w", workspaceID, err)
	}

	out := make([]File, 0, len(objects))
	for _, obj := range objects {
		name := strings.TrimPrefix(obj.Key, prefix)
		if name == "" {
			continue
		}
		f := File{
			Name:       name,
			Size:       obj.Size,
			Type:       TypeOf(name),
			ModifiedAt: obj.LastModified,
		}
		if n, err := strconv.Atoi(obj.Metadata[pagesKey]); err == nil {
			f.Pages = &n
		}
		out = append(out, f)
	}
	return out, nil
}

func (r *repo) Upload(ctx context.Context, cmd UploadCommand) (*File, error) {
	name, err := sanitize(cmd.Filename)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cmd.WorkspaceID) == "" {
		return nil, fmt.Errorf("%w: workspace id is required", ErrInvalidFile)
	}

	opts := storage.UploadOptions{ContentType: cmd.ContentType}
	if cmd.PageCount != nil {
		opts.Metadata = map[string]string{pagesKey: strconv.Itoa(*cmd.PageCount)}
	}

	key := records.BlobKey(cmd.WorkspaceID, name)
	if err := r.storage.Upload(ctx, key, bytes.NewReader(cmd.Data), opts); err != nil {
		return nil, fmt.Errorf("upload file blob: %w", err)
	}

	r.logger.Info("file uploaded", "workspace_id", cmd.WorkspaceID, "name", name, "size", len(cmd.Data))
	return &File{
		Name:  name,
		Size:  int64(len(cmd.Data)),
		Type:  TypeOf(name),
		Pages: cmd.PageCount,
	}, nil
}

func (r *repo) Open(ctx context.Context, workspaceID, name string) (io.ReadCloser, error) {
	rc, err := r.storage.Download(ctx, records.BlobKey(workspaceID, name))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, err
	}
	return rc, nil
}

func (r *repo) Delete(ctx context.Context, workspaceID, name string) error {
	if err := r.storage.Delete(ctx, records.BlobKey(workspaceID, name)); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return err
	}
	r.logger.Info("file deleted", "workspace_id", workspaceID, "name", name)
	return nil
}

// sanitize reduces an uploaded file name to its base name.
func sanitize(filename string) (string, error) {
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(filename), `\`, "/"))
	if name == "." || name == "/" || name == "" || name == ".." {
		return "", fmt.Errorf("%w: missing file name", ErrInvalidFile)
	}
	return name, nil
}
