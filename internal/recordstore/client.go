// Package recordstore is the client of the authoritative workspace record
// store: workspace records plus the files uploaded to each workspace.
package recordstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/JaimeStill/licita/internal/workspace"
	"github.com/JaimeStill/licita/pkg/httpclient"
)

// File describes a file stored in a workspace.
type File struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	Type       string    `json:"type"`
	Pages      int       `json:"pages,omitempty"`
	ModifiedAt time.Time `json:"modified_at,omitzero"`
}

// ReindexResult is the reply of a store rebuild.
type ReindexResult struct {
	Status   string `json:"status"`
	Inserted int    `json:"inserted"`
}

// Client is the record store surface the engine depends on.
type Client interface {
	List(ctx context.Context) ([]workspace.Record, error)
	Get(ctx context.Context, id string) (workspace.Record, error)
	Sync(ctx context.Context, r workspace.Record) error
	Delete(ctx context.Context, id string) error
	ListFiles(ctx context.Context, id string) ([]File, error)
	Download(ctx context.Context, id, filename string) ([]byte, error)
	Upload(ctx context.Context, id, filename string, data []byte) error
	DeleteFile(ctx context.Context, id, filename string) error
	Reindex(ctx context.Context) (ReindexResult, error)
}

// HTTPClient implements Client against the record store HTTP API.
type HTTPClient struct {
	http *httpclient.Client
}

// NewHTTPClient creates a client for the API rooted at baseURL (for example
// "http://localhost:8080/api").
func NewHTTPClient(baseURL string, httpClient *http.Client, opts ...httpclient.Option) *HTTPClient {
	return &HTTPClient{http: httpclient.New(baseURL, httpClient, opts...)}
}

func (c *HTTPClient) List(ctx context.Context) ([]workspace.Record, error) {
	var out []workspace.Record
	if err := c.http.DoJSON(ctx, http.MethodGet, "/workspaces", nil, nil, &out); err != nil {
		return nil, mapError("list workspaces", err)
	}
	if out == nil {
		out = []workspace.Record{}
	}
	return out, nil
}

func (c *HTTPClient) Get(ctx context.Context, id string) (workspace.Record, error) {
	var out workspace.Record
	if err := c.http.DoJSON(ctx, http.MethodGet, workspacePath(id), nil, nil, &out); err != nil {
		return workspace.Record{}, mapError("get workspace "+id, err)
	}
	return out, nil
}

func (c *HTTPClient) Sync(ctx context.Context, r workspace.Record) error {
	if err := c.http.DoJSON(ctx, http.MethodPost, "/workspaces", nil, r, nil); err != nil {
		return mapError("sync workspace "+r.ID, err)
	}
	return nil
}

func (c *HTTPClient) Delete(ctx context.Context, id string) error {
	if err := c.http.DoJSON(ctx, http.MethodDelete, workspacePath(id), nil, nil, nil); err != nil {
		return mapError("delete workspace "+id, err)
	}
	return nil
}

func (c *HTTPClient) ListFiles(ctx context.Context, id string) ([]File, error) {
	var out []File
	if err := c.http.DoJSON(ctx, http.MethodGet, workspacePath(id)+"/files", nil, nil, &out); err != nil {
		return nil, mapError("list files "+id, err)
	}
	return out, nil
}

func (c *HTTPClient) Download(ctx context.Context, id, filename string) ([]byte, error) {
	resp, err := c.http.Do(ctx, httpclient.Request{
		Method: http.MethodGet,
		Path:   workspacePath(id) + "/download/" + url.PathEscape(filename),
	})
	if err != nil {
		return nil, mapError("download "+filename, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", filename, err)
	}
	return data, nil
}

func (c *HTTPClient) Upload(ctx context.Context, id, filename string, data []byte) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return err
	}
	if _, err := part.Write(data); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	resp, err := c.http.Do(ctx, httpclient.Request{
		Method:      http.MethodPost,
		Path:        workspacePath(id) + "/files",
		Body:        buf.Bytes(),
		ContentType: mw.FormDataContentType(),
	})
	if err != nil {
		return mapError("upload "+filename, err)
	}
	resp.Body.Close()
	return nil
}

func (c *HTTPClient) DeleteFile(ctx context.Context, id, filename string) error {
	path := workspacePath(id) + "/files/" + url.PathEscape(filename)
	if err := c.http.DoJSON(ctx, http.MethodDelete, path, nil, nil, nil); err != nil {
		return mapError("delete file "+filename, err)
	}
	return nil
}

func (c *HTTPClient) Reindex(ctx context.Context) (ReindexResult, error) {
	var out ReindexResult
	if err := c.http.DoJSON(ctx, http.MethodPost, "/reindex", nil, nil, &out); err != nil {
		return ReindexResult{}, mapError("reindex", err)
	}
	return out, nil
}

func workspacePath(id string) string {
	return "/workspaces/" + url.PathEscape(id)
}

func mapError(op string, err error) error {
	switch status := httpclient.StatusCode(err); {
	case status == http.StatusNotFound:
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case status == http.StatusConflict:
		return fmt.Errorf("%s: %w", op, ErrConflict)
	case status == 0 && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded):
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
