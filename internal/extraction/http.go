package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/JaimeStill/licita/internal/workspace"
	"github.com/JaimeStill/licita/pkg/httpclient"
	"github.com/JaimeStill/licita/pkg/ndjson"
)

const (
	ndjsonType      = "application/x-ndjson"
	defaultDocument = "DOCUMENTO_E2_Presupuesto.docx"
)

// HTTPBackend implements Backend against the extraction service HTTP API.
type HTTPBackend struct {
	http   *httpclient.Client
	logger *slog.Logger
}

// NewHTTPBackend creates a backend for the API rooted at baseURL.
func NewHTTPBackend(baseURL string, httpClient *http.Client, logger *slog.Logger, opts ...httpclient.Option) *HTTPBackend {
	return &HTTPBackend{
		http:   httpclient.New(baseURL, httpClient, opts...),
		logger: logger.With("system", "extraction"),
	}
}

func (b *HTTPBackend) Submit(ctx context.Context, sub Submission) (*Stream, error) {
	path, query, err := endpoint(sub)
	if err != nil {
		return nil, err
	}

	body, contentType, err := multipartBody(sub.Filename, sub.Data)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", sub.Filename, err)
	}

	resp, err := b.http.Do(ctx, httpclient.Request{
		Method:      http.MethodPost,
		Path:        path,
		Query:       query,
		Body:        body,
		ContentType: contentType,
	})
	if err != nil {
		return nil, fmt.Errorf("submit %s to %s: %w", sub.Filename, sub.Route, err)
	}

	if sub.Route == workspace.RouteSpreadsheet {
		defer resp.Body.Close()
		return b.document(resp)
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	switch {
	case mediaType == ndjsonType || sub.Route == workspace.RouteAnalyzeBase:
		return b.stream(ctx, sub, resp), nil
	case mediaType == "application/json" || mediaType == "":
		defer resp.Body.Close()
		return single(resp.Body)
	default:
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedContent, mediaType)
	}
}

func (b *HTTPBackend) stream(ctx context.Context, sub Submission, resp *http.Response) *Stream {
	s := &Stream{close: resp.Body.Close}
	onSkip := func(skip ndjson.Skip) {
		if skip.Incomplete {
			b.logger.Debug("discarded unterminated chunk", "source", sub.Filename, "bytes", len(skip.Line))
			return
		}
		s.skipped.Add(1)
		b.logger.Warn("malformed chunk dropped", "source", sub.Filename, "error", skip.Err)
	}
	s.seq = ndjson.Decode[Chunk](ctx, resp.Body, onSkip)
	return s
}

func single(r io.Reader) (*Stream, error) {
	var c Chunk
	if err := json.NewDecoder(r).Decode(&c); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	if c.Status == "" {
		c.Status = StatusSuccess
	}
	return Chunks(c), nil
}

func (b *HTTPBackend) document(resp *http.Response) (*Stream, error) {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}

	filename := defaultDocument
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		filename = params["filename"]
	}

	return Chunks(Chunk{
		Status:   StatusComplete,
		Msg:      "Documento generado: " + filename,
		document: data,
		filename: filename,
	}), nil
}

func endpoint(sub Submission) (string, url.Values, error) {
	query := url.Values{"workspace_id": {sub.WorkspaceID}}

	if kind, ok := sub.Route.Context(); ok {
		query.Set("type", kind)
		query.Set("force", strconv.FormatBool(sub.Force))
		return "/process-context", query, nil
	}

	switch sub.Route {
	case workspace.RouteAnalyzeBase:
		query.Set("force", strconv.FormatBool(sub.Force))
		return "/analyze-base", query, nil
	case workspace.RouteSpreadsheet:
		return "/process-excel", query, nil
	}

	return "", nil, fmt.Errorf("%w: %s", ErrUnsupportedRoute, sub.Route)
}

func multipartBody(filename string, data []byte) ([]byte, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", strings.TrimSpace(filename))
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), mw.FormDataContentType(), nil
}
