package records

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"runtime"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/licita/pkg/storage"
)

// Prefix is the blob key prefix of every workspace file.
const Prefix = "workspaces/"

const (
	analysisFile = "analysis.json"
	sourcesFile  = "sources.json"
	maxNameRunes = 80
)

var logoExtensions = []string{".png", ".jpg", ".jpeg"}

// BlobKey returns the storage key of a workspace file.
func BlobKey(id, name string) string {
	return Prefix + id + "/" + name
}

// Entry is a workspace record rebuilt from its stored files.
type Entry struct {
	ID       string
	Name     string
	LogoPath *string
	CIFData  *string
	Sources  *string
	Analysis *string
}

type indexedSource struct {
	Filename string `json:"filename"`
	Uploaded bool   `json:"uploaded"`
}

// Scan rebuilds one entry per workspace prefix found in store, in key
// order. Unreadable JSON files are skipped; storage failures abort.
func Scan(ctx context.Context, store storage.System, logger *slog.Logger) ([]Entry, error) {
	objects, err := store.List(ctx, Prefix)
	if err != nil {
		return nil, fmt.Errorf("list workspace blobs: %w", err)
	}

	var ids []string
	files := make(map[string][]string)
	for _, obj := range objects {
		id, name, ok := strings.Cut(strings.TrimPrefix(obj.Key, Prefix), "/")
		if !ok || id == "" || name == "" {
			continue
		}
		if _, seen := files[id]; !seen {
			ids = append(ids, id)
		}
		files[id] = append(files[id], name)
	}

	entries := make([]Entry, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(min(runtime.NumCPU(), len(ids)), 1))

	for i, id := range ids {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			e, err := scanWorkspace(gctx, store, logger, id, files[id])
			if err != nil {
				return fmt.Errorf("scan workspace %s: %w", id, err)
			}
			entries[i] = e
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return entries, nil
}

func scanWorkspace(ctx context.Context, store storage.System, logger *slog.Logger, id string, names []string) (Entry, error) {
	e := Entry{ID: id, Name: id}

	if slices.Contains(names, analysisFile) {
		data, err := readBlob(ctx, store, BlobKey(id, analysisFile))
		if err != nil {
			return Entry{}, err
		}
		var obj map[string]any
		if err := json.Unmarshal(data, &obj); err != nil || obj == nil {
			logger.Warn("skipping unreadable analysis", "workspace_id", id, "error", err)
		} else {
			e.Analysis = text(data)
			if objeto, ok := obj["objeto"].(string); ok && strings.TrimSpace(objeto) != "" {
				e.Name = truncate(objeto, maxNameRunes)
			}
		}
	}

	for _, ext := range logoExtensions {
		if i := slices.IndexFunc(names, hasExt(ext)); i >= 0 {
			e.LogoPath = text([]byte(BlobKey(id, names[i])))
			break
		}
	}

	for _, name := range names {
		if !hasExt(".json")(name) || strings.Contains(name, "analysis") || path.Base(name) == sourcesFile {
			continue
		}
		data, err := readBlob(ctx, store, BlobKey(id, name))
		if err != nil {
			return Entry{}, err
		}
		var obj map[string]any
		if err := json.Unmarshal(data, &obj); err != nil || obj == nil {
			continue
		}
		_, rfc := obj["rfc"]
		_, razon := obj["razon_social"]
		if rfc || razon {
			e.CIFData = text(data)
			break
		}
	}

	var pdfs []indexedSource
	for _, name := range names {
		if hasExt(".pdf")(name) {
			pdfs = append(pdfs, indexedSource{Filename: path.Base(name), Uploaded: true})
		}
	}
	if len(pdfs) > 0 {
		data, err := json.Marshal(pdfs)
		if err != nil {
			return Entry{}, err
		}
		e.Sources = text(data)
	}

	return e, nil
}

func readBlob(ctx context.Context, store storage.System, key string) ([]byte, error) {
	rc, err := store.Download(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// listed but removed since
			return nil, nil
		}
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func hasExt(ext string) func(string) bool {
	return func(name string) bool {
		return strings.EqualFold(path.Ext(name), ext)
	}
}

func text(data []byte) *string {
	s := string(data)
	return &s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
