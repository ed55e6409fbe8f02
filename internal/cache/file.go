package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/JaimeStill/licita/internal/workspace"
)

// File persists the workspace list as one JSON array.
type File struct {
	path string
}

// NewFile returns a File stored at path.
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the backing file path.
func (f *File) Path() string {
	return f.path
}

// Load reads the persisted list. A missing file yields an empty list. A file
// that does not parse, or that holds an entry whose name is itself serialized
// JSON, is corrupt: Load returns ErrCorrupt and the caller discards it.
func (f *File) Load() ([]workspace.Workspace, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []workspace.Workspace{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cache: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return []workspace.Workspace{}, nil
	}

	var list []workspace.Workspace
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	for _, w := range list {
		if serializedName(w.Name) {
			return nil, fmt.Errorf("%w: workspace %s has a serialized name", ErrCorrupt, w.ID)
		}
	}
	return list, nil
}

// Save writes list atomically: a temp file in the same directory is renamed
// over the target, so a crash never leaves a partial file behind.
func (f *File) Save(list []workspace.Workspace) error {
	if list == nil {
		list = []workspace.Workspace{}
	}
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	if err := writeFileAtomic(f.path, data, 0o600); err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	return nil
}

// Discard removes the persisted file.
func (f *File) Discard() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("discard cache: %w", err)
	}
	return nil
}

func serializedName(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" || (name[0] != '{' && name[0] != '[') {
		return false
	}
	return json.Valid([]byte(name))
}

func writeFileAtomic(path string, data []byte, mode os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	committed = true
	return nil
}
