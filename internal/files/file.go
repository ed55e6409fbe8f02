package files

import (
	"path"
	"strings"
	"time"
)

// File types reported by List.
const (
	TypePDF   = "pdf"
	TypeDOCX  = "docx"
	TypeText  = "txt"
	TypeOther = "other"
)

// pagesKey is the blob metadata entry holding a PDF page count.
const pagesKey = "pages"

// File describes a file stored in a workspace.
type File struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	Type       string    `json:"type"`
	Pages      *int      `json:"pages,omitempty"`
	ModifiedAt time.Time `json:"modified_at,omitzero"`
}

// UploadCommand carries one uploaded file.
type UploadCommand struct {
	WorkspaceID string
	Filename    string
	ContentType string
	Data        []byte
	PageCount   *int
}

// TypeOf classifies a file name by extension.
func TypeOf(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".pdf":
		return TypePDF
	case ".docx":
		return TypeDOCX
	case ".txt":
		return TypeText
	}
	return TypeOther
}
