// internal/models/export.go
package models

import (
	"time"
)

// ExportResult describes one rendered conversation export.
type ExportResult struct {
	FileName   string    `json:"file_name"`
	Format     string    `json:"format"`
	Content    string    `json:"content"`
	FilePath   string    `json:"file_path,omitempty"`
	Size       int64     `json:"size"`
	ExportedAt time.Time `json:"exported_at"`
}
