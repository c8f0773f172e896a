package entity

import (
	"time"

	"github.com/google/uuid"
)

// Document represents an ingested file for data transfer between layers.
type Document struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	EmpresaID   *uuid.UUID `json:"empresa_id,omitempty" db:"empresa_id"`
	SourcePath  string     `json:"source_path" db:"source_path"`
	ContentHash []byte     `json:"content_hash" db:"content_hash"`
	Filename    string     `json:"filename" db:"filename"`
	FileExt     string     `json:"file_ext" db:"file_ext"`
	FileSize    int64      `json:"file_size" db:"file_size"`
	UploadedAt  time.Time  `json:"uploaded_at" db:"uploaded_at"`
}
