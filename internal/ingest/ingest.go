// Package ingest registers documents from the local filesystem and feeds
// new ones to the processing queue.
package ingest

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// IngestionResult is the per-file ingest outcome.
type IngestionResult struct {
	SourcePath   string
	DocumentID   uuid.UUID
	Deduplicated bool
	HashHex      string
	FileExt      string
	UploadedAt   time.Time
	Err          string
}

// DirStats summarizes a directory ingest.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}

// Ingestor is the behavior the server and CLI depend on. A nil empresaID
// leaves the document unowned until its CNPJ is parsed.
type Ingestor interface {
	// IngestPath registers a single file.
	IngestPath(ctx context.Context, empresaID *uuid.UUID, path string) (IngestionResult, error)
	// IngestDirectory ingests all matching files under root.
	IngestDirectory(ctx context.Context, empresaID *uuid.UUID, root string, skipHidden bool) ([]IngestionResult, DirStats, error)
	// IngestUpload stores r under the upload directory and registers it.
	IngestUpload(ctx context.Context, empresaID *uuid.UUID, filename string, r io.Reader) (IngestionResult, error)
}
