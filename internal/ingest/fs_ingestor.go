package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/danieceiflora/perdcomp01-sub000/constants"
	"github.com/danieceiflora/perdcomp01-sub000/internal/entity"
	"github.com/danieceiflora/perdcomp01-sub000/internal/repository"
)

// FSIngestor reads from the local filesystem.
type FSIngestor struct {
	DocumentsRepo repository.DocumentRepository
	EmpresasRepo  repository.EmpresaRepository // optional; checks empresa IDs when set
	UploadDir     string
	Logger        *slog.Logger
}

func NewFSIngestor(docs repository.DocumentRepository, empresas repository.EmpresaRepository, uploadDir string, logger *slog.Logger) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSIngestor{
		DocumentsRepo: docs,
		EmpresasRepo:  empresas,
		UploadDir:     uploadDir,
		Logger:        logger,
	}
}

func (i *FSIngestor) IngestPath(ctx context.Context, empresaID *uuid.UUID, path string) (IngestionResult, error) {
	return i.ingest(ctx, empresaID, path, filepath.Base(path))
}

func (i *FSIngestor) ingest(ctx context.Context, empresaID *uuid.UUID, path, filename string) (IngestionResult, error) {
	var out IngestionResult

	abs, err := filepath.Abs(path)
	if err != nil {
		i.Logger.Error("abs path error", "path", path, "error", err)
		return out, err
	}

	ext := constants.NormalizeExt(filepath.Ext(abs))
	if ext == "" || !AllowedExt(ext) {
		i.Logger.Warn("unsupported or missing extension", "path", abs, "ext", ext)
		return out, fmt.Errorf("unsupported or missing extension: %q", ext)
	}

	if err := i.validateEmpresa(ctx, empresaID); err != nil {
		return out, err
	}

	sum, size, err := hashFile(abs)
	if err != nil {
		i.Logger.Error("hash error", "path", abs, "error", err)
		return out, err
	}

	doc, dedup, err := i.DocumentsRepo.UpsertByHash(ctx, &entity.Document{
		EmpresaID:   empresaID,
		SourcePath:  abs,
		ContentHash: sum,
		Filename:    filename,
		FileExt:     ext,
		FileSize:    size,
		UploadedAt:  time.Now().UTC(),
	})
	if err != nil {
		return out, err
	}
	if dedup {
		i.Logger.Info("document already ingested", "path", abs, "document_id", doc.ID)
	}

	out = IngestionResult{
		SourcePath:   abs,
		DocumentID:   doc.ID,
		Deduplicated: dedup,
		HashHex:      hex.EncodeToString(sum),
		FileExt:      doc.FileExt,
		UploadedAt:   doc.UploadedAt,
	}
	return out, nil
}

// IngestDirectory walks root, skips hidden if requested,
// and calls IngestPath for each file. Returns per-file results + aggregate stats.
func (i *FSIngestor) IngestDirectory(
	ctx context.Context,
	empresaID *uuid.UUID,
	root string,
	skipHidden bool,
) ([]IngestionResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root_path is required")
	}

	var results []IngestionResult
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, IngestionResult{SourcePath: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}
		if !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++

		r, err := i.IngestPath(ctx, empresaID, path)
		if err != nil {
			results = append(results, IngestionResult{SourcePath: path, Err: err.Error()})
			stats.Failed++
			return nil
		}

		results = append(results, r)
		stats.Succeeded++
		if r.Deduplicated {
			stats.Deduplicated++
		}
		return nil
	})

	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	i.Logger.Info("directory ingested", "root", root,
		"scanned", stats.Scanned, "matched", stats.Matched,
		"succeeded", stats.Succeeded, "deduplicated", stats.Deduplicated, "failed", stats.Failed)
	return results, stats, nil
}

// IngestUpload writes r to the upload directory under its content hash and
// registers the stored copy. Re-uploading identical bytes returns the
// existing document.
func (i *FSIngestor) IngestUpload(ctx context.Context, empresaID *uuid.UUID, filename string, r io.Reader) (IngestionResult, error) {
	ext := constants.NormalizeExt(filepath.Ext(filename))
	if !AllowedExt(ext) {
		return IngestionResult{}, fmt.Errorf("unsupported or missing extension: %q", ext)
	}
	if err := os.MkdirAll(i.UploadDir, 0o755); err != nil {
		return IngestionResult{}, fmt.Errorf("create upload dir: %w", err)
	}

	tmp, err := os.CreateTemp(i.UploadDir, ".upload-*")
	if err != nil {
		return IngestionResult{}, err
	}
	defer os.Remove(tmp.Name())

	h := sha256.New()
	if _, err := io.Copy(io.MultiWriter(tmp, h), r); err != nil {
		_ = tmp.Close()
		return IngestionResult{}, fmt.Errorf("store upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return IngestionResult{}, err
	}

	dest := filepath.Join(i.UploadDir, hex.EncodeToString(h.Sum(nil))+"."+ext)
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return IngestionResult{}, fmt.Errorf("store upload: %w", err)
	}
	i.Logger.Info("upload stored", "filename", filename, "path", dest)
	return i.ingest(ctx, empresaID, dest, filepath.Base(filename))
}

func (i *FSIngestor) validateEmpresa(ctx context.Context, empresaID *uuid.UUID) error {
	if empresaID == nil || i.EmpresasRepo == nil {
		return nil
	}
	if _, err := i.EmpresasRepo.Get(ctx, *empresaID); err != nil {
		i.Logger.Warn("empresa check failed", "empresa_id", *empresaID, "error", err)
		return fmt.Errorf("empresa %s: %w", *empresaID, err)
	}
	return nil
}
