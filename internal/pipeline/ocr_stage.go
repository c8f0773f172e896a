package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/danieceiflora/perdcomp01-sub000/constants"
	"github.com/danieceiflora/perdcomp01-sub000/internal/common"
	"github.com/danieceiflora/perdcomp01-sub000/internal/ocr"
	"github.com/danieceiflora/perdcomp01-sub000/internal/repository"
)

// TextRecoverer is satisfied by *ocr.Extractor.
type TextRecoverer interface {
	Extract(ctx context.Context, path string) (ocr.RecoveredText, error)
}

type OCRStage struct {
	DocumentsRepo repository.DocumentRepository
	JobsRepo      repository.ExtractJobRepository
	Recoverer     TextRecoverer
	Logger        *slog.Logger
}

func NewOCRStage(docs repository.DocumentRepository, jobs repository.ExtractJobRepository, rec TextRecoverer, logger *slog.Logger) *OCRStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &OCRStage{DocumentsRepo: docs, JobsRepo: jobs, Recoverer: rec, Logger: logger}
}

// Run starts an extract job, recovers the document text and stores it.
// An empty recovery is stored as such; only engine or storage errors fail
// the job.
func (s *OCRStage) Run(ctx context.Context, documentID uuid.UUID) (uuid.UUID, ocr.RecoveredText, error) {
	doc, err := s.DocumentsRepo.GetByID(ctx, documentID)
	if err != nil {
		return uuid.Nil, ocr.RecoveredText{}, fmt.Errorf("get document: %w", err)
	}

	format := constants.MapExtToFormat(doc.FileExt)
	if format == "" {
		return uuid.Nil, ocr.RecoveredText{}, common.NewAppError("UNSUPPORTED_FORMAT", "cannot recover ."+doc.FileExt, common.ErrInvalidInput)
	}

	job, err := s.JobsRepo.Start(ctx, doc.ID, format)
	if err != nil {
		return uuid.Nil, ocr.RecoveredText{}, err
	}

	res, err := s.Recoverer.Extract(ctx, doc.SourcePath)
	if err != nil {
		markFailed(ctx, s.JobsRepo, s.Logger, job.ID, err)
		return job.ID, res, err
	}
	if len(res.Warnings) > 0 {
		s.Logger.Warn("text recovery degraded", "job_id", job.ID, "warnings", res.Warnings)
	}
	if res.Empty() {
		s.Logger.Warn("no text recovered", "document_id", documentID, "job_id", job.ID)
	}

	out := repository.OCRResult{
		Text:       res.Text,
		Source:     res.Source,
		Pages:      res.Pages,
		Confidence: float64(res.Confidence),
	}
	if err := s.JobsRepo.FinishOCRSuccess(ctx, job.ID, out); err != nil {
		return job.ID, res, err
	}
	return job.ID, res, nil
}
