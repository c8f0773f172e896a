package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/danieceiflora/perdcomp01-sub000/constants"
	"github.com/danieceiflora/perdcomp01-sub000/internal/common"
	"github.com/danieceiflora/perdcomp01-sub000/internal/ocr"
	"github.com/danieceiflora/perdcomp01-sub000/internal/parser"
	"github.com/danieceiflora/perdcomp01-sub000/internal/repository"
)

// Config holds thresholds for the parse stage.
type Config struct {
	MinConfidence float64 // default ocr.ReviewConfidenceThreshold
}

type ParseStage struct {
	Logger        *slog.Logger
	Cfg           Config
	JobsRepo      repository.ExtractJobRepository
	DocumentsRepo repository.DocumentRepository
	// EmpresasRepo is optional; when set, documents are linked to the
	// empresa matching the parsed CNPJ.
	EmpresasRepo repository.EmpresaRepository
}

func NewParseStage(
	logger *slog.Logger,
	cfg Config,
	jobs repository.ExtractJobRepository,
	docs repository.DocumentRepository,
	empresas repository.EmpresaRepository,
) *ParseStage {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = ocr.ReviewConfidenceThreshold
	}
	return &ParseStage{
		Logger:        logger,
		Cfg:           cfg,
		JobsRepo:      jobs,
		DocumentsRepo: docs,
		EmpresasRepo:  empresas,
	}
}

// Run parses the recovered text of an OCR_OK job and stores the record.
func (s *ParseStage) Run(ctx context.Context, jobID uuid.UUID, mode parser.Mode) (Result, error) {
	res := Result{JobID: jobID}
	job, err := s.JobsRepo.Get(ctx, jobID)
	if err != nil {
		return res, fmt.Errorf("load job: %w", err)
	}
	if job.Status != constants.JobStatusOCROK || job.OCRText == nil {
		return res, fmt.Errorf("job not ready for parse: status=%s ocr_text_empty=%t", job.Status, job.OCRText == nil)
	}
	text := *job.OCRText

	if mode == "" {
		mode = parser.DetectMode(text)
	}
	res.Mode = mode
	res.Claim = parser.Parse(mode, text)

	record, err := json.Marshal(res.Claim.Record())
	if err == nil {
		err = parser.ValidateJSON(record)
	}
	if err != nil {
		markFailed(ctx, s.JobsRepo, s.Logger, job.ID, err)
		return res, fmt.Errorf("build record: %w", err)
	}

	var confidence float64
	if job.Confidence != nil {
		confidence = *job.Confidence
	}
	res.Reasons = ReviewReasons(res.Claim, confidence, s.Cfg.MinConfidence)
	res.NeedsReview = len(res.Reasons) > 0
	if res.NeedsReview {
		s.Logger.Warn("parsed record needs review", "job_id", job.ID, "reasons", res.Reasons)
	}

	if err := s.JobsRepo.FinishParsed(ctx, job.ID, string(mode), record, res.NeedsReview); err != nil {
		return res, err
	}
	s.linkEmpresa(ctx, job.DocumentID, res.Claim.CNPJ)

	s.Logger.Info("parsed fields successfully",
		"job_id", job.ID,
		"mode", mode,
		"perdcomp", deref(res.Claim.Perdcomp),
		"cnpj", deref(res.Claim.CNPJ),
		"debitos", len(res.Claim.Debitos),
		"needs_review", res.NeedsReview,
	)
	return res, nil
}

// ReviewReasons lists why a parsed claim should be checked by a person.
// No reasons means the record can be used as is.
func ReviewReasons(c parser.ParsedClaim, confidence, minConfidence float64) []string {
	var reasons []string
	if c.Perdcomp == nil {
		reasons = append(reasons, "perdcomp number not found")
	}
	switch {
	case c.CNPJ == nil:
		reasons = append(reasons, "cnpj not found")
	case parser.ValidateCNPJ(*c.CNPJ) != nil:
		reasons = append(reasons, "cnpj check digits do not match")
	}
	if confidence < minConfidence {
		reasons = append(reasons, fmt.Sprintf("text confidence %.2f below %.2f", confidence, minConfidence))
	}
	return reasons
}

// linkEmpresa attaches an unowned document to the empresa whose CNPJ it
// carries. Failures are logged; the parse result stands either way.
func (s *ParseStage) linkEmpresa(ctx context.Context, documentID uuid.UUID, cnpj *string) {
	if s.EmpresasRepo == nil || cnpj == nil || parser.ValidateCNPJ(*cnpj) != nil {
		return
	}
	doc, err := s.DocumentsRepo.GetByID(ctx, documentID)
	if err != nil {
		s.Logger.Warn("document lookup failed", "document_id", documentID, "error", err)
		return
	}
	if doc.EmpresaID != nil {
		return
	}
	emp, err := s.EmpresasRepo.GetByCNPJ(ctx, parser.CleanCNPJ(*cnpj))
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			s.Logger.Warn("empresa lookup failed", "document_id", documentID, "error", err)
		}
		return
	}
	if err := s.DocumentsRepo.SetEmpresa(ctx, documentID, emp.ID); err != nil {
		s.Logger.Warn("link document to empresa failed", "document_id", documentID, "empresa_id", emp.ID, "error", err)
		return
	}
	s.Logger.Info("document linked to empresa", "document_id", documentID, "empresa_id", emp.ID)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// markFailed records cause on the job. A job that cannot be marked stays
// in its current status and is logged.
func markFailed(ctx context.Context, jobs repository.ExtractJobRepository, logger *slog.Logger, jobID uuid.UUID, cause error) {
	if err := jobs.FinishFailure(ctx, jobID, cause.Error()); err != nil {
		logger.Error("mark job failed", "job_id", jobID, "cause", cause, "error", err)
	}
}
