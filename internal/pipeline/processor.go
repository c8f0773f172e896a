// Package pipeline runs a stored document through text recovery and field
// extraction, recording every step on an extract job.
package pipeline

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/danieceiflora/perdcomp01-sub000/internal/parser"
)

// Processor coordinates text recovery then field extraction.
type Processor struct {
	Logger *slog.Logger
	OCR    *OCRStage
	Parse  *ParseStage
}

func NewProcessor(logger *slog.Logger, ocr *OCRStage, parse *ParseStage) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{Logger: logger, OCR: ocr, Parse: parse}
}

// Result summarises one processed document.
type Result struct {
	JobID       uuid.UUID
	Mode        parser.Mode
	Claim       parser.ParsedClaim
	NeedsReview bool
	Reasons     []string
}

// ProcessDocument recovers the text of documentID, parses it with mode
// (detected from the text when empty) and stores the record on the job.
// It returns the job ID even when a stage fails.
func (p *Processor) ProcessDocument(ctx context.Context, documentID uuid.UUID, mode parser.Mode) (Result, error) {
	jobID, rec, err := p.OCR.Run(ctx, documentID)
	if err != nil {
		p.Logger.Error("processor.ocr.failed", "document_id", documentID, "err", err)
		return Result{JobID: jobID}, err
	}
	p.Logger.Info("processor.ocr.ok",
		"document_id", documentID,
		"job_id", jobID,
		"source", rec.Source,
		"pages", rec.Pages,
		"confidence", rec.Confidence,
	)

	res, err := p.Parse.Run(ctx, jobID, mode)
	if err != nil {
		p.Logger.Error("processor.parse.failed", "job_id", jobID, "err", err)
		return res, err
	}
	p.Logger.Info("processor.parse.ok", "job_id", jobID, "mode", res.Mode, "needs_review", res.NeedsReview)
	return res, nil
}
