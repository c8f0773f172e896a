package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/danieceiflora/perdcomp01-sub000/constants"
	"github.com/danieceiflora/perdcomp01-sub000/internal/entity"
	"github.com/danieceiflora/perdcomp01-sub000/internal/tenant"
)

type ExtractJobRepository interface {
	Start(ctx context.Context, documentID uuid.UUID, format string) (*entity.ExtractJob, error)
	FinishOCRSuccess(ctx context.Context, jobID uuid.UUID, res OCRResult) error
	FinishParsed(ctx context.Context, jobID uuid.UUID, mode string, record []byte, needsReview bool) error
	FinishFailure(ctx context.Context, jobID uuid.UUID, message string) error
	Get(ctx context.Context, id uuid.UUID) (*entity.ExtractJob, error)
	ListByDocument(ctx context.Context, documentID uuid.UUID) ([]entity.ExtractJob, error)
	// List returns the caller's most recent jobs, optionally by status.
	List(ctx context.Context, status constants.JobStatus, limit int) ([]entity.ExtractJob, error)
}

// OCRResult is what the recovery stage stores on a job.
type OCRResult struct {
	Text       string
	Source     constants.TextSource
	Pages      int
	Confidence float64
}

type extractJobRepo struct {
	db  *DB
	log *slog.Logger
}

func NewExtractJobRepository(db *DB, log *slog.Logger) ExtractJobRepository {
	return &extractJobRepo{db: db, log: log}
}

const jobColumns = `id, document_id, format, status, text_source, pages, ocr_text, confidence,
	parse_mode, record, needs_review, error_message, started_at, finished_at`

func (r *extractJobRepo) Start(ctx context.Context, documentID uuid.UUID, format string) (*entity.ExtractJob, error) {
	job := &entity.ExtractJob{
		ID:         uuid.New(),
		DocumentID: documentID,
		Format:     format,
		Status:     constants.JobStatusRunning,
		StartedAt:  time.Now().UTC(),
	}
	_, err := r.db.NamedExecContext(ctx, `INSERT INTO extract_jobs (id, document_id, format, status, started_at)
		VALUES (:id, :document_id, :format, :status, :started_at)`, job)
	if err != nil {
		r.log.Error("extract_job start failed", "document_id", documentID, "err", err)
		return nil, err
	}
	r.log.Info("extract_job started", "job_id", job.ID, "document_id", documentID, "format", format)
	return job, nil
}

func (r *extractJobRepo) FinishOCRSuccess(ctx context.Context, jobID uuid.UUID, res OCRResult) error {
	out, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE extract_jobs
		SET ocr_text = ?, text_source = ?, pages = ?, confidence = ?, status = ?
		WHERE id = ?`),
		res.Text, string(res.Source), res.Pages, res.Confidence, string(constants.JobStatusOCROK), jobID)
	if err == nil {
		err = expectOne(out, "extract job")
	}
	if err != nil {
		r.log.Error("extract_job finish(OCR_OK) failed", "job_id", jobID, "err", err)
		return err
	}
	r.log.Info("extract_job text recovered (OCR_OK)", "job_id", jobID, "source", res.Source, "pages", res.Pages)
	return nil
}

func (r *extractJobRepo) FinishParsed(ctx context.Context, jobID uuid.UUID, mode string, record []byte, needsReview bool) error {
	var rec any
	if record != nil {
		rec = string(record)
	}
	out, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE extract_jobs
		SET parse_mode = ?, record = ?, needs_review = ?, status = ?, finished_at = ?
		WHERE id = ?`),
		mode, rec, needsReview, string(constants.JobStatusParsed), time.Now().UTC(), jobID)
	if err == nil {
		err = expectOne(out, "extract job")
	}
	if err != nil {
		r.log.Error("extract_job finish(PARSED) failed", "job_id", jobID, "err", err)
		return err
	}
	r.log.Info("extract_job finished (PARSED)", "job_id", jobID, "mode", mode, "needs_review", needsReview)
	return nil
}

func (r *extractJobRepo) FinishFailure(ctx context.Context, jobID uuid.UUID, message string) error {
	out, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE extract_jobs
		SET status = ?, error_message = ?, finished_at = ?
		WHERE id = ?`),
		string(constants.JobStatusFailed), message, time.Now().UTC(), jobID)
	if err == nil {
		err = expectOne(out, "extract job")
	}
	if err != nil {
		r.log.Error("extract_job finish(FAILED) failed", "job_id", jobID, "err", err)
		return err
	}
	r.log.Warn("extract_job finished (FAILED)", "job_id", jobID, "error", message)
	return nil
}

func (r *extractJobRepo) Get(ctx context.Context, id uuid.UUID) (*entity.ExtractJob, error) {
	var job entity.ExtractJob
	if err := r.db.GetContext(ctx, &job, r.db.Rebind(`SELECT `+jobColumns+` FROM extract_jobs WHERE id = ?`), id); err != nil {
		return nil, notFound(err, "extract job")
	}
	return &job, nil
}

func (r *extractJobRepo) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]entity.ExtractJob, error) {
	var out []entity.ExtractJob
	q := `SELECT ` + jobColumns + ` FROM extract_jobs WHERE document_id = ? ORDER BY started_at`
	if err := r.db.SelectContext(ctx, &out, r.db.Rebind(q), documentID); err != nil {
		r.log.Error("failed to list extract jobs", "document_id", documentID, "err", err)
		return nil, err
	}
	return out, nil
}

func (r *extractJobRepo) List(ctx context.Context, status constants.JobStatus, limit int) ([]entity.ExtractJob, error) {
	if limit <= 0 {
		limit = 100
	}
	scope, args := tenant.Scope(jobLink, tenant.FromContext(ctx))
	q := `SELECT ` + jobColumns + ` FROM extract_jobs WHERE ` + scope
	if status != "" {
		q += ` AND status = ?`
		args = append(args, string(status))
	}
	q += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limit)

	var out []entity.ExtractJob
	if err := r.db.SelectContext(ctx, &out, r.db.Rebind(q), args...); err != nil {
		r.log.Error("failed to list extract jobs", "status", status, "err", err)
		return nil, err
	}
	return out, nil
}
