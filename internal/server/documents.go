package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/danieceiflora/perdcomp01-sub000/constants"
	"github.com/danieceiflora/perdcomp01-sub000/internal/async"
	"github.com/danieceiflora/perdcomp01-sub000/internal/common"
	"github.com/danieceiflora/perdcomp01-sub000/internal/entity"
	"github.com/danieceiflora/perdcomp01-sub000/internal/parser"
	"github.com/danieceiflora/perdcomp01-sub000/internal/tenant"
)

type uploadResponse struct {
	DocumentID   uuid.UUID `json:"document_id"`
	Deduplicated bool      `json:"deduplicated"`
	ContentHash  string    `json:"content_hash"`
	FileExt      string    `json:"file_ext"`
	Queued       bool      `json:"queued"`
}

// handleUploadDocument stores a multipart "file" and queues it for
// processing. Optional form fields: empresa_id, mode, force.
func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	mode, err := parser.ParseMode(r.FormValue("mode"))
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", common.ErrInvalidInput, err))
		return
	}
	force, _ := strconv.ParseBool(r.FormValue("force"))

	empresaID, err := s.uploadEmpresa(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.deps.Ingestor.IngestUpload(r.Context(), empresaID, header.Filename, file)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			s.writeError(w, r, err)
			return
		}
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	out := uploadResponse{
		DocumentID:   res.DocumentID,
		Deduplicated: res.Deduplicated,
		ContentHash:  res.HashHex,
		FileExt:      res.FileExt,
	}
	if !res.Deduplicated || force {
		job := async.Job{DocumentID: res.DocumentID, Mode: mode, Force: force, SubmittedAt: time.Now()}
		if err := s.deps.Queue.Enqueue(r.Context(), job); err != nil {
			s.logger.Error("enqueue failed", "document_id", res.DocumentID, "error", err)
			writeJSONError(w, http.StatusServiceUnavailable, "processing queue unavailable")
			return
		}
		out.Queued = true
	}
	_ = writeJSON(w, http.StatusAccepted, out)
}

// uploadEmpresa resolves the owner of an upload. Restricted callers must
// name one of their empresas, or have exactly one.
func (s *Server) uploadEmpresa(r *http.Request) (*uuid.UUID, error) {
	access := tenant.FromContext(r.Context())
	raw := strings.TrimSpace(r.FormValue("empresa_id"))
	if raw == "" {
		if access.All() {
			return nil, nil
		}
		if ids := access.EmpresaIDs(); len(ids) == 1 {
			return &ids[0], nil
		}
		return nil, common.NewValidationError("empresa_id", nil, "is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, common.NewValidationError("empresa_id", raw, "must be a UUID")
	}
	if !access.Permits(&id) {
		return nil, errForbiddenEmpresa
	}
	return &id, nil
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.deps.Documents.List(r.Context(), queryInt(r, "limit", 100))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if docs == nil {
		docs = []entity.Document{}
	}
	_ = writeJSON(w, http.StatusOK, docs)
}

func (s *Server) handleListDocumentJobs(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if _, err := s.visibleDocument(r, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	jobs, err := s.deps.Jobs.ListByDocument(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if jobs == nil {
		jobs = []entity.ExtractJob{}
	}
	_ = writeJSON(w, http.StatusOK, jobs)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	status := constants.JobStatus(strings.ToUpper(r.URL.Query().Get("status")))
	jobs, err := s.deps.Jobs.List(r.Context(), status, queryInt(r, "limit", 100))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if jobs == nil {
		jobs = []entity.ExtractJob{}
	}
	_ = writeJSON(w, http.StatusOK, jobs)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	job, err := s.deps.Jobs.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if _, err := s.visibleDocument(r, job.DocumentID); err != nil {
		s.writeError(w, r, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, job)
}

func (s *Server) visibleDocument(r *http.Request, id uuid.UUID) (*entity.Document, error) {
	doc, err := s.deps.Documents.GetByID(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if !tenant.FromContext(r.Context()).Permits(doc.EmpresaID) {
		return nil, errForbiddenEmpresa
	}
	return doc, nil
}

func queryInt(r *http.Request, key string, def int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get(key)); err == nil && v > 0 {
		return v
	}
	return def
}
