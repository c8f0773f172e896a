// Package server exposes documents, parsing and the claim ledger over HTTP.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/danieceiflora/perdcomp01-sub000/internal/async"
	"github.com/danieceiflora/perdcomp01-sub000/internal/common"
	"github.com/danieceiflora/perdcomp01-sub000/internal/export"
	"github.com/danieceiflora/perdcomp01-sub000/internal/ingest"
	"github.com/danieceiflora/perdcomp01-sub000/internal/ledger"
	"github.com/danieceiflora/perdcomp01-sub000/internal/repository"
)

// Deps are the collaborators the handlers use.
type Deps struct {
	Ingestor  ingest.Ingestor
	Queue     async.Queue
	Documents repository.DocumentRepository
	Jobs      repository.ExtractJobRepository
	Empresas  repository.EmpresaRepository
	Claims    repository.ClaimRepository
	Entries   repository.EntryRepository
	Ledger    *ledger.Service
	Export    *export.Service
	// Health reports storage reachability; nil means always healthy.
	Health func(ctx context.Context) error
}

type Server struct {
	deps           Deps
	logger         *slog.Logger
	maxUploadBytes int64
	timeout        time.Duration
}

type Option func(*Server)

func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func New(deps Deps, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{deps: deps, logger: logger, maxUploadBytes: 32 << 20, timeout: 60 * time.Second}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Handler mounts every route.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.timeout))

	r.Get("/healthz", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(s.tenantAccess)

		r.Route("/documents", func(r chi.Router) {
			r.Get("/", s.handleListDocuments)
			r.Post("/", s.handleUploadDocument)
			r.Get("/{id}/jobs", s.handleListDocumentJobs)
		})
		r.Route("/jobs", func(r chi.Router) {
			r.Get("/", s.handleListJobs)
			r.Get("/{id}", s.handleGetJob)
		})
		r.Post("/parse", s.handleParse)
		r.Get("/parse/schema", s.handleRecordSchema)

		r.Route("/empresas", func(r chi.Router) {
			r.Get("/", s.handleListEmpresas)
			r.Post("/", s.handleCreateEmpresa)
		})
		r.Route("/claims", func(r chi.Router) {
			r.Get("/", s.handleListClaims)
			r.Post("/", s.handleCreateClaim)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetClaim)
				r.Get("/entries", s.handleListEntries)
				r.Post("/entries", s.handleCreateEntry)
				r.Get("/statement.xlsx", s.handleStatement)
				r.Get("/audit", s.handleAudit)
			})
		})
		r.Route("/entries", func(r chi.Router) {
			r.Get("/", s.handleSearchEntries)
			r.Get("/{id}", s.handleGetEntry)
			r.Patch("/{id}", s.handleUpdateEntry)
		})
	})

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		r = r.WithContext(common.WithRequestID(r.Context(), middleware.GetReqID(r.Context())))
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", common.RequestIDFromContext(r.Context()),
		)
	})
}
