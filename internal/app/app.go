// Package app wires repositories, recovery and ledger services into the
// graph shared by the daemon and the CLI.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/danieceiflora/perdcomp01-sub000/internal/common"
	"github.com/danieceiflora/perdcomp01-sub000/internal/export"
	"github.com/danieceiflora/perdcomp01-sub000/internal/ingest"
	"github.com/danieceiflora/perdcomp01-sub000/internal/jobs"
	"github.com/danieceiflora/perdcomp01-sub000/internal/ledger"
	"github.com/danieceiflora/perdcomp01-sub000/internal/ocr"
	"github.com/danieceiflora/perdcomp01-sub000/internal/pipeline"
	repo "github.com/danieceiflora/perdcomp01-sub000/internal/repository"
)

// App holds the wired components. Close releases the database.
type App struct {
	DB        *repo.DB
	Documents repo.DocumentRepository
	Jobs      repo.ExtractJobRepository
	Empresas  repo.EmpresaRepository
	Claims    repo.ClaimRepository
	Entries   repo.EntryRepository

	Extractor *ocr.Extractor
	Processor *pipeline.Processor
	Ingestor  *ingest.FSIngestor
	Ledger    *ledger.Service
	Export    *export.Service
	Audit     *jobs.LedgerAudit

	logger *slog.Logger
}

// OpenDatabase opens the configured database, or a private in-memory
// SQLite one when inmem is set, and applies pending migrations.
func OpenDatabase(ctx context.Context, cfg common.DatabaseConfig, inmem bool, logger *slog.Logger) (*repo.DB, error) {
	var (
		db  *repo.DB
		err error
	)
	if inmem {
		logger.Info("using in-memory SQLite database")
		db, err = repo.OpenSQLite(ctx, ":memory:", logger)
	} else {
		if cfg.DSN == "" {
			return nil, fmt.Errorf("%w: DB_URL is required", common.ErrInvalidInput)
		}
		db, err = repo.Open(ctx, repo.Config{
			Driver:           cfg.Driver,
			DSN:              cfg.DSN,
			MaxConns:         cfg.MaxConns,
			MinConns:         cfg.MinConns,
			MaxConnLifetime:  cfg.MaxConnLifetime,
			MaxConnIdleTime:  cfg.MaxConnIdleTime,
			DialTimeout:      cfg.DialTimeout,
			StatementTimeout: cfg.StatementTimeout,
		}, logger)
	}
	if err != nil {
		return nil, err
	}
	if err := repo.HealthCheck(ctx, db, 5*time.Second, logger); err != nil {
		repo.Close(db, logger)
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		logger.Error("migration failed", "error", err)
		repo.Close(db, logger)
		return nil, err
	}
	return db, nil
}

// New builds the component graph on top of db.
func New(db *repo.DB, cfg *common.Config, logger *slog.Logger, opts ...ocr.Option) *App {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{
		DB:        db,
		Documents: repo.NewDocumentRepository(db, logger),
		Jobs:      repo.NewExtractJobRepository(db, logger),
		Empresas:  repo.NewEmpresaRepository(db, logger),
		Claims:    repo.NewClaimRepository(db, logger),
		Entries:   repo.NewEntryRepository(db, logger),
		logger:    logger,
	}

	a.Extractor = NewExtractor(cfg.OCR, logger, opts...)

	a.Processor = pipeline.NewProcessor(logger,
		pipeline.NewOCRStage(a.Documents, a.Jobs, a.Extractor, logger),
		pipeline.NewParseStage(logger, pipeline.Config{}, a.Jobs, a.Documents, a.Empresas),
	)
	a.Ingestor = ingest.NewFSIngestor(a.Documents, a.Empresas, cfg.Server.UploadDir, logger)
	a.Ledger = ledger.NewService(a.Claims, logger)
	a.Export = export.NewService(a.Claims, logger)
	a.Audit = jobs.NewLedgerAudit(a.Claims, a.Ledger, logger)
	return a
}

// NewExtractor builds the text recovery engine from its config section.
func NewExtractor(cfg common.OCRConfig, logger *slog.Logger, opts ...ocr.Option) *ocr.Extractor {
	return ocr.NewExtractor(ocr.Config{
		Pdftoppm:      cfg.Pdftoppm,
		Tesseract:     cfg.Tesseract,
		TesseractLang: cfg.Lang,
		TessdataDir:   cfg.TessdataDir,
		DPI:           cfg.DPI,
		PageWorkers:   cfg.PageWorkers,
	}, logger, opts...)
}

// Health pings the database with a short timeout.
func (a *App) Health(ctx context.Context) error {
	return repo.HealthCheck(ctx, a.DB, 2*time.Second, a.logger)
}

func (a *App) Close() {
	repo.Close(a.DB, a.logger)
}
