package repository

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/danieceiflora/perdcomp01-sub000/internal/entity"
	"github.com/danieceiflora/perdcomp01-sub000/internal/tenant"
)

type DocumentRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Document, error)
	GetByHash(ctx context.Context, hash []byte) (*entity.Document, error)
	Create(ctx context.Context, d *entity.Document) error
	// UpsertByHash returns the stored document with d's content hash, or
	// stores d. The flag reports whether an existing row was returned.
	UpsertByHash(ctx context.Context, d *entity.Document) (*entity.Document, bool, error)
	// SetEmpresa links a document to the empresa whose CNPJ it carries.
	SetEmpresa(ctx context.Context, id, empresaID uuid.UUID) error
	List(ctx context.Context, limit int) ([]entity.Document, error)
}

type documentRepo struct {
	db     *DB
	logger *slog.Logger
}

func NewDocumentRepository(db *DB, logger *slog.Logger) DocumentRepository {
	return &documentRepo{db: db, logger: logger}
}

const documentColumns = `id, empresa_id, source_path, filename, file_ext, file_size, content_hash, uploaded_at`

func (r *documentRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Document, error) {
	var d entity.Document
	if err := r.db.GetContext(ctx, &d, r.db.Rebind(`SELECT `+documentColumns+` FROM documents WHERE id = ?`), id); err != nil {
		return nil, notFound(err, "document")
	}
	return &d, nil
}

func (r *documentRepo) GetByHash(ctx context.Context, hash []byte) (*entity.Document, error) {
	var d entity.Document
	if err := r.db.GetContext(ctx, &d, r.db.Rebind(`SELECT `+documentColumns+` FROM documents WHERE content_hash = ?`), hash); err != nil {
		return nil, notFound(err, "document")
	}
	return &d, nil
}

func (r *documentRepo) Create(ctx context.Context, d *entity.Document) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	_, err := r.db.NamedExecContext(ctx, `INSERT INTO documents (`+documentColumns+`)
		VALUES (:id, :empresa_id, :source_path, :filename, :file_ext, :file_size, :content_hash, :uploaded_at)`, d)
	if err != nil {
		r.logger.Error("failed to create document", "source_path", d.SourcePath, "filename", d.Filename, "error", err)
		return err
	}
	return nil
}

func (r *documentRepo) UpsertByHash(ctx context.Context, d *entity.Document) (*entity.Document, bool, error) {
	if existing, err := r.GetByHash(ctx, d.ContentHash); err == nil {
		return existing, true, nil
	}
	if err := r.Create(ctx, d); err != nil {
		r.logger.Error("failed to upsert document by hash", "source_path", d.SourcePath, "filename", d.Filename, "error", err)
		return nil, false, err
	}
	return d, false, nil
}

func (r *documentRepo) SetEmpresa(ctx context.Context, id, empresaID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE documents SET empresa_id = ? WHERE id = ?`), empresaID, id)
	if err == nil {
		err = expectOne(res, "document")
	}
	if err != nil {
		r.logger.Error("failed to link document to empresa", "document_id", id, "empresa_id", empresaID, "error", err)
		return err
	}
	return nil
}

func (r *documentRepo) List(ctx context.Context, limit int) ([]entity.Document, error) {
	if limit <= 0 {
		limit = 100
	}
	scope, args := tenant.Scope(documentLink, tenant.FromContext(ctx))
	q := `SELECT ` + documentColumns + ` FROM documents WHERE ` + scope + ` ORDER BY uploaded_at DESC LIMIT ?`
	var out []entity.Document
	if err := r.db.SelectContext(ctx, &out, r.db.Rebind(q), append(args, limit)...); err != nil {
		r.logger.Error("failed to list documents", "error", err)
		return nil, err
	}
	return out, nil
}
