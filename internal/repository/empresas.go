package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/danieceiflora/perdcomp01-sub000/internal/entity"
	"github.com/danieceiflora/perdcomp01-sub000/internal/tenant"
)

type EmpresaRepository interface {
	Create(ctx context.Context, e *entity.Empresa) error
	Get(ctx context.Context, id uuid.UUID) (*entity.Empresa, error)
	GetByCNPJ(ctx context.Context, cnpj string) (*entity.Empresa, error)
	// List returns the empresas visible to the caller in ctx.
	List(ctx context.Context) ([]entity.Empresa, error)
}

type empresaRepo struct {
	db     *DB
	logger *slog.Logger
}

func NewEmpresaRepository(db *DB, logger *slog.Logger) EmpresaRepository {
	return &empresaRepo{db: db, logger: logger}
}

const empresaColumns = `id, cnpj, razao_social, nome_fantasia, created_at`

func (r *empresaRepo) Create(ctx context.Context, e *entity.Empresa) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.NamedExecContext(ctx, `INSERT INTO empresas (`+empresaColumns+`)
		VALUES (:id, :cnpj, :razao_social, :nome_fantasia, :created_at)`, e)
	if err != nil {
		r.logger.Error("failed to create empresa", "cnpj", e.CNPJ, "error", err)
		return err
	}
	return nil
}

func (r *empresaRepo) Get(ctx context.Context, id uuid.UUID) (*entity.Empresa, error) {
	var e entity.Empresa
	if err := r.db.GetContext(ctx, &e, r.db.Rebind(`SELECT `+empresaColumns+` FROM empresas WHERE id = ?`), id); err != nil {
		return nil, notFound(err, "empresa")
	}
	return &e, nil
}

func (r *empresaRepo) GetByCNPJ(ctx context.Context, cnpj string) (*entity.Empresa, error) {
	var e entity.Empresa
	if err := r.db.GetContext(ctx, &e, r.db.Rebind(`SELECT `+empresaColumns+` FROM empresas WHERE cnpj = ?`), cnpj); err != nil {
		return nil, notFound(err, "empresa")
	}
	return &e, nil
}

func (r *empresaRepo) List(ctx context.Context) ([]entity.Empresa, error) {
	scope, args := tenant.Scope(empresaLink, tenant.FromContext(ctx))
	var out []entity.Empresa
	q := `SELECT ` + empresaColumns + ` FROM empresas WHERE ` + scope + ` ORDER BY razao_social`
	if err := r.db.SelectContext(ctx, &out, r.db.Rebind(q), args...); err != nil {
		r.logger.Error("failed to list empresas", "error", err)
		return nil, err
	}
	return out, nil
}
