package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/danieceiflora/perdcomp01-sub000/internal/ledger"
	"github.com/danieceiflora/perdcomp01-sub000/internal/tenant"
)

// ClaimRepository stores claims (adesões) and is the ledger's Store.
type ClaimRepository interface {
	ledger.Store
	Create(ctx context.Context, c *ledger.Claim) error
	// List returns the claims visible to the caller in ctx.
	List(ctx context.Context) ([]ledger.Claim, error)
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
	FindByPerdcomp(ctx context.Context, perdcomp string) (*ledger.Claim, error)
}

type claimRow struct {
	ID         uuid.UUID           `db:"id"`
	Perdcomp   string              `db:"perdcomp"`
	ClienteID  *uuid.UUID          `db:"cliente_id"`
	DataInicio *time.Time          `db:"data_inicio"`
	Saldo      decimal.NullDecimal `db:"saldo"`
	SaldoAtual decimal.NullDecimal `db:"saldo_atual"`
	CreatedAt  time.Time           `db:"created_at"`
	UpdatedAt  time.Time           `db:"updated_at"`
}

const claimColumns = `id, perdcomp, cliente_id, data_inicio, saldo, saldo_atual, created_at, updated_at`

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*d)
}

func decimalPtr(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}

func newClaimRow(c *ledger.Claim) claimRow {
	return claimRow{
		ID:         c.ID,
		Perdcomp:   c.Perdcomp,
		ClienteID:  c.ClienteID,
		DataInicio: c.DataInicio,
		Saldo:      nullDecimal(c.Saldo),
		SaldoAtual: nullDecimal(c.SaldoAtual),
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
}

func (r claimRow) toClaim() ledger.Claim {
	return ledger.Claim{
		ID:         r.ID,
		Perdcomp:   r.Perdcomp,
		ClienteID:  r.ClienteID,
		DataInicio: r.DataInicio,
		Saldo:      decimalPtr(r.Saldo),
		SaldoAtual: decimalPtr(r.SaldoAtual),
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

type claimRepo struct {
	db     *DB
	logger *slog.Logger
}

func NewClaimRepository(db *DB, logger *slog.Logger) ClaimRepository {
	return &claimRepo{db: db, logger: logger}
}

func (r *claimRepo) Create(ctx context.Context, c *ledger.Claim) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	_, err := r.db.NamedExecContext(ctx, `INSERT INTO adesoes (`+claimColumns+`)
		VALUES (:id, :perdcomp, :cliente_id, :data_inicio, :saldo, :saldo_atual, :created_at, :updated_at)`, newClaimRow(c))
	if err != nil {
		r.logger.Error("failed to create claim", "perdcomp", c.Perdcomp, "error", err)
		return err
	}
	r.logger.Info("claim created", "claim_id", c.ID, "perdcomp", c.Perdcomp)
	return nil
}

func (r *claimRepo) GetClaim(ctx context.Context, id uuid.UUID) (*ledger.Claim, error) {
	var row claimRow
	if err := r.db.GetContext(ctx, &row, r.db.Rebind(`SELECT `+claimColumns+` FROM adesoes WHERE id = ?`), id); err != nil {
		return nil, notFound(err, "claim")
	}
	c := row.toClaim()
	return &c, nil
}

func (r *claimRepo) FindByPerdcomp(ctx context.Context, perdcomp string) (*ledger.Claim, error) {
	var row claimRow
	q := `SELECT ` + claimColumns + ` FROM adesoes WHERE perdcomp = ? ORDER BY created_at LIMIT 1`
	if err := r.db.GetContext(ctx, &row, r.db.Rebind(q), perdcomp); err != nil {
		return nil, notFound(err, "claim")
	}
	c := row.toClaim()
	return &c, nil
}

func (r *claimRepo) List(ctx context.Context) ([]ledger.Claim, error) {
	scope, args := tenant.Scope(claimLink, tenant.FromContext(ctx))
	var rows []claimRow
	q := `SELECT ` + claimColumns + ` FROM adesoes WHERE ` + scope + ` ORDER BY created_at`
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(q), args...); err != nil {
		r.logger.Error("failed to list claims", "error", err)
		return nil, err
	}
	out := make([]ledger.Claim, len(rows))
	for i, row := range rows {
		out[i] = row.toClaim()
	}
	return out, nil
}

func (r *claimRepo) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.SelectContext(ctx, &ids, `SELECT id FROM adesoes ORDER BY created_at`); err != nil {
		r.logger.Error("failed to list claim ids", "error", err)
		return nil, err
	}
	return ids, nil
}

func (r *claimRepo) GetEntry(ctx context.Context, id uuid.UUID) (*ledger.Entry, error) {
	return getEntry(ctx, r.db.DB, id)
}

func (r *claimRepo) ListEntries(ctx context.Context, claimID uuid.UUID) ([]ledger.Entry, error) {
	var rows []entryRow
	q := `SELECT ` + entryColumns + ` FROM lancamentos WHERE adesao_id = ? ORDER BY seq`
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(q), claimID); err != nil {
		r.logger.Error("failed to list entries", "claim_id", claimID, "error", err)
		return nil, err
	}
	return toEntries(rows), nil
}

// WithClaimLock reads the claim row inside a transaction, with FOR UPDATE
// on Postgres. SQLite handles use a single connection, so their
// transactions are already serialised.
func (r *claimRepo) WithClaimLock(ctx context.Context, claimID uuid.UUID, fn func(ctx context.Context, claim *ledger.Claim, tx ledger.Tx) error) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		r.logger.Error("failed to begin transaction", "claim_id", claimID, "error", err)
		return err
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				r.logger.Debug("rollback", "claim_id", claimID, "error", rbErr)
			}
		}
	}()

	q := `SELECT ` + claimColumns + ` FROM adesoes WHERE id = ?`
	if r.db.Postgres() {
		q += ` FOR UPDATE`
	}
	var row claimRow
	if err = tx.GetContext(ctx, &row, tx.Rebind(q), claimID); err != nil {
		return notFound(err, "claim")
	}
	claim := row.toClaim()

	if err = fn(ctx, &claim, &claimTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

// claimTx is the ledger.Tx of a WithClaimLock transaction.
type claimTx struct {
	tx *sqlx.Tx
}

func (t *claimTx) GetEntry(ctx context.Context, id uuid.UUID) (*ledger.Entry, error) {
	return getEntry(ctx, t.tx, id)
}

func (t *claimTx) InsertEntry(ctx context.Context, e *ledger.Entry) error {
	var seq int64
	if err := t.tx.GetContext(ctx, &seq, t.tx.Rebind(`SELECT COALESCE(MAX(seq), 0) + 1 FROM lancamentos WHERE adesao_id = ?`), e.ClaimID); err != nil {
		return err
	}
	row := newEntryRow(e, seq)
	_, err := t.tx.NamedExecContext(ctx, `INSERT INTO lancamentos (`+entryColumns+`)
		VALUES (:id, :adesao_id, :seq, :valor, :sinal, :tipo, :data_lancamento, :observacao,
			:aprovado, :data_aprovacao, :observacao_aprovacao, :saldo_restante, :created_at)`, row)
	return err
}

func (t *claimTx) SaveApproval(ctx context.Context, e *ledger.Entry) error {
	res, err := t.tx.ExecContext(ctx, t.tx.Rebind(`UPDATE lancamentos
		SET aprovado = ?, data_aprovacao = ?, observacao_aprovacao = ?, saldo_restante = ?
		WHERE id = ?`),
		e.Aprovado, utcPtr(e.DataAprovacao), e.ObservacaoAprovacao, nullDecimal(e.SaldoRestante), e.ID)
	if err != nil {
		return err
	}
	return expectOne(res, "entry")
}

func (t *claimTx) UpdateClaimBalance(ctx context.Context, claimID uuid.UUID, saldoAtual decimal.Decimal) error {
	res, err := t.tx.ExecContext(ctx, t.tx.Rebind(`UPDATE adesoes SET saldo_atual = ?, updated_at = ? WHERE id = ?`),
		saldoAtual, time.Now().UTC(), claimID)
	if err != nil {
		return err
	}
	return expectOne(res, "claim")
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
