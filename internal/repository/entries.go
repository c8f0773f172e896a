package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/danieceiflora/perdcomp01-sub000/constants"
	"github.com/danieceiflora/perdcomp01-sub000/internal/ledger"
	"github.com/danieceiflora/perdcomp01-sub000/internal/tenant"
)

// EntryFilter narrows an entry listing; zero fields match everything.
type EntryFilter struct {
	ClaimID  *uuid.UUID
	Aprovado *bool
	From, To *time.Time
}

// EntryRepository reads ledger entries across claims. Writes go through
// the ledger service.
type EntryRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*ledger.Entry, error)
	// List returns the entries visible to the caller in ctx.
	List(ctx context.Context, f EntryFilter) ([]ledger.Entry, error)
}

type entryRow struct {
	ID                  uuid.UUID           `db:"id"`
	ClaimID             uuid.UUID           `db:"adesao_id"`
	Seq                 int64               `db:"seq"`
	Valor               decimal.Decimal     `db:"valor"`
	Sinal               string              `db:"sinal"`
	Tipo                string              `db:"tipo"`
	DataLancamento      time.Time           `db:"data_lancamento"`
	Observacao          string              `db:"observacao"`
	Aprovado            bool                `db:"aprovado"`
	DataAprovacao       *time.Time          `db:"data_aprovacao"`
	ObservacaoAprovacao string              `db:"observacao_aprovacao"`
	SaldoRestante       decimal.NullDecimal `db:"saldo_restante"`
	CreatedAt           time.Time           `db:"created_at"`
}

const entryColumns = `id, adesao_id, seq, valor, sinal, tipo, data_lancamento, observacao,
	aprovado, data_aprovacao, observacao_aprovacao, saldo_restante, created_at`

func newEntryRow(e *ledger.Entry, seq int64) entryRow {
	return entryRow{
		ID:                  e.ID,
		ClaimID:             e.ClaimID,
		Seq:                 seq,
		Valor:               e.Valor,
		Sinal:               string(e.Sinal),
		Tipo:                string(e.Tipo),
		DataLancamento:      e.DataLancamento.UTC(),
		Observacao:          e.Observacao,
		Aprovado:            e.Aprovado,
		DataAprovacao:       utcPtr(e.DataAprovacao),
		ObservacaoAprovacao: e.ObservacaoAprovacao,
		SaldoRestante:       nullDecimal(e.SaldoRestante),
		CreatedAt:           e.CreatedAt.UTC(),
	}
}

func (r entryRow) toEntry() ledger.Entry {
	return ledger.Entry{
		ID:                  r.ID,
		ClaimID:             r.ClaimID,
		Valor:               r.Valor,
		Sinal:               constants.Sinal(r.Sinal),
		Tipo:                constants.TipoLancamento(r.Tipo),
		DataLancamento:      r.DataLancamento,
		Observacao:          r.Observacao,
		Aprovado:            r.Aprovado,
		DataAprovacao:       r.DataAprovacao,
		ObservacaoAprovacao: r.ObservacaoAprovacao,
		SaldoRestante:       decimalPtr(r.SaldoRestante),
		CreatedAt:           r.CreatedAt,
	}
}

func toEntries(rows []entryRow) []ledger.Entry {
	out := make([]ledger.Entry, len(rows))
	for i, row := range rows {
		out[i] = row.toEntry()
	}
	return out
}

// queryer is satisfied by both *sqlx.DB and *sqlx.Tx.
type queryer interface {
	sqlx.QueryerContext
	Rebind(query string) string
}

func getEntry(ctx context.Context, q queryer, id uuid.UUID) (*ledger.Entry, error) {
	var row entryRow
	if err := sqlx.GetContext(ctx, q, &row, q.Rebind(`SELECT `+entryColumns+` FROM lancamentos WHERE id = ?`), id); err != nil {
		return nil, notFound(err, "entry")
	}
	e := row.toEntry()
	return &e, nil
}

type entryRepo struct {
	db     *DB
	logger *slog.Logger
}

func NewEntryRepository(db *DB, logger *slog.Logger) EntryRepository {
	return &entryRepo{db: db, logger: logger}
}

func (r *entryRepo) Get(ctx context.Context, id uuid.UUID) (*ledger.Entry, error) {
	return getEntry(ctx, r.db.DB, id)
}

func (r *entryRepo) List(ctx context.Context, f EntryFilter) ([]ledger.Entry, error) {
	scope, args := tenant.Scope(entryLink, tenant.FromContext(ctx))
	q := `SELECT ` + entryColumns + ` FROM lancamentos WHERE ` + scope
	if f.ClaimID != nil {
		q += ` AND adesao_id = ?`
		args = append(args, *f.ClaimID)
	}
	if f.Aprovado != nil {
		q += ` AND aprovado = ?`
		args = append(args, *f.Aprovado)
	}
	if f.From != nil {
		q += ` AND data_lancamento >= ?`
		args = append(args, f.From.UTC())
	}
	if f.To != nil {
		q += ` AND data_lancamento <= ?`
		args = append(args, f.To.UTC())
	}
	q += ` ORDER BY adesao_id, seq`

	var rows []entryRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(q), args...); err != nil {
		r.logger.Error("failed to list entries", "error", err)
		return nil, err
	}
	return toEntries(rows), nil
}
