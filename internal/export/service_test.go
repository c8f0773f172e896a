package export

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/danieceiflora/perdcomp01-sub000/constants"
	"github.com/danieceiflora/perdcomp01-sub000/internal/common"
	"github.com/danieceiflora/perdcomp01-sub000/internal/ledger"
	"github.com/danieceiflora/perdcomp01-sub000/internal/parser"
)

type fakeLedger struct {
	claim   *ledger.Claim
	entries []ledger.Entry
}

func (f fakeLedger) GetClaim(_ context.Context, id uuid.UUID) (*ledger.Claim, error) {
	if f.claim == nil || f.claim.ID != id {
		return nil, common.ErrNotFound
	}
	return f.claim, nil
}

func (f fakeLedger) ListEntries(context.Context, uuid.UUID) ([]ledger.Entry, error) {
	return f.entries, nil
}

func d(s string) *decimal.Decimal {
	v := decimal.RequireFromString(s)
	return &v
}

func day(y int, m time.Month, dd int) time.Time {
	return time.Date(y, m, dd, 10, 0, 0, 0, time.UTC)
}

func fixture() fakeLedger {
	claim := &ledger.Claim{ID: uuid.New(), Perdcomp: "12345.67890.123456.1.2.01-1234", Saldo: d("100"), SaldoAtual: d("119.50")}
	approved := day(2024, 3, 2)
	return fakeLedger{claim: claim, entries: []ledger.Entry{
		{ID: uuid.New(), ClaimID: claim.ID, Valor: *d("50"), Sinal: constants.Credito, Tipo: constants.TipoGerado,
			DataLancamento: day(2024, 3, 1), Aprovado: true, DataAprovacao: &approved, SaldoRestante: d("150")},
		{ID: uuid.New(), ClaimID: claim.ID, Valor: *d("30.50"), Sinal: constants.Debito, Tipo: constants.TipoCorrecao,
			DataLancamento: day(2024, 4, 10), Aprovado: true, DataAprovacao: &approved, SaldoRestante: d("119.50"),
			Observacao: "compensação IRPJ"},
		{ID: uuid.New(), ClaimID: claim.ID, Valor: *d("10"), Sinal: constants.Debito, Tipo: constants.TipoEcac,
			DataLancamento: day(2024, 5, 20)},
	}}
}

func open(t *testing.T, b []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func raw(t *testing.T, f *excelize.File, cell string) string {
	t.Helper()
	v, err := f.GetCellValue(StatementSheet, cell, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	return v
}

func TestExportStatementXLSX(t *testing.T) {
	fl := fixture()
	svc := NewService(fl, slog.New(slog.NewTextHandler(io.Discard, nil)))

	b, err := svc.ExportStatementXLSX(context.Background(), fl.claim.ID, nil, nil)
	require.NoError(t, err)
	f := open(t, b)

	assert.Equal(t, fl.claim.Perdcomp, raw(t, f, "B1"))
	assert.Equal(t, "100.00", raw(t, f, "B2"))
	assert.Equal(t, "119.50", raw(t, f, "B3"))
	assert.Equal(t, "Data Lançamento", raw(t, f, "A5"))

	assert.Equal(t, "01/03/2024", raw(t, f, "A6"))
	assert.Equal(t, "+", raw(t, f, "C6"))
	assert.Equal(t, "50.00", raw(t, f, "D6"))
	assert.Equal(t, "150.00", raw(t, f, "E6"))
	assert.Equal(t, "Sim", raw(t, f, "F6"))
	assert.Equal(t, "02/03/2024", raw(t, f, "G6"))

	assert.Equal(t, "-", raw(t, f, "C7"))
	assert.Equal(t, "30.50", raw(t, f, "D7"))
	assert.Equal(t, "compensação IRPJ", raw(t, f, "H7"))

	assert.Equal(t, "Não", raw(t, f, "F8"))
	assert.Empty(t, raw(t, f, "E8"), "pending entries have no snapshot")
	assert.Empty(t, raw(t, f, "A9"))
}

func TestExportStatementDateWindow(t *testing.T) {
	fl := fixture()
	svc := NewService(fl, nil)

	from := time.Date(2024, 4, 10, 23, 0, 0, 0, time.UTC)
	to := time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC)
	b, err := svc.ExportStatementXLSX(context.Background(), fl.claim.ID, &from, &to)
	require.NoError(t, err)
	f := open(t, b)

	assert.Equal(t, "10/04/2024", raw(t, f, "A6"))
	assert.Equal(t, "20/05/2024", raw(t, f, "A7"))
	assert.Empty(t, raw(t, f, "A8"))
	assert.Len(t, fl.entries, 3, "filtering must not touch the caller's slice")
}

func TestExportStatementUnknownClaim(t *testing.T) {
	svc := NewService(fixture(), nil)
	_, err := svc.ExportStatementXLSX(context.Background(), uuid.New(), nil, nil)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab…", truncate("abcd", 3))
	assert.Equal(t, "çã…", truncate("çãõé", 3))
}

func TestBatchSummaryXLSX(t *testing.T) {
	perdcomp := "12345.67890.123456.1.1.01-1234"
	metodo := constants.PedidoRessarcimento
	rows := []BatchRow{
		{
			File: "a.pdf",
			Mode: "ressarcimento",
			Claim: parser.ParsedClaim{
				Perdcomp:      &perdcomp,
				MetodoCredito: &metodo,
				ValorPedido:   d("1234.56"),
			},
			NeedsReview: true,
			Reasons:     []string{"cnpj not found"},
		},
		{File: "b.png", Err: "no text recovered"},
	}
	b, err := NewService(nil, nil).BatchSummaryXLSX(rows)
	require.NoError(t, err)
	f := open(t, b)

	cell := func(name string) string {
		v, err := f.GetCellValue(BatchSheet, name, excelize.Options{RawCellValue: true})
		require.NoError(t, err)
		return v
	}
	assert.Equal(t, "Arquivo", cell("A1"))
	assert.Equal(t, "a.pdf", cell("A2"))
	assert.Equal(t, perdcomp, cell("C2"))
	assert.Equal(t, "Pedido de ressarcimento", cell("E2"))
	assert.Equal(t, "1234.56", cell("F2"))
	assert.Empty(t, cell("G2"))
	assert.Equal(t, "Sim", cell("K2"))
	assert.Equal(t, "cnpj not found", cell("L2"))

	assert.Equal(t, "b.png", cell("A3"))
	assert.Empty(t, cell("K3"))
	assert.Equal(t, "no text recovered", cell("M3"))
}

func TestAmountCellsKeepExactDecimals(t *testing.T) {
	rows := []BatchRow{{
		File:  "grande.pdf",
		Claim: parser.ParsedClaim{ValorPedido: d("123456789012345.67"), ValorTotalOrigem: d("0.1")},
	}}
	b, err := NewService(nil, nil).BatchSummaryXLSX(rows)
	require.NoError(t, err)
	f := open(t, b)

	v, err := f.GetCellValue(BatchSheet, "F2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "123456789012345.67", v)
	v, err = f.GetCellValue(BatchSheet, "G2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "0.10", v)
}
