// Package export renders ledger data as spreadsheets.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/danieceiflora/perdcomp01-sub000/internal/ledger"
)

// StatementSheet is the worksheet holding the statement.
const StatementSheet = "Extrato"

// header row of the entry table; rows above it hold the claim summary.
const tableRow = 5

var headers = []string{
	"Data Lançamento",
	"Tipo",
	"Sinal",
	"Valor",
	"Saldo Restante",
	"Aprovado",
	"Data Aprovação",
	"Observação",
}

// LedgerReader is the read side of the ledger store.
type LedgerReader interface {
	GetClaim(ctx context.Context, id uuid.UUID) (*ledger.Claim, error)
	ListEntries(ctx context.Context, claimID uuid.UUID) ([]ledger.Entry, error)
}

// Service produces XLSX bytes for ledger exports.
type Service struct {
	store  LedgerReader
	logger *slog.Logger
}

func NewService(store LedgerReader, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// ExportStatementXLSX returns the statement of one claim as an XLSX
// workbook, entries in ledger order. from and to bound the entry date,
// both inclusive; nil leaves that side open.
func (s *Service) ExportStatementXLSX(ctx context.Context, claimID uuid.UUID, from, to *time.Time) ([]byte, error) {
	start := time.Now()

	claim, err := s.store.GetClaim(ctx, claimID)
	if err != nil {
		return nil, fmt.Errorf("load claim: %w", err)
	}
	entries, err := s.store.ListEntries(ctx, claimID)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	entries = within(entries, dateOnly(from), dateOnly(to))

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("xlsx close failed", "error", err)
		}
	}()
	if err := f.SetSheetName("Sheet1", StatementSheet); err != nil {
		return nil, err
	}

	money, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	set := func(col, row int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(StatementSheet, cell, v)
	}
	style := func(col, row, id int) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellStyle(StatementSheet, cell, cell, id)
	}
	setMoney := func(col, row int, v *decimal.Decimal) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = setAmount(f, StatementSheet, cell, v)
	}

	set(1, 1, "PERDCOMP")
	set(2, 1, claim.Perdcomp)
	set(1, 2, "Saldo Inicial")
	setMoney(2, 2, claim.Saldo)
	set(1, 3, "Saldo Atual")
	balance := ledger.CurrentBalance(*claim)
	setMoney(2, 3, &balance)
	for row := 1; row <= 3; row++ {
		style(1, row, bold)
	}
	style(2, 2, money)
	style(2, 3, money)

	for i, h := range headers {
		set(i+1, tableRow, h)
		style(i+1, tableRow, bold)
	}

	row := tableRow + 1
	for _, e := range entries {
		set(1, row, e.DataLancamento.Format("02/01/2006"))
		set(2, row, string(e.Tipo))
		set(3, row, string(e.Sinal))
		setMoney(4, row, &e.Valor)
		style(4, row, money)
		if e.SaldoRestante != nil {
			setMoney(5, row, e.SaldoRestante)
			style(5, row, money)
		}
		set(6, row, yesNo(e.Aprovado))
		if e.DataAprovacao != nil {
			set(7, row, e.DataAprovacao.Format("02/01/2006"))
		}
		set(8, row, truncate(e.Observacao, 500))
		row++
	}

	_ = f.SetColWidth(StatementSheet, "A", "A", 16)
	_ = f.SetColWidth(StatementSheet, "B", "B", 20)
	_ = f.SetColWidth(StatementSheet, "C", "C", 6)
	_ = f.SetColWidth(StatementSheet, "D", "E", 16)
	_ = f.SetColWidth(StatementSheet, "F", "G", 14)
	_ = f.SetColWidth(StatementSheet, "H", "H", 60)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"claim_id", claimID.String(),
		"rows", len(entries),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func within(entries []ledger.Entry, from, to *time.Time) []ledger.Entry {
	if from == nil && to == nil {
		return entries
	}
	out := entries[:0:0]
	for _, e := range entries {
		d := e.DataLancamento.UTC()
		day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
		if from != nil && day.Before(*from) {
			continue
		}
		if to != nil && day.After(*to) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func dateOnly(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &d
}

// setAmount writes d as a numeric cell holding its exact two-place decimal
// text. A nil amount leaves the cell empty.
func setAmount(f *excelize.File, sheet, cell string, d *decimal.Decimal) error {
	if d == nil {
		return nil
	}
	return f.SetCellDefault(sheet, cell, d.StringFixed(2))
}

func yesNo(b bool) string {
	if b {
		return "Sim"
	}
	return "Não"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
