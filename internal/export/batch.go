package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/danieceiflora/perdcomp01-sub000/internal/parser"
)

// BatchSheet is the worksheet holding one row per processed file.
const BatchSheet = "Documentos"

var batchHeaders = []string{
	"Arquivo",
	"Modo",
	"PER/DCOMP",
	"CNPJ",
	"Método",
	"Valor Pedido",
	"Valor Total Origem",
	"Total Débitos",
	"Data Criação",
	"Débitos",
	"Revisão",
	"Motivos",
	"Erro",
}

// BatchRow is the outcome of one file in a batch run.
type BatchRow struct {
	File        string
	Mode        parser.Mode
	Claim       parser.ParsedClaim
	NeedsReview bool
	Reasons     []string
	Err         string
}

// BatchSummaryXLSX renders rows as a single-sheet workbook.
func (s *Service) BatchSummaryXLSX(rows []BatchRow) ([]byte, error) {
	start := time.Now()
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("xlsx close failed", "error", err)
		}
	}()
	if err := f.SetSheetName("Sheet1", BatchSheet); err != nil {
		return nil, err
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	set := func(col, row int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(BatchSheet, cell, v)
	}
	setMoney := func(col, row int, v *decimal.Decimal) {
		if v == nil {
			return
		}
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = setAmount(f, BatchSheet, cell, v)
		_ = f.SetCellStyle(BatchSheet, cell, cell, money)
	}

	for i, h := range batchHeaders {
		set(i+1, 1, h)
	}
	_ = f.SetRowStyle(BatchSheet, 1, 1, bold)

	for i, r := range rows {
		row := i + 2
		c := r.Claim
		set(1, row, r.File)
		set(2, row, string(r.Mode))
		if c.Perdcomp != nil {
			set(3, row, *c.Perdcomp)
		}
		if c.CNPJ != nil {
			set(4, row, *c.CNPJ)
		}
		if c.MetodoCredito != nil {
			set(5, row, string(*c.MetodoCredito))
		}
		setMoney(6, row, c.ValorPedido)
		setMoney(7, row, c.ValorTotalOrigem)
		setMoney(8, row, c.TotalDebitosDocumento)
		if c.DataCriacao != nil {
			set(9, row, c.DataCriacao.String())
		}
		set(10, row, len(c.Debitos))
		if r.Err == "" {
			set(11, row, yesNo(r.NeedsReview))
		}
		set(12, row, truncate(strings.Join(r.Reasons, "; "), 500))
		set(13, row, truncate(r.Err, 500))
	}

	_ = f.SetColWidth(BatchSheet, "A", "A", 40)
	_ = f.SetColWidth(BatchSheet, "B", "B", 22)
	_ = f.SetColWidth(BatchSheet, "C", "C", 32)
	_ = f.SetColWidth(BatchSheet, "D", "D", 20)
	_ = f.SetColWidth(BatchSheet, "E", "I", 16)
	_ = f.SetColWidth(BatchSheet, "L", "M", 50)
	_ = f.SetPanes(BatchSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	s.logger.Info("export.batch.ok", "rows", len(rows), "elapsed_ms", time.Since(start).Milliseconds())
	return buf.Bytes(), nil
}
