package parser

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/danieceiflora/perdcomp01-sub000/constants"
)

// Date is a calendar day as printed on the document (dd/mm/yyyy).
type Date struct {
	Day   int
	Month time.Month
	Year  int
}

// ParseDate accepts dd/mm/yyyy and rejects impossible days.
func ParseDate(s string) (Date, bool) {
	t, err := time.Parse("02/01/2006", s)
	if err != nil {
		return Date{}, false
	}
	return Date{Day: t.Day(), Month: t.Month(), Year: t.Year()}, true
}

func (d Date) String() string {
	return fmt.Sprintf("%02d/%02d/%04d", d.Day, int(d.Month), d.Year)
}

// Time returns midnight UTC of the day.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// Debito is one numbered debit block of a compensation declaration.
type Debito struct {
	Item                     string // zero-padded to 3 digits
	CodigoReceitaDenominacao *string
	PeriodoApuracao          *string
	Valor                    *decimal.Decimal
}

// ParsedClaim holds the fields recovered from one PERDCOMP document.
// Unmatched fields stay nil.
type ParsedClaim struct {
	CNPJ                *string
	Perdcomp            *string
	PerdcompInicial     *string
	PerdcompRetificador *string
	MetodoCredito       *constants.MetodoCredito

	ValorPedido                   *decimal.Decimal
	ValorTotalOrigem              *decimal.Decimal
	ValorOriginalCreditoInicial   *decimal.Decimal
	TotalDebitosDocumento         *decimal.Decimal
	TotalCreditoOriginalUtilizado *decimal.Decimal

	DataCriacao     *Date
	DataArrecadacao *Date

	Ano             *string
	Trimestre       *string
	TipoCredito     *string
	PeriodoApuracao *string
	CodigoReceita   *string

	Debitos       []Debito
	IsRetificador bool
}

// Record exports the claim as a field map. Amounts are fixed two-place
// strings and dates dd/mm/yyyy; absent fields are nil.
func (p ParsedClaim) Record() map[string]any {
	debitos := make([]any, 0, len(p.Debitos))
	for _, d := range p.Debitos {
		debitos = append(debitos, map[string]any{
			"item":                       d.Item,
			"codigo_receita_denominacao": strOrNil(d.CodigoReceitaDenominacao),
			"periodo_apuracao":           strOrNil(d.PeriodoApuracao),
			"valor":                      moneyOrNil(d.Valor),
		})
	}
	var metodo any
	if p.MetodoCredito != nil {
		metodo = string(*p.MetodoCredito)
	}
	return map[string]any{
		"cnpj":                             strOrNil(p.CNPJ),
		"perdcomp":                         strOrNil(p.Perdcomp),
		"perdcomp_inicial":                 strOrNil(p.PerdcompInicial),
		"perdcomp_retificador":             strOrNil(p.PerdcompRetificador),
		"metodo_credito":                   metodo,
		"valor_pedido":                     moneyOrNil(p.ValorPedido),
		"valor_total_origem":               moneyOrNil(p.ValorTotalOrigem),
		"valor_original_credito_inicial":   moneyOrNil(p.ValorOriginalCreditoInicial),
		"total_debitos_documento":          moneyOrNil(p.TotalDebitosDocumento),
		"total_credito_original_utilizado": moneyOrNil(p.TotalCreditoOriginalUtilizado),
		"data_criacao":                     dateOrNil(p.DataCriacao),
		"data_arrecadacao":                 dateOrNil(p.DataArrecadacao),
		"ano":                              strOrNil(p.Ano),
		"trimestre":                        strOrNil(p.Trimestre),
		"tipo_credito":                     strOrNil(p.TipoCredito),
		"periodo_apuracao":                 strOrNil(p.PeriodoApuracao),
		"codigo_receita":                   strOrNil(p.CodigoReceita),
		"is_retificador":                   p.IsRetificador,
		"debitos":                          debitos,
	}
}

func strOrNil(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func moneyOrNil(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.StringFixed(2)
}

func dateOrNil(d *Date) any {
	if d == nil {
		return nil
	}
	return d.String()
}
