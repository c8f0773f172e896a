package parser

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/danieceiflora/perdcomp01-sub000/constants"
)

var (
	reTipoDocumento = regexp.MustCompile(`(?i)Tipo\s+de\s+Documento[ ]*[:\-]?[ ]*([^\n]+)`)
	reDataCriacao   = regexp.MustCompile(`(?i)Data\s+de\s+Cria[cç][aã]o\s*[:\-]?\s*(\d{2}/\d{2}/\d{4})`)
	reDataArrecad   = regexp.MustCompile(`(?i)Data\s+de\s+Arrecada[cç][aã]o\s*[:\-]?\s*(\d{2}/\d{2}/\d{4})`)
	reValorPedido   = regexp.MustCompile(`(?is)Valor\s+do\s+Pedido.*?` + moneyPattern)
	reAno           = regexp.MustCompile(`(?i)\bAno\b\s*[:\-]?\s*(\d{4})`)
	reTrimestre     = regexp.MustCompile(`(?i)\b([1-4])\s*[º°ªo]?\s*Trimestre`)
	reTipoCredito   = regexp.MustCompile(`(?i)Tipo\s+de\s+Cr[eé]dito[ ]*[:\-]?[ ]*([^\n]+)`)
	rePeriodo       = regexp.MustCompile(`(?i)Per[ií]odo\s+de\s+Apura[cç][aã]o[ ]*[:\-]?\s*([^\n]+)`)
	reCodigoReceita = regexp.MustCompile(`(?i)C[oó]digo\s+(?:da\s+)?Receita(?:\s*/\s*Denomina[cç][aã]o)?[ ]*[:\-]?\s*([^\n]+)`)

	reValorOriginalInicial = regexp.MustCompile(`(?i)Valor\s+Original\s+do\s+Cr[eé]dito\s+Inicial\s*[:\-]?\s*(?:R\$\s*)?` + moneyPattern)
	reTotalDebitos         = regexp.MustCompile(`(?i)Total\s+(?:dos\s+)?D[eé]bitos(?:\s+deste\s+Documento)?\s*[:\-]?\s*(?:R\$\s*)?` + moneyPattern)
	reTotalCreditoUsado    = regexp.MustCompile(`(?i)Total\s+do\s+Cr[eé]dito\s+Original\s+Utilizado(?:\s+neste\s+Documento)?\s*[:\-]?\s*(?:R\$\s*)?` + moneyPattern)

	reOrigemHeader = regexp.MustCompile(`(?m)^[ ]*ORIGEM\s+DO\s+CR[EÉ]DITO\b`)
	reValorTotal   = regexp.MustCompile(`(?i)Valor\s+Total\s*[:\-]?\s*(?:R\$\s*)?` + moneyPattern)
)

func moneyField(re *regexp.Regexp, s string) *decimal.Decimal {
	if v, ok := firstGroup(re, s); ok {
		return moneyPtr(v)
	}
	return nil
}

// metodo maps "Tipo de Documento" onto a claim method, falling back to the
// document title.
func metodo(txt string) *constants.MetodoCredito {
	if raw, ok := firstGroup(reTipoDocumento, txt); ok {
		m, _ := constants.CanonicalizeMetodo(raw)
		return &m
	}
	f := fold(txt)
	var m constants.MetodoCredito
	switch {
	case strings.Contains(f, "pedido de ressarcimento"):
		m = constants.PedidoRessarcimento
	case strings.Contains(f, "pedido de restituicao"):
		m = constants.PedidoRestituicao
	case strings.Contains(f, "declaracao de compensacao"):
		m = constants.DeclaracaoCompensacaoPagto
	default:
		return nil
	}
	return &m
}

func isCompensacao(txt string, m *constants.MetodoCredito) bool {
	if m != nil && *m == constants.DeclaracaoCompensacaoPagto {
		return true
	}
	return strings.Contains(fold(txt), "declaracao de compensacao")
}

// valorTotalOrigem reads "Valor Total" only inside the ORIGEM DO CRÉDITO section.
func valorTotalOrigem(txt string) *decimal.Decimal {
	block := section(reOrigemHeader, txt)
	if block == "" {
		return nil
	}
	return moneyField(reValorTotal, block)
}

// compensacaoTotals fills the document-level totals of a compensation declaration.
func compensacaoTotals(p *ParsedClaim, txt string) {
	p.ValorTotalOrigem = valorTotalOrigem(txt)
	p.TotalDebitosDocumento = moneyField(reTotalDebitos, txt)
	p.TotalCreditoOriginalUtilizado = moneyField(reTotalCreditoUsado, txt)
}
