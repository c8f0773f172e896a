// Package parser turns recovered PERDCOMP text into a ParsedClaim.
//
// Every field is optional: a pattern that does not match leaves its field
// nil, and no input makes the parsers fail. Callers decide which fields a
// business rule requires.
package parser

import (
	"fmt"
	"strings"

	"github.com/danieceiflora/perdcomp01-sub000/constants"
)

// Mode selects the rule set for a known document type.
type Mode string

const (
	ModeRessarcimento         Mode = "ressarcimento"
	ModeDeclaracaoCompensacao Mode = "declaracao_compensacao"
	ModePedidoCredito         Mode = "pedido_credito"
)

// ParseMode validates a mode name; "" and "auto" return ok with an empty mode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "", "auto":
		return "", nil
	case ModeRessarcimento, ModeDeclaracaoCompensacao, ModePedidoCredito:
		return m, nil
	default:
		return "", fmt.Errorf("unknown parse mode %q", s)
	}
}

// DetectMode guesses the document type from its title keywords.
func DetectMode(txt string) Mode {
	f := fold(txt)
	switch {
	case strings.Contains(f, "declaracao de compensacao"):
		return ModeDeclaracaoCompensacao
	case strings.Contains(f, "pedido de restituicao"), strings.Contains(f, "pedido de ressarcimento"):
		return ModePedidoCredito
	default:
		return ModeRessarcimento
	}
}

// Parse runs the rule set for mode; an empty mode is detected from the text.
func Parse(mode Mode, txt string) ParsedClaim {
	if mode == "" {
		mode = DetectMode(txt)
	}
	switch mode {
	case ModeDeclaracaoCompensacao:
		return ParseDeclaracaoCompensacao(txt)
	case ModePedidoCredito:
		return ParsePedidoCredito(txt)
	default:
		return ParseRessarcimento(txt)
	}
}

// ParseRessarcimento reads ressarcimento, restituição and compensação receipts.
// Compensation declarations also get their debit list and totals.
func ParseRessarcimento(txt string) ParsedClaim {
	var p ParsedClaim
	if strings.TrimSpace(txt) == "" {
		return p
	}
	txt = prepare(txt)
	head := beforeDebitos(txt)

	identify(&p, txt)
	p.MetodoCredito = metodo(txt)
	p.DataCriacao = dateField(reDataCriacao, txt)
	p.ValorPedido = moneyField(reValorPedido, head)
	p.PeriodoApuracao = stringField(rePeriodo, head)
	p.CodigoReceita = stringField(reCodigoReceita, head)
	p.Ano = stringField(reAno, head)
	p.Trimestre = stringField(reTrimestre, head)
	p.TipoCredito = stringField(reTipoCredito, txt)

	if isCompensacao(txt, p.MetodoCredito) {
		p.Debitos = extractDebitos(txt)
		compensacaoTotals(&p, txt)
	}
	return p
}

// ParseDeclaracaoCompensacao reads a compensation declaration: the original
// filing number it amends, its own number, the credit's original value and
// the itemised debits.
func ParseDeclaracaoCompensacao(txt string) ParsedClaim {
	var p ParsedClaim
	if strings.TrimSpace(txt) == "" {
		return p
	}
	txt = prepare(txt)
	head := beforeDebitos(txt)

	identify(&p, txt)
	p.MetodoCredito = metodo(txt)
	if p.MetodoCredito == nil {
		m := constants.DeclaracaoCompensacaoPagto
		p.MetodoCredito = &m
	}
	p.DataCriacao = dateField(reDataCriacao, txt)
	p.DataArrecadacao = dateField(reDataArrecad, head)
	p.ValorOriginalCreditoInicial = moneyField(reValorOriginalInicial, txt)
	p.TipoCredito = stringField(reTipoCredito, txt)
	p.PeriodoApuracao = stringField(rePeriodo, head)
	p.CodigoReceita = stringField(reCodigoReceita, head)
	p.Debitos = extractDebitos(txt)
	compensacaoTotals(&p, txt)
	return p
}

// ParsePedidoCredito reads a credit request and picks the restitution or
// ressarcimento field set from the detected subtype.
func ParsePedidoCredito(txt string) ParsedClaim {
	var p ParsedClaim
	if strings.TrimSpace(txt) == "" {
		return p
	}
	txt = prepare(txt)

	identify(&p, txt)
	p.MetodoCredito = metodo(txt)
	p.DataCriacao = dateField(reDataCriacao, txt)
	p.TipoCredito = stringField(reTipoCredito, txt)
	p.ValorPedido = moneyField(reValorPedido, txt)

	if isRestituicao(txt, p.MetodoCredito) {
		p.DataArrecadacao = dateField(reDataArrecad, txt)
		p.CodigoReceita = stringField(reCodigoReceita, txt)
		p.PeriodoApuracao = stringField(rePeriodo, txt)
		p.ValorOriginalCreditoInicial = moneyField(reValorOriginalInicial, txt)
		return p
	}
	p.Ano = stringField(reAno, txt)
	p.Trimestre = stringField(reTrimestre, txt)
	p.PeriodoApuracao = stringField(rePeriodo, txt)
	return p
}

func isRestituicao(txt string, m *constants.MetodoCredito) bool {
	if m != nil {
		switch *m {
		case constants.PedidoRestituicao:
			return true
		case constants.PedidoRessarcimento:
			return false
		}
	}
	f := fold(txt)
	return strings.Contains(f, "restituicao") && !strings.Contains(f, "ressarcimento")
}
